package connectors

import "errors"

var (
	ErrCredentialExpired = errors.New("credential expired for source")
	ErrMalformedRecord   = errors.New("malformed raw record for connector")
)
