package connectors

import (
	"context"
	"time"

	"github.com/corvid-labs/corpusmind/internal/models"
)

// RawRecord is an upstream record before normalization.
type RawRecord struct {
	ID   string
	Body map[string]any
}

// FetchOptions bounds a full sync.
type FetchOptions struct {
	Limit int
}

// Connector is the capability interface the Ingestion Coordinator dispatches
// through; each source (email, calendar, music) is a variant the coordinator
// holds in a collection keyed by source name.
type Connector interface {
	Source() string

	Authenticate(ctx context.Context, userID string) error

	FetchAll(ctx context.Context, opts FetchOptions) (<-chan RawRecord, <-chan error)
	// FetchNew translates since into an upstream-native after-date query.
	FetchNew(ctx context.Context, since time.Time) (<-chan RawRecord, <-chan error)

	Normalize(raw RawRecord) (models.Document, bool, error)

	ValidateConnection(ctx context.Context) bool
}

// AttachmentNormalizer is an optional capability a Connector may implement
// when a raw record can carry secondary documents alongside its primary
// one (e.g. PDF attachments on an email message). The coordinator checks
// for it with a type assertion rather than widening Connector itself,
// since most sources never have attachments to normalize.
type AttachmentNormalizer interface {
	NormalizeAttachments(raw RawRecord) []models.Document
}
