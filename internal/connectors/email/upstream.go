package email

import "context"

// UpstreamMessage is what the upstream email API hands back per message.
type UpstreamMessage struct {
	ID          string
	ThreadID    string
	From        string
	To          []string
	Subject     string
	Labels      []string
	Snippet     string
	PlainText   string
	HTML        string
	Timestamp   int64 // unix seconds, upstream-native "internal date"
	Attachments []Attachment
}

// Attachment is a binary part of a message that has already been
// downloaded to a local temp file; LocalPath is removed by the caller once
// normalization has read it.
type Attachment struct {
	Filename  string
	LocalPath string
}

// UpstreamClient is the narrow surface the connector needs from whatever
// email API is actually wired in (Gmail, Graph, IMAP...); kept separate from
// Connector so it can be swapped or mocked independently.
type UpstreamClient interface {
	// ListPage returns message ids for one page plus the next page token
	// ("" when there are no more pages). afterUnix, when non-zero, scopes
	// the listing to messages newer than that instant (incremental mode).
	ListPage(ctx context.Context, pageToken string, afterUnix int64) (ids []string, nextPageToken string, err error)

	// FetchMessage retrieves one message body. Returning an error for an
	// individual id is expected and must not abort the page.
	FetchMessage(ctx context.Context, id string) (UpstreamMessage, error)

	GetAccountIdentifier(ctx context.Context) (string, error)
}
