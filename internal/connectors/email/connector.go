package email

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/corvid-labs/corpusmind/internal/connectors"
	"github.com/corvid-labs/corpusmind/internal/models"
	"github.com/corvid-labs/corpusmind/internal/storage"
)

// ClientFactory builds an UpstreamClient bound to one user's access token.
// Gmail credentials are per-user, so the client can't be constructed once at
// process start the way a shared API key could be.
type ClientFactory func(ctx context.Context, accessToken string) (UpstreamClient, error)

// Connector implements connectors.Connector against an email upstream. It
// initializes by obtaining a currently valid access token for (user_id,
// "email") from the credential collaborator, then asks the factory for a
// client scoped to that token.
type Connector struct {
	creds   *storage.CredentialRepo
	newClient ClientFactory
	limiter *connectors.RateLimiter

	userID string
	client UpstreamClient
}

func New(creds *storage.CredentialRepo, newClient ClientFactory, ratePerSecond float64) *Connector {
	return &Connector{creds: creds, newClient: newClient, limiter: connectors.NewRateLimiter(ratePerSecond)}
}

func (c *Connector) Source() string { return models.SourceEmail }

func (c *Connector) Authenticate(ctx context.Context, userID string) error {
	cred, err := c.creds.Get(ctx, userID, models.SourceEmail)
	if err != nil {
		return err
	}
	if cred.Expired(time.Now()) {
		return connectors.ErrCredentialExpired
	}
	client, err := c.newClient(ctx, cred.AccessToken)
	if err != nil {
		return fmt.Errorf("build email client: %w", err)
	}
	c.userID = userID
	c.client = client
	return nil
}

func (c *Connector) FetchAll(ctx context.Context, opts connectors.FetchOptions) (<-chan connectors.RawRecord, <-chan error) {
	return c.fetch(ctx, 0)
}

func (c *Connector) FetchNew(ctx context.Context, since time.Time) (<-chan connectors.RawRecord, <-chan error) {
	return c.fetch(ctx, since.Unix())
}

func (c *Connector) fetch(ctx context.Context, afterUnix int64) (<-chan connectors.RawRecord, <-chan error) {
	out := make(chan connectors.RawRecord)
	errs := make(chan error, 1)

	msgs := make(chan UpstreamMessage)
	upstreamErrs := make(chan error, 1)

	go func() {
		defer close(msgs)
		fetchPages(ctx, c.client, c.limiter, afterUnix, msgs, upstreamErrs)
	}()

	go func() {
		defer close(out)
		defer close(errs)
		for {
			select {
			case m, ok := <-msgs:
				if !ok {
					select {
					case err := <-upstreamErrs:
						if err != nil {
							errs <- err
						}
					default:
					}
					return
				}
				out <- connectors.RawRecord{ID: m.ID, Body: upstreamToMap(m)}
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()

	return out, errs
}

func (c *Connector) Normalize(raw connectors.RawRecord) (models.Document, bool, error) {
	m, ok := mapToUpstream(raw.Body)
	if !ok {
		return models.Document{}, false, connectors.ErrMalformedRecord
	}
	doc, ok := Normalize(c.userID, m)
	if !ok {
		log.Printf("email connector: dropping %s, empty body after cleanup", raw.ID)
		return models.Document{}, false, nil
	}
	return doc, true, nil
}

// NormalizeAttachments implements connectors.AttachmentNormalizer.
func (c *Connector) NormalizeAttachments(raw connectors.RawRecord) []models.Document {
	m, ok := mapToUpstream(raw.Body)
	if !ok {
		return nil
	}
	docs := NormalizeAttachments(c.userID, m)
	for _, att := range m.Attachments {
		_ = os.Remove(att.LocalPath)
	}
	return docs
}

func (c *Connector) ValidateConnection(ctx context.Context) bool {
	_, err := c.client.GetAccountIdentifier(ctx)
	return err == nil
}

func upstreamToMap(m UpstreamMessage) map[string]any {
	return map[string]any{"message": m}
}

func mapToUpstream(body map[string]any) (UpstreamMessage, bool) {
	m, ok := body["message"].(UpstreamMessage)
	return m, ok
}
