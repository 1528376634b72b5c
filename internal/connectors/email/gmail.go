package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// staticTokenSource vends a single access token exactly as stored.
// Connector.Authenticate rejects an expired credential before a sync
// starts; no token is refreshed, here or anywhere else in the connector.
type staticTokenSource struct {
	token string
}

func (s staticTokenSource) Token() (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: s.token, TokenType: "Bearer"}, nil
}

// GmailClient implements UpstreamClient against the real Gmail API.
type GmailClient struct {
	svc *gmail.Service
}

func NewGmailClient(ctx context.Context, accessToken string) (*GmailClient, error) {
	svc, err := gmail.NewService(ctx, option.WithTokenSource(staticTokenSource{token: accessToken}))
	if err != nil {
		return nil, fmt.Errorf("new gmail service: %w", err)
	}
	return &GmailClient{svc: svc}, nil
}

func (c *GmailClient) ListPage(ctx context.Context, pageToken string, afterUnix int64) ([]string, string, error) {
	call := c.svc.Users.Messages.List("me").PageToken(pageToken).MaxResults(subBatchSize)
	if afterUnix > 0 {
		call = call.Q(fmt.Sprintf("after:%d", afterUnix))
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", fmt.Errorf("list messages: %w", err)
	}
	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, resp.NextPageToken, nil
}

func (c *GmailClient) FetchMessage(ctx context.Context, id string) (UpstreamMessage, error) {
	msg, err := c.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return UpstreamMessage{}, fmt.Errorf("get message %s: %w", id, err)
	}
	u := messageToUpstream(msg)
	u.Attachments = c.downloadAttachments(ctx, msg.Id, msg.Payload)
	return u, nil
}

// downloadAttachments walks the MIME part tree for parts that carry a
// Filename (Gmail's signal for "this is an attachment, not a body part")
// and writes PDF attachments to a local temp file; a failed download for
// one attachment is logged and skipped, never aborting the message.
func (c *GmailClient) downloadAttachments(ctx context.Context, messageID string, part *gmail.MessagePart) []Attachment {
	if part == nil {
		return nil
	}
	var out []Attachment
	if part.Filename != "" && strings.HasSuffix(strings.ToLower(part.Filename), ".pdf") && part.Body != nil && part.Body.AttachmentId != "" {
		if path, err := c.downloadAttachment(ctx, messageID, part.Body.AttachmentId, part.Filename); err == nil {
			out = append(out, Attachment{Filename: part.Filename, LocalPath: path})
		} else {
			log.Printf("email connector: skipping attachment %q on message %s: %v", part.Filename, messageID, err)
		}
	}
	for _, child := range part.Parts {
		out = append(out, c.downloadAttachments(ctx, messageID, child)...)
	}
	return out
}

func (c *GmailClient) downloadAttachment(ctx context.Context, messageID, attachmentID, filename string) (string, error) {
	att, err := c.svc.Users.Messages.Attachments.Get("me", messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get attachment %s: %w", attachmentID, err)
	}
	data, err := base64.URLEncoding.DecodeString(att.Data)
	if err != nil {
		return "", fmt.Errorf("decode attachment %s: %w", attachmentID, err)
	}
	f, err := os.CreateTemp("", "gmail-attach-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp attachment file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write attachment %s: %w", filename, err)
	}
	return f.Name(), nil
}

func (c *GmailClient) GetAccountIdentifier(ctx context.Context) (string, error) {
	profile, err := c.svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get profile: %w", err)
	}
	return profile.EmailAddress, nil
}

func messageToUpstream(msg *gmail.Message) UpstreamMessage {
	u := UpstreamMessage{
		ID:        msg.Id,
		ThreadID:  msg.ThreadId,
		Labels:    msg.LabelIds,
		Snippet:   msg.Snippet,
		Timestamp: msg.InternalDate / 1000,
	}
	if msg.Payload == nil {
		return u
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "From":
			u.From = h.Value
		case "To":
			u.To = append(u.To, h.Value)
		case "Subject":
			u.Subject = h.Value
		}
	}
	u.PlainText, u.HTML = extractBody(msg.Payload)
	return u
}

// extractBody walks the MIME part tree depth-first, preferring the first
// text/plain part and falling back to the first text/html part.
func extractBody(part *gmail.MessagePart) (plain, html string) {
	if part == nil {
		return "", ""
	}
	switch part.MimeType {
	case "text/plain":
		if plain == "" {
			plain = decodeBody(part.Body)
		}
	case "text/html":
		if html == "" {
			html = decodeBody(part.Body)
		}
	}
	for _, child := range part.Parts {
		childPlain, childHTML := extractBody(child)
		if plain == "" {
			plain = childPlain
		}
		if html == "" {
			html = childHTML
		}
	}
	return plain, html
}

func decodeBody(body *gmail.MessagePartBody) string {
	if body == nil || body.Data == "" {
		return ""
	}
	decoded, err := base64.URLEncoding.DecodeString(body.Data)
	if err != nil {
		return ""
	}
	return string(decoded)
}
