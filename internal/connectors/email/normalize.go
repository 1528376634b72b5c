package email

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/corvid-labs/corpusmind/internal/connectors/attachment"
	"github.com/corvid-labs/corpusmind/internal/models"
)

// maxContentChars bounds stored content; longer bodies are truncated with a
// trailing marker per the Document content invariant.
const maxContentChars = 32000

const sigMarker = "\n-- \n"

// Normalize converts one upstream message into the unified Document shape.
// It returns ok=false when the body is empty after cleanup, signalling the
// caller to drop the record with a warning rather than persist it.
func Normalize(userID string, m UpstreamMessage) (models.Document, bool) {
	content := m.PlainText
	if strings.TrimSpace(content) == "" && m.HTML != "" {
		content = StripHTML(m.HTML)
	}
	content = stripSignature(content)
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Document{}, false
	}
	if len(content) > maxContentChars {
		content = content[:maxContentChars] + "\n[truncated]"
	}

	doc := models.Document{
		DocumentID: "email_" + m.ID,
		UserID:     userID,
		Source:     models.SourceEmail,
		Type:       models.TypeMessage,
		Content:    content,
		Title:      m.Subject,
		Author:     m.From,
		Timestamp:  time.Unix(m.Timestamp, 0).UTC(),
		Metadata: models.Metadata{
			"from":      m.From,
			"to":        m.To,
			"subject":   m.Subject,
			"labels":    m.Labels,
			"thread_id": m.ThreadID,
			"snippet":   m.Snippet,
		},
		NeedsEmbedding: true,
	}
	return doc, true
}

// NormalizeAttachments extracts text from any PDF attachments on m and
// returns one secondary Document per attachment, tagged
// metadata.type == "attachment". Nothing downstream filters on that tag:
// attachment documents are stored and searched like the messages themselves.
// Extraction failures are logged and the attachment is skipped; a
// malformed or image-only PDF must never abort the message's own
// normalization.
func NormalizeAttachments(userID string, m UpstreamMessage) []models.Document {
	if len(m.Attachments) == 0 {
		return nil
	}
	out := make([]models.Document, 0, len(m.Attachments))
	for i, att := range m.Attachments {
		if !strings.HasSuffix(strings.ToLower(att.Filename), ".pdf") {
			continue
		}
		text, err := attachment.ExtractText(att.LocalPath)
		if err != nil {
			log.Printf("email connector: attachment %q on message %s: %v", att.Filename, m.ID, err)
			continue
		}
		if len(text) > maxContentChars {
			text = text[:maxContentChars] + "\n[truncated]"
		}
		out = append(out, models.Document{
			DocumentID: fmt.Sprintf("email_%s_attach_%d", m.ID, i),
			UserID:     userID,
			Source:     models.SourceEmail,
			Type:       models.TypeMessage,
			Content:    text,
			Title:      att.Filename,
			Author:     m.From,
			Timestamp:  time.Unix(m.Timestamp, 0).UTC(),
			Metadata: models.Metadata{
				"type":               "attachment",
				"filename":           att.Filename,
				"parent_document_id": "email_" + m.ID,
				"thread_id":          m.ThreadID,
			},
			NeedsEmbedding: true,
		})
	}
	return out
}

// stripSignature drops everything from the first "-- \n" marker onward, the
// de facto signature-block delimiter (RFC 3676). A marker with no trailing
// newline (signature is the very last line) is also honored.
func stripSignature(content string) string {
	if idx := strings.Index(content, sigMarker); idx >= 0 {
		return content[:idx]
	}
	if idx := strings.Index(content, "\n-- "); idx >= 0 {
		return content[:idx]
	}
	return content
}
