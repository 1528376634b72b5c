package attachment

import (
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/corvid-labs/corpusmind/internal/apperrors"
	"github.com/corvid-labs/corpusmind/internal/util"
)

// ExtractText pulls plain text out of a PDF email attachment written to
// path, the same extraction call the ingestion pipeline uses for uploaded
// documents, repurposed here for attachments discovered during an email
// sync instead of a direct upload.
func ExtractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", err
	}
	text := util.SanitizeText(strings.TrimSpace(buf.String()))
	if text == "" {
		return "", apperrors.ErrNoExtractable
	}
	return text, nil
}
