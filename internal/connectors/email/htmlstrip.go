package email

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// StripHTML removes script/style content, drops tags, decodes entities (the
// tokenizer does this for us), and collapses whitespace. No HTML
// sanitization library appears anywhere in the retrieved example pack, so
// this follows golang.org/x/net/html's tokenizer directly rather than
// reaching for an unseen dependency.
func StripHTML(body string) string {
	tok := html.NewTokenizer(strings.NewReader(body))
	var sb strings.Builder
	skipDepth := 0

	for {
		tt := tok.Next()
		switch tt {
		case html.ErrorToken:
			if tok.Err() == io.EOF {
				return collapseWhitespace(sb.String())
			}
			return collapseWhitespace(sb.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			name := tok.Token().Data
			if name == "script" || name == "style" {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if name == "br" || name == "p" || name == "div" {
				sb.WriteByte('\n')
			}
		case html.EndTagToken:
			name := tok.Token().Data
			if name == "script" || name == "style" {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			sb.WriteString(tok.Token().Data)
		}
	}
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
