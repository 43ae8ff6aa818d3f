package listing

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExcerptLength is the number of runes kept in a post preview.
const ExcerptLength = 200

// Excerpt converts feed HTML to whitespace-normalized text truncated to n
// runes. Content that does not parse as HTML is used as is.
func Excerpt(content string, n int) string {
	text := content
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(content)); err == nil {
		doc.Find("script, style, noscript").Remove()
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if n <= 0 || len(runes) <= n {
		return text
	}
	return strings.TrimRight(string(runes[:n]), " ") + "…"
}
