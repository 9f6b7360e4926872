package normalize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Text extracts the visible text of a page.
type Text struct {
	MaxChars int
}

// Normalize implements Normalizer.
func (t Text) Normalize(raw, _ string) string {
	return finish(PlainText(raw), t.MaxChars)
}

// PlainText returns the text content of raw markup with script and style
// removed. Unparseable input falls back to a regex tag strip.
func PlainText(raw string) string {
	raw = StripBlocks(raw)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return html.UnescapeString(tagRe.ReplaceAllString(raw, " "))
	}
	doc.Find("script, style, noscript, template, svg").Remove()

	var sb strings.Builder
	for _, n := range doc.Nodes {
		collectText(&sb, n)
	}
	return sb.String()
}

// collectText writes text nodes separated by spaces so adjacent block
// elements do not run together.
func collectText(sb *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(sb, c)
	}
}
