package normalize

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/text/unicode/norm"
)

// Markdown converts the page to markdown, which keeps headings and lists
// visible to the model.
type Markdown struct {
	MaxChars int
	conv     *md.Converter
}

// NewMarkdown builds a markdown normalizer with GitHub-flavored output.
func NewMarkdown(maxChars int) Markdown {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	return Markdown{MaxChars: maxChars, conv: conv}
}

// Normalize implements Normalizer.
func (m Markdown) Normalize(raw, pageURL string) string {
	if m.conv == nil {
		m = NewMarkdown(m.MaxChars)
	}
	out, err := m.conv.ConvertString(StripBlocks(raw))
	if err != nil {
		return Text{MaxChars: m.MaxChars}.Normalize(raw, pageURL)
	}

	lines := strings.Split(norm.NFC.String(out), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(spaceRe.ReplaceAllString(line, " "), " ")
	}
	out = blankLinesRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return Truncate(strings.TrimSpace(out), m.MaxChars)
}
