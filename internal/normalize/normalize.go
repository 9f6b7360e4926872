// Package normalize turns a fetched page into a bounded plain-text excerpt
// for the extraction prompt.
package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
)

// Strategy names a normalization approach.
type Strategy string

const (
	StrategyText        Strategy = "text"
	StrategyReadability Strategy = "readability"
	StrategyMarkdown    Strategy = "markdown"
)

// Normalizer reduces raw page markup to an excerpt of at most its
// configured length in runes.
type Normalizer interface {
	Normalize(raw, pageURL string) string
}

// New returns the normalizer for strategy. An empty strategy means text.
func New(strategy string, maxChars int) (Normalizer, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(strategy))) {
	case "", StrategyText:
		return Text{MaxChars: maxChars}, nil
	case StrategyReadability:
		return Readability{MaxChars: maxChars}, nil
	case StrategyMarkdown:
		return NewMarkdown(maxChars), nil
	}
	return nil, eris.Errorf("normalize: unknown strategy %q", strategy)
}

var (
	scriptRe     = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	styleRe      = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	tagRe        = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe      = regexp.MustCompile(`\s+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// StripBlocks removes script and style elements with their contents.
func StripBlocks(raw string) string {
	raw = scriptRe.ReplaceAllString(raw, " ")
	return styleRe.ReplaceAllString(raw, " ")
}

// CollapseWhitespace replaces whitespace runs with one space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Truncate cuts s to at most n runes. n <= 0 leaves s alone.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// finish applies NFC, whitespace collapse and truncation.
func finish(s string, maxChars int) string {
	return Truncate(CollapseWhitespace(norm.NFC.String(s)), maxChars)
}
