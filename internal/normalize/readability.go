package normalize

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

// Readability keeps only the main article content, falling back to Text
// when no article can be found.
type Readability struct {
	MaxChars int
}

// Normalize implements Normalizer.
func (r Readability) Normalize(raw, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(raw), u)
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		zap.L().Debug("normalize: readability found no article, using text", zap.String("url", pageURL), zap.Error(err))
		return Text(r).Normalize(raw, pageURL)
	}
	return finish(article.TextContent, r.MaxChars)
}
