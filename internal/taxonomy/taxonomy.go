// Package taxonomy loads the closed theme and type vocabularies and maps
// free-form model output onto them.
package taxonomy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// DefaultMaxDistance is the edit distance tolerated by fuzzy matching.
const DefaultMaxDistance = 2

// FallbackThemes is used when the theme artifact cannot be read.
func FallbackThemes() []string {
	return []string{"Algemene beginselen van behoorlijk bestuur", "Handhaving", "Omgevingsrecht"}
}

// FallbackTypes is used when the type artifact cannot be read.
func FallbackTypes() []string {
	return []string{"Blog", "Handreiking"}
}

// Taxonomy holds the two vocabularies offered to the model.
type Taxonomy struct {
	Themes []string
	Types  []string

	// MaxDistance bounds fuzzy matches. Zero disables them.
	MaxDistance int
}

// Load reads both artifacts. It never fails: a missing or broken artifact
// is replaced by its fallback list.
func Load(themesPath, typesPath string) Taxonomy {
	return Taxonomy{
		Themes:      LoadThemes(themesPath),
		Types:       LoadTypes(typesPath),
		MaxDistance: DefaultMaxDistance,
	}
}

// LoadThemes reads {"themes": [...]} from path.
func LoadThemes(path string) []string {
	var doc struct {
		Themes []string `json:"themes" yaml:"themes"`
	}
	if err := readDoc(path, &doc); err != nil {
		zap.L().Warn("taxonomy: using fallback themes", zap.String("path", path), zap.Error(err))
		return FallbackThemes()
	}
	if vocab := clean(doc.Themes); len(vocab) > 0 {
		return vocab
	}
	zap.L().Warn("taxonomy: theme list empty, using fallback", zap.String("path", path))
	return FallbackThemes()
}

// LoadTypes reads {"types": [...]} from path.
func LoadTypes(path string) []string {
	var doc struct {
		Types []string `json:"types" yaml:"types"`
	}
	if err := readDoc(path, &doc); err != nil {
		zap.L().Warn("taxonomy: using fallback types", zap.String("path", path), zap.Error(err))
		return FallbackTypes()
	}
	if vocab := clean(doc.Types); len(vocab) > 0 {
		return vocab
	}
	zap.L().Warn("taxonomy: type list empty, using fallback", zap.String("path", path))
	return FallbackTypes()
}

// readDoc decodes YAML for .yaml/.yml paths and JSON otherwise.
func readDoc(path string, out any) error {
	if path == "" {
		return eris.New("taxonomy: empty path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "taxonomy: read %s", path)
	}
	unmarshal := json.Unmarshal
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	}
	if err := unmarshal(data, out); err != nil {
		return eris.Wrapf(err, "taxonomy: parse %s", path)
	}
	return nil
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// MatchTheme maps value onto the theme vocabulary.
func (t Taxonomy) MatchTheme(value string) (string, bool) {
	return match(t.Themes, value, t.MaxDistance)
}

// MatchType maps value onto the type vocabulary.
func (t Taxonomy) MatchType(value string) (string, bool) {
	return match(t.Types, value, t.MaxDistance)
}

// match tries an exact hit, then a case and diacritic insensitive hit, then
// the closest entry within maxDist edits. Ties go to the earlier entry.
func match(vocab []string, value string, maxDist int) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	for _, v := range vocab {
		if v == value {
			return v, true
		}
	}

	key := fold(value)
	for _, v := range vocab {
		if fold(v) == key {
			return v, true
		}
	}

	if maxDist <= 0 {
		return "", false
	}
	best, bestDist := "", maxDist+1
	for _, v := range vocab {
		if d := levenshtein.Distance(key, fold(v), nil); d < bestDist {
			best, bestDist = v, d
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// fold lowercases, strips diacritics and collapses whitespace.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}
