package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_JSON(t *testing.T) {
	themes := writeFile(t, "themes.json", `{"themes":["Omgevingsrecht","Wob/Woo"," ","Omgevingsrecht"]}`)
	types := writeFile(t, "types.json", `{"types":["Artikel","Blog"]}`)

	tx := Load(themes, types)
	assert.Equal(t, []string{"Omgevingsrecht", "Wob/Woo"}, tx.Themes)
	assert.Equal(t, []string{"Artikel", "Blog"}, tx.Types)
	assert.Equal(t, DefaultMaxDistance, tx.MaxDistance)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "themes.yaml", "themes:\n  - Handhaving\n  - Privacy\n")
	assert.Equal(t, []string{"Handhaving", "Privacy"}, LoadThemes(path))
}

func TestLoad_Fallbacks(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.json")
	broken := writeFile(t, "broken.json", `{"themes": [`)
	empty := writeFile(t, "empty.json", `{"types": []}`)

	assert.Equal(t, FallbackThemes(), LoadThemes(missing))
	assert.Equal(t, FallbackThemes(), LoadThemes(broken))
	assert.Equal(t, FallbackTypes(), LoadTypes(empty))
	assert.Equal(t, FallbackTypes(), LoadTypes(""))
}

func TestMatch(t *testing.T) {
	tx := Taxonomy{
		Themes:      []string{"Algemene beginselen van behoorlijk bestuur", "Handhaving", "Omgevingsrecht", "Privacy"},
		Types:       []string{"Blog", "Handreiking"},
		MaxDistance: 2,
	}

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Handhaving", "Handhaving", true},
		{"  handhaving ", "Handhaving", true},
		{"OMGEVINGSRECHT", "Omgevingsrecht", true},
		{"Omgevingsrcht", "Omgevingsrecht", true},
		{"Privacyy", "Privacy", true},
		{"algemene  beginselen van behoorlijk bestuur", "Algemene beginselen van behoorlijk bestuur", true},
		{"Belastingrecht", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := tx.MatchTheme(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	got, ok := tx.MatchType("handreiking")
	assert.True(t, ok)
	assert.Equal(t, "Handreiking", got)
}

func TestMatch_Diacritics(t *testing.T) {
	tx := Taxonomy{Types: []string{"Analyse", "Notitie"}}
	got, ok := tx.MatchType("Notítie")
	assert.True(t, ok)
	assert.Equal(t, "Notitie", got)
}

func TestMatch_FuzzyDisabled(t *testing.T) {
	tx := Taxonomy{Types: []string{"Blog"}, MaxDistance: 0}
	_, ok := tx.MatchType("Blogg")
	assert.False(t, ok)
}
