package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/pubenrich/internal/model"
)

func TestBuildPrompt_Basic(t *testing.T) {
	pub := model.Publication{URL: "https://x/y", Title: "Titel T", Date: "2024-01-01", Source: "VNG", Type: "Blog"}
	p := BuildPrompt(pub, "De pagina tekst.", testTaxonomy(), model.ProfileBasic)

	assert.Contains(t, p, "Titel: Titel T")
	assert.Contains(t, p, "URL: https://x/y")
	assert.Contains(t, p, "Bron: VNG")
	assert.Contains(t, p, "De pagina tekst.")
	assert.Contains(t, p, "Algemene beginselen van behoorlijk bestuur, Handhaving, Omgevingsrecht")
	assert.Contains(t, p, "Blog, Handreiking")
	assert.Contains(t, p, `"samenvatting"`)
	assert.NotContains(t, p, `"relevance_score"`)
	assert.Equal(t, 4, strings.Count(p, `": "`))
}

func TestBuildPrompt_Extended(t *testing.T) {
	p := BuildPrompt(model.Publication{URL: "u"}, "x", testTaxonomy(), model.ProfileExtended)
	for _, f := range model.EnrichmentFields {
		assert.Contains(t, p, `"`+string(f)+`":`, f)
	}
	assert.Contains(t, p, "15. RELEVANCE_SCORE")
	assert.Contains(t, p, model.DefaultEmbargoStatus)
}

func TestSystemPrompt(t *testing.T) {
	assert.Equal(t, DefaultSystemPrompt, SystemPrompt(model.ProfileBasic, ""))
	assert.True(t, strings.HasPrefix(SystemPrompt(model.ProfileExtended, ""), DefaultSystemPrompt))
	assert.Equal(t, "custom", SystemPrompt(model.ProfileExtended, "custom"))
}

func TestContractFields(t *testing.T) {
	assert.Equal(t, []model.Field{model.FieldTheme, model.FieldAuthor, model.FieldSummary, model.FieldType}, ContractFields(model.ProfileBasic))
	assert.Len(t, ContractFields(model.ProfileExtended), 15)
}
