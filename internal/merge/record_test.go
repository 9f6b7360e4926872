package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/pubenrich/internal/model"
	"github.com/sells-group/pubenrich/internal/model/modeltest"
)

func TestApplyExtraction_FillsEmptyRecord(t *testing.T) {
	t.Parallel()

	pub := model.Publication{URL: "https://x/y", Title: "T"}
	ext := &model.Extraction{
		Theme:   model.Str("Handhaving"),
		Author:  model.Str("J. Doe"),
		Summary: model.Str("Een samenvatting."),
	}

	got := ApplyExtraction(pub, ext)
	assert.Equal(t, "Handhaving", got.Theme)
	assert.Equal(t, "J. Doe", got.Author)
	assert.Equal(t, "Een samenvatting.", got.Summary)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "https://x/y", got.URL)
	assert.True(t, got.IsComplete(model.ProfileBasic))
	assert.Empty(t, pub.Theme, "input must not be mutated")
}

func TestApplyExtraction_EmptyValuesKeepPrior(t *testing.T) {
	t.Parallel()

	pub := modeltest.Completed()
	ext := &model.Extraction{
		Theme:     model.Str("  "),
		Author:    nil,
		Takeaways: []string{"", " "},
	}

	assert.Equal(t, pub, ApplyExtraction(pub, ext))
	assert.Equal(t, pub, ApplyExtraction(pub, &model.Extraction{}))
	assert.Equal(t, pub, ApplyExtraction(pub, nil))
}

func TestApplyExtraction_OverwritesExisting(t *testing.T) {
	t.Parallel()

	pub := modeltest.Completed()
	got := ApplyExtraction(pub, &model.Extraction{
		Theme:          model.Str("Omgevingsrecht"),
		Takeaways:      []string{"nieuw"},
		RelevanceScore: model.Int(9),
	})
	assert.Equal(t, "Omgevingsrecht", got.Theme)
	assert.Equal(t, []string{"nieuw"}, got.Takeaways)
	assert.Equal(t, 9, got.RelevanceScore)
	assert.Equal(t, pub.Author, got.Author)
}

func TestApplyExtraction_NeverTouchesProvenance(t *testing.T) {
	t.Parallel()

	pub := model.Publication{URL: "u", Title: "T", Source: "VNG", Date: "2024-01-01"}
	got := ApplyExtraction(pub, AsExtraction(modeltest.Completed()))
	assert.Equal(t, "u", got.URL)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "VNG", got.Source)
	assert.Equal(t, "2024-01-01", got.Date)
	assert.True(t, got.IsComplete(model.ProfileExtended))
}

func TestApplyExtraction_Idempotent(t *testing.T) {
	t.Parallel()

	pub := model.Publication{URL: "u", Theme: "Oud"}
	ext := &model.Extraction{Theme: model.Str(" Handhaving "), Keywords: model.Str("a, b"), RelevanceScore: model.Int(4)}

	once := ApplyExtraction(pub, ext)
	twice := ApplyExtraction(once, ext)
	assert.Equal(t, once, twice)
	assert.Equal(t, "Handhaving", once.Theme)
}

func TestAsExtraction_SkipsEmpty(t *testing.T) {
	t.Parallel()

	ext := AsExtraction(model.Publication{URL: "u", Theme: "Handhaving"})
	assert.Equal(t, "Handhaving", *ext.Theme)
	assert.Nil(t, ext.Author)
	assert.Nil(t, ext.RelevanceScore)
	assert.Nil(t, ext.Takeaways)
}
