// Package merge folds extraction results into records and unions record
// lists from independent sources.
package merge

import (
	"strings"

	"github.com/sells-group/pubenrich/internal/model"
)

// ApplyExtraction returns pub with each non-empty value of ext written over
// the matching enrichment field. Nil or blank values keep the prior value.
// Identity, provenance and Extra are never touched, and applying the same
// extraction twice yields the same record.
func ApplyExtraction(pub model.Publication, ext *model.Extraction) model.Publication {
	out := pub.Clone()
	if ext == nil {
		return out
	}

	setString(&out.Theme, ext.Theme)
	setString(&out.Author, ext.Author)
	setString(&out.Summary, ext.Summary)
	setString(&out.Type, ext.Type)
	setString(&out.Keywords, ext.Keywords)
	setString(&out.Audience, ext.Audience)
	setString(&out.Impact, ext.Impact)
	setString(&out.ReadTime, ext.ReadTime)
	setString(&out.OneLiner, ext.OneLiner)
	setString(&out.EmbargoStatus, ext.EmbargoStatus)
	setString(&out.Subtype, ext.Subtype)
	setString(&out.LanguageLevel, ext.LanguageLevel)
	setString(&out.Validity, ext.Validity)

	if items := nonBlank(ext.Takeaways); len(items) > 0 {
		out.Takeaways = items
	}
	if ext.RelevanceScore != nil && *ext.RelevanceScore > 0 {
		out.RelevanceScore = *ext.RelevanceScore
	}
	return out
}

// AsExtraction lifts the filled enrichment fields of pub into an
// extraction, so one record's values can be applied onto another.
func AsExtraction(pub model.Publication) *model.Extraction {
	ext := &model.Extraction{
		Theme:         present(pub.Theme),
		Author:        present(pub.Author),
		Summary:       present(pub.Summary),
		Type:          present(pub.Type),
		Keywords:      present(pub.Keywords),
		Audience:      present(pub.Audience),
		Impact:        present(pub.Impact),
		ReadTime:      present(pub.ReadTime),
		OneLiner:      present(pub.OneLiner),
		EmbargoStatus: present(pub.EmbargoStatus),
		Subtype:       present(pub.Subtype),
		LanguageLevel: present(pub.LanguageLevel),
		Validity:      present(pub.Validity),
		Takeaways:     nonBlank(pub.Takeaways),
	}
	if pub.RelevanceScore > 0 {
		ext.RelevanceScore = model.Int(pub.RelevanceScore)
	}
	return ext
}

func setString(dst *string, v *string) {
	if v == nil {
		return
	}
	if s := strings.TrimSpace(*v); s != "" {
		*dst = s
	}
}

func present(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return model.Str(s)
}

func nonBlank(items []string) []string {
	var out []string
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}
