package extract

import (
	"fmt"

	"github.com/sells-group/pubenrich/internal/model"
	"github.com/sells-group/pubenrich/internal/taxonomy"
)

// Validate enforces field-level rules on ext in place and returns what it
// rejected or adjusted:
//   - theme and type must map onto the taxonomy (when clampVocab is set);
//     a value that does not is dropped so the record keeps its prior value
//   - relevance_score is clamped to [1,10]
//   - in the extended profile a missing score or embargo status gets its
//     neutral default, unless pub already has a value
func Validate(ext *model.Extraction, pub model.Publication, tax taxonomy.Taxonomy, profile model.Profile, clampVocab bool) []FieldError {
	var issues []FieldError

	if clampVocab {
		if ext.Theme != nil {
			if canon, ok := tax.MatchTheme(*ext.Theme); ok {
				ext.Theme = &canon
			} else {
				issues = append(issues, FieldError{model.FieldTheme, fmt.Sprintf("%q not in theme vocabulary", *ext.Theme)})
				ext.Theme = nil
			}
		}
		if ext.Type != nil {
			if canon, ok := tax.MatchType(*ext.Type); ok {
				ext.Type = &canon
			} else {
				issues = append(issues, FieldError{model.FieldType, fmt.Sprintf("%q not in type vocabulary", *ext.Type)})
				ext.Type = nil
			}
		}
	}

	if ext.RelevanceScore != nil {
		if clamped := model.ClampScore(*ext.RelevanceScore); clamped != *ext.RelevanceScore {
			issues = append(issues, FieldError{model.FieldRelevanceScore, fmt.Sprintf("%d clamped to %d", *ext.RelevanceScore, clamped)})
			ext.RelevanceScore = &clamped
		}
	}

	if profile.Extended() {
		if ext.RelevanceScore == nil && pub.RelevanceScore == 0 {
			ext.RelevanceScore = model.Int(model.DefaultRelevanceScore)
		}
		if ext.EmbargoStatus == nil && pub.IsEmpty(model.FieldEmbargoStatus) {
			ext.EmbargoStatus = model.Str(model.DefaultEmbargoStatus)
		}
	}
	return issues
}
