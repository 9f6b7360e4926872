// Package modeltest holds publication fixtures shared by tests.
package modeltest

import "github.com/sells-group/pubenrich/internal/model"

// Completed returns a publication with every enrichment field filled.
func Completed() model.Publication {
	return model.Publication{
		URL:            "https://example.nl/publicatie/1",
		Title:          "Handreiking handhaving",
		Source:         "VNG",
		Date:           "2024-03-01",
		Theme:          "Handhaving",
		Author:         "VNG",
		Summary:        "Een samenvatting.",
		Type:           "Handreiking",
		Keywords:       "handhaving, toezicht",
		Audience:       "Gemeenten",
		Impact:         "Hoog voor toezichthouders",
		ReadTime:       "5 min",
		Takeaways:      []string{"Punt een", "Punt twee"},
		OneLiner:       "Handreiking over handhaving.",
		EmbargoStatus:  model.DefaultEmbargoStatus,
		Subtype:        "Handreiking",
		LanguageLevel:  "Beleidsmatig",
		Validity:       "Structureel toepasbaar",
		RelevanceScore: 7,
	}
}
