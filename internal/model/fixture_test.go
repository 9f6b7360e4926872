package model

// completed mirrors modeltest.Completed; modeltest imports this package so
// internal tests cannot use it.
func completed() Publication {
	return Publication{
		URL:            "https://example.nl/publicatie/1",
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
		EmbargoStatus:  DefaultEmbargoStatus,
		Subtype:        "Handreiking",
		LanguageLevel:  "Beleidsmatig",
		Validity:       "Structureel toepasbaar",
		RelevanceScore: 7,
	}
}
