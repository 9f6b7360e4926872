package model

// Stats summarizes how far a dataset is from complete under a profile.
type Stats struct {
	Profile        Profile       `json:"profile"`
	Total          int           `json:"total"`
	Missing        map[Field]int `json:"missing"`
	Incomplete     int           `json:"incomplete"`
	MissingURL     int           `json:"missing_url"`
	CompletionRate float64       `json:"completion_rate"`
	EstimatedCost  float64       `json:"estimated_cost_usd"`
}

// ComputeStats counts missing enrichment fields across pubs. costPerRecord
// is the operator's per-record spend estimate; zero leaves EstimatedCost
// at zero.
func ComputeStats(pubs []Publication, profile Profile, costPerRecord float64) Stats {
	s := Stats{
		Profile: profile,
		Total:   len(pubs),
		Missing: make(map[Field]int, len(EnrichmentFields)),
	}

	for _, p := range pubs {
		if p.URL == "" {
			s.MissingURL++
		}
		for _, f := range EnrichmentFields {
			if p.IsEmpty(f) {
				s.Missing[f]++
			}
		}
		if !p.IsComplete(profile) {
			s.Incomplete++
		}
	}

	if s.Total > 0 {
		s.CompletionRate = float64(s.Total-s.Incomplete) / float64(s.Total) * 100
	}
	s.EstimatedCost = float64(s.Incomplete) * costPerRecord
	return s
}
