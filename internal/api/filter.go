package api

import (
	"strconv"
	"strings"

	"github.com/sells-group/pubenrich/internal/model"
)

// filter selects publications for GET /publications. Text filters match
// case-insensitively; comma-separated values are alternatives.
type filter struct {
	themes     []string
	types      []string
	sources    []string
	minScore   int
	incomplete *bool
	profile    model.Profile
	query      string
}

func parseFilter(get func(string) string, profile model.Profile) (filter, error) {
	f := filter{
		themes:  splitList(get("theme")),
		types:   splitList(get("type")),
		sources: splitList(get("source")),
		profile: profile,
		query:   strings.ToLower(strings.TrimSpace(get("q"))),
	}
	if v := get("min_score"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 10 {
			return f, errBadParam("min_score")
		}
		f.minScore = n
	}
	if v := get("incomplete"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errBadParam("incomplete")
		}
		f.incomplete = &b
	}
	if v := get("profile"); v != "" {
		p, err := model.ParseProfile(v)
		if err != nil {
			return f, errBadParam("profile")
		}
		f.profile = p
	}
	return f, nil
}

func (f filter) apply(pubs []model.Publication) []model.Publication {
	out := make([]model.Publication, 0, len(pubs))
	for _, p := range pubs {
		if f.match(p) {
			out = append(out, p)
		}
	}
	return out
}

func (f filter) match(p model.Publication) bool {
	if !anyFold(f.themes, p.Theme) || !anyFold(f.types, p.Type) || !anyFold(f.sources, p.Source) {
		return false
	}
	if f.minScore > 0 && p.RelevanceScore < f.minScore {
		return false
	}
	if f.incomplete != nil && p.IsComplete(f.profile) == *f.incomplete {
		return false
	}
	if f.query != "" &&
		!strings.Contains(strings.ToLower(p.Title), f.query) &&
		!strings.Contains(strings.ToLower(p.Summary), f.query) {
		return false
	}
	return true
}

func anyFold(want []string, got string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		if strings.EqualFold(w, strings.TrimSpace(got)) {
			return true
		}
	}
	return false
}
