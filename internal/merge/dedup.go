package merge

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sells-group/pubenrich/internal/dataset"
	"github.com/sells-group/pubenrich/internal/model"
	"github.com/sells-group/pubenrich/internal/tabular"
)

// Policy decides how two records with the same url are combined.
type Policy string

const (
	// PolicyLast keeps only the last record seen for a url. The result
	// depends only on the last list containing that url.
	PolicyLast Policy = "last"
	// PolicyFill lets the later record win but fills its empty enrichment
	// fields from the earlier ones. Which earlier value fills a gap depends
	// on source order.
	PolicyFill Policy = "fill"
)

// ParsePolicy accepts "last" (default when empty) or "fill".
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyLast:
		return PolicyLast, nil
	case PolicyFill:
		return PolicyFill, nil
	}
	return "", eris.Errorf("merge: unknown policy %q (want last or fill)", s)
}

// MergeSources concatenates lists in order and folds them by url. Records
// without a url are dropped. The output keeps the order in which each url
// was first seen; the record stored for a url is decided by policy.
func MergeSources(lists [][]model.Publication, policy Policy) []model.Publication {
	index := make(map[string]int)
	var out []model.Publication
	dropped := 0

	for _, list := range lists {
		for _, p := range list {
			key := strings.TrimSpace(p.URL)
			if key == "" {
				dropped++
				continue
			}
			i, seen := index[key]
			if !seen {
				index[key] = len(out)
				out = append(out, p.Clone())
				continue
			}
			prev := out[i]
			if policy == PolicyLast && p.CompletedCount() < prev.CompletedCount() {
				zap.L().Warn("merge: later record is less complete than the one it replaces",
					zap.String("url", key),
					zap.Int("earlier_fields", prev.CompletedCount()),
					zap.Int("later_fields", p.CompletedCount()),
				)
			}
			out[i] = combine(prev, p, policy)
		}
	}

	if dropped > 0 {
		zap.L().Info("merge: dropped records without url", zap.Int("count", dropped))
	}
	return out
}

func combine(earlier, later model.Publication, policy Policy) model.Publication {
	if policy == PolicyLast {
		return later.Clone()
	}
	base := earlier.Clone()
	base.URL = later.URL
	base.Title = later.Title
	base.Source = later.Source
	base.Date = later.Date
	base.Extra = mergeExtra(earlier.Extra, later.Extra)
	return ApplyExtraction(base, AsExtraction(later))
}

func mergeExtra(earlier, later map[string]json.RawMessage) map[string]json.RawMessage {
	if len(earlier) == 0 && len(later) == 0 {
		return nil
	}
	out := make(map[string]json.RawMessage, len(earlier)+len(later))
	for k, v := range earlier {
		out[k] = append(json.RawMessage(nil), v...)
	}
	for k, v := range later {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// ExpandSources resolves doublestar patterns into file paths, keeping
// argument order. Matches of one pattern are sorted. Plain paths pass
// through unchanged so the loader can report them as missing.
func ExpandSources(patterns []string) ([]string, error) {
	var paths []string
	for _, pat := range patterns {
		if !strings.ContainsAny(pat, "*?[{") {
			paths = append(paths, pat)
			continue
		}
		matches, err := doublestar.FilepathGlob(pat)
		if err != nil {
			return nil, eris.Wrapf(err, "merge: glob %s", pat)
		}
		if len(matches) == 0 {
			zap.L().Warn("merge: pattern matched no files", zap.String("pattern", pat))
			continue
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	return paths, nil
}

// LoadSources loads each source file in order. JSON arrays and .xlsx
// workbooks are accepted. A missing file is logged and contributes an empty
// list; an unreadable or malformed file is an error.
func LoadSources(store *dataset.Store, paths []string) ([][]model.Publication, error) {
	lists := make([][]model.Publication, 0, len(paths))
	for _, path := range paths {
		if ok, _ := afero.Exists(store.Fs(), path); !ok {
			zap.L().Warn("merge: source file not found, treating as empty", zap.String("path", path))
			lists = append(lists, nil)
			continue
		}
		pubs, err := loadSource(store, path)
		if err != nil {
			return nil, eris.Wrapf(err, "merge: load source %s", path)
		}
		zap.L().Info("merge: loaded source", zap.String("path", path), zap.Int("records", len(pubs)))
		lists = append(lists, pubs)
	}
	return lists, nil
}

func loadSource(store *dataset.Store, path string) ([]model.Publication, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return tabular.ReadXLSX(path, "")
	}
	return store.Load(path)
}

// FilterByField keeps the records whose upstream attribute field equals
// value. Known fields (bron, type, thema) are compared directly; anything
// else is looked up in Extra.
func FilterByField(pubs []model.Publication, field, value string) []model.Publication {
	var out []model.Publication
	for _, p := range pubs {
		if fieldValue(p, field) == value {
			out = append(out, p)
		}
	}
	return out
}

func fieldValue(p model.Publication, field string) string {
	switch field {
	case "url":
		return p.URL
	case "titel":
		return p.Title
	case "bron":
		return p.Source
	case "datum":
		return p.Date
	case string(model.FieldTheme):
		return p.Theme
	case string(model.FieldType):
		return p.Type
	case string(model.FieldAuthor):
		return p.Author
	}
	s, _ := p.ExtraString(field)
	return s
}
