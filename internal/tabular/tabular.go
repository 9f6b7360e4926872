// Package tabular converts publication lists to and from spreadsheet rows.
package tabular

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pubenrich/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts csv or xlsx, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", eris.Errorf("tabular: unsupported format %q (want csv or xlsx)", s)
}

// BaseColumns are always exported, in this order.
var BaseColumns = func() []string {
	cols := []string{"url", "titel", "bron", "datum"}
	for _, f := range model.EnrichmentFields {
		cols = append(cols, string(f))
	}
	return cols
}()

// Columns returns BaseColumns followed by the sorted string-valued Extra
// keys found in pubs.
func Columns(pubs []model.Publication) []string {
	seen := map[string]bool{}
	var extra []string
	for _, p := range pubs {
		for k := range p.Extra {
			if _, ok := p.ExtraString(k); ok && !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(append([]string(nil), BaseColumns...), extra...)
}

// Row renders pub under columns. Takeaways are newline separated; a zero
// relevance score is an empty cell.
func Row(p model.Publication, columns []string) []string {
	row := make([]string, len(columns))
	for i, c := range columns {
		row[i] = cell(p, c)
	}
	return row
}

func cell(p model.Publication, column string) string {
	switch column {
	case "url":
		return p.URL
	case "titel":
		return p.Title
	case "bron":
		return p.Source
	case "datum":
		return p.Date
	}
	switch model.Field(column) {
	case model.FieldTheme:
		return p.Theme
	case model.FieldAuthor:
		return p.Author
	case model.FieldSummary:
		return p.Summary
	case model.FieldType:
		return p.Type
	case model.FieldKeywords:
		return p.Keywords
	case model.FieldAudience:
		return p.Audience
	case model.FieldImpact:
		return p.Impact
	case model.FieldReadTime:
		return p.ReadTime
	case model.FieldTakeaways:
		return strings.Join(p.Takeaways, "\n")
	case model.FieldOneLiner:
		return p.OneLiner
	case model.FieldEmbargoStatus:
		return p.EmbargoStatus
	case model.FieldSubtype:
		return p.Subtype
	case model.FieldLanguageLevel:
		return p.LanguageLevel
	case model.FieldValidity:
		return p.Validity
	case model.FieldRelevanceScore:
		if p.RelevanceScore == 0 {
			return ""
		}
		return strconv.Itoa(p.RelevanceScore)
	}
	s, _ := p.ExtraString(column)
	return s
}

// FromRecord builds a publication from a header and a row of cells. Blank
// cells are omitted; unknown headers land in Extra.
func FromRecord(header, cells []string) (model.Publication, error) {
	obj := make(map[string]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" || i >= len(cells) || strings.TrimSpace(cells[i]) == "" {
			continue
		}
		obj[h] = strings.TrimSpace(cells[i])
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return model.Publication{}, eris.Wrap(err, "tabular: encode row")
	}
	var p model.Publication
	if err := json.Unmarshal(b, &p); err != nil {
		return model.Publication{}, eris.Wrap(err, "tabular: decode row")
	}
	return p, nil
}

// Write renders pubs in format to w.
func Write(w io.Writer, pubs []model.Publication, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, pubs)
	case FormatXLSX:
		return WriteXLSX(w, pubs)
	}
	return eris.Errorf("tabular: unsupported format %q", format)
}
