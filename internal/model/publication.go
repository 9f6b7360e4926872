package model

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Field names an enrichment attribute by its JSON key in the dataset.
type Field string

const (
	FieldTheme          Field = "thema"
	FieldAuthor         Field = "auteur"
	FieldSummary        Field = "samenvatting"
	FieldType           Field = "type"
	FieldKeywords       Field = "keywords"
	FieldAudience       Field = "audience"
	FieldImpact         Field = "impact"
	FieldReadTime       Field = "read_time"
	FieldTakeaways      Field = "takeaways"
	FieldOneLiner       Field = "summary_one_liner"
	FieldEmbargoStatus  Field = "embargo_status"
	FieldSubtype        Field = "subtype"
	FieldLanguageLevel  Field = "language_level"
	FieldValidity       Field = "expiry_or_validity"
	FieldRelevanceScore Field = "relevance_score"
)

// EnrichmentFields lists every field the extraction step may write, in
// prompt order.
var EnrichmentFields = []Field{
	FieldTheme, FieldAuthor, FieldSummary, FieldType,
	FieldKeywords, FieldAudience, FieldImpact, FieldReadTime, FieldTakeaways,
	FieldOneLiner, FieldEmbargoStatus, FieldSubtype, FieldLanguageLevel,
	FieldValidity, FieldRelevanceScore,
}

// knownKeys are the JSON keys owned by Publication. Anything else is kept in
// Extra so upstream attributes survive a load/save cycle.
var knownKeys = map[string]bool{
	"url": true, "titel": true, "bron": true, "datum": true,
}

func init() {
	for _, f := range EnrichmentFields {
		knownKeys[string(f)] = true
	}
}

// Publication is one harvested publication record, the unit of enrichment.
type Publication struct {
	URL    string `json:"url"`
	Title  string `json:"titel"`
	Source string `json:"bron"`
	Date   string `json:"datum"`

	Theme   string `json:"thema"`
	Author  string `json:"auteur"`
	Summary string `json:"samenvatting"`
	Type    string `json:"type"`

	Keywords       string   `json:"keywords,omitempty"`
	Audience       string   `json:"audience,omitempty"`
	Impact         string   `json:"impact,omitempty"`
	ReadTime       string   `json:"read_time,omitempty"`
	Takeaways      []string `json:"takeaways,omitempty"`
	OneLiner       string   `json:"summary_one_liner,omitempty"`
	EmbargoStatus  string   `json:"embargo_status,omitempty"`
	Subtype        string   `json:"subtype,omitempty"`
	LanguageLevel  string   `json:"language_level,omitempty"`
	Validity       string   `json:"expiry_or_validity,omitempty"`
	RelevanceScore int      `json:"relevance_score,omitempty"`

	// Extra holds upstream keys this pipeline does not interpret.
	Extra map[string]json.RawMessage `json:"-"`
}

// publicationAlias drops the custom (un)marshalers to avoid recursion.
type publicationAlias Publication

// UnmarshalJSON decodes the known fields and stashes the rest in Extra.
// relevance_score is accepted as a number or numeric string; text fields
// also accept numbers, booleans and lists of scalars.
func (p *Publication) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: decode publication")
	}

	score, hasScore := raw[string(FieldRelevanceScore)]
	delete(raw, string(FieldRelevanceScore))

	known := make(map[string]json.RawMessage, len(raw))
	extra := make(map[string]json.RawMessage)
	for k, v := range raw {
		if knownKeys[k] {
			known[k] = v
		} else {
			extra[k] = v
		}
	}

	// Tolerate null and mixed-type values written by earlier tooling.
	for k, v := range known {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			delete(known, k)
		}
	}
	for k, v := range known {
		if k == string(FieldTakeaways) {
			continue
		}
		if s, ok := looseString(v); ok {
			b, _ := json.Marshal(s)
			known[k] = b
		}
	}
	if tk, ok := known[string(FieldTakeaways)]; ok {
		var s string
		if json.Unmarshal(tk, &s) == nil {
			lines := SplitTakeaways(s)
			b, _ := json.Marshal(lines)
			known[string(FieldTakeaways)] = b
		}
	}

	buf, err := json.Marshal(known)
	if err != nil {
		return eris.Wrap(err, "model: re-encode publication")
	}
	var a publicationAlias
	if err := json.Unmarshal(buf, &a); err != nil {
		return eris.Wrap(err, "model: decode publication fields")
	}

	if hasScore {
		n, ok := ParseScore(score)
		if ok {
			a.RelevanceScore = n
		}
	}

	*p = Publication(a)
	if len(extra) > 0 {
		p.Extra = extra
	}
	return nil
}

// looseString renders a non-string scalar or a list of scalars as text, so
// keywords ["a","b"] becomes "a, b" and read_time 5 becomes "5". Strings and
// values it cannot render report false.
func looseString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"', '{':
		return "", false
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return "", false
		}
		parts := make([]string, 0, len(items))
		for _, it := range items {
			var s string
			if json.Unmarshal(it, &s) == nil {
				s = strings.TrimSpace(s)
			} else if text, ok := looseString(it); ok && !bytes.HasPrefix(bytes.TrimSpace(it), []byte("[")) {
				s = text
			} else {
				return "", false
			}
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return "true", true
		}
		return "false", true
	}
	return "", false
}

// MarshalJSON encodes the known fields followed by Extra keys in sorted
// order. HTML characters are not escaped.
func (p Publication) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(publicationAlias(p)); err != nil {
		return nil, eris.Wrap(err, "model: encode publication")
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	if len(p.Extra) == 0 {
		return out, nil
	}

	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		if !knownKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	res := make([]byte, 0, len(out)+64*len(keys))
	res = append(res, out[:len(out)-1]...)
	for _, k := range keys {
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, eris.Wrap(err, "model: encode extra key")
		}
		res = append(res, ',')
		res = append(res, kb...)
		res = append(res, ':')
		res = append(res, p.Extra[k]...)
	}
	res = append(res, '}')
	return res, nil
}

// ExtraString returns an upstream attribute as a string when it is one.
func (p Publication) ExtraString(key string) (string, bool) {
	raw, ok := p.Extra[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Clone returns a deep copy; Takeaways and Extra are not shared.
func (p Publication) Clone() Publication {
	c := p
	if p.Takeaways != nil {
		c.Takeaways = append([]string(nil), p.Takeaways...)
	}
	if p.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

// IsEmpty reports whether field f is missing using falsy semantics: blank
// string, empty list and zero score all count as missing.
func (p Publication) IsEmpty(f Field) bool {
	switch f {
	case FieldTheme:
		return blank(p.Theme)
	case FieldAuthor:
		return blank(p.Author)
	case FieldSummary:
		return blank(p.Summary)
	case FieldType:
		return blank(p.Type)
	case FieldKeywords:
		return blank(p.Keywords)
	case FieldAudience:
		return blank(p.Audience)
	case FieldImpact:
		return blank(p.Impact)
	case FieldReadTime:
		return blank(p.ReadTime)
	case FieldTakeaways:
		for _, t := range p.Takeaways {
			if !blank(t) {
				return false
			}
		}
		return true
	case FieldOneLiner:
		return blank(p.OneLiner)
	case FieldEmbargoStatus:
		return blank(p.EmbargoStatus)
	case FieldSubtype:
		return blank(p.Subtype)
	case FieldLanguageLevel:
		return blank(p.LanguageLevel)
	case FieldValidity:
		return blank(p.Validity)
	case FieldRelevanceScore:
		return p.RelevanceScore == 0
	default:
		return true
	}
}

// MissingFields returns the required fields of profile that are empty.
func (p Publication) MissingFields(profile Profile) []Field {
	var missing []Field
	for _, f := range profile.RequiredFields() {
		if p.IsEmpty(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// IsComplete reports whether every required field of profile is filled.
func (p Publication) IsComplete(profile Profile) bool {
	for _, f := range profile.RequiredFields() {
		if p.IsEmpty(f) {
			return false
		}
	}
	return true
}

// CompletedCount returns how many enrichment fields carry a value. Used to
// rank colliding records during dedup.
func (p Publication) CompletedCount() int {
	n := 0
	for _, f := range EnrichmentFields {
		if !p.IsEmpty(f) {
			n++
		}
	}
	return n
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// SplitTakeaways turns a bulleted or line-separated block into items.
func SplitTakeaways(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
