package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pubenrich/internal/model"
)

// ErrNoJSON means the completion text held no decodable JSON object.
var ErrNoJSON = eris.New("extract: no JSON object in model output")

// FindObject returns the first balanced {...} span in text. Braces inside
// JSON strings are ignored. If no balanced span exists it falls back to the
// widest first-'{' to last-'}' span.
func FindObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end := balancedEnd(text, start); end > start {
			return text[start : end+1], true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	first := strings.IndexByte(text, '{')
	last := strings.LastIndexByte(text, '}')
	if first >= 0 && last > first {
		return text[first : last+1], true
	}
	return "", false
}

// balancedEnd returns the index of the brace closing the one at start, or
// -1 if the text ends first.
func balancedEnd(text string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// FieldError records a field whose value did not match the schema.
type FieldError struct {
	Field  model.Field
	Reason string
}

// Decode parses completion text into an Extraction. Only keys from the
// profile's contract are read. A key with the wrong JSON type is dropped
// and reported; the rest of the object still counts.
func Decode(text string, profile model.Profile) (*model.Extraction, []FieldError, error) {
	span, ok := FindObject(text)
	if !ok {
		return nil, nil, ErrNoJSON
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, nil, eris.Wrapf(ErrNoJSON, "decode: %v", err)
	}

	ext := &model.Extraction{}
	var issues []FieldError
	reject := func(f model.Field, reason string) {
		issues = append(issues, FieldError{Field: f, Reason: reason})
	}

	for _, f := range ContractFields(profile) {
		raw, present := obj[string(f)]
		if !present || isNull(raw) {
			continue
		}

		switch f {
		case model.FieldTakeaways:
			items, err := decodeList(raw, false)
			if err != nil {
				reject(f, err.Error())
				continue
			}
			ext.Takeaways = items
		case model.FieldKeywords:
			// Models return keywords as either a comma string or a list.
			items, err := decodeList(raw, true)
			if err != nil {
				reject(f, err.Error())
				continue
			}
			if len(items) > 0 {
				ext.Keywords = model.Str(strings.Join(items, ", "))
			}
		case model.FieldRelevanceScore:
			n, ok := model.ParseScore(raw)
			if !ok {
				reject(f, "not a number: "+string(raw))
				continue
			}
			ext.RelevanceScore = model.Int(n)
		default:
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				reject(f, "not a string")
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				*stringField(ext, f) = &s
			}
		}
	}
	return ext, issues, nil
}

// decodeList accepts a JSON array of strings or a single string. A string
// is split on newlines, and on commas when commas is set.
func decodeList(raw json.RawMessage, commas bool) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, s := range list {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, eris.New("not a string or list of strings")
	}
	if strings.Contains(s, "\n") || !commas {
		return model.SplitTakeaways(s), nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// stringField returns the address of the string pointer backing f.
func stringField(ext *model.Extraction, f model.Field) **string {
	switch f {
	case model.FieldTheme:
		return &ext.Theme
	case model.FieldAuthor:
		return &ext.Author
	case model.FieldSummary:
		return &ext.Summary
	case model.FieldType:
		return &ext.Type
	case model.FieldAudience:
		return &ext.Audience
	case model.FieldImpact:
		return &ext.Impact
	case model.FieldReadTime:
		return &ext.ReadTime
	case model.FieldOneLiner:
		return &ext.OneLiner
	case model.FieldEmbargoStatus:
		return &ext.EmbargoStatus
	case model.FieldSubtype:
		return &ext.Subtype
	case model.FieldLanguageLevel:
		return &ext.LanguageLevel
	case model.FieldValidity:
		return &ext.Validity
	}
	var discard *string
	return &discard
}
