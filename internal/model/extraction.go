package model

// Extraction is the transient result of one extraction call. A nil field
// means the model omitted it or validation rejected it; the record keeps its
// prior value for that field.
type Extraction struct {
	Theme   *string
	Author  *string
	Summary *string
	Type    *string

	Keywords       *string
	Audience       *string
	Impact         *string
	ReadTime       *string
	Takeaways      []string
	OneLiner       *string
	EmbargoStatus  *string
	Subtype        *string
	LanguageLevel  *string
	Validity       *string
	RelevanceScore *int
}

// IsZero reports whether the extraction carries no values at all.
func (e Extraction) IsZero() bool {
	return e.Theme == nil && e.Author == nil && e.Summary == nil && e.Type == nil &&
		e.Keywords == nil && e.Audience == nil && e.Impact == nil && e.ReadTime == nil &&
		len(e.Takeaways) == 0 && e.OneLiner == nil && e.EmbargoStatus == nil &&
		e.Subtype == nil && e.LanguageLevel == nil && e.Validity == nil &&
		e.RelevanceScore == nil
}

// TokenUsage tracks token consumption for completion calls.
type TokenUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.Cost += other.Cost
}

// Str returns a pointer to s. Handy for building extractions in code.
func Str(s string) *string { return &s }

// Int returns a pointer to n.
func Int(n int) *int { return &n }
