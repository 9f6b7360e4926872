package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Profile selects which enrichment fields a run requires and extracts.
type Profile string

const (
	ProfileBasic    Profile = "basic"
	ProfileExtended Profile = "extended"
)

const (
	MinRelevanceScore     = 1
	MaxRelevanceScore     = 10
	DefaultRelevanceScore = 5

	// DefaultEmbargoStatus is stored when the model finds no embargo notice.
	DefaultEmbargoStatus = "Geen embargo"
)

var basicRequired = []Field{FieldTheme, FieldAuthor, FieldSummary}

var extendedRequired = []Field{
	FieldTheme, FieldAuthor, FieldSummary,
	FieldKeywords, FieldAudience, FieldImpact, FieldReadTime, FieldTakeaways,
	FieldOneLiner, FieldEmbargoStatus, FieldSubtype, FieldLanguageLevel,
	FieldValidity, FieldRelevanceScore,
}

// ParseProfile validates a profile name. Empty means basic.
func ParseProfile(s string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProfileBasic:
		return ProfileBasic, nil
	case ProfileExtended:
		return ProfileExtended, nil
	default:
		return "", eris.Errorf("model: unknown profile %q (want basic or extended)", s)
	}
}

// RequiredFields returns the fields that must be non-empty for a record to
// count as complete under p. The type field is extracted but never required.
func (p Profile) RequiredFields() []Field {
	if p == ProfileExtended {
		return extendedRequired
	}
	return basicRequired
}

// Extended reports whether p requests the extended field set.
func (p Profile) Extended() bool {
	return p == ProfileExtended
}

// ProfileDefaults are the per-profile tuning values used when configuration
// leaves them unset.
type ProfileDefaults struct {
	MaxExcerptChars int
	MaxTokens       int64
	Interval        time.Duration
	CheckpointEvery int
}

// Defaults returns the tuning values for p.
func (p Profile) Defaults() ProfileDefaults {
	if p == ProfileExtended {
		return ProfileDefaults{
			MaxExcerptChars: 12000,
			MaxTokens:       2000,
			Interval:        3 * time.Second,
			CheckpointEvery: 5,
		}
	}
	return ProfileDefaults{
		MaxExcerptChars: 8000,
		MaxTokens:       1500,
		Interval:        2 * time.Second,
		CheckpointEvery: 10,
	}
}

// ParseScore reads a relevance score from a JSON number or numeric string.
// Fractions are rounded.
func ParseScore(raw json.RawMessage) (int, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(math.Round(f)), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "/"); i > 0 {
		s = strings.TrimSpace(s[:i]) // "8/10"
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return int(math.Round(f)), true
}

// ClampScore bounds n to the 1–10 relevance range.
func ClampScore(n int) int {
	if n < MinRelevanceScore {
		return MinRelevanceScore
	}
	if n > MaxRelevanceScore {
		return MaxRelevanceScore
	}
	return n
}
