// Package extract asks a completion service for a publication's enrichment
// fields and decodes the answer against a fixed schema.
package extract

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pubenrich/internal/cost"
	"github.com/sells-group/pubenrich/internal/fetcher"
	"github.com/sells-group/pubenrich/internal/model"
	"github.com/sells-group/pubenrich/internal/normalize"
	"github.com/sells-group/pubenrich/internal/resilience"
	"github.com/sells-group/pubenrich/internal/taxonomy"
)

// ErrNoURL is returned for records without a url; there is nothing to fetch.
var ErrNoURL = eris.New("extract: record has no url")

// ErrEmptyExcerpt is returned when a fetched page has no text content.
var ErrEmptyExcerpt = eris.New("extract: page has no text content")

// Stage names the step of an enrichment that failed.
type Stage string

const (
	StageURL       Stage = "url"
	StageFetch     Stage = "fetch"
	StageNormalize Stage = "normalize"
	StageComplete  Stage = "complete"
	StageParse     Stage = "parse"
)

// StageError ties an enrichment failure to its stage.
type StageError struct {
	Stage Stage
	Err   error
	// Usage is set when tokens were spent before the failure.
	Usage model.TokenUsage
}

func (e *StageError) Error() string { return string(e.Stage) + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// Result is the outcome of one successful extraction.
type Result struct {
	Extraction *model.Extraction
	Usage      model.TokenUsage
	Model      string
	// Issues lists fields the decoder or validator dropped or adjusted.
	Issues []FieldError
}

// Options tunes the requester.
type Options struct {
	Profile      model.Profile
	Temperature  float64
	MaxTokens    int64
	SystemPrompt string
	ClampVocab   bool
	Retry        resilience.RetryConfig
}

// Requester runs fetch, normalize and extract for one record.
type Requester struct {
	completer  Completer
	fetcher    fetcher.Fetcher
	normalizer normalize.Normalizer
	tax        taxonomy.Taxonomy
	opts       Options
	breaker    *resilience.Breaker
	calc       *cost.Calculator
}

// NewRequester wires a Requester. breaker and calc may be nil.
func NewRequester(c Completer, f fetcher.Fetcher, n normalize.Normalizer, tax taxonomy.Taxonomy, opts Options, breaker *resilience.Breaker, calc *cost.Calculator) *Requester {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = opts.Profile.Defaults().MaxTokens
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.RetryLogger(c.Name(), "complete")
	}
	return &Requester{
		completer:  c,
		fetcher:    f,
		normalizer: n,
		tax:        tax,
		opts:       opts,
		breaker:    breaker,
		calc:       calc,
	}
}

// Taxonomy returns the vocabularies the requester validates against.
func (r *Requester) Taxonomy() taxonomy.Taxonomy { return r.tax }

// Enrich fetches pub's page, normalizes it and extracts fields from it.
// Errors are *StageError.
func (r *Requester) Enrich(ctx context.Context, pub model.Publication) (*Result, error) {
	if strings.TrimSpace(pub.URL) == "" {
		return nil, &StageError{Stage: StageURL, Err: ErrNoURL}
	}

	raw, err := r.fetcher.Fetch(ctx, pub.URL)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}

	excerpt := r.normalizer.Normalize(raw, pub.URL)
	if excerpt == "" {
		return nil, &StageError{Stage: StageNormalize, Err: ErrEmptyExcerpt}
	}

	return r.Extract(ctx, pub, excerpt, r.tax)
}

// Extract asks the completion service for pub's enrichment fields given an
// already normalized excerpt. On any error pub must be left unchanged by
// the caller. Errors are *StageError.
func (r *Requester) Extract(ctx context.Context, pub model.Publication, excerpt string, tax taxonomy.Taxonomy) (*Result, error) {
	if strings.TrimSpace(pub.URL) == "" {
		return nil, &StageError{Stage: StageURL, Err: ErrNoURL}
	}

	req := CompletionRequest{
		System:      SystemPrompt(r.opts.Profile, r.opts.SystemPrompt),
		Prompt:      BuildPrompt(pub, excerpt, tax, r.opts.Profile),
		Temperature: r.opts.Temperature,
		MaxTokens:   r.opts.MaxTokens,
		JSON:        true,
	}

	comp, err := resilience.DoVal(ctx, r.opts.Retry, func(ctx context.Context) (*Completion, error) {
		if r.breaker == nil {
			return r.completer.Complete(ctx, req)
		}
		return resilience.ExecuteVal(ctx, r.breaker, func(ctx context.Context) (*Completion, error) {
			return r.completer.Complete(ctx, req)
		})
	})
	if err != nil {
		return nil, &StageError{Stage: StageComplete, Err: eris.Wrapf(err, "extract: %s completion", r.completer.Name())}
	}

	usage := comp.Usage
	if r.calc != nil {
		usage = r.calc.Usage(comp.Model, usage)
	}
	zap.L().Debug("completion usage",
		zap.String("provider", r.completer.Name()),
		zap.String("model", comp.Model),
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
		zap.Float64("estimated_cost_usd", usage.Cost),
	)

	ext, issues, err := Decode(comp.Text, r.opts.Profile)
	if err != nil {
		return nil, &StageError{Stage: StageParse, Err: err, Usage: usage}
	}
	issues = append(issues, Validate(ext, pub, tax, r.opts.Profile, r.opts.ClampVocab)...)

	return &Result{Extraction: ext, Usage: usage, Model: comp.Model, Issues: issues}, nil
}

// StageOf returns the stage of a *StageError in err's chain, or "" if none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
