// Package pipeline runs a batch enrichment pass over a dataset: it filters
// incomplete records, enriches them one at a time under a rate limit and
// writes periodic checkpoints.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/pubenrich/internal/checkpoint"
	"github.com/sells-group/pubenrich/internal/extract"
	"github.com/sells-group/pubenrich/internal/merge"
	"github.com/sells-group/pubenrich/internal/model"
	"github.com/sells-group/pubenrich/internal/resilience"
)

// State is a step of the run state machine.
type State string

const (
	StateLoading       State = "loading"
	StateFiltering     State = "filtering"
	StateSkipping      State = "skipping"
	StateEnriching     State = "enriching"
	StateCheckpointing State = "checkpointing"
	StateSaving        State = "saving"
	StateDone          State = "done"
)

// Record outcomes as reported in metrics.
const (
	OutcomeEnriched = "enriched"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// Enricher produces an extraction for one record. extract.Requester
// satisfies it.
type Enricher interface {
	Enrich(ctx context.Context, pub model.Publication) (*extract.Result, error)
}

// Finalizer persists the working set once the queue is exhausted.
type Finalizer interface {
	Finalize(ctx context.Context, pubs []model.Publication) error
}

// FinalizerFunc adapts a function to Finalizer.
type FinalizerFunc func(ctx context.Context, pubs []model.Publication) error

// Finalize implements Finalizer.
func (f FinalizerFunc) Finalize(ctx context.Context, pubs []model.Publication) error {
	return f(ctx, pubs)
}

// Options tunes one run.
type Options struct {
	RunID   string
	Profile model.Profile
	// StartIndex is a position in the filtered work queue.
	StartIndex int
	// CheckpointEvery defaults to the profile's cadence.
	CheckpointEvery int
	// Limit caps records dequeued this run; 0 means all.
	Limit int
	// Indices, when set, replaces the filtered queue with explicit record
	// positions, e.g. the records of an earlier failure report. Complete
	// records among them are skipped at dequeue.
	Indices []int
	// Interval and Burst shape the limiter when Limiter is nil. A zero
	// Interval means the profile default.
	Interval time.Duration
	Burst    int
	Limiter  *rate.Limiter
}

func (o Options) withDefaults() Options {
	d := o.Profile.Defaults()
	if o.CheckpointEvery <= 0 {
		o.CheckpointEvery = d.CheckpointEvery
	}
	if o.StartIndex < 0 {
		o.StartIndex = 0
	}
	if o.Interval <= 0 {
		o.Interval = d.Interval
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	if o.Limiter == nil {
		o.Limiter = rate.NewLimiter(rate.Every(o.Interval), o.Burst)
	}
	return o
}

// Result summarizes a run. Publications is the working set after the run,
// including records left unchanged.
type Result struct {
	RunID        string
	State        State
	Publications []model.Publication

	Total     int
	Queued    int
	Processed int
	Enriched  int
	Skipped   int
	Failed    int

	Usage       model.TokenUsage
	Failures    []resilience.Failure
	Checkpoints []string
	FailureLog  string

	Interrupted bool
	Duration    time.Duration
}

// Orchestrator owns the working set for the duration of a run.
type Orchestrator struct {
	enricher  Enricher
	store     checkpoint.Store
	finalizer Finalizer
	metrics   *Metrics
	now       func() time.Time
}

// NewOrchestrator wires an orchestrator. store, finalizer and metrics may
// be nil.
func NewOrchestrator(e Enricher, store checkpoint.Store, finalizer Finalizer, metrics *Metrics) *Orchestrator {
	return &Orchestrator{
		enricher:  e,
		store:     store,
		finalizer: finalizer,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Queue returns the indices of records that are incomplete under profile.
func Queue(pubs []model.Publication, profile model.Profile) []int {
	var q []int
	for i, p := range pubs {
		if !p.IsComplete(profile) {
			q = append(q, i)
		}
	}
	return q
}

// Run enriches the incomplete records of pubs. Per-record failures are
// recorded in the result and never abort the run. The returned error is
// non-nil only for context cancellation or a failed final save; the result
// is returned in both cases.
func (o *Orchestrator) Run(ctx context.Context, pubs []model.Publication, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	start := o.now()

	res := &Result{
		RunID:        opts.RunID,
		Total:        len(pubs),
		Publications: append([]model.Publication(nil), pubs...),
	}
	log := zap.L().With(zap.String("run_id", opts.RunID), zap.String("profile", string(opts.Profile)))
	o.transition(res, log, StateLoading, zap.Int("records", len(pubs)))

	o.transition(res, log, StateFiltering)
	queue := Queue(res.Publications, opts.Profile)
	if len(opts.Indices) > 0 {
		queue = validIndices(opts.Indices, len(res.Publications))
	}
	work := queue[min(opts.StartIndex, len(queue)):]
	if opts.Limit > 0 && opts.Limit < len(work) {
		work = work[:opts.Limit]
	}
	res.Queued = len(work)
	log.Info("pipeline: work queue built",
		zap.Int("incomplete", len(queue)),
		zap.Int("start_index", opts.StartIndex),
		zap.Int("queued", res.Queued),
	)

	lastCheckpoint := 0
	var runErr error

	for n, idx := range work {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		pub := res.Publications[idx]
		rlog := log.With(
			zap.Int("position", opts.StartIndex+n),
			zap.Int("index", idx),
			zap.String("url", pub.URL),
		)

		if pub.IsComplete(opts.Profile) {
			o.transition(res, rlog, StateSkipping)
			res.Skipped++
			o.metrics.record(OutcomeSkipped)
			rlog.Info("pipeline: record already complete, skipping")
		} else {
			o.transition(res, rlog, StateEnriching)
			if err := opts.Limiter.Wait(ctx); err != nil {
				runErr = ctxErr(ctx, err)
				break
			}
			if err := o.enrichOne(ctx, res, idx, opts.Profile, rlog); err != nil {
				runErr = err
				break
			}
		}

		res.Processed++
		if res.Processed%opts.CheckpointEvery == 0 {
			o.checkpoint(ctx, res, log)
			lastCheckpoint = res.Processed
		}
	}

	if runErr != nil {
		res.Interrupted = true
		log.Warn("pipeline: run interrupted", zap.Error(runErr), zap.Int("processed", res.Processed))
		if res.Processed > lastCheckpoint {
			o.checkpoint(context.WithoutCancel(ctx), res, log)
		}
		o.saveFailures(context.WithoutCancel(ctx), res, log)
		o.summary(res, log, start)
		return res, runErr
	}

	o.saveFailures(ctx, res, log)

	o.transition(res, log, StateSaving)
	if o.finalizer != nil {
		if err := o.finalizer.Finalize(ctx, res.Publications); err != nil {
			log.Error("pipeline: final save failed, checkpoints are kept for recovery",
				zap.Error(err), zap.Strings("checkpoints", res.Checkpoints))
			o.summary(res, log, start)
			return res, eris.Wrap(err, "pipeline: final save")
		}
	}

	o.transition(res, log, StateDone)
	o.summary(res, log, start)
	return res, nil
}

// enrichOne runs the enricher for the record at idx. It returns an error
// only when the context ends mid-call; the record is then left unchanged
// and not counted.
func (o *Orchestrator) enrichOne(ctx context.Context, res *Result, idx int, profile model.Profile, log *zap.Logger) error {
	pub := res.Publications[idx]
	began := o.now()
	out, err := o.enricher.Enrich(ctx, pub)
	o.metrics.duration(o.now().Sub(began))

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var se *extract.StageError
		stage := "unknown"
		if errors.As(err, &se) {
			stage = string(se.Stage)
			o.addUsage(res, se.Usage)
		}
		f := resilience.NewFailure(idx, pub.URL, pub.Title, stage, err)
		res.Failures = append(res.Failures, f)
		res.Failed++
		o.metrics.record(OutcomeFailed)
		o.metrics.stageFailure(stage)
		log.Warn("pipeline: enrichment failed, record unchanged",
			zap.String("stage", stage),
			zap.String("class", string(f.Class)),
			zap.Error(err),
		)
		return nil
	}

	res.Publications[idx] = merge.ApplyExtraction(pub, out.Extraction)
	o.addUsage(res, out.Usage)
	res.Enriched++
	o.metrics.record(OutcomeEnriched)

	fields := []zap.Field{
		zap.String("model", out.Model),
		zap.Int("input_tokens", out.Usage.InputTokens),
		zap.Int("output_tokens", out.Usage.OutputTokens),
		zap.Bool("complete", res.Publications[idx].IsComplete(profile)),
	}
	for _, issue := range out.Issues {
		log.Debug("pipeline: field dropped", zap.String("field", string(issue.Field)), zap.String("reason", issue.Reason))
	}
	log.Info("pipeline: record enriched", fields...)
	return nil
}

func (o *Orchestrator) addUsage(res *Result, u model.TokenUsage) {
	res.Usage.Add(u)
	o.metrics.tokens(u.InputTokens, u.OutputTokens)
}

func (o *Orchestrator) checkpoint(ctx context.Context, res *Result, log *zap.Logger) {
	if o.store == nil {
		return
	}
	prev := res.State
	o.transition(res, log, StateCheckpointing, zap.Int("processed", res.Processed))
	path, err := o.store.Save(ctx, res.RunID, res.Processed, res.Publications)
	o.metrics.checkpoint(err == nil)
	if err != nil {
		log.Error("pipeline: checkpoint failed", zap.Int("processed", res.Processed), zap.Error(err))
	} else {
		res.Checkpoints = append(res.Checkpoints, path)
		log.Info("pipeline: checkpoint written", zap.String("path", path), zap.Int("processed", res.Processed))
	}
	res.State = prev
}

func (o *Orchestrator) saveFailures(ctx context.Context, res *Result, log *zap.Logger) {
	if o.store == nil || len(res.Failures) == 0 || res.RunID == "" {
		return
	}
	path, err := o.store.SaveFailures(ctx, res.RunID, res.Failures)
	if err != nil {
		log.Error("pipeline: failure report not written", zap.Error(err))
		return
	}
	res.FailureLog = path
	log.Info("pipeline: failure report written", zap.String("path", path), zap.Int("failures", len(res.Failures)))
}

func (o *Orchestrator) transition(res *Result, log *zap.Logger, to State, fields ...zap.Field) {
	if res.State != to {
		log.Debug("pipeline: state", append([]zap.Field{zap.String("from", string(res.State)), zap.String("to", string(to))}, fields...)...)
	}
	res.State = to
}

func (o *Orchestrator) summary(res *Result, log *zap.Logger, start time.Time) {
	res.Duration = o.now().Sub(start)
	log.Info("pipeline: run finished",
		zap.String("state", string(res.State)),
		zap.Bool("interrupted", res.Interrupted),
		zap.Int("queued", res.Queued),
		zap.Int("processed", res.Processed),
		zap.Int("enriched", res.Enriched),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Int("input_tokens", res.Usage.InputTokens),
		zap.Int("output_tokens", res.Usage.OutputTokens),
		zap.Float64("estimated_cost_usd", res.Usage.Cost),
		zap.Duration("duration", res.Duration),
	)
}

func validIndices(indices []int, n int) []int {
	seen := make(map[int]bool, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	return out
}

func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
