package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the run's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	Records          *prometheus.CounterVec
	StageFailures    *prometheus.CounterVec
	Tokens           *prometheus.CounterVec
	CheckpointWrites *prometheus.CounterVec
	RecordDuration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg when it
// is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pubenrich",
			Name:      "records_total",
			Help:      "Records dequeued by the orchestrator, by outcome.",
		}, []string{"outcome"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pubenrich",
			Name:      "stage_failures_total",
			Help:      "Per-record failures, by stage.",
		}, []string{"stage"}),
		Tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pubenrich",
			Name:      "llm_tokens_total",
			Help:      "Completion tokens consumed, by direction.",
		}, []string{"direction"}),
		CheckpointWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pubenrich",
			Name:      "checkpoint_writes_total",
			Help:      "Checkpoint snapshot writes, by status.",
		}, []string{"status"}),
		RecordDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pubenrich",
			Name:      "record_duration_seconds",
			Help:      "Wall time of one enrichment attempt.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 90},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Records, m.StageFailures, m.Tokens, m.CheckpointWrites, m.RecordDuration)
	}
	return m
}

func (m *Metrics) record(outcome string) {
	if m != nil {
		m.Records.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) stageFailure(stage string) {
	if m != nil {
		m.StageFailures.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) tokens(in, out int) {
	if m == nil {
		return
	}
	m.Tokens.WithLabelValues("input").Add(float64(in))
	m.Tokens.WithLabelValues("output").Add(float64(out))
}

func (m *Metrics) checkpoint(ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.CheckpointWrites.WithLabelValues(status).Inc()
}

func (m *Metrics) duration(d time.Duration) {
	if m != nil {
		m.RecordDuration.Observe(d.Seconds())
	}
}
