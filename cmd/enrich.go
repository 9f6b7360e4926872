package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/pubenrich/internal/checkpoint"
	"github.com/sells-group/pubenrich/internal/config"
	"github.com/sells-group/pubenrich/internal/dataset"
	"github.com/sells-group/pubenrich/internal/model"
	"github.com/sells-group/pubenrich/internal/pipeline"
)

var (
	enrichProfile         string
	enrichStart           int
	enrichCheckpointEvery int
	enrichLimit           int
	enrichDataset         string
	enrichMetricsAddr     string
	enrichRetryFailures   string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich incomplete records of the canonical dataset",
	Example: `  # Basic profile, first 50 incomplete records
  pubenrich enrich --limit 50

  # Resume an extended run at queue position 120
  pubenrich enrich --profile extended --start 120 --checkpoint-every 5

  # Retry only the records of an earlier failure report
  pubenrich enrich --retry-failures checkpoints/failures_20240301T101500-1a2b3c4d.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if enrichDataset != "" {
			cfg.Dataset.Path = enrichDataset
		}
		if err := cfg.Validate("enrich"); err != nil {
			return err
		}
		profile, err := resolveProfile(enrichProfile, cfg)
		if err != nil {
			return err
		}

		ds := dataset.New(nil)
		pubs, err := ds.Load(cfg.Dataset.Path)
		if err != nil {
			return eris.Wrap(err, "enrich: load dataset")
		}

		opts := pipeline.Options{
			RunID:           newRunID(),
			Profile:         profile,
			StartIndex:      enrichStart,
			CheckpointEvery: firstPositive(enrichCheckpointEvery, cfg.Enrich.CheckpointEvery),
			Limit:           enrichLimit,
			Interval:        time.Duration(cfg.Enrich.IntervalMs) * time.Millisecond,
			Burst:           cfg.Enrich.Burst,
		}
		if enrichRetryFailures != "" {
			failures, err := checkpoint.LoadFailures(ds, enrichRetryFailures)
			if err != nil {
				return err
			}
			opts.Indices = checkpoint.FailureIndices(failures)
			zap.L().Info("enrich: retrying failure report", zap.String("path", enrichRetryFailures), zap.Int("records", len(opts.Indices)))
		}

		env, err := initEnrich(ctx, cfg, profile)
		if err != nil {
			return err
		}
		defer env.Close()

		store, err := checkpoint.FromConfig(ctx, cfg.Checkpoint, ds)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		orch := pipeline.NewOrchestrator(env.Requester, store, newFinalizer(ds, cfg.Dataset), pipeline.NewMetrics(reg))

		res, err := runWithMetrics(ctx, firstNonEmpty(enrichMetricsAddr, cfg.Enrich.MetricsAddr), reg, func(ctx context.Context) (*pipeline.Result, error) {
			return orch.Run(ctx, pubs, opts)
		})
		if res != nil {
			printRunSummary(cmd.OutOrStdout(), res)
		}
		return err
	},
}

func init() {
	f := enrichCmd.Flags()
	f.StringVar(&enrichProfile, "profile", "", "field profile: basic or extended (default from config)")
	f.IntVar(&enrichStart, "start", 0, "start position in the filtered work queue")
	f.IntVar(&enrichCheckpointEvery, "checkpoint-every", 0, "records between checkpoints (default per profile)")
	f.IntVar(&enrichLimit, "limit", 0, "max records to process this run (0 = all)")
	f.StringVar(&enrichDataset, "dataset", "", "canonical dataset path (default from config)")
	f.StringVar(&enrichMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run, e.g. :9090")
	f.StringVar(&enrichRetryFailures, "retry-failures", "", "failure report whose records are retried instead of the incomplete queue")
	rootCmd.AddCommand(enrichCmd)
}

// newFinalizer backs up the pre-run dataset, atomically writes the
// enriched dataset and a redundant final copy. Only the main write is
// fatal.
func newFinalizer(ds *dataset.Store, c config.DatasetConfig) pipeline.Finalizer {
	return pipeline.FinalizerFunc(func(_ context.Context, pubs []model.Publication) error {
		if c.BackupPath != "" {
			ok, err := ds.Backup(c.Path, c.BackupPath)
			switch {
			case err != nil:
				zap.L().Warn("enrich: backup of original dataset failed", zap.String("path", c.BackupPath), zap.Error(err))
			case ok:
				zap.L().Info("enrich: original dataset backed up", zap.String("path", c.BackupPath))
			}
		}

		if err := ds.Save(c.Path, pubs); err != nil {
			return err
		}
		zap.L().Info("enrich: dataset saved", zap.String("path", c.Path), zap.Int("records", len(pubs)))

		if c.FinalCopy != "" {
			if err := ds.Save(c.FinalCopy, pubs); err != nil {
				zap.L().Warn("enrich: final copy failed", zap.String("path", c.FinalCopy), zap.Error(err))
			} else {
				zap.L().Info("enrich: final copy saved", zap.String("path", c.FinalCopy))
			}
		}
		return nil
	})
}

// runWithMetrics runs fn while serving reg on addr. The metrics server is
// shut down once fn returns. An empty addr runs fn alone.
func runWithMetrics(ctx context.Context, addr string, reg *prometheus.Registry, fn func(context.Context) (*pipeline.Result, error)) (*pipeline.Result, error) {
	if addr == "" {
		return fn(ctx)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	var res *pipeline.Result
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		zap.L().Info("enrich: serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "enrich: metrics server")
		}
		return nil
	})
	g.Go(func() error {
		defer close(done)
		var err error
		res, err = fn(ctx)
		return err
	})
	g.Go(func() error {
		select {
		case <-done:
		case <-gctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	<-done
	return res, err
}

func printRunSummary(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "run %s: %s\n", res.RunID, res.State)
	fmt.Fprintf(w, "  queued:    %d\n", res.Queued)
	fmt.Fprintf(w, "  processed: %d (enriched %d, skipped %d, failed %d)\n", res.Processed, res.Enriched, res.Skipped, res.Failed)
	fmt.Fprintf(w, "  tokens:    %d in / %d out, est. $%.4f\n", res.Usage.InputTokens, res.Usage.OutputTokens, res.Usage.Cost)
	if len(res.Checkpoints) > 0 {
		fmt.Fprintf(w, "  last checkpoint: %s\n", res.Checkpoints[len(res.Checkpoints)-1])
	}
	if res.FailureLog != "" {
		fmt.Fprintf(w, "  failures:  %s\n", res.FailureLog)
	}
	if res.Interrupted {
		fmt.Fprintln(w, "  interrupted: resume with --start or the last checkpoint")
	}
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
