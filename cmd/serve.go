package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pubenrich/internal/api"
	"github.com/sells-group/pubenrich/internal/config"
	"github.com/sells-group/pubenrich/internal/dataset"
	"github.com/sells-group/pubenrich/internal/model"
)

var (
	servePort    int
	serveProfile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dataset over a read-only HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		profile, err := resolveProfile(serveProfile, cfg)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.NewRouter(serveOptions(dataset.New(nil), cfg, profile, reg)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("dataset", cfg.Dataset.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveProfile, "profile", "", "profile used for completeness filters (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func serveOptions(ds *dataset.Store, c *config.Config, profile model.Profile, g prometheus.Gatherer) api.Options {
	path := c.Dataset.Path
	return api.Options{
		Load:          func() ([]model.Publication, error) { return ds.Load(path) },
		Profile:       profile,
		CostPerRecord: c.Pricing.PerRecordUSD,
		CORSOrigins:   c.Server.CORSOrigins,
		Gatherer:      g,
	}
}
