package main

import (
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pubenrich/internal/config"
	"github.com/sells-group/pubenrich/internal/dataset"
	"github.com/sells-group/pubenrich/internal/feeds"
	"github.com/sells-group/pubenrich/internal/fetcher"
)

var (
	ingestOutDir string
	ingestFeeds  []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Harvest configured RSS/Atom feeds into publication lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("ingest"); err != nil {
			return err
		}
		selected, err := selectFeeds(cfg.Feeds, ingestFeeds)
		if err != nil {
			return err
		}

		ds := dataset.New(nil)
		in := feeds.NewIngestor(fetcher.NewHTTPFetcher(fetcher.OptionsFromConfig(cfg.Fetch, cfg.Resilience)))

		var failed int
		for _, fc := range selected {
			log := zap.L().With(zap.String("feed", fc.Name))
			pubs, err := in.Ingest(cmd.Context(), fc)
			if err != nil {
				failed++
				log.Error("ingest: feed failed", zap.Error(err))
				continue
			}
			out := feedOutput(ingestOutDir, fc)
			if err := ds.Save(out, pubs); err != nil {
				failed++
				log.Error("ingest: write failed", zap.String("path", out), zap.Error(err))
				continue
			}
			log.Info("ingest: feed written", zap.String("path", out), zap.Int("records", len(pubs)))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records -> %s\n", fc.Name, len(pubs), out)
		}

		if failed == len(selected) {
			return eris.Errorf("ingest: all %d feeds failed", failed)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestOutDir, "out-dir", ".", "directory for feed outputs")
	ingestCmd.Flags().StringSliceVar(&ingestFeeds, "feed", nil, "only ingest the named feeds")
	rootCmd.AddCommand(ingestCmd)
}

func selectFeeds(all []config.FeedConfig, names []string) ([]config.FeedConfig, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]config.FeedConfig, len(all))
	for _, fc := range all {
		byName[fc.Name] = fc
	}
	out := make([]config.FeedConfig, 0, len(names))
	for _, n := range names {
		fc, ok := byName[n]
		if !ok {
			return nil, eris.Errorf("ingest: unknown feed %q", n)
		}
		out = append(out, fc)
	}
	return out, nil
}

// feedOutput resolves a feed's output file. Absolute outputs ignore dir.
func feedOutput(dir string, fc config.FeedConfig) string {
	name := fc.Output
	if name == "" {
		name = fc.Name + ".json"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}
