package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pubenrich/internal/dataset"
	"github.com/sells-group/pubenrich/internal/merge"
)

var (
	mergePolicy string
	mergeOut    string
)

var mergeCmd = &cobra.Command{
	Use:   "merge [source ...]",
	Short: "Merge harvested publication lists into the canonical dataset",
	Long: `Merges publication lists keyed by URL. Later sources win for records that
appear more than once. Sources may be JSON or XLSX files and may contain
glob patterns (**). Without arguments the merge.sources config list is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		patterns := args
		if len(patterns) == 0 {
			patterns = cfg.Merge.Sources
		}
		if len(patterns) == 0 {
			return eris.New("merge: no sources given")
		}
		if mergePolicy != "" {
			cfg.Merge.Policy = mergePolicy
		}
		if err := cfg.Validate("merge"); err != nil {
			return err
		}
		policy, err := merge.ParsePolicy(cfg.Merge.Policy)
		if err != nil {
			return err
		}
		out := firstNonEmpty(mergeOut, cfg.Dataset.Path)

		paths, err := merge.ExpandSources(patterns)
		if err != nil {
			return err
		}
		ds := dataset.New(nil)
		lists, err := merge.LoadSources(ds, paths)
		if err != nil {
			return err
		}

		merged := merge.MergeSources(lists, policy)
		if err := ds.Save(out, merged); err != nil {
			return err
		}

		zap.L().Info("merge: dataset written",
			zap.String("path", out),
			zap.Int("sources", len(paths)),
			zap.Int("records", len(merged)),
			zap.String("policy", string(policy)),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "merged %d sources into %d records: %s\n", len(paths), len(merged), out)
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergePolicy, "policy", "", "duplicate policy: last (later record replaces, default) or fill (later values override, gaps filled from earlier records)")
	mergeCmd.Flags().StringVar(&mergeOut, "out", "", "output path (default: dataset.path)")
	rootCmd.AddCommand(mergeCmd)
}
