package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/pubenrich/internal/dataset"
	"github.com/sells-group/pubenrich/internal/model"
)

var (
	statsProfile string
	statsDataset string
	statsJSON    bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report missing fields and estimated enrichment cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := resolveProfile(statsProfile, cfg)
		if err != nil {
			return err
		}
		pubs, err := dataset.New(nil).Load(firstNonEmpty(statsDataset, cfg.Dataset.Path))
		if err != nil {
			return err
		}

		s := model.ComputeStats(pubs, profile, cfg.Pricing.PerRecordUSD)
		if statsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		printStats(cmd.OutOrStdout(), s)
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsProfile, "profile", "", "field profile: basic or extended (default from config)")
	statsCmd.Flags().StringVar(&statsDataset, "dataset", "", "dataset path (default: dataset.path)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print stats as JSON")
	rootCmd.AddCommand(statsCmd)
}

func printStats(w io.Writer, s model.Stats) {
	fmt.Fprintf(w, "Profile:     %s\n", s.Profile)
	fmt.Fprintf(w, "Records:     %d\n", s.Total)
	fmt.Fprintf(w, "Incomplete:  %d (%.1f%% complete)\n", s.Incomplete, s.CompletionRate)
	fmt.Fprintf(w, "Missing URL: %d\n", s.MissingURL)
	fmt.Fprintf(w, "Est. cost:   $%.2f\n\n", s.EstimatedCost)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tMISSING\tPCT")
	for _, f := range model.EnrichmentFields {
		pct := 0.0
		if s.Total > 0 {
			pct = float64(s.Missing[f]) / float64(s.Total) * 100
		}
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", f, s.Missing[f], pct)
	}
	_ = tw.Flush()
}
