package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/pubenrich/internal/dataset"
	"github.com/sells-group/pubenrich/internal/merge"
)

var (
	filterField string
	filterValue string
)

var filterCmd = &cobra.Command{
	Use:   "filter IN OUT",
	Short: "Write the records whose field equals a value",
	Example: `  # Keep only the Institute of Public Law collection
  pubenrich filter --field collectie --value "Institute of Public Law" publicaties.json ipl.json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if filterField == "" {
			return eris.New("filter: --field is required")
		}
		ds := dataset.New(nil)
		pubs, err := ds.Load(args[0])
		if err != nil {
			return err
		}
		kept := merge.FilterByField(pubs, filterField, filterValue)
		if err := ds.Save(args[1], kept); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "kept %d of %d records: %s\n", len(kept), len(pubs), args[1])
		return nil
	},
}

func init() {
	filterCmd.Flags().StringVar(&filterField, "field", "", "field to match, e.g. bron or collectie")
	filterCmd.Flags().StringVar(&filterValue, "value", "", "exact value to keep")
	rootCmd.AddCommand(filterCmd)
}
