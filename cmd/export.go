package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/pubenrich/internal/dataset"
	"github.com/sells-group/pubenrich/internal/tabular"
)

var (
	exportFormat  string
	exportOut     string
	exportDataset string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the dataset as CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := exportFormatFor(exportFormat, exportOut)
		if err != nil {
			return err
		}
		ds := dataset.New(nil)
		pubs, err := ds.Load(firstNonEmpty(exportDataset, cfg.Dataset.Path))
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := tabular.Write(&buf, pubs, format); err != nil {
			return err
		}
		if exportOut == "" || exportOut == "-" {
			_, err := cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}
		if err := ds.WriteFile(exportOut, buf.Bytes()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d records: %s\n", len(pubs), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "csv or xlsx (default: from --out extension, else csv)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportDataset, "dataset", "", "dataset path (default: dataset.path)")
	rootCmd.AddCommand(exportCmd)
}

// exportFormatFor prefers an explicit format, then the output extension.
func exportFormatFor(flag, out string) (tabular.Format, error) {
	if flag == "" {
		flag = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
	}
	if flag == "" {
		return tabular.FormatCSV, nil
	}
	return tabular.ParseFormat(flag)
}
