package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/invoice-intake/internal/ledger"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the invoice ledger as CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		lw, err := ledger.NewWriter(cfg.Storage.LedgerFile)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		format, _ := cmd.Flags().GetString("format")
		if format == "" {
			format = formatFromPath(out)
		}

		var w io.Writer = os.Stdout
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return eris.Wrapf(err, "export: create %s", out)
			}
			defer f.Close() //nolint:errcheck
			w = f
		}

		return exportLedger(w, lw, format)
	},
}

// formatFromPath picks the export format from an output file extension.
func formatFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return "xlsx"
	}
	return "csv"
}

func exportLedger(w io.Writer, lw *ledger.Writer, format string) error {
	switch strings.ToLower(format) {
	case "csv":
		_, err := lw.WriteTo(w)
		return err
	case "xlsx":
		return lw.ExportXLSX(w)
	default:
		return eris.Errorf("export: unsupported format %q", format)
	}
}

func init() {
	exportCmd.Flags().String("out", "", "output file (default stdout)")
	exportCmd.Flags().String("format", "", "csv or xlsx (default from --out extension, else csv)")
	rootCmd.AddCommand(exportCmd)
}
