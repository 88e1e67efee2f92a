package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/invoice-intake/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract one invoice document from disk",
	Long:  "Runs a local document through the same intake pipeline as an upload and prints the result as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "extract")
		if err != nil {
			return err
		}
		defer env.Close()

		record, _ := cmd.Flags().GetBool("record")
		dispatch, _ := cmd.Flags().GetBool("dispatch")

		res, err := runExtract(ctx, env.Pipeline, args[0], pipeline.Options{Record: record, Dispatch: dispatch})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

// runExtract processes the file at path, presenting its base name as the
// upload filename.
func runExtract(ctx context.Context, p *pipeline.Pipeline, path string, opts pipeline.Options) (*pipeline.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return p.Process(ctx, filepath.Base(path), f, opts)
}

func init() {
	extractCmd.Flags().Bool("record", false, "append the result to the ledger")
	extractCmd.Flags().Bool("dispatch", false, "forward the result to the enabled sinks")
	rootCmd.AddCommand(extractCmd)
}
