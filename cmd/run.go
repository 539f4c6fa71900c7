package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/enrich-cli/internal/enrich"
)

var (
	runPersonID string
	runOutput   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run enrichment for a single person",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnrich(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Enricher.Enrich(ctx, runPersonID)
		if err != nil {
			return eris.Wrapf(err, "enrich %s", runPersonID)
		}

		zap.L().Info("enrichment complete",
			zap.String("person", result.Person.DisplayName()),
			zap.Bool("skipped", result.Skipped),
			zap.Bool("success", result.Success()),
			zap.Bool("storage_success", result.StorageSuccess),
		)

		return writeResult(os.Stdout, result, runOutput)
	},
}

func init() {
	runCmd.Flags().StringVar(&runPersonID, "person", "", "people database page ID (required)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "json", "output format: json or yaml")
	_ = runCmd.MarkFlagRequired("person")
	rootCmd.AddCommand(runCmd)
}

// writeResult encodes an attempt result to out in the given format.
func writeResult(out io.Writer, result *enrich.Result, format string) error {
	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}
