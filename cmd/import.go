package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-enrich/internal/importer"
)

var (
	importCSVPath    string
	importDelimiter  string
	importAutoEnrich bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import prospects from a CSV file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}
		opts, err := importOptions()
		if err != nil {
			return err
		}

		f, err := os.Open(importCSVPath)
		if err != nil {
			return eris.Wrap(err, "open csv")
		}
		defer f.Close() //nolint:errcheck

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sum, err := importer.Import(ctx, st, f, opts)
		if err != nil {
			return eris.Wrap(err, "import csv")
		}

		zap.L().Info("import complete",
			zap.Int64("imported", sum.Imported),
			zap.Int("skipped", sum.Skipped),
			zap.String("csv", importCSVPath),
		)
		return nil
	},
}

func importOptions() (importer.Options, error) {
	opts := importer.Options{AutoEnrich: importAutoEnrich}
	switch r := []rune(importDelimiter); len(r) {
	case 0:
	case 1:
		opts.Delimiter = r[0]
	default:
		return opts, eris.Errorf("delimiter must be a single character, got %q", importDelimiter)
	}
	return opts, nil
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	importCmd.Flags().StringVar(&importDelimiter, "delimiter", ",", "field delimiter")
	importCmd.Flags().BoolVar(&importAutoEnrich, "auto-enrich", true, "enable automatic enrichment for imported rows")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
