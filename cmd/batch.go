package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-enrich/internal/enrich"
	"github.com/sells-group/prospect-enrich/internal/model"
)

var (
	batchLimit       int
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Enrich every eligible prospect with auto-enrichment enabled",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnrich(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		sum, err := env.Service.RunBatch(ctx, batchOptions())
		if err != nil {
			return eris.Wrap(err, "batch")
		}

		zap.L().Info("batch complete",
			zap.Int("processed", sum.Processed),
			zap.Int("succeeded", sum.Succeeded),
			zap.Int("failed", sum.Failed),
			zap.Int("skipped", sum.Skipped),
			zap.Duration("duration", sum.Duration),
		)
		return nil
	},
}

// batchOptions merges the batch flags over the configured defaults.
func batchOptions() enrich.BatchOptions {
	opts := enrich.BatchOptions{
		Limit:       cfg.Batch.Limit,
		Concurrency: cfg.Batch.Concurrency,
		ScanLimit:   cfg.Batch.ScanLimit,
		Options:     model.EnrichOptions{TriggeredBy: model.TriggerBatch},
	}
	if batchLimit > 0 {
		opts.Limit = batchLimit
	}
	if batchConcurrency > 0 {
		opts.Concurrency = batchConcurrency
	}
	return opts
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of prospects to enrich (default from config)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "parallel enrichments (default from config)")
	rootCmd.AddCommand(batchCmd)
}
