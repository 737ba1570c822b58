package enrich

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-enrich/internal/model"
	"github.com/sells-group/prospect-enrich/internal/store"
)

// Batch defaults.
const (
	DefaultBatchLimit       = 50
	DefaultBatchConcurrency = 4
)

// BatchOptions controls one automatic enrichment pass.
type BatchOptions struct {
	// Limit caps how many eligible prospects are processed.
	Limit       int
	Concurrency int
	// ScanLimit caps how many auto-enrich candidates are read from the store
	// before eligibility filtering. Defaults to 4x Limit.
	ScanLimit int
	Options   model.EnrichOptions
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultBatchLimit
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultBatchConcurrency
	}
	if o.ScanLimit <= 0 {
		o.ScanLimit = o.Limit * 4
	}
	if o.Options.TriggeredBy == "" {
		o.Options.TriggeredBy = model.TriggerBatch
	}
	return o
}

// ListEligible returns up to limit auto-enrich prospects due for enrichment,
// in processing order. scanLimit bounds how many candidates are read.
func (s *Service) ListEligible(ctx context.Context, limit, scanLimit int) ([]model.Prospect, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	if scanLimit < limit {
		scanLimit = limit * 4
	}
	policy := s.gate.Policy()
	candidates, err := s.store.ListAutoEnrichCandidates(ctx, store.CandidateQuery{
		Limit:             scanLimit,
		BelowCompleteness: policy.MinCompletenessScore,
		EnrichedBefore:    s.gate.RefreshCutoff(),
		RetryAttempts:     policy.MaxAttempts,
	})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list candidates")
	}
	eligible := s.gate.ListEligible(candidates)
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

// BatchSummary counts what a batch did. Processed is Succeeded + Failed +
// Skipped.
type BatchSummary struct {
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// RunBatch enriches eligible auto-enrich prospects with bounded concurrency.
// A failure on one prospect is counted and the batch moves on; only failing
// to list candidates is returned as an error.
func (s *Service) RunBatch(ctx context.Context, opts BatchOptions) (*BatchSummary, error) {
	start := s.now()
	opts = opts.withDefaults()

	eligible, err := s.ListEligible(ctx, opts.Limit, opts.ScanLimit)
	if err != nil {
		return nil, err
	}
	zap.L().Info("enrich: batch starting",
		zap.Int("eligible", len(eligible)),
		zap.Int("concurrency", opts.Concurrency),
	)

	var succeeded, failed, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, p := range eligible {
		g.Go(func() error {
			if gctx.Err() != nil {
				skipped.Add(1)
				return nil
			}
			out, err := s.EnrichProspect(gctx, p.ID, opts.Options)
			switch {
			case err != nil:
				failed.Add(1)
				zap.L().Warn("enrich: batch prospect failed", zap.String("prospect_id", p.ID), zap.Error(err))
			case out.Skipped:
				skipped.Add(1)
			case out.Result != nil && out.Result.Success:
				succeeded.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	sum := &BatchSummary{
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Skipped:   int(skipped.Load()),
		Duration:  s.now().Sub(start),
	}
	sum.Processed = sum.Succeeded + sum.Failed + sum.Skipped
	zap.L().Info("enrich: batch complete",
		zap.Int("processed", sum.Processed),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
		zap.Duration("duration", sum.Duration),
	)
	return sum, nil
}
