package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"omnigest/internal/schema"
	"omnigest/pkg/domain"
	"omnigest/pkg/requestcontext"
)

const defaultWorkers = 4

// Summary aggregates one batch run. Failed counts rows whose disposition
// could not be finalized (audit or storage failure); those rows are safe
// to resubmit.
type Summary struct {
	Total       int
	Processed   int
	Quarantined int
	Purged      int
	Failed      int

	// Reasons counts quarantines and purges by status reason.
	Reasons map[string]int
}

// Batch processes rows concurrently with a bounded worker pool. Every row
// is evaluated against the same reference time, taken once at entry, so a
// slow worker cannot flip a notice-expiry outcome mid-batch. Row failures
// are isolated: one poisoned row never aborts the batch.
func (p *Pipeline) Batch(ctx context.Context, rows []schema.RawRecord, workers int) Summary {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if !requestcontext.HasTime(ctx) {
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())
	}

	start := time.Now()
	var (
		mu      sync.Mutex
		summary = Summary{Total: len(rows), Reasons: make(map[string]int)}
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, raw := range rows {
		g.Go(func() error {
			rec, err := p.Process(ctx, raw)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				p.log.ErrorContext(ctx, "record failed",
					slog.String("record_id", rec.ID.String()), slog.Any("error", err))
				return nil
			}
			switch rec.Disposition {
			case domain.DispositionProcessed:
				summary.Processed++
			case domain.DispositionQuarantined:
				summary.Quarantined++
				summary.Reasons[rec.StatusReason]++
			case domain.DispositionPurged:
				summary.Purged++
				summary.Reasons[rec.StatusReason]++
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	p.metrics.ObserveBatch(time.Since(start))
	p.log.InfoContext(ctx, "batch complete",
		slog.String("batch_id", requestcontext.BatchID(ctx)),
		slog.Int("total", summary.Total),
		slog.Int("processed", summary.Processed),
		slog.Int("quarantined", summary.Quarantined),
		slog.Int("purged", summary.Purged),
		slog.Int("failed", summary.Failed))
	return summary
}
