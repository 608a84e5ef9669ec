package scan

import (
	"context"
	"fmt"
	"math"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/basekick-labs/tsdump/internal/store"
)

// DeleteWorkers is the fixed batch-delete pool size.
const DeleteWorkers = 16

// BatchDeleter mass-deletes every row of every metric matching a name
// prefix. Metrics are fed once into a queue and drained by a fixed pool
// of workers; each metric is claimed by exactly one worker.
type BatchDeleter struct {
	client store.Client
	runner *Runner
	logger zerolog.Logger

	// Workers is the pool size. Defaults to DeleteWorkers.
	Workers int
}

func NewBatchDeleter(client store.Client, runner *Runner, logger zerolog.Logger) *BatchDeleter {
	return &BatchDeleter{
		client:  client,
		runner:  runner,
		logger:  logger,
		Workers: DeleteWorkers,
	}
}

// Run deletes all rows older than endTime (epoch seconds) for every
// metric matching prefix, and returns the summed rows touched. A
// failure while processing one metric is logged with the worker's
// identity and never stops sibling workers; with fewer metrics than
// workers the idle workers exit cleanly.
func (b *BatchDeleter) Run(ctx context.Context, endTime int64, prefix string) (int64, error) {
	metrics, err := b.client.SuggestMetrics(ctx, prefix, math.MaxInt32)
	if err != nil {
		return 0, fmt.Errorf("metric suggestion failed for prefix %q: %w", prefix, err)
	}
	total := len(metrics)

	work := make(chan string, total)
	for _, m := range metrics {
		work <- m
	}
	close(work)

	var claimed, totalRows atomic.Int64
	var g errgroup.Group
	for w := 0; w < b.Workers; w++ {
		log := b.logger.With().Int("worker", w).Logger()
		g.Go(func() error {
			for metric := range work {
				log.Info().
					Str("metric", metric).
					Int64("claimed", claimed.Add(1)).
					Int("total", total).
					Msg("Issuing batch delete")

				start := time.Now()
				rows, err := b.deleteMetric(ctx, metric, endTime)
				totalRows.Add(rows)
				if err != nil {
					log.Error().
						Err(err).
						Str("metric", metric).
						Int64("rows_touched", rows).
						Msg("Batch delete failed")
					continue
				}
				log.Info().
					Str("metric", metric).
					Int64("rows_touched", rows).
					Int64("elapsed_ms", time.Since(start).Milliseconds()).
					Msg("Batch delete done")
			}
			return nil
		})
	}
	// Workers log per-metric failures and always return nil, so the
	// join carries no error.
	_ = g.Wait()

	return totalRows.Load(), nil
}

// deleteMetric runs one synthetic delete query in quiet mode. A panic
// is converted to an error here so one bad metric cannot unwind the
// worker or the pool.
func (b *BatchDeleter) deleteMetric(ctx context.Context, metric string, endTime int64) (rows int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	q := store.Query{Metric: metric, Start: 0, End: endTime, Aggregator: "sum"}
	return b.runner.Run(ctx, []store.Query{q}, Options{Delete: true, Quiet: true})
}
