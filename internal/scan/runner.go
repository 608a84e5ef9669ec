// Package scan drives queries through paged store cursors, formatting
// and optionally deleting every matched row.
package scan

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/basekick-labs/tsdump/internal/codec"
	"github.com/basekick-labs/tsdump/internal/dump"
	"github.com/basekick-labs/tsdump/internal/store"
	"github.com/basekick-labs/tsdump/internal/uid"
)

// Options selects what Run does with each matched row.
type Options struct {
	Delete       bool
	ImportFormat bool
	Quiet        bool // suppress all dump output
	Out          io.Writer
}

// Runner executes queries one at a time over a single cursor. It is
// synchronous; the batch deleter runs one Runner call per worker.
type Runner struct {
	client   store.Client
	resolver uid.Resolver
	logger   zerolog.Logger

	// ProgressInterval is how long to wait between progress lines
	// while deleting. Defaults to one minute.
	ProgressInterval time.Duration
}

func NewRunner(client store.Client, resolver uid.Resolver, logger zerolog.Logger) *Runner {
	return &Runner{
		client:           client,
		resolver:         resolver,
		logger:           logger,
		ProgressInterval: time.Minute,
	}
}

// Run scans every query in sequence and returns the total number of
// rows touched. Rows are processed in cursor order; a decode failure
// aborts the run with the offending row key in the error.
func (r *Runner) Run(ctx context.Context, queries []store.Query, opts Options) (int64, error) {
	var formatter *dump.Formatter
	if !opts.Quiet {
		out := opts.Out
		if out == nil {
			out = os.Stdout
		}
		formatter = dump.NewFormatter(out, opts.ImportFormat)
	}

	var rowCount, tickCount int64
	tickDeadline := time.Now().Add(r.ProgressInterval)

	for _, q := range queries {
		cursor, err := r.client.Scan(ctx, q)
		if err != nil {
			return rowCount, fmt.Errorf("scan failed for %q: %w", q.Metric, err)
		}
		for {
			rows, err := cursor.NextPage(ctx)
			if err != nil {
				return rowCount, fmt.Errorf("cursor failed for %q: %w", q.Metric, err)
			}
			if rows == nil {
				break
			}
			for _, row := range rows {
				rowCount++

				if formatter != nil {
					rk, err := codec.DecodeRowKey(row.Key, r.resolver)
					if err != nil {
						return rowCount, fmt.Errorf("row key %v: %w", row.Key, err)
					}
					if err := formatter.WriteRow(rk, row.Columns); err != nil {
						return rowCount, fmt.Errorf("row key %v: %w", row.Key, err)
					}
				}

				if opts.Delete {
					if time.Now().After(tickDeadline) {
						tickCount++
						r.logger.Info().
							Int64("tick", tickCount).
							Str("metric", q.Metric).
							Int64("rows_touched", rowCount).
							Msg("Still deleting")
						tickDeadline = time.Now().Add(r.ProgressInterval)
					}
					if err := r.client.Delete(ctx, row.Key); err != nil {
						return rowCount, fmt.Errorf("delete failed for row %v: %w", row.Key, err)
					}
				}
			}
		}
	}
	return rowCount, nil
}
