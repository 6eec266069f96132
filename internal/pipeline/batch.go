package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nao1215/infostats/internal/model"
	"github.com/nao1215/infostats/internal/platform"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency is the number of concurrent page-view lookups.
const DefaultBatchConcurrency = 4

// progressEvery is how many lookups pass between progress log lines.
const progressEvery = 100

// PageViewBatch looks up the page-view count of many paths, one exact
// query per path, with bounded concurrency.
type PageViewBatch struct {
	fetcher     Fetcher
	dataset     string
	collect     string
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a PageViewBatch.
type BatchOption func(*PageViewBatch)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *PageViewBatch) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent lookups.
// 1 makes the lookups strictly sequential.
func WithConcurrency(n int) BatchOption {
	return func(b *PageViewBatch) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewPageViewBatch creates a PageViewBatch reading collect from dataset.
func NewPageViewBatch(fetcher Fetcher, dataset, collect string, opts ...BatchOption) *PageViewBatch {
	b := &PageViewBatch{
		fetcher:     fetcher,
		dataset:     dataset,
		collect:     collect,
		concurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Lookup returns one record per path that has a page-view count, in the
// order of paths. Paths without a count are left out. Fetch failures only
// leave counts missing; the returned error is the context error when the
// lookups were cancelled.
func (b *PageViewBatch) Lookup(ctx context.Context, window model.Window, paths []string) ([]model.MetricRecord, error) {
	b.logger.Info("looking up page views",
		"dataset", b.dataset,
		"paths", len(paths),
		"concurrency", b.concurrency,
	)
	start := time.Now()

	// each goroutine writes only its own index
	found := make([]*model.MetricRecord, len(paths))
	var done atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records := b.fetcher.Fetch(ctx, platform.Query{
				Dataset:  b.dataset,
				Collect:  b.collect,
				Window:   window,
				FilterBy: path,
			})
			found[i] = firstValue(path, records)

			if n := done.Add(1); n%progressEvery == 0 {
				b.logger.Info("page view lookups", "done", n, "total", len(paths))
			}
			return nil
		})
	}
	err := g.Wait()

	records := make([]model.MetricRecord, 0, len(paths))
	for _, rec := range found {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	b.logger.Info("page view lookups complete",
		"paths", len(paths),
		"found", len(records),
		"elapsed", time.Since(start),
	)
	return records, err
}

// firstValue returns the first record for path that carries a value.
func firstValue(path string, records []model.MetricRecord) *model.MetricRecord {
	for _, rec := range records {
		if rec.PagePath == path && rec.HasValue() {
			return &rec
		}
	}
	return nil
}
