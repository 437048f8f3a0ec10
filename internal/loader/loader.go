// Package loader runs the incremental ATDW load: it pulls product details,
// maps them and writes them to the store in batched transactions.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gotourism_loader/internal/atdw"
	"gotourism_loader/internal/core/services"
	"gotourism_loader/internal/loader/attributes"
	"gotourism_loader/internal/loader/mapper"
	"gotourism_loader/metrics"
)

// Source is the upstream catalogue as seen by the loader.
type Source interface {
	Search(ctx context.Context, f atdw.Filter) ([]atdw.ProductSummary, error)
	Delta(ctx context.Context, since string, categories []string) ([]atdw.ProductSummary, error)
	FetchDetail(ctx context.Context, productID string) (*atdw.ProductDetail, error)
}

var _ Source = (*atdw.Client)(nil)

const (
	defaultBatchSize      = 10
	defaultKeepAliveEvery = 100
)

type Options struct {
	BatchSize      int
	Workers        int
	QueueSize      int
	KeepAliveEvery int
	// IdleFlush commits pending products when no detail arrives for this long. Zero disables it.
	IdleFlush     time.Duration
	SkipUnchanged bool
}

// Request selects what one LoadBatch call pulls. A non-empty Since switches
// from the search endpoint to the delta feed.
type Request struct {
	Filter     atdw.Filter
	Since      string
	Categories []string
	Limit      int
	// BatchSize overrides Options.BatchSize when positive.
	BatchSize int
}

type Stats struct {
	Processed            int
	Inserted             int
	Updated              int
	Skipped              int
	AttributesAdded      int
	AttributesRegistered int
	MediaAdded           int
	Errors               int
	CoverageGaps         int
	Commits              int
	Duration             time.Duration
}

func statsFrom(m *metrics.LoadMetrics) Stats {
	return Stats{
		Processed:            int(m.Processed.Load()),
		Inserted:             int(m.Inserted.Load()),
		Updated:              int(m.Updated.Load()),
		Skipped:              int(m.Skipped.Load()),
		AttributesAdded:      int(m.AttributesAdded.Load()),
		AttributesRegistered: int(m.AttributesRegistered.Load()),
		MediaAdded:           int(m.MediaAdded.Load()),
		Errors:               int(m.Errors.Load()),
		CoverageGaps:         int(m.CoverageGaps.Load()),
		Commits:              int(m.Commits.Load()),
	}
}

type Loader struct {
	source   Source
	store    services.Gateway
	registry *attributes.Registry
	mapper   *mapper.Mapper
	opts     Options
	log      *zap.Logger
}

func New(source Source, store services.Gateway, registry *attributes.Registry, m *mapper.Mapper, opts Options, log *zap.Logger) *Loader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = opts.Workers * 2
	}
	if opts.KeepAliveEvery <= 0 {
		opts.KeepAliveEvery = defaultKeepAliveEvery
	}
	return &Loader{
		source:   source,
		store:    store,
		registry: registry,
		mapper:   m,
		opts:     opts,
		log:      log.Named("loader"),
	}
}

// fetched is one detail result travelling from a fetch worker to the writer.
type fetched struct {
	productID string
	detail    *atdw.ProductDetail
	err       error
}

// LoadBatch pulls the selected products and writes them. Products already
// committed stay committed when the run is aborted; the returned Stats cover
// everything processed up to that point.
func (l *Loader) LoadBatch(ctx context.Context, req Request) (Stats, error) {
	started := time.Now()
	lm := &metrics.LoadMetrics{}

	summaries, err := l.list(ctx, req)
	if err != nil {
		return Stats{Duration: time.Since(started)}, fmt.Errorf("failed to list products: %w", err)
	}
	if req.Limit > 0 && len(summaries) > req.Limit {
		summaries = summaries[:req.Limit]
	}
	l.log.Info("products selected", zap.Int("count", len(summaries)), zap.Int("workers", l.opts.Workers))

	batchSize := l.opts.BatchSize
	if req.BatchSize > 0 {
		batchSize = req.BatchSize
	}

	fetchCtx, stopFetch := context.WithCancel(ctx)
	defer stopFetch()
	results := l.fetch(fetchCtx, summaries, lm)

	w := newBatchWriter(l, batchSize, lm)
	runErr := w.run(ctx, results)

	stopFetch()
	for range results {
	}

	stats := statsFrom(lm)
	stats.Duration = time.Since(started)
	l.log.Info("load finished",
		zap.Int("processed", stats.Processed),
		zap.Int("inserted", stats.Inserted),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped),
		zap.Int("errors", stats.Errors),
		zap.Int("commits", stats.Commits),
		zap.Duration("duration", stats.Duration),
	)
	return stats, runErr
}

func (l *Loader) list(ctx context.Context, req Request) ([]atdw.ProductSummary, error) {
	if req.Since != "" {
		categories := req.Categories
		if len(categories) == 0 {
			categories = req.Filter.Categories
		}
		return l.source.Delta(ctx, req.Since, categories)
	}
	return l.source.Search(ctx, req.Filter)
}

// fetch запускает воркеры, скачивающие детали продуктов в ограниченный канал.
// Канал закрывается, когда все воркеры завершились.
func (l *Loader) fetch(ctx context.Context, summaries []atdw.ProductSummary, lm *metrics.LoadMetrics) <-chan fetched {
	ids := make(chan string)
	results := make(chan fetched, l.opts.QueueSize)
	processed := &sync.Map{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(ids)
		for _, s := range summaries {
			id := s.ProductID.Trim()
			if id == "" {
				l.log.Warn("summary without productId skipped", zap.String("name", s.ProductName.Trim()))
				lm.Errors.Add(1)
				continue
			}
			if _, loaded := processed.LoadOrStore(id, true); loaded {
				continue
			}
			select {
			case ids <- id:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for i := 0; i < l.opts.Workers; i++ {
		workerID := i
		g.Go(func() error {
			for id := range ids {
				detail, err := l.source.FetchDetail(gctx, id)
				if err != nil && gctx.Err() != nil {
					return nil
				}
				if err != nil {
					l.log.Debug("fetch failed", zap.Int("worker", workerID), zap.String("product_id", id), zap.Error(err))
				}
				select {
				case results <- fetched{productID: id, detail: detail, err: err}:
				case <-gctx.Done():
					return nil
				}
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()
	return results
}

// isFatal reports whether a fetch error should abort the whole run.
func isFatal(err error) bool {
	return errors.Is(err, atdw.ErrRetriesExhausted)
}
