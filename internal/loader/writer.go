package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gotourism_loader/internal/core/models"
	"gotourism_loader/internal/core/services"
	"gotourism_loader/internal/loader/fingerprint"
	"gotourism_loader/metrics"
)

const productSavepoint = "product_sp"

var errNoDetail = errors.New("empty product detail")

const (
	triggerSize      = "size"
	triggerFailure   = "failure"
	triggerIdle      = "idle"
	triggerFinal     = "final"
	triggerDiscovery = "discovery"
)

// written is a product whose writes sit in the open transaction.
// Its counters are applied only after the commit succeeds.
type written struct {
	productID  string
	inserted   bool
	attributes int
	media      int
}

// batchWriter is the single sequential consumer of fetched details. It owns
// the batch transaction and the batch counter.
type batchWriter struct {
	l         *Loader
	batchSize int
	lm        *metrics.LoadMetrics

	tx      services.ProductWriter
	pending []written
	// store calls must finish even when the run is cancelled
	storeCtx context.Context
}

func newBatchWriter(l *Loader, batchSize int, lm *metrics.LoadMetrics) *batchWriter {
	return &batchWriter{l: l, batchSize: batchSize, lm: lm}
}

func (w *batchWriter) run(ctx context.Context, results <-chan fetched) error {
	w.storeCtx = context.WithoutCancel(ctx)
	defer w.abandon()

	for {
		if err := ctx.Err(); err != nil {
			w.flush(triggerFinal)
			return fmt.Errorf("load cancelled: %w", err)
		}

		var idle <-chan time.Time
		if len(w.pending) > 0 && w.l.opts.IdleFlush > 0 {
			idle = time.After(w.l.opts.IdleFlush)
		}

		select {
		case res, ok := <-results:
			if !ok {
				w.flush(triggerFinal)
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("load cancelled: %w", err)
				}
				return nil
			}
			if isFatal(res.err) {
				w.l.log.Error("upstream retries exhausted, aborting run",
					zap.String("product_id", res.productID), zap.Error(res.err))
				w.lm.Processed.Add(1)
				w.lm.Errors.Add(1)
				metrics.RecordProduct(metrics.OutcomeFailed)
				w.flush(triggerFinal)
				return res.err
			}
			w.process(res)
		case <-idle:
			w.l.log.Debug("fetch queue idle, flushing pending products", zap.Int("pending", len(w.pending)))
			w.flush(triggerIdle)
		case <-ctx.Done():
		}
	}
}

// process обрабатывает один продукт: map → атрибуты → запись под savepoint.
func (w *batchWriter) process(res fetched) {
	n := w.lm.Processed.Add(1)
	log := w.l.log.With(zap.String("product_id", res.productID))

	if every := w.l.opts.KeepAliveEvery; every > 0 && int(n)%every == 0 {
		if err := w.l.store.Ping(w.storeCtx); err != nil {
			log.Warn("keep-alive ping failed", zap.Error(err))
		}
	}

	if res.err == nil && res.detail == nil {
		res.err = errNoDetail
	}
	if res.err != nil {
		w.fail(log, "fetch", res.err)
		return
	}

	rec, err := w.l.mapper.Map(res.detail)
	if err != nil {
		w.fail(log, "map", err)
		return
	}

	// Decider may block on a prompt; the batch transaction must not stay open meanwhile.
	if w.tx != nil && w.l.registry.Undecided(rec.Attributes) {
		w.flush(triggerDiscovery)
	}

	resolution, err := w.l.registry.ResolveOrDiscover(w.storeCtx, rec.Attributes)
	if err != nil {
		w.fail(log, "resolve attributes", err)
		return
	}
	w.lm.AttributesRegistered.Add(int32(len(resolution.Registered)))
	metrics.RecordAttributesRegistered(len(resolution.Registered))

	known, dropped := w.l.registry.Partition(rec.Attributes)
	if len(dropped) > 0 {
		w.lm.CoverageGaps.Add(int32(len(dropped)))
		log.Warn("attribute assignments dropped", zap.Strings("codes", dropped))
	}

	hash, err := fingerprint.HashJSON(rec.Product.RawSource)
	if err != nil {
		log.Warn("failed to fingerprint product", zap.Error(err))
		hash = ""
	}
	// Неполная загрузка не должна совпасть с отпечатком при следующем запуске.
	if len(dropped) == 0 {
		rec.Product.ContentHash = hash
	}

	if err := w.begin(); err != nil {
		w.fail(log, "begin", err)
		return
	}
	if err := w.tx.Savepoint(w.storeCtx, productSavepoint); err != nil {
		w.fail(log, "savepoint", err)
		return
	}

	if w.l.opts.SkipUnchanged && rec.Product.ContentHash != "" {
		stored, found, err := w.tx.ProductFingerprint(w.storeCtx, rec.Product.Source, rec.Product.ExternalID)
		if err != nil {
			w.rollbackProduct(log, "fingerprint", err)
			return
		}
		if found && stored == rec.Product.ContentHash {
			if err := w.tx.ReleaseSavepoint(w.storeCtx, productSavepoint); err != nil {
				w.rollbackProduct(log, "release savepoint", err)
				return
			}
			w.lm.Skipped.Add(1)
			metrics.RecordProduct(metrics.OutcomeSkipped)
			log.Debug("product unchanged, skipped")
			return
		}
	}

	inserted, err := w.write(rec, known)
	if err != nil {
		w.rollbackProduct(log, "write", err)
		return
	}
	if err := w.tx.ReleaseSavepoint(w.storeCtx, productSavepoint); err != nil {
		w.rollbackProduct(log, "release savepoint", err)
		return
	}

	w.pending = append(w.pending, written{
		productID:  res.productID,
		inserted:   inserted,
		attributes: len(known),
		media:      len(rec.Media),
	})
	if len(w.pending) >= w.batchSize {
		w.flush(triggerSize)
	}
}

// write issues every upsert/replace for one product in the open transaction.
func (w *batchWriter) write(rec *models.ProductRecord, assignments []string) (bool, error) {
	ctx := w.storeCtx
	p := &rec.Product

	var categoryID *int64
	if p.CategoryCode != "" {
		id, err := w.tx.UpsertCategory(ctx, p.CategoryCode, p.CategoryDescription)
		if err != nil {
			return false, err
		}
		categoryID = &id
	}

	id, inserted, err := w.tx.UpsertProduct(ctx, p, categoryID)
	if err != nil {
		return false, err
	}
	p.ID = id

	steps := []struct {
		name string
		fn   func() error
	}{
		{"product types", func() error { return w.tx.ReplaceProductTypes(ctx, id, categoryID, rec.ProductTypes) }},
		{"attributes", func() error { return w.tx.ReplaceAttributeAssignments(ctx, id, assignments) }},
		{"media", func() error { return w.tx.ReplaceMedia(ctx, id, rec.Media) }},
		{"addresses", func() error { return w.tx.ReplaceAddresses(ctx, id, rec.Addresses) }},
		{"contacts", func() error { return w.tx.ReplaceContacts(ctx, id, rec.Contacts) }},
		{"services", func() error { return w.tx.ReplaceServices(ctx, id, rec.Services) }},
		{"rates", func() error { return w.tx.ReplaceRates(ctx, id, rec.Rates) }},
		{"deals", func() error { return w.tx.ReplaceDeals(ctx, id, rec.Deals) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return false, fmt.Errorf("replace %s: %w", step.name, err)
		}
	}
	return inserted, nil
}

func (w *batchWriter) begin() error {
	if w.tx != nil {
		return nil
	}
	tx, err := w.l.store.Begin(w.storeCtx)
	if err != nil {
		return err
	}
	w.tx = tx
	return nil
}

// rollbackProduct discards the current product's writes and flushes the
// products written before it. If the savepoint cannot be restored the whole
// transaction is lost.
func (w *batchWriter) rollbackProduct(log *zap.Logger, stage string, cause error) {
	if err := w.tx.RollbackToSavepoint(w.storeCtx, productSavepoint); err != nil {
		log.Error("failed to roll back to savepoint, discarding batch",
			zap.Int("pending", len(w.pending)), zap.Error(err))
		w.discard()
	}
	w.fail(log, stage, cause)
}

// fail counts a failed product and commits whatever the batch already holds,
// so the batch counter starts from zero after every failure.
func (w *batchWriter) fail(log *zap.Logger, stage string, err error) {
	w.lm.Errors.Add(1)
	metrics.RecordProduct(metrics.OutcomeFailed)
	log.Error("failed to load product", zap.String("stage", stage), zap.Error(err))
	w.flush(triggerFailure)
}

// flush commits the open transaction. Counters of pending products are
// applied on success; on failure they are counted as errors.
func (w *batchWriter) flush(trigger string) {
	if w.tx == nil {
		return
	}
	if len(w.pending) == 0 {
		if err := w.tx.Rollback(); err != nil {
			w.l.log.Warn("failed to close empty transaction", zap.Error(err))
		}
		w.tx = nil
		return
	}

	if err := w.tx.Commit(); err != nil {
		w.l.log.Error("batch commit failed",
			zap.String("trigger", trigger), zap.Int("products", len(w.pending)), zap.Error(err))
		w.discard()
		return
	}

	for _, p := range w.pending {
		if p.inserted {
			w.lm.Inserted.Add(1)
			metrics.RecordProduct(metrics.OutcomeInserted)
		} else {
			w.lm.Updated.Add(1)
			metrics.RecordProduct(metrics.OutcomeUpdated)
		}
		w.lm.AttributesAdded.Add(int32(p.attributes))
		w.lm.MediaAdded.Add(int32(p.media))
	}
	w.lm.Commits.Add(1)
	metrics.RecordCommit(trigger)
	w.l.log.Info("batch committed", zap.String("trigger", trigger), zap.Int("products", len(w.pending)))

	w.tx = nil
	w.pending = w.pending[:0]
}

// discard rolls back the open transaction and counts its pending products as failed.
func (w *batchWriter) discard() {
	if w.tx == nil {
		return
	}
	if err := w.tx.Rollback(); err != nil {
		w.l.log.Warn("rollback failed", zap.Error(err))
	}
	for range w.pending {
		w.lm.Errors.Add(1)
		metrics.RecordProduct(metrics.OutcomeFailed)
	}
	w.tx = nil
	w.pending = w.pending[:0]
}

// abandon releases a transaction left open by an unexpected return path.
func (w *batchWriter) abandon() {
	if w.tx != nil {
		w.discard()
	}
}
