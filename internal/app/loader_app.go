// Package app wires configuration, storage, the ATDW client and the loader into one run.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"gotourism_loader/config"
	"gotourism_loader/config/values"
	"gotourism_loader/internal/atdw"
	"gotourism_loader/internal/loader"
	"gotourism_loader/internal/loader/attributes"
	"gotourism_loader/internal/loader/mapper"
	"gotourism_loader/internal/storage"
	"gotourism_loader/metrics"
	"gotourism_loader/migrations"
	"gotourism_loader/pkg/dbconnect"
	"gotourism_loader/pkg/dbconnect/migration"
	"gotourism_loader/pkg/dbconnect/postgres"
)

type LoaderApp struct {
	cfg *config.AppConfig
	log *zap.Logger
	db  dbconnect.Database

	// Prompt I/O for attribute confirmation.
	In  io.Reader
	Out io.Writer
}

func NewLoaderApp(cfg *config.AppConfig, log *zap.Logger) *LoaderApp {
	return &LoaderApp{
		cfg: cfg,
		log: log,
		db:  postgres.NewPgConnector(cfg.Postgres, log),
	}
}

// Run connects, optionally migrates, and performs one LoadBatch.
func (a *LoaderApp) Run(ctx context.Context, req loader.Request, migrate bool) (loader.Stats, error) {
	db, err := a.db.Connect(ctx)
	if err != nil {
		return loader.Stats{}, fmt.Errorf("error connecting to PostgreSQL: %w", err)
	}
	defer a.db.Close()

	if migrate {
		migrationApply := []migration.MigrationInterface{
			migration.NewGooseMigration(migrations.FS, ".", a.log),
		}
		for _, m := range migrationApply {
			if err := m.UpMigration(db); err != nil {
				return loader.Stats{}, fmt.Errorf("migration failed: %w", err)
			}
		}
		a.log.Info("migrations applied")
	}

	stopMetrics := a.serveMetrics()
	defer stopMetrics()

	keywords, err := values.LoadFacetKeywords(a.cfg.Facets.KeywordsFile)
	if err != nil {
		return loader.Stats{}, err
	}

	store := storage.New(db, a.log)
	registry := attributes.NewRegistry(store, a.decider(), attributes.NewFacetClassifier(keywords.Keywords), a.log)
	if err := registry.Load(ctx); err != nil {
		return loader.Stats{}, err
	}

	client := atdw.NewClient(a.cfg.ATDW, a.log)
	m := mapper.New(a.cfg.Loader.Source, a.cfg.Loader.BoundingBox, a.cfg.Loader.InactiveStatuses)

	l := loader.New(client, store, registry, m, loader.Options{
		BatchSize:      a.cfg.Loader.BatchSize,
		Workers:        a.cfg.Loader.FetchWorkers,
		QueueSize:      a.cfg.Loader.QueueSize,
		KeepAliveEvery: a.cfg.Loader.KeepAliveEvery,
		IdleFlush:      a.cfg.Loader.IdleFlush,
		SkipUnchanged:  a.cfg.Loader.SkipUnchanged,
	}, a.log)

	stats, err := l.LoadBatch(ctx, req)
	if counts, cerr := store.Counts(context.WithoutCancel(ctx)); cerr == nil {
		a.log.Info("store totals", zap.Any("rows", counts))
	}
	return stats, err
}

func (a *LoaderApp) decider() attributes.Decider {
	switch {
	case a.cfg.Loader.AutoAccept:
		return attributes.AutoAccept
	case a.In != nil && a.Out != nil:
		return attributes.NewPrompt(a.In, a.Out)
	default:
		a.log.Warn("no terminal for attribute confirmation, new attributes will be declined")
		return attributes.RejectAll
	}
}

// serveMetrics exposes /metrics while the run lasts when an address is configured.
func (a *LoaderApp) serveMetrics() func() {
	addr := a.cfg.Metrics.Addr
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.MetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.log.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
