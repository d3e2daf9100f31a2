package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Benny93/flightgraph/internal/config"
	"github.com/Benny93/flightgraph/internal/graph"
	"github.com/Benny93/flightgraph/internal/ingestion"
	"github.com/Benny93/flightgraph/internal/metrics"
	"github.com/Benny93/flightgraph/internal/query"
	"github.com/Benny93/flightgraph/internal/routing"
	"github.com/Benny93/flightgraph/internal/storage"
)

func pipelineOptions(cfg config.Config, log *zap.SugaredLogger, reg *metrics.Registry) ingestion.Options {
	return ingestion.Options{
		BatchSize: cfg.Ingest.BatchSize,
		Workers:   cfg.Ingest.Workers,
		Logger:    log,
		Metrics:   reg,
	}
}

// ingestDataFiles builds a fresh store from the configured data files.
func ingestDataFiles(ctx context.Context, cfg config.Config, log *zap.SugaredLogger, reg *metrics.Registry) (*graph.Store, *ingestion.PipelineResult, error) {
	store := graph.NewStore()
	result, err := ingestion.RunPipeline(ctx, store, cfg, pipelineOptions(cfg, log, reg), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("loading data files: %w", err)
	}
	return store, result, nil
}

// restoreSnapshot loads the exported badger snapshot. It returns
// storage.ErrNoSnapshot when nothing was exported yet.
func restoreSnapshot(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (*graph.Store, *storage.BadgerBackend, error) {
	dir := cfg.Storage.BadgerDir()
	if dir == "" {
		return nil, nil, storage.ErrNoSnapshot
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, nil, storage.ErrNoSnapshot
	}

	backend := storage.NewBadgerBackend()
	if err := backend.Initialize(dir, true); err != nil {
		return nil, nil, fmt.Errorf("opening snapshot: %w", err)
	}

	store := graph.NewStore()
	meta, err := backend.Restore(ctx, store)
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}
	if meta.DistancesComputed {
		routing.PrecomputeDistances(store)
	}

	log.Debugw("restored snapshot",
		"snapshot_id", meta.SnapshotID,
		"created_at", meta.CreatedAt,
		"airports", meta.Airports,
		"flights", meta.Flights,
	)
	return store, backend, nil
}

// openGraph restores the snapshot, or ingests the data files when none was
// exported. The returned backend serves airport search and must be closed.
func openGraph(ctx context.Context, cfg config.Config, log *zap.SugaredLogger, reg *metrics.Registry) (*graph.Store, storage.StorageBackend, error) {
	store, backend, err := restoreSnapshot(ctx, cfg, log)
	switch {
	case err == nil:
		return store, backend, nil
	case !errors.Is(err, storage.ErrNoSnapshot):
		return nil, nil, fmt.Errorf("restoring snapshot: %w", err)
	}

	log.Infow("no snapshot found, reading data files", "dir", cfg.Data.Dir)
	store, _, err = ingestDataFiles(ctx, cfg, log, reg)
	if err != nil {
		return nil, nil, err
	}

	mem := storage.NewMemoryBackend()
	if _, err := mem.BulkLoad(ctx, store.Snapshot()); err != nil {
		return nil, nil, fmt.Errorf("indexing airports: %w", err)
	}
	return store, mem, nil
}

func newService(cfg config.Config, store *graph.Store, backend storage.StorageBackend, log *zap.SugaredLogger, reg *metrics.Registry) *query.Service {
	return query.NewService(store, query.Options{
		CacheTTL:  cfg.Cache.TTL,
		MaxHops:   cfg.Routing.MaxHops,
		Community: cfg.Louvain.CommunityOptions(0),
		Backend:   backend,
		Logger:    log,
		Metrics:   reg,
	})
}

// withService opens the graph and runs fn against a query service over it.
func (g *Globals) withService(fn func(ctx context.Context, svc *query.Service) error) error {
	cfg, log, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signalContext()
	defer cancel()

	store, backend, err := openGraph(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	return fn(ctx, newService(cfg, store, backend, log, nil))
}
