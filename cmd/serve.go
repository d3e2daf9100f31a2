package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Benny93/flightgraph/internal/config"
	"github.com/Benny93/flightgraph/internal/ingestion"
	"github.com/Benny93/flightgraph/internal/metrics"
	"github.com/Benny93/flightgraph/internal/query"
	"github.com/Benny93/flightgraph/internal/storage"
	"github.com/Benny93/flightgraph/mcp"
)

// MCPCmd starts the MCP server.
type MCPCmd struct{}

// Run executes the mcp command.
func (c *MCPCmd) Run(g *Globals) error {
	// Note: command output stays off stdout, it carries JSON-RPC only.
	return g.withService(func(ctx context.Context, svc *query.Service) error {
		return mcp.NewServer(svc, nil).Run(ctx, g.stdin(), g.stdout())
	})
}

// ServeCmd starts the MCP server with optional data reloading and metrics.
type ServeCmd struct {
	Watch       bool   `short:"w" help:"Reload the graph when the data files change"`
	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address (overrides metrics.addr)"`
}

// Run executes the serve command.
func (c *ServeCmd) Run(g *Globals) error {
	cfg, log, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signalContext()
	defer cancel()

	reg := metrics.NewRegistry()
	store, backend, err := openGraph(ctx, cfg, log, reg)
	if err != nil {
		return err
	}

	// Search runs on an in-memory index so reloads can refresh it.
	search, ok := backend.(*storage.MemoryBackend)
	if !ok {
		search = storage.NewMemoryBackend()
		if _, err := search.BulkLoad(ctx, store.Snapshot()); err != nil {
			_ = backend.Close()
			return fmt.Errorf("indexing airports: %w", err)
		}
		_ = backend.Close()
	}

	svc := newService(cfg, store, search, log, reg)
	reg.SetGraphSize(store.AirportCount(), store.AirlineCount(), store.FlightCount())

	addr := cfg.Metrics.Addr
	if c.MetricsAddr != "" {
		addr = c.MetricsAddr
	}
	if addr != "" {
		srv := startMetricsServer(addr, reg, log)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if c.Watch {
		reload := reloadGraph(cfg, svc, search, log, reg)
		go func() {
			err := ingestion.WatchDataFiles(ctx, cfg.Data, reload, log)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Errorw("watch stopped", "error", err)
			}
		}()
	}

	log.Infow("starting MCP server",
		"airports", store.AirportCount(),
		"flights", store.FlightCount(),
		"watch", c.Watch,
		"metrics_addr", addr,
	)
	return mcp.NewServer(svc, log).Run(ctx, g.stdin(), g.stdout())
}

// reloadGraph rebuilds the graph from the data files and swaps it into svc.
func reloadGraph(cfg config.Config, svc *query.Service, search *storage.MemoryBackend, log *zap.SugaredLogger, reg *metrics.Registry) ingestion.ReloadFunc {
	return func(ctx context.Context) error {
		store, result, err := ingestDataFiles(ctx, cfg, log, reg)
		if err != nil {
			return err
		}
		if _, err := search.BulkLoad(ctx, store.Snapshot()); err != nil {
			return fmt.Errorf("indexing airports: %w", err)
		}
		svc.Swap(store)
		reg.IncReloads()
		log.Infow("graph reloaded",
			"airports", result.Airports.Applied,
			"flights", result.Flights.Inserted,
			"duration_secs", result.DurationSecs,
		)
		return nil
	}
}

func startMetricsServer(addr string, reg *metrics.Registry, log *zap.SugaredLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Infow("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("metrics server failed", "error", err)
		}
	}()
	return srv
}
