// Package ingestion loads OpenFlights data into the graph store.
package ingestion

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Benny93/flightgraph/internal/config"
	"github.com/Benny93/flightgraph/internal/graph"
	"github.com/Benny93/flightgraph/internal/logging"
	"github.com/Benny93/flightgraph/internal/metrics"
	"github.com/Benny93/flightgraph/internal/parsers"
	"github.com/Benny93/flightgraph/internal/routing"
)

// Defaults applied when Options leaves a field at zero.
const (
	DefaultBatchSize = 1000
	DefaultWorkers   = 4
)

// Options tunes a Pipeline.
type Options struct {
	BatchSize int
	Workers   int
	Logger    *zap.SugaredLogger
	Metrics   *metrics.Registry
}

// PipelineResult summarizes a pipeline run.
type PipelineResult struct {
	Airports graph.UpsertResult
	Airlines graph.UpsertResult
	Flights  graph.InsertResult

	ParseErrors int
	Filtered    int

	// Weighted is the number of flights that received a distance.
	Weighted     int
	DurationSecs float64
}

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// Pipeline applies record batches to a store. Airport and airline batches
// run in parallel; flights are appended sequentially so flight ids follow
// input order.
type Pipeline struct {
	store *graph.Store
	opts  Options
	log   *zap.SugaredLogger
}

// NewPipeline creates a pipeline writing into store.
func NewPipeline(store *graph.Store, opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Pipeline{store: store, opts: opts, log: logging.OrNop(opts.Logger)}
}

// partition returns the worker responsible for an identity. The same id
// always maps to the same worker, so its records are applied in input order.
func partition(id int64, workers int) int {
	w := id % int64(workers)
	if w < 0 {
		w += int64(workers)
	}
	return int(w)
}

// upsertPartitioned splits records by key across workers and applies each
// partition in batches.
func upsertPartitioned[R any](ctx context.Context, p *Pipeline, records []R, key func(R) int64, apply func([]R) graph.UpsertResult) (graph.UpsertResult, error) {
	workers := p.opts.Workers
	parts := make([][]int, workers)
	for i, r := range records {
		w := partition(key(r), workers)
		parts[w] = append(parts[w], i)
	}

	results := make([]graph.UpsertResult, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w, idx := range parts {
		if len(idx) == 0 {
			continue
		}
		g.Go(func() error {
			res := &results[w]
			for start := 0; start < len(idx); start += p.opts.BatchSize {
				if err := gctx.Err(); err != nil {
					return err
				}
				end := min(start+p.opts.BatchSize, len(idx))
				batch := make([]R, 0, end-start)
				for _, i := range idx[start:end] {
					batch = append(batch, records[i])
				}

				r := apply(batch)
				res.Applied += r.Applied
				res.Skipped += r.Skipped
				for _, e := range r.Errors {
					res.Errors = append(res.Errors, graph.RecordError{Index: idx[start+e.Index], Err: e.Err})
				}
			}
			return nil
		})
	}

	var merged graph.UpsertResult
	err := g.Wait()
	for _, r := range results {
		merged.Applied += r.Applied
		merged.Skipped += r.Skipped
		merged.Errors = append(merged.Errors, r.Errors...)
	}
	sort.Slice(merged.Errors, func(i, j int) bool {
		return merged.Errors[i].Index < merged.Errors[j].Index
	})
	return merged, err
}

// UpsertAirports applies airport records across the worker pool.
func (p *Pipeline) UpsertAirports(ctx context.Context, records []graph.AirportRecord) (graph.UpsertResult, error) {
	res, err := upsertPartitioned(ctx, p, records,
		func(r graph.AirportRecord) int64 { return r.AirportID },
		p.store.UpsertAirports,
	)
	p.opts.Metrics.ObserveIngest(parsers.KindAirports, res.Applied, res.Skipped)
	return res, err
}

// UpsertAirlines applies airline records across the worker pool. Records
// without an id all land on one worker and are skipped by the store.
func (p *Pipeline) UpsertAirlines(ctx context.Context, records []graph.AirlineRecord) (graph.UpsertResult, error) {
	res, err := upsertPartitioned(ctx, p, records,
		func(r graph.AirlineRecord) int64 {
			if r.AirlineID == nil {
				return 0
			}
			return *r.AirlineID
		},
		p.store.UpsertAirlines,
	)
	p.opts.Metrics.ObserveIngest(parsers.KindAirlines, res.Applied, res.Skipped)
	return res, err
}

// InsertFlights appends route records batch by batch in input order.
func (p *Pipeline) InsertFlights(ctx context.Context, records []graph.RouteRecord) (graph.InsertResult, error) {
	var res graph.InsertResult
	for start := 0; start < len(records); start += p.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			p.opts.Metrics.ObserveIngest(parsers.KindRoutes, res.Inserted, res.Skipped)
			return res, err
		}
		end := min(start+p.opts.BatchSize, len(records))

		r := p.store.InsertFlights(records[start:end])
		res.Inserted += r.Inserted
		res.Skipped += r.Skipped
		for _, e := range r.Errors {
			res.Errors = append(res.Errors, graph.RecordError{Index: start + e.Index, Err: e.Err})
		}
	}
	p.opts.Metrics.ObserveIngest(parsers.KindRoutes, res.Inserted, res.Skipped)
	return res, nil
}

// Load ingests a dataset: airports and airlines in parallel, a barrier,
// then flights, then distance preprocessing.
func (p *Pipeline) Load(ctx context.Context, ds *Dataset, progress ProgressCallback) (*PipelineResult, error) {
	start := time.Now()
	result := &PipelineResult{ParseErrors: ds.ParseErrors, Filtered: ds.Filtered}
	report := func(phase string, v float64) {
		if progress != nil {
			progress(phase, v)
		}
	}

	report("Upserting airports and airlines", 0.0)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		result.Airports, err = p.UpsertAirports(gctx, ds.Airports)
		return err
	})
	g.Go(func() error {
		var err error
		result.Airlines, err = p.UpsertAirlines(gctx, ds.Airlines)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("upserting nodes: %w", err)
	}
	report("Upserting airports and airlines", 1.0)

	report("Inserting flights", 0.0)
	flights, err := p.InsertFlights(ctx, ds.Routes)
	if err != nil {
		return nil, fmt.Errorf("inserting flights: %w", err)
	}
	result.Flights = flights
	report("Inserting flights", 1.0)

	report("Computing distances", 0.0)
	result.Weighted = routing.PrecomputeDistances(p.store)
	report("Computing distances", 1.0)

	result.DurationSecs = time.Since(start).Seconds()
	for kind, n := range ds.rejected {
		p.opts.Metrics.ObserveIngest(kind, 0, n)
	}
	p.opts.Metrics.SetGraphSize(p.store.AirportCount(), p.store.AirlineCount(), p.store.FlightCount())

	p.log.Infow("ingestion complete",
		"airports", result.Airports.Applied,
		"airlines", result.Airlines.Applied,
		"airlines_skipped", result.Airlines.Skipped,
		"flights", result.Flights.Inserted,
		"flights_skipped", result.Flights.Skipped,
		"weighted", result.Weighted,
		"parse_errors", result.ParseErrors,
		"filtered", result.Filtered,
		"duration_secs", result.DurationSecs,
	)
	return result, nil
}

// RunPipeline reads, parses and ingests the data files named by cfg into
// store.
func RunPipeline(ctx context.Context, store *graph.Store, cfg config.Config, opts Options, progress ProgressCallback) (*PipelineResult, error) {
	if opts.BatchSize == 0 {
		opts.BatchSize = cfg.Ingest.BatchSize
	}
	if opts.Workers == 0 {
		opts.Workers = cfg.Ingest.Workers
	}
	log := logging.OrNop(opts.Logger)

	if progress != nil {
		progress("Reading data files", 0.0)
	}
	files, err := ReadDataFiles(cfg.Data)
	if err != nil {
		return nil, err
	}
	ds, err := ParseDataFiles(files, log)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress("Reading data files", 1.0)
	}

	return NewPipeline(store, opts).Load(ctx, ds, progress)
}
