// Package query serves read operations over the current graph snapshot.
//
// A Service resolves user-facing airport references (ids or IATA codes),
// runs the routing and analytics operations on an immutable snapshot and
// caches results per snapshot generation. Cached values are shared between
// callers and must be treated as read-only.
package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/Benny93/flightgraph/internal/analytics"
	"github.com/Benny93/flightgraph/internal/graph"
	"github.com/Benny93/flightgraph/internal/logging"
	"github.com/Benny93/flightgraph/internal/metrics"
	"github.com/Benny93/flightgraph/internal/routing"
	"github.com/Benny93/flightgraph/internal/storage"
)

var (
	// ErrUnknownAirport is returned when an airport reference matches no
	// airport by id or IATA code.
	ErrUnknownAirport = errors.New("query: unknown airport")

	// ErrSearchUnavailable is returned by Search when no storage backend is
	// configured.
	ErrSearchUnavailable = errors.New("query: airport search requires a snapshot store")
)

// Options configures a Service.
type Options struct {
	// CacheTTL is how long results stay cached. Zero disables caching.
	CacheTTL time.Duration

	// MaxHops is the hop bound used when a caller passes a negative bound.
	MaxHops int

	// Community holds the Louvain settings. Its Limit is overridden per call.
	Community analytics.CommunityOptions

	// Backend serves airport search. May be nil.
	Backend storage.StorageBackend

	Logger  *zap.SugaredLogger
	Metrics *metrics.Registry
}

// Service runs queries against a graph store.
type Service struct {
	mu    sync.RWMutex
	store *graph.Store

	cache *cache.Cache
	opts  Options
	log   *zap.SugaredLogger
}

// NewService creates a query service over store.
func NewService(store *graph.Store, opts Options) *Service {
	s := &Service{
		store: store,
		opts:  opts,
		log:   logging.OrNop(opts.Logger),
	}
	if opts.CacheTTL > 0 {
		s.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return s
}

// Store returns the store queries currently run against.
func (s *Service) Store() *graph.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// Swap replaces the store, e.g. after a reload, and drops cached results.
// Queries already running finish on their old snapshot.
func (s *Service) Swap(store *graph.Store) {
	s.mu.Lock()
	s.store = store
	s.mu.Unlock()

	if s.cache != nil {
		s.cache.Flush()
	}
	s.opts.Metrics.SetGraphSize(store.AirportCount(), store.AirlineCount(), store.FlightCount())
	s.log.Infow("graph swapped",
		"airports", store.AirportCount(),
		"flights", store.FlightCount(),
	)
}

// Snapshot returns the current snapshot.
func (s *Service) Snapshot() *graph.Snapshot {
	return s.Store().Snapshot()
}

// cached runs fn once per (operation, generation, args) while the entry
// lives in the cache, recording latency and cache metrics.
func cached[T any](s *Service, op string, snap *graph.Snapshot, args string, fn func() (T, error)) (T, error) {
	start := time.Now()
	defer func() { s.opts.Metrics.ObserveQuery(op, time.Since(start)) }()

	if s.cache == nil {
		return fn()
	}

	key := fmt.Sprintf("%s:%d:%s", op, snap.Generation(), args)
	if v, ok := s.cache.Get(key); ok {
		s.opts.Metrics.ObserveCache(op, true)
		return v.(T), nil
	}
	s.opts.Metrics.ObserveCache(op, false)

	v, err := fn()
	if err != nil {
		return v, err
	}
	s.cache.SetDefault(key, v)
	return v, nil
}

// ResolveAirport turns a reference into an airport id. Numeric references
// are airport ids; anything else is matched case-insensitively against
// IATA codes. When several airports share a code the lowest id wins.
func (s *Service) ResolveAirport(snap *graph.Snapshot, ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if _, ok := snap.AirportByID(id); ok {
			return id, nil
		}
		return 0, fmt.Errorf("%w: id %d", ErrUnknownAirport, id)
	}

	code := strings.ToUpper(ref)
	if code == "" {
		return 0, fmt.Errorf("%w: empty reference", ErrUnknownAirport)
	}
	matches := snap.AirportsByIATA(code)
	if len(matches) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAirport, ref)
	}

	// Dense indices follow ascending airport id.
	chosen := snap.Airport(matches[0]).ID
	if len(matches) > 1 {
		s.log.Warnw("ambiguous IATA code, using lowest airport id",
			"iata", code,
			"matches", len(matches),
			"airport_id", chosen,
		)
	}
	return chosen, nil
}

func (s *Service) resolvePair(snap *graph.Snapshot, from, to string) (int64, int64, error) {
	src, err := s.ResolveAirport(snap, from)
	if err != nil {
		return 0, 0, err
	}
	dst, err := s.ResolveAirport(snap, to)
	if err != nil {
		return 0, 0, err
	}
	return src, dst, nil
}

// Stats returns the entity counts of the current snapshot.
func (s *Service) Stats(ctx context.Context) analytics.Stats {
	return analytics.CountEntities(s.Snapshot())
}

type pathResult struct {
	path  *routing.Path
	found bool
}

// ShortestPath finds the fewest-hop route. A negative maxHops uses the
// configured default.
func (s *Service) ShortestPath(ctx context.Context, from, to string, maxHops int) (*routing.Path, bool, error) {
	snap := s.Snapshot()
	src, dst, err := s.resolvePair(snap, from, to)
	if err != nil {
		return nil, false, err
	}
	if maxHops < 0 {
		maxHops = s.opts.MaxHops
	}

	res, err := cached(s, "path", snap, fmt.Sprintf("%d:%d:%d", src, dst, maxHops), func() (pathResult, error) {
		p, ok, err := routing.ShortestPath(snap, src, dst, maxHops)
		return pathResult{p, ok}, err
	})
	return res.path, res.found, err
}

type weightedResult struct {
	path  *routing.WeightedPath
	found bool
}

// Distance finds the minimum great-circle distance route.
func (s *Service) Distance(ctx context.Context, from, to string) (*routing.WeightedPath, bool, error) {
	snap := s.Snapshot()
	src, dst, err := s.resolvePair(snap, from, to)
	if err != nil {
		return nil, false, err
	}

	res, err := cached(s, "distance", snap, fmt.Sprintf("%d:%d", src, dst), func() (weightedResult, error) {
		p, ok, err := routing.WeightedShortestPath(snap, src, dst)
		return weightedResult{p, ok}, err
	})
	return res.path, res.found, err
}

// CutPoints returns the articulation points of the route network.
func (s *Service) CutPoints(ctx context.Context) (*analytics.ArticulationResult, error) {
	snap := s.Snapshot()
	return cached(s, "cut_points", snap, "", func() (*analytics.ArticulationResult, error) {
		return analytics.ArticulationPoints(ctx, snap)
	})
}

// Communities runs Louvain community detection. limit caps returned rows.
func (s *Service) Communities(ctx context.Context, limit int) (*analytics.CommunityResult, error) {
	snap := s.Snapshot()
	opts := s.opts.Community
	opts.Limit = limit
	return cached(s, "communities", snap, strconv.Itoa(limit), func() (*analytics.CommunityResult, error) {
		return analytics.DetectCommunities(ctx, snap, opts)
	})
}

// Hubs lists airports above the mean destination count.
func (s *Service) Hubs(ctx context.Context, limit int) (*analytics.HubResult, error) {
	snap := s.Snapshot()
	return cached(s, "hubs", snap, strconv.Itoa(limit), func() (*analytics.HubResult, error) {
		return analytics.HubsAboveAverage(snap, limit), nil
	})
}

// MultiCarrier lists routes flown by several airline codes. limit <= 0
// returns all.
func (s *Service) MultiCarrier(ctx context.Context, limit int) ([]analytics.MultiCarrierRow, error) {
	snap := s.Snapshot()
	rows, err := cached(s, "multi_carrier", snap, "", func() ([]analytics.MultiCarrierRow, error) {
		return analytics.MultiCarrierRoutes(snap), nil
	})
	return truncate(rows, limit), err
}

// TopRoutes lists the busiest routes of one airline code.
func (s *Service) TopRoutes(ctx context.Context, code string, limit int) ([]analytics.RouteCountRow, error) {
	snap := s.Snapshot()
	code = strings.ToUpper(strings.TrimSpace(code))
	return cached(s, "top_routes", snap, fmt.Sprintf("%s:%d", code, limit), func() ([]analytics.RouteCountRow, error) {
		return analytics.TopAirlineRoutes(snap, code, limit), nil
	})
}

// TwoHop lists airports reachable in exactly two flights from origin.
func (s *Service) TwoHop(ctx context.Context, origin string) ([]analytics.AirportRow, error) {
	snap := s.Snapshot()
	id, err := s.ResolveAirport(snap, origin)
	if err != nil {
		return nil, err
	}
	return cached(s, "two_hop", snap, strconv.FormatInt(id, 10), func() ([]analytics.AirportRow, error) {
		return analytics.TwoHopDestinations(snap, id)
	})
}

// Carriers lists the airlines flying between two countries.
func (s *Service) Carriers(ctx context.Context, fromCountry, toCountry string) ([]analytics.AirlineRow, error) {
	snap := s.Snapshot()
	return cached(s, "carriers", snap, fromCountry+"\x00"+toCountry, func() ([]analytics.AirlineRow, error) {
		return analytics.AirlinesBetweenCountries(snap, fromCountry, toCountry), nil
	})
}

// Sinks lists airports with inbound but no outbound flights. limit <= 0
// returns all.
func (s *Service) Sinks(ctx context.Context, limit int) ([]analytics.AirportRow, error) {
	snap := s.Snapshot()
	rows, err := cached(s, "sinks", snap, "", func() ([]analytics.AirportRow, error) {
		return analytics.SinkAirports(snap), nil
	})
	return truncate(rows, limit), err
}

// Country lists the airports of one country.
func (s *Service) Country(ctx context.Context, country string) ([]analytics.CountryAirportRow, error) {
	snap := s.Snapshot()
	return cached(s, "country", snap, country, func() ([]analytics.CountryAirportRow, error) {
		return analytics.AirportsInCountry(snap, country), nil
	})
}

// Direct lists the outbound flights of an airport.
func (s *Service) Direct(ctx context.Context, origin string) ([]analytics.DirectFlightRow, error) {
	snap := s.Snapshot()
	id, err := s.ResolveAirport(snap, origin)
	if err != nil {
		return nil, err
	}
	return cached(s, "direct", snap, strconv.FormatInt(id, 10), func() ([]analytics.DirectFlightRow, error) {
		return analytics.DirectFlightsFrom(snap, id)
	})
}

// TopAirlines ranks airlines by distinct destinations.
func (s *Service) TopAirlines(ctx context.Context, limit int) ([]analytics.AirlineReachRow, error) {
	snap := s.Snapshot()
	return cached(s, "top_airlines", snap, strconv.Itoa(limit), func() ([]analytics.AirlineReachRow, error) {
		return analytics.TopAirlinesByDestinations(snap, limit), nil
	})
}

// Search finds airports by name, city, country or code in the exported
// snapshot.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]storage.SearchResult, error) {
	if s.opts.Backend == nil {
		return nil, ErrSearchUnavailable
	}
	start := time.Now()
	defer func() { s.opts.Metrics.ObserveQuery("search", time.Since(start)) }()
	return s.opts.Backend.SearchAirports(ctx, query, limit)
}

func truncate[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
