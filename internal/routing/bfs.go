package routing

import (
	"errors"
	"fmt"

	"github.com/Benny93/flightgraph/internal/graph"
)

var (
	// ErrInvalidHopBound is returned when the hop bound is negative.
	ErrInvalidHopBound = errors.New("routing: hop bound must be non-negative")

	// ErrDistancesNotComputed is returned by weighted search when flight
	// distances are missing or stale. Run PrecomputeDistances first.
	ErrDistancesNotComputed = errors.New("routing: flight distances not computed, run distance preprocessing first")
)

// Path is a fewest-hop route between two airports.
type Path struct {
	// Airports lists the airport ids from source to target, endpoints included.
	Airports []int64 `json:"airports"`
	// IATA lists the airport codes parallel to Airports.
	IATA []string `json:"iata"`
	// Flights lists the flight ids taken, one per hop.
	Flights []int64 `json:"flights"`
	// Carriers lists the airline code of each flight, one per hop.
	Carriers []string `json:"carriers"`
	Hops     int      `json:"hops"`
}

// ShortestPath returns the path with the fewest flights from one airport to
// another using at most maxHops flights. Among equally short paths the first
// one discovered in snapshot edge order wins. It returns false when no such
// path exists.
func ShortestPath(snap *graph.Snapshot, from, to int64, maxHops int) (*Path, bool, error) {
	if maxHops < 0 {
		return nil, false, fmt.Errorf("%w: %d", ErrInvalidHopBound, maxHops)
	}
	src, dst, err := resolveEndpoints(snap, from, to)
	if err != nil {
		return nil, false, err
	}

	if src == dst {
		return buildPath(snap, src, nil), true, nil
	}

	n := snap.AirportCount()
	depth := make([]int, n)
	parent := make([]int, n)
	for i := range depth {
		depth[i] = -1
		parent[i] = -1
	}
	depth[src] = 0

	queue := []int{src}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if depth[u] == maxHops {
			continue
		}
		for _, e := range snap.Out(u) {
			_, v := snap.Endpoints(e)
			if depth[v] >= 0 {
				continue
			}
			depth[v] = depth[u] + 1
			parent[v] = e
			if v == dst {
				return buildPath(snap, src, tracePath(snap, parent, dst)), true, nil
			}
			queue = append(queue, v)
		}
	}

	return nil, false, nil
}

func resolveEndpoints(snap *graph.Snapshot, from, to int64) (int, int, error) {
	src, ok := snap.IndexOf(from)
	if !ok {
		return 0, 0, fmt.Errorf("source %d: %w", from, graph.ErrAirportNotFound)
	}
	dst, ok := snap.IndexOf(to)
	if !ok {
		return 0, 0, fmt.Errorf("target %d: %w", to, graph.ErrAirportNotFound)
	}
	return src, dst, nil
}

// tracePath walks parent edges back from dst and returns the flights in
// travel order.
func tracePath(snap *graph.Snapshot, parent []int, dst int) []int {
	var edges []int
	for v := dst; parent[v] >= 0; {
		e := parent[v]
		edges = append(edges, e)
		v, _ = snap.Endpoints(e)
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return edges
}

func buildPath(snap *graph.Snapshot, src int, edges []int) *Path {
	p := &Path{
		Airports: make([]int64, 0, len(edges)+1),
		IATA:     make([]string, 0, len(edges)+1),
		Flights:  make([]int64, 0, len(edges)),
		Carriers: make([]string, 0, len(edges)),
		Hops:     len(edges),
	}
	start := snap.Airport(src)
	p.Airports = append(p.Airports, start.ID)
	p.IATA = append(p.IATA, start.IATA)
	for _, e := range edges {
		f := snap.Flight(e)
		_, v := snap.Endpoints(e)
		a := snap.Airport(v)
		p.Airports = append(p.Airports, a.ID)
		p.IATA = append(p.IATA, a.IATA)
		p.Flights = append(p.Flights, f.ID)
		p.Carriers = append(p.Carriers, f.AirlineCode)
	}
	return p
}
