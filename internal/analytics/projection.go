// Package analytics computes structural and aggregate properties of a
// flight-route snapshot: articulation points, Louvain communities, hubs,
// carrier groupings and reachability summaries.
//
// Every function reads an immutable graph.Snapshot and returns ordered rows
// that are deterministic for a given snapshot.
package analytics

import (
	"slices"

	"github.com/Benny93/flightgraph/internal/graph"
)

// AirportRow is the presentation form of an airport in result rows.
type AirportRow struct {
	ID      int64  `json:"airport_id"`
	IATA    string `json:"iata"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
}

func airportRow(a *graph.Airport) AirportRow {
	return AirportRow{ID: a.ID, IATA: a.IATA, Name: a.Name, City: a.City, Country: a.Country}
}

// undirected is the undirected projection of a snapshot over dense airport
// indexes. Parallel flights in either direction collapse into one adjacency
// whose weight is the number of flights; self-loops are dropped.
type undirected struct {
	adj    [][]int
	weight [][]float64
}

func project(snap *graph.Snapshot) *undirected {
	n := snap.AirportCount()
	counts := make([]map[int]float64, n)
	for e := 0; e < snap.FlightCount(); e++ {
		u, v := snap.Endpoints(e)
		if u == v {
			continue
		}
		if counts[u] == nil {
			counts[u] = make(map[int]float64)
		}
		if counts[v] == nil {
			counts[v] = make(map[int]float64)
		}
		counts[u][v]++
		counts[v][u]++
	}

	p := &undirected{
		adj:    make([][]int, n),
		weight: make([][]float64, n),
	}
	for i, nb := range counts {
		if len(nb) == 0 {
			continue
		}
		keys := make([]int, 0, len(nb))
		for j := range nb {
			keys = append(keys, j)
		}
		slices.Sort(keys)
		w := make([]float64, len(keys))
		for k, j := range keys {
			w[k] = nb[j]
		}
		p.adj[i] = keys
		p.weight[i] = w
	}
	return p
}

// components counts the connected components of an adjacency list,
// isolated vertices included.
func components(adj [][]int) int {
	seen := make([]bool, len(adj))
	count := 0
	for s := range adj {
		if seen[s] {
			continue
		}
		count++
		seen[s] = true
		stack := []int{s}
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, v := range adj[u] {
				if !seen[v] {
					seen[v] = true
					stack = append(stack, v)
				}
			}
		}
	}
	return count
}
