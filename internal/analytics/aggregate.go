package analytics

import (
	"slices"
	"sort"

	"github.com/Benny93/flightgraph/internal/graph"
)

// HubRow is an airport with its distinct-destination count.
type HubRow struct {
	AirportRow
	Destinations int `json:"destinations"`
}

// HubResult lists the airports whose distinct-destination count exceeds
// the mean.
type HubResult struct {
	// Mean is the average distinct-destination count over airports with at
	// least one outbound flight.
	Mean float64  `json:"mean"`
	Hubs []HubRow `json:"hubs"`
}

// RoutePair is an ordered airport pair.
type RoutePair struct {
	From     int64  `json:"from_id"`
	FromIATA string `json:"from_iata"`
	To       int64  `json:"to_id"`
	ToIATA   string `json:"to_iata"`
}

// MultiCarrierRow is a route flown by more than one airline code.
type MultiCarrierRow struct {
	RoutePair
	Carriers []string `json:"carriers"`
}

// RouteCountRow is a route with the number of flights on it.
type RouteCountRow struct {
	RoutePair
	Flights int `json:"flights"`
}

// AirlineRow is the presentation form of an airline.
type AirlineRow struct {
	ID      int64  `json:"airline_id"`
	Name    string `json:"name"`
	IATA    string `json:"iata"`
	Country string `json:"country"`
}

func airlineRow(a *graph.Airline) AirlineRow {
	return AirlineRow{ID: a.ID, Name: a.Name, IATA: a.IATA, Country: a.Country}
}

func routePair(snap *graph.Snapshot, u, v int) RoutePair {
	a, b := snap.Airport(u), snap.Airport(v)
	return RoutePair{From: a.ID, FromIATA: a.IATA, To: b.ID, ToIATA: b.IATA}
}

// distinctDestinations counts the distinct destinations of airport i. Out
// edges are sorted by destination, so equal destinations are adjacent.
func distinctDestinations(snap *graph.Snapshot, i int) int {
	count := 0
	last := -1
	for _, e := range snap.Out(i) {
		_, v := snap.Endpoints(e)
		if v != last {
			count++
			last = v
		}
	}
	return count
}

// HubsAboveAverage returns airports whose number of distinct destinations is
// strictly above the mean over airports with any outbound flight, ordered by
// that number descending then airport id. limit <= 0 returns all.
func HubsAboveAverage(snap *graph.Snapshot, limit int) *HubResult {
	n := snap.AirportCount()
	degree := make([]int, n)
	total, active := 0, 0
	for i := 0; i < n; i++ {
		degree[i] = distinctDestinations(snap, i)
		if degree[i] > 0 {
			total += degree[i]
			active++
		}
	}

	res := &HubResult{Hubs: []HubRow{}}
	if active == 0 {
		return res
	}
	res.Mean = float64(total) / float64(active)

	for i, d := range degree {
		if float64(d) > res.Mean {
			res.Hubs = append(res.Hubs, HubRow{AirportRow: airportRow(snap.Airport(i)), Destinations: d})
		}
	}
	// Rows are already in id order.
	sort.SliceStable(res.Hubs, func(a, b int) bool {
		return res.Hubs[a].Destinations > res.Hubs[b].Destinations
	})
	if limit > 0 && len(res.Hubs) > limit {
		res.Hubs = res.Hubs[:limit]
	}
	return res
}

// MultiCarrierRoutes returns ordered airport pairs served by more than one
// distinct non-empty airline code, ordered by carrier count descending then
// source and destination id. Carrier codes are sorted.
func MultiCarrierRoutes(snap *graph.Snapshot) []MultiCarrierRow {
	rows := []MultiCarrierRow{}
	for u := 0; u < snap.AirportCount(); u++ {
		out := snap.Out(u)
		for start := 0; start < len(out); {
			_, v := snap.Endpoints(out[start])
			end := start
			codes := make(map[string]struct{})
			for end < len(out) {
				_, w := snap.Endpoints(out[end])
				if w != v {
					break
				}
				if code := snap.Flight(out[end]).AirlineCode; code != "" {
					codes[code] = struct{}{}
				}
				end++
			}
			if len(codes) > 1 {
				carriers := make([]string, 0, len(codes))
				for c := range codes {
					carriers = append(carriers, c)
				}
				slices.Sort(carriers)
				rows = append(rows, MultiCarrierRow{RoutePair: routePair(snap, u, v), Carriers: carriers})
			}
			start = end
		}
	}

	// Pairs were emitted in (source, destination) order.
	sort.SliceStable(rows, func(a, b int) bool {
		return len(rows[a].Carriers) > len(rows[b].Carriers)
	})
	return rows
}

// TopAirlineRoutes counts flights per ordered pair for one airline code and
// returns the busiest pairs, ordered by count descending then source and
// destination id. limit <= 0 returns all.
func TopAirlineRoutes(snap *graph.Snapshot, code string, limit int) []RouteCountRow {
	rows := []RouteCountRow{}
	for u := 0; u < snap.AirportCount(); u++ {
		out := snap.Out(u)
		for start := 0; start < len(out); {
			_, v := snap.Endpoints(out[start])
			end, count := start, 0
			for end < len(out) {
				_, w := snap.Endpoints(out[end])
				if w != v {
					break
				}
				if snap.Flight(out[end]).AirlineCode == code {
					count++
				}
				end++
			}
			if count > 0 {
				rows = append(rows, RouteCountRow{RoutePair: routePair(snap, u, v), Flights: count})
			}
			start = end
		}
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].Flights > rows[b].Flights
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// TwoHopDestinations returns the airports at the end of any walk of exactly
// two flights from origin, excluding origin itself. An airport that is also
// reachable directly is still included. Rows are ordered by country, city,
// then airport id. It returns graph.ErrAirportNotFound for an unknown origin.
func TwoHopDestinations(snap *graph.Snapshot, origin int64) ([]AirportRow, error) {
	src, ok := snap.IndexOf(origin)
	if !ok {
		return nil, graph.ErrAirportNotFound
	}

	seen := make(map[int]struct{})
	var found []int
	for _, e1 := range snap.Out(src) {
		_, mid := snap.Endpoints(e1)
		for _, e2 := range snap.Out(mid) {
			_, dst := snap.Endpoints(e2)
			if dst == src {
				continue
			}
			if _, dup := seen[dst]; dup {
				continue
			}
			seen[dst] = struct{}{}
			found = append(found, dst)
		}
	}

	rows := make([]AirportRow, 0, len(found))
	for _, i := range found {
		rows = append(rows, airportRow(snap.Airport(i)))
	}
	sort.Slice(rows, func(a, b int) bool {
		if rows[a].Country != rows[b].Country {
			return rows[a].Country < rows[b].Country
		}
		if rows[a].City != rows[b].City {
			return rows[a].City < rows[b].City
		}
		return rows[a].ID < rows[b].ID
	})
	return rows, nil
}

// AirlinesBetweenCountries returns the distinct airlines operating at least
// one flight from an airport in country from to an airport in country to.
// Flights whose airline id does not resolve are ignored. Rows are ordered by
// airline name then id.
func AirlinesBetweenCountries(snap *graph.Snapshot, from, to string) []AirlineRow {
	seen := make(map[int64]struct{})
	rows := []AirlineRow{}
	for _, u := range snap.AirportsByCountry(from) {
		for _, e := range snap.Out(u) {
			_, v := snap.Endpoints(e)
			if snap.Airport(v).Country != to {
				continue
			}
			al, ok := snap.FlightAirline(e)
			if !ok {
				continue
			}
			if _, dup := seen[al.ID]; dup {
				continue
			}
			seen[al.ID] = struct{}{}
			rows = append(rows, airlineRow(al))
		}
	}

	sort.Slice(rows, func(a, b int) bool {
		if rows[a].Name != rows[b].Name {
			return rows[a].Name < rows[b].Name
		}
		return rows[a].ID < rows[b].ID
	})
	return rows
}

// SinkAirports returns airports without any outbound flight, by airport id.
func SinkAirports(snap *graph.Snapshot) []AirportRow {
	rows := []AirportRow{}
	for i := 0; i < snap.AirportCount(); i++ {
		if len(snap.Out(i)) == 0 {
			rows = append(rows, airportRow(snap.Airport(i)))
		}
	}
	return rows
}
