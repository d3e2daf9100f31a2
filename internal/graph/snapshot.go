package graph

import (
	"slices"
	"sort"
)

// Snapshot is an immutable, index-based view of the store at one generation.
//
// Airports are addressed by a dense index in ascending airport-id order.
// Flights are addressed by their position in insertion order. Out(i) lists
// the outgoing flights of airport i sorted by (destination id, flight id);
// every algorithm enumerates edges in that order.
type Snapshot struct {
	generation     uint64
	distancesReady bool

	airports []Airport
	index    map[int64]int

	airlines   map[int64]*Airline
	airlineIDs []int64

	flights []Flight
	src     []int
	dst     []int
	out     [][]int
	in      [][]int

	byIATA    map[string][]int
	byCountry map[string][]int
}

// buildSnapshot copies the store state. Callers hold s.mu.
func (s *Store) buildSnapshot() *Snapshot {
	ids := make([]int64, 0, len(s.airports))
	for id := range s.airports {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	snap := &Snapshot{
		generation:     s.generation,
		distancesReady: s.distancesReady,
		airports:       make([]Airport, len(ids)),
		index:          make(map[int64]int, len(ids)),
		airlines:       make(map[int64]*Airline, len(s.airlines)),
		airlineIDs:     make([]int64, 0, len(s.airlines)),
		flights:        make([]Flight, len(s.flights)),
		src:            make([]int, len(s.flights)),
		dst:            make([]int, len(s.flights)),
		out:            make([][]int, len(ids)),
		in:             make([][]int, len(ids)),
		byIATA:         make(map[string][]int, len(s.byIATA)),
		byCountry:      make(map[string][]int, len(s.byCountry)),
	}

	for i, id := range ids {
		snap.airports[i] = *s.airports[id]
		snap.index[id] = i
	}

	for id, a := range s.airlines {
		cp := *a
		snap.airlines[id] = &cp
		snap.airlineIDs = append(snap.airlineIDs, id)
	}
	slices.Sort(snap.airlineIDs)

	for e, f := range s.flights {
		snap.flights[e] = *f
		si, di := snap.index[f.SourceID], snap.index[f.DestID]
		snap.src[e] = si
		snap.dst[e] = di
		snap.out[si] = append(snap.out[si], e)
		snap.in[di] = append(snap.in[di], e)
	}

	// Flights are stored in id order, so a stable sort by destination keeps
	// the flight-id tiebreak.
	for i := range snap.out {
		edges := snap.out[i]
		sort.SliceStable(edges, func(a, b int) bool {
			return snap.flights[edges[a]].DestID < snap.flights[edges[b]].DestID
		})
	}
	for i := range snap.in {
		edges := snap.in[i]
		sort.SliceStable(edges, func(a, b int) bool {
			return snap.flights[edges[a]].SourceID < snap.flights[edges[b]].SourceID
		})
	}

	snap.byIATA = denseIndex(s.byIATA, snap.index)
	snap.byCountry = denseIndex(s.byCountry, snap.index)

	return snap
}

func denseIndex(idx map[string]map[int64]struct{}, index map[int64]int) map[string][]int {
	out := make(map[string][]int, len(idx))
	for key, ids := range idx {
		dense := make([]int, 0, len(ids))
		for id := range ids {
			dense = append(dense, index[id])
		}
		slices.Sort(dense)
		out[key] = dense
	}
	return out
}

// Generation returns the store generation this snapshot was taken at.
func (s *Snapshot) Generation() uint64 { return s.generation }

// DistancesReady reports whether flight distances were current when the
// snapshot was taken.
func (s *Snapshot) DistancesReady() bool { return s.distancesReady }

// AirportCount returns the number of airports.
func (s *Snapshot) AirportCount() int { return len(s.airports) }

// AirlineCount returns the number of airlines.
func (s *Snapshot) AirlineCount() int { return len(s.airlines) }

// FlightCount returns the number of flights.
func (s *Snapshot) FlightCount() int { return len(s.flights) }

// Airport returns the airport at dense index i.
func (s *Snapshot) Airport(i int) *Airport { return &s.airports[i] }

// IndexOf returns the dense index of an airport id.
func (s *Snapshot) IndexOf(id int64) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// AirportByID returns the airport with the given id.
func (s *Snapshot) AirportByID(id int64) (*Airport, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return &s.airports[i], true
}

// AirportsByIATA returns the dense indexes of airports carrying the code,
// in ascending id order.
func (s *Snapshot) AirportsByIATA(code string) []int { return s.byIATA[code] }

// AirportsByCountry returns the dense indexes of airports in the country,
// in ascending id order.
func (s *Snapshot) AirportsByCountry(country string) []int { return s.byCountry[country] }

// Airline returns the airline with the given id.
func (s *Snapshot) Airline(id int64) (*Airline, bool) {
	a, ok := s.airlines[id]
	return a, ok
}

// AirlineIDs returns all airline ids in ascending order.
func (s *Snapshot) AirlineIDs() []int64 { return s.airlineIDs }

// Flight returns the flight at position e.
func (s *Snapshot) Flight(e int) *Flight { return &s.flights[e] }

// Endpoints returns the dense source and destination indexes of flight e.
func (s *Snapshot) Endpoints(e int) (int, int) { return s.src[e], s.dst[e] }

// Out returns the outgoing flights of airport i, ordered by destination id
// then flight id.
func (s *Snapshot) Out(i int) []int { return s.out[i] }

// In returns the incoming flights of airport i, ordered by source id then
// flight id.
func (s *Snapshot) In(i int) []int { return s.in[i] }

// FlightAirline resolves the airline of flight e, if it exists.
func (s *Snapshot) FlightAirline(e int) (*Airline, bool) {
	f := &s.flights[e]
	if f.AirlineID == nil {
		return nil, false
	}
	return s.Airline(*f.AirlineID)
}
