package graph

import (
	"fmt"
	"sync"
)

// Store is the mutable in-memory flight-route multigraph.
//
// Airports and airlines are keyed by their identity and upserted with
// last-writer-wins semantics. Flights are append-only: inserting the same
// route twice yields two parallel edges. Readers never traverse the store
// directly; they take an immutable Snapshot.
type Store struct {
	mu       sync.RWMutex
	airports map[int64]*Airport
	airlines map[int64]*Airline
	flights  []*Flight

	// Secondary indexes, kept in sync by the upsert helpers.
	byIATA    map[string]map[int64]struct{}
	byCountry map[string]map[int64]struct{}

	nextFlightID   int64
	generation     uint64
	distancesReady bool

	snapMu sync.Mutex
	snap   *Snapshot
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		airports:     make(map[int64]*Airport),
		airlines:     make(map[int64]*Airline),
		byIATA:       make(map[string]map[int64]struct{}),
		byCountry:    make(map[string]map[int64]struct{}),
		nextFlightID: 1,
	}
}

// AirportCount returns the number of airports.
func (s *Store) AirportCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.airports)
}

// AirlineCount returns the number of airlines.
func (s *Store) AirlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.airlines)
}

// FlightCount returns the number of flight edges.
func (s *Store) FlightCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flights)
}

// Generation returns the mutation counter. It changes whenever the store does.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// DistancesReady reports whether every flight has been through the distance
// preprocessor since the last mutation that could invalidate it.
func (s *Store) DistancesReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.distancesReady
}

// Airport returns a copy of the airport with the given id.
func (s *Store) Airport(id int64) (Airport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.airports[id]
	if !ok {
		return Airport{}, false
	}
	return *a, true
}

// Airline returns a copy of the airline with the given id.
func (s *Store) Airline(id int64) (Airline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.airlines[id]
	if !ok {
		return Airline{}, false
	}
	return *a, true
}

// UpsertAirports applies airport records in order. A record whose id already
// exists replaces the stored airport entirely.
func (s *Store) UpsertAirports(records []AirportRecord) UpsertResult {
	var res UpsertResult
	if len(records) == 0 {
		return res
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		a := rec.Airport()
		if old, ok := s.airports[a.ID]; ok {
			removeFromIndex(s.byIATA, old.IATA, old.ID)
			removeFromIndex(s.byCountry, old.Country, old.ID)
		}
		s.airports[a.ID] = &a
		addToIndex(s.byIATA, a.IATA, a.ID)
		addToIndex(s.byCountry, a.Country, a.ID)
		res.Applied++
	}

	// Coordinates may have moved under existing flights.
	s.distancesReady = false
	s.generation++
	return res
}

// UpsertAirlines applies airline records in order. Records without an
// airline id are skipped and reported.
func (s *Store) UpsertAirlines(records []AirlineRecord) UpsertResult {
	var res UpsertResult
	if len(records) == 0 {
		return res
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range records {
		if rec.AirlineID == nil {
			res.Skipped++
			res.Errors = append(res.Errors, RecordError{Index: i, Err: ErrMissingAirlineID})
			continue
		}
		a := rec.Airline()
		s.airlines[a.ID] = &a
		res.Applied++
	}

	if res.Applied > 0 {
		s.generation++
	}
	return res
}

// InsertFlights appends one flight per route record. Records whose source or
// destination airport does not exist are skipped; the rest of the batch is
// still applied. The airline id is stored as given even when no such airline
// exists.
func (s *Store) InsertFlights(records []RouteRecord) InsertResult {
	var res InsertResult
	if len(records) == 0 {
		return res
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range records {
		if _, ok := s.airports[rec.SourceID]; !ok {
			res.Skipped++
			res.Errors = append(res.Errors, RecordError{
				Index: i,
				Err:   fmt.Errorf("source %d: %w", rec.SourceID, ErrMissingEndpoint),
			})
			continue
		}
		if _, ok := s.airports[rec.DestID]; !ok {
			res.Skipped++
			res.Errors = append(res.Errors, RecordError{
				Index: i,
				Err:   fmt.Errorf("destination %d: %w", rec.DestID, ErrMissingEndpoint),
			})
			continue
		}

		f := &Flight{
			ID:          s.nextFlightID,
			SourceID:    rec.SourceID,
			DestID:      rec.DestID,
			AirlineID:   rec.AirlineID,
			AirlineCode: rec.AirlineCode,
			Codeshare:   rec.Codeshare,
			Stops:       rec.Stops,
			Equipment:   rec.Equipment,
		}
		s.nextFlightID++
		s.flights = append(s.flights, f)
		res.Inserted++
	}

	if res.Inserted > 0 {
		s.distancesReady = false
		s.generation++
	}
	return res
}

// WeightFunc computes the weight of a flight from its endpoint airports.
// It returns false when no weight can be derived.
type WeightFunc func(src, dst *Airport) (float64, bool)

// ApplyEdgeWeights recomputes DistanceKM for every flight with fn and marks
// distances as current. Flights for which fn reports no weight get a nil
// distance. It returns the number of flights that received a weight.
func (s *Store) ApplyEdgeWeights(fn WeightFunc) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, f := range s.flights {
		src, dst := s.airports[f.SourceID], s.airports[f.DestID]
		w, ok := fn(src, dst)
		if !ok {
			f.DistanceKM = nil
			continue
		}
		f.DistanceKM = &w
		updated++
	}

	s.distancesReady = true
	s.generation++
	return updated
}

// Reset drops every airport, airline and flight.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.airports = make(map[int64]*Airport)
	s.airlines = make(map[int64]*Airline)
	s.flights = nil
	s.byIATA = make(map[string]map[int64]struct{})
	s.byCountry = make(map[string]map[int64]struct{})
	s.nextFlightID = 1
	s.distancesReady = false
	s.generation++
}

// Snapshot returns an immutable view of the current graph. The same snapshot
// is returned until the store is mutated again.
func (s *Store) Snapshot() *Snapshot {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap != nil && s.snap.generation == s.generation {
		return s.snap
	}
	s.snap = s.buildSnapshot()
	return s.snap
}

func addToIndex(idx map[string]map[int64]struct{}, key string, id int64) {
	if key == "" {
		return
	}
	if idx[key] == nil {
		idx[key] = make(map[int64]struct{})
	}
	idx[key][id] = struct{}{}
}

func removeFromIndex(idx map[string]map[int64]struct{}, key string, id int64) {
	if key == "" {
		return
	}
	ids, ok := idx[key]
	if !ok {
		return
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(idx, key)
	}
}
