// Package storage persists flight-graph snapshots.
//
// It defines the StorageBackend interface that snapshot stores must satisfy,
// along with the metadata and search types shared across backends. A
// backend holds exactly one exported snapshot at a time.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Benny93/flightgraph/internal/graph"
)

// ErrNoSnapshot is returned when a backend holds no exported snapshot.
var ErrNoSnapshot = errors.New("storage: no snapshot exported")

// ErrNotInitialized is returned when a backend is used before Initialize.
var ErrNotInitialized = errors.New("storage: backend not initialized")

// Meta describes an exported snapshot.
type Meta struct {
	// SnapshotID uniquely identifies one export.
	SnapshotID string    `json:"snapshot_id"`
	CreatedAt  time.Time `json:"created_at"`

	Airports int `json:"airports"`
	Airlines int `json:"airlines"`
	Flights  int `json:"flights"`

	// DistancesComputed records whether flight distances were current at
	// export time, so a restore can recompute them.
	DistancesComputed bool `json:"distances_computed"`
}

// SearchResult is an airport matched by SearchAirports.
type SearchResult struct {
	AirportID int64   `json:"airport_id"`
	Score     float64 `json:"score"`
	IATA      string  `json:"iata"`
	Name      string  `json:"name"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
}

// StorageBackend defines the interface for snapshot stores.
//
// Implementations must be thread-safe and support concurrent access.
type StorageBackend interface {
	// Lifecycle methods

	// Initialize opens or creates the backend at the given path.
	// If readOnly is true, the backend is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// Snapshot operations

	// BulkLoad replaces the stored snapshot with the contents of snap and
	// returns the metadata written for it.
	BulkLoad(ctx context.Context, snap *graph.Snapshot) (*Meta, error)

	// Restore resets store and re-ingests the stored snapshot into it in the
	// original flight order, so flight ids are reproduced.
	Restore(ctx context.Context, store *graph.Store) (*Meta, error)

	// Meta returns the metadata of the stored snapshot, or ErrNoSnapshot.
	Meta(ctx context.Context) (*Meta, error)

	// Search

	// SearchAirports finds airports whose name, city, country or codes
	// match the query tokens, best matches first.
	SearchAirports(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// airlineRecord converts a persisted airline back into an upsert record.
func airlineRecord(a graph.Airline) graph.AirlineRecord {
	id := a.ID
	return graph.AirlineRecord{
		AirlineID: &id,
		Name:      a.Name,
		Alias:     a.Alias,
		IATA:      a.IATA,
		ICAO:      a.ICAO,
		Callsign:  a.Callsign,
		Country:   a.Country,
		Active:    a.Active,
	}
}

// airportRecord converts a persisted airport back into an upsert record.
func airportRecord(a graph.Airport) graph.AirportRecord {
	return graph.AirportRecord{
		AirportID:      a.ID,
		Name:           a.Name,
		City:           a.City,
		Country:        a.Country,
		IATA:           a.IATA,
		ICAO:           a.ICAO,
		Latitude:       a.Latitude,
		Longitude:      a.Longitude,
		Altitude:       a.Altitude,
		TimezoneOffset: a.TimezoneOffset,
		DST:            a.DST,
		Timezone:       a.Timezone,
		Type:           a.Type,
		Source:         a.Source,
	}
}

// collectSnapshot extracts the persistable records of a snapshot.
func collectSnapshot(snap *graph.Snapshot) ([]graph.Airport, []graph.Airline, []graph.Flight) {
	airports := make([]graph.Airport, 0, snap.AirportCount())
	for i := 0; i < snap.AirportCount(); i++ {
		airports = append(airports, *snap.Airport(i))
	}
	airlines := make([]graph.Airline, 0, snap.AirlineCount())
	for _, id := range snap.AirlineIDs() {
		al, _ := snap.Airline(id)
		airlines = append(airlines, *al)
	}
	flights := make([]graph.Flight, 0, snap.FlightCount())
	for e := 0; e < snap.FlightCount(); e++ {
		flights = append(flights, *snap.Flight(e))
	}
	return airports, airlines, flights
}

// restoreInto resets store and applies the records.
func restoreInto(store *graph.Store, airports []graph.Airport, airlines []graph.Airline, flights []graph.Flight) {
	store.Reset()

	ap := make([]graph.AirportRecord, 0, len(airports))
	for _, a := range airports {
		ap = append(ap, airportRecord(a))
	}
	store.UpsertAirports(ap)

	al := make([]graph.AirlineRecord, 0, len(airlines))
	for _, a := range airlines {
		al = append(al, airlineRecord(a))
	}
	store.UpsertAirlines(al)

	routes := make([]graph.RouteRecord, 0, len(flights))
	for i := range flights {
		routes = append(routes, flights[i].Record())
	}
	store.InsertFlights(routes)
}

func newMeta(id string, snap *graph.Snapshot) *Meta {
	return &Meta{
		SnapshotID:        id,
		CreatedAt:         time.Now().UTC(),
		Airports:          snap.AirportCount(),
		Airlines:          snap.AirlineCount(),
		Flights:           snap.FlightCount(),
		DistancesComputed: snap.DistancesReady(),
	}
}
