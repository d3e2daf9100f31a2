// Package graph provides the flight-route data model for flightgraph.
//
// It defines the airport and airline node types, the directed flight edge
// that connects two airports, and the normalized records the ingestion
// layer hands to the store.
package graph

import "errors"

// Sentinel errors returned by the store and snapshot lookups.
var (
	// ErrAirportNotFound indicates that an airport identity is not in the graph.
	ErrAirportNotFound = errors.New("graph: airport not found")

	// ErrMissingEndpoint indicates that a route references an airport that does
	// not exist at insertion time. The route is skipped, not created.
	ErrMissingEndpoint = errors.New("graph: route endpoint airport does not exist")

	// ErrMissingAirlineID indicates an airline record without an identity.
	ErrMissingAirlineID = errors.New("graph: airline record has no airline id")
)

// Airport is a node in the route graph keyed by AirportID.
type Airport struct {
	// ID is the OpenFlights airport identity.
	ID int64 `json:"airport_id"`

	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`

	// IATA is the 3-letter code. Empty when absent. Not unique.
	IATA string `json:"iata,omitempty"`

	// ICAO is the 4-letter code. Empty when absent.
	ICAO string `json:"icao,omitempty"`

	// Latitude and Longitude are in degrees. Nil when absent.
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Altitude       *float64 `json:"altitude,omitempty"`
	TimezoneOffset *float64 `json:"timezone_offset,omitempty"`

	DST      string `json:"dst,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	Type     string `json:"type,omitempty"`
	Source   string `json:"source,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (a *Airport) HasCoordinates() bool {
	return a != nil && a.Latitude != nil && a.Longitude != nil
}

// Airline is a node in the route graph keyed by AirlineID.
type Airline struct {
	ID       int64  `json:"airline_id"`
	Name     string `json:"name"`
	Alias    string `json:"alias,omitempty"`
	IATA     string `json:"iata,omitempty"`
	ICAO     string `json:"icao,omitempty"`
	Callsign string `json:"callsign,omitempty"`
	Country  string `json:"country,omitempty"`
	Active   string `json:"active,omitempty"`
}

// Flight is a directed edge from SourceID to DestID.
//
// The graph is a multigraph: several flights may connect the same ordered
// pair, either for different airlines or as repeated records for one airline.
type Flight struct {
	// ID is the insertion sequence number of the flight. It is the route
	// identity reported by path queries and is stable for a given ingestion order.
	ID int64 `json:"flight_id"`

	SourceID int64 `json:"src_id"`
	DestID   int64 `json:"dst_id"`

	// AirlineID references an Airline node. It may be nil or point to an
	// airline that was never ingested; the flight is kept either way.
	AirlineID *int64 `json:"airline_id,omitempty"`

	// AirlineCode is the carrier code used for display and filtering.
	AirlineCode string `json:"airline_code,omitempty"`

	Codeshare bool     `json:"codeshare"`
	Stops     int      `json:"stops"`
	Equipment []string `json:"equipment,omitempty"`

	// DistanceKM is the great-circle length of the flight. Nil until the
	// distance preprocessor has run, and stays nil when either endpoint
	// lacks coordinates.
	DistanceKM *float64 `json:"distance_km,omitempty"`
}

// AirportRecord is a normalized airports.dat row.
type AirportRecord struct {
	AirportID      int64
	Name           string
	City           string
	Country        string
	IATA           string
	ICAO           string
	Latitude       *float64
	Longitude      *float64
	Altitude       *float64
	TimezoneOffset *float64
	DST            string
	Timezone       string
	Type           string
	Source         string
}

// AirlineRecord is a normalized airlines.dat row. AirlineID is nil when the
// source row had no usable identity.
type AirlineRecord struct {
	AirlineID *int64
	Name      string
	Alias     string
	IATA      string
	ICAO      string
	Callsign  string
	Country   string
	Active    string
}

// RouteRecord is a normalized routes.dat row. Rows without a source or
// destination id never reach the store.
type RouteRecord struct {
	AirlineCode string
	AirlineID   *int64
	SourceID    int64
	DestID      int64
	Codeshare   bool
	Stops       int
	Equipment   []string
}

// Airport converts the record into a node, copying every attribute.
func (r AirportRecord) Airport() Airport {
	return Airport{
		ID:             r.AirportID,
		Name:           r.Name,
		City:           r.City,
		Country:        r.Country,
		IATA:           r.IATA,
		ICAO:           r.ICAO,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		Altitude:       r.Altitude,
		TimezoneOffset: r.TimezoneOffset,
		DST:            r.DST,
		Timezone:       r.Timezone,
		Type:           r.Type,
		Source:         r.Source,
	}
}

// Airline converts the record into a node. The caller must check AirlineID.
func (r AirlineRecord) Airline() Airline {
	var id int64
	if r.AirlineID != nil {
		id = *r.AirlineID
	}
	return Airline{
		ID:       id,
		Name:     r.Name,
		Alias:    r.Alias,
		IATA:     r.IATA,
		ICAO:     r.ICAO,
		Callsign: r.Callsign,
		Country:  r.Country,
		Active:   r.Active,
	}
}

// Record converts a flight back into the route record it was created from.
func (f *Flight) Record() RouteRecord {
	return RouteRecord{
		AirlineCode: f.AirlineCode,
		AirlineID:   f.AirlineID,
		SourceID:    f.SourceID,
		DestID:      f.DestID,
		Codeshare:   f.Codeshare,
		Stops:       f.Stops,
		Equipment:   f.Equipment,
	}
}

// RecordError describes a single record that could not be applied.
type RecordError struct {
	// Index is the position of the record in the input slice.
	Index int
	Err   error
}

func (e RecordError) Error() string {
	return e.Err.Error()
}

func (e RecordError) Unwrap() error {
	return e.Err
}

// UpsertResult summarizes an airport or airline upsert call.
type UpsertResult struct {
	Applied int
	Skipped int
	Errors  []RecordError
}

// InsertResult summarizes an InsertFlights call.
type InsertResult struct {
	Inserted int
	Skipped  int
	Errors   []RecordError
}
