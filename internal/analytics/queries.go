package analytics

import (
	"sort"

	"github.com/Benny93/flightgraph/internal/graph"
)

// Stats holds the entity counts of a snapshot.
type Stats struct {
	Airports       int    `json:"airports"`
	Airlines       int    `json:"airlines"`
	Flights        int    `json:"flights"`
	DistancesReady bool   `json:"distances_ready"`
	Generation     uint64 `json:"generation"`
}

// CountryAirportRow is an airport listed within its country.
type CountryAirportRow struct {
	ID   int64  `json:"airport_id"`
	Name string `json:"name"`
	City string `json:"city"`
	IATA string `json:"iata"`
	ICAO string `json:"icao"`
}

// AirlineReachRow is an airline with the number of distinct airports it
// flies to.
type AirlineReachRow struct {
	AirlineRow
	Destinations int `json:"destinations"`
}

// DirectFlightRow is one outbound flight of an airport.
type DirectFlightRow struct {
	FlightID      int64    `json:"flight_id"`
	DestinationID int64    `json:"destination_id"`
	Destination   string   `json:"destination"`
	AirlineCode   string   `json:"airline_code"`
	Stops         int      `json:"stops"`
	Equipment     []string `json:"equipment"`
}

// CountEntities returns the airport, airline and flight counts.
func CountEntities(snap *graph.Snapshot) Stats {
	return Stats{
		Airports:       snap.AirportCount(),
		Airlines:       snap.AirlineCount(),
		Flights:        snap.FlightCount(),
		DistancesReady: snap.DistancesReady(),
		Generation:     snap.Generation(),
	}
}

// AirportsInCountry lists the airports of a country ordered by city then id.
func AirportsInCountry(snap *graph.Snapshot, country string) []CountryAirportRow {
	idx := snap.AirportsByCountry(country)
	rows := make([]CountryAirportRow, 0, len(idx))
	for _, i := range idx {
		a := snap.Airport(i)
		rows = append(rows, CountryAirportRow{ID: a.ID, Name: a.Name, City: a.City, IATA: a.IATA, ICAO: a.ICAO})
	}
	// Input is in id order.
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].City < rows[b].City })
	return rows
}

// TopAirlinesByDestinations ranks resolvable airlines by the number of
// distinct destination airports they fly to, descending, ties by airline id.
// limit <= 0 returns all.
func TopAirlinesByDestinations(snap *graph.Snapshot, limit int) []AirlineReachRow {
	dests := make(map[int64]map[int]struct{})
	for e := 0; e < snap.FlightCount(); e++ {
		al, ok := snap.FlightAirline(e)
		if !ok {
			continue
		}
		_, v := snap.Endpoints(e)
		if dests[al.ID] == nil {
			dests[al.ID] = make(map[int]struct{})
		}
		dests[al.ID][v] = struct{}{}
	}

	rows := make([]AirlineReachRow, 0, len(dests))
	for _, id := range snap.AirlineIDs() {
		d, ok := dests[id]
		if !ok {
			continue
		}
		al, _ := snap.Airline(id)
		rows = append(rows, AirlineReachRow{AirlineRow: airlineRow(al), Destinations: len(d)})
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].Destinations > rows[b].Destinations })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// DirectFlightsFrom lists the outbound flights of origin ordered by
// destination IATA then flight id. It returns graph.ErrAirportNotFound for
// an unknown origin.
func DirectFlightsFrom(snap *graph.Snapshot, origin int64) ([]DirectFlightRow, error) {
	src, ok := snap.IndexOf(origin)
	if !ok {
		return nil, graph.ErrAirportNotFound
	}

	out := snap.Out(src)
	rows := make([]DirectFlightRow, 0, len(out))
	for _, e := range out {
		f := snap.Flight(e)
		_, v := snap.Endpoints(e)
		dst := snap.Airport(v)
		rows = append(rows, DirectFlightRow{
			FlightID:      f.ID,
			DestinationID: dst.ID,
			Destination:   dst.IATA,
			AirlineCode:   f.AirlineCode,
			Stops:         f.Stops,
			Equipment:     f.Equipment,
		})
	}
	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].Destination != rows[b].Destination {
			return rows[a].Destination < rows[b].Destination
		}
		return rows[a].FlightID < rows[b].FlightID
	})
	return rows, nil
}
