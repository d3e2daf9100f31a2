// Package render formats query results as plain text for the CLI and MCP
// tool responses.
package render

import (
	"fmt"
	"strings"

	"github.com/Benny93/flightgraph/internal/analytics"
	"github.com/Benny93/flightgraph/internal/routing"
	"github.com/Benny93/flightgraph/internal/storage"
)

// code prefers the IATA code, falling back to the airport id.
func code(iata string, id int64) string {
	if iata != "" {
		return iata
	}
	return fmt.Sprintf("#%d", id)
}

func Stats(st analytics.Stats) string {
	var sb strings.Builder
	sb.WriteString("Flight network overview:\n\n")
	fmt.Fprintf(&sb, "- Airports: %d\n", st.Airports)
	fmt.Fprintf(&sb, "- Airlines: %d\n", st.Airlines)
	fmt.Fprintf(&sb, "- Flights: %d\n", st.Flights)
	if st.DistancesReady {
		sb.WriteString("- Distances: computed\n")
	} else {
		sb.WriteString("- Distances: not computed\n")
	}
	return sb.String()
}

// Path formats a fewest-hop route.
func Path(p *routing.Path) string {
	legs := make([]string, len(p.Airports))
	for i, id := range p.Airports {
		legs[i] = code(p.IATA[i], id)
	}
	hops := "flights"
	if p.Hops == 1 {
		hops = "flight"
	}
	out := fmt.Sprintf("%s (%d %s)", strings.Join(legs, " -> "), p.Hops, hops)
	if len(p.Carriers) > 0 {
		out += "\nCarriers: " + strings.Join(p.Carriers, ", ")
	}
	return out
}

// Distance formats a minimum-distance route.
func Distance(p *routing.WeightedPath) string {
	return fmt.Sprintf("%s\nDistance: %.1f km", Path(&p.Path), p.DistanceKM)
}

func CutPoints(res *analytics.ArticulationResult) string {
	if len(res.Airports) == 0 {
		return fmt.Sprintf("No articulation points (%d components).", res.Components)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Articulation points: %d (%d components)\n\n", len(res.Airports), res.Components)
	writeAirportRows(&sb, res.Airports)
	return sb.String()
}

func Communities(res *analytics.CommunityResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Communities: %d (modularity %.4f, %d phases", res.Count, res.Modularity, res.Phases)
	if !res.Converged {
		sb.WriteString(", stopped before convergence")
	}
	sb.WriteString(")\n\n")
	for _, r := range res.Communities {
		fmt.Fprintf(&sb, "- %s %s, %s: community %d\n", code(r.IATA, r.AirportID), r.City, r.Country, r.Community)
	}
	return sb.String()
}

func Hubs(res *analytics.HubResult) string {
	if len(res.Hubs) == 0 {
		return "No hubs found"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hubs above the mean of %.2f destinations:\n\n", res.Mean)
	for i, h := range res.Hubs {
		fmt.Fprintf(&sb, "%d. **%s** %s (%d destinations)\n", i+1, code(h.IATA, h.ID), h.Name, h.Destinations)
	}
	return sb.String()
}

func MultiCarrier(rows []analytics.MultiCarrierRow) string {
	if len(rows) == 0 {
		return "No routes with several carriers"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Routes with several carriers: %d\n\n", len(rows))
	for _, r := range rows {
		fmt.Fprintf(&sb, "- %s -> %s: %s\n", code(r.FromIATA, r.From), code(r.ToIATA, r.To), strings.Join(r.Carriers, ", "))
	}
	return sb.String()
}

func TopRoutes(airline string, rows []analytics.RouteCountRow) string {
	if len(rows) == 0 {
		return fmt.Sprintf("No routes for airline %s", airline)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Busiest routes of %s:\n\n", strings.ToUpper(airline))
	for i, r := range rows {
		fmt.Fprintf(&sb, "%d. %s -> %s (%d flights)\n", i+1, code(r.FromIATA, r.From), code(r.ToIATA, r.To), r.Flights)
	}
	return sb.String()
}

func writeAirportRows(sb *strings.Builder, rows []analytics.AirportRow) {
	for _, a := range rows {
		fmt.Fprintf(sb, "- **%s** %s (%s, %s)\n", code(a.IATA, a.ID), a.Name, a.City, a.Country)
	}
}

func Airports(title string, rows []analytics.AirportRow) string {
	if len(rows) == 0 {
		return title + ": none"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d\n\n", title, len(rows))
	writeAirportRows(&sb, rows)
	return sb.String()
}

func Airlines(title string, rows []analytics.AirlineRow) string {
	if len(rows) == 0 {
		return title + ": none"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d\n\n", title, len(rows))
	for _, a := range rows {
		fmt.Fprintf(&sb, "- %s (%s, %s)\n", a.Name, a.IATA, a.Country)
	}
	return sb.String()
}

func Country(country string, rows []analytics.CountryAirportRow) string {
	if len(rows) == 0 {
		return fmt.Sprintf("No airports in %s", country)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Airports in %s: %d\n\n", country, len(rows))
	for _, a := range rows {
		fmt.Fprintf(&sb, "- **%s** %s, %s\n", code(a.IATA, a.ID), a.Name, a.City)
	}
	return sb.String()
}

func Direct(origin string, rows []analytics.DirectFlightRow) string {
	if len(rows) == 0 {
		return fmt.Sprintf("No departures from %s", origin)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Departures from %s: %d\n\n", origin, len(rows))
	for _, f := range rows {
		fmt.Fprintf(&sb, "- %s to %s", f.AirlineCode, code(f.Destination, f.DestinationID))
		if f.Stops > 0 {
			fmt.Fprintf(&sb, ", %d stops", f.Stops)
		}
		if len(f.Equipment) > 0 {
			fmt.Fprintf(&sb, " [%s]", strings.Join(f.Equipment, " "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func TopAirlines(rows []analytics.AirlineReachRow) string {
	if len(rows) == 0 {
		return "No airlines with flights"
	}
	var sb strings.Builder
	sb.WriteString("Airlines by destinations served:\n\n")
	for i, a := range rows {
		fmt.Fprintf(&sb, "%d. %s (%s): %d destinations\n", i+1, a.Name, a.IATA, a.Destinations)
	}
	return sb.String()
}

// SearchResults formats airport search hits.
func SearchResults(results []storage.SearchResult, query string) string {
	if len(results) == 0 {
		return "No results found"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d airports for '%s':\n\n", len(results), query)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. **%s** %s\n", i+1, code(r.IATA, r.AirportID), r.Name)
		fmt.Fprintf(&sb, "   %s, %s\n", r.City, r.Country)
		fmt.Fprintf(&sb, "   Score: %.0f\n", r.Score)
	}
	return sb.String()
}

// Schema describes the graph model.
func Schema() string {
	return `Flight route graph:

Nodes:
- Airport: airport_id, name, city, country, iata, icao, latitude, longitude
- Airline: airline_id, name, iata, icao, country, active

Edges:
- Flight (airport -> airport): flight_id, airline_code, airline_id, stops, equipment, distance_km

Airports are referenced by IATA code or numeric id. Several flights may
connect the same pair of airports, one per airline and equipment set.
`
}
