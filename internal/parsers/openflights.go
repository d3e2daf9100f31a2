package parsers

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Benny93/flightgraph/internal/graph"
)

// ErrInvalidAirportID is reported for an airports.dat row whose id is not
// an integer.
var ErrInvalidAirportID = errors.New("invalid airport id")

// Column counts of the OpenFlights files.
const (
	airportFields = 14
	airlineFields = 8
	routeFields   = 9
)

// AirportsParser parses airports.dat.
type AirportsParser struct{}

// NewAirportsParser creates a new airports parser.
func NewAirportsParser() *AirportsParser {
	return &AirportsParser{}
}

// Kind returns the record kind this parser produces.
func (p *AirportsParser) Kind() string {
	return KindAirports
}

// Parse normalizes airports.dat rows. A row whose airport id is missing or
// not an integer is reported as an error; every other numeric field is
// optional and becomes nil when it cannot be parsed.
func (p *AirportsParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	result := &ParseResult{}
	err := readRows(content, airportFields, func(line int, f []string) {
		id, err := strconv.ParseInt(text(f[0]), 10, 64)
		if err != nil {
			result.Errors = append(result.Errors, RowError{
				Line: line,
				Err:  fmt.Errorf("%w: %q", ErrInvalidAirportID, f[0]),
			})
			return
		}
		result.Airports = append(result.Airports, graph.AirportRecord{
			AirportID:      id,
			Name:           text(f[1]),
			City:           text(f[2]),
			Country:        text(f[3]),
			IATA:           text(f[4]),
			ICAO:           text(f[5]),
			Latitude:       optFloat(f[6]),
			Longitude:      optFloat(f[7]),
			Altitude:       optFloat(f[8]),
			TimezoneOffset: optFloat(f[9]),
			DST:            text(f[10]),
			Timezone:       text(f[11]),
			Type:           text(f[12]),
			Source:         text(f[13]),
		})
	}, &result.Errors)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	return result, nil
}

// AirlinesParser parses airlines.dat.
type AirlinesParser struct{}

// NewAirlinesParser creates a new airlines parser.
func NewAirlinesParser() *AirlinesParser {
	return &AirlinesParser{}
}

// Kind returns the record kind this parser produces.
func (p *AirlinesParser) Kind() string {
	return KindAirlines
}

// Parse normalizes airlines.dat rows. An unparseable airline id yields a
// record with a nil id, which the store skips.
func (p *AirlinesParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	result := &ParseResult{}
	err := readRows(content, airlineFields, func(_ int, f []string) {
		result.Airlines = append(result.Airlines, graph.AirlineRecord{
			AirlineID: optInt(f[0]),
			Name:      text(f[1]),
			Alias:     text(f[2]),
			IATA:      text(f[3]),
			ICAO:      text(f[4]),
			Callsign:  text(f[5]),
			Country:   text(f[6]),
			Active:    text(f[7]),
		})
	}, &result.Errors)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	return result, nil
}

// RoutesParser parses routes.dat.
type RoutesParser struct{}

// NewRoutesParser creates a new routes parser.
func NewRoutesParser() *RoutesParser {
	return &RoutesParser{}
}

// Kind returns the record kind this parser produces.
func (p *RoutesParser) Kind() string {
	return KindRoutes
}

// Parse normalizes routes.dat rows. Rows without a usable source or
// destination airport id are dropped and counted in Filtered. Stops default
// to 0 and equipment is split on whitespace.
func (p *RoutesParser) Parse(filePath string, content []byte) (*ParseResult, error) {
	result := &ParseResult{}
	err := readRows(content, routeFields, func(_ int, f []string) {
		src, dst := optInt(f[3]), optInt(f[5])
		if src == nil || dst == nil {
			result.Filtered++
			return
		}

		stops := 0
		if n := optInt(f[7]); n != nil && *n > 0 {
			stops = int(*n)
		}

		result.Routes = append(result.Routes, graph.RouteRecord{
			AirlineCode: text(f[0]),
			AirlineID:   optInt(f[1]),
			SourceID:    *src,
			DestID:      *dst,
			Codeshare:   strings.EqualFold(text(f[6]), "Y"),
			Stops:       stops,
			Equipment:   strings.Fields(text(f[8])),
		})
	}, &result.Errors)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	return result, nil
}

// ParseAirports reads airports.dat content from r.
func ParseAirports(r io.Reader) (*ParseResult, error) {
	return parseReader(NewAirportsParser(), r)
}

// ParseAirlines reads airlines.dat content from r.
func ParseAirlines(r io.Reader) (*ParseResult, error) {
	return parseReader(NewAirlinesParser(), r)
}

// ParseRoutes reads routes.dat content from r.
func ParseRoutes(r io.Reader) (*ParseResult, error) {
	return parseReader(NewRoutesParser(), r)
}

func parseReader(p Parser, r io.Reader) (*ParseResult, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.Kind(), err)
	}
	return p.Parse(p.Kind(), content)
}
