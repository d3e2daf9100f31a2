// Package parsers normalizes OpenFlights data files into typed graph records.
package parsers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Benny93/flightgraph/internal/graph"
)

// nullToken marks a missing value in OpenFlights files.
const nullToken = `\N`

// ErrUnknownFile is returned by ForFile for a file name no parser handles.
var ErrUnknownFile = errors.New("parsers: no parser for file")

// RowError describes a row that could not be normalized.
type RowError struct {
	// Line is the 1-based line of the row in the input.
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// ParseResult contains the records normalized from one data file.
type ParseResult struct {
	Airports []graph.AirportRecord
	Airlines []graph.AirlineRecord
	Routes   []graph.RouteRecord

	// Filtered counts rows dropped on purpose, such as routes without a
	// source or destination airport id.
	Filtered int

	// Errors lists rows that were malformed.
	Errors []RowError
}

// Parser defines the interface for data-file specific parsers.
type Parser interface {
	// Parse normalizes file content into records.
	Parse(filePath string, content []byte) (*ParseResult, error)

	// Kind returns the record kind this parser produces.
	Kind() string
}

// Record kinds.
const (
	KindAirports = "airports"
	KindAirlines = "airlines"
	KindRoutes   = "routes"
)

// ForFile returns the parser for an OpenFlights file based on its base
// name, e.g. airports.dat or routes.dat.
func ForFile(path string) (Parser, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch {
	case strings.HasPrefix(base, KindAirports):
		return NewAirportsParser(), nil
	case strings.HasPrefix(base, KindAirlines):
		return NewAirlinesParser(), nil
	case strings.HasPrefix(base, KindRoutes):
		return NewRoutesParser(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFile, path)
}

// readRows iterates over headerless CSV rows, calling fn with the 1-based
// line number and fields. Rows with fewer than minFields fields are
// reported as row errors and not passed to fn.
func readRows(content []byte, minFields int, fn func(line int, fields []string), errs *[]RowError) error {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				*errs = append(*errs, RowError{Line: perr.StartLine, Err: perr.Err})
				continue
			}
			return fmt.Errorf("reading csv: %w", err)
		}
		line, _ := r.FieldPos(0)
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		if len(fields) < minFields {
			*errs = append(*errs, RowError{
				Line: line,
				Err:  fmt.Errorf("expected %d fields, got %d", minFields, len(fields)),
			})
			continue
		}
		fn(line, fields)
	}
}

// text normalizes a string field. The null token and blank values become "".
func text(s string) string {
	s = strings.TrimSpace(s)
	if s == nullToken {
		return ""
	}
	return s
}

// optFloat parses an optional float. Null or unparseable values become nil.
func optFloat(s string) *float64 {
	s = text(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// optInt parses an optional integer. Null or unparseable values become nil.
func optInt(s string) *int64 {
	s = text(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
