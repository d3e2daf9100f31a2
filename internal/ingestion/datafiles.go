package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Benny93/flightgraph/internal/config"
	"github.com/Benny93/flightgraph/internal/graph"
	"github.com/Benny93/flightgraph/internal/parsers"
)

// DataFile is one OpenFlights file read from disk.
type DataFile struct {
	// Path is the file path as configured.
	Path string

	// Kind is the record kind, see parsers.KindAirports and friends.
	Kind string

	// Content is the raw file content.
	Content []byte

	// SHA256 is the hash of the content.
	SHA256 string
}

// Dataset holds the normalized records of all data files.
type Dataset struct {
	Airports []graph.AirportRecord
	Airlines []graph.AirlineRecord
	Routes   []graph.RouteRecord

	// ParseErrors counts malformed rows across files.
	ParseErrors int

	// Filtered counts rows dropped by the parsers, such as routes without an
	// endpoint id.
	Filtered int

	rejected map[string]int
}

// ReadDataFiles reads the airports, airlines and routes files named by cfg.
func ReadDataFiles(cfg config.DataConfig) ([]DataFile, error) {
	specs := []struct {
		kind string
		path string
	}{
		{parsers.KindAirports, cfg.AirportsPath()},
		{parsers.KindAirlines, cfg.AirlinesPath()},
		{parsers.KindRoutes, cfg.RoutesPath()},
	}

	files := make([]DataFile, 0, len(specs))
	for _, s := range specs {
		content, err := os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.kind, err)
		}
		files = append(files, DataFile{
			Path:    s.path,
			Kind:    s.kind,
			Content: content,
			SHA256:  hashContent(content),
		})
	}
	return files, nil
}

// hashContent computes the SHA256 hash of content.
func hashContent(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// ParseDataFiles normalizes every file into a Dataset. Row errors are
// logged and counted, never fatal.
func ParseDataFiles(files []DataFile, log *zap.SugaredLogger) (*Dataset, error) {
	ds := &Dataset{rejected: make(map[string]int)}
	for _, f := range files {
		p, err := parsers.ForFile(f.Kind + ".dat")
		if err != nil {
			return nil, err
		}
		res, err := p.Parse(f.Path, f.Content)
		if err != nil {
			return nil, err
		}

		ds.Airports = append(ds.Airports, res.Airports...)
		ds.Airlines = append(ds.Airlines, res.Airlines...)
		ds.Routes = append(ds.Routes, res.Routes...)
		ds.ParseErrors += len(res.Errors)
		ds.Filtered += res.Filtered
		ds.rejected[f.Kind] += len(res.Errors) + res.Filtered

		for _, rowErr := range res.Errors {
			log.Debugw("skipping malformed row", "file", f.Path, "line", rowErr.Line, "error", rowErr.Err)
		}
		if len(res.Errors) > 0 || res.Filtered > 0 {
			log.Infow("parsed data file with skipped rows",
				"file", f.Path,
				"kind", f.Kind,
				"errors", len(res.Errors),
				"filtered", res.Filtered,
			)
		}
	}
	return ds, nil
}
