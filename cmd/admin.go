package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/Benny93/flightgraph/internal/graph"
	"github.com/Benny93/flightgraph/internal/ingestion"
	"github.com/Benny93/flightgraph/internal/storage"
)

const metaFileName = "meta.json"

// loadStats is the ingestion summary kept in meta.json.
type loadStats struct {
	Airports        int     `json:"airports"`
	Airlines        int     `json:"airlines"`
	Flights         int     `json:"flights"`
	SkippedAirlines int     `json:"skipped_airlines"`
	SkippedFlights  int     `json:"skipped_flights"`
	ParseErrors     int     `json:"parse_errors"`
	Filtered        int     `json:"filtered"`
	Weighted        int     `json:"weighted"`
	DurationSecs    float64 `json:"duration_secs"`
}

// snapshotMeta is written next to the badger directory by load.
type snapshotMeta struct {
	Version    string    `json:"version"`
	SnapshotID string    `json:"snapshot_id"`
	DataDir    string    `json:"data_dir"`
	Stats      loadStats `json:"stats"`
	LoadedAt   string    `json:"loaded_at"`
}

func statsFromResult(r *ingestion.PipelineResult) loadStats {
	return loadStats{
		Airports:        r.Airports.Applied,
		Airlines:        r.Airlines.Applied,
		Flights:         r.Flights.Inserted,
		SkippedAirlines: r.Airlines.Skipped,
		SkippedFlights:  r.Flights.Skipped,
		ParseErrors:     r.ParseErrors,
		Filtered:        r.Filtered,
		Weighted:        r.Weighted,
		DurationSecs:    r.DurationSecs,
	}
}

func readSnapshotMeta(dir string) (*snapshotMeta, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		return nil, err
	}
	var meta snapshotMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", metaFileName, err)
	}
	return &meta, nil
}

func writeSnapshotMeta(dir string, meta snapshotMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, metaFileName), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", metaFileName, err)
	}
	return nil
}

// LoadCmd ingests the data files and exports a badger snapshot.
type LoadCmd struct {
	NoSnapshot bool `help:"Only ingest and report, do not export a snapshot"`
}

// Run executes the load command.
func (c *LoadCmd) Run(g *Globals) error {
	cfg, log, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if !c.NoSnapshot && cfg.Storage.Dir == "" {
		return errors.New("storage.dir is empty, nothing to export to (use --no-snapshot)")
	}

	ctx, cancel := signalContext()
	defer cancel()

	if !g.Quiet && !g.JSON {
		color.New(color.FgGreen).Fprintf(g.stdout(), "Loading %s\n", cfg.Data.Dir)
	}

	progress := func(phase string, pct float64) {
		if !g.Quiet && !g.JSON {
			g.printf("\r\033[K%s (%.0f%%)", phase, pct*100)
		}
	}

	store := graph.NewStore()
	result, err := ingestion.RunPipeline(ctx, store, cfg, pipelineOptions(cfg, log, nil), progress)
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}
	if !g.Quiet && !g.JSON {
		g.println("") // Newline after progress
	}

	meta := snapshotMeta{
		Version:  Version,
		DataDir:  cfg.Data.Dir,
		Stats:    statsFromResult(result),
		LoadedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if !c.NoSnapshot {
		if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
			return fmt.Errorf("creating storage directory: %w", err)
		}

		backend := storage.NewBadgerBackend()
		if err := backend.Initialize(cfg.Storage.BadgerDir(), false); err != nil {
			return fmt.Errorf("initializing storage: %w", err)
		}
		defer func() { _ = backend.Close() }()

		exported, err := backend.BulkLoad(ctx, store.Snapshot())
		if err != nil {
			return fmt.Errorf("exporting snapshot: %w", err)
		}
		meta.SnapshotID = exported.SnapshotID

		if err := writeSnapshotMeta(cfg.Storage.Dir, meta); err != nil {
			return err
		}
	}

	if g.JSON {
		return g.printJSON(meta)
	}

	color.New(color.FgGreen).Fprintln(g.stdout(), "✓ Load complete")
	g.printf("  Airports:       %d\n", meta.Stats.Airports)
	g.printf("  Airlines:       %d (%d skipped)\n", meta.Stats.Airlines, meta.Stats.SkippedAirlines)
	g.printf("  Flights:        %d (%d skipped, %d filtered)\n", meta.Stats.Flights, meta.Stats.SkippedFlights, meta.Stats.Filtered)
	g.printf("  Parse errors:   %d\n", meta.Stats.ParseErrors)
	g.printf("  With distance:  %d\n", meta.Stats.Weighted)
	g.printf("  Duration:       %.2fs\n", meta.Stats.DurationSecs)
	if meta.SnapshotID != "" {
		g.printf("  Snapshot:       %s\n", meta.SnapshotID)
	}
	return nil
}

// StatusCmd shows the exported snapshot.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	meta, err := readSnapshotMeta(cfg.Storage.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no snapshot found in %s. Run 'flightgraph load' first", cfg.Storage.Dir)
		}
		return err
	}

	if g.JSON {
		return g.printJSON(meta)
	}

	g.printf("Snapshot status for %s\n", cfg.Storage.Dir)
	g.printf("  Version:        %s\n", meta.Version)
	g.printf("  Snapshot:       %s\n", meta.SnapshotID)
	g.printf("  Data dir:       %s\n", meta.DataDir)
	g.printf("  Last loaded:    %s\n", meta.LoadedAt)
	g.printf("  Airports:       %d\n", meta.Stats.Airports)
	g.printf("  Airlines:       %d\n", meta.Stats.Airlines)
	g.printf("  Flights:        %d\n", meta.Stats.Flights)

	backend := storage.NewBadgerBackend()
	if err := backend.Initialize(cfg.Storage.BadgerDir(), true); err != nil {
		color.New(color.FgYellow).Fprintf(g.stdout(), "  Store:          unreadable (%v)\n", err)
		return nil
	}
	defer func() { _ = backend.Close() }()

	stored, err := backend.Meta(context.Background())
	switch {
	case err != nil:
		color.New(color.FgYellow).Fprintf(g.stdout(), "  Store:          %v\n", err)
	case stored.SnapshotID != meta.SnapshotID:
		color.New(color.FgYellow).Fprintf(g.stdout(), "  Store:          holds snapshot %s, %s is stale\n", stored.SnapshotID, metaFileName)
	default:
		g.printf("  Store:          ok (%d flights)\n", stored.Flights)
	}
	return nil
}

// CleanCmd deletes the exported snapshot.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	dir := cfg.Storage.Dir
	if dir == "" {
		return errors.New("storage.dir is empty. Nothing to clean")
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("no snapshot found at %s. Nothing to clean", dir)
	}

	if !c.Force {
		g.printf("Delete snapshot at %s? [y/N] ", dir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			g.println("Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}

	color.New(color.FgGreen).Fprintf(g.stdout(), "Deleted %s\n", dir)
	return nil
}
