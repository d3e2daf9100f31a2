package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/Benny93/flightgraph/internal/graph"
)

// Key prefixes for different data types
const (
	prefixAirport = "ap:" // airport data
	prefixAirline = "al:" // airline data
	prefixFlight  = "fl:" // flight data, keyed by zero-padded flight id
	keyMeta       = "m:snapshot"
)

// BadgerBackend is a BadgerDB-backed snapshot store.
type BadgerBackend struct {
	db          *badger.DB
	fts         *FTSIndex
	initialized bool
	readOnly    bool
	mu          sync.RWMutex
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR)

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.db = db
	b.fts = NewFTSIndex(db)
	b.readOnly = readOnly
	b.initialized = true
	return nil
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.fts = nil
	b.initialized = false
	return err
}

func airportKey(id int64) []byte { return []byte(fmt.Sprintf("%s%d", prefixAirport, id)) }
func airlineKey(id int64) []byte { return []byte(fmt.Sprintf("%s%d", prefixAirline, id)) }
func flightKey(id int64) []byte  { return []byte(fmt.Sprintf("%s%012d", prefixFlight, id)) }

// BulkLoad replaces the stored snapshot with the contents of snap.
func (b *BadgerBackend) BulkLoad(ctx context.Context, snap *graph.Snapshot) (*Meta, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}

	if err := b.db.DropAll(); err != nil {
		return nil, fmt.Errorf("clearing snapshot: %w", err)
	}

	airports, airlines, flights := collectSnapshot(snap)

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range airports {
		if err := setJSON(wb, airportKey(airports[i].ID), &airports[i]); err != nil {
			return nil, fmt.Errorf("airport %d: %w", airports[i].ID, err)
		}
	}
	for i := range airlines {
		if err := setJSON(wb, airlineKey(airlines[i].ID), &airlines[i]); err != nil {
			return nil, fmt.Errorf("airline %d: %w", airlines[i].ID, err)
		}
	}
	for i := range flights {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		f := flights[i]
		f.DistanceKM = nil
		if err := setJSON(wb, flightKey(f.ID), &f); err != nil {
			return nil, fmt.Errorf("flight %d: %w", f.ID, err)
		}
	}

	if err := b.fts.IndexAirports(wb, airports); err != nil {
		return nil, err
	}

	meta := newMeta(uuid.NewString(), snap)
	if err := setJSON(wb, []byte(keyMeta), meta); err != nil {
		return nil, fmt.Errorf("meta: %w", err)
	}

	if err := wb.Flush(); err != nil {
		return nil, fmt.Errorf("flushing snapshot: %w", err)
	}
	return meta, nil
}

func setJSON(wb *badger.WriteBatch, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling: %w", err)
	}
	return wb.Set(key, data)
}

// Restore resets store and re-ingests the stored snapshot.
func (b *BadgerBackend) Restore(ctx context.Context, store *graph.Store) (*Meta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}

	var (
		meta     *Meta
		airports []graph.Airport
		airlines []graph.Airline
		flights  []graph.Flight
	)

	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		if meta, err = readMeta(txn); err != nil {
			return err
		}
		if airports, err = scanPrefix[graph.Airport](ctx, txn, prefixAirport); err != nil {
			return err
		}
		if airlines, err = scanPrefix[graph.Airline](ctx, txn, prefixAirline); err != nil {
			return err
		}
		flights, err = scanPrefix[graph.Flight](ctx, txn, prefixFlight)
		return err
	})
	if err != nil {
		return nil, err
	}

	restoreInto(store, airports, airlines, flights)
	return meta, nil
}

// scanPrefix decodes every value under prefix in key order.
func scanPrefix[T any](ctx context.Context, txn *badger.Txn, prefix string) ([]T, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []T
	for it.Rewind(); it.Valid(); it.Next() {
		if len(out)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var v T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", it.Item().Key(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

func readMeta(txn *badger.Txn) (*Meta, error) {
	item, err := txn.Get([]byte(keyMeta))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("getting meta: %w", err)
	}

	var meta Meta
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &meta)
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling meta: %w", err)
	}
	return &meta, nil
}

// Meta returns the metadata of the stored snapshot.
func (b *BadgerBackend) Meta(ctx context.Context) (*Meta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}

	var meta *Meta
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		meta, err = readMeta(txn)
		return err
	})
	return meta, err
}

// SearchAirports runs a token search over the stored airports.
func (b *BadgerBackend) SearchAirports(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}
	return b.fts.Search(query, limit)
}
