package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Benny93/flightgraph/internal/graph"
)

// MemoryBackend is an in-memory implementation of StorageBackend. It backs
// tests and runs without a storage directory.
type MemoryBackend struct {
	mu       sync.RWMutex
	meta     *Meta
	airports []graph.Airport
	airlines []graph.Airline
	flights  []graph.Flight
	tokens   map[string]map[int64]int
	indexed  bool
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		tokens: make(map[string]map[int64]int),
	}
}

// Initialize implements StorageBackend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed = true
	return nil
}

// Close implements StorageBackend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta = nil
	m.airports, m.airlines, m.flights = nil, nil, nil
	m.tokens = make(map[string]map[int64]int)
	m.indexed = false
	return nil
}

// IsIndexed reports whether the backend has been initialized.
func (m *MemoryBackend) IsIndexed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexed
}

// BulkLoad implements StorageBackend.
func (m *MemoryBackend) BulkLoad(ctx context.Context, snap *graph.Snapshot) (*Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	airports, airlines, flights := collectSnapshot(snap)
	for i := range flights {
		flights[i].DistanceKM = nil
	}

	tokens := make(map[string]map[int64]int)
	for i := range airports {
		for tok, w := range airportTokens(&airports[i]) {
			if tokens[tok] == nil {
				tokens[tok] = make(map[int64]int)
			}
			tokens[tok][airports[i].ID] = w
		}
	}

	meta := newMeta(uuid.NewString(), snap)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta = meta
	m.airports, m.airlines, m.flights = airports, airlines, flights
	m.tokens = tokens
	m.indexed = true

	copied := *meta
	return &copied, nil
}

// Restore implements StorageBackend.
func (m *MemoryBackend) Restore(ctx context.Context, store *graph.Store) (*Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.meta == nil {
		return nil, ErrNoSnapshot
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	restoreInto(store, m.airports, m.airlines, m.flights)
	copied := *m.meta
	return &copied, nil
}

// Meta implements StorageBackend.
func (m *MemoryBackend) Meta(ctx context.Context) (*Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.meta == nil {
		return nil, ErrNoSnapshot
	}
	copied := *m.meta
	return &copied, nil
}

// SearchAirports implements StorageBackend.
func (m *MemoryBackend) SearchAirports(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scores := make(map[int64]float64)
	for _, tok := range tokenize(query) {
		for id, w := range m.tokens[tok] {
			scores[id] += float64(w)
		}
	}

	results := make([]SearchResult, 0, len(scores))
	for i := range m.airports {
		if score, ok := scores[m.airports[i].ID]; ok && score > 0 {
			r := searchResultFor(&m.airports[i])
			r.Score = score
			results = append(results, r)
		}
	}
	return rankResults(results, limit), nil
}
