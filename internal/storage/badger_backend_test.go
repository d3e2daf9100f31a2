package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/flightgraph/internal/graph"
	"github.com/Benny93/flightgraph/internal/routing"
)

func setupTestBadgerBackend(t *testing.T) (*BadgerBackend, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "badger")

	backend := NewBadgerBackend()
	err := backend.Initialize(dbPath, false)
	require.NoError(t, err)

	cleanup := func() {
		backend.Close()
	}

	return backend, cleanup
}

func TestBadgerBackend_Initialize(t *testing.T) {
	t.Parallel()

	t.Run("Success", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "badger")

		backend := NewBadgerBackend()
		err := backend.Initialize(dbPath, false)

		assert.NoError(t, err)
		assert.NotNil(t, backend.db)
		assert.True(t, backend.initialized)

		backend.Close()
	})

	t.Run("ReadOnly", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "badger")

		// First create the DB
		backend1 := NewBadgerBackend()
		err := backend1.Initialize(dbPath, false)
		require.NoError(t, err)
		_, err = backend1.BulkLoad(context.Background(), testStore(t).Snapshot())
		require.NoError(t, err)
		backend1.Close()

		backend2 := NewBadgerBackend()
		err = backend2.Initialize(dbPath, true)
		require.NoError(t, err)
		defer backend2.Close()

		assert.True(t, backend2.readOnly)
		meta, err := backend2.Meta(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, meta.Flights)
	})

	t.Run("PathUnderFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		file := filepath.Join(tmpDir, "plain")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

		backend := NewBadgerBackend()
		err := backend.Initialize(filepath.Join(file, "badger"), false)

		assert.Error(t, err)
	})
}

func TestBadgerBackend_NotInitialized(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewBadgerBackend()

	_, err := backend.Meta(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = backend.BulkLoad(ctx, graph.NewStore().Snapshot())
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = backend.Restore(ctx, graph.NewStore())
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = backend.SearchAirports(ctx, "x", 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestBadgerBackend_Meta(t *testing.T) {
	t.Parallel()

	backend, cleanup := setupTestBadgerBackend(t)
	defer cleanup()

	_, err := backend.Meta(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestBadgerBackend_BulkLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend, cleanup := setupTestBadgerBackend(t)
	defer cleanup()

	src := testStore(t)
	routing.PrecomputeDistances(src)

	meta, err := backend.BulkLoad(ctx, src.Snapshot())
	require.NoError(t, err)
	assert.NotEmpty(t, meta.SnapshotID)
	assert.True(t, meta.DistancesComputed)

	stored, err := backend.Meta(ctx)
	require.NoError(t, err)
	assert.Equal(t, meta.SnapshotID, stored.SnapshotID)
	assert.Equal(t, meta.Airports, stored.Airports)
	assert.True(t, meta.CreatedAt.Equal(stored.CreatedAt))

	size, err := backend.fts.IndexSize()
	require.NoError(t, err)
	assert.Positive(t, size)

	t.Run("ReplacesPrevious", func(t *testing.T) {
		small := graph.NewStore()
		small.UpsertAirports([]graph.AirportRecord{{AirportID: 1, Name: "Solo", City: "Lonely"}})

		_, err := backend.BulkLoad(ctx, small.Snapshot())
		require.NoError(t, err)

		dst := graph.NewStore()
		restored, err := backend.Restore(ctx, dst)
		require.NoError(t, err)
		assert.Equal(t, 1, restored.Airports)
		assert.Equal(t, 1, dst.AirportCount())
		assert.Equal(t, 0, dst.FlightCount())

		results, err := backend.SearchAirports(ctx, "delhi", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestBadgerBackend_Restore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend, cleanup := setupTestBadgerBackend(t)
	defer cleanup()

	t.Run("NoSnapshot", func(t *testing.T) {
		_, err := backend.Restore(ctx, graph.NewStore())
		assert.ErrorIs(t, err, ErrNoSnapshot)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		src := testStore(t)
		_, err := backend.BulkLoad(ctx, src.Snapshot())
		require.NoError(t, err)

		dst := graph.NewStore()
		_, err = backend.Restore(ctx, dst)
		require.NoError(t, err)
		assertSameGraph(t, src.Snapshot(), dst.Snapshot())
	})

	t.Run("FlightOrderBeyondTen", func(t *testing.T) {
		src := graph.NewStore()
		src.UpsertAirports([]graph.AirportRecord{{AirportID: 1}, {AirportID: 2}})
		routes := make([]graph.RouteRecord, 12)
		for i := range routes {
			routes[i] = graph.RouteRecord{SourceID: 1, DestID: 2, Stops: i}
		}
		src.InsertFlights(routes)
		_, err := backend.BulkLoad(ctx, src.Snapshot())
		require.NoError(t, err)

		dst := graph.NewStore()
		_, err = backend.Restore(ctx, dst)
		require.NoError(t, err)

		snap := dst.Snapshot()
		for e := 0; e < snap.FlightCount(); e++ {
			assert.Equal(t, int64(e+1), snap.Flight(e).ID)
			assert.Equal(t, e, snap.Flight(e).Stops)
		}
	})
}

func TestBadgerBackend_SearchAirports(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend, cleanup := setupTestBadgerBackend(t)
	defer cleanup()

	_, err := backend.BulkLoad(ctx, testStore(t).Snapshot())
	require.NoError(t, err)

	results, err := backend.SearchAirports(ctx, "VIDP", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "DEL", results[0].IATA)
	assert.Equal(t, "Delhi", results[0].City)

	results, err = backend.SearchAirports(ctx, "international india", 10)
	require.NoError(t, err)
	require.Len(t, results, 4)
	// Both Indian international airports score 2, the rest score 1.
	assert.Equal(t, int64(2997), results[0].AirportID)
	assert.Equal(t, int64(3093), results[1].AirportID)
	assert.Equal(t, int64(3797), results[2].AirportID)
	assert.Equal(t, int64(9999), results[3].AirportID)
}

func TestBadgerBackend_Close(t *testing.T) {
	t.Parallel()

	backend, _ := setupTestBadgerBackend(t)

	err := backend.Close()
	assert.NoError(t, err)
	assert.Nil(t, backend.db)
	assert.False(t, backend.initialized)

	// Closing twice is a no-op.
	assert.NoError(t, backend.Close())
}

func TestBadgerBackend_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend, cleanup := setupTestBadgerBackend(t)
	defer cleanup()

	_, err := backend.BulkLoad(ctx, testStore(t).Snapshot())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = backend.SearchAirports(ctx, "delhi", 5)
			_, _ = backend.Restore(ctx, graph.NewStore())
		}()
	}
	wg.Wait()
}
