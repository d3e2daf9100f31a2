package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/flightgraph/internal/config"
)

func TestWatcher_ShouldWatchFile(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Data
	cfg.Dir = "/data"
	cfg.Ignore = []string{"# comment", "", "airlines.dat"}
	w := NewWatcher(cfg, nil, nil)

	tests := []struct {
		name  string
		path  string
		watch bool
	}{
		{"Airports", "/data/airports.dat", true},
		{"Routes", "/data/routes.dat", true},
		{"IgnoredAirlines", "/data/airlines.dat", false},
		{"OtherFile", "/data/planes.dat", false},
		{"SwapFile", "/data/.routes.dat.swp", false},
		{"OutsideDir", "/elsewhere/airports.dat", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, ok := w.shouldWatchFile(tt.path)
			assert.Equal(t, tt.watch, ok)
		})
	}
}

func TestIgnoreMatcher(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ignoreMatcher(nil))
	assert.Nil(t, ignoreMatcher([]string{"  ", "# only comments"}))

	m := ignoreMatcher([]string{"*.bak"})
	require.NotNil(t, m)
	assert.True(t, m.Match([]string{"routes.bak"}, false))
	assert.False(t, m.Match([]string{"routes.dat"}, false))
}

func TestWatcher_Changed(t *testing.T) {
	t.Parallel()

	cfg := writeDataDir(t)
	w := NewWatcher(cfg.Data, nil, nil)
	routes := map[string]bool{"routes.dat": true}

	assert.False(t, w.changed(routes))

	require.NoError(t, os.WriteFile(cfg.Data.RoutesPath(), []byte(testRoutes+"AI,3093,JFK,3797,DEL,3093,,0,77W\n"), 0o600))
	assert.True(t, w.changed(routes))
	assert.False(t, w.changed(routes))
}

func TestWatcher_Run(t *testing.T) {
	t.Parallel()

	cfg := writeDataDir(t)

	var reloads atomic.Int32
	reloaded := make(chan struct{}, 4)
	w := NewWatcher(cfg.Data, func(ctx context.Context) error {
		reloads.Add(1)
		reloaded <- struct{}{}
		return nil
	}, nil)
	w.debounce = 300 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	// Touching an unrelated file never reloads.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Data.Dir, "notes.txt"), []byte("x"), 0o600))

	// Several writes settle into one reload.
	for i := 0; i < 3; i++ {
		content := testRoutes + "AI,3093,JFK,3797,DEL,3093,,0," + string(rune('A'+i)) + "\n"
		require.NoError(t, os.WriteFile(cfg.Data.RoutesPath(), []byte(content), 0o600))
	}

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}

	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, int32(1), reloads.Load())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_RunMissingDir(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Data
	cfg.Dir = filepath.Join(t.TempDir(), "missing")

	err := WatchDataFiles(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}
