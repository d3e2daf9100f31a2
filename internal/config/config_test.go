package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join("data", "routes.dat"), cfg.Data.RoutesPath())
	assert.Equal(t, filepath.Join(".flightgraph", "badger"), cfg.Storage.BadgerDir())
	assert.Equal(t, 10, cfg.Louvain.CommunityOptions(5).MaxPhases)
	assert.Equal(t, 5, cfg.Louvain.CommunityOptions(5).Limit)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("OverridesDefaults", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `
data:
  dir: /srv/openflights
  ignore: ["*.tmp"]
ingest:
  workers: 8
cache:
  ttl: 30s
log:
  env: development
  level: debug
metrics:
  addr: 127.0.0.1:9100
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "/srv/openflights", cfg.Data.Dir)
		assert.Equal(t, "airports.dat", cfg.Data.Airports)
		assert.Equal(t, []string{"*.tmp"}, cfg.Data.Ignore)
		assert.Equal(t, 8, cfg.Ingest.Workers)
		assert.Equal(t, 1000, cfg.Ingest.BatchSize)
		assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
		assert.Equal(t, "development", cfg.Log.Env)
		assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	})

	t.Run("MissingDefaultFile", func(t *testing.T) {
		t.Parallel()
		cfg, err := Load(filepath.Join(t.TempDir(), DefaultFileName))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Malformed", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeConfig(t, "ingest: [oops"))
		assert.Error(t, err)
	})

	t.Run("ValidationFailure", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name string
			body string
		}{
			{"ZeroWorkers", "ingest:\n  workers: 0\n"},
			{"NegativeHops", "routing:\n  max_hops: -1\n"},
			{"ZeroResolution", "louvain:\n  resolution: 0\n"},
			{"UnknownEnv", "log:\n  env: staging\n"},
			{"BadLevel", "log:\n  level: loud\n"},
			{"BadMetricsAddr", "metrics:\n  addr: not an address\n"},
			{"EmptyRoutes", "data:\n  routes: \"\"\n"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				_, err := Load(writeConfig(t, tt.body))
				assert.ErrorIs(t, err, ErrInvalidConfig)
			})
		}
	})
}

func TestSave(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)
	cfg := Default()
	cfg.Routing.MaxHops = 5
	cfg.Cache.TTL = time.Minute

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
