package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("Production", func(t *testing.T) {
		t.Parallel()
		l, err := New(EnvProduction, "")
		require.NoError(t, err)
		assert.False(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
		assert.True(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("Development", func(t *testing.T) {
		t.Parallel()
		l, err := New(EnvDevelopment, "")
		require.NoError(t, err)
		assert.True(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("ExplicitLevel", func(t *testing.T) {
		t.Parallel()
		l, err := New(EnvDevelopment, "warn")
		require.NoError(t, err)
		assert.False(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
		assert.True(t, l.Desugar().Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		t.Parallel()
		_, err := New(EnvProduction, "loud")
		assert.Error(t, err)
	})
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, OrNop(nil))

	l, err := New(EnvProduction, "")
	require.NoError(t, err)
	assert.Same(t, l, OrNop(l))
}
