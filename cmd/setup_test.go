package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/flightgraph/internal/config"
)

func TestSetupCmd_PrintConfig(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	g := &Globals{Config: "/etc/flightgraph.yaml", out: &out}

	require.NoError(t, (&SetupCmd{Format: "json"}).Run(g))

	var cfg struct {
		MCPServers map[string]struct {
			Command string   `json:"command"`
			Args    []string `json:"args"`
		} `json:"mcpServers"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &cfg))

	server, ok := cfg.MCPServers["flightgraph"]
	require.True(t, ok)
	assert.Equal(t, "flightgraph", server.Command)
	assert.Equal(t, []string{"serve", "--watch", "--config", "/etc/flightgraph.yaml"}, server.Args)
}

func TestSetupCmd_TextFormat(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	g := &Globals{out: &out}

	require.NoError(t, (&SetupCmd{Format: "text", NoWatch: true}).Run(g))
	assert.Contains(t, out.String(), "# MCP configuration for flightgraph")
	assert.Contains(t, out.String(), `mcpServers: {"flightgraph":{"args":["serve"],"command":"flightgraph"}}`)
}

func TestSetupCmd_InvalidFormat(t *testing.T) {
	t.Parallel()

	err := (&SetupCmd{Format: "yaml"}).Run(&Globals{out: &bytes.Buffer{}})
	assert.ErrorContains(t, err, "invalid format")
}

// Changes the working directory and HOME, so not parallel.
func TestSetupCmd_WritesClientConfigs(t *testing.T) {
	work := t.TempDir()
	home := t.TempDir()
	t.Chdir(work)
	t.Setenv("HOME", home)

	var out bytes.Buffer
	g := &Globals{Config: "flightgraph.yaml", out: &out}

	require.NoError(t, (&SetupCmd{Claude: true, Cursor: true, Global: true, Local: true, Format: "json"}).Run(g))

	for _, path := range []string{
		filepath.Join(work, ".claude", "mcp.json"),
		filepath.Join(work, ".cursor", "mcp.json"),
		filepath.Join(home, ".claude", "global", "mcp.json"),
		filepath.Join(home, ".cursor", "global", "mcp.json"),
	} {
		data, err := os.ReadFile(path)
		require.NoError(t, err, path)
		assert.Contains(t, string(data), `"flightgraph"`)
		assert.Contains(t, string(data), filepath.Join(work, "flightgraph.yaml"))
	}
	cfg, err := config.Load(filepath.Join(work, "flightgraph.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Data, cfg.Data)
	assert.Contains(t, out.String(), "Created default config")
	assert.Contains(t, out.String(), "Created local claude MCP config")
	assert.Contains(t, out.String(), "Created global cursor MCP config")
}

func TestGetClientConfigDir(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".claude", getClientConfigDir("claude"))
	assert.Equal(t, ".cursor", getClientConfigDir("cursor"))
	assert.Equal(t, ".qwen", getClientConfigDir("qwen"))
	assert.Equal(t, ".qwen", getClientConfigDir("unknown"))
}
