package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/Benny93/flightgraph/internal/config"
)

// SetupCmd writes MCP client configuration pointing at flightgraph serve.
type SetupCmd struct {
	Qwen    bool   `help:"Configure for Qwen CLI"`
	Claude  bool   `help:"Configure for Claude Code"`
	Cursor  bool   `help:"Configure for Cursor"`
	Local   bool   `help:"Create project-local configuration"`
	Global  bool   `help:"Create global configuration"`
	Format  string `help:"Output format (json|text)" enum:"json,text" default:"json"`
	NoWatch bool   `name:"no-watch" help:"Do not reload the graph when data files change"`
}

// Run executes the setup command.
func (c *SetupCmd) Run(g *Globals) error {
	if c.Format != "json" && c.Format != "text" {
		return fmt.Errorf("invalid format: %s (must be json or text)", c.Format)
	}

	config := c.serverConfig(g)

	// Without a client, print the config.
	if !c.Qwen && !c.Claude && !c.Cursor {
		content, err := renderConfig(config, c.Format)
		if err != nil {
			return err
		}
		g.printf("%s", content)
		return nil
	}

	if !c.Local && !c.Global {
		c.Local = true
	}

	basePath, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	if err := c.ensureConfig(g); err != nil {
		return err
	}

	for _, client := range c.clients() {
		if c.Local {
			path := getLocalConfigPath(basePath, client)
			if err := writeConfig(path, config, c.Format); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(g.stdout(), "✓ Created local %s MCP config at %s\n", client, path)
		}
		if c.Global {
			path := getGlobalConfigPath(client)
			if err := writeConfig(path, config, c.Format); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(g.stdout(), "✓ Created global %s MCP config at %s\n", client, path)
		}
	}
	return nil
}

func (c *SetupCmd) clients() []string {
	var out []string
	if c.Qwen {
		out = append(out, "qwen")
	}
	if c.Claude {
		out = append(out, "claude")
	}
	if c.Cursor {
		out = append(out, "cursor")
	}
	return out
}

// ensureConfig writes the default flightgraph config when the configured
// file does not exist yet, so the server started by the client can load it.
func (c *SetupCmd) ensureConfig(g *Globals) error {
	if g.Config == "" {
		return nil
	}
	if _, err := os.Stat(g.Config); !os.IsNotExist(err) {
		return nil
	}
	if err := config.Save(g.Config, config.Default()); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	color.New(color.FgGreen).Fprintf(g.stdout(), "✓ Created default config at %s\n", g.Config)
	return nil
}

// serverConfig builds the mcpServers entry. The config path is absolute so
// the client can start the server from any directory.
func (c *SetupCmd) serverConfig(g *Globals) map[string]any {
	args := []string{"serve"}
	if !c.NoWatch {
		args = append(args, "--watch")
	}
	if g.Config != "" {
		if abs, err := filepath.Abs(g.Config); err == nil {
			args = append(args, "--config", abs)
		}
	}
	return map[string]any{
		"mcpServers": map[string]any{
			"flightgraph": map[string]any{
				"command": "flightgraph",
				"args":    args,
			},
		},
	}
}

// Path helpers

func getLocalConfigPath(basePath, client string) string {
	return filepath.Join(basePath, getClientConfigDir(client), "mcp.json")
}

func getGlobalConfigPath(client string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
	}
	return filepath.Join(homeDir, getClientConfigDir(client), "global", "mcp.json")
}

func getClientConfigDir(client string) string {
	switch client {
	case "claude":
		return ".claude"
	case "cursor":
		return ".cursor"
	default:
		return ".qwen"
	}
}

// Config writers

func renderConfig(config map[string]any, format string) ([]byte, error) {
	if format == "json" {
		content, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling JSON: %w", err)
		}
		return append(content, '\n'), nil
	}

	keys := make([]string, 0, len(config))
	for key := range config {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("# MCP configuration for flightgraph\n")
	sb.WriteString("# Generated by flightgraph setup\n\n")
	for _, key := range keys {
		value, _ := json.Marshal(config[key])
		fmt.Fprintf(&sb, "%s: %s\n", key, value)
	}
	return []byte(sb.String()), nil
}

func writeConfig(configPath string, config map[string]any, format string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	content, err := renderConfig(config, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
