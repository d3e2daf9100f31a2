// Package cmd provides CLI command implementations for flightgraph.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/Benny93/flightgraph/internal/config"
	"github.com/Benny93/flightgraph/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Globals are the flags shared by every command.
type Globals struct {
	Config  string `short:"c" default:"flightgraph.yaml" type:"path" help:"Path to the config file"`
	DataDir string `name:"data-dir" help:"Override the OpenFlights data directory"`
	Verbose bool   `short:"v" help:"Enable debug logging"`
	Quiet   bool   `short:"q" help:"Only log errors"`
	JSON    bool   `help:"Print results as JSON"`

	in  io.Reader
	out io.Writer
}

func (g *Globals) stdin() io.Reader {
	if g.in == nil {
		return os.Stdin
	}
	return g.in
}

func (g *Globals) stdout() io.Writer {
	if g.out == nil {
		return os.Stdout
	}
	return g.out
}

func (g *Globals) printf(format string, args ...any) {
	fmt.Fprintf(g.stdout(), format, args...)
}

func (g *Globals) println(s string) {
	fmt.Fprintln(g.stdout(), s)
}

func (g *Globals) printJSON(v any) error {
	enc := json.NewEncoder(g.stdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadConfig reads the config file and applies flag overrides.
func (g *Globals) loadConfig() (config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return cfg, err
	}
	if g.DataDir != "" {
		cfg.Data.Dir = g.DataDir
	}
	return cfg, cfg.Validate()
}

func (g *Globals) logger(cfg config.Config) (*zap.SugaredLogger, error) {
	level := cfg.Log.Level
	switch {
	case g.Verbose:
		level = "debug"
	case g.Quiet:
		level = "error"
	}
	return logging.New(cfg.Log.Env, level)
}

// setup loads the config and builds the logger.
func (g *Globals) setup() (config.Config, *zap.SugaredLogger, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return cfg, nil, err
	}
	log, err := g.logger(cfg)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information"`

	// Data management
	Load   LoadCmd   `cmd:"" help:"Ingest the OpenFlights files and export a snapshot"`
	Status StatusCmd `cmd:"" help:"Show the snapshot status"`
	Clean  CleanCmd  `cmd:"" help:"Delete the snapshot"`

	// Queries
	Stats        StatsCmd        `cmd:"" help:"Count airports, airlines and flights"`
	Path         PathCmd         `cmd:"" help:"Find the route with the fewest flights"`
	Distance     DistanceCmd     `cmd:"" help:"Find the route with the shortest distance"`
	CutPoints    CutPointsCmd    `cmd:"" name:"cut-points" help:"List articulation point airports"`
	Communities  CommunitiesCmd  `cmd:"" help:"Detect airport communities (Louvain)"`
	Hubs         HubsCmd         `cmd:"" help:"List airports above the mean destination count"`
	MultiCarrier MultiCarrierCmd `cmd:"" name:"multi-carrier" help:"List routes flown by several airlines"`
	TopRoutes    TopRoutesCmd    `cmd:"" name:"top-routes" help:"List the busiest routes of an airline"`
	TwoHop       TwoHopCmd       `cmd:"" name:"two-hop" help:"List airports reachable with exactly two flights"`
	Carriers     CarriersCmd     `cmd:"" help:"List airlines flying between two countries"`
	Sinks        SinksCmd        `cmd:"" help:"List airports without departures"`
	Country      CountryCmd      `cmd:"" help:"List the airports of a country"`
	Direct       DirectCmd       `cmd:"" help:"List the departures of an airport"`
	TopAirlines  TopAirlinesCmd  `cmd:"" name:"top-airlines" help:"Rank airlines by destinations served"`
	Search       SearchCmd       `cmd:"" help:"Search airports by name, city, country or code"`

	// Servers
	MCP   MCPCmd   `cmd:"" help:"Start MCP server (stdio transport)"`
	Serve ServeCmd `cmd:"" help:"Start MCP server with optional watch mode and metrics"`
	Setup SetupCmd `cmd:"" help:"Configure MCP for Claude Code / Cursor"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

func (c *CLI) parser(options ...kong.Option) (*kong.Kong, error) {
	opts := append([]kong.Option{
		kong.Name("flightgraph"),
		kong.Description("Flight route network analysis over OpenFlights data"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	}, options...)
	return kong.New(c, opts...)
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := c.parser()
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return err
	}

	return kongCtx.Run(&c.Globals)
}
