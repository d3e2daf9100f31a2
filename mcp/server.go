// Package mcp provides the MCP (Model Context Protocol) server for flightgraph.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/Benny93/flightgraph/internal/analytics"
	"github.com/Benny93/flightgraph/internal/logging"
	"github.com/Benny93/flightgraph/internal/render"
	"github.com/Benny93/flightgraph/internal/routing"
	"github.com/Benny93/flightgraph/internal/storage"
)

const (
	serverName    = "flightgraph"
	serverVersion = "0.1.0"

	defaultLimit = 20
)

// QueryService is the read side the server exposes as tools.
type QueryService interface {
	Stats(ctx context.Context) analytics.Stats
	ShortestPath(ctx context.Context, from, to string, maxHops int) (*routing.Path, bool, error)
	Distance(ctx context.Context, from, to string) (*routing.WeightedPath, bool, error)
	CutPoints(ctx context.Context) (*analytics.ArticulationResult, error)
	Communities(ctx context.Context, limit int) (*analytics.CommunityResult, error)
	Hubs(ctx context.Context, limit int) (*analytics.HubResult, error)
	MultiCarrier(ctx context.Context, limit int) ([]analytics.MultiCarrierRow, error)
	TopRoutes(ctx context.Context, code string, limit int) ([]analytics.RouteCountRow, error)
	TwoHop(ctx context.Context, origin string) ([]analytics.AirportRow, error)
	Carriers(ctx context.Context, fromCountry, toCountry string) ([]analytics.AirlineRow, error)
	Sinks(ctx context.Context, limit int) ([]analytics.AirportRow, error)
	Country(ctx context.Context, country string) ([]analytics.CountryAirportRow, error)
	Direct(ctx context.Context, origin string) ([]analytics.DirectFlightRow, error)
	TopAirlines(ctx context.Context, limit int) ([]analytics.AirlineReachRow, error)
	Search(ctx context.Context, query string, limit int) ([]storage.SearchResult, error)
}

// Server represents the MCP server.
type Server struct {
	queries QueryService
	server  *mcp.Server
	log     *zap.SugaredLogger
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new MCP server over queries.
func NewServer(queries QueryService, log *zap.SugaredLogger) *Server {
	s := &Server{
		queries: queries,
		log:     logging.OrNop(log),
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	s.registerTools()
	s.registerResources()

	return s
}

// SDK returns the underlying SDK server, for transports other than the
// line-delimited stdio loop of Run.
func (s *Server) SDK() *mcp.Server {
	return s.server
}

func objectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

var (
	airportRef = func(desc string) *jsonschema.Schema {
		return &jsonschema.Schema{Type: "string", Description: desc + " (IATA code or numeric airport id)"}
	}
	minZero   = func() *float64 { v := 0.0; return &v }()
	limitProp = &jsonschema.Schema{Type: "integer", Description: "Maximum number of rows", Minimum: minZero}
)

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "flight_stats",
			Description: "Count airports, airlines and flights in the loaded route network.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{}),
		},
		{
			Name:        "flight_path",
			Description: "Find the route with the fewest flights between two airports.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"from":     airportRef("Origin airport"),
				"to":       airportRef("Destination airport"),
				"max_hops": {Type: "integer", Description: "Maximum number of flights", Minimum: minZero},
			}, "from", "to"),
		},
		{
			Name:        "flight_distance",
			Description: "Find the route with the shortest great-circle distance between two airports.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"from": airportRef("Origin airport"),
				"to":   airportRef("Destination airport"),
			}, "from", "to"),
		},
		{
			Name:        "flight_cut_points",
			Description: "List airports whose removal would disconnect part of the network.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{}),
		},
		{
			Name:        "flight_communities",
			Description: "Group airports into densely connected communities (Louvain).",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{"limit": limitProp}),
		},
		{
			Name:        "flight_hubs",
			Description: "List airports serving more distinct destinations than average.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{"limit": limitProp}),
		},
		{
			Name:        "flight_multi_carrier",
			Description: "List routes flown by more than one airline.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{"limit": limitProp}),
		},
		{
			Name:        "flight_top_routes",
			Description: "List the busiest routes of one airline.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"airline": {Type: "string", Description: "Airline code as it appears on routes"},
				"limit":   limitProp,
			}, "airline"),
		},
		{
			Name:        "flight_two_hop",
			Description: "List airports reachable with exactly two flights.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{"origin": airportRef("Origin airport")}, "origin"),
		},
		{
			Name:        "flight_carriers",
			Description: "List airlines flying from one country to another.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"from_country": {Type: "string", Description: "Origin country"},
				"to_country":   {Type: "string", Description: "Destination country"},
			}, "from_country", "to_country"),
		},
		{
			Name:        "flight_sinks",
			Description: "List airports with arriving but no departing flights.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{"limit": limitProp}),
		},
		{
			Name:        "flight_country",
			Description: "List the airports of a country.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"country": {Type: "string", Description: "Country name"},
			}, "country"),
		},
		{
			Name:        "flight_direct",
			Description: "List the departing flights of an airport.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{"origin": airportRef("Origin airport")}, "origin"),
		},
		{
			Name:        "flight_top_airlines",
			Description: "Rank airlines by the number of distinct airports they fly to.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{"limit": limitProp}),
		},
		{
			Name:        "flight_search",
			Description: "Search airports by name, city, country or code.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"query": {Type: "string", Description: "Search text"},
				"limit": limitProp,
			}, "query"),
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "flightgraph://overview",
			Name:        "Network Overview",
			Description: "Entity counts of the loaded route network",
			MimeType:    "text/plain",
		},
		{
			URI:         "flightgraph://schema",
			Name:        "Graph Schema",
			Description: "Description of the flight route graph",
			MimeType:    "text/plain",
		},
	}
}

func stringArg(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return strings.TrimSpace(v)
}

// intArg reads a JSON number, returning def when absent.
func intArg(args map[string]any, name string, def int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	q := s.queries
	switch name {
	case "flight_stats":
		return render.Stats(q.Stats(ctx)), nil
	case "flight_path":
		from, to := stringArg(args, "from"), stringArg(args, "to")
		path, found, err := q.ShortestPath(ctx, from, to, intArg(args, "max_hops", -1))
		if err != nil {
			return "", err
		}
		if !found {
			return fmt.Sprintf("No route from %s to %s within the hop limit.", from, to), nil
		}
		return render.Path(path), nil
	case "flight_distance":
		from, to := stringArg(args, "from"), stringArg(args, "to")
		path, found, err := q.Distance(ctx, from, to)
		if err != nil {
			return "", err
		}
		if !found {
			return fmt.Sprintf("No route from %s to %s.", from, to), nil
		}
		return render.Distance(path), nil
	case "flight_cut_points":
		res, err := q.CutPoints(ctx)
		if err != nil {
			return "", err
		}
		return render.CutPoints(res), nil
	case "flight_communities":
		res, err := q.Communities(ctx, intArg(args, "limit", defaultLimit))
		if err != nil {
			return "", err
		}
		return render.Communities(res), nil
	case "flight_hubs":
		res, err := q.Hubs(ctx, intArg(args, "limit", defaultLimit))
		if err != nil {
			return "", err
		}
		return render.Hubs(res), nil
	case "flight_multi_carrier":
		rows, err := q.MultiCarrier(ctx, intArg(args, "limit", defaultLimit))
		if err != nil {
			return "", err
		}
		return render.MultiCarrier(rows), nil
	case "flight_top_routes":
		code := stringArg(args, "airline")
		if code == "" {
			return "No airline provided", nil
		}
		rows, err := q.TopRoutes(ctx, code, intArg(args, "limit", defaultLimit))
		if err != nil {
			return "", err
		}
		return render.TopRoutes(code, rows), nil
	case "flight_two_hop":
		origin := stringArg(args, "origin")
		rows, err := q.TwoHop(ctx, origin)
		if err != nil {
			return "", err
		}
		return render.Airports(fmt.Sprintf("Two-hop destinations from %s", origin), rows), nil
	case "flight_carriers":
		from, to := stringArg(args, "from_country"), stringArg(args, "to_country")
		rows, err := q.Carriers(ctx, from, to)
		if err != nil {
			return "", err
		}
		return render.Airlines(fmt.Sprintf("Airlines flying %s to %s", from, to), rows), nil
	case "flight_sinks":
		rows, err := q.Sinks(ctx, intArg(args, "limit", defaultLimit))
		if err != nil {
			return "", err
		}
		return render.Airports("Airports without departures", rows), nil
	case "flight_country":
		country := stringArg(args, "country")
		rows, err := q.Country(ctx, country)
		if err != nil {
			return "", err
		}
		return render.Country(country, rows), nil
	case "flight_direct":
		origin := stringArg(args, "origin")
		rows, err := q.Direct(ctx, origin)
		if err != nil {
			return "", err
		}
		return render.Direct(origin, rows), nil
	case "flight_top_airlines":
		rows, err := q.TopAirlines(ctx, intArg(args, "limit", defaultLimit))
		if err != nil {
			return "", err
		}
		return render.TopAirlines(rows), nil
	case "flight_search":
		query := stringArg(args, "query")
		if query == "" {
			return "No query provided", nil
		}
		results, err := q.Search(ctx, query, intArg(args, "limit", defaultLimit))
		if err != nil {
			return "", err
		}
		text := render.SearchResults(results, query)
		if len(results) > 0 {
			text += "\nNext: Use `flight_direct` on an airport to list its departures."
		}
		return text, nil
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "flightgraph://overview":
		return render.Stats(s.queries.Stats(ctx)), nil
	case "flightgraph://schema":
		return render.Schema(), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run serves line-delimited JSON-RPC over stdin and stdout until EOF or
// ctx is cancelled.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return errors.New("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	// MCP stdio framing is one compact JSON message per line.
	encoder := json.NewEncoder(stdout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.Debugw("dropping malformed request", "error", err)
			continue
		}

		// Notifications carry no id and get no response.
		if _, ok := req["id"]; !ok {
			continue
		}

		resp := s.handleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id := req["id"]

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "ping":
		return resultResponse(id, map[string]any{})
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return s.handleResourcesList(id)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, -32601, "Method not found: "+method)
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return resultResponse(id, map[string]any{
		"protocolVersion": "2024-11-05",
		"serverInfo": map[string]any{
			"name":    serverName,
			"version": serverVersion,
		},
		"capabilities": map[string]any{
			"tools":     map[string]any{"listChanged": false},
			"resources": map[string]any{"listChanged": false},
		},
	})
}

func (s *Server) handleToolsList(id any) map[string]any {
	tools := s.ListTools()
	toolList := make([]map[string]any, len(tools))
	for i, tool := range tools {
		toolList[i] = map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": tool.InputSchema,
		}
	}
	return resultResponse(id, map[string]any{"tools": toolList})
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	result, err := s.CallTool(ctx, name, args)
	if err != nil {
		s.log.Debugw("tool call failed", "tool", name, "error", err)
		return errorResponse(id, -32000, err.Error())
	}

	return resultResponse(id, map[string]any{
		"content": []map[string]any{{"type": "text", "text": result}},
	})
}

func (s *Server) handleResourcesList(id any) map[string]any {
	resources := s.ListResources()
	resourceList := make([]map[string]any, len(resources))
	for i, res := range resources {
		resourceList[i] = map[string]any{
			"uri":         res.URI,
			"name":        res.Name,
			"description": res.Description,
			"mimeType":    res.MimeType,
		}
	}
	return resultResponse(id, map[string]any{"resources": resourceList})
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	uri, _ := params["uri"].(string)
	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return resultResponse(id, map[string]any{
		"contents": []map[string]any{{"uri": uri, "mimeType": "text/plain", "text": content}},
	})
}

func resultResponse(id any, result map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
}

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}

// registerTools mirrors ListTools and CallTool onto the SDK server.
func (s *Server) registerTools() {
	for _, tool := range s.ListTools() {
		name := tool.Name
		s.server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args map[string]any
			if raw := req.Params.Arguments; len(raw) > 0 {
				if err := json.Unmarshal(raw, &args); err != nil {
					return nil, fmt.Errorf("decoding arguments: %w", err)
				}
			}
			text, err := s.CallTool(ctx, name, args)
			if err != nil {
				return &mcp.CallToolResult{
					Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
					IsError: true,
				}, nil
			}
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil
		})
	}
}

// registerResources mirrors ListResources and ReadResource onto the SDK
// server.
func (s *Server) registerResources() {
	for _, res := range s.ListResources() {
		s.server.AddResource(&mcp.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MIMEType:    res.MimeType,
		}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			text, err := s.ReadResource(ctx, req.Params.URI)
			if err != nil {
				return nil, err
			}
			return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
				{URI: req.Params.URI, MIMEType: "text/plain", Text: text},
			}}, nil
		})
	}
}
