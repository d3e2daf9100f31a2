package cmd

import (
	"context"
	"fmt"

	"github.com/Benny93/flightgraph/internal/query"
	"github.com/Benny93/flightgraph/internal/render"
)

// emit prints v as JSON when --json is set, otherwise the text rendering.
func (g *Globals) emit(v any, text func() string) error {
	if g.JSON {
		return g.printJSON(v)
	}
	g.println(text())
	return nil
}

// StatsCmd counts the entities of the graph.
type StatsCmd struct{}

// Run executes the stats command.
func (c *StatsCmd) Run(g *Globals) error {
	return g.withService(func(ctx context.Context, svc *query.Service) error {
		st := svc.Stats(ctx)
		return g.emit(st, func() string { return render.Stats(st) })
	})
}

// PathCmd finds the fewest-hop route between two airports.
type PathCmd struct {
	From    string `arg:"" help:"Origin airport (IATA code or id)"`
	To      string `arg:"" help:"Destination airport (IATA code or id)"`
	MaxHops int    `short:"m" default:"-1" help:"Maximum number of flights (-1 uses the configured default)"`
}

// Run executes the path command.
func (c *PathCmd) Run(g *Globals) error {
	return g.withService(func(ctx context.Context, svc *query.Service) error {
		path, found, err := svc.ShortestPath(ctx, c.From, c.To, c.MaxHops)
		if err != nil {
			return err
		}
		if !found {
			return g.emit(nil, func() string {
				return fmt.Sprintf("No route from %s to %s within the hop limit.", c.From, c.To)
			})
		}
		return g.emit(path, func() string { return render.Path(path) })
	})
}

// DistanceCmd finds the shortest great-circle route between two airports.
type DistanceCmd struct {
	From string `arg:"" help:"Origin airport (IATA code or id)"`
	To   string `arg:"" help:"Destination airport (IATA code or id)"`
}

// Run executes the distance command.
func (c *DistanceCmd) Run(g *Globals) error {
	return g.withService(func(ctx context.Context, svc *query.Service) error {
		path, found, err := svc.Distance(ctx, c.From, c.To)
		if err != nil {
			return err
		}
		if !found {
			return g.emit(nil, func() string { return fmt.Sprintf("No route from %s to %s.", c.From, c.To) })
		}
		return g.emit(path, func() string { return render.Distance(path) })
	})
}

// CutPointsCmd lists articulation points.
type CutPointsCmd struct{}

// Run executes the cut-points command.
func (c *CutPointsCmd) Run(g *Globals) error {
	return g.withService(func(ctx context.Context, svc *query.Service) error {
		res, err := svc.CutPoints(ctx)
		if err != nil {
			return err
		}
		return g.emit(res, func() string { return render.CutPoints(res) })
	})
}

// CommunitiesCmd runs Louvain community detection.
type CommunitiesCmd struct {
	Limit int `short:"n" default:"20" help:"Maximum rows (0 for all)"`
}

// Run executes the communities command.
func (c *CommunitiesCmd) Run(g *Globals) error {
	return g.withService(func(ctx context.Context, svc *query.Service) error {
		res, err := svc.Communities(ctx, c.Limit)
		if err != nil {
			return err
		}
		return g.emit(res, func() string { return render.Communities(res) })
	})
}

// HubsCmd lists airports above the mean destination count.
type HubsCmd struct {
	Limit int `short:"n" default:"20" help:"Maximum rows (0 for all)"`
}

// Run executes the hubs command.
func (c *HubsCmd) Run(g *Globals) error {
	return g.withService(func(ctx context.Context, svc *query.Service) error {
		res, err := svc.Hubs(ctx, c.Limit)
		if err != nil {
			return err
		}
		return g.emit(res, func() string { return render.Hubs(res) })
	})
}

// MultiCarrierCmd lists routes flown by more than one airline code.
type MultiCarrierCmd struct {
	Limit int `short:"n" default:"20" help:"Maximum rows (0 for all)"`
}

// Run executes the multi-carrier command.
func (c *MultiCarrierCmd) Run(g *Globals) error {
	return g.withService(func(ctx context.Context, svc *query.Service) error {
		rows, err := svc.MultiCarrier(ctx, c.Limit)
		if err != nil {
			return err
		}
		return g.emit(rows, func() string { return render.MultiCarrier(rows) })
	})
}

// TopRoutesCmd lists the busiest routes of one airline.
type TopRoutesCmd struct {
	Airline string `arg:"" help:"Airline code as it appears on routes"`
	Limit   int    `short:"n" default:"10" help:"Maximum rows (0 for all)"`
}

// Run executes the top-routes command.
func (c *TopRoutesCmd) Run(g *Globals) error {
	return g.withService(func(ctx context.Context, svc *query.Service) error {
		rows, err := svc.TopRoutes(ctx, c.Airline, c.Limit)
		if err != nil {
			return err
		}
		return g.emit(rows, func() string { return render.TopRoutes(c.Airline, rows) })
	})
}

// TwoHopCmd lists airports reachable in exactly two flights.
type TwoHopCmd struct {
	Origin string `arg:"" help:"Origin airport (IATA code or id)"`
}

// Run executes the two-hop command.
func (c *TwoHopCmd) Run(g *Globals) error {
	return g.withService(func(ctx context.Context, svc *query.Service) error {
		rows, err := svc.TwoHop(ctx, c.Origin)
		if err != nil {
			return err
		}
		return g.emit(rows, func() string {
			return render.Airports("Two-hop destinations from "+c.Origin, rows)
		})
	})
}

// CarriersCmd lists airlines flying between two countries.
type CarriersCmd struct {
	From string `arg:"" help:"Origin country"`
	To   string `arg:"" help:"Destination country"`
}

// Run executes the carriers command.
func (c *CarriersCmd) Run(g *Globals) error {
	return g.withService(func(ctx context.Context, svc *query.Service) error {
		rows, err := svc.Carriers(ctx, c.From, c.To)
		if err != nil {
			return err
		}
		return g.emit(rows, func() string {
			return render.Airlines(fmt.Sprintf("Airlines flying %s to %s", c.From, c.To), rows)
		})
	})
}

// SinksCmd lists airports with arrivals but no departures.
type SinksCmd struct {
	Limit int `short:"n" default:"20" help:"Maximum rows (0 for all)"`
}

// Run executes the sinks command.
func (c *SinksCmd) Run(g *Globals) error {
	return g.withService(func(ctx context.Context, svc *query.Service) error {
		rows, err := svc.Sinks(ctx, c.Limit)
		if err != nil {
			return err
		}
		return g.emit(rows, func() string { return render.Airports("Airports without departures", rows) })
	})
}

// CountryCmd lists the airports of a country.
type CountryCmd struct {
	Country string `arg:"" help:"Country name"`
}

// Run executes the country command.
func (c *CountryCmd) Run(g *Globals) error {
	return g.withService(func(ctx context.Context, svc *query.Service) error {
		rows, err := svc.Country(ctx, c.Country)
		if err != nil {
			return err
		}
		return g.emit(rows, func() string { return render.Country(c.Country, rows) })
	})
}

// DirectCmd lists the departures of an airport.
type DirectCmd struct {
	Origin string `arg:"" help:"Origin airport (IATA code or id)"`
}

// Run executes the direct command.
func (c *DirectCmd) Run(g *Globals) error {
	return g.withService(func(ctx context.Context, svc *query.Service) error {
		rows, err := svc.Direct(ctx, c.Origin)
		if err != nil {
			return err
		}
		return g.emit(rows, func() string { return render.Direct(c.Origin, rows) })
	})
}

// TopAirlinesCmd ranks airlines by distinct destinations.
type TopAirlinesCmd struct {
	Limit int `short:"n" default:"10" help:"Maximum rows (0 for all)"`
}

// Run executes the top-airlines command.
func (c *TopAirlinesCmd) Run(g *Globals) error {
	return g.withService(func(ctx context.Context, svc *query.Service) error {
		rows, err := svc.TopAirlines(ctx, c.Limit)
		if err != nil {
			return err
		}
		return g.emit(rows, func() string { return render.TopAirlines(rows) })
	})
}

// SearchCmd searches airports.
type SearchCmd struct {
	Query string `arg:"" help:"Search text"`
	Limit int    `short:"n" default:"20" help:"Maximum results"`
}

// Run executes the search command.
func (c *SearchCmd) Run(g *Globals) error {
	return g.withService(func(ctx context.Context, svc *query.Service) error {
		results, err := svc.Search(ctx, c.Query, c.Limit)
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		return g.emit(results, func() string { return render.SearchResults(results, c.Query) })
	})
}
