package analytics

import (
	"context"

	"github.com/Benny93/flightgraph/internal/graph"
)

// contextCheckInterval is how many DFS steps run between context checks.
const contextCheckInterval = 1000

// ArticulationResult lists the airports whose removal would disconnect the
// undirected route network.
type ArticulationResult struct {
	// Airports are the articulation points ordered by airport id.
	Airports []AirportRow `json:"airports"`
	// Components is the number of connected components of the undirected
	// projection, isolated airports included.
	Components int `json:"components"`
}

// DFS frame phases. Each frame simulates one recursive call.
const (
	phaseInit = iota
	phaseEdges
	phasePostChild
	phaseFinalize
)

type articulationFrame struct {
	node       int
	parent     int
	child      int
	edgeIndex  int
	childCount int
	phase      int
}

// ArticulationPoints returns the airports that are cut vertices of the
// undirected projection. Components are processed one at a time; an airport
// without any flights is never a cut vertex. ctx is checked periodically.
func ArticulationPoints(ctx context.Context, snap *graph.Snapshot) (*ArticulationResult, error) {
	p := project(snap)

	order := make([]int, snap.AirportCount())
	for i := range order {
		order[i] = i
	}

	cut, comps, err := articulationPoints(ctx, p.adj, order)
	if err != nil {
		return nil, err
	}

	res := &ArticulationResult{Airports: []AirportRow{}, Components: comps}
	for i, ok := range cut {
		if ok {
			res.Airports = append(res.Airports, airportRow(snap.Airport(i)))
		}
	}
	return res, nil
}

// articulationPoints runs iterative Tarjan low-link DFS, starting a new tree
// from each unvisited vertex in order. It returns the cut-vertex flags and
// the number of DFS trees, which equals the component count.
func articulationPoints(ctx context.Context, adj [][]int, order []int) ([]bool, int, error) {
	n := len(adj)
	disc := make([]int, n)
	low := make([]int, n)
	visited := make([]bool, n)
	cut := make([]bool, n)

	timer := 0
	steps := 0
	trees := 0

	for _, root := range order {
		if visited[root] {
			continue
		}
		trees++

		stack := []articulationFrame{{node: root, parent: -1, phase: phaseInit}}
		for len(stack) > 0 {
			steps++
			if steps%contextCheckInterval == 0 && ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}

			frame := &stack[len(stack)-1]
			switch frame.phase {
			case phaseInit:
				visited[frame.node] = true
				disc[frame.node] = timer
				low[frame.node] = timer
				timer++
				frame.phase = phaseEdges

			case phaseEdges:
				pushed := false
				neighbors := adj[frame.node]
				for frame.edgeIndex < len(neighbors) {
					v := neighbors[frame.edgeIndex]
					frame.edgeIndex++
					if v == frame.parent {
						continue
					}
					if !visited[v] {
						frame.child = v
						frame.childCount++
						frame.phase = phasePostChild
						stack = append(stack, articulationFrame{node: v, parent: frame.node, phase: phaseInit})
						pushed = true
						break
					}
					if disc[v] < low[frame.node] {
						low[frame.node] = disc[v]
					}
				}
				if !pushed {
					frame.phase = phaseFinalize
				}

			case phasePostChild:
				if low[frame.child] < low[frame.node] {
					low[frame.node] = low[frame.child]
				}
				if frame.parent >= 0 && low[frame.child] >= disc[frame.node] {
					cut[frame.node] = true
				}
				frame.phase = phaseEdges

			case phaseFinalize:
				if frame.parent < 0 && frame.childCount >= 2 {
					cut[frame.node] = true
				}
				stack = stack[:len(stack)-1]
			}
		}
	}

	return cut, trees, nil
}
