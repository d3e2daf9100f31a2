package analytics

import (
	"context"
	"slices"

	"github.com/Benny93/flightgraph/internal/graph"
)

// CommunityOptions bounds the Louvain run.
type CommunityOptions struct {
	// MaxPhases caps the number of local-move plus aggregation rounds.
	MaxPhases int
	// MaxIterations caps the number of passes over all vertices per phase.
	MaxIterations int
	// Threshold is the minimum modularity gain a pass must achieve to keep
	// iterating.
	Threshold float64
	// Resolution scales the null-model term. 1 is classic modularity.
	Resolution float64
	// Limit caps the number of returned rows. Zero returns every airport.
	// It never affects the assignment itself.
	Limit int
}

// DefaultCommunityOptions returns the options used when none are configured.
func DefaultCommunityOptions() CommunityOptions {
	return CommunityOptions{
		MaxPhases:     10,
		MaxIterations: 10,
		Threshold:     1e-7,
		Resolution:    1.0,
		Limit:         20,
	}
}

// CommunityRow assigns one airport to a community.
type CommunityRow struct {
	AirportID int64  `json:"airport_id"`
	IATA      string `json:"iata"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Community int    `json:"community"`
}

// CommunityResult is the outcome of a Louvain run.
type CommunityResult struct {
	// Communities holds one row per airport ordered by airport id, truncated
	// to the requested limit.
	Communities []CommunityRow `json:"communities"`
	// Count is the number of distinct communities over all airports.
	Count int `json:"count"`
	// Modularity is the modularity of the full partition.
	Modularity float64 `json:"modularity"`
	// Converged is false when a phase or iteration cap stopped the run while
	// moves were still improving modularity. The partition is still usable.
	Converged bool `json:"converged"`
	Phases    int  `json:"phases"`
}

// DetectCommunities partitions airports with the Louvain method over the
// undirected projection, weighting each adjacency by its flight count.
// Community labels are numbered from 0 in ascending airport-id order of
// their first member and are only meaningful within one result.
func DetectCommunities(ctx context.Context, snap *graph.Snapshot, opts CommunityOptions) (*CommunityResult, error) {
	opts = withDefaults(opts)
	p := project(snap)

	assign, phases, converged, err := louvain(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	count := relabel(assign)

	res := &CommunityResult{
		Communities: []CommunityRow{},
		Count:       count,
		Modularity:  modularity(p, assign, opts.Resolution),
		Converged:   converged,
		Phases:      phases,
	}
	for i, c := range assign {
		if opts.Limit > 0 && len(res.Communities) >= opts.Limit {
			break
		}
		a := snap.Airport(i)
		res.Communities = append(res.Communities, CommunityRow{
			AirportID: a.ID,
			IATA:      a.IATA,
			City:      a.City,
			Country:   a.Country,
			Community: c,
		})
	}
	return res, nil
}

func withDefaults(opts CommunityOptions) CommunityOptions {
	def := DefaultCommunityOptions()
	if opts.MaxPhases <= 0 {
		opts.MaxPhases = def.MaxPhases
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.Threshold < 0 {
		opts.Threshold = def.Threshold
	}
	if opts.Resolution <= 0 {
		opts.Resolution = def.Resolution
	}
	return opts
}

// level is the weighted graph one Louvain phase operates on. At the first
// level vertices are airports; later levels hold one vertex per community
// of the level below, with internal weight carried as a self-loop.
type level struct {
	adj    [][]int
	weight [][]float64
	self   []float64
}

func (l *level) degrees() []float64 {
	k := make([]float64, len(l.adj))
	for i := range l.adj {
		for _, w := range l.weight[i] {
			k[i] += w
		}
		k[i] += 2 * l.self[i]
	}
	return k
}

// louvain returns the community of every airport index, the number of
// phases run and whether the run finished below the threshold.
func louvain(ctx context.Context, p *undirected, opts CommunityOptions) ([]int, int, bool, error) {
	n := len(p.adj)
	assign := make([]int, n)
	for i := range assign {
		assign[i] = i
	}

	lv := &level{adj: p.adj, weight: p.weight, self: make([]float64, n)}
	var m2 float64
	for _, k := range lv.degrees() {
		m2 += k
	}
	if m2 == 0 {
		return assign, 0, true, nil
	}

	phases := 0
	for phases < opts.MaxPhases {
		comm, moved, settled, err := lv.localMove(ctx, m2, opts)
		if err != nil {
			return nil, phases, false, err
		}
		phases++
		if !moved {
			return assign, phases, true, nil
		}

		count := relabel(comm)
		for i := range assign {
			assign[i] = comm[assign[i]]
		}
		if !settled {
			return assign, phases, false, nil
		}
		lv = lv.aggregate(comm, count)
	}
	return assign, phases, false, nil
}

// localMove greedily moves vertices, in index order, to the neighboring
// community with the largest modularity gain. It reports whether any vertex
// moved and whether the passes stopped on their own rather than at the cap.
func (l *level) localMove(ctx context.Context, m2 float64, opts CommunityOptions) ([]int, bool, bool, error) {
	n := len(l.adj)
	k := l.degrees()
	m := m2 / 2
	gamma := opts.Resolution

	comm := make([]int, n)
	tot := make([]float64, n)
	for i := range comm {
		comm[i] = i
		tot[i] = k[i]
	}

	links := make([]float64, n)
	touched := make([]int, 0, 16)
	seen := make([]bool, n)
	moved := false
	steps := 0

	gain := func(i, c int) float64 {
		return links[c]/m - gamma*tot[c]*k[i]/(2*m*m)
	}

	for iter := 0; iter < opts.MaxIterations; iter++ {
		passGain := 0.0
		passMoved := false

		for i := 0; i < n; i++ {
			steps++
			if steps%contextCheckInterval == 0 && ctx.Err() != nil {
				return nil, false, false, ctx.Err()
			}

			for idx, j := range l.adj[i] {
				c := comm[j]
				if !seen[c] {
					seen[c] = true
					touched = append(touched, c)
				}
				links[c] += l.weight[i][idx]
			}

			cur := comm[i]
			tot[cur] -= k[i]
			curGain := gain(i, cur)
			best, bestGain := cur, curGain
			for _, c := range touched {
				if c == cur {
					continue
				}
				if g := gain(i, c); g > bestGain {
					best, bestGain = c, g
				}
			}
			tot[best] += k[i]
			comm[i] = best

			if best != cur {
				passMoved = true
				moved = true
				passGain += bestGain - curGain
			}

			for _, c := range touched {
				links[c] = 0
				seen[c] = false
			}
			touched = touched[:0]
		}

		if !passMoved || passGain < opts.Threshold {
			return comm, moved, true, nil
		}
	}
	return comm, moved, false, nil
}

// aggregate collapses each community into one vertex. comm must be dense.
func (l *level) aggregate(comm []int, count int) *level {
	self := make([]float64, count)
	links := make([]map[int]float64, count)

	for i := range l.adj {
		ci := comm[i]
		self[ci] += l.self[i]
		for idx, j := range l.adj[i] {
			cj := comm[j]
			w := l.weight[i][idx]
			if ci == cj {
				// Each internal edge is seen from both ends.
				if i < j {
					self[ci] += w
				}
				continue
			}
			if links[ci] == nil {
				links[ci] = make(map[int]float64)
			}
			links[ci][cj] += w
		}
	}

	next := &level{
		adj:    make([][]int, count),
		weight: make([][]float64, count),
		self:   self,
	}
	for c, nb := range links {
		keys := make([]int, 0, len(nb))
		for d := range nb {
			keys = append(keys, d)
		}
		slices.Sort(keys)
		w := make([]float64, len(keys))
		for i, d := range keys {
			w[i] = nb[d]
		}
		next.adj[c] = keys
		next.weight[c] = w
	}
	return next
}

// relabel renumbers labels densely from 0 in order of first appearance and
// returns the number of distinct labels.
func relabel(labels []int) int {
	mapping := make(map[int]int)
	for i, c := range labels {
		id, ok := mapping[c]
		if !ok {
			id = len(mapping)
			mapping[c] = id
		}
		labels[i] = id
	}
	return len(mapping)
}

// modularity computes Newman modularity of a partition of the projection.
func modularity(p *undirected, assign []int, gamma float64) float64 {
	var m2 float64
	in := make(map[int]float64)
	tot := make(map[int]float64)
	for i := range p.adj {
		for idx, j := range p.adj[i] {
			w := p.weight[i][idx]
			m2 += w
			tot[assign[i]] += w
			if assign[i] == assign[j] {
				in[assign[i]] += w
			}
		}
	}
	if m2 == 0 {
		return 0
	}

	var q float64
	for c, t := range tot {
		q += in[c]/m2 - gamma*(t/m2)*(t/m2)
	}
	return q
}
