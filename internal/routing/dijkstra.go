package routing

import (
	"container/heap"
	"math"

	"github.com/Benny93/flightgraph/internal/graph"
)

// WeightedPath is a minimum-distance route between two airports.
type WeightedPath struct {
	Path
	// DistanceKM is the total great-circle length of the route.
	DistanceKM float64 `json:"distance_km"`
}

// WeightedShortestPath returns the route with the smallest total flight
// distance. Flights without a distance are not traversable. Ties keep the
// first path found; a later path replaces an earlier one only when strictly
// shorter. It returns ErrDistancesNotComputed when the snapshot was taken
// before distances were computed or after they went stale.
func WeightedShortestPath(snap *graph.Snapshot, from, to int64) (*WeightedPath, bool, error) {
	if !snap.DistancesReady() {
		return nil, false, ErrDistancesNotComputed
	}
	src, dst, err := resolveEndpoints(snap, from, to)
	if err != nil {
		return nil, false, err
	}

	r := newDijkstraRunner(snap, src)
	r.run(dst)

	if math.IsInf(r.dist[dst], 1) {
		return nil, false, nil
	}
	return &WeightedPath{
		Path:       *buildPath(snap, src, tracePath(snap, r.prev, dst)),
		DistanceKM: r.dist[dst],
	}, true, nil
}

// dijkstraRunner holds the mutable state for a single search.
type dijkstraRunner struct {
	snap    *graph.Snapshot
	dist    []float64
	prev    []int
	settled []bool
	pq      nodePQ
}

func newDijkstraRunner(snap *graph.Snapshot, src int) *dijkstraRunner {
	n := snap.AirportCount()
	r := &dijkstraRunner{
		snap:    snap,
		dist:    make([]float64, n),
		prev:    make([]int, n),
		settled: make([]bool, n),
		pq:      make(nodePQ, 0, n),
	}
	for i := range r.dist {
		r.dist[i] = math.Inf(1)
		r.prev[i] = -1
	}
	r.dist[src] = 0
	heap.Init(&r.pq)
	heap.Push(&r.pq, &nodeItem{node: src, dist: 0})
	return r
}

// run settles vertices in order of distance until target is settled or the
// frontier is exhausted.
func (r *dijkstraRunner) run(target int) {
	for r.pq.Len() > 0 {
		item := heap.Pop(&r.pq).(*nodeItem)
		u := item.node
		// Stale entry from lazy decrease-key.
		if r.settled[u] || item.dist > r.dist[u] {
			continue
		}
		r.settled[u] = true
		if u == target {
			return
		}

		for _, e := range r.snap.Out(u) {
			f := r.snap.Flight(e)
			if f.DistanceKM == nil {
				continue
			}
			_, v := r.snap.Endpoints(e)
			if r.settled[v] {
				continue
			}
			nd := r.dist[u] + *f.DistanceKM
			if nd < r.dist[v] {
				r.dist[v] = nd
				r.prev[v] = e
				heap.Push(&r.pq, &nodeItem{node: v, dist: nd})
			}
		}
	}
}

// nodeItem is a heap entry: a dense airport index and its tentative distance.
type nodeItem struct {
	node int
	dist float64
}

// nodePQ is a min-heap ordered by distance, then airport index.
type nodePQ []*nodeItem

func (pq nodePQ) Len() int { return len(pq) }

func (pq nodePQ) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	return pq[i].node < pq[j].node
}

func (pq nodePQ) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *nodePQ) Push(x any) { *pq = append(*pq, x.(*nodeItem)) }

func (pq *nodePQ) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}
