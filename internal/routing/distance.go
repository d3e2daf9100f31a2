// Package routing implements path search over a flight-route snapshot.
//
// ShortestPath finds the fewest-hop route within a hop bound using BFS.
// WeightedShortestPath finds the minimum great-circle distance route using
// Dijkstra, and requires PrecomputeDistances to have run on the store.
package routing

import (
	"math"

	"github.com/Benny93/flightgraph/internal/graph"
)

// EarthRadiusKM is the mean Earth radius used for great-circle distances.
const EarthRadiusKM = 6371.0

// Haversine returns the great-circle distance in kilometres between two
// points given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	h = math.Min(1, h)
	return 2 * EarthRadiusKM * math.Asin(math.Sqrt(h))
}

// AirportDistance is a graph.WeightFunc computing the haversine distance
// between two airports. It reports false when either airport has no
// coordinates.
func AirportDistance(src, dst *graph.Airport) (float64, bool) {
	if !src.HasCoordinates() || !dst.HasCoordinates() {
		return 0, false
	}
	return Haversine(*src.Latitude, *src.Longitude, *dst.Latitude, *dst.Longitude), true
}

// PrecomputeDistances sets DistanceKM on every flight whose endpoints both
// have coordinates and marks the store's distances as current. It returns the
// number of flights that received a distance. Running it twice yields the
// same result.
func PrecomputeDistances(store *graph.Store) int {
	return store.ApplyEdgeWeights(AirportDistance)
}
