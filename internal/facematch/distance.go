package facematch

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Distance computes the Euclidean distance between two embeddings.
// Lower distance means more similar faces. Embeddings of different length
// (or empty ones) are infinitely far apart.
func Distance(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	return floats.Distance(a, b, 2)
}

// DistanceAll computes the distance between a query embedding and every gallery entry.
// Returns a slice of distances in the same order as the gallery.
func DistanceAll(g Gallery, query Embedding) []float64 {
	distances := make([]float64, len(g))
	for i, entry := range g {
		distances[i] = Distance(entry.Embedding, query)
	}
	return distances
}
