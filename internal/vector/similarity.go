package vector

import (
	"math"

	"github.com/viant/vec/search"
)

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// Magnitude returns the L2 norm of a vector.
func Magnitude(x []float32) float64 {
	return float64(search.Float32s(x).Magnitude())
}

// finite reports whether every component is a real number.
func finite(x []float32) bool {
	for _, v := range x {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
