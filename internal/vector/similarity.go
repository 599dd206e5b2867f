// Package vector provides similarity scoring and nearest-neighbour search over enrolled records.
package vector

import (
	"math"

	"github.com/hyperjump/rollcall/internal/models"
)

// ScoreOptions controls how two vectors are compared.
type ScoreOptions struct {
	// Truncate scores vectors of different length over their shared prefix instead
	// of rejecting them. Truncation can inflate similarity; keep it off unless the
	// corpus is known to mix model versions.
	Truncate bool
	// Trace records the full working of the computation, including raw components.
	Trace bool
}

// Similarity is the result of comparing two vectors.
type Similarity struct {
	Cosine       float64
	NormDistance float64
	// Len is the number of components that were compared.
	Len int
	// Truncated is true when the inputs had different lengths.
	Truncated bool
	Trace     *models.Trace
}

// Score computes cosine similarity between a and b.
//
// A zero denominator (either vector all zeros) is replaced by 1, so the score
// degenerates to the dot product. Mismatched lengths return a
// *models.DimensionMismatchError unless opts.Truncate is set.
func Score(a, b []float32, opts ScoreOptions) (*Similarity, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, models.InvalidInputf("cannot score an empty vector")
	}
	n := len(a)
	truncated := false
	if len(a) != len(b) {
		if !opts.Truncate {
			return nil, &models.DimensionMismatchError{Expected: len(a), Actual: len(b)}
		}
		truncated = true
		if len(b) < n {
			n = len(b)
		}
	}

	var terms []models.TraceTerm
	if opts.Trace {
		terms = make([]models.TraceTerm, n)
	}
	var dot, sumA, sumB float64
	for i := 0; i < n; i++ {
		ai, bi := float64(a[i]), float64(b[i])
		p := ai * bi
		dot += p
		sumA += ai * ai
		sumB += bi * bi
		if terms != nil {
			terms[i] = models.TraceTerm{A: a[i], B: b[i], Product: p}
		}
	}
	normA, normB := math.Sqrt(sumA), math.Sqrt(sumB)
	denom := normA * normB
	if denom == 0 {
		denom = 1
	}
	cos := dot / denom

	s := &Similarity{
		Cosine:       cos,
		NormDistance: NormDistance(cos),
		Len:          n,
		Truncated:    truncated,
	}
	if opts.Trace {
		s.Trace = &models.Trace{
			Len:   n,
			Dot:   dot,
			NormA: normA,
			NormB: normB,
			Denom: denom,
			Terms: terms,
		}
	}
	return s, nil
}

// Cosine returns the cosine similarity of a and b over their shared prefix.
// Empty input yields 0.
func Cosine(a, b []float32) float64 {
	s, err := Score(a, b, ScoreOptions{Truncate: true})
	if err != nil {
		return 0
	}
	return s.Cosine
}

// NormDistance converts a cosine similarity to sqrt(2*(1-cos)), clamped at 0.
// It equals the Euclidean distance only for unit-length vectors.
func NormDistance(cos float64) float64 {
	return math.Sqrt(math.Max(0, 2*(1-cos)))
}

// InnerProduct returns the inner product of two equal-length vectors, or 0.
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

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
