package resolver

import (
	"fmt"
	"testing"
)

func BenchmarkResolve30Faces500Students(b *testing.B) {
	const dims = 128
	vec := func(seed int) []float32 {
		v := make([]float32, dims)
		for i := range v {
			v[i] = float32((seed*13+i*7)%53) / 53
		}
		return v
	}
	candidates := make([]Candidate, 500)
	for i := range candidates {
		candidates[i] = Candidate{SourceID: fmt.Sprintf("S%03d", i), Vector: vec(i)}
	}
	queries := make([][]float32, 30)
	for i := range queries {
		queries[i] = vec(i * 11)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = Resolve(queries, candidates, 0.9, Options{})
	}
}
