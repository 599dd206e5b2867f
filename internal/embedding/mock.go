package embedding

import (
	"context"
	"errors"
	"hash/fnv"
	"math"

	"github.com/hyperjump/rollcall/pkg/utils"
)

// MockExtractor is a deterministic extractor for tests. Identical media always
// yields the same unit vector; different media almost always differ.
type MockExtractor struct {
	dimensions int
}

// NewMockExtractor returns a mock extractor producing vectors of the given dimensions.
func NewMockExtractor(dimensions int) *MockExtractor {
	if dimensions <= 0 {
		dimensions = 512
	}
	return &MockExtractor{dimensions: dimensions}
}

// Extract derives a unit vector from the FNV hash of media.
func (e *MockExtractor) Extract(ctx context.Context, media []byte) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(media) == 0 {
		return nil, errors.New("empty media")
	}
	h := fnv.New64a()
	_, _ = h.Write(media)
	seed := float64(h.Sum64()%1_000_003) + 1
	vec := make([]float32, e.dimensions)
	for i := range vec {
		vec[i] = float32(math.Sin(seed*float64(i+1))*0.1 + 0.01)
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// Dimensions returns the vector length.
func (e *MockExtractor) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *MockExtractor) Close() error {
	return nil
}
