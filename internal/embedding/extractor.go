// Package embedding turns raw face media into feature vectors.
package embedding

import "context"

// Extractor produces a feature vector from raw media. Implementations must be
// safe for concurrent use and return the same vector for identical input.
type Extractor interface {
	Extract(ctx context.Context, media []byte) ([]float32, error)
	Dimensions() int
	Close() error
}
