package vector

import "fmt"

// IndexType represents the type of search index to use.
type IndexType string

const (
	// IndexTypeLinear scans every candidate. Exact; good up to a few thousand records.
	IndexTypeLinear IndexType = "linear"
)

// NewSearcher creates a searcher of the given type over source.
// Supported types: "linear" (default).
func NewSearcher(indexType string, source RecordSource, opts ...LinearOption) (Searcher, error) {
	switch IndexType(indexType) {
	case IndexTypeLinear, "":
		return NewLinearSearcher(source, opts...), nil
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: linear)", indexType)
	}
}
