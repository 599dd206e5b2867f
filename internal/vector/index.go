package vector

import (
	"context"

	"github.com/hyperjump/rollcall/internal/models"
	"github.com/hyperjump/rollcall/internal/storage"
)

// Filter narrows the candidate set of a search.
type Filter struct {
	SourceType string
}

// Searcher ranks enrolled records by similarity to a query.
// LinearSearcher is exact; an approximate index can be swapped in behind this interface.
type Searcher interface {
	Search(ctx context.Context, query []float32, topK int, filter Filter) (*Result, error)
	Type() string
}

// Result is a ranked list of hits plus scan statistics.
type Result struct {
	Hits []*models.SearchHit
	// Scanned is the number of records loaded for the filter.
	Scanned int
	// Skipped is the number of records not scored because of a length mismatch.
	Skipped int
}

// RecordSource lists records for scanning. storage.Storage satisfies it.
type RecordSource interface {
	List(ctx context.Context, filter storage.ListFilter) ([]*models.VectorRecord, error)
}
