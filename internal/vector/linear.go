package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hyperjump/rollcall/internal/models"
	"github.com/hyperjump/rollcall/internal/storage"
	"go.uber.org/zap"
)

// LinearSearcher scores every record matching the filter. Exact, O(n) per query;
// fine for rosters of a few thousand identities.
type LinearSearcher struct {
	source   RecordSource
	truncate bool
	logger   *zap.Logger
}

// LinearOption configures a LinearSearcher.
type LinearOption func(*LinearSearcher)

// WithTruncation scores mismatched-length records over the shared prefix instead of skipping them.
func WithTruncation(enabled bool) LinearOption {
	return func(s *LinearSearcher) { s.truncate = enabled }
}

// WithLogger sets a logger for dimension warnings.
func WithLogger(l *zap.Logger) LinearOption {
	return func(s *LinearSearcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewLinearSearcher creates a brute-force searcher over source.
func NewLinearSearcher(source RecordSource, opts ...LinearOption) *LinearSearcher {
	s := &LinearSearcher{source: source, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Type returns the searcher type identifier.
func (s *LinearSearcher) Type() string {
	return string(IndexTypeLinear)
}

// Search returns the topK records most similar to query, best first.
// Ties keep the store's iteration order. topK larger than the candidate set is clamped.
func (s *LinearSearcher) Search(ctx context.Context, query []float32, topK int, filter Filter) (*Result, error) {
	if len(query) == 0 {
		return nil, models.InvalidInputf("query vector must not be empty")
	}
	if topK <= 0 {
		return nil, models.InvalidInputf("top_k must be positive, got %d", topK)
	}
	records, err := s.source.List(ctx, storage.ListFilter{SourceType: filter.SourceType})
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	res := &Result{Scanned: len(records)}
	hits := make([]*models.SearchHit, 0, len(records))
	truncated := 0
	for _, rec := range records {
		sim, err := Score(query, rec.Vector, ScoreOptions{Truncate: s.truncate})
		if err != nil {
			if errors.Is(err, models.ErrDimensionMismatch) || errors.Is(err, models.ErrInvalidInput) {
				res.Skipped++
				continue
			}
			return nil, err
		}
		if sim.Truncated {
			truncated++
		}
		hits = append(hits, &models.SearchHit{
			Record:       rec,
			Dims:         rec.Dims(),
			Score:        sim.Cosine,
			NormDistance: sim.NormDistance,
		})
	}
	if res.Skipped > 0 {
		s.logger.Warn("search skipped records with mismatched dimensions",
			zap.Int("query_dims", len(query)),
			zap.Int("skipped", res.Skipped),
			zap.String("source_type", filter.SourceType))
	}
	if truncated > 0 {
		s.logger.Warn("search truncated mismatched vectors",
			zap.Int("query_dims", len(query)),
			zap.Int("truncated", truncated),
			zap.String("source_type", filter.SourceType))
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK > len(hits) {
		topK = len(hits)
	}
	res.Hits = hits[:topK]
	for i, h := range res.Hits {
		h.Rank = i + 1
	}
	return res, nil
}
