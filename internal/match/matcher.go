// Package match makes threshold-gated match decisions between vectors and enrolled records.
package match

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/rollcall/internal/models"
	"github.com/hyperjump/rollcall/internal/storage"
	"github.com/hyperjump/rollcall/internal/vector"
)

// DefaultThreshold is the cosine similarity at or above which two faces match.
const DefaultThreshold = 0.9

// Config holds matcher settings.
type Config struct {
	// DefaultThreshold applies to requests without a threshold. Nil means
	// DefaultThreshold; an explicit zero is kept.
	DefaultThreshold     *float64
	MaxVerboseCandidates int
	// Truncate compares mismatched-length vectors over their shared prefix.
	Truncate bool
}

// Matcher compares stored records with each other and with query vectors.
type Matcher struct {
	store     storage.Storage
	searcher  vector.Searcher
	cfg       Config
	threshold float64
	logger    *zap.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the matcher logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMatcher creates a matcher over store. Ranked lookups go through searcher.
func NewMatcher(store storage.Storage, searcher vector.Searcher, cfg Config, opts ...Option) *Matcher {
	threshold := DefaultThreshold
	if cfg.DefaultThreshold != nil {
		threshold = *cfg.DefaultThreshold
	}
	if cfg.MaxVerboseCandidates <= 0 {
		cfg.MaxVerboseCandidates = 10
	}
	m := &Matcher{store: store, searcher: searcher, cfg: cfg, threshold: threshold, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DefaultThreshold returns the threshold used when a request does not set one.
func (m *Matcher) DefaultThreshold() float64 {
	return m.threshold
}

// CompareStored scores two enrolled records of the same source type.
// Both must exist. The result does not depend on argument order.
func (m *Matcher) CompareStored(ctx context.Context, req *models.CompareStoredRequest) (*models.StoredMatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	threshold, err := models.ThresholdOrDefault(req.Threshold, m.threshold)
	if err != nil {
		return nil, err
	}

	a, err := m.store.Get(ctx, req.SourceType, req.SourceIDA)
	if err != nil {
		return nil, err
	}
	b, err := m.store.Get(ctx, req.SourceType, req.SourceIDB)
	if err != nil {
		return nil, err
	}

	sim, err := vector.Score(a.Vector, b.Vector, vector.ScoreOptions{Truncate: m.cfg.Truncate, Trace: req.Verbose})
	if err != nil {
		return nil, fmt.Errorf("failed to compare %s and %s: %w", req.SourceIDA, req.SourceIDB, err)
	}
	if sim.Truncated {
		m.logger.Warn("compared records of different dimensions",
			zap.String("source_type", req.SourceType),
			zap.String("a", req.SourceIDA), zap.Int("a_dims", a.Dims()),
			zap.String("b", req.SourceIDB), zap.Int("b_dims", b.Dims()))
	}

	return &models.StoredMatchResult{
		Matched:      sim.Cosine >= threshold,
		Cosine:       sim.Cosine,
		NormDistance: sim.NormDistance,
		Threshold:    threshold,
		Trace:        sim.Trace,
	}, nil
}

// CompareQuery finds the best enrolled match for a query vector.
// An empty candidate pool never matches. Verbose adds the ranked candidate
// list and the trace of the best match.
func (m *Matcher) CompareQuery(ctx context.Context, req *models.CompareQueryRequest) (*models.QueryMatchResult, error) {
	if len(req.Vector) == 0 {
		return nil, models.InvalidInputf("query vector must not be empty")
	}
	threshold, err := models.ThresholdOrDefault(req.Threshold, m.threshold)
	if err != nil {
		return nil, err
	}

	topK := 1
	if req.Verbose {
		topK = m.cfg.MaxVerboseCandidates
	}
	res, err := m.searcher.Search(ctx, req.Vector, topK, vector.Filter{SourceType: req.SourceType})
	if err != nil {
		return nil, err
	}

	out := &models.QueryMatchResult{Threshold: threshold}
	if len(res.Hits) == 0 {
		return out, nil
	}
	best := res.Hits[0]
	out.BestMatch = best
	out.Matched = best.Score >= threshold

	if req.Verbose {
		out.Candidates = res.Hits
		sim, err := vector.Score(req.Vector, best.Record.Vector, vector.ScoreOptions{Truncate: m.cfg.Truncate, Trace: true})
		if err != nil {
			return nil, fmt.Errorf("failed to trace best match: %w", err)
		}
		out.Trace = sim.Trace
	}
	return out, nil
}

// Search returns the topK enrolled records nearest to the query.
func (m *Matcher) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	res, err := m.searcher.Search(ctx, q.Vector, q.TopK, vector.Filter{SourceType: q.SourceType})
	if err != nil {
		return nil, err
	}
	return &models.SearchResponse{
		Hits:      res.Hits,
		Total:     len(res.Hits),
		Scanned:   res.Scanned,
		QueryTime: time.Since(start).Milliseconds(),
	}, nil
}
