package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/rollcall/internal/models"
	"github.com/hyperjump/rollcall/internal/storage"
)

// DefaultThreshold is used when neither the request nor the config sets one.
const DefaultThreshold = 0.9

// Resolver resolves frames against the records of one source type in a store.
type Resolver struct {
	store            storage.Storage
	defaultThreshold float64
	truncate         bool
	logger           *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDefaultThreshold overrides DefaultThreshold.
func WithDefaultThreshold(t float64) Option {
	return func(r *Resolver) { r.defaultThreshold = t }
}

// WithTruncation enables shared-prefix scoring of mismatched vectors.
func WithTruncation(enabled bool) Option {
	return func(r *Resolver) { r.truncate = enabled }
}

// New creates a store-backed resolver.
func New(store storage.Storage, opts ...Option) *Resolver {
	r := &Resolver{store: store, defaultThreshold: DefaultThreshold, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveStored resolves queries against every record of sourceType.
// A nil threshold means the configured default.
func (r *Resolver) ResolveStored(ctx context.Context, queries [][]float32, sourceType string, threshold *float64) (*models.ResolveResult, error) {
	if sourceType == "" {
		return nil, models.InvalidInputf("source_type is required")
	}
	th, err := models.ThresholdOrDefault(threshold, r.defaultThreshold)
	if err != nil {
		return nil, err
	}
	records, err := r.store.List(ctx, storage.ListFilter{SourceType: sourceType})
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	candidates := make([]Candidate, len(records))
	for i, rec := range records {
		candidates[i] = Candidate{SourceID: rec.SourceID, Vector: rec.Vector}
	}

	res, stats, err := Resolve(queries, candidates, th, Options{Truncate: r.truncate})
	if err != nil {
		return nil, err
	}
	if stats.Skipped > 0 || stats.Truncated > 0 {
		r.logger.Warn("resolve saw mismatched vector dimensions",
			zap.String("source_type", sourceType),
			zap.Int("skipped_pairs", stats.Skipped),
			zap.Int("truncated_pairs", stats.Truncated))
	}
	r.logger.Debug("resolved frame",
		zap.String("source_type", sourceType),
		zap.Int("faces", res.TotalFaces),
		zap.Int("candidates", res.Candidates),
		zap.Int("matched", res.MatchedCount))
	return res, nil
}
