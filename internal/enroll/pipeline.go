// Package enroll validates and stores identity vectors, and keeps the catalog in step.
package enroll

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/rollcall/internal/catalog"
	"github.com/hyperjump/rollcall/internal/embedding"
	"github.com/hyperjump/rollcall/internal/models"
	"github.com/hyperjump/rollcall/internal/storage"
)

// Pipeline enrolls identities into a store.
type Pipeline struct {
	store     storage.Storage
	catalog   catalog.Catalog
	extractor embedding.Extractor
	dims      map[string]int
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithCatalog indexes every enrolled record's label and metadata in c.
func WithCatalog(c catalog.Catalog) Option {
	return func(p *Pipeline) { p.catalog = c }
}

// WithExtractor enables enrollment from raw media.
func WithExtractor(e embedding.Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// WithDimensions pins the expected vector length per source type.
// Source types not in the map accept any length.
func WithDimensions(dims map[string]int) Option {
	return func(p *Pipeline) {
		p.dims = make(map[string]int, len(dims))
		for k, v := range dims {
			if v > 0 {
				p.dims[k] = v
			}
		}
	}
}

// NewPipeline creates an enrollment pipeline over store.
func NewPipeline(store storage.Storage, opts ...Option) *Pipeline {
	p := &Pipeline{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enroll stores in's vector under (SourceType, SourceID), replacing any
// previous enrollment. Media, when given instead of a vector, goes through
// the extractor first. Only the record id and dimension are returned.
func (p *Pipeline) Enroll(ctx context.Context, in *models.EnrollInput) (*models.EnrollResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if len(in.Vector) > 0 && len(in.Media) > 0 {
		return nil, models.InvalidInputf("vector and media are mutually exclusive")
	}
	if len(in.Media) > 0 {
		return p.EnrollMedia(ctx, in)
	}
	return p.enrollVector(ctx, in, in.Vector)
}

// EnrollMedia extracts a vector from in.Media and enrolls it.
// Extractor failures are returned as models.ErrUpstreamExtractor and not retried.
func (p *Pipeline) EnrollMedia(ctx context.Context, in *models.EnrollInput) (*models.EnrollResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if len(in.Media) == 0 {
		return nil, models.InvalidInputf("media must not be empty")
	}
	if p.extractor == nil {
		return nil, models.ExtractorError(fmt.Errorf("no feature extractor configured"))
	}
	vec, err := p.extractor.Extract(ctx, in.Media)
	if err != nil {
		return nil, models.ExtractorError(err)
	}
	return p.enrollVector(ctx, in, vec)
}

func (p *Pipeline) enrollVector(ctx context.Context, in *models.EnrollInput, vec []float32) (*models.EnrollResult, error) {
	if len(vec) == 0 {
		return nil, models.InvalidInputf("vector must not be empty")
	}
	if want, ok := p.dims[in.SourceType]; ok && len(vec) != want {
		return nil, fmt.Errorf("source type %s: %w", in.SourceType,
			&models.DimensionMismatchError{Expected: want, Actual: len(vec)})
	}

	stored, err := p.store.Upsert(ctx, &models.VectorRecord{
		SourceID:   in.SourceID,
		SourceType: in.SourceType,
		Vector:     vec,
		Label:      in.Label,
		Metadata:   in.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store record: %w", err)
	}

	if p.catalog != nil {
		// The record is already committed; a stale catalog only affects label lookup.
		if err := p.catalog.Index(ctx, stored); err != nil {
			p.logger.Warn("catalog index failed",
				zap.String("source_type", stored.SourceType),
				zap.String("source_id", stored.SourceID),
				zap.Error(err))
		}
	}
	p.logger.Debug("enrolled",
		zap.String("source_type", stored.SourceType),
		zap.String("source_id", stored.SourceID),
		zap.String("id", stored.ID),
		zap.Int("dims", stored.Dims()))
	return &models.EnrollResult{ID: stored.ID, Dims: stored.Dims()}, nil
}

// Delete removes an enrollment from the store and the catalog.
func (p *Pipeline) Delete(ctx context.Context, sourceType, sourceID string) error {
	if err := p.store.Delete(ctx, sourceType, sourceID); err != nil {
		return err
	}
	if p.catalog != nil {
		if err := p.catalog.Delete(ctx, sourceType, sourceID); err != nil {
			p.logger.Warn("catalog delete failed",
				zap.String("source_type", sourceType),
				zap.String("source_id", sourceID),
				zap.Error(err))
		}
	}
	p.logger.Debug("enrollment deleted", zap.String("source_type", sourceType), zap.String("source_id", sourceID))
	return nil
}

// Reindex rebuilds the catalog from the store. It returns the number of records indexed.
func (p *Pipeline) Reindex(ctx context.Context) (int, error) {
	if p.catalog == nil {
		return 0, nil
	}
	records, err := p.store.List(ctx, storage.ListFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to list records: %w", err)
	}
	for _, rec := range records {
		if err := p.catalog.Index(ctx, rec); err != nil {
			return 0, err
		}
	}
	return len(records), nil
}
