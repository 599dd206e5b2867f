// Package storage defines the persistence interface for vector records.
package storage

import (
	"context"

	"github.com/hyperjump/rollcall/internal/models"
)

// ListFilter narrows List and Count. Empty SourceType matches every namespace.
type ListFilter struct {
	SourceType string
}

// Storage persists vector records keyed by (source type, source id).
//
// Upsert either fully replaces the record for its key or leaves it untouched.
// Concurrent upserts of the same key are last-writer-wins.
type Storage interface {
	// Upsert inserts or replaces the record for rec's key and returns the stored copy.
	// The record ID and CreatedAt survive replacement.
	Upsert(ctx context.Context, rec *models.VectorRecord) (*models.VectorRecord, error)
	// Get returns the record for the key or an error wrapping models.ErrNotFound.
	Get(ctx context.Context, sourceType, sourceID string) (*models.VectorRecord, error)
	// List returns records ordered by (source type, source id).
	List(ctx context.Context, filter ListFilter) ([]*models.VectorRecord, error)
	// Delete removes a record. Deleting a missing key returns models.ErrNotFound.
	Delete(ctx context.Context, sourceType, sourceID string) error

	// Stats
	Count(ctx context.Context, filter ListFilter) (int64, error)
	SourceTypes(ctx context.Context) ([]string, error)

	Close() error
}
