package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/rollcall/internal/models"
)

// MemoryStorage is an in-memory Storage for tests and ephemeral deployments.
// Records are deep-copied on the way in and out, so readers never see a
// vector that is being replaced.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[models.RecordKey]*models.VectorRecord
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[models.RecordKey]*models.VectorRecord)}
}

// Upsert inserts or replaces the record for rec's key.
func (m *MemoryStorage) Upsert(_ context.Context, rec *models.VectorRecord) (*models.VectorRecord, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	stored := rec.Clone()
	now := time.Now().UTC()
	stored.UpdatedAt = now

	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.records[stored.Key()]; ok {
		stored.ID = prev.ID
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.ID = uuid.New().String()
		stored.CreatedAt = now
	}
	m.records[stored.Key()] = stored
	return stored.Clone(), nil
}

// Get returns a copy of the record for the key.
func (m *MemoryStorage) Get(_ context.Context, sourceType, sourceID string) (*models.VectorRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[models.RecordKey{SourceType: sourceType, SourceID: sourceID}]
	if !ok {
		return nil, models.NotFoundf("record %s/%s", sourceType, sourceID)
	}
	return rec.Clone(), nil
}

// List returns copies of matching records ordered by source type then source id.
func (m *MemoryStorage) List(_ context.Context, filter ListFilter) ([]*models.VectorRecord, error) {
	m.mu.RLock()
	out := make([]*models.VectorRecord, 0, len(m.records))
	for key, rec := range m.records {
		if filter.SourceType != "" && key.SourceType != filter.SourceType {
			continue
		}
		out = append(out, rec.Clone())
	}
	m.mu.RUnlock()
	sortRecords(out)
	return out, nil
}

// Delete removes a record by key.
func (m *MemoryStorage) Delete(_ context.Context, sourceType, sourceID string) error {
	key := models.RecordKey{SourceType: sourceType, SourceID: sourceID}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key]; !ok {
		return models.NotFoundf("record %s/%s", sourceType, sourceID)
	}
	delete(m.records, key)
	return nil
}

// Count returns the number of records matching filter.
func (m *MemoryStorage) Count(_ context.Context, filter ListFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if filter.SourceType == "" {
		return int64(len(m.records)), nil
	}
	var n int64
	for key := range m.records {
		if key.SourceType == filter.SourceType {
			n++
		}
	}
	return n, nil
}

// SourceTypes returns the distinct namespaces in sorted order.
func (m *MemoryStorage) SourceTypes(_ context.Context) ([]string, error) {
	m.mu.RLock()
	seen := make(map[string]struct{})
	for key := range m.records {
		seen[key.SourceType] = struct{}{}
	}
	m.mu.RUnlock()
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types, nil
}

// Close is a no-op for MemoryStorage.
func (m *MemoryStorage) Close() error {
	return nil
}

func sortRecords(recs []*models.VectorRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].SourceType != recs[j].SourceType {
			return recs[i].SourceType < recs[j].SourceType
		}
		return recs[i].SourceID < recs[j].SourceID
	})
}
