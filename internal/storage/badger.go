package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/rollcall/internal/models"
)

// keySep separates source type and source id in badger keys. A NUL byte keeps
// lexicographic key order equal to (source type, source id) order.
const keySep byte = 0

const maxConflictRetries = 10

// BadgerStorage implements Storage on BadgerDB with msgpack-encoded values.
type BadgerStorage struct {
	db *badger.DB
}

// BadgerOptions configures the badger store.
type BadgerOptions struct {
	// Dir is the data directory. Required unless InMemory is set.
	Dir string
	// InMemory runs badger without disk persistence.
	InMemory bool
	// Logger receives badger warnings and errors. Nil silences them.
	Logger *zap.Logger
}

type badgerRecord struct {
	ID         string                 `msgpack:"id"`
	SourceType string                 `msgpack:"source_type"`
	SourceID   string                 `msgpack:"source_id"`
	Vector     []float32              `msgpack:"vector"`
	Label      string                 `msgpack:"label"`
	Metadata   map[string]interface{} `msgpack:"metadata"`
	CreatedAt  time.Time              `msgpack:"created_at"`
	UpdatedAt  time.Time              `msgpack:"updated_at"`
}

// NewBadgerStorage opens a badger store.
func NewBadgerStorage(opts BadgerOptions) (*BadgerStorage, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("badger storage: Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{logger.Sugar()})
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStorage{db: db}, nil
}

func badgerKey(sourceType, sourceID string) []byte {
	k := make([]byte, 0, len(sourceType)+1+len(sourceID))
	k = append(k, sourceType...)
	k = append(k, keySep)
	return append(k, sourceID...)
}

func decodeBadgerRecord(val []byte) (*models.VectorRecord, error) {
	var br badgerRecord
	if err := msgpack.Unmarshal(val, &br); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &models.VectorRecord{
		ID:         br.ID,
		SourceType: br.SourceType,
		SourceID:   br.SourceID,
		Vector:     br.Vector,
		Label:      br.Label,
		Metadata:   br.Metadata,
		CreatedAt:  br.CreatedAt,
		UpdatedAt:  br.UpdatedAt,
	}, nil
}

// Upsert inserts or replaces the record for rec's key in one transaction.
func (b *BadgerStorage) Upsert(_ context.Context, rec *models.VectorRecord) (*models.VectorRecord, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	key := badgerKey(rec.SourceType, rec.SourceID)
	var stored *models.VectorRecord
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = b.db.Update(func(txn *badger.Txn) error {
			now := time.Now().UTC()
			br := badgerRecord{
				ID:         uuid.New().String(),
				SourceType: rec.SourceType,
				SourceID:   rec.SourceID,
				Vector:     append([]float32(nil), rec.Vector...),
				Label:      rec.Label,
				Metadata:   rec.Metadata,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			item, getErr := txn.Get(key)
			switch {
			case getErr == nil:
				val, copyErr := item.ValueCopy(nil)
				if copyErr != nil {
					return copyErr
				}
				prev, decErr := decodeBadgerRecord(val)
				if decErr != nil {
					return decErr
				}
				br.ID = prev.ID
				br.CreatedAt = prev.CreatedAt
			case !errors.Is(getErr, badger.ErrKeyNotFound):
				return getErr
			}
			data, encErr := msgpack.Marshal(&br)
			if encErr != nil {
				return fmt.Errorf("failed to encode record: %w", encErr)
			}
			if setErr := txn.Set(key, data); setErr != nil {
				return setErr
			}
			out, decErr := decodeBadgerRecord(data)
			if decErr != nil {
				return decErr
			}
			stored = out
			return nil
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert record: %w", err)
	}
	return stored, nil
}

// Get returns a record by key.
func (b *BadgerStorage) Get(_ context.Context, sourceType, sourceID string) (*models.VectorRecord, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(sourceType, sourceID))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, models.NotFoundf("record %s/%s", sourceType, sourceID)
	}
	if err != nil {
		return nil, err
	}
	return decodeBadgerRecord(val)
}

// List returns records matching filter in key order.
func (b *BadgerStorage) List(_ context.Context, filter ListFilter) ([]*models.VectorRecord, error) {
	var prefix []byte
	if filter.SourceType != "" {
		prefix = append([]byte(filter.SourceType), keySep)
	}
	records := make([]*models.VectorRecord, 0)
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := decodeBadgerRecord(val)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortRecords(records)
	return records, nil
}

// Delete removes a record by key.
func (b *BadgerStorage) Delete(_ context.Context, sourceType, sourceID string) error {
	key := badgerKey(sourceType, sourceID)
	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.NotFoundf("record %s/%s", sourceType, sourceID)
	}
	return err
}

// Count returns the number of records matching filter.
func (b *BadgerStorage) Count(_ context.Context, filter ListFilter) (int64, error) {
	var prefix []byte
	if filter.SourceType != "" {
		prefix = append([]byte(filter.SourceType), keySep)
	}
	var n int64
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// SourceTypes returns the distinct namespaces in sorted order.
func (b *BadgerStorage) SourceTypes(_ context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().Key()
			for i, c := range k {
				if c == keySep {
					seen[string(k[:i])] = struct{}{}
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types, nil
}

// Close closes the badger database.
func (b *BadgerStorage) Close() error {
	return b.db.Close()
}

// badgerLogger routes badger output to zap, dropping debug and info chatter.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.s.Errorf("badger: "+f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.s.Warnf("badger: "+f, v...) }
func (l badgerLogger) Infof(string, ...interface{})        {}
func (l badgerLogger) Debugf(string, ...interface{})       {}
