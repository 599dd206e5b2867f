// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/rollcall/internal/models"
)

// SQLiteStorage implements Storage using SQLite. Vectors are stored as
// little-endian float32 blobs, metadata as JSON text.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	// busy_timeout lets concurrent upserts wait for the writer lock instead of failing.
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS vector_records (
		id TEXT NOT NULL UNIQUE,
		source_type TEXT NOT NULL,
		source_id TEXT NOT NULL,
		vector BLOB NOT NULL,
		dims INTEGER NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		metadata TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (source_type, source_id)
	);

	CREATE INDEX IF NOT EXISTS idx_records_updated_at ON vector_records(updated_at);
	`
	_, err := db.Exec(schema)
	return err
}

const selectColumns = `id, source_type, source_id, vector, label, metadata, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.VectorRecord, error) {
	var rec models.VectorRecord
	var blob []byte
	var metadataJSON sql.NullString
	if err := row.Scan(&rec.ID, &rec.SourceType, &rec.SourceID, &blob, &rec.Label, &metadataJSON,
		&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	vec, err := bytesToFloat32Slice(blob)
	if err != nil {
		return nil, err
	}
	rec.Vector = vec
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &rec, nil
}

// Upsert inserts the record or replaces the stored one for the same key, in one transaction.
func (s *SQLiteStorage) Upsert(ctx context.Context, rec *models.VectorRecord) (*models.VectorRecord, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO vector_records (id, source_type, source_id, vector, dims, label, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_type, source_id) DO UPDATE SET
			vector = excluded.vector,
			dims = excluded.dims,
			label = excluded.label,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		uuid.New().String(), rec.SourceType, rec.SourceID, float32SliceToBytes(rec.Vector), len(rec.Vector),
		rec.Label, string(metadataJSON), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert record: %w", err)
	}

	stored, err := scanRecord(tx.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM vector_records WHERE source_type = ? AND source_id = ?`,
		rec.SourceType, rec.SourceID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to read back record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stored, nil
}

// Get returns a record by key.
func (s *SQLiteStorage) Get(ctx context.Context, sourceType, sourceID string) (*models.VectorRecord, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM vector_records WHERE source_type = ? AND source_id = ?`,
		sourceType, sourceID,
	))
	if err == sql.ErrNoRows {
		return nil, models.NotFoundf("record %s/%s", sourceType, sourceID)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns all records matching filter ordered by source type then source id.
func (s *SQLiteStorage) List(ctx context.Context, filter ListFilter) ([]*models.VectorRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM vector_records`
	var args []interface{}
	if filter.SourceType != "" {
		query += ` WHERE source_type = ?`
		args = append(args, filter.SourceType)
	}
	query += ` ORDER BY source_type, source_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*models.VectorRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a record by key.
func (s *SQLiteStorage) Delete(ctx context.Context, sourceType, sourceID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM vector_records WHERE source_type = ? AND source_id = ?`, sourceType, sourceID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return models.NotFoundf("record %s/%s", sourceType, sourceID)
	}
	return nil
}

// Count returns the number of records matching filter.
func (s *SQLiteStorage) Count(ctx context.Context, filter ListFilter) (int64, error) {
	var count int64
	var err error
	if filter.SourceType != "" {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM vector_records WHERE source_type = ?`, filter.SourceType).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_records`).Scan(&count)
	}
	return count, err
}

// SourceTypes returns the distinct namespaces in sorted order.
func (s *SQLiteStorage) SourceTypes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT source_type FROM vector_records ORDER BY source_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
