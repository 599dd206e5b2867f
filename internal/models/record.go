// Package models defines vector records and the request and result types around them.
package models

import (
	"strings"
	"time"
	"unicode"
)

// VectorRecord is one enrolled embedding, unique per (SourceType, SourceID).
type VectorRecord struct {
	ID         string                 `json:"id" db:"id"`
	SourceID   string                 `json:"source_id" db:"source_id"`
	SourceType string                 `json:"source_type" db:"source_type"`
	Vector     []float32              `json:"-" db:"vector"`
	Label      string                 `json:"label,omitempty" db:"label"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at" db:"updated_at"`
}

// Dims returns the vector length.
func (r *VectorRecord) Dims() int {
	return len(r.Vector)
}

// Key returns the record's logical identity.
func (r *VectorRecord) Key() RecordKey {
	return RecordKey{SourceType: r.SourceType, SourceID: r.SourceID}
}

// Validate checks the fields required for persistence.
func (r *VectorRecord) Validate() error {
	if err := ValidateKey(r.SourceType, r.SourceID); err != nil {
		return err
	}
	if len(r.Vector) == 0 {
		return InvalidInputf("vector must not be empty")
	}
	return nil
}

// ValidateKey checks that both parts of a record key are present and free of
// control characters. Backends join the two parts with a NUL separator.
func ValidateKey(sourceType, sourceID string) error {
	if sourceID == "" {
		return InvalidInputf("source_id is required")
	}
	if sourceType == "" {
		return InvalidInputf("source_type is required")
	}
	if strings.IndexFunc(sourceType, unicode.IsControl) >= 0 {
		return InvalidInputf("source_type %q contains control characters", sourceType)
	}
	if strings.IndexFunc(sourceID, unicode.IsControl) >= 0 {
		return InvalidInputf("source_id %q contains control characters", sourceID)
	}
	return nil
}

// Clone returns a deep copy so callers cannot alias stored vectors.
func (r *VectorRecord) Clone() *VectorRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Vector = append([]float32(nil), r.Vector...)
	if r.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// RecordKey identifies a record within a namespace.
type RecordKey struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
}

// RecordView is the JSON shape of a record returned to clients; it reports
// dimensionality instead of the raw vector.
type RecordView struct {
	*VectorRecord
	Dims int `json:"dims"`
}

// NewRecordView wraps rec for output.
func NewRecordView(rec *VectorRecord) *RecordView {
	return &RecordView{VectorRecord: rec, Dims: rec.Dims()}
}
