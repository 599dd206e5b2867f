package models

import (
	"fmt"
	"math"
)

// EnrollInput is the input for enrolling (or re-enrolling) an identity.
// Exactly one of Vector or Media is used; Media goes through the feature extractor.
type EnrollInput struct {
	SourceID   string                 `json:"source_id"`
	SourceType string                 `json:"source_type"`
	Vector     []float32              `json:"vector,omitempty"`
	Media      []byte                 `json:"media,omitempty"`
	Label      string                 `json:"label,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks identity fields. Vector presence is checked after extraction.
func (in *EnrollInput) Validate() error {
	return ValidateKey(in.SourceType, in.SourceID)
}

// Key returns the identity being enrolled.
func (in *EnrollInput) Key() RecordKey {
	return RecordKey{SourceType: in.SourceType, SourceID: in.SourceID}
}

// SearchQuery is a top-K nearest-neighbour request.
type SearchQuery struct {
	Vector     []float32 `json:"vector"`
	TopK       int       `json:"top_k"`
	SourceType string    `json:"source_type,omitempty"`
}

// Validate ensures the query has a vector and a positive TopK.
func (q *SearchQuery) Validate() error {
	if len(q.Vector) == 0 {
		return InvalidInputf("query vector must not be empty")
	}
	if q.TopK <= 0 {
		return InvalidInputf("top_k must be positive, got %d", q.TopK)
	}
	return nil
}

// CompareQueryRequest matches a query vector (or media) against the store.
type CompareQueryRequest struct {
	Vector     []float32 `json:"vector,omitempty"`
	Media      []byte    `json:"media,omitempty"`
	Threshold  *float64  `json:"threshold,omitempty"`
	SourceType string    `json:"source_type,omitempty"`
	Verbose    bool      `json:"verbose,omitempty"`
}

// CompareStoredRequest compares two enrolled records of the same namespace.
type CompareStoredRequest struct {
	SourceIDA  string   `json:"source_id_a"`
	SourceIDB  string   `json:"source_id_b"`
	SourceType string   `json:"source_type"`
	Threshold  *float64 `json:"threshold,omitempty"`
	Verbose    bool     `json:"verbose,omitempty"`
}

// Validate checks that both ids and the namespace are present.
func (r *CompareStoredRequest) Validate() error {
	if r.SourceIDA == "" || r.SourceIDB == "" {
		return InvalidInputf("source_id_a and source_id_b are required")
	}
	if r.SourceType == "" {
		return InvalidInputf("source_type is required")
	}
	return nil
}

// ResolveRequest resolves the faces detected in one frame against a candidate pool.
type ResolveRequest struct {
	Vectors    [][]float32 `json:"vectors,omitempty"`
	Media      [][]byte    `json:"media,omitempty"`
	SourceType string      `json:"source_type"`
	Threshold  *float64    `json:"threshold,omitempty"`
	Notify     bool        `json:"notify,omitempty"`
}

// Validate checks that a namespace and at least one face are present.
func (r *ResolveRequest) Validate() error {
	if r.SourceType == "" {
		return InvalidInputf("source_type is required")
	}
	if len(r.Vectors) == 0 && len(r.Media) == 0 {
		return InvalidInputf("at least one face vector or media item is required")
	}
	if len(r.Vectors) > 0 && len(r.Media) > 0 {
		return InvalidInputf("vectors and media are mutually exclusive")
	}
	return nil
}

// ThresholdOrDefault returns *t when set, else def. Non-finite values are rejected.
func ThresholdOrDefault(t *float64, def float64) (float64, error) {
	v := def
	if t != nil {
		v = *t
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: threshold must be a finite number", ErrInvalidInput)
	}
	return v, nil
}
