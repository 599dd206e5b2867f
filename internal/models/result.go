package models

// TraceTerm is one per-index contribution to a dot product.
type TraceTerm struct {
	A       float32 `json:"a"`
	B       float32 `json:"b"`
	Product float64 `json:"product"`
}

// Trace is the full working of one cosine computation. Only produced on request:
// it exposes raw vector components.
type Trace struct {
	Len   int         `json:"len"`
	Dot   float64     `json:"dot"`
	NormA float64     `json:"norm_a"`
	NormB float64     `json:"norm_b"`
	Denom float64     `json:"denom"`
	Terms []TraceTerm `json:"terms"`
}

// SearchHit is a single ranked search result.
type SearchHit struct {
	Record       *VectorRecord `json:"record"`
	Dims         int           `json:"dims"`
	Score        float64       `json:"score"`
	NormDistance float64       `json:"norm_distance"`
	Rank         int           `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Hits      []*SearchHit `json:"hits"`
	Total     int          `json:"total"`
	Scanned   int          `json:"scanned"`
	QueryTime int64        `json:"query_time_ms"`
}

// EnrollResult is what enrollment returns. The raw vector is never echoed back.
type EnrollResult struct {
	ID   string `json:"id"`
	Dims int    `json:"dims"`
}

// StoredMatchResult is the outcome of comparing two enrolled records.
type StoredMatchResult struct {
	Matched      bool    `json:"matched"`
	Cosine       float64 `json:"cosine"`
	NormDistance float64 `json:"norm_distance"`
	Threshold    float64 `json:"threshold"`
	Trace        *Trace  `json:"trace,omitempty"`
}

// QueryMatchResult is the outcome of matching a query vector against the store.
type QueryMatchResult struct {
	Matched    bool         `json:"matched"`
	BestMatch  *SearchHit   `json:"best_match,omitempty"`
	Threshold  float64      `json:"threshold"`
	Candidates []*SearchHit `json:"candidates,omitempty"`
	Trace      *Trace       `json:"trace,omitempty"`
}

// FaceStatus values for per-face outcomes.
const (
	FaceMatched   = "matched"
	FaceUnmatched = "unmatched"
)

// FaceOutcome is the resolution of one detected face.
type FaceOutcome struct {
	FaceIndex int     `json:"face_index"`
	Status    string  `json:"status"`
	SourceID  string  `json:"source_id,omitempty"`
	Score     float64 `json:"score"`
}

// Assignment is an accepted (face, candidate) pair.
type Assignment struct {
	FaceIndex int     `json:"face_index"`
	SourceID  string  `json:"source_id"`
	Score     float64 `json:"score"`
}

// ResolveResult is the conflict-free assignment of detected faces to candidates.
type ResolveResult struct {
	TotalFaces        int            `json:"total_faces"`
	MatchedCount      int            `json:"matched_count"`
	MatchedStudentIDs []string       `json:"matched_student_ids"`
	Faces             []*FaceOutcome `json:"faces"`
	Assignments       []*Assignment  `json:"assignments"`
	Threshold         float64        `json:"threshold"`
	Candidates        int            `json:"candidates"`
}

// FrameResult is a resolution plus the attendance notifications it triggered.
type FrameResult struct {
	*ResolveResult
	Notified       int `json:"notified"`
	NotifyFailures int `json:"notify_failures,omitempty"`
}
