package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/rollcall/internal/models"
)

func sampleHit() *models.SearchHit {
	return &models.SearchHit{
		Record: &models.VectorRecord{
			ID: "rec-1", SourceID: "S1", SourceType: "student-face",
			Vector: []float32{1, 0}, Label: "Ada Lovelace",
		},
		Dims:         2,
		Score:        0.97,
		NormDistance: 0.03,
		Rank:         1,
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := &models.SearchResponse{Hits: []*models.SearchHit{sampleHit()}, Total: 1, Scanned: 3, QueryTime: 2}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	if strings.Contains(buf.String(), `"vector"`) {
		t.Error("JSON output must not contain raw vectors")
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Total != 1 || decoded.Scanned != 3 || decoded.Hits[0].Record.SourceID != "S1" {
		t.Errorf("decoded: %+v", decoded)
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	response := &models.SearchResponse{Hits: []*models.SearchHit{sampleHit()}, Total: 1, Scanned: 3, QueryTime: 2}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 results", "3 records scanned", "student-face/S1", "Ada Lovelace", "0.9700"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteQueryMatch_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQueryMatch(&buf, &models.QueryMatchResult{Threshold: 0.9}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "store is empty") {
		t.Errorf("empty store output: %s", buf.String())
	}

	buf.Reset()
	res := &models.QueryMatchResult{
		Matched: true, BestMatch: sampleHit(), Threshold: 0.9,
		Trace: &models.Trace{Len: 1, Dot: 1, NormA: 1, NormB: 1, Denom: 1,
			Terms: []models.TraceTerm{{A: 1, B: 1, Product: 1}}},
	}
	if err := WriteQueryMatch(&buf, res, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "MATCH") || !strings.Contains(out, "Trace over 1 components") {
		t.Errorf("match output:\n%s", out)
	}
}

func TestWriteStoredMatch(t *testing.T) {
	var buf bytes.Buffer
	res := &models.StoredMatchResult{Matched: false, Cosine: 0.5, NormDistance: 0.5, Threshold: 0.9}
	if err := WriteStoredMatch(&buf, res, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "NO MATCH: cosine 0.5000") {
		t.Errorf("output: %s", buf.String())
	}
}

func TestWriteResolveResult_Text(t *testing.T) {
	res := &models.FrameResult{
		ResolveResult: &models.ResolveResult{
			TotalFaces: 2, MatchedCount: 1, MatchedStudentIDs: []string{"S2"},
			Faces: []*models.FaceOutcome{
				{FaceIndex: 0, Status: models.FaceMatched, SourceID: "S2", Score: 0.95},
				{FaceIndex: 1, Status: models.FaceUnmatched},
			},
			Threshold: 0.9, Candidates: 5,
		},
		Notified: 1,
	}
	var buf bytes.Buffer
	if err := WriteResolveResult(&buf, res, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Matched 1 of 2 faces against 5 candidates", "face 0: S2", "face 1: unmatched", "Present: S2", "Notified: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteEnrollResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	key := models.RecordKey{SourceType: "student-face", SourceID: "S1"}
	if err := WriteEnrollResult(&buf, key, &models.EnrollResult{ID: "abc", Dims: 512}, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.EnrollResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.ID != "abc" || decoded.Dims != 512 {
		t.Errorf("decoded: %+v", decoded)
	}
}
