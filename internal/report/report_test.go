package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/rollcall/internal/models"
)

func openSheet(t *testing.T, buf *bytes.Buffer, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	return rows
}

func TestWriteRoster(t *testing.T) {
	ts := time.Date(2026, 9, 1, 7, 30, 0, 0, time.UTC)
	recs := []*models.VectorRecord{
		{SourceID: "S1", SourceType: "student-face", Label: "Kiara", Vector: []float32{1, 2, 3}, Metadata: map[string]interface{}{"class": "7B"}, CreatedAt: ts, UpdatedAt: ts},
		{SourceID: "S2", SourceType: "student-face", Vector: []float32{1}, CreatedAt: ts, UpdatedAt: ts},
	}
	var buf bytes.Buffer
	if err := WriteRoster(&buf, recs); err != nil {
		t.Fatal(err)
	}
	rows := openSheet(t, &buf, RosterSheet)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][1] != "Source ID" {
		t.Errorf("header = %v", rows[0])
	}
	want := []string{"student-face", "S1", "Kiara", "3", `{"class":"7B"}`, "2026-09-01T07:30:00Z", "2026-09-01T07:30:00Z"}
	for i, w := range want {
		if rows[1][i] != w {
			t.Errorf("row 1 col %d = %q, want %q", i, rows[1][i], w)
		}
	}
	for _, row := range rows {
		for _, c := range row {
			if c == "1, 2, 3" || c == "[1 2 3]" {
				t.Error("vector leaked into roster")
			}
		}
	}
}

func TestWriteResolution(t *testing.T) {
	res := &models.ResolveResult{
		TotalFaces:   2,
		MatchedCount: 1,
		Faces: []*models.FaceOutcome{
			{FaceIndex: 0, Status: models.FaceMatched, SourceID: "S1", Score: 0.97},
			{FaceIndex: 1, Status: models.FaceUnmatched},
		},
		Threshold:  0.9,
		Candidates: 30,
	}
	var buf bytes.Buffer
	if err := WriteResolution(&buf, res); err != nil {
		t.Fatal(err)
	}
	rows := openSheet(t, &buf, ResolutionSheet)
	if rows[1][1] != "matched" || rows[1][2] != "S1" || rows[1][3] != "0.97" {
		t.Errorf("face 0 row = %v", rows[1])
	}
	if rows[2][1] != "unmatched" {
		t.Errorf("face 1 row = %v", rows[2])
	}
	last := rows[len(rows)-1]
	if last[0] != "Threshold" || last[1] != "0.9" {
		t.Errorf("summary row = %v", last)
	}
}

func TestReadRoster(t *testing.T) {
	f := excelize.NewFile()
	f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Source ID", "Label", "Media File", "Source Type"})
	f.SetSheetRow("Sheet1", "A2", &[]interface{}{"S1", "Kiara", "photos/s1.jpg", ""})
	f.SetSheetRow("Sheet1", "A3", &[]interface{}{"", "blank id", "x.jpg", ""})
	f.SetSheetRow("Sheet1", "A4", &[]interface{}{"T1", "Ms. Ouro", "photos/t1.jpg", "teacher-face"})
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	f.Close()

	entries, err := ReadRoster(&buf, "student-face")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries: %+v", len(entries), entries)
	}
	if entries[0] != (RosterEntry{Row: 2, SourceID: "S1", SourceType: "student-face", Label: "Kiara", MediaFile: "photos/s1.jpg"}) {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].SourceType != "teacher-face" || entries[1].Row != 4 {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestReadRoster_MissingColumn(t *testing.T) {
	f := excelize.NewFile()
	f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Source ID", "Label"})
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	f.Close()
	if _, err := ReadRoster(&buf, "student-face"); err == nil {
		t.Error("expected error for missing media_file column")
	}
}
