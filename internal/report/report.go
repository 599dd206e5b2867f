// Package report writes and reads Excel workbooks for operators.
// Vectors never appear in a workbook.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/rollcall/internal/models"
)

// Sheet names.
const (
	RosterSheet     = "Roster"
	ResolutionSheet = "Resolution"
)

var rosterHeader = []interface{}{"Source Type", "Source ID", "Label", "Dims", "Metadata", "Created", "Updated"}

var resolutionHeader = []interface{}{"Face", "Status", "Source ID", "Score"}

func newWorkbook(sheet string, header []interface{}) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// WriteRoster writes one row per enrolled record.
func WriteRoster(w io.Writer, records []*models.VectorRecord) error {
	f, err := newWorkbook(RosterSheet, rosterHeader)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	defer f.Close()

	for i, rec := range records {
		md := ""
		if len(rec.Metadata) > 0 {
			b, err := json.Marshal(rec.Metadata)
			if err != nil {
				return fmt.Errorf("encode metadata for %s: %w", rec.SourceID, err)
			}
			md = string(b)
		}
		row := []interface{}{
			rec.SourceType, rec.SourceID, rec.Label, rec.Dims(), md,
			rec.CreatedAt.UTC().Format(time.RFC3339), rec.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := setRow(f, RosterSheet, i+2, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	_, err = f.WriteTo(w)
	return err
}

// WriteResolution writes the per-face outcome of a frame resolution.
func WriteResolution(w io.Writer, res *models.ResolveResult) error {
	f, err := newWorkbook(ResolutionSheet, resolutionHeader)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	defer f.Close()

	for i, face := range res.Faces {
		row := []interface{}{face.FaceIndex, face.Status, face.SourceID, ""}
		if face.Status == models.FaceMatched {
			row[3] = face.Score
		}
		if err := setRow(f, ResolutionSheet, i+2, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	summary := len(res.Faces) + 3
	for j, kv := range [][]interface{}{
		{"Faces", res.TotalFaces},
		{"Matched", res.MatchedCount},
		{"Candidates", res.Candidates},
		{"Threshold", res.Threshold},
	} {
		if err := setRow(f, ResolutionSheet, summary+j, kv); err != nil {
			return err
		}
	}
	_, err = f.WriteTo(w)
	return err
}
