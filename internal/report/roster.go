package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RosterEntry is one row of an enrollment roster workbook.
type RosterEntry struct {
	Row        int
	SourceID   string
	SourceType string
	Label      string
	MediaFile  string
}

// ReadRoster reads the first sheet of an enrollment roster. The header row
// names the columns (case-insensitive): source_id and media_file are
// required, source_type and label are optional. Rows without a source id
// are skipped.
func ReadRoster(r io.Reader, defaultSourceType string) ([]RosterEntry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("roster has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("roster is empty")
	}

	col := map[string]int{}
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		col[key] = i
	}
	for _, required := range []string{"source_id", "media_file"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("roster is missing column %q", required)
		}
	}
	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []RosterEntry
	for i, row := range rows[1:] {
		e := RosterEntry{
			Row:        i + 2,
			SourceID:   cell(row, "source_id"),
			SourceType: cell(row, "source_type"),
			Label:      cell(row, "label"),
			MediaFile:  cell(row, "media_file"),
		}
		if e.SourceID == "" {
			continue
		}
		if e.SourceType == "" {
			e.SourceType = defaultSourceType
		}
		out = append(out, e)
	}
	return out, nil
}
