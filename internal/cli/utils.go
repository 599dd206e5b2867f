// Package cli formats command output for rollcall.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/rollcall/internal/models"
	"github.com/hyperjump/rollcall/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json", or empty (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

const labelWidth = 40

const separator = "─────────────────────────────────────────────────────────"

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search hits to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (%d records scanned)\n\n",
		response.Total, response.QueryTime, response.Scanned)
	for _, hit := range response.Hits {
		writeHit(w, hit)
	}
	return nil
}

func writeHit(w io.Writer, hit *models.SearchHit) {
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Rank: %d | Score: %.4f | Distance: %.4f\n", hit.Rank, hit.Score, hit.NormDistance)
	if hit.Record == nil {
		return
	}
	fmt.Fprintf(w, "ID: %s/%s (%d dims)\n", hit.Record.SourceType, hit.Record.SourceID, hit.Dims)
	if hit.Record.Label != "" {
		fmt.Fprintf(w, "Label: %s\n", utils.Truncate(hit.Record.Label, labelWidth))
	}
}

// WriteQueryMatch writes a compare-against-store result.
func WriteQueryMatch(w io.Writer, res *models.QueryMatchResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	if res.BestMatch == nil {
		fmt.Fprintf(w, "No match: store is empty (threshold %.4f)\n", res.Threshold)
		return nil
	}
	fmt.Fprintf(w, "%s (threshold %.4f)\n", verdict(res.Matched), res.Threshold)
	writeHit(w, res.BestMatch)
	if len(res.Candidates) > 1 {
		fmt.Fprintf(w, "\nCandidates:\n")
		for _, hit := range res.Candidates[1:] {
			writeHit(w, hit)
		}
	}
	if res.Trace != nil {
		writeTrace(w, res.Trace)
	}
	return nil
}

// WriteStoredMatch writes a pairwise compare result.
func WriteStoredMatch(w io.Writer, res *models.StoredMatchResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "%s: cosine %.4f, distance %.4f (threshold %.4f)\n",
		verdict(res.Matched), res.Cosine, res.NormDistance, res.Threshold)
	if res.Trace != nil {
		writeTrace(w, res.Trace)
	}
	return nil
}

func verdict(matched bool) string {
	if matched {
		return "MATCH"
	}
	return "NO MATCH"
}

func writeTrace(w io.Writer, tr *models.Trace) {
	fmt.Fprintf(w, "\nTrace over %d components: dot %.6f, |a| %.6f, |b| %.6f, denom %.6f\n",
		tr.Len, tr.Dot, tr.NormA, tr.NormB, tr.Denom)
	for i, term := range tr.Terms {
		fmt.Fprintf(w, "  [%3d] %+.6f * %+.6f = %+.6f\n", i, term.A, term.B, term.Product)
	}
}

// WriteResolveResult writes a batch resolution outcome.
func WriteResolveResult(w io.Writer, res *models.FrameResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "\nMatched %d of %d faces against %d candidates (threshold %.4f)\n\n",
		res.MatchedCount, res.TotalFaces, res.Candidates, res.Threshold)
	for _, f := range res.Faces {
		if f.Status == models.FaceMatched {
			fmt.Fprintf(w, "face %d: %s (score %.4f)\n", f.FaceIndex, f.SourceID, f.Score)
		} else {
			fmt.Fprintf(w, "face %d: unmatched\n", f.FaceIndex)
		}
	}
	if len(res.MatchedStudentIDs) > 0 {
		fmt.Fprintf(w, "\nPresent: %s\n", strings.Join(res.MatchedStudentIDs, ", "))
	}
	if res.Notified > 0 || res.NotifyFailures > 0 {
		fmt.Fprintf(w, "Notified: %d, failed: %d\n", res.Notified, res.NotifyFailures)
	}
	return nil
}

// WriteEnrollResult writes the outcome of a single enrollment.
func WriteEnrollResult(w io.Writer, key models.RecordKey, res *models.EnrollResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "Enrolled %s/%s: id %s (%d dims)\n", key.SourceType, key.SourceID, res.ID, res.Dims)
	return nil
}
