// Package resolver assigns the faces detected in one frame to enrolled identities.
//
// Assignment is greedy by score rather than an optimal bipartite matching:
// O(M*N log(M*N)) against O((M+N)^3), and easy to audit. For a classroom
// frame and a roster of tens of students the difference is negligible.
package resolver

import (
	"errors"
	"math"
	"sort"

	"github.com/hyperjump/rollcall/internal/models"
	"github.com/hyperjump/rollcall/internal/vector"
)

// Candidate is an enrolled identity eligible for assignment.
type Candidate struct {
	SourceID string
	Vector   []float32
}

// Options tunes Resolve.
type Options struct {
	// Truncate scores mismatched-length pairs over their shared prefix instead of skipping them.
	Truncate bool
}

// Stats reports pairs that were not scored normally.
type Stats struct {
	Skipped   int
	Truncated int
}

type pair struct {
	face      int
	candidate int
	score     float64
}

// Resolve builds the face x candidate cosine matrix, keeps pairs scoring at
// least threshold, and accepts them best first while neither side is taken.
// Exact ties prefer the lower face index, then the smaller source id.
// It has no side effects.
func Resolve(queries [][]float32, candidates []Candidate, threshold float64, opts Options) (*models.ResolveResult, *Stats, error) {
	if len(queries) == 0 {
		return nil, nil, models.InvalidInputf("at least one face vector is required")
	}
	for i, q := range queries {
		if len(q) == 0 {
			return nil, nil, models.InvalidInputf("face %d has an empty vector", i)
		}
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, nil, models.InvalidInputf("threshold must be a finite number")
	}

	stats := &Stats{}
	pairs := make([]pair, 0, len(queries)*len(candidates))
	for fi, q := range queries {
		for ci, c := range candidates {
			sim, err := vector.Score(q, c.Vector, vector.ScoreOptions{Truncate: opts.Truncate})
			if err != nil {
				if errors.Is(err, models.ErrDimensionMismatch) || errors.Is(err, models.ErrInvalidInput) {
					stats.Skipped++
					continue
				}
				return nil, nil, err
			}
			if sim.Truncated {
				stats.Truncated++
			}
			if sim.Cosine >= threshold {
				pairs = append(pairs, pair{face: fi, candidate: ci, score: sim.Cosine})
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.face != b.face {
			return a.face < b.face
		}
		return candidates[a.candidate].SourceID < candidates[b.candidate].SourceID
	})

	res := &models.ResolveResult{
		TotalFaces:        len(queries),
		MatchedStudentIDs: []string{},
		Faces:             make([]*models.FaceOutcome, len(queries)),
		Assignments:       []*models.Assignment{},
		Threshold:         threshold,
		Candidates:        len(candidates),
	}
	for i := range res.Faces {
		res.Faces[i] = &models.FaceOutcome{FaceIndex: i, Status: models.FaceUnmatched}
	}

	faceTaken := make([]bool, len(queries))
	idTaken := make(map[string]bool, len(candidates))
	for _, p := range pairs {
		id := candidates[p.candidate].SourceID
		if faceTaken[p.face] || idTaken[id] {
			continue
		}
		faceTaken[p.face] = true
		idTaken[id] = true
		res.Assignments = append(res.Assignments, &models.Assignment{FaceIndex: p.face, SourceID: id, Score: p.score})
		f := res.Faces[p.face]
		f.Status = models.FaceMatched
		f.SourceID = id
		f.Score = p.score
		res.MatchedStudentIDs = append(res.MatchedStudentIDs, id)
	}
	res.MatchedCount = len(res.Assignments)
	sort.Strings(res.MatchedStudentIDs)
	return res, stats, nil
}
