package retrieval

import (
	"fmt"
	"math"
	"sort"

	"github.com/parleyhq/parley/internal/ai"
)

// Candidate is one entry of the ranking pool: a message id, its creation
// time and its stored embedding.
type Candidate struct {
	ID        string
	Ctime     int64
	Embedding []float32
}

// ScoredCandidate pairs a candidate with its similarity to the query.
// Transient, produced only during ranking.
type ScoredCandidate struct {
	Candidate
	Score float64
}

// CosineSimilarity returns dot(a,b)/(norm(a)*norm(b)) accumulated in
// float64. A zero-norm vector on either side scores 0, never NaN.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores every candidate against the query and returns them sorted by
// descending similarity. Ties break by newer Ctime first, then ascending id,
// so the output is deterministic for a given pool. A candidate whose
// dimensionality differs from the query is a contract violation the caller
// must prevent; Rank reports it as ai.ErrDimensionMismatch instead of
// coercing.
func Rank(query []float32, candidates []Candidate) ([]ScoredCandidate, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query embedding is empty: %w", ai.ErrInvalidInput)
	}
	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, cand := range candidates {
		if len(cand.Embedding) != len(query) {
			return nil, fmt.Errorf("candidate %s has dimension %d, query has %d: %w",
				cand.ID, len(cand.Embedding), len(query), ai.ErrDimensionMismatch)
		}
		scored = append(scored, ScoredCandidate{
			Candidate: cand,
			Score:     CosineSimilarity(query, cand.Embedding),
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Ctime != scored[j].Ctime {
			return scored[i].Ctime > scored[j].Ctime
		}
		return scored[i].ID < scored[j].ID
	})
	return scored, nil
}
