package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/internal/ai"
)

func TestCosineSimilaritySelf(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.3, -0.7, 0.2},
		{5, 5, 5, 5},
	}
	for _, v := range vectors {
		require.GreaterOrEqual(t, CosineSimilarity(v, v), 0.999)
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := []float32{0.1, 0.9, -0.3}
	b := []float32{-0.4, 0.2, 0.8}
	require.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))
}

func TestCosineSimilarityZeroNorm(t *testing.T) {
	zero := []float32{0, 0, 0}
	other := []float32{1, 2, 3}
	require.Equal(t, float64(0), CosineSimilarity(zero, other))
	require.Equal(t, float64(0), CosineSimilarity(other, zero))
	require.Equal(t, float64(0), CosineSimilarity(zero, zero))
}

func TestRankSortsDescending(t *testing.T) {
	query := []float32{1, 0}
	ranked, err := Rank(query, []Candidate{
		{ID: "far", Ctime: 1, Embedding: []float32{0, 1}},
		{ID: "near", Ctime: 2, Embedding: []float32{1, 0.1}},
		{ID: "mid", Ctime: 3, Embedding: []float32{1, 1}},
	})
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	require.Equal(t, "near", ranked[0].ID)
	require.Equal(t, "mid", ranked[1].ID)
	require.Equal(t, "far", ranked[2].ID)
	for i := 1; i < len(ranked); i++ {
		require.LessOrEqual(t, ranked[i].Score, ranked[i-1].Score)
	}
}

func TestRankIsPermutationWithoutDuplicates(t *testing.T) {
	query := []float32{1, 1}
	candidates := []Candidate{
		{ID: "a", Ctime: 10, Embedding: []float32{1, 0}},
		{ID: "b", Ctime: 20, Embedding: []float32{0, 1}},
		{ID: "c", Ctime: 30, Embedding: []float32{-1, -1}},
	}
	ranked, err := Rank(query, candidates)
	require.NoError(t, err)
	require.Len(t, ranked, len(candidates))
	seen := map[string]bool{}
	for _, item := range ranked {
		require.False(t, seen[item.ID])
		seen[item.ID] = true
	}
	for _, cand := range candidates {
		require.True(t, seen[cand.ID])
	}
}

func TestRankBreaksTiesByCtimeThenID(t *testing.T) {
	query := []float32{1, 0}
	// Identical embeddings, identical scores.
	emb := []float32{1, 0}
	ranked, err := Rank(query, []Candidate{
		{ID: "b", Ctime: 100, Embedding: emb},
		{ID: "a", Ctime: 100, Embedding: emb},
		{ID: "c", Ctime: 200, Embedding: emb},
	})
	require.NoError(t, err)
	require.Equal(t, "c", ranked[0].ID) // newest wins
	require.Equal(t, "a", ranked[1].ID) // then id ascending
	require.Equal(t, "b", ranked[2].ID)
}

func TestRankRejectsDimensionMismatch(t *testing.T) {
	query := []float32{1, 0, 0}
	_, err := Rank(query, []Candidate{
		{ID: "ok", Ctime: 1, Embedding: []float32{0, 1, 0}},
		{ID: "bad", Ctime: 2, Embedding: []float32{0, 1}},
	})
	require.ErrorIs(t, err, ai.ErrDimensionMismatch)
}

func TestRankRejectsEmptyQuery(t *testing.T) {
	_, err := Rank(nil, []Candidate{{ID: "a", Embedding: []float32{1}}})
	require.ErrorIs(t, err, ai.ErrInvalidInput)
}
