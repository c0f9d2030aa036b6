package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/internal/ai"
	"github.com/parleyhq/parley/internal/model"
)

func unit(id, content string, ctime int64, emb []float32) Unit {
	return Unit{
		Message:   &model.Message{ID: id, Role: model.RoleUser, Content: content, Ctime: ctime},
		Embedding: emb,
	}
}

func selectedTotal(selected []*model.Message) int {
	total := 0
	for _, msg := range selected {
		total += len(msg.Content)
	}
	return total
}

func TestSelectRefundPolicyExample(t *testing.T) {
	query := []float32{1, 0}
	pool := []Unit{
		unit("A", "Our refund policy allows returns within 30 days.", 1, []float32{0.95, 0.3}),
		unit("B", "We ship internationally.", 2, []float32{0.12, 0.99}),
	}
	sel := NewSelector(SelectorConfig{})

	// Budget fits both: relevance order [A, B].
	both, err := sel.Select(query, "", pool, 1000)
	require.NoError(t, err)
	require.Len(t, both, 2)
	require.Equal(t, "A", both[0].ID)
	require.Equal(t, "B", both[1].ID)

	// Budget fits only A.
	onlyA, err := sel.Select(query, "", pool, len(pool[0].Message.Content))
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	require.Equal(t, "A", onlyA[0].ID)
}

func TestSelectNeverExceedsBudget(t *testing.T) {
	query := []float32{1, 0}
	pool := []Unit{
		unit("a", "aaaaaaaaaa", 1, []float32{1, 0}),
		unit("b", "bbbbbbbbbb", 2, []float32{0.9, 0.1}),
		unit("c", "cc", 3, []float32{0.8, 0.2}),
	}
	sel := NewSelector(SelectorConfig{})
	for _, budget := range []int{0, 5, 10, 12, 21, 22, 100} {
		selected, err := sel.Select(query, "", pool, budget)
		require.NoError(t, err)
		require.LessOrEqual(t, selectedTotal(selected), budget)
	}
}

func TestSelectSkipsOversizedAndContinues(t *testing.T) {
	query := []float32{1, 0}
	pool := []Unit{
		unit("big", "0123456789abcdef", 1, []float32{1, 0}),
		unit("small", "xy", 2, []float32{0.5, 0.5}),
	}
	sel := NewSelector(SelectorConfig{})
	selected, err := sel.Select(query, "", pool, 4)
	require.NoError(t, err)
	// The highest-ranked unit does not fit; the walk continues instead
	// of truncating it.
	require.Len(t, selected, 1)
	require.Equal(t, "small", selected[0].ID)
}

func TestSelectEmptyPool(t *testing.T) {
	sel := NewSelector(SelectorConfig{})
	selected, err := sel.Select([]float32{1, 0}, "", nil, 100)
	require.NoError(t, err)
	require.Empty(t, selected)
}

func TestSelectExcludesQueryUnitAndDuplicates(t *testing.T) {
	query := []float32{1, 0}
	pool := []Unit{
		unit("self", "the query itself", 1, []float32{1, 0}),
		unit("other", "other content", 2, []float32{0.9, 0.1}),
		unit("other", "other content", 2, []float32{0.9, 0.1}),
	}
	sel := NewSelector(SelectorConfig{})
	selected, err := sel.Select(query, "self", pool, 1000)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	require.Equal(t, "other", selected[0].ID)
}

func TestSelectIsDeterministic(t *testing.T) {
	query := []float32{1, 1}
	pool := []Unit{
		unit("a", "alpha", 10, []float32{1, 0}),
		unit("b", "bravo", 20, []float32{0, 1}),
		unit("c", "charlie", 30, []float32{1, 1}),
		unit("d", "delta", 40, []float32{-1, 0}),
	}
	sel := NewSelector(SelectorConfig{})
	first, err := sel.Select(query, "", pool, 20)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := sel.Select(query, "", pool, 20)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestSelectMinScoreCutoff(t *testing.T) {
	query := []float32{1, 0}
	pool := []Unit{
		unit("near", "near content", 1, []float32{1, 0.05}),
		unit("far", "far content", 2, []float32{-1, 0}),
	}
	sel := NewSelector(SelectorConfig{MinScore: 0.5})
	selected, err := sel.Select(query, "", pool, 1000)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	require.Equal(t, "near", selected[0].ID)
}

func TestSelectPropagatesDimensionMismatch(t *testing.T) {
	query := []float32{1, 0}
	pool := []Unit{
		unit("bad", "content", 1, []float32{1, 0, 0}),
	}
	sel := NewSelector(SelectorConfig{})
	_, err := sel.Select(query, "", pool, 1000)
	require.ErrorIs(t, err, ai.ErrDimensionMismatch)
}
