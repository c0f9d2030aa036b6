package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	dims    int
	calls   int
	batches [][]string
}

func (f *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	res, err := f.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

func (f *countingEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	f.calls++
	f.batches = append(f.batches, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
		out[i][0] = float32(len(texts[i]))
	}
	return out, nil
}

func (f *countingEmbedder) ModelName() string {
	return "counting"
}

func TestLruCacheAvoidsRepeatCalls(t *testing.T) {
	inner := &countingEmbedder{dims: 3}
	cached := WrapLruCacheToEmbedder(inner, 16, time.Minute)

	first, err := cached.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	second, err := cached.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls)
}

func TestLruCacheKeysIncludeTaskType(t *testing.T) {
	inner := &countingEmbedder{dims: 3}
	cached := WrapLruCacheToEmbedder(inner, 16, time.Minute)

	_, err := cached.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	_, err = cached.Embed(context.Background(), "hello", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestLruCacheBatchEmbedsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{dims: 3}
	cached := WrapLruCacheToEmbedder(inner, 16, time.Minute)

	_, err := cached.Embed(context.Background(), "a", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)

	res, err := cached.EmbedBatch(context.Background(), []string{"a", "b", "c"}, "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Len(t, res, 3)
	require.Equal(t, 2, inner.calls)
	require.Equal(t, []string{"b", "c"}, inner.batches[1])
}

func TestLruCacheIsolatesCachedVectors(t *testing.T) {
	inner := &countingEmbedder{dims: 3}
	cached := WrapLruCacheToEmbedder(inner, 16, time.Minute)

	first, err := cached.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	first[0] = 999

	second, err := cached.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.NotEqual(t, float32(999), second[0])
}

func TestWrapLruDisabledPassesThrough(t *testing.T) {
	inner := &countingEmbedder{dims: 3}
	require.Equal(t, inner, WrapLruCacheToEmbedder(inner, 0, time.Minute))
	require.Equal(t, inner, WrapLruCacheToEmbedder(inner, 16, 0))
}
