package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeChatter struct {
	name  string
	reply string
	err   error
	calls int
}

func (f *fakeChatter) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeChatter) ModelName() string {
	return f.name
}

type fakeEmbedder struct {
	name  string
	dims  int
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	res, err := f.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string {
	return f.name
}

func TestGroupChatterFailsOver(t *testing.T) {
	broken := &fakeChatter{name: "a", err: ErrUnavailable}
	healthy := &fakeChatter{name: "b", reply: "hi"}
	group := NewGroupChatter([]ChatterEntry{
		{Name: "a", Chatter: broken},
		{Name: "b", Chatter: healthy},
	})

	res, err := group.Chat(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hello"}})
	require.NoError(t, err)
	require.Equal(t, "hi", res)
	require.Equal(t, 1, broken.calls)
	require.Equal(t, 1, healthy.calls)
}

func TestGroupChatterReturnsLastError(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")
	group := NewGroupChatter([]ChatterEntry{
		{Name: "a", Chatter: &fakeChatter{name: "a", err: errA}},
		{Name: "b", Chatter: &fakeChatter{name: "b", err: errB}},
	})

	_, err := group.Chat(context.Background(), nil)
	require.ErrorIs(t, err, errB)
}

func TestGroupEmbedderFailsOver(t *testing.T) {
	broken := &fakeEmbedder{name: "a", err: ErrUnavailable}
	healthy := &fakeEmbedder{name: "b", dims: 4}
	group := NewGroupEmbedder([]EmbedderEntry{
		{Name: "a", Embedder: broken},
		{Name: "b", Embedder: healthy},
	})

	res, err := group.EmbedBatch(context.Background(), []string{"x", "y"}, "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Len(t, res[0], 4)
	require.Equal(t, 1, broken.calls)
	require.Equal(t, 1, healthy.calls)
}

func TestGroupModelNameJoinsEntries(t *testing.T) {
	group := NewGroupEmbedder([]EmbedderEntry{
		{Name: "gemini", Embedder: &fakeEmbedder{dims: 2}},
		{Name: "ollama", Embedder: &fakeEmbedder{dims: 2}},
	})
	require.Equal(t, "gemini|ollama", group.ModelName())
}

func TestNewGroupEmptyReturnsNil(t *testing.T) {
	require.Nil(t, NewGroupChatter(nil))
	require.Nil(t, NewGroupEmbedder(nil))
}
