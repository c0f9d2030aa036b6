package retrieval

import (
	"context"

	"github.com/parleyhq/parley/internal/ai"
)

// scriptedEmbedder returns canned errors for the first len(errs) calls,
// then fixed-dimension vectors. Records every batch it receives.
type scriptedEmbedder struct {
	dims    int
	errs    []error
	calls   int
	batches [][]string
}

func (f *scriptedEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	res, err := f.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

func (f *scriptedEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	call := f.calls
	f.calls++
	f.batches = append(f.batches, append([]string(nil), texts...))
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.dims)
		// Encode input position so order preservation is observable.
		vec[0] = float32(i + 1)
		out[i] = vec
	}
	return out, nil
}

func (f *scriptedEmbedder) ModelName() string {
	return "scripted"
}

// scriptedChatter replies with canned results per call, recording the
// payloads it receives.
type scriptedChatter struct {
	replies  []string
	errs     []error
	calls    int
	payloads [][]ai.ChatMessage
}

func (f *scriptedChatter) Chat(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	call := f.calls
	f.calls++
	f.payloads = append(f.payloads, append([]ai.ChatMessage(nil), messages...))
	if call < len(f.errs) && f.errs[call] != nil {
		return "", f.errs[call]
	}
	if call < len(f.replies) {
		return f.replies[call], nil
	}
	if len(f.replies) > 0 {
		return f.replies[len(f.replies)-1], nil
	}
	return "", nil
}

func (f *scriptedChatter) ModelName() string {
	return "scripted"
}
