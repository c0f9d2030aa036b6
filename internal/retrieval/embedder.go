package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/internal/ai"
	"github.com/parleyhq/parley/internal/pkg/retry"
)

const (
	TaskTypeQuery    = "RETRIEVAL_QUERY"
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
)

type EmbedderConfig struct {
	// MaxInputChars is the provider input limit in bytes. Longer texts
	// are truncated to the longest prefix, with a warning.
	MaxInputChars int
	// BatchSize bounds how many texts go into one provider call.
	BatchSize int
	// Timeout applies per provider attempt. A timeout counts as
	// unavailable and is retried like any other transient failure.
	Timeout time.Duration
}

// Embedder normalizes inputs and applies batching, timeouts and bounded
// retries in front of an ai.IEmbedder. It implements ai.IEmbedder itself,
// so caches and failover groups stack underneath transparently.
type Embedder struct {
	next ai.IEmbedder
	cfg  EmbedderConfig
}

func NewEmbedder(next ai.IEmbedder, cfg EmbedderConfig) *Embedder {
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 8000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Embedder{next: next, cfg: cfg}
}

func (e *Embedder) ModelName() string {
	if e == nil || e.next == nil {
		return ""
	}
	return e.next.ModelName()
}

func (e *Embedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	res, err := e.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

// EmbedBatch returns one vector per input text, in input order. An empty
// text anywhere fails the whole batch before any provider call.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if e == nil || e.next == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	if len(texts) == 0 {
		return nil, nil
	}
	cleaned, err := e.cleanBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	result := make([][]float32, 0, len(cleaned))
	for start := 0; start < len(cleaned); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(cleaned) {
			end = len(cleaned)
		}
		part, err := e.embedOnce(ctx, cleaned[start:end], taskType)
		if err != nil {
			return nil, err
		}
		result = append(result, part...)
	}
	return result, nil
}

func (e *Embedder) cleanBatch(ctx context.Context, texts []string) ([]string, error) {
	cleaned := make([]string, len(texts))
	for i, text := range texts {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil, fmt.Errorf("text %d is empty: %w", i, ai.ErrInvalidInput)
		}
		if len(trimmed) > e.cfg.MaxInputChars {
			logutil.GetLogger(ctx).Warn("embedding input truncated",
				zap.Int("index", i),
				zap.Int("original_len", len(trimmed)),
				zap.Int("max_len", e.cfg.MaxInputChars),
			)
			trimmed = trimmed[:e.cfg.MaxInputChars]
		}
		cleaned[i] = trimmed
	}
	return cleaned, nil
}

func (e *Embedder) embedOnce(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	var result [][]float32
	cfg := retry.Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		ShouldRetry:  ai.IsUnavailable,
	}
	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
		res, err := e.next.EmbedBatch(callCtx, texts, taskType)
		if err != nil {
			if callCtx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("embedding timed out: %w", ai.ErrUnavailable)
			}
			return err
		}
		if len(res) != len(texts) {
			return fmt.Errorf("embedder returned %d vectors for %d inputs", len(res), len(texts))
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
