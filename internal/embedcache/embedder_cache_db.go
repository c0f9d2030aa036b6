package embedcache

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/internal/ai"
	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/repo"
)

// WrapDBCacheToEmbedder layers the shared database cache over an
// embedder. Usually stacked under the LRU wrapper so hot entries never
// touch the database either.
func WrapDBCacheToEmbedder(e ai.IEmbedder, cacheRepo *repo.EmbeddingCacheRepo) ai.IEmbedder {
	if e == nil || cacheRepo == nil {
		return e
	}
	return &dbEmbedder{next: e, repo: cacheRepo}
}

type dbEmbedder struct {
	next ai.IEmbedder
	repo *repo.EmbeddingCacheRepo
}

func (d *dbEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	res, err := d.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

func (d *dbEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if d == nil || d.next == nil {
		return nil, nil
	}
	modelName := d.next.ModelName()
	result := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	var missHashes []string
	for i, text := range texts {
		_, contentHash, name := buildCacheKey(modelName, taskType, text)
		values, ok, err := d.repo.Get(ctx, name, taskType, contentHash)
		if err != nil {
			return nil, err
		}
		if ok {
			result[i] = values
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
		missHashes = append(missHashes, contentHash)
	}
	if len(missTexts) == 0 {
		logutil.GetLogger(ctx).Debug("embedding cache hit (db)", zap.String("task_type", taskType), zap.Int("count", len(texts)))
		return result, nil
	}
	fresh, err := d.next.EmbedBatch(ctx, missTexts, taskType)
	if err != nil {
		return nil, err
	}
	_, _, name := buildCacheKey(modelName, taskType, "")
	now := time.Now().Unix()
	for j, i := range missIdx {
		result[i] = fresh[j]
		if err := d.repo.Save(ctx, &model.EmbeddingCache{
			ModelName:   name,
			TaskType:    taskType,
			ContentHash: missHashes[j],
			Embedding:   fresh[j],
			Ctime:       now,
		}); err != nil {
			// A failed cache write only costs a future provider call.
			logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
		}
	}
	return result, nil
}

func (d *dbEmbedder) ModelName() string {
	if d == nil || d.next == nil {
		return ""
	}
	return d.next.ModelName()
}
