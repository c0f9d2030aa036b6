package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/internal/service"
)

type EmbeddingBackfillJob struct {
	backfill  *service.BackfillService
	batchSize int
}

func NewEmbeddingBackfillJob(backfill *service.BackfillService, batchSize int) *EmbeddingBackfillJob {
	return &EmbeddingBackfillJob{backfill: backfill, batchSize: batchSize}
}

func (j *EmbeddingBackfillJob) Name() string {
	return "embedding_backfill"
}

func (j *EmbeddingBackfillJob) Run(ctx context.Context) error {
	if j.backfill == nil {
		return nil
	}
	stored, err := j.backfill.ProcessPendingEmbeddings(ctx, j.batchSize)
	if err != nil {
		return err
	}
	if stored > 0 {
		logutil.GetLogger(ctx).Info("embeddings backfilled", zap.Int("count", stored))
	}
	return nil
}
