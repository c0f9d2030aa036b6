package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/internal/service"
)

type KeywordBackfillJob struct {
	backfill  *service.BackfillService
	batchSize int
}

func NewKeywordBackfillJob(backfill *service.BackfillService, batchSize int) *KeywordBackfillJob {
	return &KeywordBackfillJob{backfill: backfill, batchSize: batchSize}
}

func (j *KeywordBackfillJob) Name() string {
	return "keyword_backfill"
}

func (j *KeywordBackfillJob) Run(ctx context.Context) error {
	if j.backfill == nil {
		return nil
	}
	tagged, err := j.backfill.ProcessPendingKeywords(ctx, j.batchSize)
	if err != nil {
		return err
	}
	if tagged > 0 {
		logutil.GetLogger(ctx).Info("keywords backfilled", zap.Int("count", tagged))
	}
	return nil
}
