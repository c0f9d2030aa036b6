package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/repo"
	"github.com/parleyhq/parley/internal/retrieval"
)

// BackfillService repairs enrichment misses: messages that were persisted
// but whose embedding or keyword pass failed at write time. The cron jobs
// drive it in bounded batches.
type BackfillService struct {
	messages   *repo.MessageRepo
	embeddings *repo.EmbeddingRepo
	keywords   *repo.KeywordRepo
	embedder   *retrieval.Embedder
	extractor  *retrieval.KeywordExtractor
	keywordCnt int
}

func NewBackfillService(
	messages *repo.MessageRepo,
	embeddings *repo.EmbeddingRepo,
	keywords *repo.KeywordRepo,
	embedder *retrieval.Embedder,
	extractor *retrieval.KeywordExtractor,
	keywordCount int,
) *BackfillService {
	if keywordCount <= 0 {
		keywordCount = 7
	}
	return &BackfillService{
		messages:   messages,
		embeddings: embeddings,
		keywords:   keywords,
		embedder:   embedder,
		extractor:  extractor,
		keywordCnt: keywordCount,
	}
}

// ProcessPendingEmbeddings embeds up to limit messages lacking a vector for
// the active model. Returns how many were stored.
func (s *BackfillService) ProcessPendingEmbeddings(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	pending, err := s.messages.ListPendingEmbeddings(ctx, s.embedder.ModelName(), limit)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}
	texts := make([]string, len(pending))
	for i, msg := range pending {
		texts[i] = msg.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts, retrieval.TaskTypeDocument)
	if err != nil {
		return 0, err
	}
	logger := logutil.GetLogger(ctx)
	now := time.Now().UnixMilli()
	stored := 0
	for i, msg := range pending {
		err := s.embeddings.Save(ctx, &model.MessageEmbedding{
			MessageID:   msg.ID,
			ThreadID:    msg.ThreadID,
			ModelName:   s.embedder.ModelName(),
			Embedding:   vectors[i],
			ContentHash: contentHash(msg.Content),
			Ctime:       now,
		})
		if err != nil {
			logger.Warn("backfill embedding save failed", zap.String("message_id", msg.ID), zap.Error(err))
			continue
		}
		stored++
	}
	return stored, nil
}

// ProcessPendingKeywords tags up to limit untagged user/document messages.
// Extraction is per message; one bad message does not stop the batch.
func (s *BackfillService) ProcessPendingKeywords(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	pending, err := s.messages.ListPendingKeywords(ctx, limit)
	if err != nil {
		return 0, err
	}
	logger := logutil.GetLogger(ctx)
	tagged := 0
	for _, msg := range pending {
		terms := s.extractor.Extract(ctx, msg.Content, s.keywordCnt)
		if len(terms) == 0 {
			continue
		}
		now := time.Now().UnixMilli()
		keywords := make([]model.MessageKeyword, 0, len(terms))
		for i, term := range terms {
			keywords = append(keywords, model.MessageKeyword{
				MessageID: msg.ID,
				ThreadID:  msg.ThreadID,
				Keyword:   term,
				Position:  i,
				Ctime:     now,
			})
		}
		if err := s.keywords.Replace(ctx, msg.ID, keywords); err != nil {
			logger.Warn("backfill keyword save failed", zap.String("message_id", msg.ID), zap.Error(err))
			continue
		}
		tagged++
	}
	return tagged, nil
}
