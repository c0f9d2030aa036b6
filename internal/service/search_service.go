package service

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/internal/ai"
	"github.com/parleyhq/parley/internal/model"
	appErr "github.com/parleyhq/parley/internal/pkg/errors"
	"github.com/parleyhq/parley/internal/repo"
	"github.com/parleyhq/parley/internal/retrieval"
)

type SearchResult struct {
	Message *model.Message `json:"message"`
	Score   float64        `json:"score"`
}

// SearchService ranks a user's stored messages against a query embedding,
// falling back to keyword search when embeddings cannot be produced.
type SearchService struct {
	messages   *repo.MessageRepo
	embeddings *repo.EmbeddingRepo
	keywords   *repo.KeywordRepo
	embedder   *retrieval.Embedder
}

func NewSearchService(
	messages *repo.MessageRepo,
	embeddings *repo.EmbeddingRepo,
	keywords *repo.KeywordRepo,
	embedder *retrieval.Embedder,
) *SearchService {
	return &SearchService{
		messages:   messages,
		embeddings: embeddings,
		keywords:   keywords,
		embedder:   embedder,
	}
}

// Search returns the user's messages most similar to the query, best
// first. threadID optionally scopes the search to one thread.
func (s *SearchService) Search(ctx context.Context, userID, query, threadID string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, appErr.ErrInvalid
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", userID))

	queryEmb, err := s.embedder.Embed(ctx, query, retrieval.TaskTypeQuery)
	if err != nil {
		if ai.IsUnavailable(err) {
			logger.Warn("embeddings unavailable, falling back to keyword search", zap.Error(err))
			return s.keywordSearch(ctx, userID, query, threadID, limit)
		}
		return nil, err
	}
	return s.semanticSearch(ctx, userID, queryEmb, query, threadID, limit)
}

func (s *SearchService) semanticSearch(ctx context.Context, userID string, queryEmb []float32, query, threadID string, limit int) ([]SearchResult, error) {
	embs, err := s.embeddings.ListByUser(ctx, userID, s.embedder.ModelName())
	if err != nil {
		return nil, err
	}
	if threadID != "" {
		filtered := embs[:0]
		for _, emb := range embs {
			if emb.ThreadID == threadID {
				filtered = append(filtered, emb)
			}
		}
		embs = filtered
	}
	candidates := make([]retrieval.Candidate, 0, len(embs))
	for _, emb := range embs {
		candidates = append(candidates, retrieval.Candidate{
			ID:        emb.MessageID,
			Ctime:     emb.Ctime,
			Embedding: emb.Embedding,
		})
	}
	ranked, err := retrieval.Rank(queryEmb, candidates)
	if err != nil {
		return nil, err
	}

	// Dense embeddings are noisy; 0.55 is a safe floor for search UX,
	// stricter for tiny queries where everything looks vaguely similar.
	threshold := 0.55
	if len([]rune(query)) <= 2 {
		threshold = 0.70
	}

	ids := make([]string, 0, limit)
	scores := make(map[string]float64, limit)
	for _, cand := range ranked {
		if cand.Score < threshold {
			break
		}
		ids = append(ids, cand.ID)
		scores[cand.ID] = cand.Score
		if len(ids) >= limit {
			break
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	msgs, err := s.messages.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Message, len(msgs))
	for _, msg := range msgs {
		byID[msg.ID] = msg
	}
	results := make([]SearchResult, 0, len(ids))
	for _, id := range ids {
		if msg, ok := byID[id]; ok {
			results = append(results, SearchResult{Message: msg, Score: scores[id]})
		}
	}
	return results, nil
}

func (s *SearchService) keywordSearch(ctx context.Context, userID, query, threadID string, limit int) ([]SearchResult, error) {
	term := strings.ToLower(query)
	ids, err := s.keywords.SearchMessageIDs(ctx, userID, term, threadID, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	msgs, err := s.messages.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Message, len(msgs))
	for _, msg := range msgs {
		byID[msg.ID] = msg
	}
	results := make([]SearchResult, 0, len(ids))
	for _, id := range ids {
		if msg, ok := byID[id]; ok {
			results = append(results, SearchResult{Message: msg})
		}
	}
	return results, nil
}
