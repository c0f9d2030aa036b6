package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/internal/ai"
	"github.com/parleyhq/parley/internal/model"
	appErr "github.com/parleyhq/parley/internal/pkg/errors"
	"github.com/parleyhq/parley/internal/repo"
	"github.com/parleyhq/parley/internal/retrieval"
)

type ChatConfig struct {
	ContextBudgetChars int
	HistoryLimit       int
	KeywordCount       int
	MaxInputChars      int
}

// ChatService runs the retrieval-augmented chat turn: persist the user
// message, pick relevant prior content under the context budget, complete
// against the chat provider, persist the reply, then enrich both new
// messages with embeddings and keywords best-effort.
type ChatService struct {
	threads      *ThreadService
	messages     *repo.MessageRepo
	embeddings   *repo.EmbeddingRepo
	keywords     *repo.KeywordRepo
	embedder     *retrieval.Embedder
	selector     *retrieval.Selector
	orchestrator *retrieval.Orchestrator
	extractor    *retrieval.KeywordExtractor
	cfg          ChatConfig
}

func NewChatService(
	threads *ThreadService,
	messages *repo.MessageRepo,
	embeddings *repo.EmbeddingRepo,
	keywords *repo.KeywordRepo,
	embedder *retrieval.Embedder,
	selector *retrieval.Selector,
	orchestrator *retrieval.Orchestrator,
	extractor *retrieval.KeywordExtractor,
	cfg ChatConfig,
) *ChatService {
	if cfg.ContextBudgetChars <= 0 {
		cfg.ContextBudgetChars = 6000
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	if cfg.KeywordCount <= 0 {
		cfg.KeywordCount = 7
	}
	return &ChatService{
		threads:      threads,
		messages:     messages,
		embeddings:   embeddings,
		keywords:     keywords,
		embedder:     embedder,
		selector:     selector,
		orchestrator: orchestrator,
		extractor:    extractor,
		cfg:          cfg,
	}
}

// Send runs one chat turn and returns the persisted assistant reply.
func (s *ChatService) Send(ctx context.Context, userID, threadID, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, appErr.ErrInvalid
	}
	if s.cfg.MaxInputChars > 0 && len(text) > s.cfg.MaxInputChars {
		return nil, appErr.ErrInvalid
	}
	if _, err := s.threads.Get(ctx, userID, threadID); err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("thread_id", threadID))

	history, err := s.loadHistory(ctx, threadID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	userMsg := &model.Message{
		ID:       newID(),
		ThreadID: threadID,
		UserID:   userID,
		Role:     model.RoleUser,
		Content:  text,
		Ctime:    now,
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return nil, err
	}

	selected := s.selectContext(ctx, threadID, userMsg, logger)

	reply, err := s.orchestrator.Complete(ctx, text, selected, history)
	if err != nil {
		return nil, err
	}

	replyMsg := &model.Message{
		ID:       newID(),
		ThreadID: threadID,
		UserID:   userID,
		Role:     model.RoleAssistant,
		Content:  reply,
		Ctime:    time.Now().UnixMilli(),
	}
	if err := s.messages.Create(ctx, replyMsg); err != nil {
		return nil, err
	}
	if err := s.threads.threads.Touch(ctx, threadID, replyMsg.Ctime); err != nil {
		logger.Warn("failed to touch thread", zap.Error(err))
	}

	// Enrichment is best-effort; the backfill jobs repair anything
	// missed here.
	s.embedNewMessages(ctx, []*model.Message{userMsg, replyMsg}, logger)
	s.tagMessage(ctx, userMsg)

	return replyMsg, nil
}

// loadHistory returns the recent user/assistant turns in chronological
// order. Document chunks reach the prompt through selection, not history.
func (s *ChatService) loadHistory(ctx context.Context, threadID string) ([]ai.ChatMessage, error) {
	recent, err := s.messages.ListRecent(ctx, threadID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}
	history := make([]ai.ChatMessage, 0, len(recent))
	for _, msg := range recent {
		switch msg.Role {
		case model.RoleUser:
			history = append(history, ai.ChatMessage{Role: ai.RoleUser, Content: msg.Content})
		case model.RoleAssistant:
			history = append(history, ai.ChatMessage{Role: ai.RoleAssistant, Content: msg.Content})
		}
	}
	return history, nil
}

// selectContext embeds the query and picks prior units under the budget.
// Degrades to no context when the embedding is unavailable after retries:
// a chat turn without retrieval beats a failed chat turn.
func (s *ChatService) selectContext(ctx context.Context, threadID string, userMsg *model.Message, logger *zap.Logger) []*model.Message {
	queryEmb, err := s.embedder.Embed(ctx, userMsg.Content, retrieval.TaskTypeQuery)
	if err != nil {
		logger.Warn("query embedding unavailable, completing without context", zap.Error(err))
		return nil
	}
	pool, err := s.loadPool(ctx, threadID)
	if err != nil {
		logger.Warn("failed to load context pool", zap.Error(err))
		return nil
	}
	selected, err := s.selector.Select(queryEmb, userMsg.ID, pool, s.cfg.ContextBudgetChars)
	if err != nil {
		// Dimension mismatch here means misconfiguration, not a user
		// error. Log loudly and keep the turn alive.
		logger.Error("context selection failed", zap.Error(err))
		return nil
	}
	logger.Debug("context selected", zap.Int("pool", len(pool)), zap.Int("selected", len(selected)))
	return selected
}

func (s *ChatService) loadPool(ctx context.Context, threadID string) ([]retrieval.Unit, error) {
	msgs, err := s.messages.ListByThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	embs, err := s.embeddings.ListByThread(ctx, threadID, s.embedder.ModelName())
	if err != nil {
		return nil, err
	}
	byID := make(map[string][]float32, len(embs))
	for _, emb := range embs {
		byID[emb.MessageID] = emb.Embedding
	}
	pool := make([]retrieval.Unit, 0, len(msgs))
	for _, msg := range msgs {
		vec, ok := byID[msg.ID]
		if !ok {
			continue
		}
		pool = append(pool, retrieval.Unit{Message: msg, Embedding: vec})
	}
	return pool, nil
}

// embedNewMessages stores vectors for freshly persisted messages in one
// batched provider call.
func (s *ChatService) embedNewMessages(ctx context.Context, msgs []*model.Message, logger *zap.Logger) {
	texts := make([]string, len(msgs))
	for i, msg := range msgs {
		texts[i] = msg.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts, retrieval.TaskTypeDocument)
	if err != nil {
		logger.Warn("failed to embed new messages", zap.Error(err))
		return
	}
	now := time.Now().UnixMilli()
	for i, msg := range msgs {
		if err := s.embeddings.Save(ctx, &model.MessageEmbedding{
			MessageID:   msg.ID,
			ThreadID:    msg.ThreadID,
			ModelName:   s.embedder.ModelName(),
			Embedding:   vectors[i],
			ContentHash: contentHash(msg.Content),
			Ctime:       now,
		}); err != nil {
			logger.Warn("failed to save embedding", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
}

func (s *ChatService) tagMessage(ctx context.Context, msg *model.Message) {
	terms := s.extractor.Extract(ctx, msg.Content, s.cfg.KeywordCount)
	if len(terms) == 0 {
		return
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
		logutil.GetLogger(ctx).Warn("failed to save keywords", zap.String("message_id", msg.ID), zap.Error(err))
	}
}

func contentHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
