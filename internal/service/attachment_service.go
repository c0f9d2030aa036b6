package service

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/internal/extract"
	"github.com/parleyhq/parley/internal/filestore"
	"github.com/parleyhq/parley/internal/model"
	appErr "github.com/parleyhq/parley/internal/pkg/errors"
	"github.com/parleyhq/parley/internal/repo"
	"github.com/parleyhq/parley/internal/retrieval"
)

const maxAttachmentSize = 20 << 20 // 20 MiB

// UploadFile is what the HTTP layer hands over for ingestion. A multipart
// file satisfies it directly.
type UploadFile interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
}

// AttachmentService stores uploaded files and turns their text into
// document units of the owning thread, so uploads take part in retrieval
// like any other message.
type AttachmentService struct {
	store       filestore.Store
	attachments *repo.AttachmentRepo
	threads     *ThreadService
	messages    *repo.MessageRepo
	embeddings  *repo.EmbeddingRepo
	embedder    *retrieval.Embedder
}

func NewAttachmentService(
	store filestore.Store,
	attachments *repo.AttachmentRepo,
	threads *ThreadService,
	messages *repo.MessageRepo,
	embeddings *repo.EmbeddingRepo,
	embedder *retrieval.Embedder,
) *AttachmentService {
	return &AttachmentService{
		store:       store,
		attachments: attachments,
		threads:     threads,
		messages:    messages,
		embeddings:  embeddings,
		embedder:    embedder,
	}
}

// Upload stores the file, extracts its text, chunks it and persists the
// chunks as document messages. Embedding the chunks is best-effort; the
// backfill job repairs misses.
func (s *AttachmentService) Upload(ctx context.Context, userID, threadID, filename, contentType string, file UploadFile, size int64) (*model.Attachment, int, error) {
	if size <= 0 || size > maxAttachmentSize {
		return nil, 0, appErr.ErrInvalid
	}
	if !extract.Supported(filename) {
		return nil, 0, appErr.ErrInvalid
	}
	if _, err := s.threads.Get(ctx, userID, threadID); err != nil {
		return nil, 0, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("thread_id", threadID), zap.String("file", filename))

	key := newToken() + strings.ToLower(filepath.Ext(filename))
	if err := s.store.Save(ctx, key, file, size); err != nil {
		return nil, 0, err
	}

	now := time.Now().UnixMilli()
	att := &model.Attachment{
		ID:          newID(),
		UserID:      userID,
		ThreadID:    threadID,
		Name:        filename,
		Key:         key,
		ContentType: contentType,
		Size:        size,
		Ctime:       now,
	}
	if err := s.attachments.Create(ctx, att); err != nil {
		return nil, 0, err
	}

	text, err := extract.Text(filename, file, size)
	if err != nil {
		logger.Warn("text extraction failed, attachment stored without document units", zap.Error(err))
		return att, 0, nil
	}
	chunks := extract.ChunkMarkdown(text)
	if len(chunks) == 0 {
		return att, 0, nil
	}

	msgs := make([]*model.Message, 0, len(chunks))
	for i, chunk := range chunks {
		msgs = append(msgs, &model.Message{
			ID:           newID(),
			ThreadID:     threadID,
			UserID:       userID,
			Role:         model.RoleDocument,
			Content:      chunk.Content,
			AttachmentID: att.ID,
			// Spread ctimes so chunk order survives timestamp
			// tie-breaks during ranking.
			Ctime: now + int64(i),
		})
	}
	if err := s.messages.CreateBatch(ctx, msgs); err != nil {
		return nil, 0, err
	}
	logger.Info("attachment ingested", zap.Int("chunks", len(msgs)))

	s.embedChunks(ctx, msgs, logger)
	return att, len(msgs), nil
}

// embedChunks embeds all chunks of one upload as a single logical batch.
func (s *AttachmentService) embedChunks(ctx context.Context, msgs []*model.Message, logger *zap.Logger) {
	texts := make([]string, len(msgs))
	for i, msg := range msgs {
		texts[i] = msg.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts, retrieval.TaskTypeDocument)
	if err != nil {
		logger.Warn("failed to embed document chunks", zap.Error(err))
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
			logger.Warn("failed to save chunk embedding", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
}

func (s *AttachmentService) Get(ctx context.Context, userID, attachmentID string) (*model.Attachment, error) {
	att, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, err
	}
	if att.UserID != userID {
		return nil, appErr.ErrNotFound
	}
	return att, nil
}
