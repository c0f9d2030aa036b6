package service

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/internal/model"
	appErr "github.com/parleyhq/parley/internal/pkg/errors"
	"github.com/parleyhq/parley/internal/repo"
)

const maxTitleLen = 200

type ThreadService struct {
	threads     *repo.ThreadRepo
	messages    *repo.MessageRepo
	embeddings  *repo.EmbeddingRepo
	keywords    *repo.KeywordRepo
	attachments *repo.AttachmentRepo
}

func NewThreadService(
	threads *repo.ThreadRepo,
	messages *repo.MessageRepo,
	embeddings *repo.EmbeddingRepo,
	keywords *repo.KeywordRepo,
	attachments *repo.AttachmentRepo,
) *ThreadService {
	return &ThreadService{
		threads:     threads,
		messages:    messages,
		embeddings:  embeddings,
		keywords:    keywords,
		attachments: attachments,
	}
}

func (s *ThreadService) Create(ctx context.Context, userID, title string) (*model.Thread, error) {
	title = strings.TrimSpace(title)
	if len(title) > maxTitleLen {
		return nil, appErr.ErrInvalid
	}
	if title == "" {
		title = "New conversation"
	}
	now := time.Now().UnixMilli()
	thread := &model.Thread{
		ID:     newID(),
		UserID: userID,
		Title:  title,
		Ctime:  now,
		Mtime:  now,
	}
	if err := s.threads.Create(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// Get returns the thread after verifying ownership. A foreign thread
// reports not-found rather than forbidden, so ids stay unguessable.
func (s *ThreadService) Get(ctx context.Context, userID, threadID string) (*model.Thread, error) {
	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread.UserID != userID {
		return nil, appErr.ErrNotFound
	}
	return thread, nil
}

func (s *ThreadService) List(ctx context.Context, userID string) ([]model.Thread, error) {
	return s.threads.ListByUser(ctx, userID)
}

func (s *ThreadService) Rename(ctx context.Context, userID, threadID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > maxTitleLen {
		return appErr.ErrInvalid
	}
	if _, err := s.Get(ctx, userID, threadID); err != nil {
		return err
	}
	return s.threads.UpdateTitle(ctx, threadID, title, time.Now().UnixMilli())
}

// Delete removes the thread and everything derived from it: messages,
// embeddings, keywords and attachment rows. Stored attachment files stay
// behind; they are content-addressed and unreachable once the rows are
// gone.
func (s *ThreadService) Delete(ctx context.Context, userID, threadID string) error {
	if _, err := s.Get(ctx, userID, threadID); err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("thread_id", threadID))
	if err := s.embeddings.DeleteByThread(ctx, threadID); err != nil {
		return err
	}
	if err := s.keywords.DeleteByThread(ctx, threadID); err != nil {
		return err
	}
	if err := s.attachments.DeleteByThread(ctx, threadID); err != nil {
		return err
	}
	if err := s.messages.DeleteByThread(ctx, threadID); err != nil {
		return err
	}
	if err := s.threads.Delete(ctx, threadID); err != nil {
		return err
	}
	logger.Info("thread deleted")
	return nil
}

// History returns the most recent messages in chronological order.
func (s *ThreadService) History(ctx context.Context, userID, threadID string, limit int) ([]*model.Message, error) {
	if _, err := s.Get(ctx, userID, threadID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.messages.ListRecent(ctx, threadID, limit)
}
