package service_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/internal/model"
	appErr "github.com/parleyhq/parley/internal/pkg/errors"
	"github.com/parleyhq/parley/internal/repo"
	"github.com/parleyhq/parley/internal/retrieval"
	"github.com/parleyhq/parley/internal/service"
)

func newChatFixture(t *testing.T, reply string) (*service.ChatService, *service.ThreadService, *repo.EmbeddingRepo, *repo.KeywordRepo, func()) {
	t.Helper()
	conn, cleanup := openTestDB(t)

	threadRepo := repo.NewThreadRepo(conn)
	messageRepo := repo.NewMessageRepo(conn)
	embeddingRepo := repo.NewEmbeddingRepo(conn)
	keywordRepo := repo.NewKeywordRepo(conn)
	attachmentRepo := repo.NewAttachmentRepo(conn)
	threads := service.NewThreadService(threadRepo, messageRepo, embeddingRepo, keywordRepo, attachmentRepo)

	embedder := retrieval.NewEmbedder(&stubEmbedder{dims: 4}, retrieval.EmbedderConfig{})
	chat := service.NewChatService(
		threads, messageRepo, embeddingRepo, keywordRepo,
		embedder,
		retrieval.NewSelector(retrieval.SelectorConfig{}),
		retrieval.NewOrchestrator(&stubChatter{reply: reply}, retrieval.OrchestratorConfig{}),
		retrieval.NewKeywordExtractor(&stubChatter{reply: `["greetings", "testing"]`}, time.Second),
		service.ChatConfig{},
	)
	return chat, threads, embeddingRepo, keywordRepo, cleanup
}

func TestChatServiceSend_PersistsTurnWithEnrichment(t *testing.T) {
	chat, threads, embeddings, keywords, cleanup := newChatFixture(t, "the answer is 42")
	defer cleanup()
	ctx := context.Background()
	userID := fmt.Sprintf("user-%d-%d", os.Getpid(), time.Now().UnixNano())

	thread, err := threads.Create(ctx, userID, "chat test")
	require.NoError(t, err)

	reply, err := chat.Send(ctx, userID, thread.ID, "hello from the test")
	require.NoError(t, err)
	require.Equal(t, model.RoleAssistant, reply.Role)
	require.Equal(t, "the answer is 42", reply.Content)
	require.Equal(t, thread.ID, reply.ThreadID)

	history, err := threads.History(ctx, userID, thread.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, model.RoleUser, history[0].Role)
	require.Equal(t, "hello from the test", history[0].Content)
	require.Equal(t, reply.ID, history[1].ID)

	stored, err := embeddings.ListByThread(ctx, thread.ID, "stub-embed")
	require.NoError(t, err)
	require.Len(t, stored, 2)

	tags, err := keywords.ListByMessage(ctx, history[0].ID)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	require.Equal(t, "greetings", tags[0].Keyword)
}

func TestChatServiceSend_RejectsBlankAndForeignThread(t *testing.T) {
	chat, threads, _, _, cleanup := newChatFixture(t, "unused")
	defer cleanup()
	ctx := context.Background()
	userID := fmt.Sprintf("user-%d-%d", os.Getpid(), time.Now().UnixNano())

	thread, err := threads.Create(ctx, userID, "ownership test")
	require.NoError(t, err)

	_, err = chat.Send(ctx, userID, thread.ID, "   ")
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = chat.Send(ctx, "someone-else", thread.ID, "hello")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
