package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/internal/model"
	appErr "github.com/parleyhq/parley/internal/pkg/errors"
	"github.com/parleyhq/parley/internal/repo"
)

func TestThreadRepoCRUD(t *testing.T) {
	db, cleanup := openTestDB(t)
	defer cleanup()

	threads := repo.NewThreadRepo(db)
	now := time.Now().UnixMilli()
	threadID := newTestID("thread")
	userID := newTestID("user")

	require.NoError(t, threads.Create(context.Background(), &model.Thread{
		ID:     threadID,
		UserID: userID,
		Title:  "first thread",
		Ctime:  now,
		Mtime:  now,
	}))

	fetched, err := threads.GetByID(context.Background(), threadID)
	require.NoError(t, err)
	require.Equal(t, "first thread", fetched.Title)
	require.Equal(t, userID, fetched.UserID)

	require.NoError(t, threads.UpdateTitle(context.Background(), threadID, "renamed", now+1))
	fetched, err = threads.GetByID(context.Background(), threadID)
	require.NoError(t, err)
	require.Equal(t, "renamed", fetched.Title)

	listed, err := threads.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, threads.Delete(context.Background(), threadID))
	_, err = threads.GetByID(context.Background(), threadID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.ErrorIs(t, threads.Delete(context.Background(), threadID), appErr.ErrNotFound)
}

func TestMessageRepoThreadHistory(t *testing.T) {
	db, cleanup := openTestDB(t)
	defer cleanup()

	messages := repo.NewMessageRepo(db)
	threadID := newTestID("thread")
	userID := newTestID("user")
	base := time.Now().UnixMilli()

	batch := []*model.Message{
		{ID: newTestID("msg"), ThreadID: threadID, UserID: userID, Role: model.RoleUser, Content: "one", Ctime: base},
		{ID: newTestID("msg"), ThreadID: threadID, UserID: userID, Role: model.RoleAssistant, Content: "two", Ctime: base + 1},
		{ID: newTestID("msg"), ThreadID: threadID, UserID: userID, Role: model.RoleUser, Content: "three", Ctime: base + 2},
	}
	require.NoError(t, messages.CreateBatch(context.Background(), batch))

	all, err := messages.ListByThread(context.Background(), threadID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "one", all[0].Content)
	require.Equal(t, "three", all[2].Content)

	recent, err := messages.ListRecent(context.Background(), threadID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	// Chronological order within the window.
	require.Equal(t, "two", recent[0].Content)
	require.Equal(t, "three", recent[1].Content)

	require.NoError(t, messages.DeleteByThread(context.Background(), threadID))
	all, err = messages.ListByThread(context.Background(), threadID)
	require.NoError(t, err)
	require.Empty(t, all)
}
