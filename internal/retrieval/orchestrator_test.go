package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/internal/ai"
	"github.com/parleyhq/parley/internal/model"
)

func newTestOrchestrator(chatter ai.IChatter) *Orchestrator {
	return NewOrchestrator(chatter, OrchestratorConfig{
		SystemPrompt: "system instruction",
		Timeout:      5 * time.Second,
	})
}

func TestCompletePayloadOrder(t *testing.T) {
	chatter := &scriptedChatter{replies: []string{"reply"}}
	orch := newTestOrchestrator(chatter)

	history := []ai.ChatMessage{
		{Role: ai.RoleUser, Content: "earlier question"},
		{Role: ai.RoleAssistant, Content: "earlier answer"},
	}
	selected := []*model.Message{
		{ID: "m1", Role: model.RoleUser, Content: "most relevant", Ctime: 1700000000000},
		{ID: "m2", Role: model.RoleDocument, Content: "less relevant", Ctime: 1700000100000},
	}
	res, err := orch.Complete(context.Background(), "new question", selected, history)
	require.NoError(t, err)
	require.Equal(t, "reply", res)

	payload := chatter.payloads[0]
	require.Len(t, payload, 6)
	require.Equal(t, ai.RoleSystem, payload[0].Role)
	require.Equal(t, "system instruction", payload[0].Content)
	require.Equal(t, "earlier question", payload[1].Content)
	require.Equal(t, "earlier answer", payload[2].Content)
	// Context block sits between history and the new message, most
	// relevant first.
	require.Equal(t, ai.RoleSystem, payload[3].Role)
	require.Contains(t, payload[3].Content, "most relevant")
	require.Contains(t, payload[4].Content, "less relevant")
	require.Equal(t, ai.RoleUser, payload[5].Role)
	require.Equal(t, "new question", payload[5].Content)
}

func TestCompleteBlankReplyIsDistinctError(t *testing.T) {
	chatter := &scriptedChatter{replies: []string{"   "}}
	orch := newTestOrchestrator(chatter)

	_, err := orch.Complete(context.Background(), "question", nil, nil)
	require.ErrorIs(t, err, ai.ErrEmptyReply)
	require.Equal(t, 1, chatter.calls)
}

func TestCompleteRetriesUnavailable(t *testing.T) {
	chatter := &scriptedChatter{
		errs:    []error{ai.ErrUnavailable, ai.ErrUnavailable},
		replies: []string{"", "", "recovered"},
	}
	orch := newTestOrchestrator(chatter)

	res, err := orch.Complete(context.Background(), "question", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "recovered", res)
	require.Equal(t, 3, chatter.calls)
}

func TestCompleteDoesNotRetryContentPolicy(t *testing.T) {
	chatter := &scriptedChatter{errs: []error{ai.ErrContentPolicy}}
	orch := newTestOrchestrator(chatter)

	_, err := orch.Complete(context.Background(), "question", nil, nil)
	require.ErrorIs(t, err, ai.ErrContentPolicy)
	require.Equal(t, 1, chatter.calls)
}

func TestCompleteRejectsEmptyMessage(t *testing.T) {
	chatter := &scriptedChatter{replies: []string{"reply"}}
	orch := newTestOrchestrator(chatter)

	_, err := orch.Complete(context.Background(), "   ", nil, nil)
	require.ErrorIs(t, err, ai.ErrInvalidInput)
	require.Equal(t, 0, chatter.calls)
}
