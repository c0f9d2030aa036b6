package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/parleyhq/parley/internal/ai"
	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/pkg/retry"
)

const defaultSystemPrompt = `You are a helpful assistant.
Answer using the conversation and any prior content provided.
If prior content is irrelevant to the question, ignore it.`

type OrchestratorConfig struct {
	SystemPrompt string
	// Timeout applies per provider attempt.
	Timeout time.Duration
}

// Orchestrator assembles one completion request from the system
// instruction, conversation history, selected context and the new message,
// and runs it against a chat provider.
type Orchestrator struct {
	chatter ai.IChatter
	cfg     OrchestratorConfig
}

func NewOrchestrator(chatter ai.IChatter, cfg OrchestratorConfig) *Orchestrator {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Orchestrator{chatter: chatter, cfg: cfg}
}

// Complete sends one ordered payload: system instruction first, history
// oldest to newest, then the selected context most-relevant first so the
// context block sits nearest the new message, and the new user message
// last. Transient provider failures are retried with jittered backoff,
// initial attempt plus two retries. A content-policy rejection surfaces
// verbatim and is never retried. A blank reply surfaces as
// ai.ErrEmptyReply, distinct from success.
func (o *Orchestrator) Complete(ctx context.Context, newMessage string, selected []*model.Message, history []ai.ChatMessage) (string, error) {
	if o == nil || o.chatter == nil {
		return "", fmt.Errorf("chat provider not configured")
	}
	newMessage = strings.TrimSpace(newMessage)
	if newMessage == "" {
		return "", fmt.Errorf("message is empty: %w", ai.ErrInvalidInput)
	}
	messages := o.buildPayload(newMessage, selected, history)

	var reply string
	cfg := retry.Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		ShouldRetry:  ai.IsUnavailable,
	}
	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
		res, err := o.chatter.Chat(callCtx, messages)
		if err != nil {
			if callCtx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("completion timed out: %w", ai.ErrUnavailable)
			}
			return err
		}
		reply = strings.TrimSpace(res)
		return nil
	})
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", ai.ErrEmptyReply
	}
	return reply, nil
}

func (o *Orchestrator) buildPayload(newMessage string, selected []*model.Message, history []ai.ChatMessage) []ai.ChatMessage {
	messages := make([]ai.ChatMessage, 0, len(history)+len(selected)+2)
	messages = append(messages, ai.ChatMessage{Role: ai.RoleSystem, Content: o.cfg.SystemPrompt})
	messages = append(messages, history...)
	for _, unit := range selected {
		messages = append(messages, ai.ChatMessage{
			Role:    ai.RoleSystem,
			Content: renderContextUnit(unit),
		})
	}
	messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: newMessage})
	return messages
}

func renderContextUnit(unit *model.Message) string {
	date := time.UnixMilli(unit.Ctime).UTC().Format("2006-01-02")
	return fmt.Sprintf("Relevant prior content (%s, %s):\n%s", unit.Role, date, unit.Content)
}
