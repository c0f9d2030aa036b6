package service_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/parleyhq/parley/internal/ai"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/db"
)

func openTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "parley",
		Password: "parley_pass",
		DBName:   "parley_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

// stubChatter answers every call with the same reply.
type stubChatter struct {
	reply string
	calls int
}

func (s *stubChatter) Chat(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	s.calls++
	return s.reply, nil
}

func (s *stubChatter) ModelName() string {
	return "stub-chat"
}

// stubEmbedder emits a fixed-direction vector per text length so distinct
// inputs stay distinguishable without a real provider.
type stubEmbedder struct {
	dims int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	res, err := s.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, s.dims)
		vec[len(text)%s.dims] = 1
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) ModelName() string {
	return "stub-embed"
}
