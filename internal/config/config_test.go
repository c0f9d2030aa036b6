package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"database": {"host": "localhost", "port": 5432, "user": "parley", "password": "pw", "db_name": "parley"},
		"jwt_secret": "secret",
		"port": 8080,
		"ai": {
			"chat": [{"provider": "openai", "model": "gpt-4o-mini", "config": {"api_key": "k"}}],
			"embedding": [{"provider": "openai", "model": "text-embedding-3-small", "config": {"api_key": "k"}}]
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 72, cfg.JWTTTLHours)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, "local", cfg.FileStore.Type)
	require.Equal(t, 30, cfg.AI.TimeoutSeconds)
	require.Equal(t, 16, cfg.AI.EmbedBatchSize)
	require.Equal(t, 6000, cfg.Retrieval.ContextBudgetChars)
	require.Equal(t, 20, cfg.Retrieval.HistoryLimit)
	require.Equal(t, 7, cfg.Retrieval.KeywordCount)
	require.Equal(t, 30, cfg.Jobs.CacheMaxAgeDays)
	require.Len(t, cfg.AI.Keyword, 1)
	require.Equal(t, "openai", cfg.AI.Keyword[0].Provider)
}

func TestLoadExpandsEnvReferences(t *testing.T) {
	t.Setenv("PARLEY_TEST_API_KEY", "from-env")
	path := writeConfig(t, `{
		"database": {"dsn": "postgres://localhost/parley"},
		"jwt_secret": "secret",
		"port": 8080,
		"ai": {
			"chat": [{"provider": "openai", "model": "gpt-4o-mini", "config": {"api_key": "${PARLEY_TEST_API_KEY}"}}],
			"embedding": [{"provider": "openai", "model": "text-embedding-3-small", "config": {"api_key": "${PARLEY_TEST_API_KEY}"}}]
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	chatCfg, ok := cfg.AI.Chat[0].Config.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "from-env", chatCfg["api_key"])
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "no database",
			content: `{"jwt_secret": "s", "port": 1, "ai": {"chat": [{"provider": "x"}], "embedding": [{"provider": "x"}]}}`,
		},
		{
			name:    "no jwt secret",
			content: `{"database": {"dsn": "d"}, "port": 1, "ai": {"chat": [{"provider": "x"}], "embedding": [{"provider": "x"}]}}`,
		},
		{
			name:    "no chat provider",
			content: `{"database": {"dsn": "d"}, "jwt_secret": "s", "port": 1, "ai": {"embedding": [{"provider": "x"}]}}`,
		},
		{
			name:    "no embedding provider",
			content: `{"database": {"dsn": "d"}, "jwt_secret": "s", "port": 1, "ai": {"chat": [{"provider": "x"}]}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}
