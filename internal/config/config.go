package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Database         DatabaseConfig   `json:"database"`
	JWTSecret        string           `json:"jwt_secret"`
	Port             int              `json:"port"`
	JWTTTLHours      int              `json:"jwt_ttl_hours"`
	RateLimitSeconds int              `json:"rate_limit_seconds"`
	CORSOrigins      []string         `json:"cors_origins"`
	LogConfig        logger.LogConfig `json:"log_config"`
	FileStore        FileStoreConfig  `json:"file_store"`
	AI               AIConfig         `json:"ai"`
	Retrieval        RetrievalConfig  `json:"retrieval"`
	Jobs             JobsConfig       `json:"jobs"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ProviderRef names one provider+model pair; Config carries the
// provider-specific settings decoded at factory time.
type ProviderRef struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Config   interface{} `json:"config"`
}

type AIConfig struct {
	Chat           []ProviderRef `json:"chat"`
	Keyword        []ProviderRef `json:"keyword"`
	Embedding      []ProviderRef `json:"embedding"`
	SystemPrompt   string        `json:"system_prompt"`
	TimeoutSeconds int           `json:"timeout_seconds"`
	MaxInputChars  int           `json:"max_input_chars"`
	EmbedBatchSize int           `json:"embed_batch_size"`
}

type RetrievalConfig struct {
	ContextBudgetChars int `json:"context_budget_chars"`
	HistoryLimit       int `json:"history_limit"`
	KeywordCount       int `json:"keyword_count"`
	CacheSize          int `json:"cache_size"`
	CacheTTLMinutes    int `json:"cache_ttl_minutes"`
}

type JobsConfig struct {
	EmbeddingBackfillSpec string `json:"embedding_backfill_spec"`
	KeywordBackfillSpec   string `json:"keyword_backfill_spec"`
	CacheCleanupSpec      string `json:"cache_cleanup_spec"`
	CacheMaxAgeDays       int    `json:"cache_max_age_days"`
	BackfillBatchSize     int    `json:"backfill_batch_size"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	// Secrets stay in the environment; the file references them as ${VAR}.
	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := json.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.RateLimitSeconds == 0 {
		cfg.RateLimitSeconds = 2
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
		cfg.FileStore.Data = map[string]interface{}{"dir": "./data/files"}
	}
	if len(cfg.AI.Chat) == 0 {
		return nil, fmt.Errorf("ai.chat requires at least one provider")
	}
	if len(cfg.AI.Embedding) == 0 {
		return nil, fmt.Errorf("ai.embedding requires at least one provider")
	}
	if len(cfg.AI.Keyword) == 0 {
		cfg.AI.Keyword = cfg.AI.Chat
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 30
	}
	if cfg.AI.MaxInputChars == 0 {
		cfg.AI.MaxInputChars = 8000
	}
	if cfg.AI.EmbedBatchSize == 0 {
		cfg.AI.EmbedBatchSize = 16
	}
	if cfg.Retrieval.ContextBudgetChars == 0 {
		cfg.Retrieval.ContextBudgetChars = 6000
	}
	if cfg.Retrieval.HistoryLimit == 0 {
		cfg.Retrieval.HistoryLimit = 20
	}
	if cfg.Retrieval.KeywordCount == 0 {
		cfg.Retrieval.KeywordCount = 7
	}
	if cfg.Retrieval.CacheSize == 0 {
		cfg.Retrieval.CacheSize = 10000
	}
	if cfg.Retrieval.CacheTTLMinutes == 0 {
		cfg.Retrieval.CacheTTLMinutes = 120
	}
	if cfg.Jobs.EmbeddingBackfillSpec == "" {
		cfg.Jobs.EmbeddingBackfillSpec = "*/5 * * * *"
	}
	if cfg.Jobs.KeywordBackfillSpec == "" {
		cfg.Jobs.KeywordBackfillSpec = "*/10 * * * *"
	}
	if cfg.Jobs.CacheCleanupSpec == "" {
		cfg.Jobs.CacheCleanupSpec = "30 3 * * *"
	}
	if cfg.Jobs.CacheMaxAgeDays == 0 {
		cfg.Jobs.CacheMaxAgeDays = 30
	}
	if cfg.Jobs.BackfillBatchSize == 0 {
		cfg.Jobs.BackfillBatchSize = 50
	}
	return &cfg, nil
}
