package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/internal/ai"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/db"
	"github.com/parleyhq/parley/internal/embedcache"
	"github.com/parleyhq/parley/internal/filestore"
	"github.com/parleyhq/parley/internal/handler"
	"github.com/parleyhq/parley/internal/job"
	"github.com/parleyhq/parley/internal/middleware"
	"github.com/parleyhq/parley/internal/repo"
	"github.com/parleyhq/parley/internal/retrieval"
	"github.com/parleyhq/parley/internal/schedule"
	"github.com/parleyhq/parley/internal/service"
)

func main() {
	_ = godotenv.Load()

	var configPath string

	rootCmd := &cobra.Command{
		Use:   "parley",
		Short: "parley chat backend",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the parley server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			database, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, database)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(newChatCmd())

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildChatters(refs []config.ProviderRef) (ai.IChatter, error) {
	entries := make([]ai.ChatterEntry, 0, len(refs))
	for _, ref := range refs {
		provider, err := ai.NewChatProvider(ref.Provider, ref.Config)
		if err != nil {
			return nil, fmt.Errorf("init chat provider %s: %w", ref.Provider, err)
		}
		entries = append(entries, ai.ChatterEntry{
			Name:    ref.Model,
			Chatter: ai.NewChatter(provider, ref.Model),
		})
	}
	return ai.NewGroupChatter(entries), nil
}

func buildEmbedders(refs []config.ProviderRef) (ai.IEmbedder, error) {
	entries := make([]ai.EmbedderEntry, 0, len(refs))
	for _, ref := range refs {
		provider, err := ai.NewEmbedProvider(ref.Provider, ref.Config)
		if err != nil {
			return nil, fmt.Errorf("init embed provider %s: %w", ref.Provider, err)
		}
		entries = append(entries, ai.EmbedderEntry{
			Name:     ref.Model,
			Embedder: ai.NewEmbedder(provider, ref.Model),
		})
	}
	return ai.NewGroupEmbedder(entries), nil
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
	)

	userRepo := repo.NewUserRepo(database)
	threadRepo := repo.NewThreadRepo(database)
	messageRepo := repo.NewMessageRepo(database)
	embeddingRepo := repo.NewEmbeddingRepo(database)
	keywordRepo := repo.NewKeywordRepo(database)
	attachmentRepo := repo.NewAttachmentRepo(database)
	cacheRepo := repo.NewEmbeddingCacheRepo(database)

	chatGroup, err := buildChatters(cfg.AI.Chat)
	if err != nil {
		return err
	}
	keywordGroup, err := buildChatters(cfg.AI.Keyword)
	if err != nil {
		return err
	}
	embedGroup, err := buildEmbedders(cfg.AI.Embedding)
	if err != nil {
		return err
	}

	timeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	cached := embedcache.WrapDBCacheToEmbedder(embedGroup, cacheRepo)
	cached = embedcache.WrapLruCacheToEmbedder(cached, cfg.Retrieval.CacheSize,
		time.Duration(cfg.Retrieval.CacheTTLMinutes)*time.Minute)
	embedder := retrieval.NewEmbedder(cached, retrieval.EmbedderConfig{
		MaxInputChars: cfg.AI.MaxInputChars,
		BatchSize:     cfg.AI.EmbedBatchSize,
		Timeout:       timeout,
	})
	selector := retrieval.NewSelector(retrieval.SelectorConfig{})
	orchestrator := retrieval.NewOrchestrator(chatGroup, retrieval.OrchestratorConfig{
		SystemPrompt: cfg.AI.SystemPrompt,
		Timeout:      timeout,
	})
	extractor := retrieval.NewKeywordExtractor(keywordGroup, timeout)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))
	threadService := service.NewThreadService(threadRepo, messageRepo, embeddingRepo, keywordRepo, attachmentRepo)
	chatService := service.NewChatService(
		threadService, messageRepo, embeddingRepo, keywordRepo,
		embedder, selector, orchestrator, extractor,
		service.ChatConfig{
			ContextBudgetChars: cfg.Retrieval.ContextBudgetChars,
			HistoryLimit:       cfg.Retrieval.HistoryLimit,
			KeywordCount:       cfg.Retrieval.KeywordCount,
			MaxInputChars:      cfg.AI.MaxInputChars,
		},
	)
	searchService := service.NewSearchService(messageRepo, embeddingRepo, keywordRepo, embedder)
	attachmentService := service.NewAttachmentService(store, attachmentRepo, threadService, messageRepo, embeddingRepo, embedder)
	backfillService := service.NewBackfillService(messageRepo, embeddingRepo, keywordRepo, embedder, extractor, cfg.Retrieval.KeywordCount)

	deps := handler.RouterDeps{
		Auth:            handler.NewAuthHandler(authService),
		Threads:         handler.NewThreadHandler(threadService),
		Chat:            handler.NewChatHandler(chatService),
		Search:          handler.NewSearchHandler(searchService),
		Attachments:     handler.NewAttachmentHandler(attachmentService),
		Files:           handler.NewFileHandler(store),
		JWTSecret:       []byte(cfg.JWTSecret),
		RateLimitWindow: time.Duration(cfg.RateLimitSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	jobs := []struct {
		job  schedule.Job
		spec string
	}{
		{job.NewEmbeddingBackfillJob(backfillService, cfg.Jobs.BackfillBatchSize), cfg.Jobs.EmbeddingBackfillSpec},
		{job.NewKeywordBackfillJob(backfillService, cfg.Jobs.BackfillBatchSize), cfg.Jobs.KeywordBackfillSpec},
		{job.NewEmbeddingCacheCleanupJob(cacheRepo, cfg.Jobs.CacheMaxAgeDays), cfg.Jobs.CacheCleanupSpec},
	}
	for _, item := range jobs {
		if err := scheduler.AddJob(item.job, item.spec); err != nil {
			return fmt.Errorf("schedule %s: %w", item.job.Name(), err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
