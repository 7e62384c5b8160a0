package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/docs-agent/backend/internal/answer"
	"github.com/docs-agent/backend/internal/api/handlers"
	"github.com/docs-agent/backend/internal/cache/redis"
	"github.com/docs-agent/backend/internal/ingestion"
	"github.com/docs-agent/backend/internal/llm"
	"github.com/docs-agent/backend/internal/metrics"
	"github.com/docs-agent/backend/internal/middleware/ratelimit"
	"github.com/docs-agent/backend/internal/middleware/security"
	"github.com/docs-agent/backend/internal/middleware/validation"
	"github.com/docs-agent/backend/internal/retrieval"
	"github.com/docs-agent/backend/internal/session"
	"github.com/docs-agent/backend/internal/state"
	"github.com/docs-agent/backend/internal/storage/sqlite"
	"github.com/docs-agent/backend/internal/vector/milvus"
	"github.com/docs-agent/backend/pkg/config"
	appLogger "github.com/docs-agent/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Docs Agent API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	milvusClient, err := milvus.NewClient(
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
	}
	defer milvusClient.Close()

	err = milvusClient.EnsureCollection(context.Background())
	if err != nil {
		appLogger.Fatal("Failed to prepare collection", zap.Error(err))
	}

	var embeddingCache retrieval.EmbeddingCache
	var answerCache answer.AnswerCache
	var invalidator ingestion.AnswerInvalidator
	var ingestCache ingestion.EmbeddingCache
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()

		ttl := time.Duration(cfg.Redis.TTLMin) * time.Minute
		ec := redis.NewEmbeddingCache(redisClient, ttl)
		embeddingCache = ec
		ingestCache = ec
		answerCache = redis.NewAnswerCache(redisClient, ttl)
		invalidator = redisClient
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.RecallMaxChars,
	)

	stateManager := state.NewManager()
	sessions := session.NewStore(cfg.Memory.Window)

	segmenter := &ingestion.Segmenter{
		ChunkSize:         cfg.Ingest.ChunkSize,
		ChunkOverlap:      cfg.Ingest.ChunkOverlap,
		MinChunkSize:      cfg.Ingest.MinChunkSize,
		FallbackChunkSize: cfg.Ingest.FallbackChunkSize,
		FallbackOverlap:   cfg.Ingest.FallbackOverlap,
		MinChunks:         cfg.Ingest.MinChunks,
	}

	processor := ingestion.NewProcessor(ingestion.Deps{
		Segmenter:   segmenter,
		VectorDB:    milvusClient,
		Embedder:    llmClient,
		Recaller:    llmClient,
		DB:          sqliteClient,
		Cache:       ingestCache,
		Invalidator: invalidator,
		State:       stateManager,
	})

	engine := retrieval.NewEngine(llmClient, milvusClient, embeddingCache, retrieval.Config{
		Candidates: cfg.Retrieval.Candidates,
		Final:      cfg.Retrieval.Final,
		FetchK:     cfg.Retrieval.FetchK,
		MMRLambda:  cfg.Retrieval.MMRLambda,
		Alpha:      cfg.Retrieval.Alpha,
	})

	synthesizer := answer.NewSynthesizer(stateManager, sessions, engine, milvusClient, llmClient, answerCache)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	limiter := ratelimit.New(ratelimit.Config{Logger: appLogger.Log})
	defer limiter.Stop()
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		MaxDocumentSize: cfg.Server.BodyLimit,
		Logger:          appLogger.Log,
	}))

	docsHandler := handlers.NewDocsHandler(processor, stateManager, sessions)
	askHandler := handlers.NewAskHandler(synthesizer, sqliteClient)
	memoryHandler := handlers.NewMemoryHandler(sessions, sqliteClient)
	wsHandler := handlers.NewWebSocketHandler(synthesizer)

	api := app.Group("/api/v1")

	api.Post("/documents", docsHandler.UploadDocument)
	api.Post("/documents/clear", docsHandler.ClearDocument)
	api.Get("/documents/status", docsHandler.GetStatus)

	api.Post("/ask", askHandler.HandleAsk)
	api.Get("/ask/history", askHandler.GetAskHistory)

	api.Post("/memory/clear", memoryHandler.ClearMemory)
	api.Get("/memory/status/:session_id", memoryHandler.GetMemoryStatus)
	api.Get("/memory/sessions", memoryHandler.ListSessions)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		if !stateManager.Current().Ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "waiting for document",
			})
		}
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
