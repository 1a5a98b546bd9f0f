package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yourorg/strategy-sync/internal/cache"
	"github.com/yourorg/strategy-sync/internal/config"
	"github.com/yourorg/strategy-sync/internal/handler"
	"github.com/yourorg/strategy-sync/internal/history"
	"github.com/yourorg/strategy-sync/internal/middleware"
	"github.com/yourorg/strategy-sync/internal/repository"
	"github.com/yourorg/strategy-sync/internal/service"
	strategysync "github.com/yourorg/strategy-sync/internal/sync"
	"github.com/yourorg/strategy-sync/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Durable session snapshots are optional; an empty database host runs
	// the store purely in memory.
	var sessionRepo history.SnapshotRepository
	if cfg.Database.Host != "" {
		db, err := connectToDB(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		repo := repository.NewSessionRepository(db, logger)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("Failed to ensure session schema", zap.Error(err))
		}
		sessionRepo = repo
	} else {
		logger.Warn("No database configured; session snapshots are in-memory only")
	}

	// Validation cache (optional)
	var validationCache *cache.ValidationCache
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		validationCache = cache.NewValidationCache(redisClient, cfg.Redis.CacheTTL, logger)
	}

	// Telemetry emitter (optional)
	var emitter telemetry.Emitter = telemetry.NopEmitter{}
	if cfg.Kafka.Brokers != "" {
		emitter = telemetry.NewKafkaEmitter(
			strings.Split(cfg.Kafka.Brokers, ","),
			cfg.Kafka.Topic,
			cfg.Kafka.ClientID,
			logger,
		)
	}
	defer emitter.Close()

	// Session store and background workers
	store := history.NewStore(history.StoreConfig{
		MaxDepth:      cfg.History.MaxDepth,
		SessionTTL:    cfg.History.SessionTTL,
		FlushInterval: cfg.History.FlushInterval,
		ReapInterval:  cfg.History.ReapInterval,
		FlushRetries:  uint64(cfg.History.FlushRetries),
	}, sessionRepo, logger)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	store.StartWorkers(workerCtx)

	// Initialize services
	editorService := service.NewEditorService(
		store,
		strategysync.New(),
		validationCache,
		emitter,
		logger,
	)

	// Initialize handlers
	editorHandler := handler.NewEditorHandler(editorService, logger)
	registryHandler := handler.NewRegistryHandler(logger)

	// Set up HTTP server with Gin
	router := setupRouter(editorHandler, registryHandler, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop workers first so the final flush runs before the DB closes.
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func createLogger(level string) (*zap.Logger, error) {
	// Parse log level
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	// Create logger config
	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

func connectToDB(dbConfig config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.DBName,
		dbConfig.SSLMode,
	)

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(dbConfig.MaxOpenConns)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	return db, nil
}

func setupRouter(
	editorHandler *handler.EditorHandler,
	registryHandler *handler.RegistryHandler,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		// Synchronization and validation are stateless and unauthenticated;
		// the gateway fronts them.
		v1.POST("/sync/to-text", editorHandler.SynchronizeToText)
		v1.POST("/sync/to-state", editorHandler.SynchronizeToState)
		v1.POST("/validate", editorHandler.Validate)

		// Indicator registry for form UIs
		indicators := v1.Group("/indicator-types")
		{
			indicators.GET("", registryHandler.GetAllTypes)
			indicators.GET("/:type", registryHandler.GetType)
		}

		// Session endpoints carry user identity
		sessions := v1.Group("/sessions")
		sessions.Use(middleware.AuthMiddleware(logger))
		{
			sessions.POST("", editorHandler.StartSession)
			sessions.GET("/:id", editorHandler.GetSession)
			sessions.POST("/:id/resume", editorHandler.ResumeSession)
			sessions.DELETE("/:id", editorHandler.EndSession)
			sessions.POST("/:id/changes", editorHandler.PushChange)
			sessions.POST("/:id/undo", editorHandler.Undo)
			sessions.POST("/:id/redo", editorHandler.Redo)
		}
	}

	return router
}
