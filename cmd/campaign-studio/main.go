package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/radiusdt/campaign-studio/internal/config"
	"github.com/radiusdt/campaign-studio/internal/database"
	"github.com/radiusdt/campaign-studio/internal/httpserver"
	"github.com/radiusdt/campaign-studio/internal/metrics"
	"github.com/radiusdt/campaign-studio/internal/middleware"
	"github.com/radiusdt/campaign-studio/internal/remote"
	"github.com/radiusdt/campaign-studio/internal/storage"
	"github.com/radiusdt/campaign-studio/internal/upload"
	"github.com/radiusdt/campaign-studio/internal/wizard"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("starting campaign-studio",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.String("draft_backend", cfg.Wizard.DraftBackend),
		zap.String("upload_backend", cfg.Upload.Backend),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics("campaign_studio", nil)
	checks := map[string]httpserver.HealthCheck{}

	// Draft storage
	var slots storage.SlotStore
	switch cfg.Wizard.DraftBackend {
	case "redis":
		rdb, err := database.NewRedisDB(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer rdb.Close()
		checks["redis"] = rdb.Health
		slots = storage.NewRedisSlotStore(rdb.Client, cfg.Wizard.DraftTTL)
	case "postgres":
		db, err := database.NewPostgresDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
		}
		defer db.Close()
		if err := db.Migrate(ctx, storage.DraftSchema); err != nil {
			logger.Fatal("failed to migrate draft schema", zap.Error(err))
		}
		checks["postgres"] = db.Health
		slots = storage.NewPostgresSlotStore(db.Pool)
	default:
		slots = storage.NewInMemorySlotStore()
	}
	drafts := storage.NewDrafts(slots, logger, m)

	// Wizard event log
	var events storage.EventStore = storage.NewInMemoryEventStore()
	if cfg.ClickHouse.Addr != "" {
		ch, err := database.NewClickHouseDB(ctx, cfg.ClickHouse, logger)
		if err != nil {
			logger.Fatal("failed to connect to ClickHouse", zap.Error(err))
		}
		defer ch.Close()
		store := storage.NewClickHouseEventStore(ch.Conn)
		if err := store.Migrate(ctx); err != nil {
			logger.Fatal("failed to migrate event table", zap.Error(err))
		}
		checks["clickhouse"] = ch.Health
		events = store
	}

	// Ads API and creative uploads
	client := remote.NewClient(cfg.Remote, logger, m)
	var uploader upload.Uploader = client
	if cfg.Upload.Backend == "supabase" {
		uploader = upload.NewSupabaseUploader(cfg.Upload.SupabaseURL, cfg.Upload.SupabaseKey, cfg.Upload.SupabaseBucket)
	}

	wizards := wizard.NewManager(wizard.Deps{
		Drafts:   drafts,
		Client:   client,
		Pipeline: upload.NewPipeline(uploader, logger, m),
		Events:   events,
		Options:  cfg.Wizard,
		Logger:   logger,
		Metrics:  m,
	})

	handler := httpserver.NewServer(&httpserver.Dependencies{
		Wizards: wizards,
		Reports: client,
		Events:  events,
		Checks:  checks,
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
	})

	// Recovery -> Logging -> RateLimit -> Auth -> Handler
	recoveryMW := middleware.NewRecoveryMiddleware(logger)
	loggingMW := middleware.NewLoggingMiddleware(logger)
	rateLimitMW := middleware.NewRateLimitMiddleware(cfg.RateLimit, logger, m)
	authMW := middleware.NewAuthMiddleware(cfg.Auth, logger)

	finalHandler := recoveryMW.Handler(
		loggingMW.Handler(
			rateLimitMW.Handler(
				authMW.Handler(handler),
			),
		),
	)

	// A full upload batch bounds the longest request; the upload handler
	// extends its own deadline per batch as well.
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           finalHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      httpserver.UploadWriteDeadline(cfg.Remote.Timeout, cfg.Wizard.MaxBatchFiles),
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("HTTP server starting", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rateLimitMW.CleanupLimiters()
				wizards.EvictIdle(cfg.Wizard.IdleTTL)
			case <-ctx.Done():
				return
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	cancel()

	logger.Info("server stopped")
}
