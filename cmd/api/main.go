package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/markme/facecheck/internal/api"
	"github.com/markme/facecheck/internal/api/handler"
	"github.com/markme/facecheck/internal/audit"
	"github.com/markme/facecheck/internal/config"
	"github.com/markme/facecheck/internal/database"
	"github.com/markme/facecheck/internal/face"
	"github.com/markme/facecheck/internal/imagesource"
	"github.com/markme/facecheck/internal/reference"
	"github.com/markme/facecheck/internal/repository"
	"github.com/markme/facecheck/internal/roster"
	"github.com/markme/facecheck/internal/service"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Facecheck API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("provider", cfg.ProviderType),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres: precomputed embeddings and the attendance log
	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return err
	}
	defer pool.Close()

	// Mongo: the student roster
	mongoClient, rosterDB, err := roster.Connect(ctx, cfg.MongoURI, cfg.MongoDBName, logger)
	if err != nil {
		return err
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	rosterStore := roster.NewStore(rosterDB, logger)

	faces, err := face.NewFaceProvider(cfg)
	if err != nil {
		return err
	}

	loader := imagesource.NewLoader(imagesource.Config{
		Timeout:      cfg.DownloadTimeout,
		MaxBytes:     imagesource.DefaultConfig().MaxBytes,
		MaxDimension: cfg.MaxImageDimension,
	}, logger)

	trail := audit.NewSlogLogger(logger)

	cache := reference.NewCache(rosterStore, loader, faces, reference.Config{
		Dimension:     cfg.EmbeddingDim,
		MinReferences: cfg.MinReferences,
		Workers:       cfg.ImageWorkers,
	}, logger)

	attendance := service.NewAttendanceService(
		cache,
		faces,
		repository.NewAttendanceRepository(pool),
		service.AttendanceConfig{
			Threshold:      cfg.DistanceThreshold,
			GlobalFallback: cfg.GlobalFallback,
			Dimension:      cfg.EmbeddingDim,
			MaxDimension:   cfg.MaxImageDimension,
		},
		logger,
	).WithAudit(trail)

	embeddings := service.NewEmbeddingService(
		repository.NewEmbeddingRepository(pool),
		loader,
		faces,
		service.EmbeddingConfig{
			Threshold: cfg.SimilarityThreshold,
			MaxImages: cfg.MaxClassroomImages,
			Workers:   cfg.ImageWorkers,
			Dimension: cfg.EmbeddingDim,
		},
		logger,
	).WithAudit(trail)

	checks := map[string]handler.Check{
		"postgres": func(ctx context.Context) error { return database.HealthCheck(ctx, pool) },
		"mongo":    rosterStore.Ping,
	}
	if p, ok := faces.(interface{ Ping(context.Context) error }); ok {
		checks["extractor"] = p.Ping
	}

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		APIKey:             cfg.APIKey,
		Attendance:         attendance,
		Embeddings:         embeddings,
		ReadyChecks:        checks,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Version:            version,
	})
	router.Setup()

	// Warm the global reference set so the first classless request is fast
	go func() {
		if _, err := cache.Global(ctx); err != nil {
			logger.Warn("global reference warm-up failed", slog.Any("error", err))
		}
	}()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}
