package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/trailbook/internal/config"
	"github.com/joshua-takyi/trailbook/internal/connect"
	"github.com/joshua-takyi/trailbook/internal/container"
	"github.com/joshua-takyi/trailbook/internal/models"
	"github.com/joshua-takyi/trailbook/internal/routes"
	"github.com/joshua-takyi/trailbook/internal/services"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	logger.Info("Starting Trailbook API server", "environment", cfg.Environment, "store", cfg.StoreDriver)

	ctx := context.Background()
	conns := &connect.Connections{}

	appContainer, err := buildContainer(ctx, cfg, logger, conns)
	if err != nil {
		logger.Error("Failed to initialise dependencies", "error", err)
		_ = conns.Close(ctx)
		os.Exit(1)
	}

	router := routes.SetupRoutes(appContainer)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	appContainer.Tokens.Close()
	if err := conns.Close(shutdownCtx); err != nil {
		logger.Error("Error closing connections", "error", err)
	}

	logger.Info("Server exited")
}

// buildContainer opens the backing stores for the configured driver and records them in conns.
func buildContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, conns *connect.Connections) (*container.Container, error) {
	features := container.Features(cfg)

	rdb, err := connect.RedisConnect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	conns.Redis = rdb
	if rdb == nil {
		logger.Warn("REDIS_URL not set, rate limits are kept in process memory")
	}

	var mailer services.Mailer
	if m := connect.NewSMTPMailer(cfg.SMTP); m != nil {
		mailer = m
	}

	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("Using the in-memory store, data is lost on restart")
		mem := models.NewMemoryRepo(features)
		return container.NewContainer(cfg, logger, mem, mem, mem, mailer, rdb), nil
	}

	pool, db, err := connect.PostgresConnect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	conns.Pool, conns.DB = pool, db
	logger.Info("Connected to Postgres successfully")

	store := models.PostgresNewRepo(db, pool)
	if err := store.Migrate(ctx, features); err != nil {
		return nil, err
	}

	supaClient, err := connect.InitSupabase(cfg)
	if err != nil {
		return nil, err
	}
	conns.Supabase = supaClient
	logger.Info("Connected to Supabase successfully")

	mongoClient, err := connect.MongoDBConnect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	conns.Mongo = mongoClient
	logger.Info("Connected to MongoDB successfully")

	inbox := models.MongodbNewRepo(mongoClient, cfg.MongoDBDatabase)
	if err := inbox.EnsureNotificationIndexes(ctx); err != nil {
		return nil, err
	}

	directory := models.SupabaseNewRepo(supaClient)
	return container.NewContainer(cfg, logger, store, directory, inbox, mailer, rdb), nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	var handler slog.Handler
	if cfg.IsProduction() {
		// JSON logging for production
		handler = slog.NewJSONHandler(out, opts)
	} else {
		// Human-readable logging for development
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}
