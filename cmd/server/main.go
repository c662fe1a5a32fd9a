// StudioDesk - conversational support and dashboard agents for a small
// course/class business.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/anbose/studiodesk/internal/agents"
	"github.com/anbose/studiodesk/internal/api"
	"github.com/anbose/studiodesk/internal/config"
	"github.com/anbose/studiodesk/internal/intent"
	"github.com/anbose/studiodesk/internal/memory"
	"github.com/anbose/studiodesk/internal/notify"
	"github.com/anbose/studiodesk/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg := config.Load()
	slog.Info("Starting server", "service", cfg.ServiceName, "addr", cfg.HTTPAddr)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	// Redis snapshots are optional; sessions live in memory either way.
	var snapshotter memory.Snapshotter
	if cfg.RedisURL != "" {
		redisSnap, err := memory.NewRedisSnapshotter(cfg.RedisURL, cfg.SessionTimeout)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisSnap.Close()
		snapshotter = redisSnap
		slog.Info("Redis session snapshots enabled")
	}

	sessions := memory.NewStore(memory.StoreConfig{
		SessionTimeout:  cfg.SessionTimeout,
		SweepInterval:   cfg.SweepInterval,
		MaxInteractions: cfg.MaxInteractions,
		Snapshotter:     snapshotter,
		Logger:          logger,
	})
	defer sessions.Close()
	slog.Info("Session store initialized",
		"timeout", cfg.SessionTimeout,
		"max_interactions", cfg.MaxInteractions)

	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.NatsURL != "" {
		natsNotifier, err := notify.NewNATSNotifier(cfg.NatsURL, cfg.NatsSubjectBase, cfg.ServiceName, cfg.NatsTimeout, logger)
		if err != nil {
			slog.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsNotifier.Close()
		notifier = natsNotifier

		simulator, err := notify.StartWebhookSimulator(natsNotifier.Conn(), cfg.NatsSubjectBase, logger)
		if err != nil {
			slog.Error("Failed to start webhook simulator", "error", err)
			os.Exit(1)
		}
		defer simulator.Stop()
		slog.Info("NATS notifications enabled", "subject_base", cfg.NatsSubjectBase)
	}

	var model llms.Model
	if cfg.GeminiAPIKey != "" {
		model, err = googleai.New(context.Background(),
			googleai.WithAPIKey(cfg.GeminiAPIKey),
			googleai.WithDefaultModel(cfg.GeminiModel))
		if err != nil {
			slog.Error("Failed to initialize Gemini client", "error", err)
			os.Exit(1)
		}
		slog.Info("Gemini classifier enabled", "model", cfg.GeminiModel)
	} else {
		slog.Warn("GEMINI_API_KEY not set, classification falls back to keyword matching")
	}
	classifier := intent.NewClassifier(model, cfg.ClassifyTimeout, logger)

	supportAgent := agents.NewSupportAgent(repo, classifier, sessions, notifier, logger)
	dashboardAgent := agents.NewDashboardAgent(repo, classifier, sessions, logger)

	handler := api.NewHandler(supportAgent, dashboardAgent, sessions)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("Shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}

	slog.Info("Server stopped", "active_sessions", len(sessions.ActiveSessionIDs()))
}
