package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/msomdec/password-validator/internal/config"
	"github.com/msomdec/password-validator/internal/handler"
	"github.com/msomdec/password-validator/internal/persistence"
	"github.com/msomdec/password-validator/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logOpts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	store, err := persistence.Open(cfg.Database.Options())
	if err != nil {
		slog.Error("failed to configure database", "error", err, "provider", cfg.Database.Provider)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied", "provider", cfg.Database.Provider)

	fingerprint, err := service.NewFingerprinter([]byte(cfg.FingerprintKey))
	if err != nil {
		slog.Error("invalid fingerprint key", "error", err)
		os.Exit(1)
	}

	policy := service.Policy{
		MinLength:     cfg.Policy.MinLength,
		MaxLength:     cfg.Policy.MaxLength,
		RequireUpper:  cfg.Policy.RequireUpper,
		RequireLower:  cfg.Policy.RequireLower,
		RequireDigit:  cfg.Policy.RequireDigit,
		RequireSymbol: cfg.Policy.RequireSymbol,
	}
	attemptService := service.NewAttemptService(policy, fingerprint)

	limiter := service.NewTokenBucket(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	defer limiter.Stop()

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, store, attemptService, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.RequestID(handler.LogRequests(handler.SecurityHeaders(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
