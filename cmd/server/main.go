// Package main is the entry point for the reelkeep server. It loads
// configuration, establishes database connections, runs schema migrations,
// wires together the feature packages, and starts the HTTP server.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/reelkeep/reelkeep/internal/app"
	"github.com/reelkeep/reelkeep/internal/auth"
	"github.com/reelkeep/reelkeep/internal/config"
	"github.com/reelkeep/reelkeep/internal/database"
	"github.com/reelkeep/reelkeep/internal/posters"
	"github.com/reelkeep/reelkeep/internal/token"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	// Configure structured logging based on environment.
	setupLogging(cfg)

	slog.Info("starting reelkeep",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
	)

	// --- Connect to MariaDB ---
	db, err := database.NewMariaDB(cfg.Database)
	if err != nil {
		slog.Error("failed to connect to MariaDB", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to MariaDB")

	// --- Run Migrations ---
	if err := database.RunMigrations(db, cfg.Database.MigrationsPath); err != nil {
		slog.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Connect to Redis ---
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to Redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer rdb.Close()
	slog.Info("connected to Redis")

	// --- Shared Services ---
	store, err := posters.NewDiskStore(cfg.Upload.PosterPath, cfg.Upload.MaxSize)
	if err != nil {
		slog.Error("failed to create poster store", slog.Any("error", err))
		os.Exit(1)
	}

	tokens := token.NewService(
		[]byte(cfg.Auth.Secret),
		cfg.Auth.TokenTTL,
		cfg.Auth.RememberTTL,
		!cfg.IsDevelopment(),
	)

	// --- Create Application ---
	application := app.New(cfg, db, rdb, tokens, store)
	application.RegisterRoutes()

	if cfg.SeedDevUser {
		seedDevUser(db)
	}

	// --- Graceful Shutdown ---
	// Listen for interrupt/term signals to drain connections cleanly.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		// Give in-flight requests 10 seconds to complete.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := application.Echo.Shutdown(ctx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	// --- Start Server ---
	if err := application.Start(); err != nil {
		// Echo returns http.ErrServerClosed on graceful shutdown, which is expected.
		slog.Info("server stopped", slog.Any("reason", err))
	}
}

// setupLogging configures the global slog logger based on the environment.
// Development uses text format for readability. Production uses JSON for
// structured log aggregation.
func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	slog.SetDefault(slog.New(handler))
}

// seedDevUser registers a known local account so a fresh development
// database is immediately usable. Skips silently when the account exists.
func seedDevUser(db *sql.DB) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	svc := auth.NewService(auth.NewUserRepository(db))
	user, err := svc.Register(ctx, auth.RegisterInput{
		Name:     "Dev User",
		Email:    "dev@example.com",
		Password: "Devpass1",
	})
	if err != nil {
		slog.Debug("dev user seed skipped", slog.Any("reason", err))
		return
	}
	slog.Info("seeded dev user",
		slog.String("email", user.Email),
		slog.String("password", "Devpass1"),
	)
}
