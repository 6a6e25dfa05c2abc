package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/predictpay/backend/internal/config"
	"github.com/predictpay/backend/internal/database"
	"github.com/predictpay/backend/internal/execution"
	"github.com/predictpay/backend/internal/handlers"
	"github.com/predictpay/backend/internal/ledger"
	"github.com/predictpay/backend/internal/registry"
	"github.com/predictpay/backend/internal/tasks"
	"github.com/predictpay/backend/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. docker compose up -d", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(ctx, pool); err != nil {
		slog.Error("Schema migrations failed", "error", err)
		os.Exit(1)
	}
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Migrations applied")

	// Insert-only River client: the API publishes work, the worker binary
	// consumes it.
	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}
	insertPredict := func(ctx context.Context, tx pgx.Tx, args execution.PredictArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}

	ledgerSvc := ledger.NewService(ledger.NewRepository(pool))
	modelsSvc := registry.NewService(registry.NewRepository(pool))
	usersSvc := users.NewService(users.NewRepository(pool))
	tasksSvc := tasks.NewService(tasks.NewRepository(pool), ledgerSvc, modelsSvc, insertPredict, nil, cfg.Predict.MaxInputBytes)

	api := handlers.NewAPI(usersSvc, modelsSvc, ledgerSvc, tasksSvc, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}).Handler(api.Routes())

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	slog.Info("Starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
