package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/predictpay/backend/internal/config"
	"github.com/predictpay/backend/internal/database"
	"github.com/predictpay/backend/internal/execution"
	"github.com/predictpay/backend/internal/ledger"
	"github.com/predictpay/backend/internal/predict"
	"github.com/predictpay/backend/internal/registry"
	"github.com/predictpay/backend/internal/tasks"
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
		slog.Error("Cannot reach PostgreSQL", "error", err)
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

	// Task enqueue func is late-bound: the service needs it, the workers
	// need the service, and the River client needs the workers.
	var insertMu sync.Mutex
	var insertFn tasks.InsertPredictTxFunc
	insertPredict := func(ctx context.Context, tx pgx.Tx, args execution.PredictArgs) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			panic("river insert not wired")
		}
		return fn(ctx, tx, args)
	}

	ledgerSvc := ledger.NewService(ledger.NewRepository(pool))
	modelsSvc := registry.NewService(registry.NewRepository(pool))
	tasksSvc := tasks.NewService(tasks.NewRepository(pool), ledgerSvc, modelsSvc, insertPredict, nil, cfg.Predict.MaxInputBytes)

	var predictor predict.Predictor = predict.WordStats{}
	if cfg.Predict.Endpoint != "" {
		predictor = predict.NewHTTPPredictor(cfg.Predict.Endpoint, cfg.Predict.Timeout)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, execution.NewPredictWorker(tasksSvc, predictor, cfg.Predict.Timeout, logger))
	river.AddWorker(workers, execution.NewReconcileWorker(tasksSvc, cfg.Worker.StaleAfter, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			// One unacknowledged task message per worker process. Scale by
			// running more processes, not by raising this.
			execution.QueueMLTasks: {MaxWorkers: 1},
			river.QueueDefault:     {MaxWorkers: 1},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(cfg.Worker.ReconcileInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return execution.ReconcileArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, tx pgx.Tx, args execution.PredictArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}
	insertMu.Unlock()

	if err := riverClient.Start(ctx); err != nil {
		slog.Error("River client failed to start", "error", err)
		os.Exit(1)
	}
	slog.Info("Worker started. Waiting for tasks...")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("Shutting down worker...")
	if err := riverClient.Stop(ctx); err != nil {
		slog.Error("River client stop failed", "error", err)
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
