package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/motoshop/order-service/internal/config"
	"github.com/motoshop/order-service/internal/inventory"
	"github.com/motoshop/order-service/internal/messaging"
	"github.com/motoshop/order-service/internal/notify"
	"github.com/motoshop/order-service/internal/sales"
	"github.com/motoshop/order-service/internal/telemetry"
	"github.com/motoshop/order-service/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}
	if cfg.EmailServiceURL == "" {
		logger.Error("EMAIL_SERVICE_URL environment variable is required")
		os.Exit(1)
	}
	if cfg.PostgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	consumer := messaging.NewConsumer(cfg.KafkaBrokers, messaging.TopicOrderEvents, "notification-worker")
	defer func() { _ = consumer.Close() }()

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}

	dispatcher := notify.NewEmailDispatcher(cfg.EmailServiceURL, httpClient)
	notificationHandler := worker.NewNotificationHandler(dispatcher, logger)

	ledger := inventory.NewLedger(db)
	manager := sales.NewManager(db, ledger)
	sweeper := worker.NewSweeper(manager, cfg.PendingOrderTTL, cfg.SweepInterval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	go sweeper.Run(ctx)

	logger.Info("starting worker", "brokers", cfg.KafkaBrokers,
		"pending_ttl", cfg.PendingOrderTTL, "sweep_interval", cfg.SweepInterval)

	if err := consumer.Consume(ctx, notificationHandler.Handle); err != nil {
		if ctx.Err() == context.Canceled {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
