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
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/motoshop/order-service/internal/config"
	"github.com/motoshop/order-service/internal/inventory"
	"github.com/motoshop/order-service/internal/messaging"
	"github.com/motoshop/order-service/internal/payments"
	"github.com/motoshop/order-service/internal/paypal"
	"github.com/motoshop/order-service/internal/sales"
	"github.com/motoshop/order-service/internal/telemetry"
)

const serviceVersion = "0.1.0"

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	if cfg.PostgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.ServiceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

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

	var publisher sales.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicOrderEvents)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	var keyStore payments.KeyStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		keyStore = payments.NewRedisStore(rdb)
	}

	ledger := inventory.NewLedger(db)
	manager := sales.NewManager(db, ledger)
	sessions := payments.NewSessionRepository(db)

	gatewayClient := &http.Client{
		Timeout:   cfg.PayPalTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	gateway := paypal.NewClient(cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalClientSecret, gatewayClient)

	orchestrator := payments.NewOrchestrator(manager, gateway, sessions, keyStore, publisher, logger)

	inventoryHandler := inventory.NewHandler(ledger, logger)
	salesHandler := sales.NewHandler(manager, publisher, logger)
	paymentsHandler := payments.NewHandler(orchestrator, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(salesHandler.HandleCreate))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(salesHandler.HandleList))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(salesHandler.HandleGet))
	mux.HandleFunc("PUT /orders/{id}", telemetry.WithHTTPRoute(salesHandler.HandleUpdate))
	mux.HandleFunc("DELETE /orders/{id}", telemetry.WithHTTPRoute(salesHandler.HandleDelete))
	mux.HandleFunc("POST /orders/{id}/cancel", telemetry.WithHTTPRoute(salesHandler.HandleCancel))

	mux.HandleFunc("POST /payments/create-order", telemetry.WithHTTPRoute(paymentsHandler.HandleCreateOrder))
	mux.HandleFunc("POST /payments/capture-order", telemetry.WithHTTPRoute(paymentsHandler.HandleCaptureOrder))

	mux.HandleFunc("GET /stock", telemetry.WithHTTPRoute(inventoryHandler.HandleList))
	mux.HandleFunc("GET /stock/{productId}", telemetry.WithHTTPRoute(inventoryHandler.HandleGet))
	mux.HandleFunc("PUT /stock/{productId}", telemetry.WithHTTPRoute(inventoryHandler.HandlePut))
	mux.HandleFunc("POST /stock/{productId}/reserve", telemetry.WithHTTPRoute(inventoryHandler.HandleReserve))
	mux.HandleFunc("POST /stock/{productId}/release", telemetry.WithHTTPRoute(inventoryHandler.HandleRelease))

	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: otelhttp.NewHandler(mux, cfg.ServiceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("starting order service", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
