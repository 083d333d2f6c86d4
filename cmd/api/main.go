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
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/aksesgptmurah/orderdesk/internal/config"
	"github.com/aksesgptmurah/orderdesk/internal/messaging"
	"github.com/aksesgptmurah/orderdesk/internal/orders"
	"github.com/aksesgptmurah/orderdesk/internal/telemetry"
	"github.com/aksesgptmurah/orderdesk/internal/tripay"
	"github.com/aksesgptmurah/orderdesk/internal/webhook"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var cfg config.API
	if err := config.Load(&cfg); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "order-api", "1.0.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("order-api", "1.0.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
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

	producer := messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicOrderPaid)
	defer func() { _ = producer.Close() }()

	gatewayClient := tripay.NewClient(
		cfg.TripayBaseURL,
		cfg.TripayMerchantCode,
		cfg.TripayAPIKey,
		cfg.TripayPrivateKey,
		cfg.FrontendURL,
		cfg.CheckoutTTL,
		&http.Client{
			Timeout:   cfg.GatewayTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	)

	repo := orders.NewRepository(db)
	ordersHandler := orders.NewHandler(repo, gatewayClient, orders.DefaultCatalog(), logger)

	verifier := tripay.NewVerifier(cfg.TripayPrivateKey)
	engine := webhook.NewEngine(repo, producer, logger)
	webhookHandler := webhook.NewHandler(verifier, engine, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders", telemetry.WithHTTPRoute(ordersHandler.HandleCreate))
	mux.HandleFunc("GET /api/orders/{orderId}/status", telemetry.WithHTTPRoute(ordersHandler.HandleStatus))
	mux.HandleFunc("POST /api/payment/webhook", telemetry.WithHTTPRoute(webhookHandler.HandleCallback))
	mux.HandleFunc("PATCH /internal/orders/{orderId}/invitation", telemetry.WithHTTPRoute(ordersHandler.HandleInvitationReport))
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	sweeper := orders.NewSweeper(repo, cfg.SweepInterval, logger)
	go sweeper.Run(sweepCtx)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(mux, "order-api",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting order API", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	cancelSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
