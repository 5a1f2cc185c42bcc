package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/joao-fontenele/storeflow/internal/messaging"
	"github.com/joao-fontenele/storeflow/internal/orders"
	"github.com/joao-fontenele/storeflow/internal/products"
	"github.com/joao-fontenele/storeflow/internal/reporting"
	"github.com/joao-fontenele/storeflow/internal/stores"
	"github.com/joao-fontenele/storeflow/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "api", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("api", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var producer *messaging.Producer
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		producer = messaging.NewProducer(brokers, messaging.TopicOrderCreated)
		defer func() { _ = producer.Close() }()
	}

	rule, ok := reporting.ParseRecognitionRule(os.Getenv("REVENUE_RECOGNITION"))
	if !ok {
		logger.Error("invalid REVENUE_RECOGNITION value", "value", os.Getenv("REVENUE_RECOGNITION"))
		os.Exit(1)
	}
	reporter := reporting.Reporter{Rule: rule}

	storeRepo := stores.NewStoreRepository(db)
	productRepo := products.NewProductRepository(db)
	orderRepo := orders.NewOrderRepository(db)

	storeHandler := stores.NewHandler(storeRepo, logger)
	productHandler := products.NewHandler(productRepo, logger)
	orderHandler := orders.NewHandler(orderRepo, productRepo, producer, reporter, logger)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metricsHandler)

	mux.HandleFunc("POST /stores", telemetry.WithHTTPRoute(storeHandler.HandleRegister))
	mux.HandleFunc("GET /stores", telemetry.WithHTTPRoute(storeHandler.HandleList))
	mux.HandleFunc("GET /stores/slug/{slug}", telemetry.WithHTTPRoute(storeHandler.HandleGetBySlug))
	mux.HandleFunc("GET /stores/subdomain/{subdomain}", telemetry.WithHTTPRoute(storeHandler.HandleGetBySubdomain))
	mux.HandleFunc("GET /stores/check-subdomain/{subdomain}", telemetry.WithHTTPRoute(storeHandler.HandleCheckSubdomain))
	mux.HandleFunc("PUT /stores/{id}", telemetry.WithHTTPRoute(storeHandler.HandleUpdateSettings))
	mux.HandleFunc("PUT /stores/{id}/subdomain", telemetry.WithHTTPRoute(storeHandler.HandleUpdateSubdomain))

	mux.HandleFunc("POST /stores/{storeId}/products", telemetry.WithHTTPRoute(productHandler.HandleCreate))
	mux.HandleFunc("GET /stores/{storeId}/products", telemetry.WithHTTPRoute(productHandler.HandleList))
	mux.HandleFunc("GET /stores/{storeId}/products/{id}", telemetry.WithHTTPRoute(productHandler.HandleGet))
	mux.HandleFunc("PUT /stores/{storeId}/products/{id}", telemetry.WithHTTPRoute(productHandler.HandleUpdate))
	mux.HandleFunc("DELETE /stores/{storeId}/products/{id}", telemetry.WithHTTPRoute(productHandler.HandleDelete))

	mux.HandleFunc("POST /stores/{storeId}/orders", telemetry.WithHTTPRoute(orderHandler.HandleCheckout))
	mux.HandleFunc("GET /stores/{storeId}/orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("GET /stores/{storeId}/orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("PUT /stores/{storeId}/orders/{id}/status", telemetry.WithHTTPRoute(orderHandler.HandleUpdateStatus))
	mux.HandleFunc("PUT /stores/{storeId}/orders/{id}/payment", telemetry.WithHTTPRoute(orderHandler.HandleUpdatePayment))
	mux.HandleFunc("GET /stores/{storeId}/stats/dashboard", telemetry.WithHTTPRoute(orderHandler.HandleDashboardStats))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "api",
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
		logger.Info("starting api service", "port", port, "revenue_recognition", string(rule))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
