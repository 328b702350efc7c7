package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop-orders/internal/auth"
	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/shop-orders/internal/health"
	"github.com/vladislavdragonenkov/shop-orders/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/shop-orders/internal/metrics"
	"github.com/vladislavdragonenkov/shop-orders/internal/service/httpapi"
	"github.com/vladislavdragonenkov/shop-orders/internal/service/idempotency"
	"github.com/vladislavdragonenkov/shop-orders/internal/service/order"
	"github.com/vladislavdragonenkov/shop-orders/internal/service/outbox"
	"github.com/vladislavdragonenkov/shop-orders/internal/version"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr          string
	MetricsAddr       string
	PostgresDSN       string
	CatalogBaseURL    string
	CatalogTimeout    time.Duration
	KafkaBrokers      []string
	JWTSecret         string
	StrictTransitions bool
}

// DefaultConfig возвращает базовые адреса и таймауты.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:       ":8003",
		MetricsAddr:    ":9090",
		CatalogBaseURL: "http://localhost:8002",
		CatalogTimeout: 5 * time.Second,
	}
}

// Run собирает зависимости и обслуживает HTTP API до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	serviceOptions := []order.Option{
		order.WithOutbox(deps.Outbox),
		order.WithMetrics(metrics.NewOrderMetrics()),
		order.WithLogger(logger.WithField("component", "order-service")),
	}
	if cfg.StrictTransitions {
		serviceOptions = append(serviceOptions, order.WithTransitionPolicy(domain.StrictTransitionPolicy{}))
		logger.Info("strict status transition policy enabled")
	}
	orderService := order.NewService(deps.Orders, deps.Catalog, serviceOptions...)

	// Kafka producer опционален: без брокеров outbox просто копит события.
	var kafkaProducer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers,
			kafka.WithProducerLogger(logger.WithField("component", "kafka-producer")),
		)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			kafkaProducer = producer
			logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
		}
	}

	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents)
		worker := outbox.NewWorker(deps.Outbox, publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		)
		go worker.Run(ctx)
	}

	cleanupWorker := idempotency.NewCleanupWorker(deps.Idempotency,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup-worker")),
	)
	go cleanupWorker.Run(ctx)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.Store != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.CheckerFunc("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return deps.Store.Ping(pingCtx)
		}))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Handler:       httpapi.NewHandler(orderService, logger.WithField("component", "http-handler")),
		Verifier:      auth.NewJWTVerifier(cfg.JWTSecret),
		Idempotency:   deps.Idempotency,
		HealthHandler: healthHandler,
		Logger:        logger.WithField("component", "http-router"),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP сервер слушает %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(srv, logger)
		shutdownHTTP(metricsSrv, logger)
		closeProducer(kafkaProducer, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		closeProducer(kafkaProducer, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

func closeProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
