package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop-orders/internal/app"
)

const (
	envHTTPAddr          = "ORDERS_HTTP_ADDR"
	envMetricsAddr       = "ORDERS_METRICS_ADDR"
	envPostgresDSN       = "ORDERS_POSTGRES_DSN"
	envCatalogURL        = "ORDERS_CATALOG_URL"
	envCatalogTimeout    = "ORDERS_CATALOG_TIMEOUT"
	envKafkaBrokers      = "ORDERS_KAFKA_BROKERS"
	envJWTSecret         = "ORDERS_JWT_SECRET"
	envStrictTransitions = "ORDERS_STRICT_TRANSITIONS"
)

type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfigFromEnv формирует конфигурацию из переменных окружения.
// Некорректные значения не прерывают запуск: возвращаются warnings,
// а поле остаётся со значением по умолчанию.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	if v, ok := lookup(envHTTPAddr); ok && strings.TrimSpace(v) != "" {
		cfg.HTTPAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(envMetricsAddr); ok && strings.TrimSpace(v) != "" {
		cfg.MetricsAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(envPostgresDSN); ok {
		cfg.PostgresDSN = strings.TrimSpace(v)
	}
	if v, ok := lookup(envCatalogURL); ok && strings.TrimSpace(v) != "" {
		cfg.CatalogBaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(envCatalogTimeout); ok {
		timeout, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil || timeout <= 0 {
			warnings = append(warnings, fmt.Sprintf("%s: must be a positive duration, got %q", envCatalogTimeout, v))
		} else {
			cfg.CatalogTimeout = timeout
		}
	}
	if v, ok := lookup(envKafkaBrokers); ok && strings.TrimSpace(v) != "" {
		brokers := strings.Split(v, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		cfg.KafkaBrokers = brokers
	}
	if v, ok := lookup(envJWTSecret); ok {
		cfg.JWTSecret = v
	}
	if v, ok := lookup(envStrictTransitions); ok {
		strict, err := parseBool(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envStrictTransitions, err))
		} else {
			cfg.StrictTransitions = strict
		}
	}

	return cfg, warnings
}

// parseBool принимает true/false, yes/no, on/off в любом регистре.
func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", value)
	}
}

func main() {
	setupLogger()

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	if cfg.JWTSecret == "" {
		log.Fatalf("%s обязателен", envJWTSecret)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"catalog_url":  cfg.CatalogBaseURL,
	}).Info("запускаем сервис заказов")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("сервис заказов остановлен")
}
