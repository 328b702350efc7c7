package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop-orders/internal/catalog"
	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	"github.com/vladislavdragonenkov/shop-orders/internal/storage/memory"
	"github.com/vladislavdragonenkov/shop-orders/internal/storage/postgres"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Orders      domain.OrderRepository
	Outbox      domain.OutboxRepository
	Idempotency domain.IdempotencyRepository
	Catalog     domain.CatalogClient
	Store       *postgres.Store
	Logger      *log.Entry
}

// NewDependencies создаёт хранилища и клиент каталога. При заданном DSN
// используется PostgreSQL, иначе in-memory реализации для разработки.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Catalog: catalog.NewClient(cfg.CatalogBaseURL, cfg.CatalogTimeout, logger.WithField("component", "catalog-client")),
		Logger:  logger,
	}

	if cfg.PostgresDSN == "" {
		logger.Info("postgres dsn is not set, using in-memory storage")
		deps.Orders = memory.NewOrderRepository()
		deps.Outbox = memory.NewOutboxRepository()
		deps.Idempotency = memory.NewIdempotencyRepository()
		return deps, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	deps.Store = store
	deps.Orders = postgres.NewOrderRepository(store)
	deps.Outbox = postgres.NewOutboxRepository(store)
	deps.Idempotency = postgres.NewIdempotencyRepository(store)
	logger.Info("postgres storage initialized")

	return deps, nil
}

// Close освобождает ресурсы зависимостей.
func (d *Dependencies) Close() {
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
