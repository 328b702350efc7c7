package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ProductSnapshot — состояние товара в каталоге на момент запроса.
type ProductSnapshot struct {
	ID    int64
	Name  string
	Price decimal.Decimal
	Stock int32
}

// CatalogClient описывает взаимодействие с внешним сервисом каталога.
type CatalogClient interface {
	// Lookup возвращает снимок товара. Отсутствие товара — ProductNotFoundError,
	// любая транспортная проблема или некорректный ответ — CatalogUnavailableError.
	Lookup(ctx context.Context, productID int64) (ProductSnapshot, error)
}

// OutboxMessage хранит данные для публикуемого интеграционного события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	// Delete снимает запись по ключу; отсутствие записи — не ошибка.
	Delete(key string) error
	DeleteExpired(before time.Time, limit int) (int, error)
}
