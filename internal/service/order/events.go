package order

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

// Типы интеграционных событий заказов.
const (
	EventTypeOrderCreated       = "order.created"
	EventTypeOrderCancelled     = "order.cancelled"
	EventTypeOrderStatusChanged = "order.status_changed"

	aggregateTypeOrder = "order"
)

// orderEventPayload — тело интеграционного события жизненного цикла заказа.
type orderEventPayload struct {
	OrderID     string          `json:"order_id"`
	UserID      int64           `json:"user_id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// newOrderEvent собирает outbox-сообщение по текущему состоянию заказа.
func newOrderEvent(eventType string, order domain.Order) (domain.OutboxMessage, error) {
	payload, err := json.Marshal(orderEventPayload{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		OccurredAt:  order.UpdatedAt,
	})
	if err != nil {
		return domain.OutboxMessage{}, err
	}

	return domain.OutboxMessage{
		AggregateType: aggregateTypeOrder,
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
