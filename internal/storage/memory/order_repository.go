package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
	}
}

// Create назначает заказу идентификатор и сохраняет копию записи.
func (r *orderRepositoryInMemory) Create(order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order.ID = uuid.NewString()
	order.Items = cloneItems(order.Items)
	r.items[order.ID] = order
	return order, nil
}

// Get возвращает заказ без фильтра по владельцу или ErrOrderNotFound.
func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order.Items = cloneItems(order.Items)
	return order, nil
}

// GetForUser возвращает заказ владельца; чужой заказ неотличим от отсутствующего.
func (r *orderRepositoryInMemory) GetForUser(id string, userID int64) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok || order.UserID != userID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order.Items = cloneItems(order.Items)
	return order, nil
}

// ListByUser возвращает заказы пользователя от новых к старым.
func (r *orderRepositoryInMemory) ListByUser(userID int64) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range r.items {
		if order.UserID != userID {
			continue
		}
		order.Items = cloneItems(order.Items)
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// UpdateStatus меняет статус и updated_at, возвращая обновлённую запись.
func (r *orderRepositoryInMemory) UpdateStatus(id string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	order.Status = status
	order.UpdatedAt = updatedAt
	r.items[id] = order

	order.Items = cloneItems(order.Items)
	return order, nil
}

// cloneItems копирует позиции, чтобы избежать непредсказуемых мутаций извне.
func cloneItems(items []domain.OrderItem) []domain.OrderItem {
	if items == nil {
		return nil
	}
	cloned := make([]domain.OrderItem, len(items))
	copy(cloned, items)
	return cloned
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
