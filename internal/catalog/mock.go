package catalog

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

// MockClient — конфигурируемая заглушка CatalogClient для тестов.
type MockClient struct {
	mu sync.Mutex

	// Products — снимки, которые вернёт Lookup по идентификатору.
	Products map[int64]domain.ProductSnapshot
	// LookupErr подменяет результат Lookup для всех товаров, если задана.
	LookupErr error

	// LookupCalls фиксирует порядок запрошенных идентификаторов.
	LookupCalls []int64
}

// NewMockClient возвращает mock без товаров; отсутствующие идентификаторы
// отдают ProductNotFoundError.
func NewMockClient() *MockClient {
	return &MockClient{Products: make(map[int64]domain.ProductSnapshot)}
}

// SetProduct регистрирует снимок товара.
func (m *MockClient) SetProduct(snapshot domain.ProductSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Products[snapshot.ID] = snapshot
}

// Lookup возвращает заранее настроенный снимок или ошибку и считает вызовы.
func (m *MockClient) Lookup(_ context.Context, productID int64) (domain.ProductSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LookupCalls = append(m.LookupCalls, productID)

	if m.LookupErr != nil {
		return domain.ProductSnapshot{}, m.LookupErr
	}
	snapshot, ok := m.Products[productID]
	if !ok {
		return domain.ProductSnapshot{}, &domain.ProductNotFoundError{ProductID: productID}
	}
	return snapshot, nil
}

var _ domain.CatalogClient = (*MockClient)(nil)
