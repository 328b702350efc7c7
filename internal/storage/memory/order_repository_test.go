package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	"github.com/vladislavdragonenkov/shop-orders/internal/storage/memory"
)

func newOrder(userID int64, createdAt time.Time) domain.Order {
	return domain.Order{
		UserID: userID,
		Items: []domain.OrderItem{
			{ProductID: 7, ProductName: "Widget", Qty: 2, Price: decimal.RequireFromString("9.99")},
		},
		ShippingAddress: domain.ShippingAddress{
			Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62704", Country: "US",
		},
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.RequireFromString("19.98"),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestOrderRepository_CreateAssignsID(t *testing.T) {
	repo := memory.NewOrderRepository()

	created, err := repo.Create(newOrder(42, time.Now().UTC()))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected repository to assign an id")
	}

	stored, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.UserID != 42 {
		t.Fatalf("expected user 42, got %d", stored.UserID)
	}
}

func TestOrderRepository_GetForUserScopesOwnership(t *testing.T) {
	repo := memory.NewOrderRepository()
	created, err := repo.Create(newOrder(42, time.Now().UTC()))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := repo.GetForUser(created.ID, 42); err != nil {
		t.Fatalf("owner get failed: %v", err)
	}

	// Чужой заказ выглядит как отсутствующий.
	if _, err := repo.GetForUser(created.ID, 777); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for foreign user, got %v", err)
	}
	if _, err := repo.GetForUser("missing", 42); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for missing id, got %v", err)
	}
}

func TestOrderRepository_ListByUserNewestFirst(t *testing.T) {
	repo := memory.NewOrderRepository()
	base := time.Now().UTC()

	older, err := repo.Create(newOrder(42, base.Add(-time.Hour)))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	newer, err := repo.Create(newOrder(42, base))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := repo.Create(newOrder(777, base)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	orders, err := repo.ListByUser(42)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].ID != newer.ID || orders[1].ID != older.ID {
		t.Fatalf("expected newest-first ordering, got %s then %s", orders[0].ID, orders[1].ID)
	}
}

func TestOrderRepository_ListByUserEmpty(t *testing.T) {
	repo := memory.NewOrderRepository()

	orders, err := repo.ListByUser(42)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected empty list, got %d orders", len(orders))
	}
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	repo := memory.NewOrderRepository()
	created, err := repo.Create(newOrder(42, time.Now().UTC()))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updatedAt := time.Now().UTC().Add(time.Minute)
	updated, err := repo.UpdateStatus(created.ID, domain.OrderStatusCancelled, updatedAt)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if updated.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}
	if !updated.UpdatedAt.Equal(updatedAt) {
		t.Fatalf("expected updated_at %v, got %v", updatedAt, updated.UpdatedAt)
	}

	if _, err := repo.UpdateStatus("missing", domain.OrderStatusShipped, updatedAt); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_StoredOrderIsIsolated(t *testing.T) {
	repo := memory.NewOrderRepository()
	created, err := repo.Create(newOrder(42, time.Now().UTC()))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	created.Items[0].ProductName = "Mutated"

	stored, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Items[0].ProductName != "Widget" {
		t.Fatalf("stored order mutated from outside: %q", stored.Items[0].ProductName)
	}
}
