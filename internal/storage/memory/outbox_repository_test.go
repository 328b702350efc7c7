package memory_test

import (
	"testing"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	"github.com/vladislavdragonenkov/shop-orders/internal/storage/memory"
)

func TestOutboxRepository_EnqueuePull(t *testing.T) {
	repo := memory.NewOutboxRepository()

	msg, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "order.created",
		Payload:       []byte(`{"order_id":"order-1"}`),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if msg.ID == "" {
		t.Fatal("expected enqueue to assign an id")
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != msg.ID {
		t.Fatalf("expected one pending message %s, got %v", msg.ID, pending)
	}
}

func TestOutboxRepository_MarkSent(t *testing.T) {
	repo := memory.NewOutboxRepository()
	msg, err := repo.Enqueue(domain.OutboxMessage{EventType: "order.created"})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if err := repo.MarkSent(msg.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending messages, got %d", len(pending))
	}
}

func TestOutboxRepository_Stats(t *testing.T) {
	repo := memory.NewOutboxRepository()

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("expected empty backlog, got %d", stats.PendingCount)
	}

	if _, err := repo.Enqueue(domain.OutboxMessage{EventType: "order.created"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := repo.Enqueue(domain.OutboxMessage{EventType: "order.cancelled"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	stats, err = repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 2 {
		t.Fatalf("expected 2 pending, got %d", stats.PendingCount)
	}
	if stats.OldestPendingAt.IsZero() {
		t.Fatal("expected oldest pending timestamp to be set")
	}
}

func TestOutboxRepository_MarkUnknownID(t *testing.T) {
	repo := memory.NewOutboxRepository()

	if err := repo.MarkSent("missing"); err == nil {
		t.Fatal("expected error for unknown id")
	}
	if err := repo.MarkFailed("missing"); err == nil {
		t.Fatal("expected error for unknown id")
	}
}
