package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop-orders/internal/catalog"
	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	"github.com/vladislavdragonenkov/shop-orders/internal/service/order"
	"github.com/vladislavdragonenkov/shop-orders/internal/storage/memory"
)

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger.WithField("component", "test")
}

// recordingRepo считает вставки поверх обычного репозитория.
type recordingRepo struct {
	domain.OrderRepository
	creates int
}

func (r *recordingRepo) Create(o domain.Order) (domain.Order, error) {
	r.creates++
	return r.OrderRepository.Create(o)
}

// testClock выдаёт монотонно растущее время с шагом в секунду.
type testClock struct {
	current time.Time
}

func (c *testClock) Now() time.Time {
	c.current = c.current.Add(time.Second)
	return c.current
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture() (*order.Service, *recordingRepo, *catalog.MockClient, *testClock) {
	repo := &recordingRepo{OrderRepository: memory.NewOrderRepository()}
	mock := catalog.NewMockClient()
	clock := &testClock{current: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	svc := order.NewService(repo, mock,
		order.WithLogger(loggerForTests()),
		order.WithClock(clock.Now),
	)
	return svc, repo, mock, clock
}

func testAddress() domain.ShippingAddress {
	return domain.ShippingAddress{Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62704"}
}

func TestCreateOrder_Ok(t *testing.T) {
	svc, _, mock, _ := newFixture()
	mock.SetProduct(domain.ProductSnapshot{ID: 7, Name: "Widget", Price: price("9.99"), Stock: 10})

	created, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 7, Qty: 2}}, testAddress(), "leave at the door")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if created.ID == "" {
		t.Fatal("expected assigned order id")
	}
	if created.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending, got %s", created.Status)
	}
	if !created.TotalAmount.Equal(price("19.98")) {
		t.Fatalf("expected total 19.98, got %s", created.TotalAmount)
	}
	if len(created.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(created.Items))
	}
	item := created.Items[0]
	if item.ProductName != "Widget" || item.Qty != 2 || !item.Price.Equal(price("9.99")) {
		t.Fatalf("unexpected item snapshot: %+v", item)
	}
	if created.ShippingAddress.Country != domain.DefaultCountry {
		t.Fatalf("expected default country, got %q", created.ShippingAddress.Country)
	}
	if created.Notes != "leave at the door" {
		t.Fatalf("unexpected notes: %q", created.Notes)
	}
}

func TestCreateOrder_SnapshotSurvivesCatalogChanges(t *testing.T) {
	svc, _, mock, _ := newFixture()
	mock.SetProduct(domain.ProductSnapshot{ID: 7, Name: "Widget", Price: price("9.99"), Stock: 10})

	created, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 7, Qty: 1}}, testAddress(), "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Цена в каталоге меняется после создания заказа.
	mock.SetProduct(domain.ProductSnapshot{ID: 7, Name: "Widget v2", Price: price("99.99"), Stock: 10})

	stored, err := svc.GetOrderByID(context.Background(), created.ID, 42)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !stored.Items[0].Price.Equal(price("9.99")) || stored.Items[0].ProductName != "Widget" {
		t.Fatalf("snapshot must not follow catalog changes: %+v", stored.Items[0])
	}
	if !stored.TotalAmount.Equal(price("9.99")) {
		t.Fatalf("total must stay 9.99, got %s", stored.TotalAmount)
	}
}

func TestCreateOrder_RoundsTotal(t *testing.T) {
	svc, _, mock, _ := newFixture()
	// 3 * 0.115 = 0.345 -> 0.35 (half away from zero).
	mock.SetProduct(domain.ProductSnapshot{ID: 1, Name: "Bolt", Price: price("0.115"), Stock: 100})

	created, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 1, Qty: 3}}, testAddress(), "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !created.TotalAmount.Equal(price("0.35")) {
		t.Fatalf("expected rounded total 0.35, got %s", created.TotalAmount)
	}
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	svc, repo, mock, _ := newFixture()
	mock.SetProduct(domain.ProductSnapshot{ID: 7, Name: "Widget", Price: price("9.99"), Stock: 10})

	_, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 7, Qty: 1}, {ProductID: 99, Qty: 1}}, testAddress(), "")

	var notFound *domain.ProductNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ProductNotFoundError, got %v", err)
	}
	if notFound.ProductID != 99 {
		t.Fatalf("expected failing product 99, got %d", notFound.ProductID)
	}
	if repo.creates != 0 {
		t.Fatalf("no order must be persisted, got %d inserts", repo.creates)
	}
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	svc, repo, mock, _ := newFixture()
	mock.SetProduct(domain.ProductSnapshot{ID: 7, Name: "Widget", Price: price("9.99"), Stock: 10})

	_, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 7, Qty: 20}}, testAddress(), "")

	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.ProductID != 7 || insufficient.Available != 10 || insufficient.Requested != 20 {
		t.Fatalf("unexpected stock error details: %+v", insufficient)
	}
	if repo.creates != 0 {
		t.Fatalf("no order must be persisted, got %d inserts", repo.creates)
	}
}

func TestCreateOrder_FailsFastInRequestOrder(t *testing.T) {
	svc, repo, mock, _ := newFixture()
	// Первый товар отсутствует, второй существует — до него дело не доходит.
	mock.SetProduct(domain.ProductSnapshot{ID: 8, Name: "Gadget", Price: price("5.00"), Stock: 10})

	_, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 1, Qty: 1}, {ProductID: 8, Qty: 1}}, testAddress(), "")

	var notFound *domain.ProductNotFoundError
	if !errors.As(err, &notFound) || notFound.ProductID != 1 {
		t.Fatalf("expected first failing product, got %v", err)
	}
	if len(mock.LookupCalls) != 1 || mock.LookupCalls[0] != 1 {
		t.Fatalf("expected lookups to stop at first failure, got %v", mock.LookupCalls)
	}
	if repo.creates != 0 {
		t.Fatalf("no order must be persisted, got %d inserts", repo.creates)
	}
}

func TestCreateOrder_RejectsNonPositiveQtyBeforeLookups(t *testing.T) {
	svc, repo, mock, _ := newFixture()
	mock.SetProduct(domain.ProductSnapshot{ID: 7, Name: "Widget", Price: price("9.99"), Stock: 10})

	_, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 7, Qty: 1}, {ProductID: 7, Qty: 0}}, testAddress(), "")
	if !errors.Is(err, domain.ErrItemQtyInvalid) {
		t.Fatalf("expected ErrItemQtyInvalid, got %v", err)
	}
	if len(mock.LookupCalls) != 0 {
		t.Fatalf("quantities must be validated before any lookup, got calls %v", mock.LookupCalls)
	}
	if repo.creates != 0 {
		t.Fatalf("no order must be persisted, got %d inserts", repo.creates)
	}
}

func TestCreateOrder_CatalogUnavailableAbortsCreation(t *testing.T) {
	svc, repo, mock, _ := newFixture()
	mock.LookupErr = &domain.CatalogUnavailableError{ProductID: 7, Err: errors.New("connection refused")}

	_, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 7, Qty: 1}}, testAddress(), "")

	var unavailable *domain.CatalogUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected CatalogUnavailableError, got %v", err)
	}
	if repo.creates != 0 {
		t.Fatalf("no order must be persisted, got %d inserts", repo.creates)
	}
}

func TestCreateOrder_MalformedRequest(t *testing.T) {
	svc, _, _, _ := newFixture()

	if _, err := svc.CreateOrder(context.Background(), 0, []order.RequestedItem{{ProductID: 7, Qty: 1}}, testAddress(), ""); !errors.Is(err, domain.ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}
	if _, err := svc.CreateOrder(context.Background(), 42, nil, testAddress(), ""); !errors.Is(err, domain.ErrItemsRequired) {
		t.Fatalf("expected ErrItemsRequired, got %v", err)
	}
}

func TestCreateOrder_EnqueuesOutboxEvent(t *testing.T) {
	repo := memory.NewOrderRepository()
	outbox := memory.NewOutboxRepository()
	mock := catalog.NewMockClient()
	mock.SetProduct(domain.ProductSnapshot{ID: 7, Name: "Widget", Price: price("9.99"), Stock: 10})

	svc := order.NewService(repo, mock,
		order.WithLogger(loggerForTests()),
		order.WithOutbox(outbox),
	)

	created, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 7, Qty: 2}}, testAddress(), "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	pending := outbox.AllPending()
	if len(pending) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(pending))
	}
	if pending[0].EventType != order.EventTypeOrderCreated || pending[0].AggregateID != created.ID {
		t.Fatalf("unexpected outbox event: %+v", pending[0])
	}
}

func TestCancelOrder_Pending(t *testing.T) {
	svc, _, mock, _ := newFixture()
	mock.SetProduct(domain.ProductSnapshot{ID: 7, Name: "Widget", Price: price("9.99"), Stock: 10})

	created, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 7, Qty: 1}}, testAddress(), "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cancelled, err := svc.CancelOrder(context.Background(), created.ID, 42)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if !cancelled.UpdatedAt.After(created.CreatedAt) {
		t.Fatalf("expected updated_at %v to be after created_at %v", cancelled.UpdatedAt, created.CreatedAt)
	}
}

func TestCancelOrder_ShippedIsInvalidTransition(t *testing.T) {
	svc, _, mock, _ := newFixture()
	mock.SetProduct(domain.ProductSnapshot{ID: 7, Name: "Widget", Price: price("9.99"), Stock: 10})

	created, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 7, Qty: 1}}, testAddress(), "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(context.Background(), created.ID, domain.OrderStatusShipped); err != nil {
		t.Fatalf("status update failed: %v", err)
	}

	_, err = svc.CancelOrder(context.Background(), created.ID, 42)
	var invalid *domain.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if invalid.From != domain.OrderStatusShipped {
		t.Fatalf("expected blocking status shipped, got %s", invalid.From)
	}

	// Статус в хранилище не изменился.
	stored, err := svc.GetOrderByID(context.Background(), created.ID, 42)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Status != domain.OrderStatusShipped {
		t.Fatalf("stored status must stay shipped, got %s", stored.Status)
	}
}

func TestCancelOrder_ForeignOrderLooksMissing(t *testing.T) {
	svc, _, mock, _ := newFixture()
	mock.SetProduct(domain.ProductSnapshot{ID: 7, Name: "Widget", Price: price("9.99"), Stock: 10})

	created, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 7, Qty: 1}}, testAddress(), "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.CancelOrder(context.Background(), created.ID, 777); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for foreign user, got %v", err)
	}
}

func TestGetOrderByID_ForeignOrderLooksMissing(t *testing.T) {
	svc, _, mock, _ := newFixture()
	mock.SetProduct(domain.ProductSnapshot{ID: 7, Name: "Widget", Price: price("9.99"), Stock: 10})

	created, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 7, Qty: 1}}, testAddress(), "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.GetOrderByID(context.Background(), created.ID, 777); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for foreign user, got %v", err)
	}
}

func TestGetUserOrders_EmptyIsNotAnError(t *testing.T) {
	svc, _, _, _ := newFixture()

	orders, err := svc.GetUserOrders(context.Background(), 42)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected empty list, got %d", len(orders))
	}
}

func TestGetUserOrders_NewestFirst(t *testing.T) {
	svc, _, mock, _ := newFixture()
	mock.SetProduct(domain.ProductSnapshot{ID: 7, Name: "Widget", Price: price("9.99"), Stock: 10})

	first, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 7, Qty: 1}}, testAddress(), "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 7, Qty: 2}}, testAddress(), "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	orders, err := svc.GetUserOrders(context.Background(), 42)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].ID != second.ID || orders[1].ID != first.ID {
		t.Fatalf("expected newest-first ordering")
	}
}

func TestUpdateOrderStatus_PermissiveAllowsAnyTarget(t *testing.T) {
	svc, _, mock, _ := newFixture()
	mock.SetProduct(domain.ProductSnapshot{ID: 7, Name: "Widget", Price: price("9.99"), Stock: 10})

	created, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 7, Qty: 1}}, testAddress(), "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Переход вне графа переходов: pending -> delivered.
	updated, err := svc.UpdateOrderStatus(context.Background(), created.ID, domain.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("permissive update failed: %v", err)
	}
	if updated.Status != domain.OrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", updated.Status)
	}
}

func TestUpdateOrderStatus_SameStatusIsNoop(t *testing.T) {
	svc, _, mock, _ := newFixture()
	mock.SetProduct(domain.ProductSnapshot{ID: 7, Name: "Widget", Price: price("9.99"), Stock: 10})

	created, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 7, Qty: 1}}, testAddress(), "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Перевод заказа в его текущий статус — успешный no-op, а не not-found.
	updated, err := svc.UpdateOrderStatus(context.Background(), created.ID, domain.OrderStatusPending)
	if err != nil {
		t.Fatalf("same-status update failed: %v", err)
	}
	if updated.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}
}

func TestUpdateOrderStatus_StrictPolicyValidatesGraph(t *testing.T) {
	repo := memory.NewOrderRepository()
	mock := catalog.NewMockClient()
	mock.SetProduct(domain.ProductSnapshot{ID: 7, Name: "Widget", Price: price("9.99"), Stock: 10})

	svc := order.NewService(repo, mock,
		order.WithLogger(loggerForTests()),
		order.WithTransitionPolicy(domain.StrictTransitionPolicy{}),
	)

	created, err := svc.CreateOrder(context.Background(), 42,
		[]order.RequestedItem{{ProductID: 7, Qty: 1}}, testAddress(), "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.UpdateOrderStatus(context.Background(), created.ID, domain.OrderStatusDelivered); err == nil {
		t.Fatal("expected strict policy to reject pending -> delivered")
	}
	if _, err := svc.UpdateOrderStatus(context.Background(), created.ID, domain.OrderStatusConfirmed); err != nil {
		t.Fatalf("expected graph transition to pass: %v", err)
	}
}

func TestUpdateOrderStatus_UnknownOrder(t *testing.T) {
	svc, _, _, _ := newFixture()

	if _, err := svc.UpdateOrderStatus(context.Background(), "missing", domain.OrderStatusConfirmed); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestUpdateOrderStatus_UnknownStatus(t *testing.T) {
	svc, _, _, _ := newFixture()

	if _, err := svc.UpdateOrderStatus(context.Background(), "any", domain.OrderStatus("archived")); !errors.Is(err, domain.ErrStatusInvalid) {
		t.Fatalf("expected ErrStatusInvalid, got %v", err)
	}
}
