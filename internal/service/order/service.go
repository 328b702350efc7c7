package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	"github.com/vladislavdragonenkov/shop-orders/internal/metrics"
)

// RequestedItem — позиция из запроса на создание заказа.
type RequestedItem struct {
	ProductID int64
	Qty       int32
}

// Options задаёт необязательные зависимости сервиса.
type Options struct {
	Outbox  domain.OutboxRepository
	Policy  domain.TransitionPolicy
	Metrics *metrics.OrderMetrics
	Logger  *log.Entry
	Clock   func() time.Time
}

// Option настраивает Service.
type Option func(*Options)

// WithOutbox включает запись интеграционных событий в transactional outbox.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(opts *Options) {
		opts.Outbox = outbox
	}
}

// WithTransitionPolicy задаёт политику административной смены статусов.
func WithTransitionPolicy(policy domain.TransitionPolicy) Option {
	return func(opts *Options) {
		opts.Policy = policy
	}
}

// WithMetrics включает метрики жизненного цикла заказов.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithClock задаёт источник времени (используется в тестах).
func WithClock(clock func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// Service — ядро обработки заказов: валидация позиций по каталогу, расчёт
// суммы, сохранение и переходы статусов.
type Service struct {
	repo    domain.OrderRepository
	catalog domain.CatalogClient
	outbox  domain.OutboxRepository
	policy  domain.TransitionPolicy
	metrics *metrics.OrderMetrics
	logger  *log.Entry
	now     func() time.Time
}

// NewService конструирует сервис заказов. По умолчанию административные смены
// статуса не сверяются с графом переходов (поведение исходной системы).
func NewService(repo domain.OrderRepository, catalog domain.CatalogClient, options ...Option) *Service {
	opts := Options{
		Policy: domain.PermissiveTransitionPolicy{},
		Clock:  func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}

	return &Service{
		repo:    repo,
		catalog: catalog,
		outbox:  opts.Outbox,
		policy:  opts.Policy,
		metrics: opts.Metrics,
		logger:  logger,
		now:     opts.Clock,
	}
}

// CreateOrder проверяет каждую позицию по каталогу в порядке запроса,
// фиксирует снимки названия и цены, считает сумму и сохраняет заказ со
// статусом pending. Падает на первой же проблемной позиции; частичные заказы
// не сохраняются. Сумма округляется до 2 знаков (half away from zero).
//
// Между проверкой остатка и сохранением заказа нет резервирования: два
// конкурентных заказа могут пройти проверку по одному и тому же остатку.
func (s *Service) CreateOrder(
	ctx context.Context,
	userID int64,
	requested []RequestedItem,
	address domain.ShippingAddress,
	notes string,
) (domain.Order, error) {
	started := s.now()

	if userID <= 0 {
		return domain.Order{}, domain.ErrUserRequired
	}
	if len(requested) == 0 {
		return domain.Order{}, domain.ErrItemsRequired
	}
	// Количества проверяются до любых обращений к каталогу.
	for _, item := range requested {
		if item.Qty <= 0 {
			s.metrics.CreateFailed("malformed_request")
			return domain.Order{}, domain.ErrItemQtyInvalid
		}
	}

	items := make([]domain.OrderItem, 0, len(requested))
	total := decimal.Zero
	for _, item := range requested {
		snapshot, err := s.lookupProduct(ctx, item.ProductID)
		if err != nil {
			s.metrics.CreateFailed(createFailureReason(err))
			return domain.Order{}, err
		}

		if snapshot.Stock < item.Qty {
			s.metrics.CreateFailed("insufficient_stock")
			return domain.Order{}, &domain.InsufficientStockError{
				ProductID:   item.ProductID,
				ProductName: snapshot.Name,
				Available:   snapshot.Stock,
				Requested:   item.Qty,
			}
		}

		orderItem := domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: snapshot.Name,
			Qty:         item.Qty,
			Price:       snapshot.Price,
		}
		items = append(items, orderItem)
		total = total.Add(orderItem.Subtotal())
	}

	now := s.now()
	order := domain.Order{
		UserID:          userID,
		Items:           items,
		ShippingAddress: address.Normalize(),
		Status:          domain.OrderStatusPending,
		TotalAmount:     total.Round(2),
		Notes:           notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		s.metrics.CreateFailed("malformed_request")
		return domain.Order{}, errors.Join(errs...)
	}

	created, err := s.repo.Create(order)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to persist order")
		s.metrics.CreateFailed("repository")
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.enqueueEvent(EventTypeOrderCreated, created)
	s.metrics.OrderCreated(s.now().Sub(started))

	s.logger.WithFields(log.Fields{
		"order_id": created.ID,
		"user_id":  created.UserID,
		"total":    created.TotalAmount.String(),
		"items":    len(created.Items),
	}).Info("order created")

	return created, nil
}

// GetUserOrders возвращает заказы пользователя от новых к старым.
func (s *Service) GetUserOrders(_ context.Context, userID int64) ([]domain.Order, error) {
	if userID <= 0 {
		return nil, domain.ErrUserRequired
	}

	orders, err := s.repo.ListByUser(userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to list orders")
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetOrderByID возвращает заказ пользователя. Чужой заказ неотличим от
// отсутствующего: в обоих случаях ErrOrderNotFound.
func (s *Service) GetOrderByID(_ context.Context, orderID string, userID int64) (domain.Order, error) {
	order, err := s.repo.GetForUser(orderID, userID)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.Order{}, err
		}
		s.logger.WithError(err).WithField("order_id", orderID).Error("failed to load order")
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// CancelOrder переводит заказ владельца в cancelled. Разрешено только из
// pending и confirmed; иначе InvalidTransitionError с текущим статусом.
func (s *Service) CancelOrder(_ context.Context, orderID string, userID int64) (domain.Order, error) {
	order, err := s.repo.GetForUser(orderID, userID)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.Order{}, err
		}
		s.logger.WithError(err).WithField("order_id", orderID).Error("failed to load order for cancel")
		return domain.Order{}, fmt.Errorf("cancel order: %w", err)
	}

	if !order.Status.Cancellable() {
		return domain.Order{}, &domain.InvalidTransitionError{
			From: order.Status,
			To:   domain.OrderStatusCancelled,
		}
	}

	updated, err := s.repo.UpdateStatus(order.ID, domain.OrderStatusCancelled, s.now())
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.Order{}, err
		}
		s.logger.WithError(err).WithField("order_id", orderID).Error("failed to cancel order")
		return domain.Order{}, fmt.Errorf("cancel order: %w", err)
	}

	s.enqueueEvent(EventTypeOrderCancelled, updated)
	s.metrics.OrderCancelled()

	s.logger.WithFields(log.Fields{
		"order_id": updated.ID,
		"user_id":  updated.UserID,
	}).Info("order cancelled")

	return updated, nil
}

// UpdateOrderStatus — административная смена статуса без проверки владельца:
// вызывающий уже авторизован на уровне транспорта. Допустимость перехода
// определяется настроенной TransitionPolicy.
func (s *Service) UpdateOrderStatus(_ context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, domain.ErrStatusInvalid
	}

	order, err := s.repo.Get(orderID)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.Order{}, err
		}
		s.logger.WithError(err).WithField("order_id", orderID).Error("failed to load order for status update")
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}

	if err := s.policy.Allow(order.Status, status); err != nil {
		return domain.Order{}, err
	}

	updated, err := s.repo.UpdateStatus(order.ID, status, s.now())
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.Order{}, err
		}
		s.logger.WithError(err).WithField("order_id", orderID).Error("failed to update order status")
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}

	s.enqueueEvent(EventTypeOrderStatusChanged, updated)
	s.metrics.StatusUpdated()

	s.logger.WithFields(log.Fields{
		"order_id": updated.ID,
		"status":   updated.Status,
	}).Info("order status updated")

	return updated, nil
}

// lookupProduct обращается к каталогу и измеряет длительность запроса.
func (s *Service) lookupProduct(ctx context.Context, productID int64) (domain.ProductSnapshot, error) {
	started := time.Now()
	snapshot, err := s.catalog.Lookup(ctx, productID)
	s.metrics.CatalogLookup(time.Since(started), err)
	if err != nil {
		s.logger.WithError(err).WithField("product_id", productID).Warn("catalog lookup failed")
	}
	return snapshot, err
}

// enqueueEvent пишет интеграционное событие в outbox. Ошибка записи не
// откатывает уже сохранённый заказ и только логируется.
func (s *Service) enqueueEvent(eventType string, order domain.Order) {
	if s.outbox == nil {
		return
	}

	msg, err := newOrderEvent(eventType, order)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to encode order event")
		return
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":   order.ID,
			"event_type": eventType,
		}).Warn("failed to enqueue order event")
	}
}

// createFailureReason переводит ошибку создания в label метрики.
func createFailureReason(err error) string {
	var notFound *domain.ProductNotFoundError
	var unavailable *domain.CatalogUnavailableError
	switch {
	case errors.As(err, &notFound):
		return "product_not_found"
	case errors.As(err, &unavailable):
		return "catalog_unavailable"
	default:
		return "lookup_failed"
	}
}
