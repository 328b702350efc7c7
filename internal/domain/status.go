package domain

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан и ожидает подтверждения.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed — заказ подтверждён.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusProcessing — заказ собирается.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен; терминальный статус.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён; терминальный статус.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// transitions задаёт граф допустимых переходов статусов.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal сообщает, разрешены ли дальнейшие переходы из статуса.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Cancellable сообщает, может ли владелец отменить заказ в этом статусе.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

// CanTransition проверяет переход по графу жизненного цикла.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionPolicy определяет, какие смены статуса разрешены административному
// пути. Пользовательская отмена всегда проверяется через Cancellable и политику
// не консультирует.
type TransitionPolicy interface {
	// Allow возвращает nil, если переход from -> to разрешён.
	Allow(from, to OrderStatus) error
}

// PermissiveTransitionPolicy разрешает перевод заказа в любой корректный статус,
// не сверяясь с графом переходов. Это поведение исходной системы.
type PermissiveTransitionPolicy struct{}

// Allow отклоняет только неизвестные статусы.
func (PermissiveTransitionPolicy) Allow(_, to OrderStatus) error {
	if !to.Valid() {
		return ErrStatusInvalid
	}
	return nil
}

// StrictTransitionPolicy сверяет каждый переход с графом жизненного цикла.
type StrictTransitionPolicy struct{}

// Allow возвращает InvalidTransitionError для переходов вне графа.
func (StrictTransitionPolicy) Allow(from, to OrderStatus) error {
	if !to.Valid() {
		return ErrStatusInvalid
	}
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

var (
	_ TransitionPolicy = PermissiveTransitionPolicy{}
	_ TransitionPolicy = StrictTransitionPolicy{}
)
