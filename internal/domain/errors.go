package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("total amount must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order total does not match items sum")
	// Ошибка неизвестного статуса заказа.
	ErrStatusInvalid = errors.New("unknown order status")
	// ErrOrderNotFound возвращается, если заказ не найден или принадлежит
	// другому пользователю. Чужой заказ намеренно неотличим от отсутствующего.
	ErrOrderNotFound = errors.New("order not found")
)

// ProductNotFoundError означает, что каталог явно сообщил об отсутствии товара.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// InsufficientStockError означает, что доступный остаток меньше запрошенного количества.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Available   int32
	Requested   int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: available %d, requested %d",
		e.ProductName, e.Available, e.Requested)
}

// CatalogUnavailableError означает транспортную ошибку, таймаут или некорректный
// ответ каталога. Не то же самое, что отсутствие товара.
type CatalogUnavailableError struct {
	ProductID int64
	Err       error
}

func (e *CatalogUnavailableError) Error() string {
	return fmt.Sprintf("catalog lookup for product %d failed: %v", e.ProductID, e.Err)
}

func (e *CatalogUnavailableError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError означает попытку недопустимой смены статуса.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

// IsNotFound проверяет, является ли ошибка отсутствием заказа.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}

// IsMalformedRequest проверяет, относится ли ошибка к некорректному запросу.
func IsMalformedRequest(err error) bool {
	return errors.Is(err, ErrUserRequired) ||
		errors.Is(err, ErrItemsRequired) ||
		errors.Is(err, ErrItemQtyInvalid) ||
		errors.Is(err, ErrItemPriceInvalid) ||
		errors.Is(err, ErrStatusInvalid)
}
