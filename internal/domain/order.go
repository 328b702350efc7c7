package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCountry подставляется в адрес доставки, если страна не указана.
const DefaultCountry = "US"

// OrderItem представляет одну позицию заказа. Название и цена фиксируются
// по данным каталога в момент создания заказа и больше не пересчитываются.
type OrderItem struct {
	// ProductID — идентификатор товара в каталоге.
	ProductID int64
	// ProductName — название товара на момент оформления.
	ProductName string
	// Qty — количество единиц товара.
	Qty int32
	// Price — цена за единицу на момент оформления.
	Price decimal.Decimal
}

// Subtotal возвращает стоимость позиции: qty * price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt32(i.Qty))
}

// ShippingAddress — адрес доставки заказа. Неизменяем после создания.
type ShippingAddress struct {
	Street  string
	City    string
	State   string
	ZipCode string
	Country string
}

// Normalize подставляет страну по умолчанию, если она не указана.
func (a ShippingAddress) Normalize() ShippingAddress {
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	return a
}

// Order агрегирует состояние заказа пользователя и его позиции.
type Order struct {
	// ID назначается репозиторием при сохранении.
	ID string
	// UserID — владелец заказа; все чтения и отмена ограничены им.
	UserID int64
	// Items — позиции в порядке добавления.
	Items []OrderItem
	// ShippingAddress — адрес доставки.
	ShippingAddress ShippingAddress
	// Status — текущий статус жизненного цикла.
	Status OrderStatus
	// TotalAmount — сумма subtotal всех позиций, округлённая до 2 знаков.
	TotalAmount decimal.Decimal
	// Notes — опциональный комментарий покупателя.
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID <= 0 {
		errs = append(errs, ErrUserRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrStatusInvalid)
	}
	if o.TotalAmount.IsNegative() {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	calc := decimal.Zero
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.Price.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc = calc.Add(item.Subtotal())
	}
	if !calc.Round(2).Equal(o.TotalAmount) {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
