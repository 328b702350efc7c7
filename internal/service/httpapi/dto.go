package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	"github.com/vladislavdragonenkov/shop-orders/internal/service/order"
)

// createOrderRequest — тело POST /api/orders.
type createOrderRequest struct {
	Items           []createOrderItem `json:"items"`
	ShippingAddress addressPayload    `json:"shipping_address"`
	Notes           string            `json:"notes"`
}

type createOrderItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

// updateStatusRequest — тело PUT /api/orders/{orderID}/status.
type updateStatusRequest struct {
	Status string `json:"status"`
}

type addressPayload struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

type orderItemPayload struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int32           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type orderPayload struct {
	ID              string             `json:"id"`
	UserID          int64              `json:"user_id"`
	Items           []orderItemPayload `json:"items"`
	ShippingAddress addressPayload     `json:"shipping_address"`
	Status          string             `json:"status"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	Notes           string             `json:"notes,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func (r createOrderRequest) requestedItems() []order.RequestedItem {
	items := make([]order.RequestedItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, order.RequestedItem{ProductID: item.ProductID, Qty: item.Quantity})
	}
	return items
}

func (a addressPayload) toDomain() domain.ShippingAddress {
	return domain.ShippingAddress{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		ZipCode: a.ZipCode,
		Country: a.Country,
	}
}

func toOrderPayload(o domain.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemPayload{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Qty,
			Price:       item.Price,
		})
	}
	return orderPayload{
		ID:     o.ID,
		UserID: o.UserID,
		Items:  items,
		ShippingAddress: addressPayload{
			Street:  o.ShippingAddress.Street,
			City:    o.ShippingAddress.City,
			State:   o.ShippingAddress.State,
			ZipCode: o.ShippingAddress.ZipCode,
			Country: o.ShippingAddress.Country,
		},
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		Notes:       o.Notes,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func toOrderPayloads(orders []domain.Order) []orderPayload {
	payloads := make([]orderPayload, 0, len(orders))
	for _, o := range orders {
		payloads = append(payloads, toOrderPayload(o))
	}
	return payloads
}

// successResponse — конверт успешного ответа.
type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data"`
}

// errorResponse — конверт ошибки.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, successResponse{Success: true, Message: message, Data: data})
}

func writeList(w http.ResponseWriter, status int, count int, data any) {
	writeJSON(w, status, successResponse{Success: true, Count: &count, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: message})
}
