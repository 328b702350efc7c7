package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	"github.com/vladislavdragonenkov/shop-orders/internal/service/order"
)

// Handler обслуживает HTTP API заказов.
type Handler struct {
	service *order.Service
	logger  *log.Entry
}

// NewHandler создаёт HTTP-хендлер поверх сервиса заказов.
func NewHandler(service *order.Service, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http-handler")
	}
	return &Handler{service: service, logger: logger}
}

// CreateOrder обрабатывает POST /api/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, invalidTokenMessage)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.service.CreateOrder(
		r.Context(),
		identity.UserID,
		req.requestedItems(),
		req.ShippingAddress.toDomain(),
		req.Notes,
	)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusCreated, "Order created successfully!", toOrderPayload(created))
}

// ListOrders обрабатывает GET /api/orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, invalidTokenMessage)
		return
	}

	orders, err := h.service.GetUserOrders(r.Context(), identity.UserID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeList(w, http.StatusOK, len(orders), toOrderPayloads(orders))
}

// GetOrder обрабатывает GET /api/orders/{orderID}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, invalidTokenMessage)
		return
	}

	orderID := chi.URLParam(r, "orderID")
	found, err := h.service.GetOrderByID(r.Context(), orderID, identity.UserID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, "", toOrderPayload(found))
}

// CancelOrder обрабатывает PUT /api/orders/{orderID}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, invalidTokenMessage)
		return
	}

	orderID := chi.URLParam(r, "orderID")
	cancelled, err := h.service.CancelOrder(r.Context(), orderID, identity.UserID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, "Order cancelled successfully", toOrderPayload(cancelled))
}

// UpdateStatus обрабатывает PUT /api/orders/{orderID}/status (только admin).
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orderID := chi.URLParam(r, "orderID")
	updated, err := h.service.UpdateOrderStatus(r.Context(), orderID, domain.OrderStatus(req.Status))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, "Order status updated", toOrderPayload(updated))
}

// writeServiceError переводит доменную ошибку в HTTP-статус и конверт ошибки.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var (
		notFound     *domain.ProductNotFoundError
		insufficient *domain.InsufficientStockError
		unavailable  *domain.CatalogUnavailableError
		transition   *domain.InvalidTransitionError
	)

	switch {
	case domain.IsMalformedRequest(err),
		errors.As(err, &notFound),
		errors.As(err, &insufficient):
		writeError(w, http.StatusBadRequest, err.Error())
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Order not found")
	case errors.As(err, &transition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &unavailable):
		writeError(w, http.StatusBadGateway, "Product catalog is unavailable")
	default:
		h.logger.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
