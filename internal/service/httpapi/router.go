package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop-orders/internal/auth"
	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

// RouterConfig собирает зависимости HTTP-маршрутизатора.
type RouterConfig struct {
	Handler       *Handler
	Verifier      auth.Verifier
	Idempotency   domain.IdempotencyRepository
	HealthHandler http.Handler
	Logger        *log.Entry
}

// NewRouter собирает chi-маршрутизатор со всеми маршрутами API заказов.
func NewRouter(cfg RouterConfig) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "http-router")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if cfg.HealthHandler != nil {
		r.Method(http.MethodGet, "/health", cfg.HealthHandler)
	}

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(RequireAuth(cfg.Verifier, logger))

		r.With(Idempotency(cfg.Idempotency, logger)).Post("/", cfg.Handler.CreateOrder)
		r.Get("/", cfg.Handler.ListOrders)
		r.Get("/{orderID}", cfg.Handler.GetOrder)
		r.Put("/{orderID}/cancel", cfg.Handler.CancelOrder)
		r.With(RequireAdmin).Put("/{orderID}/status", cfg.Handler.UpdateStatus)
	})

	return r
}
