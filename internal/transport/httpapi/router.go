package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vladislavdragonenkov/qrpay/internal/health"
)

// RouterConfig собирает зависимости публичного HTTP API.
type RouterConfig struct {
	Orders        *OrdersHandler
	Payment       *PaymentHandler
	Health        *health.Handler
	OperatorToken string
}

// NewRouter строит chi-роутер со стандартным набором middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.ServeHTTP)
		r.Get("/readyz", cfg.Health.ReadinessHandler)
	}
	r.Get("/livez", health.LivenessHandler)

	if cfg.Payment != nil {
		r.Route("/payment", func(r chi.Router) {
			r.Post("/create-qr", cfg.Payment.CreateQR)
			r.Get("/reconciliation", cfg.Payment.Reconciliation)
			r.Post("/reconciliation", cfg.Payment.CheckQRs)
		})
	}

	if cfg.Orders != nil {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", cfg.Orders.CreateOrder)
			r.Get("/{id}", cfg.Orders.GetOrder)
			r.Post("/update-payment", cfg.Orders.UpdatePayment)
			r.Post("/update-delivery", cfg.Orders.UpdateDelivery)
			r.With(RequireOperatorToken(cfg.OperatorToken)).
				Post("/update-status", cfg.Orders.UpdateStatus)
		})
	}

	return r
}

// NewServer оборачивает роутер в http.Server с таймаутами.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
