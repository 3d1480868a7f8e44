package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stepperslife/ticketing/internal/idempotency"
	"github.com/stepperslife/ticketing/internal/observability"
	"github.com/stepperslife/ticketing/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(RateLimitMiddleware(rl))

	r.Group(func(r chi.Router) {
		r.Use(IdempotencyMiddleware(idemp))
		r.Post("/v1/checkout/sessions", h.CreateCheckoutSession)
	})

	r.Group(func(r chi.Router) {
		r.Use(ScannerAuthMiddleware)
		r.Post("/v1/scans", h.ScanTicket)
		r.Post("/v1/scans/manual", h.ManualCheckIn)
	})

	r.Post("/v1/payments/callback", h.PaymentCallback)
	r.Post("/v1/events", h.CreateEvent)
	r.Get("/v1/events/{id}", h.GetEvent)
	r.Get("/v1/events/{id}/attendance", h.GetAttendance)
	r.Post("/v1/events/{id}/tables", h.CreateTable)
	r.Get("/v1/events/{id}/tables/{token}", h.GetTableByToken)
	r.Get("/v1/purchases/{id}", h.GetPurchase)
	r.Get("/v1/sellers/{id}/transactions", h.GetSellerTransactions)
	r.Post("/v1/waiting-list", h.JoinWaitingList)
	r.Post("/v1/waiting-list/{id}/offer", h.OfferReservation)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
