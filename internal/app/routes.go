package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
)

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware("reservation-core", otelchi.WithChiRoutes(r)))
	r.Use(app.recoverPanic)
	r.Use(app.identify)

	r.Get("/health", app.GetHealth)

	r.Route("/showtimes/{showtimeId}", func(r chi.Router) {
		r.Get("/seats", app.GetSeatMapByShowtime)
		r.Post("/bookings", app.CreateBookingHandler)
	})

	r.Route("/bookings/{orderCode}", func(r chi.Router) {
		r.Get("/", app.GetBookingHandler)
		r.Delete("/", app.CancelBookingHandler)
		r.Post("/payment-link", app.CreatePaymentLinkHandler)
		r.Get("/payment", app.GetPaymentStatusHandler)
	})

	r.With(app.requireIdentity).Get("/users/me/bookings", app.GetBookingsOfUserHandler)

	r.Route("/ops/bookings", func(r chi.Router) {
		r.Get("/expiring", app.GetExpiringBookingsHandler)
		r.Post("/{orderCode}/expire", app.ForceExpireBookingHandler)
	})

	r.Post("/webhook/stripe", app.StripeWebhookHandler)

	return r
}
