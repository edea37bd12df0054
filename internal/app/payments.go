package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cinex/reservation-core/api"
	"github.com/cinex/reservation-core/internal/domain"
	"github.com/cinex/reservation-core/internal/reconciler"
	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const maxWebhookBodyBytes = 65536

func (app *application) CreatePaymentLinkHandler(w http.ResponseWriter, r *http.Request) {
	orderCode := chi.URLParam(r, "orderCode")

	booking, err := app.reservations.GetBooking(r.Context(), orderCode)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	if booking.Status != domain.BookingPending {
		app.bookingErrorResponse(w, r, domain.ErrBookingNotPending)
		return
	}

	showtime, err := app.seatRepo.GetShowtime(r.Context(), booking.ShowtimeID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	link, err := app.paymentProvider.CreatePaymentLink(r.Context(), booking, showtime)
	if err != nil {
		if errors.Is(err, domain.ErrProviderUnavailable) {
			app.logError(r, err)
			app.errorResponse(w, r, http.StatusBadGateway, "The payment provider is currently unavailable")
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	payment := &domain.Payment{
		BookingID:         booking.ID,
		OrderCode:         booking.OrderCode,
		ProviderSessionID: &link.ProviderSessionID,
		Amount:            booking.TotalAmount,
		Status:            domain.PaymentPending,
	}

	if err := app.paymentRepo.Create(r.Context(), payment); err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.PaymentLinkResponse{
		RedirectUrl: link.URL,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// GetPaymentStatusHandler is the pull half of payment reconciliation: it polls
// the provider and settles the booking if an outcome is known. When the
// provider is unreachable it degrades to the local state instead of failing.
func (app *application) GetPaymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	orderCode := chi.URLParam(r, "orderCode")

	booking, payment, degraded, err := app.reconciler.CheckPayment(r.Context(), orderCode)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	resp := api.PaymentStatusResponse{
		OrderCode:     booking.OrderCode,
		BookingStatus: string(booking.Status),
		Degraded:      degraded,
	}
	if payment != nil {
		resp.PaymentStatus = string(payment.Status)
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// StripeWebhookHandler verifies the provider signature and hands the event to
// the reconciler worker. A full queue is reported as unavailable so the
// provider redelivers later.
func (app *application) StripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("reading webhook body: %w", err))
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), app.config.stripe.webhookSecret)
	if err != nil {
		app.logError(r, fmt.Errorf("webhook signature verification failed: %w", err))
		app.errorResponse(w, r, http.StatusBadRequest, "Invalid webhook signature")
		return
	}

	status, ok := providerStatusFromEvent(event)
	if !ok {
		// An event type we don't subscribe to. Acknowledge and move on.
		w.WriteHeader(http.StatusOK)
		return
	}

	var checkoutSession stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &checkoutSession); err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("parsing webhook payload: %w", err))
		return
	}

	if checkoutSession.ClientReferenceID == "" {
		app.badRequestResponse(w, r, fmt.Errorf("webhook event %s has no client reference", event.ID))
		return
	}

	err = app.reconciler.Enqueue(r.Context(), reconciler.Event{
		ID:        event.ID,
		OrderCode: checkoutSession.ClientReferenceID,
		Status:    status,
	})
	if err != nil {
		app.logError(r, err)
		app.errorResponse(w, r, http.StatusServiceUnavailable, "Try again later")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func providerStatusFromEvent(event stripe.Event) (domain.ProviderStatus, bool) {
	switch event.Type {
	case "checkout.session.completed":
		return domain.ProviderPaid, true
	case "checkout.session.async_payment_succeeded":
		return domain.ProviderPaid, true
	case "checkout.session.async_payment_failed":
		return domain.ProviderCancelled, true
	case "checkout.session.expired":
		return domain.ProviderExpired, true
	default:
		return "", false
	}
}
