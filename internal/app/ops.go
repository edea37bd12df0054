package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cinex/reservation-core/api"
	"github.com/go-chi/chi/v5"
)

const defaultExpiryLookahead = 5 * time.Minute

// GetExpiringBookingsHandler lists the pending bookings whose hold deadline
// falls within the requested window, newest deadline last.
func (app *application) GetExpiringBookingsHandler(w http.ResponseWriter, r *http.Request) {
	window := defaultExpiryLookahead

	if within := r.URL.Query().Get("within"); within != "" {
		parsed, err := time.ParseDuration(within)
		if err != nil || parsed <= 0 || parsed > 24*time.Hour {
			app.badRequestResponse(w, r, fmt.Errorf("within must be a duration between 0 and 24h"))
			return
		}

		window = parsed
	}

	bookings, err := app.sweeper.NearExpiration(r.Context(), window)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := make([]api.ExpiringBookingResponse, 0, len(bookings))
	for _, booking := range bookings {
		resp = append(resp, api.ExpiringBookingResponse{
			OrderCode:     booking.OrderCode,
			ShowtimeId:    booking.ShowtimeID,
			HoldExpiresAt: booking.HoldExpiresAt,
		})
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// ForceExpireBookingHandler expires a single pending booking on demand,
// without waiting for its deadline or the next sweep.
func (app *application) ForceExpireBookingHandler(w http.ResponseWriter, r *http.Request) {
	orderCode := chi.URLParam(r, "orderCode")

	booking, err := app.reservations.GetBooking(r.Context(), orderCode)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	expired, err := app.reservations.ExpireBooking(r.Context(), booking.ID)
	if err != nil && expired == nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toBookingResponse(expired), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
