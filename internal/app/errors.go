package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/cinex/reservation-core/api"
	"github.com/cinex/reservation-core/internal/domain"
	appvalidator "github.com/cinex/reservation-core/internal/validator"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

func (app *application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.Error(err.Error(), "method", method, "uri", uri)
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := api.ErrorResponse{
		Message:   message,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	message := "The server encountered a problem and could not process your request"
	app.errorResponse(w, r, http.StatusInternalServerError, message)
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "The requested resource not found"
	app.errorResponse(w, r, http.StatusNotFound, message)
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *application) unauthorizedAccessResponse(w http.ResponseWriter, r *http.Request) {
	message := "You must identify yourself to access this resource"
	app.errorResponse(w, r, http.StatusUnauthorized, message)
}

func (app *application) failedValidationResponse(w http.ResponseWriter, r *http.Request, errs validator.ValidationErrors) {
	details := make([]api.ValidationErrorDetail, 0, len(errs))

	for _, fieldErr := range errs {
		details = append(details, api.ValidationErrorDetail{
			Field: fieldErr.Field(),
			Issue: appvalidator.ValidationMessage(fieldErr),
		})
	}

	resp := api.ValidationErrorResponse{
		ErrorResponse: api.ErrorResponse{
			Message:   "The request failed validation",
			RequestId: middleware.GetReqID(r.Context()),
			Timestamp: time.Now(),
		},
		ValidationErrors: details,
	}

	err := app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

// bookingErrorResponse maps the domain's booking errors onto HTTP statuses.
// Seat races are conflicts, rule violations are unprocessable, and a lapsed
// hold is gone rather than not found.
func (app *application) bookingErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var seatUnavailable *domain.SeatUnavailableError
	var adjacency *domain.AdjacencyError
	var orphan *domain.OrphanSeatError
	var unknownSeat *domain.UnknownSeatError

	switch {
	case errors.As(err, &seatUnavailable):
		app.errorResponse(w, r, http.StatusConflict, seatUnavailable.Error())
	case errors.Is(err, domain.ErrBookingNotPending):
		app.errorResponse(w, r, http.StatusConflict, err.Error())
	case errors.As(err, &adjacency):
		app.errorResponse(w, r, http.StatusUnprocessableEntity, adjacency.Error())
	case errors.As(err, &orphan):
		app.errorResponse(w, r, http.StatusUnprocessableEntity, orphan.Error())
	case errors.As(err, &unknownSeat):
		app.errorResponse(w, r, http.StatusUnprocessableEntity, unknownSeat.Error())
	case errors.Is(err, domain.ErrSeatLimitExceeded),
		errors.Is(err, domain.ErrInvalidPromoCode):
		app.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrBookingExpired):
		app.errorResponse(w, r, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrRecordNotFound),
		errors.Is(err, domain.ErrBookingNotFound):
		app.notFoundResponse(w, r)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
