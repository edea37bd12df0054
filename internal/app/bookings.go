package app

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cinex/reservation-core/api"
	"github.com/cinex/reservation-core/internal/domain"
	"github.com/cinex/reservation-core/internal/reservation"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

func (app *application) CreateBookingHandler(w http.ResponseWriter, r *http.Request) {
	showtimeID, err := app.readInt64Param(r, "showtimeId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var req api.CreateBookingRequest

	if err := app.readJSON(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.validator.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			app.failedValidationResponse(w, r, validationErrors)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	seats, err := parseSeatPositions(req.Seats)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	booking, err := app.reservations.CreateHold(r.Context(), reservation.CreateHoldParams{
		ShowtimeID:    showtimeID,
		UserID:        app.contextGetUserID(r),
		Seats:         seats,
		PromoCode:     req.PromoCode,
		Points:        req.Points,
		PaymentMethod: req.PaymentMethod,
		ContactEmail:  req.ContactEmail,
	})
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, toBookingResponse(booking), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) GetBookingHandler(w http.ResponseWriter, r *http.Request) {
	orderCode := chi.URLParam(r, "orderCode")

	booking, err := app.reservations.GetBooking(r.Context(), orderCode)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toBookingResponse(booking), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) CancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	orderCode := chi.URLParam(r, "orderCode")

	booking, err := app.reservations.GetBooking(r.Context(), orderCode)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	cancelled, err := app.reservations.CancelHold(r.Context(), booking.ID, "cancelled by client")
	if err != nil && !errors.Is(err, domain.ErrReversalFailed) {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toBookingResponse(cancelled), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) GetBookingsOfUserHandler(w http.ResponseWriter, r *http.Request) {
	userID := app.contextGetUserID(r)

	pagination := domain.Pagination{Page: 1, PageSize: 10}

	if page := r.URL.Query().Get("page"); page != "" {
		if pageNum, err := strconv.Atoi(page); err == nil && pageNum > 0 {
			pagination.Page = pageNum
		}
	}

	if pageSize := r.URL.Query().Get("pageSize"); pageSize != "" {
		if pageSizeNum, err := strconv.Atoi(pageSize); err == nil && pageSizeNum > 0 && pageSizeNum <= 100 {
			pagination.PageSize = pageSizeNum
		}
	}

	summaries, metadata, err := app.reservations.BookingsOfUser(r.Context(), *userID, pagination)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.UserBookingsResponse{
		Bookings: make([]api.BookingSummaryResponse, 0, len(summaries)),
		Metadata: api.Metadata{
			CurrentPage:  metadata.CurrentPage,
			PageSize:     metadata.PageSize,
			FirstPage:    metadata.FirstPage,
			LastPage:     metadata.LastPage,
			TotalRecords: metadata.TotalRecords,
		},
	}

	for _, summary := range summaries {
		resp.Bookings = append(resp.Bookings, api.BookingSummaryResponse{
			OrderCode:     summary.OrderCode,
			MovieTitle:    summary.MovieTitle,
			HallName:      summary.HallName,
			ShowtimeDate:  summary.ShowtimeDate,
			Status:        string(summary.Status),
			TotalAmount:   summary.TotalAmount,
			Seats:         summary.SeatLabels,
			CreatedAt:     summary.CreatedAt,
			HoldExpiresAt: summary.HoldExpiresAt,
		})
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toBookingResponse(booking *domain.Booking) api.BookingResponse {
	resp := api.BookingResponse{
		OrderCode:      booking.OrderCode,
		ShowtimeId:     booking.ShowtimeID,
		Status:         string(booking.Status),
		TotalAmount:    booking.TotalAmount,
		DiscountAmount: booking.DiscountAmount,
		PointsUsed:     booking.PointsUsed,
		PaymentMethod:  booking.PaymentMethod,
		HoldExpiresAt:  booking.HoldExpiresAt,
		CreatedAt:      booking.CreatedAt,
		Tickets:        make([]api.TicketResponse, 0, len(booking.Tickets)),
	}

	for _, ticket := range booking.Tickets {
		resp.Tickets = append(resp.Tickets, api.TicketResponse{
			TicketCode: ticket.TicketCode,
			Seat:       ticket.Position.String(),
			SeatType:   ticket.SeatType,
			Price:      ticket.Price,
			Status:     string(ticket.Status),
		})
	}

	return resp
}
