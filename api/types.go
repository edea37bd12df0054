// Package api holds the request and response types of the HTTP surface.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateBookingRequest struct {
	Seats         []string `json:"seats" validate:"required,min=1,max=20,dive,seat_position"`
	PromoCode     string   `json:"promoCode,omitempty" validate:"omitempty,alphanum,max=32"`
	Points        int      `json:"points,omitempty" validate:"omitempty,min=0,max=100000"`
	PaymentMethod string   `json:"paymentMethod" validate:"required,payment_method"`
	ContactEmail  *string  `json:"contactEmail,omitempty" validate:"omitempty,email"`
}

type TicketResponse struct {
	TicketCode string          `json:"ticketCode"`
	Seat       string          `json:"seat"`
	SeatType   string          `json:"seatType"`
	Price      decimal.Decimal `json:"price"`
	Status     string          `json:"status"`
}

type BookingResponse struct {
	OrderCode      string           `json:"orderCode"`
	ShowtimeId     int64            `json:"showtimeId"`
	Status         string           `json:"status"`
	TotalAmount    decimal.Decimal  `json:"totalAmount"`
	DiscountAmount decimal.Decimal  `json:"discountAmount"`
	PointsUsed     int              `json:"pointsUsed,omitempty"`
	PaymentMethod  string           `json:"paymentMethod"`
	HoldExpiresAt  time.Time        `json:"holdExpiresAt"`
	CreatedAt      time.Time        `json:"createdAt"`
	Tickets        []TicketResponse `json:"tickets"`
}

type BookingSummaryResponse struct {
	OrderCode     string          `json:"orderCode"`
	MovieTitle    string          `json:"movieTitle"`
	HallName      string          `json:"hallName"`
	ShowtimeDate  time.Time       `json:"showtimeDate"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Seats         []string        `json:"seats"`
	CreatedAt     time.Time       `json:"createdAt"`
	HoldExpiresAt time.Time       `json:"holdExpiresAt"`
}

type UserBookingsResponse struct {
	Bookings []BookingSummaryResponse `json:"bookings"`
	Metadata Metadata                 `json:"metadata"`
}

type Seat struct {
	Label  string `json:"label"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Column int    `json:"column"`
}

type SeatRow struct {
	Row   string `json:"row"`
	Seats []Seat `json:"seats"`
}

type SeatMapResponse struct {
	ShowtimeId int64     `json:"showtimeId"`
	HallName   string    `json:"hallName"`
	MovieTitle string    `json:"movieTitle"`
	StartsAt   time.Time `json:"startsAt"`
	SeatRows   []SeatRow `json:"seatRows"`
}

type PaymentLinkResponse struct {
	RedirectUrl string `json:"redirectUrl"`
}

type PaymentStatusResponse struct {
	OrderCode     string `json:"orderCode"`
	BookingStatus string `json:"bookingStatus"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
	Degraded      bool   `json:"degraded,omitempty"`
}

type ExpiringBookingResponse struct {
	OrderCode     string    `json:"orderCode"`
	ShowtimeId    int64     `json:"showtimeId"`
	HoldExpiresAt time.Time `json:"holdExpiresAt"`
}

type Metadata struct {
	CurrentPage  int `json:"currentPage"`
	PageSize     int `json:"pageSize"`
	FirstPage    int `json:"firstPage"`
	LastPage     int `json:"lastPage"`
	TotalRecords int `json:"totalRecords"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationErrorResponse struct {
	ErrorResponse
	ValidationErrors []ValidationErrorDetail `json:"validationErrors"`
}

type ValidationErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}
