package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingExpired   BookingStatus = "expired"
)

// Terminal reports whether the status can never change again. Pending is the
// only non-terminal state; a new booking must be created to retry.
func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingExpired || s == BookingConfirmed
}

type TicketStatus string

const (
	TicketActive TicketStatus = "active"
	TicketVoid   TicketStatus = "void"
)

// Booking is the aggregate root of a seat hold. It is created on a hold
// request and only ever transitioned, never deleted.
type Booking struct {
	ID              int64
	OrderCode       string
	UserID          *int64
	ShowtimeID      int64
	Status          BookingStatus
	TotalAmount     decimal.Decimal
	DiscountAmount  decimal.Decimal
	PromoCode       *string
	PointsUsed      int
	PaymentMethod   string
	ContactEmail    *string
	HoldExpiresAt   time.Time
	ReversalPending bool
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Tickets []Ticket
}

// Ticket reserves exactly one seat for the parent booking. Its status mirrors
// the booking: voided when the booking is cancelled or expired, which frees
// the seat for the next hold.
type Ticket struct {
	ID         int64
	TicketCode string
	BookingID  int64
	ShowtimeID int64
	SeatID     int64
	Position   SeatPosition
	SeatType   string
	Price      decimal.Decimal
	Status     TicketStatus
}

// BookingSummary is the listing projection for a user's booking history.
type BookingSummary struct {
	OrderCode     string
	MovieTitle    string
	HallName      string
	ShowtimeDate  time.Time
	Status        BookingStatus
	TotalAmount   decimal.Decimal
	SeatLabels    []string
	CreatedAt     time.Time
	HoldExpiresAt time.Time
}

type BookingRepository interface {
	// WithTx runs fn inside a transaction. Repository calls made with the
	// context passed to fn operate on that transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// GetShowtimeForUpdate locks the showtime row, serializing hold creation
	// for one showtime.
	GetShowtimeForUpdate(ctx context.Context, showtimeID int64) (*Showtime, error)

	CreateBooking(ctx context.Context, booking *Booking) error
	CreateTickets(ctx context.Context, tickets []Ticket) error

	GetByOrderCode(ctx context.Context, orderCode string) (*Booking, error)
	GetForUpdate(ctx context.Context, bookingID int64) (*Booking, error)
	UpdateStatus(ctx context.Context, bookingID int64, status BookingStatus) error
	VoidTickets(ctx context.Context, bookingID int64) error
	SetReversalPending(ctx context.Context, bookingID int64, pending bool) error

	// ActiveTicketsByShowtime returns the tickets of non-terminal and
	// confirmed bookings, the inputs of the derived seat status.
	ActiveTicketsByShowtime(ctx context.Context, showtimeID int64) ([]Ticket, map[int64]BookingStatus, error)

	ExpiredPendingIDs(ctx context.Context, now time.Time) ([]int64, error)
	ReversalPendingIDs(ctx context.Context) ([]int64, error)
	NearExpiration(ctx context.Context, now time.Time, window time.Duration) ([]Booking, error)

	SummariesByUser(ctx context.Context, userID int64, pagination Pagination) ([]BookingSummary, *Metadata, error)
}
