package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentFailed    PaymentStatus = "failed"
)

// ProviderStatus is the status reported by the payment provider for an order
// reference, normalized away from provider-specific event names.
type ProviderStatus string

const (
	ProviderPaid      ProviderStatus = "paid"
	ProviderCancelled ProviderStatus = "cancelled"
	ProviderExpired   ProviderStatus = "expired"
	ProviderPending   ProviderStatus = "pending"
)

// Payment is one payment attempt for a booking. Retries create new rows.
type Payment struct {
	ID                 int64
	BookingID          int64
	OrderCode          string
	ProviderSessionID  *string
	Amount             decimal.Decimal
	Status             PaymentStatus
	ErrorMsg           *string
	CreatedAt          time.Time
	UpdatedAt          *time.Time
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	LatestByBooking(ctx context.Context, bookingID int64) (*Payment, error)
	UpdateStatusByOrderCode(ctx context.Context, orderCode string, status PaymentStatus, errMsg string) error
}

// PaymentLink is what a client is redirected to in order to pay.
type PaymentLink struct {
	URL               string
	ProviderSessionID string
}

// PaymentProvider is the external payment collaborator. The booking order
// code travels as the provider's client reference, so callbacks resolve back
// to a booking without a side table.
type PaymentProvider interface {
	CreatePaymentLink(ctx context.Context, booking *Booking, showtime *Showtime) (*PaymentLink, error)
	GetPaymentStatus(ctx context.Context, providerSessionID string) (ProviderStatus, error)
}
