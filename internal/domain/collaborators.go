package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Pricer is the pricing collaborator: a pure lookup from seat type and
// showtime to a unit price.
type Pricer interface {
	Price(showtime *Showtime, seatType string) decimal.Decimal
}

// PromotionService is the promotion/points collaborator. This core only needs
// the discount amount a code or point spend contributes to a booking total,
// and the ability to reverse the usage when a hold dies.
type PromotionService interface {
	// Apply records usage under the given reference (the booking order code)
	// and returns the discount amount. A zero request returns decimal.Zero.
	Apply(ctx context.Context, ref string, userID *int64, promoCode string, points int, gross decimal.Decimal) (decimal.Decimal, error)

	// Reverse undoes a previous Apply for the reference. Reversing an unknown
	// or already-reversed reference is a no-op.
	Reverse(ctx context.Context, ref string) error
}
