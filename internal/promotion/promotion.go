// Package promotion applies promo-code and loyalty-point discounts to a
// booking and records each usage so it can be reversed when the booking is
// cancelled or expires.
package promotion

import (
	"context"
	"errors"
	"fmt"

	"github.com/cinex/reservation-core/internal/domain"
	"github.com/cinex/reservation-core/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// pointValue is the redemption worth of one loyalty point.
var pointValue = decimal.NewFromFloat(0.01)

// Service stores promotion usages next to the booking rows. When called with
// a context carrying a transaction, the usage record commits or rolls back
// together with the booking.
type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{
		db: db,
	}
}

// Apply computes the total discount for a booking and records the usage under
// ref, the booking's order code. The returned discount never exceeds gross.
func (s *Service) Apply(
	ctx context.Context,
	ref string,
	userID *int64,
	promoCode string,
	points int,
	gross decimal.Decimal) (decimal.Decimal, error) {

	discount := decimal.Zero

	if promoCode != "" {
		promoDiscount, err := s.promoDiscount(ctx, promoCode, gross)
		if err != nil {
			return decimal.Zero, err
		}

		discount = discount.Add(promoDiscount)
	}

	if points > 0 {
		discount = discount.Add(pointValue.Mul(decimal.NewFromInt(int64(points))))
	}

	if discount.GreaterThan(gross) {
		discount = gross
	}

	discount = discount.Round(2)

	query := `
		INSERT INTO promotion_usages (ref, promo_code, points_used, user_id, discount_amount)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5)
	`

	_, err := repository.FromContext(ctx, s.db).Exec(ctx, query, ref, promoCode, points, userID, discount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("recording promotion usage for %s: %w", ref, err)
	}

	return discount, nil
}

func (s *Service) promoDiscount(ctx context.Context, promoCode string, gross decimal.Decimal) (decimal.Decimal, error) {
	query := `
		SELECT discount_type, discount_value
		FROM promotions
		WHERE code = $1 AND active = TRUE
	`

	var discountType string
	var discountValue decimal.Decimal

	err := repository.FromContext(ctx, s.db).QueryRow(ctx, query, promoCode).Scan(&discountType, &discountValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domain.ErrInvalidPromoCode
		}

		return decimal.Zero, err
	}

	if discountType == "percent" {
		return gross.Mul(discountValue).Div(decimal.NewFromInt(100)), nil
	}

	return discountValue, nil
}

// Reverse marks the usage recorded under ref as reversed. It is idempotent:
// reversing an already-reversed or never-recorded ref succeeds.
func (s *Service) Reverse(ctx context.Context, ref string) error {
	query := `
		UPDATE promotion_usages
		SET reversed = TRUE, reversed_at = NOW()
		WHERE ref = $1 AND reversed = FALSE
	`

	_, err := repository.FromContext(ctx, s.db).Exec(ctx, query, ref)
	return err
}
