// Package pricing computes per-seat prices from a showtime's base price and
// the seat type.
package pricing

import (
	"github.com/cinex/reservation-core/internal/domain"
	"github.com/shopspring/decimal"
)

// TablePricer multiplies the showtime base price by a per-seat-type factor.
// Unknown seat types fall back to the base price.
type TablePricer struct {
	multipliers map[string]decimal.Decimal
}

func NewTablePricer() *TablePricer {
	return &TablePricer{
		multipliers: map[string]decimal.Decimal{
			"standard": decimal.NewFromInt(1),
			"vip":      decimal.NewFromFloat(1.5),
			"couple":   decimal.NewFromInt(2),
		},
	}
}

func (p *TablePricer) Price(showtime *domain.Showtime, seatType string) decimal.Decimal {
	multiplier, ok := p.multipliers[seatType]
	if !ok {
		multiplier = decimal.NewFromInt(1)
	}

	return showtime.BasePrice.Mul(multiplier).Round(2)
}
