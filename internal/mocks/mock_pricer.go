package mocks

import (
	"github.com/cinex/reservation-core/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockPricer struct {
	mock.Mock
	domain.Pricer
}

func (m *MockPricer) Price(showtime *domain.Showtime, seatType string) decimal.Decimal {
	args := m.Called(showtime, seatType)
	return args.Get(0).(decimal.Decimal)
}
