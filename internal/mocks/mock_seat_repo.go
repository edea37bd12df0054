package mocks

import (
	"context"

	"github.com/cinex/reservation-core/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockSeatRepo struct {
	mock.Mock
	domain.SeatRepository
}

func (m *MockSeatRepo) GetShowtime(ctx context.Context, showtimeID int64) (*domain.Showtime, error) {
	args := m.Called(ctx, showtimeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Showtime), args.Error(1)
}

func (m *MockSeatRepo) LayoutByShowtime(ctx context.Context, showtimeID int64) ([]domain.SeatLayout, error) {
	args := m.Called(ctx, showtimeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatLayout), args.Error(1)
}
