package mocks

import (
	"context"
	"time"

	"github.com/cinex/reservation-core/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepo struct {
	mock.Mock
	domain.BookingRepository
}

// WithTx runs fn directly; unit tests have no real transaction to join.
func (m *MockBookingRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

func (m *MockBookingRepo) GetShowtimeForUpdate(ctx context.Context, showtimeID int64) (*domain.Showtime, error) {
	args := m.Called(ctx, showtimeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Showtime), args.Error(1)
}

func (m *MockBookingRepo) CreateBooking(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepo) CreateTickets(ctx context.Context, tickets []domain.Ticket) error {
	args := m.Called(ctx, tickets)
	return args.Error(0)
}

func (m *MockBookingRepo) GetByOrderCode(ctx context.Context, orderCode string) (*domain.Booking, error) {
	args := m.Called(ctx, orderCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) GetForUpdate(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) UpdateStatus(ctx context.Context, bookingID int64, status domain.BookingStatus) error {
	args := m.Called(ctx, bookingID, status)
	return args.Error(0)
}

func (m *MockBookingRepo) VoidTickets(ctx context.Context, bookingID int64) error {
	args := m.Called(ctx, bookingID)
	return args.Error(0)
}

func (m *MockBookingRepo) SetReversalPending(ctx context.Context, bookingID int64, pending bool) error {
	args := m.Called(ctx, bookingID, pending)
	return args.Error(0)
}

func (m *MockBookingRepo) ActiveTicketsByShowtime(
	ctx context.Context,
	showtimeID int64) ([]domain.Ticket, map[int64]domain.BookingStatus, error) {

	args := m.Called(ctx, showtimeID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]domain.Ticket), args.Get(1).(map[int64]domain.BookingStatus), args.Error(2)
}

func (m *MockBookingRepo) ExpiredPendingIDs(ctx context.Context, now time.Time) ([]int64, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockBookingRepo) ReversalPendingIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockBookingRepo) NearExpiration(ctx context.Context, now time.Time, window time.Duration) ([]domain.Booking, error) {
	args := m.Called(ctx, now, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) SummariesByUser(
	ctx context.Context,
	userID int64,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	args := m.Called(ctx, userID, pagination)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]domain.BookingSummary), args.Get(1).(*domain.Metadata), args.Error(2)
}
