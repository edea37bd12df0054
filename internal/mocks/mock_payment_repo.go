package mocks

import (
	"context"

	"github.com/cinex/reservation-core/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPaymentRepo struct {
	mock.Mock
	domain.PaymentRepository
}

func (m *MockPaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) LatestByBooking(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepo) UpdateStatusByOrderCode(
	ctx context.Context,
	orderCode string,
	status domain.PaymentStatus,
	errMsg string) error {

	args := m.Called(ctx, orderCode, status, errMsg)
	return args.Error(0)
}
