package mocks

import (
	"context"

	"github.com/cinex/reservation-core/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPaymentProvider struct {
	mock.Mock
	domain.PaymentProvider
}

func (m *MockPaymentProvider) CreatePaymentLink(
	ctx context.Context,
	booking *domain.Booking,
	showtime *domain.Showtime) (*domain.PaymentLink, error) {

	args := m.Called(ctx, booking, showtime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentLink), args.Error(1)
}

func (m *MockPaymentProvider) GetPaymentStatus(
	ctx context.Context,
	providerSessionID string) (domain.ProviderStatus, error) {

	args := m.Called(ctx, providerSessionID)
	return args.Get(0).(domain.ProviderStatus), args.Error(1)
}
