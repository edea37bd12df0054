package payment

import (
	"context"

	"github.com/cinex/reservation-core/internal/domain"
)

// MockPaymentProvider issues fake payment links for local development, where
// no real provider is configured.
type MockPaymentProvider struct {
}

func NewMockPaymentProvider() *MockPaymentProvider {
	return &MockPaymentProvider{}
}

func (m *MockPaymentProvider) CreatePaymentLink(
	ctx context.Context,
	booking *domain.Booking,
	showtime *domain.Showtime) (*domain.PaymentLink, error) {

	return &domain.PaymentLink{
		URL:               "https://pay.example.com/" + booking.OrderCode,
		ProviderSessionID: "mock_" + booking.OrderCode,
	}, nil
}

func (m *MockPaymentProvider) GetPaymentStatus(
	ctx context.Context,
	providerSessionID string) (domain.ProviderStatus, error) {

	return domain.ProviderPending, nil
}
