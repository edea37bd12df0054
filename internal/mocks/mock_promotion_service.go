package mocks

import (
	"context"

	"github.com/cinex/reservation-core/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockPromotionService struct {
	mock.Mock
	domain.PromotionService
}

func (m *MockPromotionService) Apply(
	ctx context.Context,
	ref string,
	userID *int64,
	promoCode string,
	points int,
	gross decimal.Decimal) (decimal.Decimal, error) {

	args := m.Called(ctx, ref, userID, promoCode, points, gross)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPromotionService) Reverse(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}
