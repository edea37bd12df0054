package payment

import (
	"context"
	"fmt"

	"github.com/cinex/reservation-core/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

type StripePaymentProvider struct {
	failureUrl string
	successUrl string
}

func NewStripePaymentProvider(failureUrl, successUrl string) *StripePaymentProvider {
	return &StripePaymentProvider{
		failureUrl: failureUrl,
		successUrl: successUrl,
	}
}

func (s *StripePaymentProvider) CreatePaymentLink(
	ctx context.Context,
	booking *domain.Booking,
	showtime *domain.Showtime) (*domain.PaymentLink, error) {

	var lineItems []*stripe.CheckoutSessionLineItemParams

	for _, ticket := range booking.Tickets {
		priceCents := ticket.Price.Mul(decimal.NewFromInt(100)).IntPart()

		lineItem := &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(priceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("🎬 %s - Seat %s", showtime.MovieTitle, ticket.Position)),
					Description: stripe.String(fmt.Sprintf(
						"Hall: %s • Showtime: %s • Seat Type: %s",
						showtime.HallName,
						showtime.StartsAt.Format("Jan 2, 2006 15:04"),
						ticket.SeatType,
					)),
				},
			},
			Quantity: stripe.Int64(1),
		}

		lineItems = append(lineItems, lineItem)
	}

	params := &stripe.CheckoutSessionParams{
		LineItems:  lineItems,
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successUrl),
		CancelURL:  stripe.String(s.failureUrl),
		Metadata: map[string]string{
			"order_code": booking.OrderCode,
			"booking_id": fmt.Sprintf("%d", booking.ID),
		},
		ClientReferenceID: stripe.String(booking.OrderCode),
		ExpiresAt:         stripe.Int64(booking.HoldExpiresAt.Unix()),
	}
	params.Context = ctx

	if booking.ContactEmail != nil {
		params.CustomerEmail = booking.ContactEmail
	}

	checkoutSession, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	return &domain.PaymentLink{
		URL:               checkoutSession.URL,
		ProviderSessionID: checkoutSession.ID,
	}, nil
}

// GetPaymentStatus polls the provider for the checkout session's outcome and
// maps it onto the provider-neutral status set.
func (s *StripePaymentProvider) GetPaymentStatus(
	ctx context.Context,
	providerSessionID string) (domain.ProviderStatus, error) {

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	checkoutSession, err := session.Get(providerSessionID, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	switch checkoutSession.Status {
	case stripe.CheckoutSessionStatusComplete:
		if checkoutSession.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			return domain.ProviderPending, nil
		}

		return domain.ProviderPaid, nil
	case stripe.CheckoutSessionStatusExpired:
		return domain.ProviderExpired, nil
	default:
		return domain.ProviderPending, nil
	}
}
