package reconciler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cinex/reservation-core/internal/availability"
	"github.com/cinex/reservation-core/internal/domain"
	"github.com/cinex/reservation-core/internal/mocks"
	"github.com/cinex/reservation-core/internal/reservation"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type reconcilerMocks struct {
	bookings *mocks.MockBookingRepo
	payments *mocks.MockPaymentRepo
	provider *mocks.MockPaymentProvider
	redis    *mocks.MockRedisClient
}

func newTestReconciler() (*Reconciler, *reconcilerMocks) {
	m := &reconcilerMocks{
		bookings: &mocks.MockBookingRepo{},
		payments: &mocks.MockPaymentRepo{},
		provider: &mocks.MockPaymentProvider{},
		redis:    &mocks.MockRedisClient{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	idx := availability.NewIndex(&mocks.MockSeatRepo{}, m.bookings, nil, logger)

	service := reservation.NewService(
		reservation.Config{HoldDuration: 10 * time.Minute, MaxSeatsPerBooking: 8},
		logger, m.bookings, idx, &mocks.MockPricer{}, &mocks.MockPromotionService{}, nil,
	)

	r := NewReconciler(logger, service, m.payments, m.provider, m.redis, 16)

	return r, m
}

func pendingBooking() *domain.Booking {
	return &domain.Booking{
		ID:            42,
		OrderCode:     "bkg-test",
		ShowtimeID:    7,
		Status:        domain.BookingPending,
		HoldExpiresAt: time.Now().Add(10 * time.Minute),
	}
}

func TestApply_PaidConfirmsBooking(t *testing.T) {
	r, m := newTestReconciler()

	m.bookings.On("GetByOrderCode", mock.Anything, "bkg-test").Return(pendingBooking(), nil)
	m.bookings.On("WithTx", mock.Anything, mock.Anything).Return(nil)
	m.bookings.On("GetForUpdate", mock.Anything, int64(42)).Return(pendingBooking(), nil)
	m.bookings.On("UpdateStatus", mock.Anything, int64(42), domain.BookingConfirmed).Return(nil)
	m.payments.On("UpdateStatusByOrderCode", mock.Anything, "bkg-test", domain.PaymentPaid, "").Return(nil)

	booking, err := r.Apply(context.Background(), "bkg-test", domain.ProviderPaid)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, booking.Status)
	m.payments.AssertExpectations(t)
}

// A second delivery of the same outcome must settle to the same state without
// a second transition.
func TestApply_DuplicatePaidIsIdempotent(t *testing.T) {
	r, m := newTestReconciler()

	confirmed := pendingBooking()
	confirmed.Status = domain.BookingConfirmed

	m.bookings.On("GetByOrderCode", mock.Anything, "bkg-test").Return(confirmed, nil)
	m.bookings.On("WithTx", mock.Anything, mock.Anything).Return(nil)
	m.bookings.On("GetForUpdate", mock.Anything, int64(42)).Return(confirmed, nil)
	m.payments.On("UpdateStatusByOrderCode", mock.Anything, "bkg-test", domain.PaymentPaid, "").Return(nil)

	booking, err := r.Apply(context.Background(), "bkg-test", domain.ProviderPaid)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, booking.Status)
	m.bookings.AssertNotCalled(t, "UpdateStatus")
}

func TestApply_PaidAfterHoldLapsed(t *testing.T) {
	r, m := newTestReconciler()

	lapsed := pendingBooking()
	lapsed.HoldExpiresAt = time.Now().Add(-time.Minute)

	m.bookings.On("GetByOrderCode", mock.Anything, "bkg-test").Return(lapsed, nil)
	m.bookings.On("WithTx", mock.Anything, mock.Anything).Return(nil)
	m.bookings.On("GetForUpdate", mock.Anything, int64(42)).Return(lapsed, nil)
	m.bookings.On("UpdateStatus", mock.Anything, int64(42), domain.BookingExpired).Return(nil)
	m.bookings.On("VoidTickets", mock.Anything, int64(42)).Return(nil)
	m.payments.On("UpdateStatusByOrderCode",
		mock.Anything, "bkg-test", domain.PaymentPaid, "settled after hold expiration").Return(nil)

	booking, err := r.Apply(context.Background(), "bkg-test", domain.ProviderPaid)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingExpired, booking.Status)
	m.payments.AssertExpectations(t)
}

func TestApply_ExpiredSessionCancelsHold(t *testing.T) {
	r, m := newTestReconciler()

	m.bookings.On("GetByOrderCode", mock.Anything, "bkg-test").Return(pendingBooking(), nil)
	m.bookings.On("WithTx", mock.Anything, mock.Anything).Return(nil)
	m.bookings.On("GetForUpdate", mock.Anything, int64(42)).Return(pendingBooking(), nil)
	m.bookings.On("UpdateStatus", mock.Anything, int64(42), domain.BookingCancelled).Return(nil)
	m.bookings.On("VoidTickets", mock.Anything, int64(42)).Return(nil)
	m.payments.On("UpdateStatusByOrderCode",
		mock.Anything, "bkg-test", domain.PaymentFailed, "checkout session expired").Return(nil)

	booking, err := r.Apply(context.Background(), "bkg-test", domain.ProviderExpired)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, booking.Status)
}

// An expired-session event for an earlier checkout session can arrive after a
// later session already settled the booking. It must not rewrite the payment
// rows of the settlement that won.
func TestApply_StaleExpiredEventKeepsSettledPayment(t *testing.T) {
	r, m := newTestReconciler()

	confirmed := pendingBooking()
	confirmed.Status = domain.BookingConfirmed
	m.bookings.On("GetByOrderCode", mock.Anything, "bkg-test").Return(confirmed, nil)

	booking, err := r.Apply(context.Background(), "bkg-test", domain.ProviderExpired)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, booking.Status)
	m.bookings.AssertNotCalled(t, "WithTx", mock.Anything, mock.Anything)
	m.payments.AssertNotCalled(t, "UpdateStatusByOrderCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApply_PendingIsNoop(t *testing.T) {
	r, m := newTestReconciler()

	m.bookings.On("GetByOrderCode", mock.Anything, "bkg-test").Return(pendingBooking(), nil)

	booking, err := r.Apply(context.Background(), "bkg-test", domain.ProviderPending)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, booking.Status)
	m.bookings.AssertNotCalled(t, "WithTx")
	m.payments.AssertNotCalled(t, "UpdateStatusByOrderCode")
}

// When the provider is unreachable the pull path serves local state instead
// of failing the request.
func TestCheckPayment_ProviderUnavailable(t *testing.T) {
	r, m := newTestReconciler()

	sessionID := "cs_test_123"
	localPayment := &domain.Payment{
		ID:                1,
		BookingID:         42,
		OrderCode:         "bkg-test",
		ProviderSessionID: &sessionID,
		Status:            domain.PaymentPending,
	}

	m.bookings.On("GetByOrderCode", mock.Anything, "bkg-test").Return(pendingBooking(), nil)
	m.payments.On("LatestByBooking", mock.Anything, int64(42)).Return(localPayment, nil)
	m.provider.On("GetPaymentStatus", mock.Anything, sessionID).
		Return(domain.ProviderStatus(""), domain.ErrProviderUnavailable)

	booking, payment, degraded, err := r.CheckPayment(context.Background(), "bkg-test")

	require.NoError(t, err)
	assert.True(t, degraded)
	assert.Equal(t, domain.BookingPending, booking.Status)
	assert.Equal(t, domain.PaymentPending, payment.Status)
}

func TestCheckPayment_NoPaymentAttempt(t *testing.T) {
	r, m := newTestReconciler()

	m.bookings.On("GetByOrderCode", mock.Anything, "bkg-test").Return(pendingBooking(), nil)
	m.payments.On("LatestByBooking", mock.Anything, int64(42)).Return(nil, domain.ErrRecordNotFound)

	booking, payment, degraded, err := r.CheckPayment(context.Background(), "bkg-test")

	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Nil(t, payment)
	assert.Equal(t, domain.BookingPending, booking.Status)
	m.provider.AssertNotCalled(t, "GetPaymentStatus")
}

func TestEnqueue_DropsDuplicateEvents(t *testing.T) {
	r, m := newTestReconciler()

	event := Event{ID: "evt_1", OrderCode: "bkg-test", Status: domain.ProviderPaid}

	m.redis.On("SetNX", mock.Anything, "stripe:event:evt_1", mock.Anything, mock.Anything).
		Return(redis.NewBoolResult(true, nil)).Once()
	m.redis.On("SetNX", mock.Anything, "stripe:event:evt_1", mock.Anything, mock.Anything).
		Return(redis.NewBoolResult(false, nil)).Once()

	require.NoError(t, r.Enqueue(context.Background(), event))
	require.NoError(t, r.Enqueue(context.Background(), event))

	assert.Len(t, r.events, 1)
}

// A delivery rejected for a full queue must release its dedup claim, so the
// provider's retry of the same event ID is accepted instead of being dropped
// as a duplicate.
func TestEnqueue_FullQueueReleasesDedupClaim(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	redisMock := &mocks.MockRedisClient{}

	r := NewReconciler(logger, nil, &mocks.MockPaymentRepo{}, &mocks.MockPaymentProvider{}, redisMock, 1)

	redisMock.On("SetNX", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(redis.NewBoolResult(true, nil))
	redisMock.On("Del", mock.Anything, []string{"stripe:event:evt_2"}).
		Return(redis.NewIntResult(1, nil)).Once()

	require.NoError(t, r.Enqueue(context.Background(), Event{ID: "evt_1", OrderCode: "a", Status: domain.ProviderPaid}))

	err := r.Enqueue(context.Background(), Event{ID: "evt_2", OrderCode: "b", Status: domain.ProviderPaid})
	require.Error(t, err)
	redisMock.AssertExpectations(t)

	// Queue drains, the provider redelivers.
	<-r.events

	require.NoError(t, r.Enqueue(context.Background(), Event{ID: "evt_2", OrderCode: "b", Status: domain.ProviderPaid}))
	require.Len(t, r.events, 1)
	assert.Equal(t, "evt_2", (<-r.events).ID)
}
