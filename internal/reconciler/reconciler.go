// Package reconciler converges booking state with the payment provider's
// view. Webhook deliveries and on-demand status polls both funnel into one
// idempotent Apply, so a result reported twice, or over both channels at
// once, settles the booking exactly once.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cinex/reservation-core/internal/domain"
	"github.com/cinex/reservation-core/internal/reservation"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	eventDedupTTL = 24 * time.Hour
	applyTimeout  = 15 * time.Second
)

// Event is one provider notification, already verified and normalized by the
// transport layer.
type Event struct {
	ID        string
	OrderCode string
	Status    domain.ProviderStatus
}

type Reconciler struct {
	logger   *slog.Logger
	service  *reservation.Service
	payments domain.PaymentRepository
	provider domain.PaymentProvider
	redis    redis.UniversalClient

	events chan Event
	done   chan struct{}

	eventsApplied metric.Int64Counter
	eventsDropped metric.Int64Counter
	lateSettles   metric.Int64Counter
}

func NewReconciler(
	logger *slog.Logger,
	service *reservation.Service,
	payments domain.PaymentRepository,
	provider domain.PaymentProvider,
	redisClient redis.UniversalClient,
	queueSize int) *Reconciler {

	meter := otel.Meter("github.com/cinex/reservation-core/internal/reconciler")

	eventsApplied, _ := meter.Int64Counter("reconciler.events_applied")
	eventsDropped, _ := meter.Int64Counter("reconciler.events_dropped")
	lateSettles, _ := meter.Int64Counter("reconciler.late_settlements")

	return &Reconciler{
		logger:        logger,
		service:       service,
		payments:      payments,
		provider:      provider,
		redis:         redisClient,
		events:        make(chan Event, queueSize),
		done:          make(chan struct{}),
		eventsApplied: eventsApplied,
		eventsDropped: eventsDropped,
		lateSettles:   lateSettles,
	}
}

// Enqueue hands a verified provider event to the background worker. Duplicate
// deliveries of the same event ID are dropped here. A full queue is reported
// to the caller so the provider retries the delivery later.
func (r *Reconciler) Enqueue(ctx context.Context, event Event) error {
	fresh, err := r.redis.SetNX(ctx, dedupKey(event.ID), 1, eventDedupTTL).Result()
	if err != nil {
		// Dedup is an optimization. Apply is idempotent, so on a cache
		// failure we process the event anyway.
		r.logger.Warn("event dedup check failed, processing anyway", "event_id", event.ID, "error", err)
	} else if !fresh {
		r.logger.Info("dropping duplicate provider event", "event_id", event.ID, "order_code", event.OrderCode)
		return nil
	}

	select {
	case r.events <- event:
		return nil
	default:
		// Release the dedup claim, otherwise the provider's retry of this
		// delivery would be mistaken for a duplicate and ACKed without ever
		// reaching the queue.
		if err := r.redis.Del(ctx, dedupKey(event.ID)).Err(); err != nil {
			r.logger.Warn("failed to release dedup claim for rejected event", "event_id", event.ID, "error", err)
		}

		r.eventsDropped.Add(ctx, 1)
		return fmt.Errorf("reconciler queue is full")
	}
}

// Start runs the worker goroutine until ctx is cancelled. A panicking event
// never takes the worker down.
func (r *Reconciler) Start(ctx context.Context) {
	go func() {
		defer close(r.done)

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-r.events:
				r.process(event)
			}
		}
	}()
}

// Wait blocks until the worker has stopped.
func (r *Reconciler) Wait() {
	<-r.done
}

func (r *Reconciler) process(event Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("recovered panic while applying provider event",
				"event_id", event.ID, "order_code", event.OrderCode, "panic", fmt.Sprintf("%v", rec))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()

	if _, err := r.Apply(ctx, event.OrderCode, event.Status); err != nil {
		r.logger.Error("failed to apply provider event",
			"event_id", event.ID, "order_code", event.OrderCode, "status", event.Status, "error", err)
	}
}

// Apply settles a booking against one provider-reported payment outcome. It
// is idempotent: replays and push/pull races resolve to the state set by the
// first successful application.
func (r *Reconciler) Apply(
	ctx context.Context,
	orderCode string,
	status domain.ProviderStatus) (*domain.Booking, error) {

	booking, err := r.service.GetBooking(ctx, orderCode)
	if err != nil {
		return nil, err
	}

	switch status {
	case domain.ProviderPaid:
		return r.applyPaid(ctx, booking)
	case domain.ProviderCancelled, domain.ProviderExpired:
		return r.applyAbandoned(ctx, booking, status)
	default:
		return booking, nil
	}
}

func (r *Reconciler) applyPaid(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	confirmed, err := r.service.ConfirmSale(ctx, booking.ID)

	switch {
	case err == nil:
		booking = confirmed

	case errors.Is(err, domain.ErrBookingExpired):
		// The money arrived after the hold lapsed and the seats are gone.
		// Record the paid attempt so operations can refund it.
		r.lateSettles.Add(ctx, 1)
		r.logger.Warn("payment settled after hold expiration, refund needed",
			"booking_id", booking.ID, "order_code", booking.OrderCode)

		booking = confirmed

		if updErr := r.payments.UpdateStatusByOrderCode(
			ctx, booking.OrderCode, domain.PaymentPaid, "settled after hold expiration"); updErr != nil {
			return booking, updErr
		}

		return booking, nil

	case errors.Is(err, domain.ErrBookingNotPending):
		// Replay of an outcome that already settled. Nothing to do beyond
		// making sure the payment row agrees.
		if booking.Status != domain.BookingConfirmed {
			r.logger.Warn("paid event for a booking settled otherwise",
				"booking_id", booking.ID, "order_code", booking.OrderCode, "booking_status", booking.Status)
			return booking, nil
		}

	default:
		return nil, err
	}

	if err := r.payments.UpdateStatusByOrderCode(ctx, booking.OrderCode, domain.PaymentPaid, ""); err != nil {
		return booking, err
	}

	r.eventsApplied.Add(ctx, 1)

	return booking, nil
}

func (r *Reconciler) applyAbandoned(
	ctx context.Context,
	booking *domain.Booking,
	status domain.ProviderStatus) (*domain.Booking, error) {

	if booking.Status.Terminal() {
		// The booking settled some other way first. A stale abandonment of
		// an earlier checkout session must not touch its payment rows.
		r.logger.Info("ignoring abandoned-payment event for settled booking",
			"booking_id", booking.ID, "order_code", booking.OrderCode, "booking_status", booking.Status)
		return booking, nil
	}

	cancelled, err := r.service.CancelHold(ctx, booking.ID, "payment "+string(status))
	if err != nil && !errors.Is(err, domain.ErrReversalFailed) {
		return nil, err
	}

	if cancelled != nil {
		booking = cancelled
	}

	if booking.Status != domain.BookingCancelled {
		// Lost the race to another settlement between the read above and the
		// cancel transaction.
		return booking, nil
	}

	paymentStatus := domain.PaymentCancelled
	errMsg := ""
	if status == domain.ProviderExpired {
		paymentStatus = domain.PaymentFailed
		errMsg = "checkout session expired"
	}

	if updErr := r.payments.UpdateStatusByOrderCode(ctx, booking.OrderCode, paymentStatus, errMsg); updErr != nil {
		return booking, updErr
	}

	r.eventsApplied.Add(ctx, 1)

	return booking, err
}

// CheckPayment is the pull path: it polls the provider for the booking's
// latest payment attempt and applies the result. When the provider cannot be
// reached the local state is returned untouched, marked degraded.
func (r *Reconciler) CheckPayment(
	ctx context.Context,
	orderCode string) (*domain.Booking, *domain.Payment, bool, error) {

	booking, err := r.service.GetBooking(ctx, orderCode)
	if err != nil {
		return nil, nil, false, err
	}

	payment, err := r.payments.LatestByBooking(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return booking, nil, false, nil
		}

		return nil, nil, false, err
	}

	if booking.Status.Terminal() || payment.Status != domain.PaymentPending || payment.ProviderSessionID == nil {
		return booking, payment, false, nil
	}

	status, err := r.provider.GetPaymentStatus(ctx, *payment.ProviderSessionID)
	if err != nil {
		r.logger.Warn("provider unreachable, serving local payment state",
			"order_code", orderCode, "error", err)
		return booking, payment, true, nil
	}

	booking, err = r.Apply(ctx, orderCode, status)
	if err != nil {
		return nil, nil, false, err
	}

	payment, err = r.payments.LatestByBooking(ctx, booking.ID)
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, nil, false, err
	}

	return booking, payment, false, nil
}

func dedupKey(eventID string) string {
	return "stripe:event:" + eventID
}
