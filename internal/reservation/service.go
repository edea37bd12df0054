// Package reservation owns the booking state machine: hold creation, sale
// confirmation, cancellation and expiration. Every transition that reads and
// then writes seat or booking state runs as one transaction against the
// shared store.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cinex/reservation-core/internal/availability"
	"github.com/cinex/reservation-core/internal/domain"
	"github.com/cinex/reservation-core/internal/rules"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Notifier receives booking state changes. Implementations are fire-and-
// forget; their failures never roll back a transition.
type Notifier interface {
	BookingConfirmed(booking *domain.Booking)
	BookingCancelled(booking *domain.Booking, reason string)
}

type Config struct {
	// HoldDuration is the single pending-payment window applied to every
	// hold, regardless of which path created it.
	HoldDuration time.Duration

	// MaxSeatsPerBooking caps one hold request.
	MaxSeatsPerBooking int
}

type Service struct {
	config       Config
	logger       *slog.Logger
	bookings     domain.BookingRepository
	availability *availability.Index
	pricer       domain.Pricer
	promotions   domain.PromotionService
	notifier     Notifier

	now func() time.Time

	holdsCreated     metric.Int64Counter
	holdConflicts    metric.Int64Counter
	bookingsExpired  metric.Int64Counter
	reversalFailures metric.Int64Counter
}

func NewService(
	config Config,
	logger *slog.Logger,
	bookings domain.BookingRepository,
	idx *availability.Index,
	pricer domain.Pricer,
	promotions domain.PromotionService,
	notifier Notifier) *Service {

	meter := otel.Meter("github.com/cinex/reservation-core/internal/reservation")

	holdsCreated, _ := meter.Int64Counter("bookings.holds_created")
	holdConflicts, _ := meter.Int64Counter("bookings.hold_conflicts")
	bookingsExpired, _ := meter.Int64Counter("bookings.expired")
	reversalFailures, _ := meter.Int64Counter("bookings.reversal_failures")

	return &Service{
		config:           config,
		logger:           logger,
		bookings:         bookings,
		availability:     idx,
		pricer:           pricer,
		promotions:       promotions,
		notifier:         notifier,
		now:              time.Now,
		holdsCreated:     holdsCreated,
		holdConflicts:    holdConflicts,
		bookingsExpired:  bookingsExpired,
		reversalFailures: reversalFailures,
	}
}

type CreateHoldParams struct {
	ShowtimeID    int64
	UserID        *int64
	Seats         []domain.SeatPosition
	PromoCode     string
	Points        int
	PaymentMethod string
	ContactEmail  *string
}

// CreateHold validates the requested seats against a snapshot taken inside
// the same transaction that writes the hold, so two overlapping concurrent
// requests can never both observe the seats as free. Exactly one wins; the
// other fails with *domain.SeatUnavailableError.
func (s *Service) CreateHold(ctx context.Context, params CreateHoldParams) (*domain.Booking, error) {
	seats := dedupePositions(params.Seats)

	if len(seats) == 0 {
		return nil, fmt.Errorf("at least one seat is required")
	}

	if len(seats) > s.config.MaxSeatsPerBooking {
		return nil, fmt.Errorf("%w: requested %d, limit is %d",
			domain.ErrSeatLimitExceeded, len(seats), s.config.MaxSeatsPerBooking)
	}

	var booking *domain.Booking

	err := s.bookings.WithTx(ctx, func(ctx context.Context) error {
		showtime, err := s.bookings.GetShowtimeForUpdate(ctx, params.ShowtimeID)
		if err != nil {
			return err
		}

		snapshot, err := s.availability.Snapshot(ctx, params.ShowtimeID)
		if err != nil {
			return err
		}

		result, err := rules.ValidateSelection(snapshot, seats)
		if err != nil {
			return err
		}

		for _, gap := range result.PairGaps {
			s.logger.Info("hold leaves a two-seat gap, still sellable as a pair",
				"showtime_id", params.ShowtimeID, "gap", fmt.Sprintf("%v", gap))
		}

		orderCode := newOrderCode()
		gross := decimal.Zero
		tickets := make([]domain.Ticket, 0, len(seats))

		for _, pos := range seats {
			seat, _ := snapshot.Seat(pos)
			price := s.pricer.Price(showtime, seat.Type)
			gross = gross.Add(price)

			tickets = append(tickets, domain.Ticket{
				TicketCode: newTicketCode(),
				ShowtimeID: params.ShowtimeID,
				SeatID:     seat.ID,
				Position:   pos,
				SeatType:   seat.Type,
				Price:      price,
				Status:     domain.TicketActive,
			})
		}

		discount := decimal.Zero
		if params.PromoCode != "" || params.Points > 0 {
			discount, err = s.promotions.Apply(ctx, orderCode, params.UserID, params.PromoCode, params.Points, gross)
			if err != nil {
				return fmt.Errorf("applying promotion: %w", err)
			}
		}

		total := gross.Sub(discount)
		if total.IsNegative() {
			total = decimal.Zero
		}

		now := s.now()
		booking = &domain.Booking{
			OrderCode:      orderCode,
			UserID:         params.UserID,
			ShowtimeID:     params.ShowtimeID,
			Status:         domain.BookingPending,
			TotalAmount:    total,
			DiscountAmount: discount,
			PointsUsed:     params.Points,
			PaymentMethod:  params.PaymentMethod,
			ContactEmail:   params.ContactEmail,
			HoldExpiresAt:  now.Add(s.config.HoldDuration),
		}
		if params.PromoCode != "" {
			booking.PromoCode = &params.PromoCode
		}

		if err := s.bookings.CreateBooking(ctx, booking); err != nil {
			return err
		}

		for i := range tickets {
			tickets[i].BookingID = booking.ID
		}

		if err := s.bookings.CreateTickets(ctx, tickets); err != nil {
			return err
		}

		booking.Tickets = tickets

		return nil
	})

	if err != nil {
		var unavailable *domain.SeatUnavailableError
		if errors.As(err, &unavailable) {
			s.holdConflicts.Add(ctx, 1)
		}

		return nil, err
	}

	s.holdsCreated.Add(ctx, 1)
	s.availability.Invalidate(ctx, params.ShowtimeID)

	return booking, nil
}

// ConfirmSale transitions a pending booking to confirmed. If the hold
// deadline has already passed, the booking is expired on the spot and the
// caller gets domain.ErrBookingExpired, distinct from a seat conflict.
func (s *Service) ConfirmSale(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	var booking *domain.Booking
	var lapsed bool

	err := s.bookings.WithTx(ctx, func(ctx context.Context) error {
		var err error

		booking, err = s.bookings.GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}

		if booking.Status != domain.BookingPending {
			return domain.ErrBookingNotPending
		}

		if s.now().After(booking.HoldExpiresAt) {
			lapsed = true

			if err := s.bookings.UpdateStatus(ctx, bookingID, domain.BookingExpired); err != nil {
				return err
			}

			booking.Status = domain.BookingExpired

			return s.bookings.VoidTickets(ctx, bookingID)
		}

		if err := s.bookings.UpdateStatus(ctx, bookingID, domain.BookingConfirmed); err != nil {
			return err
		}

		booking.Status = domain.BookingConfirmed

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.availability.Invalidate(ctx, booking.ShowtimeID)

	if lapsed {
		s.bookingsExpired.Add(ctx, 1)
		s.reverseSideEffects(ctx, booking)

		return booking, domain.ErrBookingExpired
	}

	s.notify(func(n Notifier) { n.BookingConfirmed(booking) })

	return booking, nil
}

// CancelHold releases a pending booking's seats and reverses promotion and
// point usage. Cancelling an already-terminal booking is a no-op success.
func (s *Service) CancelHold(ctx context.Context, bookingID int64, reason string) (*domain.Booking, error) {
	var booking *domain.Booking
	var alreadyTerminal bool

	err := s.bookings.WithTx(ctx, func(ctx context.Context) error {
		var err error

		booking, err = s.bookings.GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}

		if booking.Status != domain.BookingPending {
			alreadyTerminal = true
			return nil
		}

		if err := s.bookings.UpdateStatus(ctx, bookingID, domain.BookingCancelled); err != nil {
			return err
		}

		booking.Status = domain.BookingCancelled

		return s.bookings.VoidTickets(ctx, bookingID)
	})
	if err != nil {
		return nil, err
	}

	if alreadyTerminal {
		return booking, nil
	}

	s.availability.Invalidate(ctx, booking.ShowtimeID)
	s.reverseSideEffects(ctx, booking)
	s.notify(func(n Notifier) { n.BookingCancelled(booking, reason) })

	return booking, nil
}

// ExpireBooking force-transitions a pending booking to expired, voiding its
// tickets so the seats become free. The recurring sweep and the manual
// administrative path both land here; whoever commits first wins and the
// loser observes domain.ErrBookingNotPending.
func (s *Service) ExpireBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	var booking *domain.Booking

	err := s.bookings.WithTx(ctx, func(ctx context.Context) error {
		var err error

		booking, err = s.bookings.GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}

		if booking.Status != domain.BookingPending {
			return domain.ErrBookingNotPending
		}

		if err := s.bookings.UpdateStatus(ctx, bookingID, domain.BookingExpired); err != nil {
			return err
		}

		booking.Status = domain.BookingExpired

		return s.bookings.VoidTickets(ctx, bookingID)
	})
	if err != nil {
		return nil, err
	}

	s.bookingsExpired.Add(ctx, 1)
	s.availability.Invalidate(ctx, booking.ShowtimeID)

	if err := s.reverseSideEffects(ctx, booking); err != nil {
		return booking, err
	}

	return booking, nil
}

// RetryReversal re-attempts a promotion/points reversal that failed during an
// earlier cancel or expire.
func (s *Service) RetryReversal(ctx context.Context, bookingID int64) error {
	booking, err := s.bookings.GetForUpdate(ctx, bookingID)
	if err != nil {
		return err
	}

	return s.reverseSideEffects(ctx, booking)
}

// reverseSideEffects undoes promotion and point usage after a terminal
// transition has committed. The transition is never rolled back for a failed
// reversal; the booking is flagged and the sweeper retries.
func (s *Service) reverseSideEffects(ctx context.Context, booking *domain.Booking) error {
	if booking.PromoCode == nil && booking.PointsUsed == 0 && !booking.ReversalPending {
		return nil
	}

	if err := s.promotions.Reverse(ctx, booking.OrderCode); err != nil {
		s.reversalFailures.Add(ctx, 1)
		s.logger.Error("promotion/points reversal failed, flagged for retry",
			"booking_id", booking.ID, "order_code", booking.OrderCode, "error", err)

		if flagErr := s.bookings.SetReversalPending(ctx, booking.ID, true); flagErr != nil {
			s.logger.Error("failed to flag booking for reversal retry", "booking_id", booking.ID, "error", flagErr)
		}

		return fmt.Errorf("%w: %v", domain.ErrReversalFailed, err)
	}

	if booking.ReversalPending {
		if err := s.bookings.SetReversalPending(ctx, booking.ID, false); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) GetBooking(ctx context.Context, orderCode string) (*domain.Booking, error) {
	return s.bookings.GetByOrderCode(ctx, orderCode)
}

func (s *Service) BookingsOfUser(
	ctx context.Context,
	userID int64,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	return s.bookings.SummariesByUser(ctx, userID, pagination)
}

func (s *Service) notify(fn func(Notifier)) {
	if s.notifier == nil {
		return
	}

	go fn(s.notifier)
}

func dedupePositions(positions []domain.SeatPosition) []domain.SeatPosition {
	seen := make(map[domain.SeatPosition]bool, len(positions))
	out := make([]domain.SeatPosition, 0, len(positions))

	for _, pos := range positions {
		if !seen[pos] {
			seen[pos] = true
			out = append(out, pos)
		}
	}

	return out
}

func newOrderCode() string {
	return "bkg-" + uuid.New().String()
}

func newTicketCode() string {
	return "tkt-" + uuid.New().String()
}
