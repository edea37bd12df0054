// Package sweeper expires overdue pending bookings on a schedule, freeing
// their seats, and retries promotion reversals that failed earlier.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cinex/reservation-core/internal/domain"
	"github.com/cinex/reservation-core/internal/reservation"
	"github.com/go-co-op/gocron/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type Sweeper struct {
	logger   *slog.Logger
	service  *reservation.Service
	bookings domain.BookingRepository
	interval time.Duration

	scheduler gocron.Scheduler
	now       func() time.Time

	sweepsRun    metric.Int64Counter
	sweepErrors  metric.Int64Counter
	sweepSkipped metric.Int64Counter
}

func NewSweeper(
	logger *slog.Logger,
	service *reservation.Service,
	bookings domain.BookingRepository,
	interval time.Duration) *Sweeper {

	meter := otel.Meter("github.com/cinex/reservation-core/internal/sweeper")

	sweepsRun, _ := meter.Int64Counter("sweeper.bookings_expired")
	sweepErrors, _ := meter.Int64Counter("sweeper.errors")
	sweepSkipped, _ := meter.Int64Counter("sweeper.benign_races")

	return &Sweeper{
		logger:       logger,
		service:      service,
		bookings:     bookings,
		interval:     interval,
		now:          time.Now,
		sweepsRun:    sweepsRun,
		sweepErrors:  sweepErrors,
		sweepSkipped: sweepSkipped,
	}
}

// Start schedules the recurring sweep. The first run fires immediately so a
// restart catches up with anything that lapsed while the process was down.
func (s *Sweeper) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating sweep scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			if err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("sweep run failed", "error", err)
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("registering sweep job: %w", err)
	}

	s.scheduler = scheduler
	scheduler.Start()

	return nil
}

func (s *Sweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}

	return s.scheduler.Shutdown()
}

// SweepOnce expires every booking whose hold deadline has passed, each in its
// own transaction so one failure never blocks the rest of the batch, then
// retries outstanding reversals.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	ids, err := s.bookings.ExpiredPendingIDs(ctx, s.now())
	if err != nil {
		return fmt.Errorf("listing overdue bookings: %w", err)
	}

	var failed int

	for _, id := range ids {
		switch _, err := s.service.ExpireBooking(ctx, id); {
		case err == nil:
			s.sweepsRun.Add(ctx, 1)

		case errors.Is(err, domain.ErrBookingNotPending):
			// Someone else settled the booking between listing and locking.
			s.sweepSkipped.Add(ctx, 1)

		case errors.Is(err, domain.ErrReversalFailed):
			// The expiration itself committed; the reversal retry below and
			// in later sweeps picks this up.
			s.logger.Warn("booking expired with reversal outstanding", "booking_id", id)

		default:
			failed++
			s.sweepErrors.Add(ctx, 1)
			s.logger.Error("failed to expire booking", "booking_id", id, "error", err)
		}
	}

	s.retryReversals(ctx)

	if failed > 0 {
		return fmt.Errorf("%d of %d overdue bookings could not be expired", failed, len(ids))
	}

	return nil
}

func (s *Sweeper) retryReversals(ctx context.Context) {
	ids, err := s.bookings.ReversalPendingIDs(ctx)
	if err != nil {
		s.logger.Error("listing bookings with pending reversals", "error", err)
		return
	}

	for _, id := range ids {
		if err := s.service.RetryReversal(ctx, id); err != nil {
			s.logger.Warn("reversal retry failed, will retry next sweep", "booking_id", id, "error", err)
		}
	}
}

// NearExpiration lists pending bookings whose hold deadline falls within the
// next window, for operational dashboards.
func (s *Sweeper) NearExpiration(ctx context.Context, window time.Duration) ([]domain.Booking, error) {
	return s.bookings.NearExpiration(ctx, s.now(), window)
}
