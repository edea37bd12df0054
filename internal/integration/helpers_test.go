package integration_test

import (
	"context"
	"strconv"

	"github.com/cinex/reservation-core/internal/domain"
	"github.com/cinex/reservation-core/internal/reservation"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// staticProvider stands in for the payment provider. Push-path tests never
// reach it; pull-path tests configure the outcome they need.
type staticProvider struct {
	status domain.ProviderStatus
	err    error
}

func (p staticProvider) CreatePaymentLink(
	ctx context.Context,
	booking *domain.Booking,
	showtime *domain.Showtime) (*domain.PaymentLink, error) {

	return &domain.PaymentLink{
		URL:               "https://pay.example.com/" + booking.OrderCode,
		ProviderSessionID: "cs_" + booking.OrderCode,
	}, nil
}

func (p staticProvider) GetPaymentStatus(ctx context.Context, providerSessionID string) (domain.ProviderStatus, error) {
	return p.status, p.err
}

func seatPositions(labels ...string) []domain.SeatPosition {
	positions := make([]domain.SeatPosition, 0, len(labels))

	for _, label := range labels {
		i := 0
		for i < len(label) && label[i] >= 'A' && label[i] <= 'Z' {
			i++
		}
		col, _ := strconv.Atoi(label[i:])
		positions = append(positions, domain.SeatPosition{Row: label[:i], Col: col})
	}

	return positions
}

func (s *BaseSuite) holdLabels(labels ...string) (*domain.Booking, error) {
	return s.reservations.CreateHold(context.Background(), reservation.CreateHoldParams{
		ShowtimeID:    testShowtimeID,
		Seats:         seatPositions(labels...),
		PaymentMethod: "online",
	})
}

func (s *BaseSuite) holdWithPromo(promoCode string, points int, labels ...string) (*domain.Booking, error) {
	userID := int64(1)

	return s.reservations.CreateHold(context.Background(), reservation.CreateHoldParams{
		ShowtimeID:    testShowtimeID,
		UserID:        &userID,
		Seats:         seatPositions(labels...),
		PromoCode:     promoCode,
		Points:        points,
		PaymentMethod: "online",
	})
}

// seatStatuses reads the authoritative availability snapshot and flattens it
// to label -> status for comparison with cmp.Diff.
func (s *BaseSuite) seatStatuses() map[string]string {
	snapshot, err := s.availability.Snapshot(context.Background(), testShowtimeID)
	s.Require().NoError(err)

	statuses := make(map[string]string, snapshot.Size())
	for _, label := range snapshot.RowLabels() {
		for _, state := range snapshot.Row(label) {
			statuses[state.Seat.Position.String()] = string(state.Status)
		}
	}

	return statuses
}

// assertSeatStatuses checks the given seats and ignores the rest of the hall.
func (s *BaseSuite) assertSeatStatuses(want map[string]string) {
	got := s.seatStatuses()

	opts := cmpopts.IgnoreMapEntries(func(label string, _ string) bool {
		_, tracked := want[label]
		return !tracked
	})

	if diff := cmp.Diff(want, got, opts); diff != "" {
		s.T().Errorf("seat status mismatch (-want +got):\n%s", diff)
	}
}

func (s *BaseSuite) bookingStatus(orderCode string) string {
	var status string
	err := s.db.QueryRow(context.Background(),
		`SELECT status FROM bookings WHERE order_code = $1`, orderCode).Scan(&status)
	s.Require().NoError(err)

	return status
}

func (s *BaseSuite) activeTicketCount(bookingID int64) int {
	var count int
	err := s.db.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM tickets WHERE booking_id = $1 AND status = 'active'`, bookingID).Scan(&count)
	s.Require().NoError(err)

	return count
}

func (s *BaseSuite) lapseHold(bookingID int64) {
	_, err := s.db.Exec(context.Background(),
		`UPDATE bookings SET hold_expires_at = NOW() - INTERVAL '1 minute' WHERE id = $1`, bookingID)
	s.Require().NoError(err)
}
