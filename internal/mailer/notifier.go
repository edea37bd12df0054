package mailer

import (
	"log/slog"
	"strings"

	"github.com/cinex/reservation-core/internal/domain"
)

// BookingNotifier emails the booking contact on state changes. Bookings made
// without a contact address are skipped silently; notification is best
// effort, never part of the transition.
type BookingNotifier struct {
	mailer Mailer
	logger *slog.Logger
}

func NewBookingNotifier(mailer Mailer, logger *slog.Logger) *BookingNotifier {
	return &BookingNotifier{
		mailer: mailer,
		logger: logger,
	}
}

func (n *BookingNotifier) BookingConfirmed(booking *domain.Booking) {
	if booking.ContactEmail == nil {
		return
	}

	data := map[string]any{
		"OrderCode": booking.OrderCode,
		"Seats":     seatLabels(booking),
		"Total":     booking.TotalAmount.StringFixed(2),
	}

	if err := n.mailer.Send(*booking.ContactEmail, "booking_confirmed.tmpl", data); err != nil {
		n.logger.Error("failed to send confirmation email", "order_code", booking.OrderCode, "error", err)
	}
}

func (n *BookingNotifier) BookingCancelled(booking *domain.Booking, reason string) {
	if booking.ContactEmail == nil {
		return
	}

	data := map[string]any{
		"OrderCode": booking.OrderCode,
		"Reason":    reason,
	}

	if err := n.mailer.Send(*booking.ContactEmail, "booking_cancelled.tmpl", data); err != nil {
		n.logger.Error("failed to send cancellation email", "order_code", booking.OrderCode, "error", err)
	}
}

func seatLabels(booking *domain.Booking) string {
	labels := make([]string, 0, len(booking.Tickets))
	for _, ticket := range booking.Tickets {
		labels = append(labels, ticket.Position.String())
	}

	return strings.Join(labels, ", ")
}
