package mailer

import (
	"io"
	"log/slog"
	"testing"

	"github.com/cinex/reservation-core/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier() (*BookingNotifier, *MockMailer) {
	mock := NewMockMailer()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewBookingNotifier(mock, logger), mock
}

func TestBookingConfirmedSendsToContact(t *testing.T) {
	notifier, mock := newTestNotifier()

	email := "guest@example.com"
	notifier.BookingConfirmed(&domain.Booking{
		OrderCode:    "bkg-test",
		ContactEmail: &email,
		TotalAmount:  decimal.NewFromInt(20),
		Tickets: []domain.Ticket{
			{Position: domain.SeatPosition{Row: "A", Col: 1}},
			{Position: domain.SeatPosition{Row: "A", Col: 2}},
		},
	})

	sent := mock.SentEmails()
	require.Len(t, sent, 1)
	assert.Equal(t, "guest@example.com", sent[0].Recipient)
	assert.Equal(t, "booking_confirmed.tmpl", sent[0].TemplateFile)

	data, ok := sent[0].Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "A1, A2", data["Seats"])
	assert.Equal(t, "20.00", data["Total"])
}

func TestBookingCancelledSendsReason(t *testing.T) {
	notifier, mock := newTestNotifier()

	email := "guest@example.com"
	notifier.BookingCancelled(&domain.Booking{
		OrderCode:    "bkg-test",
		ContactEmail: &email,
	}, "payment expired")

	sent := mock.SentEmails()
	require.Len(t, sent, 1)
	assert.Equal(t, "booking_cancelled.tmpl", sent[0].TemplateFile)

	data, ok := sent[0].Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "payment expired", data["Reason"])
}

func TestNotifierSkipsBookingsWithoutContact(t *testing.T) {
	notifier, mock := newTestNotifier()

	notifier.BookingConfirmed(&domain.Booking{OrderCode: "bkg-test"})
	notifier.BookingCancelled(&domain.Booking{OrderCode: "bkg-test"}, "whatever")

	assert.Empty(t, mock.SentEmails())
}
