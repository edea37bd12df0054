package app

import (
	"net/http"
	"testing"

	"github.com/cinex/reservation-core/api"
	"github.com/cinex/reservation-core/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetSeatMapByShowtime(t *testing.T) {
	app, m := newTestApplication()

	m.seats.On("GetShowtime", mock.Anything, int64(7)).Return(stubShowtime(), nil)
	m.seats.On("LayoutByShowtime", mock.Anything, int64(7)).Return(stubLayout(), nil)
	m.bookings.On("ActiveTicketsByShowtime", mock.Anything, int64(7)).
		Return(
			[]domain.Ticket{
				{ID: 1, BookingID: 9, SeatID: 1, Position: domain.SeatPosition{Row: "A", Col: 1}},
				{ID: 2, BookingID: 10, SeatID: 3, Position: domain.SeatPosition{Row: "A", Col: 3}},
			},
			map[int64]domain.BookingStatus{
				9:  domain.BookingPending,
				10: domain.BookingConfirmed,
			},
			nil,
		)

	w := executeRequest(t, app, http.MethodGet, "/showtimes/7/seats", nil)

	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse[api.SeatMapResponse](t, w)
	assert.Equal(t, int64(7), resp.ShowtimeId)
	assert.Equal(t, "Hall 1", resp.HallName)
	require.Len(t, resp.SeatRows, 1)
	require.Len(t, resp.SeatRows[0].Seats, 4)

	statuses := make(map[string]string)
	for _, seat := range resp.SeatRows[0].Seats {
		statuses[seat.Label] = seat.Status
	}

	assert.Equal(t, "held", statuses["A1"])
	assert.Equal(t, "free", statuses["A2"])
	assert.Equal(t, "sold", statuses["A3"])
	assert.Equal(t, "free", statuses["A4"])
}

func TestGetSeatMapByShowtime_UnknownShowtime(t *testing.T) {
	app, m := newTestApplication()

	m.seats.On("GetShowtime", mock.Anything, int64(999)).Return(nil, domain.ErrRecordNotFound)

	w := executeRequest(t, app, http.MethodGet, "/showtimes/999/seats", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSeatMapByShowtime_InvalidID(t *testing.T) {
	app, _ := newTestApplication()

	w := executeRequest(t, app, http.MethodGet, "/showtimes/abc/seats", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
