package app

import (
	"errors"
	"net/http"

	"github.com/cinex/reservation-core/api"
	"github.com/cinex/reservation-core/internal/domain"
)

func (app *application) GetSeatMapByShowtime(w http.ResponseWriter, r *http.Request) {
	showtimeID, err := app.readInt64Param(r, "showtimeId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	showtime, err := app.seatRepo.GetShowtime(r.Context(), showtimeID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	snapshot, err := app.availability.CachedSnapshot(r.Context(), showtimeID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toSeatMapResponse(showtime, snapshot), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toSeatMapResponse(showtime *domain.Showtime, snapshot *domain.SeatMap) api.SeatMapResponse {
	resp := api.SeatMapResponse{
		ShowtimeId: showtime.ID,
		HallName:   showtime.HallName,
		MovieTitle: showtime.MovieTitle,
		StartsAt:   showtime.StartsAt,
		SeatRows:   make([]api.SeatRow, 0, len(snapshot.RowLabels())),
	}

	for _, label := range snapshot.RowLabels() {
		row := api.SeatRow{Row: label}

		for _, state := range snapshot.Row(label) {
			row.Seats = append(row.Seats, api.Seat{
				Label:  state.Seat.Position.String(),
				Type:   state.Seat.Type,
				Status: string(state.Status),
				Column: state.Seat.Position.Col,
			})
		}

		resp.SeatRows = append(resp.SeatRows, row)
	}

	return resp
}
