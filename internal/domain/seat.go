package domain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SeatStatus is the effective, derived status of a seat for one showtime.
// It is never stored: Held and Sold are computed from active tickets.
type SeatStatus string

const (
	SeatFree SeatStatus = "free"
	SeatHeld SeatStatus = "held"
	SeatSold SeatStatus = "sold"
)

// SeatPosition identifies one layout position inside a hall.
type SeatPosition struct {
	Row string `json:"row"`
	Col int    `json:"col"`
}

func (p SeatPosition) String() string {
	return fmt.Sprintf("%s%d", p.Row, p.Col)
}

// SeatLayout is one static catalog entry of a hall. Read-only reference data.
type SeatLayout struct {
	ID       int64
	HallID   int64
	Position SeatPosition
	Type     string
}

type Showtime struct {
	ID         int64
	HallID     int64
	HallName   string
	MovieTitle string
	StartsAt   time.Time
	BasePrice  decimal.Decimal
}

// SeatState pairs a layout position with its derived status.
type SeatState struct {
	Seat   SeatLayout
	Status SeatStatus
}

// SeatMap is an availability snapshot: every layout position of a showtime's
// hall with its derived status at read time.
type SeatMap struct {
	ShowtimeID int64

	rowLabels []string
	rows      map[string][]SeatState
	byPos     map[SeatPosition]*SeatState
}

// NewSeatMap builds a snapshot from the hall layout and the seat IDs currently
// taken by active tickets (Held for pending bookings, Sold for confirmed ones).
func NewSeatMap(showtimeID int64, layout []SeatLayout, taken map[int64]SeatStatus) *SeatMap {
	m := &SeatMap{
		ShowtimeID: showtimeID,
		rows:       make(map[string][]SeatState),
		byPos:      make(map[SeatPosition]*SeatState, len(layout)),
	}

	for _, seat := range layout {
		status, ok := taken[seat.ID]
		if !ok {
			status = SeatFree
		}

		m.rows[seat.Position.Row] = append(m.rows[seat.Position.Row], SeatState{Seat: seat, Status: status})
	}

	for label, seats := range m.rows {
		sort.Slice(seats, func(i, j int) bool {
			return seats[i].Seat.Position.Col < seats[j].Seat.Position.Col
		})
		m.rowLabels = append(m.rowLabels, label)

		for i := range seats {
			m.byPos[seats[i].Seat.Position] = &seats[i]
		}
	}

	sort.Strings(m.rowLabels)

	return m
}

// RowLabels returns the row labels in ascending order.
func (m *SeatMap) RowLabels() []string {
	return m.rowLabels
}

// Row returns the seats of one row ordered by column. Nil for unknown rows.
func (m *SeatMap) Row(label string) []SeatState {
	return m.rows[label]
}

// Status reports the derived status of a position and whether the position
// exists in the layout at all.
func (m *SeatMap) Status(pos SeatPosition) (SeatStatus, bool) {
	state, ok := m.byPos[pos]
	if !ok {
		return "", false
	}

	return state.Status, true
}

// Seat resolves a position to its catalog entry.
func (m *SeatMap) Seat(pos SeatPosition) (SeatLayout, bool) {
	state, ok := m.byPos[pos]
	if !ok {
		return SeatLayout{}, false
	}

	return state.Seat, true
}

func (m *SeatMap) Size() int {
	return len(m.byPos)
}

type SeatRepository interface {
	GetShowtime(ctx context.Context, showtimeID int64) (*Showtime, error)
	LayoutByShowtime(ctx context.Context, showtimeID int64) ([]SeatLayout, error)
}
