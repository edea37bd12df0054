// Package rules implements the seat-selection rules: adjacency of the
// requested block and protection against stranding single free seats. All
// functions are pure over an availability snapshot, so callers can evaluate
// them both for early feedback and inside the transaction that creates a hold.
package rules

import (
	"sort"

	"github.com/cinex/reservation-core/internal/domain"
)

// Result carries non-blocking findings of a validation pass.
type Result struct {
	// PairGaps lists runs of exactly two free seats the selection would leave
	// behind. Tolerated (a pair can still be sold together) but reported so
	// callers can log them.
	PairGaps [][]domain.SeatPosition
}

// ValidateSelection checks a requested seat set against a fresh availability
// snapshot. It returns a typed error naming the offending seats:
//
//   - *domain.UnknownSeatError if a position is not part of the layout
//   - *domain.SeatUnavailableError if a requested seat is not free
//   - *domain.AdjacencyError if the request is not one contiguous block
//   - *domain.OrphanSeatError if the request would strand a single free seat
func ValidateSelection(m *domain.SeatMap, req []domain.SeatPosition) (*Result, error) {
	if len(req) == 0 {
		return &Result{}, nil
	}

	for _, pos := range req {
		status, ok := m.Status(pos)
		if !ok {
			return nil, &domain.UnknownSeatError{Seat: pos}
		}
		if status != domain.SeatFree {
			return nil, &domain.SeatUnavailableError{Seat: pos, Status: status}
		}
	}

	if len(req) >= 2 {
		if err := checkAdjacency(m, req); err != nil {
			return nil, err
		}
	}

	return checkOrphans(m, req)
}

// checkAdjacency requires strictly consecutive columns within each requested
// row and, across rows, consecutive row labels in the hall's row order.
func checkAdjacency(m *domain.SeatMap, req []domain.SeatPosition) error {
	byRow := make(map[string][]int)
	for _, pos := range req {
		byRow[pos.Row] = append(byRow[pos.Row], pos.Col)
	}

	var missing []domain.SeatPosition

	for row, cols := range byRow {
		sort.Ints(cols)

		for i := 1; i < len(cols); i++ {
			for col := cols[i-1] + 1; col < cols[i]; col++ {
				missing = append(missing, domain.SeatPosition{Row: row, Col: col})
			}
		}
	}

	if len(byRow) > 1 {
		rowOrder := make(map[string]int, len(m.RowLabels()))
		for i, label := range m.RowLabels() {
			rowOrder[label] = i
		}

		indices := make([]int, 0, len(byRow))
		for row := range byRow {
			indices = append(indices, rowOrder[row])
		}
		sort.Ints(indices)

		cols := allColumns(req)

		for i := 1; i < len(indices); i++ {
			for skipped := indices[i-1] + 1; skipped < indices[i]; skipped++ {
				row := m.RowLabels()[skipped]
				for _, col := range cols {
					missing = append(missing, domain.SeatPosition{Row: row, Col: col})
				}
			}
		}
	}

	if len(missing) > 0 {
		sortPositions(missing)
		return &domain.AdjacencyError{Missing: missing}
	}

	return nil
}

// checkOrphans scans every row as if the requested seats were already held.
// A run of exactly one free seat bounded by non-free seats or row ends is an
// orphan; the selection is rejected when it created or touches one. Runs of
// exactly two are collected as warnings only.
func checkOrphans(m *domain.SeatMap, req []domain.SeatPosition) (*Result, error) {
	requested := make(map[domain.SeatPosition]bool, len(req))
	for _, pos := range req {
		requested[pos] = true
	}

	result := &Result{}

	for _, label := range m.RowLabels() {
		seats := m.Row(label)

		var run []domain.SeatPosition

		flush := func() error {
			defer func() { run = nil }()

			switch len(run) {
			case 0:
				return nil
			case 1:
				if touchesRequest(run[0], requested) {
					return &domain.OrphanSeatError{Seat: run[0]}
				}
			case 2:
				if touchesRequest(run[0], requested) || touchesRequest(run[1], requested) {
					result.PairGaps = append(result.PairGaps, []domain.SeatPosition{run[0], run[1]})
				}
			}

			return nil
		}

		for _, state := range seats {
			free := state.Status == domain.SeatFree && !requested[state.Seat.Position]
			if free {
				run = append(run, state.Seat.Position)
				continue
			}

			if err := flush(); err != nil {
				return nil, err
			}
		}

		if err := flush(); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// touchesRequest reports whether a free seat is next to one of the requested
// positions. Orphans that existed before the request are not this booking's
// fault and do not block it.
func touchesRequest(pos domain.SeatPosition, requested map[domain.SeatPosition]bool) bool {
	return requested[domain.SeatPosition{Row: pos.Row, Col: pos.Col - 1}] ||
		requested[domain.SeatPosition{Row: pos.Row, Col: pos.Col + 1}]
}

func allColumns(req []domain.SeatPosition) []int {
	seen := make(map[int]bool)
	var cols []int

	for _, pos := range req {
		if !seen[pos.Col] {
			seen[pos.Col] = true
			cols = append(cols, pos.Col)
		}
	}

	sort.Ints(cols)

	return cols
}

func sortPositions(positions []domain.SeatPosition) {
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Row != positions[j].Row {
			return positions[i].Row < positions[j].Row
		}
		return positions[i].Col < positions[j].Col
	})
}
