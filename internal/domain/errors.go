package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound      = errors.New("record not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrBookingNotPending   = errors.New("booking is not pending")
	ErrBookingExpired      = errors.New("booking hold has expired")
	ErrSeatLimitExceeded   = errors.New("too many seats requested")
	ErrInvalidPromoCode    = errors.New("promo code is invalid or inactive")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrReversalFailed      = errors.New("promotion/points reversal failed")
)

// SeatUnavailableError names the specific seat that is no longer free, so the
// UI can point at it instead of showing a generic conflict.
type SeatUnavailableError struct {
	Seat   SeatPosition
	Status SeatStatus
}

func (e *SeatUnavailableError) Error() string {
	if e.Seat == (SeatPosition{}) {
		// The conflict surfaced below the snapshot, where the losing seat
		// is not known.
		return "one of the selected seats is no longer available"
	}

	return fmt.Sprintf("seat %s is no longer available", e.Seat)
}

// AdjacencyError carries the exact positions that would make the selection
// contiguous, so the caller can suggest them.
type AdjacencyError struct {
	Missing []SeatPosition
}

func (e *AdjacencyError) Error() string {
	return fmt.Sprintf("selected seats are not adjacent, missing %v", e.Missing)
}

// OrphanSeatError reports the single free seat the selection would strand.
type OrphanSeatError struct {
	Seat SeatPosition
}

func (e *OrphanSeatError) Error() string {
	return fmt.Sprintf("selection would leave seat %s stranded alone", e.Seat)
}

// UnknownSeatError reports a requested position that does not exist in the
// showtime's hall layout.
type UnknownSeatError struct {
	Seat SeatPosition
}

func (e *UnknownSeatError) Error() string {
	return fmt.Sprintf("seat %s does not exist for this showtime", e.Seat)
}
