// Package availability derives, for a showtime, the effective status of every
// layout position by joining the static seat catalog with active tickets. It
// is the single source of truth for seat status: the booking rule validator
// and the reservation manager both consume its snapshots.
package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cinex/reservation-core/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how stale a display read may be. Hold decisions never
// go through the cache; they snapshot inside the hold transaction.
const DefaultCacheTTL = 500 * time.Millisecond

type Index struct {
	seats    domain.SeatRepository
	bookings domain.BookingRepository
	cache    redis.UniversalClient
	logger   *slog.Logger
	cacheTTL time.Duration
}

func NewIndex(
	seats domain.SeatRepository,
	bookings domain.BookingRepository,
	cache redis.UniversalClient,
	logger *slog.Logger) *Index {

	return &Index{
		seats:    seats,
		bookings: bookings,
		cache:    cache,
		logger:   logger,
		cacheTTL: DefaultCacheTTL,
	}
}

// Snapshot reads the authoritative store. Inside a transaction (a context
// from BookingRepository.WithTx) it sees that transaction's own writes.
func (idx *Index) Snapshot(ctx context.Context, showtimeID int64) (*domain.SeatMap, error) {
	layout, err := idx.seats.LayoutByShowtime(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("loading layout for showtime %d: %w", showtimeID, err)
	}

	if len(layout) == 0 {
		return nil, domain.ErrRecordNotFound
	}

	tickets, bookingStatuses, err := idx.bookings.ActiveTicketsByShowtime(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("loading active tickets for showtime %d: %w", showtimeID, err)
	}

	taken := make(map[int64]domain.SeatStatus, len(tickets))
	for _, ticket := range tickets {
		switch bookingStatuses[ticket.BookingID] {
		case domain.BookingConfirmed:
			taken[ticket.SeatID] = domain.SeatSold
		default:
			taken[ticket.SeatID] = domain.SeatHeld
		}
	}

	return domain.NewSeatMap(showtimeID, layout, taken), nil
}

// cachedSeat is the serialized form of one seat state in the display cache.
type cachedSeat struct {
	ID     int64             `json:"id"`
	HallID int64             `json:"hall_id"`
	Row    string            `json:"row"`
	Col    int               `json:"col"`
	Type   string            `json:"type"`
	Status domain.SeatStatus `json:"status"`
}

// CachedSnapshot serves display reads through a short-lived redis entry. Any
// cache failure falls back to the live query; the cache is never load-bearing.
func (idx *Index) CachedSnapshot(ctx context.Context, showtimeID int64) (*domain.SeatMap, error) {
	key := cacheKey(showtimeID)

	if idx.cache != nil {
		payload, err := idx.cache.Get(ctx, key).Bytes()
		if err == nil {
			snapshot, err := decodeSnapshot(showtimeID, payload)
			if err == nil {
				return snapshot, nil
			}
			idx.logger.Warn("discarding undecodable availability cache entry", "showtime_id", showtimeID, "error", err)
		} else if err != redis.Nil {
			idx.logger.Warn("availability cache read failed", "showtime_id", showtimeID, "error", err)
		}
	}

	snapshot, err := idx.Snapshot(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	if idx.cache != nil {
		payload, err := encodeSnapshot(snapshot)
		if err == nil {
			if err := idx.cache.Set(ctx, key, payload, idx.cacheTTL).Err(); err != nil {
				idx.logger.Warn("availability cache write failed", "showtime_id", showtimeID, "error", err)
			}
		}
	}

	return snapshot, nil
}

// Invalidate drops the display cache entry after a committed state change, so
// the next read reflects the write even within the TTL window.
func (idx *Index) Invalidate(ctx context.Context, showtimeID int64) {
	if idx.cache == nil {
		return
	}

	if err := idx.cache.Del(ctx, cacheKey(showtimeID)).Err(); err != nil {
		idx.logger.Warn("availability cache invalidation failed", "showtime_id", showtimeID, "error", err)
	}
}

func cacheKey(showtimeID int64) string {
	return fmt.Sprintf("availability:%d", showtimeID)
}

func encodeSnapshot(m *domain.SeatMap) ([]byte, error) {
	seats := make([]cachedSeat, 0, m.Size())

	for _, label := range m.RowLabels() {
		for _, state := range m.Row(label) {
			seats = append(seats, cachedSeat{
				ID:     state.Seat.ID,
				HallID: state.Seat.HallID,
				Row:    state.Seat.Position.Row,
				Col:    state.Seat.Position.Col,
				Type:   state.Seat.Type,
				Status: state.Status,
			})
		}
	}

	return json.Marshal(seats)
}

func decodeSnapshot(showtimeID int64, payload []byte) (*domain.SeatMap, error) {
	var seats []cachedSeat

	if err := json.Unmarshal(payload, &seats); err != nil {
		return nil, err
	}

	layout := make([]domain.SeatLayout, 0, len(seats))
	taken := make(map[int64]domain.SeatStatus)

	for _, seat := range seats {
		layout = append(layout, domain.SeatLayout{
			ID:       seat.ID,
			HallID:   seat.HallID,
			Position: domain.SeatPosition{Row: seat.Row, Col: seat.Col},
			Type:     seat.Type,
		})

		if seat.Status != domain.SeatFree {
			taken[seat.ID] = seat.Status
		}
	}

	return domain.NewSeatMap(showtimeID, layout, taken), nil
}
