package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cinex/reservation-core/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

func (p *PostgresBookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return RunInTx(ctx, p.db, fn)
}

func (p *PostgresBookingRepository) GetShowtimeForUpdate(ctx context.Context, showtimeID int64) (*domain.Showtime, error) {
	query := `
		SELECT sh.id, sh.hall_id, h.name, sh.movie_title, sh.starts_at, sh.base_price
		FROM showtimes sh
		JOIN halls h ON sh.hall_id = h.id
		WHERE sh.id = $1
		FOR UPDATE OF sh
	`

	var showtime domain.Showtime

	err := FromContext(ctx, p.db).QueryRow(ctx, query, showtimeID).Scan(
		&showtime.ID,
		&showtime.HallID,
		&showtime.HallName,
		&showtime.MovieTitle,
		&showtime.StartsAt,
		&showtime.BasePrice,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &showtime, nil
}

func (p *PostgresBookingRepository) CreateBooking(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (
			order_code,
			user_id,
			showtime_id,
			status,
			total_amount,
			discount_amount,
			promo_code,
			points_used,
			payment_method,
			contact_email,
			hold_expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	return FromContext(ctx, p.db).QueryRow(
		ctx,
		query,
		booking.OrderCode,
		booking.UserID,
		booking.ShowtimeID,
		booking.Status,
		booking.TotalAmount,
		booking.DiscountAmount,
		booking.PromoCode,
		booking.PointsUsed,
		booking.PaymentMethod,
		booking.ContactEmail,
		booking.HoldExpiresAt,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
}

func (p *PostgresBookingRepository) CreateTickets(ctx context.Context, tickets []domain.Ticket) error {
	rows := make([][]any, 0, len(tickets))
	for _, t := range tickets {
		rows = append(rows, []any{
			t.TicketCode,
			t.BookingID,
			t.ShowtimeID,
			t.SeatID,
			t.Price,
			domain.TicketActive,
		})
	}

	_, err := FromContext(ctx, p.db).CopyFrom(
		ctx,
		pgx.Identifier{"tickets"},
		[]string{"ticket_code", "booking_id", "showtime_id", "seat_id", "price", "status"},
		pgx.CopyFromRows(rows),
	)

	if isUniqueViolation(err) {
		// Lost the race on the partial unique index over active seats.
		return &domain.SeatUnavailableError{Status: domain.SeatHeld}
	}

	return err
}

func (p *PostgresBookingRepository) GetByOrderCode(ctx context.Context, orderCode string) (*domain.Booking, error) {
	return p.getOne(ctx, `WHERE b.order_code = $1`, orderCode)
}

func (p *PostgresBookingRepository) GetForUpdate(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	return p.getOne(ctx, `WHERE b.id = $1 FOR UPDATE`, bookingID)
}

func (p *PostgresBookingRepository) getOne(ctx context.Context, where string, arg any) (*domain.Booking, error) {
	query := `
		SELECT
			b.id,
			b.order_code,
			b.user_id,
			b.showtime_id,
			b.status,
			b.total_amount,
			b.discount_amount,
			b.promo_code,
			b.points_used,
			b.payment_method,
			b.contact_email,
			b.hold_expires_at,
			b.reversal_pending,
			b.created_at,
			b.updated_at
		FROM bookings b
	` + where

	var booking domain.Booking

	err := FromContext(ctx, p.db).QueryRow(ctx, query, arg).Scan(
		&booking.ID,
		&booking.OrderCode,
		&booking.UserID,
		&booking.ShowtimeID,
		&booking.Status,
		&booking.TotalAmount,
		&booking.DiscountAmount,
		&booking.PromoCode,
		&booking.PointsUsed,
		&booking.PaymentMethod,
		&booking.ContactEmail,
		&booking.HoldExpiresAt,
		&booking.ReversalPending,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}

		return nil, err
	}

	tickets, err := p.ticketsByBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	booking.Tickets = tickets

	return &booking, nil
}

func (p *PostgresBookingRepository) ticketsByBooking(ctx context.Context, bookingID int64) ([]domain.Ticket, error) {
	query := `
		SELECT t.id, t.ticket_code, t.booking_id, t.showtime_id, t.seat_id,
			s.row_label, s.col, s.seat_type, t.price, t.status
		FROM tickets t
		JOIN seats s ON t.seat_id = s.id
		WHERE t.booking_id = $1
		ORDER BY s.row_label, s.col
	`

	rows, err := FromContext(ctx, p.db).Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)

	for rows.Next() {
		var ticket domain.Ticket

		err = rows.Scan(
			&ticket.ID,
			&ticket.TicketCode,
			&ticket.BookingID,
			&ticket.ShowtimeID,
			&ticket.SeatID,
			&ticket.Position.Row,
			&ticket.Position.Col,
			&ticket.SeatType,
			&ticket.Price,
			&ticket.Status,
		)
		if err != nil {
			return nil, err
		}

		tickets = append(tickets, ticket)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tickets, nil
}

func (p *PostgresBookingRepository) UpdateStatus(ctx context.Context, bookingID int64, status domain.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`

	tag, err := FromContext(ctx, p.db).Exec(ctx, query, status, bookingID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotPending
	}

	return nil
}

func (p *PostgresBookingRepository) VoidTickets(ctx context.Context, bookingID int64) error {
	query := `UPDATE tickets SET status = 'void' WHERE booking_id = $1 AND status = 'active'`

	_, err := FromContext(ctx, p.db).Exec(ctx, query, bookingID)
	return err
}

func (p *PostgresBookingRepository) SetReversalPending(ctx context.Context, bookingID int64, pending bool) error {
	query := `UPDATE bookings SET reversal_pending = $1, updated_at = NOW() WHERE id = $2`

	_, err := FromContext(ctx, p.db).Exec(ctx, query, pending, bookingID)
	return err
}

func (p *PostgresBookingRepository) ActiveTicketsByShowtime(
	ctx context.Context,
	showtimeID int64) ([]domain.Ticket, map[int64]domain.BookingStatus, error) {

	query := `
		SELECT t.id, t.ticket_code, t.booking_id, t.showtime_id, t.seat_id,
			s.row_label, s.col, s.seat_type, t.price, t.status, b.status
		FROM tickets t
		JOIN bookings b ON t.booking_id = b.id
		JOIN seats s ON t.seat_id = s.id
		WHERE t.showtime_id = $1
			AND t.status = 'active'
			AND b.status IN ('pending', 'confirmed')
	`

	rows, err := FromContext(ctx, p.db).Query(ctx, query, showtimeID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	bookingStatuses := make(map[int64]domain.BookingStatus)

	for rows.Next() {
		var ticket domain.Ticket
		var bookingStatus domain.BookingStatus

		err = rows.Scan(
			&ticket.ID,
			&ticket.TicketCode,
			&ticket.BookingID,
			&ticket.ShowtimeID,
			&ticket.SeatID,
			&ticket.Position.Row,
			&ticket.Position.Col,
			&ticket.SeatType,
			&ticket.Price,
			&ticket.Status,
			&bookingStatus,
		)
		if err != nil {
			return nil, nil, err
		}

		tickets = append(tickets, ticket)
		bookingStatuses[ticket.BookingID] = bookingStatus
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	return tickets, bookingStatuses, nil
}

func (p *PostgresBookingRepository) ExpiredPendingIDs(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
		SELECT id FROM bookings
		WHERE status = 'pending' AND hold_expires_at < $1
		ORDER BY hold_expires_at
	`

	return p.collectIDs(ctx, query, now)
}

func (p *PostgresBookingRepository) ReversalPendingIDs(ctx context.Context) ([]int64, error) {
	query := `
		SELECT id FROM bookings
		WHERE reversal_pending = TRUE
		ORDER BY updated_at
	`

	return p.collectIDs(ctx, query)
}

func (p *PostgresBookingRepository) collectIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := FromContext(ctx, p.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func (p *PostgresBookingRepository) NearExpiration(
	ctx context.Context,
	now time.Time,
	window time.Duration) ([]domain.Booking, error) {

	query := `
		SELECT
			b.id,
			b.order_code,
			b.user_id,
			b.showtime_id,
			b.status,
			b.total_amount,
			b.discount_amount,
			b.promo_code,
			b.points_used,
			b.payment_method,
			b.contact_email,
			b.hold_expires_at,
			b.reversal_pending,
			b.created_at,
			b.updated_at
		FROM bookings b
		WHERE b.status = 'pending'
			AND b.hold_expires_at >= $1
			AND b.hold_expires_at < $2
		ORDER BY b.hold_expires_at
	`

	rows, err := FromContext(ctx, p.db).Query(ctx, query, now, now.Add(window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)

	for rows.Next() {
		var booking domain.Booking

		err = rows.Scan(
			&booking.ID,
			&booking.OrderCode,
			&booking.UserID,
			&booking.ShowtimeID,
			&booking.Status,
			&booking.TotalAmount,
			&booking.DiscountAmount,
			&booking.PromoCode,
			&booking.PointsUsed,
			&booking.PaymentMethod,
			&booking.ContactEmail,
			&booking.HoldExpiresAt,
			&booking.ReversalPending,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		bookings = append(bookings, booking)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}

func (p *PostgresBookingRepository) SummariesByUser(
	ctx context.Context,
	userID int64,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	query := `
		SELECT
			COUNT(*) OVER(),
			b.order_code,
			sh.movie_title,
			h.name,
			sh.starts_at,
			b.status,
			b.total_amount,
			b.created_at,
			b.hold_expires_at,
			ARRAY(
				SELECT s.row_label || s.col::text
				FROM tickets t
				JOIN seats s ON t.seat_id = s.id
				WHERE t.booking_id = b.id
				ORDER BY s.row_label, s.col
			)
		FROM bookings b
		JOIN showtimes sh ON b.showtime_id = sh.id
		JOIN halls h ON sh.hall_id = h.id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := FromContext(ctx, p.db).Query(ctx, query, userID, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	summaries := make([]domain.BookingSummary, 0)
	totalRecords := 0

	for rows.Next() {
		var summary domain.BookingSummary

		err = rows.Scan(
			&totalRecords,
			&summary.OrderCode,
			&summary.MovieTitle,
			&summary.HallName,
			&summary.ShowtimeDate,
			&summary.Status,
			&summary.TotalAmount,
			&summary.CreatedAt,
			&summary.HoldExpiresAt,
			&summary.SeatLabels,
		)
		if err != nil {
			return nil, nil, err
		}

		summaries = append(summaries, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return summaries, metadata, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
