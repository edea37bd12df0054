package repository

import (
	"context"
	"errors"

	"github.com/cinex/reservation-core/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresSeatRepository struct {
	db *pgxpool.Pool
}

func NewPostgresSeatRepository(db *pgxpool.Pool) *PostgresSeatRepository {
	return &PostgresSeatRepository{
		db: db,
	}
}

func (p *PostgresSeatRepository) GetShowtime(ctx context.Context, showtimeID int64) (*domain.Showtime, error) {
	query := `
		SELECT sh.id, sh.hall_id, h.name, sh.movie_title, sh.starts_at, sh.base_price
		FROM showtimes sh
		JOIN halls h ON sh.hall_id = h.id
		WHERE sh.id = $1
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

func (p *PostgresSeatRepository) LayoutByShowtime(ctx context.Context, showtimeID int64) ([]domain.SeatLayout, error) {
	query := `
		SELECT se.id, se.hall_id, se.row_label, se.col, se.seat_type
		FROM showtimes sh
		JOIN seats se ON sh.hall_id = se.hall_id
		WHERE sh.id = $1
		ORDER BY se.row_label, se.col
	`

	rows, err := FromContext(ctx, p.db).Query(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	layout := make([]domain.SeatLayout, 0)

	for rows.Next() {
		var seat domain.SeatLayout

		err = rows.Scan(
			&seat.ID,
			&seat.HallID,
			&seat.Position.Row,
			&seat.Position.Col,
			&seat.Type,
		)
		if err != nil {
			return nil, err
		}

		layout = append(layout, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return layout, nil
}
