package repository

import (
	"context"
	"errors"

	"github.com/cinex/reservation-core/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPaymentRepository(db *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		db: db,
	}
}

func (p *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			booking_id,
			order_code,
			provider_session_id,
			amount,
			status
		)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	return FromContext(ctx, p.db).QueryRow(
		ctx,
		query,
		payment.BookingID,
		payment.OrderCode,
		payment.ProviderSessionID,
		payment.Amount,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt)
}

func (p *PostgresPaymentRepository) LatestByBooking(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	query := `
		SELECT id, booking_id, order_code, provider_session_id, amount, status, error_message, created_at, updated_at
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var payment domain.Payment

	err := FromContext(ctx, p.db).QueryRow(ctx, query, bookingID).Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.OrderCode,
		&payment.ProviderSessionID,
		&payment.Amount,
		&payment.Status,
		&payment.ErrorMsg,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &payment, nil
}

func (p *PostgresPaymentRepository) UpdateStatusByOrderCode(
	ctx context.Context,
	orderCode string,
	status domain.PaymentStatus,
	errMsg string) error {

	query := `
		UPDATE payments
		SET status = $1, error_message = NULLIF($2, ''), updated_at = NOW()
		WHERE order_code = $3
	`

	_, err := FromContext(ctx, p.db).Exec(ctx, query, status, errMsg, orderCode)
	return err
}
