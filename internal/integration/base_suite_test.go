package integration_test

import (
	"context"
	"io"
	"log"
	"log/slog"
	"time"

	"github.com/cinex/reservation-core/internal/availability"
	"github.com/cinex/reservation-core/internal/pricing"
	"github.com/cinex/reservation-core/internal/promotion"
	"github.com/cinex/reservation-core/internal/reconciler"
	"github.com/cinex/reservation-core/internal/repository"
	"github.com/cinex/reservation-core/internal/reservation"
	"github.com/cinex/reservation-core/internal/sweeper"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

const (
	dbName         = "reservation_core"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"

	// Seeded by SetupSuite, see seedCatalog.
	testShowtimeID = 1
	testPromoCode  = "WELCOME10"
)

type BaseSuite struct {
	suite.Suite
	dbContainer    *PostgresContainer
	cacheContainer *RedisContainer

	db    *pgxpool.Pool
	cache *redis.Client

	bookings     *repository.PostgresBookingRepository
	seats        *repository.PostgresSeatRepository
	payments     *repository.PostgresPaymentRepository
	availability *availability.Index
	promotions   *promotion.Service
	reservations *reservation.Service
	sweeper      *sweeper.Sweeper
}

func (s *BaseSuite) SetupSuite() {
	ctx := context.Background()

	postgresContainer, err := getDbContainer(ctx)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return
	}

	redisContainer, err := getCacheContainer(ctx)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return
	}

	s.dbContainer = postgresContainer
	s.cacheContainer = redisContainer

	db, err := pgxpool.New(ctx, postgresContainer.ConnectionString)
	if err != nil {
		log.Printf("failed to create connection pool: %s", err)
		return
	}

	s.db = db
	s.cache = redis.NewClient(&redis.Options{Addr: redisContainer.ConnectionString})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.bookings = repository.NewPostgresBookingRepository(db)
	s.seats = repository.NewPostgresSeatRepository(db)
	s.payments = repository.NewPostgresPaymentRepository(db)
	s.availability = availability.NewIndex(s.seats, s.bookings, s.cache, logger)
	s.promotions = promotion.NewService(db)

	s.reservations = reservation.NewService(
		reservation.Config{HoldDuration: 10 * time.Minute, MaxSeatsPerBooking: 8},
		logger,
		s.bookings,
		s.availability,
		pricing.NewTablePricer(),
		s.promotions,
		nil,
	)
	s.sweeper = sweeper.NewSweeper(logger, s.reservations, s.bookings, time.Minute)

	s.seedCatalog(ctx)
}

func (s *BaseSuite) SetupTest() {
	_, err := s.db.Exec(context.Background(),
		`TRUNCATE promotion_usages, payments, tickets, bookings RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)

	s.Require().NoError(s.cache.FlushAll(context.Background()).Err())
}

func (s *BaseSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.dbContainer != nil {
		if err := testcontainers.TerminateContainer(s.dbContainer.Container.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}

// seedCatalog loads the static part of the schema: one hall with two standard
// rows and one vip row, one showtime, and one active promotion. Booking state
// is truncated before every test; this catalog is shared by all of them.
func (s *BaseSuite) seedCatalog(ctx context.Context) {
	statements := []string{
		`INSERT INTO halls (name) VALUES ('Hall 1')`,
		`INSERT INTO seats (hall_id, row_label, col, seat_type)
		 SELECT 1, r.label, c, 'standard'
		 FROM (VALUES ('A'), ('B')) AS r (label), generate_series(1, 4) AS c`,
		`INSERT INTO seats (hall_id, row_label, col, seat_type)
		 SELECT 1, 'C', c, 'vip' FROM generate_series(1, 2) AS c`,
		`INSERT INTO showtimes (hall_id, movie_title, starts_at, base_price)
		 VALUES (1, 'Arrival', NOW() + INTERVAL '3 hours', 10.00)`,
		`INSERT INTO promotions (code, discount_type, discount_value, active)
		 VALUES ('WELCOME10', 'percent', 10.00, TRUE)`,
	}

	for _, stmt := range statements {
		_, err := s.db.Exec(ctx, stmt)
		s.Require().NoError(err)
	}
}

func (s *BaseSuite) newReconciler(provider staticProvider) *reconciler.Reconciler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return reconciler.NewReconciler(logger, s.reservations, s.payments, provider, s.cache, 16)
}
