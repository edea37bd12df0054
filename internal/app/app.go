package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cinex/reservation-core/internal/availability"
	"github.com/cinex/reservation-core/internal/domain"
	"github.com/cinex/reservation-core/internal/mailer"
	"github.com/cinex/reservation-core/internal/payment"
	"github.com/cinex/reservation-core/internal/pricing"
	"github.com/cinex/reservation-core/internal/promotion"
	"github.com/cinex/reservation-core/internal/reconciler"
	"github.com/cinex/reservation-core/internal/repository"
	"github.com/cinex/reservation-core/internal/reservation"
	"github.com/cinex/reservation-core/internal/sweeper"
	appvalidator "github.com/cinex/reservation-core/internal/validator"
	"github.com/cinex/reservation-core/internal/vcs"
	"github.com/exaring/otelpgx"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"
)

var (
	version = vcs.Version()
)

type application struct {
	config    config
	logger    *slog.Logger
	db        *pgxpool.Pool
	redis     redis.UniversalClient
	validator *validator.Validate
	mailer    mailer.Mailer

	bookingRepo domain.BookingRepository
	seatRepo    domain.SeatRepository
	paymentRepo domain.PaymentRepository

	paymentProvider domain.PaymentProvider
	availability    *availability.Index
	reservations    *reservation.Service
	sweeper         *sweeper.Sweeper
	reconciler      *reconciler.Reconciler
}

type config struct {
	port             int
	env              string
	otelCollectorUrl string

	db struct {
		dsn          string
		maxOpenConns int
		maxIdleTime  time.Duration
	}
	redis struct {
		url          string
		maxOpenConns int
		maxIdleConns int
		maxIdleTime  time.Duration
	}
	booking struct {
		holdDuration time.Duration
		maxSeats     int
	}
	sweep struct {
		interval time.Duration
	}
	webhook struct {
		queueSize int
	}
	smtp struct {
		host     string
		port     int
		username string
		password string
		sender   string
	}
	stripe struct {
		secretKey     string
		webhookSecret string
		successUrl    string
		failureUrl    string
	}
}

func Run() error {
	var cfg config

	flag.IntVar(&cfg.port, "port", 3000, "server port")
	flag.StringVar(&cfg.env, "env", "dev", "Environment (dev|staging|prod)")
	flag.StringVar(&cfg.otelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector URL")

	flag.StringVar(&cfg.db.dsn, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.db.maxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.db.maxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.redis.url, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.redis.maxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.redis.maxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.redis.maxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.DurationVar(&cfg.booking.holdDuration, "hold-duration", 10*time.Minute, "Pending booking hold duration")
	flag.IntVar(&cfg.booking.maxSeats, "max-seats-per-booking", 8, "Max seats in one booking")

	flag.DurationVar(&cfg.sweep.interval, "sweep-interval", time.Minute, "Interval between expiration sweeps")

	flag.IntVar(&cfg.webhook.queueSize, "webhook-queue-size", 256, "Buffered provider events before webhooks are rejected")

	flag.StringVar(&cfg.smtp.host, "smtp-host", "sandbox.smtp.mailtrap.io", "SMTP host")
	flag.IntVar(&cfg.smtp.port, "smtp-port", 2525, "SMTP port")
	flag.StringVar(&cfg.smtp.username, "smtp-username", "", "SMTP username")
	flag.StringVar(&cfg.smtp.password, "smtp-password", "", "SMTP password")
	flag.StringVar(&cfg.smtp.sender, "smtp-sender", "CineX <no-reply@cinex.example.com>", "SMTP sender")

	flag.StringVar(&cfg.stripe.secretKey, "stripe-key", "", "Stripe secret key")
	flag.StringVar(&cfg.stripe.webhookSecret, "stripe-webhook-secret", "", "Stripe webhook secret")
	flag.StringVar(&cfg.stripe.successUrl, "stripe-success-url", "https://example.com/success.html", "Stripe payment success page")
	flag.StringVar(&cfg.stripe.failureUrl, "stripe-failure-url", "https://example.com/failure.html", "Stripe payment failure page")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	stripe.Key = cfg.stripe.secretKey

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	validator := appvalidator.NewValidator()

	db, err := newDatabasePool(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := newRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	bookingRepo := repository.NewPostgresBookingRepository(db)
	seatRepo := repository.NewPostgresSeatRepository(db)
	paymentRepo := repository.NewPostgresPaymentRepository(db)

	availabilityIndex := availability.NewIndex(seatRepo, bookingRepo, redisClient, logger)

	smtpMailer := mailer.NewSMTPMailer(cfg.smtp.host, cfg.smtp.port, cfg.smtp.username, cfg.smtp.password, cfg.smtp.sender)

	reservations := reservation.NewService(
		reservation.Config{
			HoldDuration:       cfg.booking.holdDuration,
			MaxSeatsPerBooking: cfg.booking.maxSeats,
		},
		logger,
		bookingRepo,
		availabilityIndex,
		pricing.NewTablePricer(),
		promotion.NewService(db),
		mailer.NewBookingNotifier(smtpMailer, logger),
	)

	var provider domain.PaymentProvider = payment.NewMockPaymentProvider()
	if cfg.stripe.secretKey != "" {
		provider = payment.NewStripePaymentProvider(cfg.stripe.failureUrl, cfg.stripe.successUrl)
	}

	app := &application{
		config:          cfg,
		logger:          logger,
		db:              db,
		redis:           redisClient,
		validator:       validator,
		mailer:          smtpMailer,
		bookingRepo:     bookingRepo,
		seatRepo:        seatRepo,
		paymentRepo:     paymentRepo,
		paymentProvider: provider,
		availability:    availabilityIndex,
		reservations:    reservations,
		sweeper:         sweeper.NewSweeper(logger, reservations, bookingRepo, cfg.sweep.interval),
		reconciler:      reconciler.NewReconciler(logger, reservations, paymentRepo, provider, redisClient, cfg.webhook.queueSize),
	}

	return app.run()
}

func newRedisClient(cfg config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.redis.url,
		MaxIdleConns:    cfg.redis.maxIdleConns,
		MaxActiveConns:  cfg.redis.maxOpenConns,
		ConnMaxIdleTime: cfg.redis.maxIdleTime,
	})

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func newDatabasePool(cfg config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.db.maxIdleTime
	config.MaxConns = int32(cfg.db.maxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *application) run() error {
	shutdownTelemetry, err := app.initTelemetry()
	if err != nil {
		return err
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	if err := app.sweeper.Start(workerCtx); err != nil {
		return err
	}

	app.reconciler.Start(workerCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)

		if stopErr := app.sweeper.Stop(); stopErr != nil {
			app.logger.Error("failed to stop sweeper", "error", stopErr)
		}

		stopWorkers()
		app.reconciler.Wait()

		shutdownTelemetry(ctx)

		shutdownError <- err
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.env)

	err = srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}
