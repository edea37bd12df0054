package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/cinex/reservation-core/internal/availability"
	"github.com/cinex/reservation-core/internal/mocks"
	"github.com/cinex/reservation-core/internal/reconciler"
	"github.com/cinex/reservation-core/internal/reservation"
	"github.com/cinex/reservation-core/internal/sweeper"
	appvalidator "github.com/cinex/reservation-core/internal/validator"
)

type testMocks struct {
	bookings   *mocks.MockBookingRepo
	seats      *mocks.MockSeatRepo
	payments   *mocks.MockPaymentRepo
	provider   *mocks.MockPaymentProvider
	pricer     *mocks.MockPricer
	promotions *mocks.MockPromotionService
	redis      *mocks.MockRedisClient
}

func newTestApplication() (*application, *testMocks) {
	m := &testMocks{
		bookings:   &mocks.MockBookingRepo{},
		seats:      &mocks.MockSeatRepo{},
		payments:   &mocks.MockPaymentRepo{},
		provider:   &mocks.MockPaymentProvider{},
		pricer:     &mocks.MockPricer{},
		promotions: &mocks.MockPromotionService{},
		redis:      &mocks.MockRedisClient{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	idx := availability.NewIndex(m.seats, m.bookings, nil, logger)

	reservations := reservation.NewService(
		reservation.Config{HoldDuration: 10 * time.Minute, MaxSeatsPerBooking: 8},
		logger, m.bookings, idx, m.pricer, m.promotions, nil,
	)

	app := &application{
		config:          config{env: "test"},
		logger:          logger,
		validator:       appvalidator.NewValidator(),
		bookingRepo:     m.bookings,
		seatRepo:        m.seats,
		paymentRepo:     m.payments,
		paymentProvider: m.provider,
		availability:    idx,
		reservations:    reservations,
		sweeper:         sweeper.NewSweeper(logger, reservations, m.bookings, time.Minute),
		reconciler:      reconciler.NewReconciler(logger, reservations, m.payments, m.provider, m.redis, 16),
	}

	return app, m
}

func executeRequest(t *testing.T, app *application, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	app.routes().ServeHTTP(w, r)

	return w
}

func newIdentifiedRequest(t *testing.T, method, url string, userID int64) *http.Request {
	t.Helper()

	r := httptest.NewRequest(method, url, nil)
	r.Header.Set("X-User-Id", strconv.FormatInt(userID, 10))

	return r
}

func serve(app *application, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	app.routes().ServeHTTP(w, r)
	return w
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var resp T
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}

	return resp
}
