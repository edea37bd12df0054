package app

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

type contextKey string

const userIDContextKey = contextKey("userID")

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")

				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// identify reads the X-User-Id header set by the upstream identity gateway.
// Requests without it proceed as walk-in traffic; bookings they create have
// no user attached.
func (app *application) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("X-User-Id")

		if header != "" {
			userID, err := strconv.ParseInt(header, 10, 64)
			if err != nil || userID < 1 {
				app.badRequestResponse(w, r, fmt.Errorf("invalid X-User-Id header"))
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			r = r.WithContext(ctx)
		}

		next.ServeHTTP(w, r)
	})
}

func (app *application) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.contextGetUserID(r) == nil {
			app.unauthorizedAccessResponse(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *application) contextGetUserID(r *http.Request) *int64 {
	userID, ok := r.Context().Value(userIDContextKey).(int64)
	if !ok {
		return nil
	}

	return &userID
}
