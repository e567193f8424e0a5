package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/SanteonNL/natours/cmd/natours/tours"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 10 << 10

type ctxKey int

const requestTimeKey ctxKey = iota

// requestTime stamps every request with the time it arrived.
func requestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), requestTimeKey, time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestedAt(r *http.Request) time.Time {
	if t, ok := r.Context().Value(requestTimeKey).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}

// accessLog attaches log to the request context and writes one line per
// request once it completes.
func accessLog(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Stringer("url", r.URL).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("Request")
		})(next)
		h = hlog.RemoteAddrHandler("ip")(h)
		return hlog.NewHandler(log)(h)
	}
}

func (tr *TourRouter) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				tr.respondWithError(w, r, fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// aliasTopCheap rewrites the query string to the top-5-cheap parameters.
func aliasTopCheap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		for k, v := range tours.TopCheapParams() {
			query.Set(k, fmt.Sprint(v))
		}
		r2 := r.Clone(r.Context())
		r2.URL.RawQuery = query.Encode()
		next.ServeHTTP(w, r2)
	})
}
