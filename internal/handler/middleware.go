package handler

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/password-validator/internal/persistence"
	"github.com/msomdec/password-validator/internal/service"
)

type contextKey string

const (
	requestIDContextKey  contextKey = "request_id"
	unitOfWorkContextKey contextKey = "unit_of_work"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// ContextFactory starts a persistence unit of work.
type ContextFactory interface {
	NewContext() *persistence.Context
}

// RequestIDFromContext returns the ID assigned by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// UnitOfWorkFromContext returns the persistence context opened by
// WithUnitOfWork, or nil outside of it.
func UnitOfWorkFromContext(ctx context.Context) *persistence.Context {
	uow, _ := ctx.Value(unitOfWorkContextKey).(*persistence.Context)
	return uow
}

// RequestID assigns every request an ID. A well-formed incoming
// X-Request-ID is kept; otherwise a random UUID is generated. The ID is
// echoed in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithUnitOfWork gives each request its own persistence context and closes
// it when the handler returns, whether or not the handler succeeded.
func WithUnitOfWork(factory ContextFactory, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uow := factory.NewContext()
		defer func() {
			if err := uow.Close(); err != nil {
				slog.Error("close unit of work", "error", err, "request_id", RequestIDFromContext(r.Context()))
			}
		}()

		ctx := context.WithValue(r.Context(), unitOfWorkContextKey, uow)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimit rejects requests from a client IP whose bucket is empty with
// 429 and a Retry-After hint.
func RateLimit(limiter *service.TokenBucket, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := limiter.Allow(clientIP(r))
		if !ok {
			if wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			}
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets conservative response headers for a JSON API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LogRequests logs one line per request after it completes.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}

// clientIP returns the host part of RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
