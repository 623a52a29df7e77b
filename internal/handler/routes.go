package handler

import (
	"net/http"

	"github.com/msomdec/password-validator/internal/service"
)

// Store is what the routes need from the persistence provider.
type Store interface {
	Pinger
	ContextFactory
}

// RegisterRoutes sets up all HTTP routes on the given mux. Every API route
// runs inside its own unit of work; validation is also rate limited per
// client IP.
func RegisterRoutes(mux *http.ServeMux, store Store, attempts *service.AttemptService, limiter *service.TokenBucket) {
	h := NewAttemptHandler(attempts)

	mux.HandleFunc("GET /healthz", HandleHealthz)
	mux.Handle("GET /readyz", HandleReadyz(store))

	mux.Handle("POST /api/validate",
		RateLimit(limiter, WithUnitOfWork(store, http.HandlerFunc(h.HandleValidate))))
	mux.Handle("GET /api/attempts", WithUnitOfWork(store, http.HandlerFunc(h.HandleList)))
	mux.Handle("GET /api/attempts/{id}", WithUnitOfWork(store, http.HandlerFunc(h.HandleGet)))
}
