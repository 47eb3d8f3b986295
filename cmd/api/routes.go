package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"readshelf/internal/auth"
	"readshelf/internal/book"
	"readshelf/internal/external"
	"readshelf/internal/httpx"
	"readshelf/internal/profile"
	"readshelf/internal/recommend"
	"readshelf/internal/user"
)

// handlers groups everything the router mounts.
type handlers struct {
	auth      *auth.HTTPHandler
	user      *user.HTTPHandler
	profile   *profile.HTTPHandler
	book      *book.HTTPHandler
	external  *external.HTTPHandler
	recommend *recommend.HTTPHandler

	jwtSecret string
	// ready reports whether backing stores answer; nil means always ready.
	ready func(ctx context.Context) error
}

func (h *handlers) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if h.ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
			defer cancel()
			if err := h.ready(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	requireAuth := httpx.AuthMiddleware(h.jwtSecret)
	optionalAuth := httpx.OptionalAuthMiddleware(h.jwtSecret)

	mux.HandleFunc("POST /v1/auth/register", h.auth.Register)
	mux.HandleFunc("POST /v1/auth/login", h.auth.Login)
	mux.Handle("GET /v1/me", requireAuth(http.HandlerFunc(h.user.GetCurrentUser)))
	mux.Handle("GET /v1/me/profile", requireAuth(http.HandlerFunc(h.profile.GetOwnProfile)))

	mux.Handle("POST /v1/books", requireAuth(http.HandlerFunc(h.book.Create)))
	mux.Handle("GET /v1/books", requireAuth(http.HandlerFunc(h.book.List)))
	mux.Handle("GET /v1/books/{id}", requireAuth(http.HandlerFunc(h.book.Get)))
	mux.Handle("PATCH /v1/books/{id}", requireAuth(http.HandlerFunc(h.book.Update)))
	mux.Handle("DELETE /v1/books/{id}", requireAuth(http.HandlerFunc(h.book.Delete)))

	mux.HandleFunc("GET /v1/external/search", h.external.Search)
	mux.Handle("GET /v1/recommendations", optionalAuth(http.HandlerFunc(h.recommend.Recommend)))

	return mux
}

// middlewareConfig carries the outer middleware settings.
type middlewareConfig struct {
	corsOrigins  []string
	maxBodyBytes int64
	enableHSTS   bool
	rateLimiter  *httpx.RateLimitMiddleware
}

// withMiddleware wraps mux outermost first. The access log sits directly on
// the mux so it sees the matched route pattern.
func withMiddleware(mux *http.ServeMux, mc middlewareConfig) http.Handler {
	mws := []func(http.Handler) http.Handler{
		httpx.RequestIDMiddleware,
		httpx.RecoveryMiddleware,
		httpx.CORSMiddleware(mc.corsOrigins),
		httpx.SecurityHeadersMiddleware(mc.enableHSTS),
		httpx.RequestSizeLimitMiddleware(mc.maxBodyBytes),
	}
	if mc.rateLimiter != nil {
		mws = append(mws, mc.rateLimiter.Middleware)
	}
	mws = append(mws, httpx.AccessLogMiddleware)
	return httpx.Chain(mux, mws...)
}
