package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Varun5711/placeshare/internal/logger"
	"github.com/Varun5711/placeshare/internal/middleware"
	"github.com/Varun5711/placeshare/internal/response"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Routes struct {
	Users          *UserHandler
	Places         *PlaceHandler
	Health         *HealthHandler
	Auth           *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
	RequestTimeout time.Duration
	Log            *logger.Logger
}

// NewRouter mounts every route. Credential endpoints sit behind the rate
// limiter; place mutations require a bearer token.
func NewRouter(rt Routes) http.Handler {
	limited := func(h http.HandlerFunc) http.Handler {
		if rt.RateLimiter == nil {
			return h
		}
		return rt.RateLimiter.Middleware(h)
	}
	protected := func(h http.HandlerFunc) http.Handler {
		return rt.Auth.RequireAuth(h)
	}

	mux := http.NewServeMux()

	mux.Handle("POST /api/users/signup", limited(rt.Users.Signup))
	mux.Handle("POST /api/users/login", limited(rt.Users.Login))
	mux.HandleFunc("GET /api/users", rt.Users.ListUsers)

	mux.HandleFunc("GET /api/places/{pid}", rt.Places.GetPlace)
	mux.HandleFunc("GET /api/places/user/{uid}", rt.Places.ListUserPlaces)
	mux.HandleFunc("GET /api/places/qr/{pid}", rt.Places.PlaceQRCode)
	mux.Handle("POST /api/places", protected(rt.Places.CreatePlace))
	mux.Handle("PATCH /api/places/{pid}", protected(rt.Places.PatchPlace))
	mux.Handle("DELETE /api/places/{pid}", protected(rt.Places.DeletePlace))

	if rt.Health != nil {
		mux.HandleFunc("GET /health", rt.Health.Health)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, rt.Log, status.Error(codes.NotFound, "Could not find this route."))
	})

	var handler http.Handler = mux
	if rt.RequestTimeout > 0 {
		handler = withTimeout(rt.RequestTimeout, handler)
	}
	handler = middleware.RequestLogger(rt.Log)(handler)
	handler = middleware.Recovery(rt.Log)(handler)
	return handler
}

func withTimeout(d time.Duration, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
