package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/Varun5711/placeshare/internal/logger"
	"github.com/Varun5711/placeshare/internal/response"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.Info("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
		})
	}
}

// Recovery turns a panic in a handler into a 500 response.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					log.Error("Panic serving %s %s: %v\n%s", r.Method, r.URL.Path, p, debug.Stack())
					response.Error(w, log, status.Error(codes.Internal, "panic"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
