package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Varun5711/placeshare/internal/response"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
	Redis  string `json:"redis,omitempty"`
}

type HealthHandler struct {
	db    Pinger
	redis Pinger
}

// NewHealthHandler reports database reachability. redis may be nil.
func NewHealthHandler(db Pinger, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", DB: "up"}
	code := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.DB = "down"
		code = http.StatusServiceUnavailable
	}

	// Redis only backs the cache and rate limiter, so it never fails the check.
	if h.redis != nil {
		resp.Redis = "up"
		if err := h.redis.Ping(ctx); err != nil {
			resp.Redis = "down"
		}
	}

	response.JSON(w, code, resp)
}
