package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/segyhp/loan-ledger/pkg/response"
)

// Pinger is satisfied by *sqlx.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db      Pinger
	redis   redis.Cmdable
	timeout time.Duration
	logger  *zap.Logger
}

func NewHealthHandler(db Pinger, redis redis.Cmdable, timeout time.Duration, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   redis,
		timeout: timeout,
		logger:  logger,
	}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health performs a basic health check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	response.Success(w, status)
}

// Ready performs readiness check including database and redis connectivity
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.check(ctx, &status, "database", h.db.PingContext)
	h.check(ctx, &status, "redis", func(ctx context.Context) error {
		return h.redis.Ping(ctx).Err()
	})

	if status.Status == "error" {
		response.JSON(w, http.StatusServiceUnavailable, status)
		return
	}

	response.Success(w, status)
}

func (h *HealthHandler) check(ctx context.Context, status *HealthStatus, name string, ping func(context.Context) error) {
	if err := ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
		status.Status = "error"
		status.Checks[name] = "failed"
		return
	}
	status.Checks[name] = "ok"
}
