package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthStatus describes the database connection state.
type HealthStatus struct {
	Healthy   bool   `json:"healthy"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Health pings the pool and reports round-trip latency.
func Health(ctx context.Context, pool *pgxpool.Pool) HealthStatus {
	start := time.Now()
	err := pool.Ping(ctx)
	status := HealthStatus{
		Healthy:   err == nil,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		status.Error = err.Error()
	}
	return status
}
