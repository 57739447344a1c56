// Package grpc exposes the standard gRPC health service, reporting whether the database is reachable.
package grpc

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name under which the API reports its health, next to the overall "" entry.
const ServiceName = "bazaar.v1.API"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health keeps the health service status in line with database reachability.
type Health struct {
	server   *health.Server
	db       Pinger
	interval time.Duration
	logger   *slog.Logger
	serving  atomic.Bool
}

func NewHealth(db Pinger, interval time.Duration, logger *slog.Logger) *Health {
	h := &Health{
		server:   health.NewServer(),
		db:       db,
		interval: interval,
		logger:   logger.With("component", "grpc-health"),
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Register adds the health service to s.
func (h *Health) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Check pings the database once and updates the reported status.
func (h *Health) Check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()
	err := h.db.Ping(pingCtx)
	switch {
	case err != nil && h.serving.Load():
		h.logger.WarnContext(ctx, "Database unreachable, reporting NOT_SERVING", "error", err)
	case err == nil && !h.serving.Load():
		h.logger.InfoContext(ctx, "Database reachable, reporting SERVING")
	}
	if err != nil {
		h.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	h.set(healthpb.HealthCheckResponse_SERVING)
}

// Run checks the database every interval until ctx is done, then marks the service as shutting down.
func (h *Health) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	h.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return nil
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

func (h *Health) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.serving.Store(status == healthpb.HealthCheckResponse_SERVING)
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}
