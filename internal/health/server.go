// Package health exposes the gRPC health service backed by a database ping.
package health

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"chatroom-service/internal/observability"
)

// ServiceName is the health entry for the chat surface.
const ServiceName = "chat.ChatService"

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Checker keeps the gRPC health status in line with the store.
type Checker struct {
	server   *health.Server
	db       Pinger
	interval time.Duration
	log      *slog.Logger
}

// NewChecker constructs a Checker that starts out NOT_SERVING.
func NewChecker(db Pinger, interval time.Duration, log *slog.Logger) *Checker {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Checker{server: hs, db: db, interval: interval, log: log}
}

// NewGRPCServer builds a gRPC server carrying the health service.
func (c *Checker) NewGRPCServer() *grpc.Server {
	gs := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	healthpb.RegisterHealthServer(gs, c.server)
	return gs
}

// Server returns the underlying health server.
func (c *Checker) Server() *health.Server {
	return c.server
}

// CheckOnce pings the store and updates both health entries.
func (c *Checker) CheckOnce(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := c.db.PingContext(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		c.log.Warn("health check failed", "error", err)
	}
	c.server.SetServingStatus("", status)
	c.server.SetServingStatus(ServiceName, status)
	return status == healthpb.HealthCheckResponse_SERVING
}

// Run checks on every interval until ctx is done, then marks the service down.
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	c.CheckOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			c.server.Shutdown()
			return
		case <-ticker.C:
			c.CheckOnce(ctx)
		}
	}
}
