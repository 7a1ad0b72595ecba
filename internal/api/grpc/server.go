// Package grpcapi exposes the gRPC health service, with serving status
// following the service's readiness.
package grpcapi

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"ai-debate-graph-service/internal/observability/logging"
)

// ServiceName is the name health checks can ask for.
const ServiceName = "ai.debate.graph.DebateGraphService"

const checkTimeout = 3 * time.Second

// ReadyFunc reports whether the service can take work.
type ReadyFunc func(ctx context.Context) error

// Health publishes readiness through the standard gRPC health service.
type Health struct {
	server *health.Server
	ready  ReadyFunc
	logger zerolog.Logger
}

// Register installs health checking and reflection on g.
func Register(g *grpc.Server, ready ReadyFunc) *Health {
	h := &Health{
		server: health.NewServer(),
		ready:  ready,
		logger: logging.WithComponent("grpc"),
	}
	grpc_health_v1.RegisterHealthServer(g, h.server)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(g)
	return h
}

// Check runs the readiness check once and updates the serving status.
func (h *Health) Check(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if h.ready != nil {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := h.ready(cctx)
		cancel()
		if err != nil {
			h.logger.Warn().Err(err).Msg("Readiness check failed")
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
	return status
}

// Watch re-checks readiness every interval until ctx is done.
func (h *Health) Watch(ctx context.Context, interval time.Duration) {
	h.Check(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// Shutdown reports NOT_SERVING for every service and refuses later updates.
func (h *Health) Shutdown() {
	h.server.Shutdown()
}
