// Package observability provides gRPC interceptors and the metrics/health
// HTTP server.
package observability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"ai-debate-graph-service/internal/observability/metrics"
)

// UnaryServerInterceptor counts and times unary RPCs. Health checks are
// logged with the serving status they reported; anything but SERVING is a
// warning, since it means the store was unreachable.
func UnaryServerInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code, duration := observe(m, info.FullMethod, err, start)

		level := zerolog.DebugLevel
		event := log.Logger.With().
			Str("method", info.FullMethod).
			Str("code", code).
			Dur("duration", duration)
		if hc, ok := resp.(*grpc_health_v1.HealthCheckResponse); ok {
			event = event.Str("servingStatus", hc.GetStatus().String())
			if hc.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
				level = zerolog.WarnLevel
			}
		}
		logger := event.Logger()
		logger.WithLevel(level).Msg("gRPC unary call")

		return resp, err
	}
}

// StreamServerInterceptor counts and times streaming RPCs, which here are
// health watches held open by orchestrators.
func StreamServerInterceptor(m *metrics.Metrics) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()
		err := handler(srv, ss)
		code, duration := observe(m, info.FullMethod, err, start)

		log.Info().
			Str("method", info.FullMethod).
			Str("code", code).
			Dur("duration", duration).
			Msg("gRPC stream closed")

		return err
	}
}

func observe(m *metrics.Metrics, method string, err error, start time.Time) (string, time.Duration) {
	duration := time.Since(start)
	code := status.Code(err).String()
	m.RecordRequest("grpc", method, code, duration.Seconds())
	return code, duration
}
