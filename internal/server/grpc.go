// Package server exposes the health of a long-running bp serve process over
// gRPC.
package server

import (
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the processing loop.
const ServiceName = "buildproc.Processor"

// NewGRPCServer creates a gRPC server with recovery, logging and auth
// interceptors. It registers the health service and reflection, and returns
// the server ready to serve along with the Health that drives it.
func NewGRPCServer(token string, logger *slog.Logger) (*grpc.Server, *Health) {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
			AuthInterceptor(token),
		),
	)
	h := NewHealth(logger)
	healthpb.RegisterHealthServer(srv, h.server)
	reflection.Register(srv)
	return srv, h
}

// Health reports whether processing is succeeding. Until the first run
// completes the status is NOT_SERVING.
type Health struct {
	server *health.Server
	logger *slog.Logger
}

func NewHealth(logger *slog.Logger) *Health {
	s := health.NewServer()
	s.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Health{server: s, logger: logger}
}

// Report records the outcome of a processing run. The overall server status
// stays SERVING; only the processor service flips.
func (h *Health) Report(err error) {
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus(ServiceName, status)
	h.logger.Debug("health updated", "service", ServiceName, "status", status.String())
}

// Shutdown marks every service NOT_SERVING so watchers see the process go away.
func (h *Health) Shutdown() {
	h.server.Shutdown()
}
