package sessionengine

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"honeypot-lab/pkg/logger"
)

// ServiceName is the name reported to gRPC health clients
const ServiceName = "honeypot.v1.SessionEngine"

// Pinger is a backing store whose reachability affects serving status
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker periodically pings the optional backends and updates the
// gRPC health status accordingly.
type HealthChecker struct {
	server   *health.Server
	pingers  map[string]Pinger
	interval time.Duration
	logger   *logger.Logger
}

// NewHealthChecker creates a checker. Nil pingers are ignored.
func NewHealthChecker(pingers map[string]Pinger, interval time.Duration, log *logger.Logger) *HealthChecker {
	active := make(map[string]Pinger, len(pingers))
	for name, p := range pingers {
		if p != nil {
			active[name] = p
		}
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	hs := health.NewServer()
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &HealthChecker{
		server:   hs,
		pingers:  active,
		interval: interval,
		logger:   log.WithComponent("grpc-health"),
	}
}

// Register attaches the health service to grpcServer
func (h *HealthChecker) Register(grpcServer *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(grpcServer, h.server)
}

// Server returns the underlying health server
func (h *HealthChecker) Server() *health.Server {
	return h.server
}

// Run checks the backends every interval until ctx is cancelled
func (h *HealthChecker) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		h.Check(ctx)
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

// Check pings every backend once and updates the serving status
func (h *HealthChecker) Check(ctx context.Context) bool {
	healthy := true
	for name, p := range h.pingers {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := p.Ping(pingCtx)
		cancel()
		if err != nil {
			healthy = false
			h.logger.Warn().Err(err).Str("backend", name).Msg("health check failed")
		}
	}

	status := grpc_health_v1.HealthCheckResponse_SERVING
	if !healthy {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)

	return healthy
}
