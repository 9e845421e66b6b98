package gameserver

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the gRPC health service name of the battle loop.
const HealthService = "hexwar.BattleLoop"

// Health reports the battle server's status over the standard gRPC health
// protocol. The battle loop service is SERVING while the battle runs and
// NOT_SERVING once it has ended.
type Health struct {
	srv *health.Server
}

// NewHealth creates a Health with every service SERVING.
func NewHealth() *Health {
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	srv.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	return &Health{srv: srv}
}

// Register installs the health service on s.
func (h *Health) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// BattleFinished marks the battle loop NOT_SERVING.
func (h *Health) BattleFinished() {
	h.srv.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
}

// Shutdown marks every service NOT_SERVING.
func (h *Health) Shutdown() { h.srv.Shutdown() }

// Server returns the underlying health server.
func (h *Health) Server() healthpb.HealthServer { return h.srv }
