package server

import (
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewGRPCServer builds a server with health, reflection and the liquidation
// service registered. The returned health server reports SERVING for both
// the empty name and ServiceName.
func NewGRPCServer(svc LiquidationServer, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(RequestIDInterceptor(logger))}, opts...)
	gs := grpc.NewServer(opts...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(gs)
	RegisterLiquidationServer(gs, svc)
	return gs, hs
}
