// Package server assembles the gRPC server that exposes liveness and readiness.
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewGRPCServer returns a gRPC server instrumented with otelgrpc and the health service
// registered on it. The caller drives the health status (see health.Checker).
func NewGRPCServer(opts ...grpc.ServerOption) (*grpc.Server, *grpchealth.Server) {
	opts = append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	s := grpc.NewServer(opts...)
	return s, RegisterServices(s)
}

// RegisterServices registers the gRPC services with the given server and returns the health
// server so its status can be updated.
//
//   - grpc.health.v1.Health → google.golang.org/grpc/health, status from internal/health
func RegisterServices(s grpc.ServiceRegistrar) *grpchealth.Server {
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	return hs
}
