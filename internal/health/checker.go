// Package health reports readiness of the identity store and sender policy through the standard
// gRPC health service.
package health

import (
	"context"
	"fmt"
	"log"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported next to the overall ("") status.
const ServiceName = "devicecheckin.Registration"

// Pinger checks the identity store (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks the sender policy engine.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker aggregates readiness checks. Nil checks are skipped.
type Checker struct {
	pinger Pinger
	policy PolicyChecker
}

// NewChecker returns a checker. pinger and policy may be nil.
func NewChecker(pinger Pinger, policy PolicyChecker) *Checker {
	return &Checker{pinger: pinger, policy: policy}
}

// Check returns the first failing dependency.
func (c *Checker) Check(ctx context.Context) error {
	if c.pinger != nil {
		if err := c.pinger.PingContext(ctx); err != nil {
			return fmt.Errorf("identity store: %w", err)
		}
	}
	if c.policy != nil {
		if err := c.policy.HealthCheck(ctx); err != nil {
			return fmt.Errorf("sender policy: %w", err)
		}
	}
	return nil
}

// Update runs Check once and publishes the result on srv.
func (c *Checker) Update(ctx context.Context, srv *health.Server) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := c.Check(ctx); err != nil {
		log.Printf("health: not serving: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	srv.SetServingStatus("", status)
	srv.SetServingStatus(ServiceName, status)
	return status
}

// Run updates srv every interval until ctx is done.
func (c *Checker) Run(ctx context.Context, srv *health.Server, interval time.Duration) {
	c.Update(ctx, srv)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, interval)
			c.Update(checkCtx, srv)
			cancel()
		}
	}
}
