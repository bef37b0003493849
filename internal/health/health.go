// Package health reports dependency status through the standard gRPC health service.
package health

import (
	"context"
	"sort"
	"time"

	"github.com/sbilibin2017/gw-item-tracker/internal/logger"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// Checker runs probes and publishes their results. Each probe is exposed as
// its own service name; the empty name is SERVING only when every probe passes.
type Checker struct {
	server   *health.Server
	probes   map[string]CheckFunc
	interval time.Duration
	timeout  time.Duration
}

// NewChecker creates a Checker running probes every interval.
func NewChecker(interval time.Duration, probes map[string]CheckFunc) *Checker {
	return &Checker{
		server:   health.NewServer(),
		probes:   probes,
		interval: interval,
		timeout:  interval / 2,
	}
}

// Server returns the health server to register on a gRPC server.
func (c *Checker) Server() healthpb.HealthServer {
	return c.server
}

// Check runs every probe once, publishes the results and reports whether all passed.
func (c *Checker) Check(ctx context.Context) bool {
	names := make([]string, 0, len(c.probes))
	for name := range c.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	for _, name := range names {
		probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.probes[name](probeCtx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			healthy = false
			status = healthpb.HealthCheckResponse_NOT_SERVING
			logger.Log.Warnw("health probe failed", "service", name, "error", err)
		}
		c.server.SetServingStatus(name, status)
	}

	overall := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.server.SetServingStatus("", overall)
	return healthy
}

// Run probes until ctx is canceled, then marks everything NOT_SERVING.
func (c *Checker) Run(ctx context.Context) {
	c.Check(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.server.Shutdown()
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}
