// Package healthcheck exposes dependency reachability over the standard
// gRPC health protocol.
package healthcheck

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service key for the whole backend.
const ServiceName = "aitrashrank"

// Check reports whether one dependency is reachable.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Monitor runs checks on an interval and publishes the result.
type Monitor struct {
	health   *health.Server
	checks   []Check
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	failed map[string]error
}

// NewMonitor creates a monitor. Status is NOT_SERVING until the first round.
func NewMonitor(logger *zap.Logger, interval time.Duration, checks ...Check) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	m := &Monitor{
		health:   health.NewServer(),
		checks:   checks,
		interval: interval,
		timeout:  2 * time.Second,
		logger:   logger.Named("healthcheck"),
		failed:   make(map[string]error),
	}
	m.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return m
}

// Register adds the health service to srv.
func (m *Monitor) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, m.health)
}

// Run checks dependencies until ctx is done, then marks the service as
// shutting down.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		m.CheckOnce(ctx)
		select {
		case <-ctx.Done():
			m.health.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

// CheckOnce runs every check and updates the published status.
func (m *Monitor) CheckOnce(ctx context.Context) bool {
	healthy := true
	for _, check := range m.checks {
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		err := check.Probe(checkCtx)
		cancel()
		m.record(check.Name, err)
		if err != nil {
			healthy = false
		}
	}
	if healthy {
		m.setStatus(healthpb.HealthCheckResponse_SERVING)
	} else {
		m.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return healthy
}

// Failures returns the last error of every failing check.
func (m *Monitor) Failures() map[string]error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]error, len(m.failed))
	for k, v := range m.failed {
		out[k] = v
	}
	return out
}

func (m *Monitor) record(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, wasFailing := m.failed[name]
	switch {
	case err != nil && !wasFailing:
		m.logger.Warn("dependency unhealthy", zap.String("check", name), zap.Error(err))
		m.failed[name] = err
	case err != nil:
		m.failed[name] = err
	case wasFailing:
		m.logger.Info("dependency recovered", zap.String("check", name))
		delete(m.failed, name)
	}
}

func (m *Monitor) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	m.health.SetServingStatus("", status)
	m.health.SetServingStatus(ServiceName, status)
}
