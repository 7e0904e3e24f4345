// Package health exposes liveness/readiness for the demo's /healthz route,
// adapted from the teacher's DB-pinging checker to probe the scheduler's
// main loop instead of a database connection.
package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prober is satisfied by *jobcore.Scheduler.
type Prober interface {
	Ping(ctx context.Context) error
}

// CheckResult represents the health of a single dependency.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResult is the top-level health response.
type HealthResult struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// Checker verifies that the scheduler's main loop is reachable.
type Checker struct {
	sched  Prober
	logger *slog.Logger
	gauge  *prometheus.GaugeVec
}

// NewChecker creates a health checker and registers its Prometheus gauge.
func NewChecker(sched Prober, logger *slog.Logger, reg prometheus.Registerer) *Checker {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "jobcore",
		Name:      "health_check_up",
		Help:      "Whether a dependency is reachable. 1 = up, 0 = down.",
	}, []string{"dependency"})
	reg.MustRegister(gauge)

	return &Checker{
		sched:  sched,
		logger: logger.With("component", "health"),
		gauge:  gauge,
	}
}

// Liveness returns a simple "up" response if the process is running.
func (c *Checker) Liveness(_ context.Context) HealthResult {
	return HealthResult{Status: "up"}
}

// Readiness pings the scheduler's main loop and reports its status.
func (c *Checker) Readiness(ctx context.Context) HealthResult {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	result := HealthResult{
		Status: "up",
		Checks: make(map[string]CheckResult),
	}

	if err := c.sched.Ping(checkCtx); err != nil {
		c.logger.Warn("scheduler health check failed", "error", err)
		result.Status = "down"
		result.Checks["scheduler"] = CheckResult{Status: "down", Error: err.Error()}
		c.gauge.WithLabelValues("scheduler").Set(0)
	} else {
		result.Checks["scheduler"] = CheckResult{Status: "up"}
		c.gauge.WithLabelValues("scheduler").Set(1)
	}

	return result
}
