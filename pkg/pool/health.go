package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthStatus is a pool or agent health state.
type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Degraded  HealthStatus = "degraded"
	Unhealthy HealthStatus = "unhealthy"
)

// AgentHealth is one agent's probe outcome.
type AgentHealth struct {
	Status     HealthStatus `json:"status"`
	Detail     string       `json:"detail,omitempty"`
	Generation uint64       `json:"generation"`
}

// HealthReport is the pool-wide health composition.
type HealthReport struct {
	Status HealthStatus           `json:"status"`
	Agents map[string]AgentHealth `json:"agents"`
}

// DefaultProbeTimeout bounds each liveness probe.
const DefaultProbeTimeout = 5 * time.Second

// Aggregator polls every mounted handler's liveness probe and composes the
// pool health report. Agent faults degrade the report; they are never fatal
// to the pool itself.
type Aggregator struct {
	table   *Table
	timeout time.Duration
}

// NewAggregator creates an Aggregator. A zero timeout uses DefaultProbeTimeout.
func NewAggregator(table *Table, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Aggregator{table: table, timeout: timeout}
}

// CheckAll probes every mounted agent concurrently. A probe that times out,
// errors, or panics marks only that agent unhealthy; aggregation of the rest
// continues. The pool is Healthy iff every agent is, Degraded otherwise.
func (a *Aggregator) CheckAll(ctx context.Context) *HealthReport {
	entries := a.table.List()

	report := &HealthReport{
		Status: Healthy,
		Agents: make(map[string]AgentHealth, len(entries)),
	}

	var mu sync.Mutex
	var g errgroup.Group

	for _, entry := range entries {
		g.Go(func() error {
			health := a.checkOne(ctx, entry)
			mu.Lock()
			report.Agents[entry.Name] = health
			if health.Status != Healthy {
				report.Status = Degraded
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return report
}

func (a *Aggregator) checkOne(ctx context.Context, entry *MountEntry) AgentHealth {
	if !entry.Routable() {
		return AgentHealth{
			Status:     Unhealthy,
			Detail:     fmt.Sprintf("not loaded: %s", entry.Reason),
			Generation: entry.Generation,
		}
	}

	if err := a.probe(ctx, entry); err != nil {
		return AgentHealth{
			Status:     Unhealthy,
			Detail:     err.Error(),
			Generation: entry.Generation,
		}
	}

	return AgentHealth{Status: Healthy, Generation: entry.Generation}
}

// probe runs the handler's liveness probe under the configured timeout. The
// probe runs in its own goroutine so a handler that ignores its context
// cannot stall aggregation; panics are contained to the probed agent.
func (a *Aggregator) probe(ctx context.Context, entry *MountEntry) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("probe panicked: %v", r)
			}
		}()
		done <- entry.Handler.Probe(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("probe timed out after %v", a.timeout)
	}
}
