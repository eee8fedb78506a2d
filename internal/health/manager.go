package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Named is a result tagged with the checker that produced it.
type Named struct {
	Name    string `json:"name" yaml:"name"`
	*Result `yaml:",inline"`
}

// Manager runs checks in parallel, each under its own timeout.
type Manager struct {
	checkers []Checker
	timeout  time.Duration
}

// NewManager creates a manager with a 10-second per-check timeout.
func NewManager() *Manager {
	return &Manager{timeout: 10 * time.Second}
}

// WithTimeout sets a custom timeout for health checks.
func (m *Manager) WithTimeout(timeout time.Duration) *Manager {
	m.timeout = timeout
	return m
}

// AddChecker registers a checker. Results keep registration order.
func (m *Manager) AddChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// Check runs every checker concurrently and returns results in the order the
// checkers were added. A checker that panics or returns nil is reported as
// unhealthy.
func (m *Manager) Check(ctx context.Context) []Named {
	results := make([]Named, len(m.checkers))
	var wg sync.WaitGroup

	for i, c := range m.checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = Named{Name: c.Name(), Result: Unhealthy(fmt.Sprintf("check panicked: %v", r))}
				}
			}()

			checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()

			start := time.Now()
			result := c.Check(checkCtx)
			if result == nil {
				result = Unhealthy("check returned no result")
			}
			if result.Latency == 0 {
				result.Latency = time.Since(start)
			}
			results[i] = Named{Name: c.Name(), Result: result}
		}()
	}

	wg.Wait()
	return results
}

// OverallStatus is the worst status among results; skipped checks do not
// count.
func OverallStatus(results []Named) Status {
	overall := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}
