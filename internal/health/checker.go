// Package health runs the readiness checks behind 'backlog doctor': config,
// tracker credentials, project access and generator settings.
//
//	m := health.NewManager()
//	m.AddChecker(health.NewTrackerChecker(client))
//	m.AddChecker(health.NewProjectChecker(client, resolver, "DEMO"))
//	for _, c := range m.Check(ctx) {
//	    fmt.Println(c.Name, c.Status, c.Message)
//	}
package health

import (
	"context"
	"time"
)

// Checker verifies one dependency. Check must respect ctx.
type Checker interface {
	Name() string
	Check(ctx context.Context) *Result
}

// Status is the outcome of a check.
type Status string

const (
	// StatusHealthy means the dependency is usable.
	StatusHealthy Status = "ok"
	// StatusDegraded means some commands will not work.
	StatusDegraded Status = "warning"
	// StatusUnhealthy means publishing will fail.
	StatusUnhealthy Status = "error"
	// StatusSkipped means the check had nothing to verify.
	StatusSkipped Status = "skipped"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Result is what a checker found.
type Result struct {
	Status  Status         `json:"status" yaml:"status"`
	Message string         `json:"message" yaml:"message"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Latency time.Duration  `json:"latency" yaml:"latency"`
	// Hint is a next step for the user when the check did not pass.
	Hint string `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// NewResult creates a result with the given status and message.
func NewResult(status Status, message string) *Result {
	return &Result{
		Status:  status,
		Message: message,
		Details: make(map[string]any),
	}
}

// WithDetail adds a detail to the result and returns the result for chaining.
func (r *Result) WithDetail(key string, value any) *Result {
	r.Details[key] = value
	return r
}

// WithHint sets the follow-up suggestion.
func (r *Result) WithHint(hint string) *Result {
	r.Hint = hint
	return r
}

// Healthy creates a healthy result with the given message.
func Healthy(message string) *Result {
	return NewResult(StatusHealthy, message)
}

// Degraded creates a degraded result with the given message.
func Degraded(message string) *Result {
	return NewResult(StatusDegraded, message)
}

// Unhealthy creates an unhealthy result with the given message.
func Unhealthy(message string) *Result {
	return NewResult(StatusUnhealthy, message)
}

// Skipped creates a result for a check that did not run.
func Skipped(message string) *Result {
	return NewResult(StatusSkipped, message)
}
