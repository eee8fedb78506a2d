package orchestrator

import (
	"context"
	"errors"
	"fmt"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
	"github.com/felixgeelhaar/backlog/internal/plan"
)

// ErrStop is returned by a ProgressFunc to halt the run before the next item.
var ErrStop = errors.New("run stopped by caller")

// UnresolvedParentError means a node's parent has no remote key yet. It
// points at a malformed plan and is never retried.
type UnresolvedParentError struct {
	LocalID  string
	ParentID string
}

func (e *UnresolvedParentError) Error() string {
	return fmt.Sprintf("parent %q of %q has not been created", e.ParentID, e.LocalID)
}

// Code implements errors.Coder.
func (e *UnresolvedParentError) Code() berrors.ErrorCode {
	return berrors.ErrCodeUnresolvedParent
}

// RunError reports where a run halted and what had been created by then.
type RunError struct {
	RunID string
	// LocalID and Kind identify the failing node. Both are empty when the
	// run failed while resolving schemas.
	LocalID string
	Kind    plan.Kind
	// Partial holds every node created before the failure.
	Partial IdentifierMap
	Err     error
}

func (e *RunError) Error() string {
	if e.LocalID == "" {
		return fmt.Sprintf("run %s failed before creating any issue: %v", e.RunID, e.Err)
	}
	return fmt.Sprintf("run %s halted at %s %s after creating %d issue(s): %v",
		e.RunID, e.Kind, e.LocalID, e.Partial.Created(), e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Stopped reports whether the run was halted on request rather than by a
// failure.
func (e *RunError) Stopped() bool {
	return errors.Is(e.Err, ErrStop) || errors.Is(e.Err, context.Canceled)
}

// Halted reports whether the run failed after creating at least one issue.
// A stop request is not a failure.
func (e *RunError) Halted() bool {
	return !e.Stopped() && e.Partial.Created() > 0
}

// Code returns the cause's code when it has one, so callers see the root
// problem (for example an auth failure) rather than a generic run failure.
func (e *RunError) Code() berrors.ErrorCode {
	if e.Stopped() {
		return berrors.ErrCodeRunStopped
	}
	if code := berrors.CodeOf(e.Err); code != "" {
		return code
	}
	return berrors.ErrCodeRunFailed
}
