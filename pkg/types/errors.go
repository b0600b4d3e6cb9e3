package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes roles have to reason about. All of
// them are absorbed into the control loop's normal transitions; none escapes
// to the caller of a session as a fault.
var (
	// ErrCapabilityDenied marks an action outside the invoking role's
	// permitted set. The proxy never retries it.
	ErrCapabilityDenied = errors.New("capability denied")

	// ErrActionTimeout marks a primitive that did not return within its
	// bounded interval.
	ErrActionTimeout = errors.New("action timed out")

	// ErrStaleElementReference marks an OCR id used after its screenshot was
	// superseded. A fresh OCR pass is required before retrying.
	ErrStaleElementReference = errors.New("stale OCR element reference")

	// ErrSubtaskStepLimit marks a specialist that hit its per-subtask step
	// bound. The specialist returns a failed result, not this error.
	ErrSubtaskStepLimit = errors.New("subtask step limit exceeded")

	// ErrIterationLimit marks a session that exhausted its iteration budget.
	ErrIterationLimit = errors.New("iteration limit exceeded")
)

// ActionExecutionError wraps a failure reported by the underlying computer
// surface. The proxy propagates it without retrying; recovery is a decision
// made by the calling role.
type ActionExecutionError struct {
	Action string
	Err    error
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("action %q failed: %v", e.Action, e.Err)
}

func (e *ActionExecutionError) Unwrap() error { return e.Err }
