// Package-level error types for wait failures. These follow the taxonomy
// split between "the wait was abandoned" (InterruptedError, TimeoutError)
// and "the future itself terminated abnormally" (CancelledError, or the
// error passed to SetError, which is returned as-is).

package future

import (
	"fmt"
	"time"
)

// InterruptedError indicates a blocking wait was abandoned because the
// caller's context was cancelled. The future's own state is unaffected; the
// wait may be retried with a live context.
type InterruptedError struct {
	// Cause is the context's cancellation cause.
	Cause error
}

// Error implements the error interface.
func (e *InterruptedError) Error() string {
	if e.Cause == nil {
		return "future: wait interrupted"
	}
	return fmt.Sprintf("future: wait interrupted: %v", e.Cause)
}

// Unwrap returns the underlying cause for use with [errors.Is] and
// [errors.As], e.g. to match [context.Canceled].
func (e *InterruptedError) Unwrap() error {
	return e.Cause
}

// CancelledError is returned from a wait that observed a cancelled future.
type CancelledError struct {
	// Cause is the optional cancellation cause passed to Cancel.
	Cause error
}

// Error implements the error interface.
func (e *CancelledError) Error() string {
	if e.Cause == nil {
		return "future: future was cancelled"
	}
	return fmt.Sprintf("future: future was cancelled: %v", e.Cause)
}

// Unwrap returns the underlying cause for use with [errors.Is] and
// [errors.As].
func (e *CancelledError) Unwrap() error {
	return e.Cause
}

// TimeoutError indicates a timed wait elapsed without observing completion.
//
// The diagnostic distinguishes two operator-relevant conditions: scheduling
// delay (the wait ran meaningfully longer than requested before the timeout
// decision was made), and a lost race with completion (the future did in
// fact complete, but only after the deadline expired).
type TimeoutError struct {
	// Requested is the timeout passed to GetWithTimeout.
	Requested time.Duration
	// Overrun is how much longer than Requested the wait actually ran, if
	// that exceeded the spin threshold; otherwise zero (sub-threshold
	// overruns are noise).
	Overrun time.Duration
	// Completed reports whether the future had completed by the time the
	// timeout decision was made.
	Completed bool
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("future: waited %s", e.Requested)
	if e.Overrun > 0 {
		msg += fmt.Sprintf(" (plus %s delay)", e.Overrun)
	}
	if e.Completed {
		// It's confusing to report a timeout on a future that looks done, so
		// call out that completion landed after the deadline expired.
		return msg + " but future completed as timeout expired"
	}
	return msg + " for pending future"
}
