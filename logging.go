// Package-level logging configuration. A package-global logger is
// appropriate here for the same reason as elsewhere in this module family:
// the only things worth logging are process-wide, cross-cutting conditions
// (degraded atomic strategy selection, listener panics), and a per-instance
// logging surface would bloat a three-word primitive.

package future

import (
	"errors"
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

var globalLogger atomic.Pointer[logiface.Logger[logiface.Event]]

// SetLogger configures the package logger. The default is nil (no logging).
// Safe to call at any time, from any goroutine.
//
// Setting a logger also reports, once, any degraded atomic-strategy
// selection recorded at process start: strategy probing happens during
// package initialization, before any logger can exist, so the diagnostic is
// deferred to here rather than lost.
func SetLogger(logger *logiface.Logger[logiface.Event]) {
	globalLogger.Store(logger)
	logAtomicsDegraded()
}

func getLogger() *logiface.Logger[logiface.Event] {
	return globalLogger.Load()
}

// logAtomicsDegraded reports a degraded strategy selection: an internal,
// non-fatal condition that is logged exactly once and never surfaced to
// callers.
func logAtomicsDegraded() {
	if len(atomicProbeErrs) == 0 {
		return
	}
	l := getLogger()
	if l == nil {
		return
	}
	degradedOnce.Do(func() {
		l.Warning().
			Err(errors.Join(atomicProbeErrs...)).
			Str(`strategy`, ops.name()).
			Log(`future: preferred atomic strategy unavailable, running degraded`)
	})
}
