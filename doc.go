// Package future provides a lock-free, single-assignment completion
// primitive: a result slot that one producer resolves exactly once, and that
// arbitrarily many consumers may block on, poll, or observe via listeners.
//
// # Architecture
//
// A [Future] is three machine words of shared state: the result slot, a
// wait-queue head, and a listener-queue head. All three are mutated
// exclusively through an atomic capability layer selected once per process
// (see "Atomic strategies" below). Completion is linearized by a single
// successful compare-and-set on the result slot; the winning producer then
// drains and wakes the wait queue, and drains and dispatches the listener
// queue.
//
// Both queues are Treiber stacks (CAS-prepend, lock-free LIFO). The wait
// queue is closed with a sentinel head once the future completes, forcing
// concurrent registrations to re-check the slot. The listener queue is never
// closed; instead, drains use an atomic exchange, so a listener registered
// after completion is still dispatched exactly once, by whichever side wins
// the exchange.
//
// # Blocking waits
//
// [Future.Get] blocks the calling goroutine until the future completes or
// the context is cancelled. [Future.GetWithTimeout] additionally bounds the
// wait, combining a queue-and-park strategy with a busy-spin fallback for
// remaining durations below one microsecond (parking below that threshold
// would itself exceed the timeout). Completion is preferred over timeout: a
// waiter that observes a terminal slot after its deadline still returns the
// value.
//
// Cancelling the wait (context) or timing out cancels only the wait; the
// future's own state is untouched, and the wait may be retried.
//
// # Atomic strategies
//
// The capability layer is chosen at process start from an ordered ladder:
// direct pointer intrinsics (compare-and-swap plus swap), a CAS-only
// strategy that emulates swap with a retry loop, and finally a striped-mutex
// strategy that always succeeds. Each candidate is probed with a self-test;
// probe failures are non-fatal and cascade to the next rung. A degraded
// selection is reported once via the package logger, never to callers. The
// GOFUTURE_ATOMICS environment variable forces a named strategy, primarily
// for diagnostics.
//
// # Thread safety
//
// All methods are safe for concurrent use. [Future.Set], [Future.SetError],
// [Future.Cancel], [Future.SetFuture], [Future.State], and
// [Future.AddListener] never block (their CAS retry loops are O(1) expected
// under low contention). Only [Future.Get] and [Future.GetWithTimeout]
// suspend the caller.
//
// # Usage
//
//	f := future.New()
//
//	go func() {
//	    v, err := doWork()
//	    if err != nil {
//	        f.SetError(err)
//	    } else {
//	        f.Set(v)
//	    }
//	}()
//
//	v, err := f.Get(ctx)
//
// Listeners receive a completion hand-off, paired with an [Executor] that
// decides where the callback runs:
//
//	f.AddListener(func() { fmt.Println(f.State()) }, future.DirectExecutor)
package future
