// Blocking-wait engine. The design constraints, inherited wholesale:
//
//   - Be responsive to interruption (context cancellation).
//   - Don't create a waiter node unless actually parking; the fast path
//     must not contend on the waiters field.
//   - Completion is defined by the result slot becoming terminal; it can
//     also be observed via the closed marker on the wait queue.
//   - Waking a parked goroutine has non-trivial latency, so for remaining
//     timeouts below spinThreshold, busy-poll instead of parking.
//   - Prefer completion over timeout: parking depends on scheduling, so a
//     wake may be delayed past the deadline even though the future
//     completed in time. A waiter that observes a terminal slot returns it
//     regardless of the clock.

package future

import (
	"context"
	"runtime"
	"time"
)

// spinThreshold is the remaining-wait duration below which a timed get
// busy-polls instead of parking. On the order of the cost of waking a
// parked goroutine: parking below this would itself overshoot the timeout.
const spinThreshold = time.Microsecond

// Get blocks until the future completes, returning the terminal value or
// error (the SetError cause as-is, or a *CancelledError). If ctx is
// cancelled before or during the wait, Get returns a *InterruptedError and
// leaves the future untouched; the wait may be retried.
func (f *Future) Get(ctx context.Context) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return nil, interrupted(ctx)
	}
	if s := f.loadValue(); s.isTerminal() {
		return s.unwrap()
	}
	oldHead := f.loadWaiters()
	if oldHead != closedWaiter {
		node := newWaiter()
		for {
			ops.putNext(node, oldHead)
			if ops.casWaiters(f, oldHead, node) {
				// on the stack; wait for completion
				for {
					node.park(ctx)
					// interruption first: if we woke for it, honor it
					if ctx.Err() != nil {
						f.removeWaiter(node)
						return nil, interrupted(ctx)
					}
					// re-read doneness; otherwise the wake was spurious
					if s := f.loadValue(); s.isTerminal() {
						return s.unwrap()
					}
				}
			}
			oldHead = f.loadWaiters() // re-read and loop
			if oldHead == closedWaiter {
				break
			}
		}
	}
	// observed the closed marker while registering: the slot is guaranteed
	// terminal (it is always written before the marker)
	return f.loadValue().unwrap()
}

// GetWithTimeout is Get with a deadline, computed once at entry. A
// non-positive timeout never blocks: it returns the value if the future is
// already complete, and a *TimeoutError otherwise.
//
// The wait parks in bounded slices while the remaining duration is at least
// the spin threshold, then unlinks its queue node and busy-polls the
// residual. On timeout, the returned *TimeoutError reports the requested
// duration, any scheduling overrun beyond the spin threshold, and whether
// the future had in fact completed by the time of the timeout decision.
func (f *Future) GetWithTimeout(ctx context.Context, timeout time.Duration) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	remaining := timeout
	if ctx.Err() != nil {
		return nil, interrupted(ctx)
	}
	if s := f.loadValue(); s.isTerminal() {
		return s.unwrap()
	}
	// delay reading the clock until we know we will park or spin
	var deadline time.Time
	if remaining > 0 {
		deadline = time.Now().Add(remaining)
	}
	if remaining >= spinThreshold {
		oldHead := f.loadWaiters()
		if oldHead == closedWaiter {
			return f.loadValue().unwrap()
		}
		node := newWaiter()
	longWait:
		for {
			ops.putNext(node, oldHead)
			if ops.casWaiters(f, oldHead, node) {
				for {
					node.parkFor(ctx, remaining)
					// interruption first: if we woke for it, honor it
					if ctx.Err() != nil {
						f.removeWaiter(node)
						return nil, interrupted(ctx)
					}
					// re-read doneness; otherwise the wake was spurious or
					// the park slice elapsed
					if s := f.loadValue(); s.isTerminal() {
						return s.unwrap()
					}
					remaining = time.Until(deadline)
					if remaining < spinThreshold {
						// done parking one way or another
						f.removeWaiter(node)
						break longWait // fall to the busy-wait loop
					}
				}
			}
			oldHead = f.loadWaiters() // re-read and loop
			if oldHead == closedWaiter {
				return f.loadValue().unwrap()
			}
		}
	}
	// remaining < spinThreshold, and no node is on the waiters list
	for remaining > 0 {
		if s := f.loadValue(); s.isTerminal() {
			return s.unwrap()
		}
		if ctx.Err() != nil {
			return nil, interrupted(ctx)
		}
		// the original spins hot; Go's cooperative scheduler wants a yield
		// so the completing goroutine can run on GOMAXPROCS=1
		runtime.Gosched()
		remaining = time.Until(deadline)
	}

	terr := &TimeoutError{Requested: timeout}
	// only report scheduling delay beyond the spin threshold; less is noise
	if overrun := -remaining; overrun > spinThreshold {
		terr.Overrun = overrun
	}
	// a completion that landed as the timeout expired must read differently
	// from "still pending" in logs
	terr.Completed = f.loadValue().isTerminal()
	return nil, terr
}

func interrupted(ctx context.Context) error {
	return &InterruptedError{Cause: context.Cause(ctx)}
}
