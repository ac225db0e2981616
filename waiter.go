package future

import (
	"context"
	"sync/atomic"
	"time"
	"unsafe"
)

type (
	// waiter is a wait-queue node: a blocked-goroutine descriptor on the
	// lock-free LIFO stack headed at Future.waiters.
	//
	// Construction is two-phase: newWaiter writes wake/handle/next as raw
	// (strategy-dependent) stores, and the node becomes visible to other
	// goroutines only via the subsequent successful CAS on the queue head.
	// Neither field may be read by another goroutine before that CAS.
	waiter struct {
		// wake receives the completion signal. Buffered so an unpark racing
		// a node that already unlinked itself never blocks the producer.
		wake chan struct{}
		// handle is *chan struct{} while the node is live, nil once the
		// node has been woken or logically removed. Claimed single-use via
		// the capability layer's takeWake.
		handle unsafe.Pointer
		// next is the stack link (*waiter), written raw before publication
		// and atomically thereafter (removal unlinks concurrently with the
		// producer's drain walk).
		next unsafe.Pointer
	}
)

// closedWaiter marks a drained wait queue. Its presence at the queue head
// tells registering goroutines the future already completed: they must
// re-read the result slot (guaranteed terminal) instead of enqueueing.
var closedWaiter = new(waiter)

func newWaiter() *waiter {
	w := &waiter{wake: make(chan struct{}, 1)}
	ops.putWake(w, &w.wake)
	return w
}

func (w *waiter) loadNext() *waiter {
	return (*waiter)(atomic.LoadPointer(&w.next))
}

// storeNext is the post-publication link update, used when unlinking
// logically removed nodes.
func (w *waiter) storeNext(next *waiter) {
	atomic.StorePointer(&w.next, unsafe.Pointer(next))
}

// live reports whether the node still holds its wake handle, i.e. has not
// been woken or logically removed.
func (w *waiter) live() bool {
	return atomic.LoadPointer(&w.handle) != nil
}

// clear marks the node logically removed. Idempotent; races with unpark are
// benign (the loser observes a nil handle and does nothing).
func (w *waiter) clear() {
	ops.takeWake(w)
}

// unpark wakes the node's goroutine, if the node is still live. This races
// with removal: the only cost of losing is a redundant (absorbed) signal.
func (w *waiter) unpark() {
	if ch := ops.takeWake(w); ch != nil {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// park suspends the caller until woken or the context is cancelled. Either
// way the caller re-checks cancellation and the result slot; a wake without
// either condition is treated as spurious.
func (w *waiter) park(ctx context.Context) {
	select {
	case <-w.wake:
	case <-ctx.Done():
	}
}

// parkFor is park with a bounded duration.
func (w *waiter) parkFor(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-w.wake:
	case <-ctx.Done():
	case <-t.C:
	}
}
