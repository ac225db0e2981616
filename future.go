package future

import (
	"sync/atomic"
	"unsafe"
)

// Future is a single-assignment completion primitive. The zero value is a
// pending future, ready for use; New is provided for symmetry with the rest
// of the module ecosystem.
//
// A Future must not be copied after first use.
type Future struct {
	// value is the result slot: nil while pending, *settled afterwards.
	// Mutated only via the atomic capability layer.
	value unsafe.Pointer
	// waiters is the wait-queue head (*waiter), a Treiber stack of blocked
	// goroutines, closed with closedWaiter on completion.
	waiters unsafe.Pointer
	// listeners is the listener-queue head (*listener), a Treiber stack of
	// pending callbacks, drained by exchange (never closed).
	listeners unsafe.Pointer
}

// New creates a pending Future.
func New() *Future {
	return &Future{}
}

func (f *Future) loadValue() *settled {
	return (*settled)(atomic.LoadPointer(&f.value))
}

func (f *Future) loadWaiters() *waiter {
	return (*waiter)(atomic.LoadPointer(&f.waiters))
}

func (f *Future) loadListeners() *listener {
	return (*listener)(atomic.LoadPointer(&f.listeners))
}

// State returns the current state of the future. Never blocks.
func (f *Future) State() State {
	s := f.loadValue()
	if s == nil {
		return StatePending
	}
	return s.kind
}

// Done reports whether the future has actually completed. A delegating
// future (SetFuture called, delegate still pending) is not done.
func (f *Future) Done() bool {
	return f.loadValue().isTerminal()
}

// Result returns the terminal value or error without blocking. ok is false
// while the future is pending or delegating, in which case value and err
// are nil.
func (f *Future) Result() (value any, err error, ok bool) {
	s := f.loadValue()
	if !s.isTerminal() {
		return nil, nil, false
	}
	value, err = s.unwrap()
	return value, err, true
}

// String returns a diagnostic description of the future's state.
func (f *Future) String() string {
	switch s := f.loadValue(); {
	case s == nil:
		return "future: pending"
	case s.kind == StateDelegating:
		return "future: delegating to [" + s.target.String() + "]"
	case s.kind == StateSuccess:
		return "future: success"
	case s.kind == StateCancelled:
		return "future: cancelled"
	default:
		return "future: failure: " + s.err.Error()
	}
}

// Set completes the future with a value (which may be nil), returning
// whether this call performed the transition. At most one producer across
// all racing Set, SetError, Cancel, and SetFuture calls succeeds.
func (f *Future) Set(value any) bool {
	s := nilPayload
	if value != nil {
		s = &settled{kind: StateSuccess, value: value}
	}
	return f.complete(nil, s)
}

// SetError completes the future with an error, returning whether this call
// performed the transition. Panics if err is nil.
func (f *Future) SetError(err error) bool {
	if err == nil {
		panic(`future: nil error`)
	}
	return f.complete(nil, &settled{kind: StateFailure, err: err})
}

// Cancel cancels the future, returning whether this call performed the
// transition. The cause is optional and surfaces via CancelledError.
//
// Unlike Set and SetError, Cancel may also overwrite a delegating slot: a
// future bound to a delegate via SetFuture can still be cancelled, in which
// case the delegate's eventual result is discarded silently.
func (f *Future) Cancel(cause error) bool {
	s := &settled{kind: StateCancelled, err: cause}
	for {
		cur := f.loadValue()
		if cur != nil && cur.kind != StateDelegating {
			return false
		}
		if f.complete(cur, s) {
			return true
		}
		// lost a CAS race; re-read, the slot may now be delegating (still
		// cancellable) or terminal (not)
	}
}

// SetFuture binds this future to adopt the outcome of delegate, returning
// whether this call performed the (pending → delegating) transition. When
// the delegate completes, its terminal value is copied into this future;
// if this future was cancelled in the interim, that copy loses its CAS and
// the delegate's result is discarded. Panics if delegate is nil.
//
// Consumers observe StateDelegating as "not yet done": Get keeps waiting
// until the delegate's outcome lands.
func (f *Future) SetFuture(delegate *Future) bool {
	if delegate == nil {
		panic(`future: nil delegate`)
	}
	d := &settled{kind: StateDelegating, target: delegate}
	if !ops.casValue(f, nil, d) {
		return false
	}
	delegate.AddListener(func() {
		// terminal by the listener dispatch contract
		f.complete(d, delegate.loadValue())
	}, DirectExecutor)
	return true
}

// complete attempts the slot transition expect → update via the capability
// layer's CAS. On success with a terminal update, the caller (the winning
// producer) drains and wakes the wait queue, then drains and dispatches the
// listener queue, after the slot write is visible.
func (f *Future) complete(expect, update *settled) bool {
	if !ops.casValue(f, expect, update) {
		return false
	}
	if update.kind == StateDelegating {
		// intermediate transition: waiters keep waiting, listeners keep
		// pending, until the delegate's outcome is copied in
		return true
	}
	f.releaseWaiters()
	f.drainListeners()
	return true
}

// releaseWaiters closes the wait queue with the sentinel head and wakes
// every node on the prior chain. Nodes that already unlinked themselves
// have a cleared handle; waking them is a no-op.
func (f *Future) releaseWaiters() {
	w := ops.gasWaiters(f, closedWaiter)
	for w != nil && w != closedWaiter {
		next := w.loadNext()
		w.unpark()
		w = next
	}
}

// removeWaiter marks node logically removed, then walks the queue from the
// head unlinking all cleared nodes. O(n) per call, accepted: it only runs
// when a waiter times out or is interrupted, both rare, and queues are
// expected to stay short.
func (f *Future) removeWaiter(node *waiter) {
	node.clear()
restart:
	for {
		var pred *waiter
		curr := f.loadWaiters()
		if curr == closedWaiter {
			return // completion is draining the whole list
		}
		for curr != nil {
			succ := curr.loadNext()
			if curr.live() { // not unlinking this node, update pred
				pred = curr
			} else if pred != nil { // unlinking an interior node
				pred.storeNext(succ)
				if !pred.live() { // raced with a removal of pred
					continue restart
				}
			} else if !ops.casWaiters(f, curr, succ) { // unlinking the head
				continue restart // raced with an add or a completion
			}
			curr = succ
		}
		return
	}
}

// AddListener registers a completion callback paired with the executor that
// should run it. If the future is already complete, the callback is
// dispatched promptly by this call; otherwise it is dispatched by whichever
// goroutine completes the future. Each callback is handed to its executor
// exactly once. A nil exec defaults to DirectExecutor. Panics if run is nil.
func (f *Future) AddListener(run func(), exec Executor) {
	if run == nil {
		panic(`future: nil listener`)
	}
	if exec == nil {
		exec = DirectExecutor
	}
	node := &listener{run: run, exec: exec}
	for {
		head := f.loadListeners()
		node.next = head // published by the CAS below
		if ops.casListeners(f, head, node) {
			break
		}
	}
	// No closed-marker short-circuit: a push after completion must still
	// run. If the slot is terminal the producer's drain may already have
	// happened, so drain again; the exchange assigns each node exactly once.
	if f.loadValue().isTerminal() {
		f.drainListeners()
	}
}
