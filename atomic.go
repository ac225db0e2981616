// Atomic capability layer. All mutation of the three shared fields (result
// slot, wait-queue head, listener-queue head) funnels through a single
// atomicOps strategy, selected once at process start from an ordered ladder
// and never mixed. Reads are plain atomic loads regardless of strategy (the
// locked strategy stores with atomic writes under its lock, so loads remain
// linearizable against it).

package future

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"
)

// AtomicsEnvVar is the environment variable that forces a named atomic
// strategy ("pointer", "casloop", or "locked") at process start. Intended
// for diagnostics; an unrecognized value is ignored (the normal ladder
// applies) and reported via the package logger.
const AtomicsEnvVar = `GOFUTURE_ATOMICS`

// atomicOps abstracts the compare-and-set and exchange operations on a
// Future's three shared fields, plus the raw publication writes used while
// constructing a wait-queue node.
//
// putWake and putNext are NOT atomic in the preferred strategy: they are
// construct-then-publish writes, made visible only by the subsequent
// successful CAS on the wait-queue head, and unsafe to read before that CAS
// completes.
type atomicOps interface {
	name() string

	casValue(f *Future, expect, update *settled) bool
	casWaiters(f *Future, expect, update *waiter) bool
	gasWaiters(f *Future, update *waiter) *waiter
	casListeners(f *Future, expect, update *listener) bool
	gasListeners(f *Future, update *listener) *listener

	// putWake installs the node's wake handle during construction.
	putWake(w *waiter, ch *chan struct{})
	// putNext links the node during construction (or a CAS retry, while the
	// node is still unpublished).
	putNext(w *waiter, next *waiter)
	// takeWake claims the node's wake handle, returning nil if it was
	// already taken. Single-use: exactly one caller receives the channel.
	takeWake(w *waiter) chan struct{}
}

// pointerOps is the preferred strategy: direct sync/atomic pointer
// intrinsics on the field addresses.
type pointerOps struct{}

func (pointerOps) name() string { return "pointer" }

func (pointerOps) casValue(f *Future, expect, update *settled) bool {
	return atomic.CompareAndSwapPointer(&f.value, unsafe.Pointer(expect), unsafe.Pointer(update))
}

func (pointerOps) casWaiters(f *Future, expect, update *waiter) bool {
	return atomic.CompareAndSwapPointer(&f.waiters, unsafe.Pointer(expect), unsafe.Pointer(update))
}

func (pointerOps) gasWaiters(f *Future, update *waiter) *waiter {
	return (*waiter)(atomic.SwapPointer(&f.waiters, unsafe.Pointer(update)))
}

func (pointerOps) casListeners(f *Future, expect, update *listener) bool {
	return atomic.CompareAndSwapPointer(&f.listeners, unsafe.Pointer(expect), unsafe.Pointer(update))
}

func (pointerOps) gasListeners(f *Future, update *listener) *listener {
	return (*listener)(atomic.SwapPointer(&f.listeners, unsafe.Pointer(update)))
}

func (pointerOps) putWake(w *waiter, ch *chan struct{}) {
	// raw write, published by the CAS on the waiters head
	w.handle = unsafe.Pointer(ch)
}

func (pointerOps) putNext(w *waiter, next *waiter) {
	// raw write, published by the CAS on the waiters head
	w.next = unsafe.Pointer(next)
}

func (pointerOps) takeWake(w *waiter) chan struct{} {
	p := (*chan struct{})(atomic.SwapPointer(&w.handle, nil))
	if p == nil {
		return nil
	}
	return *p
}

// casOnlyOps relies solely on compare-and-swap, emulating exchange with a
// retry loop, and publishing node fields with atomic stores. Fallback for
// platforms where a native swap intrinsic is unavailable or distrusted.
type casOnlyOps struct{}

func (casOnlyOps) name() string { return "casloop" }

func (casOnlyOps) casValue(f *Future, expect, update *settled) bool {
	return atomic.CompareAndSwapPointer(&f.value, unsafe.Pointer(expect), unsafe.Pointer(update))
}

func (casOnlyOps) casWaiters(f *Future, expect, update *waiter) bool {
	return atomic.CompareAndSwapPointer(&f.waiters, unsafe.Pointer(expect), unsafe.Pointer(update))
}

func (o casOnlyOps) gasWaiters(f *Future, update *waiter) *waiter {
	for {
		old := f.loadWaiters()
		if old == update {
			return old
		}
		if o.casWaiters(f, old, update) {
			return old
		}
	}
}

func (casOnlyOps) casListeners(f *Future, expect, update *listener) bool {
	return atomic.CompareAndSwapPointer(&f.listeners, unsafe.Pointer(expect), unsafe.Pointer(update))
}

func (o casOnlyOps) gasListeners(f *Future, update *listener) *listener {
	for {
		old := f.loadListeners()
		if old == update {
			return old
		}
		if o.casListeners(f, old, update) {
			return old
		}
	}
}

func (casOnlyOps) putWake(w *waiter, ch *chan struct{}) {
	atomic.StorePointer(&w.handle, unsafe.Pointer(ch))
}

func (casOnlyOps) putNext(w *waiter, next *waiter) {
	atomic.StorePointer(&w.next, unsafe.Pointer(next))
}

func (casOnlyOps) takeWake(w *waiter) chan struct{} {
	for {
		p := atomic.LoadPointer(&w.handle)
		if p == nil {
			return nil
		}
		if atomic.CompareAndSwapPointer(&w.handle, p, nil) {
			return *(*chan struct{})(p)
		}
	}
}

// lockedOps is the strategy of last resort: all field access for a given
// instance is serialized behind one mutex from a striped table hashed by
// instance address. Stores remain atomic so that plain atomic loads (used
// by every read path) stay linearizable against it.
type lockedOps struct{}

func (lockedOps) name() string { return "locked" }

var opLocks [64]sync.Mutex

func lockFor(p unsafe.Pointer) *sync.Mutex {
	return &opLocks[(uintptr(p)>>4)%uintptr(len(opLocks))]
}

func lockedCAS(owner unsafe.Pointer, addr *unsafe.Pointer, expect, update unsafe.Pointer) bool {
	mu := lockFor(owner)
	mu.Lock()
	defer mu.Unlock()
	if atomic.LoadPointer(addr) != expect {
		return false
	}
	atomic.StorePointer(addr, update)
	return true
}

func lockedGAS(owner unsafe.Pointer, addr *unsafe.Pointer, update unsafe.Pointer) unsafe.Pointer {
	mu := lockFor(owner)
	mu.Lock()
	defer mu.Unlock()
	old := atomic.LoadPointer(addr)
	if old != update {
		atomic.StorePointer(addr, update)
	}
	return old
}

func (lockedOps) casValue(f *Future, expect, update *settled) bool {
	return lockedCAS(unsafe.Pointer(f), &f.value, unsafe.Pointer(expect), unsafe.Pointer(update))
}

func (lockedOps) casWaiters(f *Future, expect, update *waiter) bool {
	return lockedCAS(unsafe.Pointer(f), &f.waiters, unsafe.Pointer(expect), unsafe.Pointer(update))
}

func (lockedOps) gasWaiters(f *Future, update *waiter) *waiter {
	return (*waiter)(lockedGAS(unsafe.Pointer(f), &f.waiters, unsafe.Pointer(update)))
}

func (lockedOps) casListeners(f *Future, expect, update *listener) bool {
	return lockedCAS(unsafe.Pointer(f), &f.listeners, unsafe.Pointer(expect), unsafe.Pointer(update))
}

func (lockedOps) gasListeners(f *Future, update *listener) *listener {
	return (*listener)(lockedGAS(unsafe.Pointer(f), &f.listeners, unsafe.Pointer(update)))
}

func (lockedOps) putWake(w *waiter, ch *chan struct{}) {
	atomic.StorePointer(&w.handle, unsafe.Pointer(ch))
}

func (lockedOps) putNext(w *waiter, next *waiter) {
	atomic.StorePointer(&w.next, unsafe.Pointer(next))
}

func (lockedOps) takeWake(w *waiter) chan struct{} {
	p := (*chan struct{})(lockedGAS(unsafe.Pointer(w), &w.handle, nil))
	if p == nil {
		return nil
	}
	return *p
}

// ops is the process-wide strategy. Selected exactly once; never re-probed.
var (
	ops             atomicOps
	atomicProbeErrs []error
	degradedOnce    sync.Once
)

func init() {
	ops, atomicProbeErrs = selectAtomicOps(os.Getenv(AtomicsEnvVar))
}

// AtomicsStrategy returns the name of the atomic strategy selected for this
// process ("pointer", "casloop", or "locked").
func AtomicsStrategy() string {
	return ops.name()
}

// selectAtomicOps picks the first strategy from the ladder whose probe
// succeeds. A non-empty force restricts the head of the ladder to the named
// strategy, cascading through the remaining rungs if its probe fails.
//
// The returned errors record every probe failure (and any unrecognized
// force value); a non-empty slice means the selection is degraded relative
// to the preferred strategy.
func selectAtomicOps(force string) (atomicOps, []error) {
	ladder := []atomicOps{pointerOps{}, casOnlyOps{}, lockedOps{}}

	var errs []error
	if force != "" {
		found := false
		for i, o := range ladder {
			if o.name() == force {
				ladder = ladder[i:]
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Errorf(`future: unrecognized %s value %q`, AtomicsEnvVar, force))
		}
	}

	for i, o := range ladder {
		if err := probeAtomicOps(o); err != nil {
			errs = append(errs, fmt.Errorf(`future: atomic strategy %q failed probe: %w`, o.name(), err))
			continue
		}
		if i > 0 || len(errs) != 0 {
			// degraded or forced-off-preferred selection, reported via the
			// package logger once one is configured
			return o, errs
		}
		return o, nil
	}

	// unreachable in practice: the locked strategy's probe cannot fail
	panic(errors.Join(errs...))
}

// probeAtomicOps self-tests a candidate strategy on scratch instances.
// Any panic or semantic mismatch is converted to an error so that selection
// can cascade, per the non-fatal initialization contract.
func probeAtomicOps(o atomicOps) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf(`probe panic: %v`, r)
		}
	}()

	fail := func(op string) error { return fmt.Errorf(`probe %s mismatch`, op) }

	f := new(Future)
	a, b := &settled{kind: StateSuccess}, &settled{kind: StateFailure}
	if !o.casValue(f, nil, a) {
		return fail(`casValue`)
	}
	if o.casValue(f, nil, b) || f.loadValue() != a {
		return fail(`casValue exactly-once`)
	}

	w := &waiter{wake: make(chan struct{}, 1)}
	o.putWake(w, &w.wake)
	o.putNext(w, nil)
	if o.gasWaiters(f, w) != nil {
		return fail(`gasWaiters`)
	}
	if !o.casWaiters(f, w, nil) {
		return fail(`casWaiters`)
	}
	if ch := o.takeWake(w); ch == nil {
		return fail(`takeWake`)
	}
	if ch := o.takeWake(w); ch != nil {
		return fail(`takeWake single-use`)
	}

	n := &listener{run: func() {}, exec: DirectExecutor}
	if !o.casListeners(f, nil, n) {
		return fail(`casListeners`)
	}
	if o.gasListeners(f, nil) != n || f.loadListeners() != nil {
		return fail(`gasListeners`)
	}

	return nil
}
