package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withOps swaps the process-wide strategy for the duration of fn. Tests
// using this must not run in parallel.
func withOps(t *testing.T, o atomicOps, fn func()) {
	t.Helper()
	prev := ops
	ops = o
	defer func() { ops = prev }()
	fn()
}

func allStrategies() []atomicOps {
	return []atomicOps{pointerOps{}, casOnlyOps{}, lockedOps{}}
}

func TestProbeAtomicOps_allStrategiesPass(t *testing.T) {
	for _, o := range allStrategies() {
		t.Run(o.name(), func(t *testing.T) {
			require.NoError(t, probeAtomicOps(o))
		})
	}
}

func TestSelectAtomicOps_default(t *testing.T) {
	o, errs := selectAtomicOps(``)
	require.Equal(t, `pointer`, o.name())
	require.Empty(t, errs)
}

func TestSelectAtomicOps_forced(t *testing.T) {
	for _, name := range [...]string{`pointer`, `casloop`, `locked`} {
		t.Run(name, func(t *testing.T) {
			o, errs := selectAtomicOps(name)
			require.Equal(t, name, o.name())
			// deliberately forcing a strategy is not a degraded selection
			require.Empty(t, errs)
		})
	}
}

func TestSelectAtomicOps_unrecognizedForce(t *testing.T) {
	// an unrecognized force falls back to the normal ladder, recording the
	// problem for the degraded-selection diagnostic
	o, errs := selectAtomicOps(`bogus`)
	require.Equal(t, `pointer`, o.name())
	require.Len(t, errs, 1)
	require.ErrorContains(t, errs[0], `bogus`)
}

func TestAtomicsStrategy(t *testing.T) {
	assert.Contains(t, []string{`pointer`, `casloop`, `locked`}, AtomicsStrategy())
}

// Exchange emulation must behave as an exchange: the prior head comes back
// exactly once per swapped value.
func TestCasOnlyOps_gasSemantics(t *testing.T) {
	o := casOnlyOps{}
	f := new(Future)

	a := &waiter{wake: make(chan struct{}, 1)}
	o.putWake(a, &a.wake)
	require.Nil(t, o.gasWaiters(f, a))
	require.Same(t, a, o.gasWaiters(f, closedWaiter))
	// exchanging for the current head is a no-op returning it
	require.Same(t, closedWaiter, o.gasWaiters(f, closedWaiter))
}

func TestLockedOps_casSemantics(t *testing.T) {
	o := lockedOps{}
	f := new(Future)
	a, b := &settled{kind: StateSuccess}, &settled{kind: StateFailure}

	require.True(t, o.casValue(f, nil, a))
	require.False(t, o.casValue(f, nil, b))
	require.Same(t, a, f.loadValue())
	require.True(t, o.casValue(f, a, b))
	require.Same(t, b, f.loadValue())
}

// The wake handle is single-use under every strategy, even with many
// concurrent claimants (the wake/removal race must award the handle to
// exactly one side).
func TestTakeWake_singleUse(t *testing.T) {
	for _, o := range allStrategies() {
		t.Run(o.name(), func(t *testing.T) {
			for iter := 0; iter < 100; iter++ {
				w := &waiter{wake: make(chan struct{}, 1)}
				o.putWake(w, &w.wake)

				const claimants = 8
				results := make(chan chan struct{}, claimants)
				var start, wg sync.WaitGroup
				start.Add(1)
				for i := 0; i < claimants; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						start.Wait()
						results <- o.takeWake(w)
					}()
				}
				start.Done()
				wg.Wait()
				close(results)

				var won int
				for ch := range results {
					if ch != nil {
						won++
					}
				}
				require.Equal(t, 1, won)
			}
		})
	}
}

// The full primitive must behave identically under every strategy: this is
// the "all strategies are linearizable for a given field" property, checked
// end to end.
func TestFuture_workflowUnderEachStrategy(t *testing.T) {
	for _, o := range allStrategies() {
		t.Run(o.name(), func(t *testing.T) {
			withOps(t, o, func() {
				f := New()

				var listened sync.WaitGroup
				listened.Add(1)
				f.AddListener(func() { listened.Done() }, DirectExecutor)

				const waiters = 16
				var wg sync.WaitGroup
				for i := 0; i < waiters; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						v, err := f.Get(context.Background())
						if err != nil || v != `value` {
							panic(err)
						}
					}()
				}

				time.Sleep(10 * time.Millisecond)
				require.True(t, f.Set(`value`))
				require.False(t, f.SetError(errors.New(`late`)))
				wg.Wait()
				listened.Wait()

				// post-completion registration still dispatches
				ran := false
				f.AddListener(func() { ran = true }, DirectExecutor)
				require.True(t, ran)

				// timed get on the completed future is a fast path
				v, err := f.GetWithTimeout(context.Background(), 0)
				require.NoError(t, err)
				require.Equal(t, `value`, v)
			})
		})
	}
}

// Interruption and removal under each strategy, exercising takeWake and the
// unlink walk through the capability layer.
func TestFuture_removalUnderEachStrategy(t *testing.T) {
	for _, o := range allStrategies() {
		t.Run(o.name(), func(t *testing.T) {
			withOps(t, o, func() {
				f := New()
				ctx, cancel := context.WithCancel(context.Background())
				done := make(chan error, 1)
				go func() {
					_, err := f.Get(ctx)
					done <- err
				}()

				deadline := time.Now().Add(5 * time.Second)
				for countLiveWaiters(f) != 1 {
					if time.Now().After(deadline) {
						t.Fatal(`waiter never parked`)
					}
					time.Sleep(time.Millisecond)
				}

				cancel()
				select {
				case err := <-done:
					var interrupted *InterruptedError
					require.ErrorAs(t, err, &interrupted)
				case <-time.After(5 * time.Second):
					t.Fatal(`waiter never returned`)
				}
				require.Zero(t, countLiveWaiters(f))
				require.True(t, f.Set(1))
			})
		})
	}
}
