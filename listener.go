package future

import (
	"fmt"
)

type (
	// Executor decides where (and when) a completion callback runs. The
	// future only guarantees the hand-off: each registered callback is
	// passed to its executor exactly once, with no ordering guarantees.
	Executor interface {
		Execute(fn func())
	}

	// ExecutorFunc adapts a function to the Executor interface.
	ExecutorFunc func(fn func())

	// listener is a listener-queue node: a callback descriptor on the
	// lock-free LIFO stack headed at Future.listeners. Unlike the wait
	// queue, this stack is never closed; drains use an atomic exchange, so
	// nodes pushed after completion are still claimed exactly once.
	listener struct {
		run  func()
		exec Executor
		next *listener // written before publication, read only by the drainer
	}
)

// Execute implements Executor.
func (f ExecutorFunc) Execute(fn func()) { f(fn) }

// DirectExecutor runs callbacks synchronously on the calling goroutine,
// which is the completing goroutine for listeners registered before
// completion, and the registering goroutine otherwise.
var DirectExecutor Executor = ExecutorFunc(func(fn func()) { fn() })

// GoExecutor runs each callback on its own goroutine.
var GoExecutor Executor = ExecutorFunc(func(fn func()) { go fn() })

// drainListeners exchanges the listener stack for an empty one and
// dispatches the claimed chain. Both the completing producer and any
// post-completion AddListener call this; the exchange guarantees each node
// is returned from exactly one call, so dispatch responsibility is assigned
// exactly once per callback regardless of who wins.
func (f *Future) drainListeners() {
	head := ops.gasListeners(f, nil)

	// Reverse the stack so dispatch prefers registration order. Ordering
	// remains outside the contract.
	var prev *listener
	for head != nil {
		next := head.next
		head.next = prev
		prev = head
		head = next
	}

	for n := prev; n != nil; n = n.next {
		dispatch(n)
	}
}

// dispatch hands one callback to its executor. A panic out of the executor
// (in particular, out of a DirectExecutor callback) is logged and swallowed
// so one misbehaving listener cannot break the completer or its siblings.
func dispatch(n *listener) {
	defer func() {
		if r := recover(); r != nil {
			if l := getLogger(); l != nil {
				l.Err().
					Str(`panic`, fmt.Sprint(r)).
					Log(`future: listener panicked during dispatch`)
			}
		}
	}()
	n.exec.Execute(n.run)
}
