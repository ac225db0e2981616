package future

// State represents the observable state of a [Future].
//
// State Machine:
//
//	StatePending → StateSuccess      [Set]
//	StatePending → StateFailure      [SetError]
//	StatePending → StateCancelled    [Cancel]
//	StatePending → StateDelegating   [SetFuture]
//	StateDelegating → StateSuccess/StateFailure/StateCancelled
//	                                 [delegate completion, or Cancel]
//
// All other transitions are forbidden; terminal states (Success, Failure,
// Cancelled) never transition again. StateDelegating is terminal from the
// producer's perspective (Set/SetError will no longer succeed) but consumers
// must treat it as not yet done: Get keeps waiting, and Done reports false.
type State int32

const (
	// StatePending indicates the future has not been completed.
	StatePending State = iota
	// StateSuccess indicates the future completed with a value (which may be
	// nil; the slot representation distinguishes nil-success from pending).
	StateSuccess
	// StateFailure indicates the future completed with an error.
	StateFailure
	// StateCancelled indicates the future was cancelled.
	StateCancelled
	// StateDelegating indicates the future is bound to another future via
	// SetFuture, and will adopt that future's outcome when it completes.
	StateDelegating
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateSuccess:
		return "Success"
	case StateFailure:
		return "Failure"
	case StateCancelled:
		return "Cancelled"
	case StateDelegating:
		return "Delegating"
	default:
		return "Unknown"
	}
}

// settled is the record stored in a Future's result slot once the slot has
// transitioned away from pending (pending is represented by a nil slot, so a
// non-nil *settled is never ambiguous with "no value yet").
//
// Instances are immutable after construction, and may be shared between
// futures (delegation copies the delegate's record verbatim).
type settled struct {
	kind   State
	value  any     // StateSuccess payload
	err    error   // StateFailure / StateCancelled cause
	target *Future // StateDelegating delegate
}

// nilPayload is the shared success-with-nil-value record, distinct from the
// nil slot that means pending.
var nilPayload = &settled{kind: StateSuccess}

// isTerminal reports whether the record represents actual completion.
// A nil receiver (pending slot) and a delegating record are not terminal.
func (s *settled) isTerminal() bool {
	return s != nil && s.kind != StateDelegating
}

// unwrap produces the user-facing (value, error) pair for a terminal record.
func (s *settled) unwrap() (any, error) {
	switch s.kind {
	case StateSuccess:
		return s.value, nil
	case StateFailure:
		return nil, s.err
	case StateCancelled:
		return nil, &CancelledError{Cause: s.err}
	}
	panic(`future: unwrap of non-terminal value`)
}
