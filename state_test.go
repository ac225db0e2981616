package future

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_String(t *testing.T) {
	for _, tc := range [...]struct {
		state State
		want  string
	}{
		{StatePending, `Pending`},
		{StateSuccess, `Success`},
		{StateFailure, `Failure`},
		{StateCancelled, `Cancelled`},
		{StateDelegating, `Delegating`},
		{State(99), `Unknown`},
	} {
		assert.Equal(t, tc.want, tc.state.String())
	}
}

func TestSettled_isTerminal(t *testing.T) {
	var pending *settled
	assert.False(t, pending.isTerminal())
	assert.False(t, (&settled{kind: StateDelegating}).isTerminal())
	assert.True(t, nilPayload.isTerminal())
	assert.True(t, (&settled{kind: StateFailure}).isTerminal())
	assert.True(t, (&settled{kind: StateCancelled}).isTerminal())
}

func TestSettled_unwrap(t *testing.T) {
	v, err := (&settled{kind: StateSuccess, value: 7}).unwrap()
	require.NoError(t, err)
	require.Equal(t, 7, v)

	v, err = nilPayload.unwrap()
	require.NoError(t, err)
	require.Nil(t, v)

	cause := errors.New(`x`)
	_, err = (&settled{kind: StateFailure, err: cause}).unwrap()
	require.Same(t, cause, err)

	_, err = (&settled{kind: StateCancelled, err: cause}).unwrap()
	var cancelled *CancelledError
	require.ErrorAs(t, err, &cancelled)
	require.Same(t, cause, cancelled.Cause)

	require.Panics(t, func() {
		_, _ = (&settled{kind: StateDelegating}).unwrap()
	})
}
