package future

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterruptedError(t *testing.T) {
	err := &InterruptedError{}
	assert.Equal(t, `future: wait interrupted`, err.Error())

	err = &InterruptedError{Cause: context.Canceled}
	assert.Equal(t, `future: wait interrupted: context canceled`, err.Error())
	require.ErrorIs(t, err, context.Canceled)
}

func TestCancelledError(t *testing.T) {
	err := &CancelledError{}
	assert.Equal(t, `future: future was cancelled`, err.Error())

	cause := errors.New(`superseded`)
	err = &CancelledError{Cause: cause}
	assert.Equal(t, `future: future was cancelled: superseded`, err.Error())
	require.ErrorIs(t, err, cause)
}

func TestTimeoutError_message(t *testing.T) {
	for _, tc := range [...]struct {
		name string
		err  TimeoutError
		want string
	}{
		{
			`pending`,
			TimeoutError{Requested: 5 * time.Millisecond},
			`future: waited 5ms for pending future`,
		},
		{
			`with overrun`,
			TimeoutError{Requested: 5 * time.Millisecond, Overrun: 1203 * time.Microsecond},
			`future: waited 5ms (plus 1.203ms delay) for pending future`,
		},
		{
			// a wait that lost the race with completion must read
			// differently from one on a still-pending future
			`raced with completion`,
			TimeoutError{Requested: 5 * time.Millisecond, Completed: true},
			`future: waited 5ms but future completed as timeout expired`,
		},
		{
			`raced with completion, with overrun`,
			TimeoutError{Requested: time.Second, Overrun: 2 * time.Millisecond, Completed: true},
			`future: waited 1s (plus 2ms delay) but future completed as timeout expired`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestTimeoutError_matchable(t *testing.T) {
	f := New()
	_, err := f.GetWithTimeout(context.Background(), 0)
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	require.False(t, errors.As(err, new(*InterruptedError)))
}
