package trap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrapErrorMessage(t *testing.T) {
	require.Equal(t, "unreachable", New(Unreachable).Error())
	require.Equal(t, "stack underflow: popped empty stack", Newf(StackUnderflow, "popped empty stack").Error())
}

func TestTrapWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	trp := Wrap(HostFunctionError, cause)
	require.Equal(t, cause, trp.Unwrap())
	require.Contains(t, trp.Error(), "boom")
	require.True(t, errors.Is(trp, cause))
}

func TestKindIsMatchesByValueNotMessage(t *testing.T) {
	trp := New(IntegerOverflow)
	require.True(t, IntegerOverflow.Is(trp))
	require.False(t, IntegerDivideByZero.Is(trp))
}

func TestUnknownKindStringFallback(t *testing.T) {
	require.Equal(t, "trap", Kind(999).String())
}
