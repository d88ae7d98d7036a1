package interceptor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasminspect-go/wasminspect/internal/address"
	"github.com/wasminspect-go/wasminspect/internal/inst"
)

func TestNoOpNeverBreaks(t *testing.T) {
	var n NoOp
	require.Equal(t, SignalContinue, n.ExecuteInst(0, address.FuncAddr{}, 0, inst.Instruction{}))
	require.Equal(t, SignalContinue, n.InvokeFunc(address.FuncAddr{}, nil))
	require.Equal(t, SignalContinue, n.AfterStore(address.MemoryAddr{}, 0, nil))
}

func TestNoOpSatisfiesInterceptor(t *testing.T) {
	var _ Interceptor = NoOp{}
}
