package inst

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpStringSpotChecks(t *testing.T) {
	require.Equal(t, "unreachable", OpUnreachable.String())
	require.Equal(t, "i32.add", OpI32Add.String())
	require.Equal(t, "call_indirect", OpCallIndirect.String())
	require.Equal(t, "i32.trunc_sat_f64_u", OpI32TruncSatF64U.String())
}

func TestOpStringOutOfRangeFallsBackToUnknown(t *testing.T) {
	require.Equal(t, "unknown", Op(-1).String())
	require.Equal(t, "unknown", Op(len(opNames)).String())
}

func TestOpNamesCoverEveryDeclaredOp(t *testing.T) {
	require.Equal(t, int(OpI64TruncSatF64U)+1, len(opNames))
	for i, name := range opNames {
		require.NotEmpty(t, name, "opNames[%d] is empty", i)
	}
}
