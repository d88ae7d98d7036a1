package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasminspect-go/wasminspect/internal/trap"
)

func TestDivOverflowVsUnsignedWrap(t *testing.T) {
	_, trp := I32DivS(math.MinInt32, -1)
	require.NotNil(t, trp)
	require.Equal(t, trap.IntegerOverflow, trp.Kind)

	got, trp := I32DivU(uint32(math.MinInt32), uint32(int32(-1)))
	require.Nil(t, trp)
	require.Equal(t, uint32(0), got)
}

func TestDivideByZero(t *testing.T) {
	_, trp := I32DivS(1, 0)
	require.Equal(t, trap.IntegerDivideByZero, trp.Kind)
	_, trp = I64RemU(1, 0)
	require.Equal(t, trap.IntegerDivideByZero, trp.Kind)
}

func TestRemOverflowNeverTraps(t *testing.T) {
	got, trp := I32RemS(math.MinInt32, -1)
	require.Nil(t, trp)
	require.Equal(t, int32(0), got)
}

func TestExtendIdempotent(t *testing.T) {
	x := Extend32(int32(0x000000ff), 8)
	require.Equal(t, Extend32(x, 8), x)

	y := Extend64(int64(-0x80), 8)
	require.Equal(t, Extend64(y, 8), y)
}

func TestTruncSatNaN(t *testing.T) {
	require.Equal(t, int32(0), TruncSatF32ToI32(float32(math.NaN())))
	require.Equal(t, uint32(0), TruncSatF64ToU32(math.NaN()))
	require.Equal(t, int64(0), TruncSatF64ToI64(math.NaN()))
	require.Equal(t, uint64(0), TruncSatF64ToU64(math.NaN()))
}

func TestTruncSatInfinityClampsToExtrema(t *testing.T) {
	require.Equal(t, int32(math.MaxInt32), TruncSatF64ToI32(math.Inf(1)))
	require.Equal(t, int32(math.MinInt32), TruncSatF64ToI32(math.Inf(-1)))
	require.Equal(t, int64(math.MaxInt64), TruncSatF64ToI64(math.Inf(1)))
}

func TestTruncSatFinite(t *testing.T) {
	require.Equal(t, int32(3), TruncSatF32ToI32(3.7))
}

func TestTruncNonSaturatingTraps(t *testing.T) {
	_, trp := TruncF64ToI32(math.NaN())
	require.Equal(t, trap.InvalidConversionToInteger, trp.Kind)

	_, trp = TruncF64ToI32(math.Inf(1))
	require.Equal(t, trap.IntegerOverflow, trp.Kind)

	got, trp := TruncF64ToI32(3.7)
	require.Nil(t, trp)
	require.Equal(t, int32(3), got)
}

func TestFloatMinMaxPropagateNaN(t *testing.T) {
	require.True(t, math.IsNaN(float64(F32Max(float32(math.NaN()), 1))))
	require.True(t, math.IsNaN(F64Min(math.NaN(), 1)))
}

func TestNearestTiesToEven(t *testing.T) {
	require.Equal(t, 2.0, F64Nearest(1.5))
	require.Equal(t, 2.0, F64Nearest(2.5))
}

func TestCopysignCopiesOnlySign(t *testing.T) {
	require.Equal(t, -3.0, F64Copysign(3, -1))
}

func TestClzCtzPopcnt(t *testing.T) {
	require.Equal(t, int32(32), I32Clz(0))
	require.Equal(t, int32(32), I32Ctz(0))
	require.Equal(t, int32(0), I32Popcnt(0))
	require.Equal(t, int32(1), I32Popcnt(1))
}
