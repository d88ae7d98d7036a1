package executor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasminspect-go/wasminspect/internal/inst"
	"github.com/wasminspect-go/wasminspect/internal/trap"
	"github.com/wasminspect-go/wasminspect/internal/value"
)

// exec0 runs loadFunc's single-function module (with its one-page memory)
// whose function takes no params and returns the given results, for short
// numeric-op sequences of one or two consts and one dispatch.
func exec0(t *testing.T, results []value.Type, body []inst.Instruction) []value.Value {
	t.Helper()
	e, st := loadFunc(t, nil, results, nil, body)
	mi, _, ok := st.ModuleByName("m")
	require.True(t, ok)
	res, trp := e.Invoke(mi.FuncAddrs[0], nil)
	require.Nil(t, trp)
	return res
}

func execTrap(t *testing.T, body []inst.Instruction) *trap.Trap {
	t.Helper()
	e, st := loadFunc(t, nil, nil, nil, body)
	mi, _, _ := st.ModuleByName("m")
	_, trp := e.Invoke(mi.FuncAddrs[0], nil)
	require.NotNil(t, trp)
	return trp
}

func TestI32DivSTrapsOnDivideByZero(t *testing.T) {
	trp := execTrap(t, []inst.Instruction{
		{Op: inst.OpI32Const, I32: 1},
		{Op: inst.OpI32Const, I32: 0},
		{Op: inst.OpI32DivS},
		{Op: inst.OpEnd},
	})
	require.Equal(t, trap.IntegerDivideByZero, trp.Kind)
}

func TestI32DivSTrapsOnOverflow(t *testing.T) {
	// math.MinInt32 / -1 overflows the signed 32-bit range.
	trp := execTrap(t, []inst.Instruction{
		{Op: inst.OpI32Const, I32: -2147483648},
		{Op: inst.OpI32Const, I32: -1},
		{Op: inst.OpI32DivS},
		{Op: inst.OpEnd},
	})
	require.Equal(t, trap.IntegerOverflow, trp.Kind)
}

func TestI32DivUWrapsUnsignedNoOverflowTrap(t *testing.T) {
	// the same bit pattern that overflows signed division is a valid
	// unsigned division and must not trap.
	res := exec0(t, []value.Type{value.I32}, []inst.Instruction{
		{Op: inst.OpI32Const, I32: -2147483648},
		{Op: inst.OpI32Const, I32: -1},
		{Op: inst.OpI32DivU},
		{Op: inst.OpEnd},
	})
	require.Equal(t, int32(0), res[0].I32())
}

func TestI32ComparisonsDispatchCorrectly(t *testing.T) {
	res := exec0(t, []value.Type{value.I32}, []inst.Instruction{
		{Op: inst.OpI32Const, I32: -1},
		{Op: inst.OpI32Const, I32: 1},
		{Op: inst.OpI32LtS},
		{Op: inst.OpEnd},
	})
	require.Equal(t, int32(1), res[0].I32())

	res = exec0(t, []value.Type{value.I32}, []inst.Instruction{
		{Op: inst.OpI32Const, I32: -1},
		{Op: inst.OpI32Const, I32: 1},
		{Op: inst.OpI32LtU},
		{Op: inst.OpEnd},
	})
	require.Equal(t, int32(0), res[0].I32(), "-1 as unsigned is the largest u32, never less than 1")
}

func TestI32TruncF32STrapsOnNaN(t *testing.T) {
	trp := execTrap(t, []inst.Instruction{
		{Op: inst.OpF32Const, F32: math.Float32bits(float32(math.NaN()))},
		{Op: inst.OpI32TruncF32S},
		{Op: inst.OpDrop},
		{Op: inst.OpEnd},
	})
	require.Equal(t, trap.InvalidConversionToInteger, trp.Kind)
}

func TestI32TruncSatF32SClampsOnNaN(t *testing.T) {
	// the _sat variant never traps: NaN saturates to zero.
	res := exec0(t, []value.Type{value.I32}, []inst.Instruction{
		{Op: inst.OpF32Const, F32: math.Float32bits(float32(math.NaN()))},
		{Op: inst.OpI32TruncSatF32S},
		{Op: inst.OpEnd},
	})
	require.Equal(t, int32(0), res[0].I32())
}

func TestI64ExtendI32UZeroExtends(t *testing.T) {
	res := exec0(t, []value.Type{value.I64}, []inst.Instruction{
		{Op: inst.OpI32Const, I32: -1},
		{Op: inst.OpI64ExtendI32U},
		{Op: inst.OpEnd},
	})
	require.Equal(t, int64(0xffffffff), res[0].I64())
}

func TestI32WrapI64TruncatesHighBits(t *testing.T) {
	res := exec0(t, []value.Type{value.I32}, []inst.Instruction{
		{Op: inst.OpI64Const, I64: 0x1_ffffffff},
		{Op: inst.OpI32WrapI64},
		{Op: inst.OpEnd},
	})
	require.Equal(t, int32(-1), res[0].I32())
}

func TestF32CopysignCombinesMagnitudeAndSign(t *testing.T) {
	res := exec0(t, []value.Type{value.F32}, []inst.Instruction{
		{Op: inst.OpF32Const, F32: math.Float32bits(3)},
		{Op: inst.OpF32Const, F32: math.Float32bits(-1)},
		{Op: inst.OpF32Copysign},
		{Op: inst.OpEnd},
	})
	require.Equal(t, float32(-3), res[0].F32())
}
