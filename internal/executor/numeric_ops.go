package executor

import (
	"github.com/wasminspect-go/wasminspect/internal/inst"
	"github.com/wasminspect-go/wasminspect/internal/trap"
	"github.com/wasminspect-go/wasminspect/internal/value"
)

// execNumericOp dispatches every comparison, arithmetic and conversion
// opcode: all of them pop a fixed operand count, compute, and push exactly
// one result, so the pop/push bookkeeping is factored out here and only the
// per-op computation varies.
func (e *Executor) execNumericOp(in inst.Instruction) (Signal, *trap.Trap) {
	if unaryOps[in.Op] != nil {
		v, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		result, trp := unaryOps[in.Op](v)
		if trp != nil {
			return 0, trp
		}
		e.Stack.PushValue(result)
		e.PC.Inst++
		return SignalNext, nil
	}
	if binOps[in.Op] != nil {
		b, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		a, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		result, trp := binOps[in.Op](a, b)
		if trp != nil {
			return 0, trp
		}
		e.Stack.PushValue(result)
		e.PC.Inst++
		return SignalNext, nil
	}
	return 0, trap.Newf(trap.UnsupportedInstruction, "opcode %v", in.Op)
}

type unaryFn func(value.Value) (value.Value, *trap.Trap)
type binFn func(a, b value.Value) (value.Value, *trap.Trap)

func i32u(f func(int32) int32) unaryFn {
	return func(v value.Value) (value.Value, *trap.Trap) { return value.I32Val(f(v.I32())), nil }
}
func i64u(f func(int64) int64) unaryFn {
	return func(v value.Value) (value.Value, *trap.Trap) { return value.I64Val(f(v.I64())), nil }
}
func f32u(f func(float32) float32) unaryFn {
	return func(v value.Value) (value.Value, *trap.Trap) { return value.F32Val(f(v.F32())), nil }
}
func f64u(f func(float64) float64) unaryFn {
	return func(v value.Value) (value.Value, *trap.Trap) { return value.F64Val(f(v.F64())), nil }
}

func i32bin(f func(a, b int32) int32) binFn {
	return func(a, b value.Value) (value.Value, *trap.Trap) { return value.I32Val(f(a.I32(), b.I32())), nil }
}
func u32bin(f func(a, b uint32) uint32) binFn {
	return func(a, b value.Value) (value.Value, *trap.Trap) { return value.U32Val(f(a.U32(), b.U32())), nil }
}
func i64bin(f func(a, b int64) int64) binFn {
	return func(a, b value.Value) (value.Value, *trap.Trap) { return value.I64Val(f(a.I64(), b.I64())), nil }
}
func u64bin(f func(a, b uint64) uint64) binFn {
	return func(a, b value.Value) (value.Value, *trap.Trap) { return value.U64Val(f(a.U64(), b.U64())), nil }
}
func f32bin(f func(a, b float32) float32) binFn {
	return func(a, b value.Value) (value.Value, *trap.Trap) { return value.F32Val(f(a.F32(), b.F32())), nil }
}
func f64bin(f func(a, b float64) float64) binFn {
	return func(a, b value.Value) (value.Value, *trap.Trap) { return value.F64Val(f(a.F64(), b.F64())), nil }
}

func i32cmp(f func(a, b int32) bool) binFn {
	return func(a, b value.Value) (value.Value, *trap.Trap) { return boolVal(f(a.I32(), b.I32())), nil }
}
func u32cmp(f func(a, b uint32) bool) binFn {
	return func(a, b value.Value) (value.Value, *trap.Trap) { return boolVal(f(a.U32(), b.U32())), nil }
}
func i64cmp(f func(a, b int64) bool) binFn {
	return func(a, b value.Value) (value.Value, *trap.Trap) { return boolVal(f(a.I64(), b.I64())), nil }
}
func u64cmp(f func(a, b uint64) bool) binFn {
	return func(a, b value.Value) (value.Value, *trap.Trap) { return boolVal(f(a.U64(), b.U64())), nil }
}
func f32cmp(f func(a, b float32) bool) binFn {
	return func(a, b value.Value) (value.Value, *trap.Trap) { return boolVal(f(a.F32(), b.F32())), nil }
}
func f64cmp(f func(a, b float64) bool) binFn {
	return func(a, b value.Value) (value.Value, *trap.Trap) { return boolVal(f(a.F64(), b.F64())), nil }
}

// trapping wraps a value.Xxx(a,b) (T, *trap.Trap) operator into a binFn.
func i32trap(f func(a, b int32) (int32, *trap.Trap)) binFn {
	return func(a, b value.Value) (value.Value, *trap.Trap) {
		r, trp := f(a.I32(), b.I32())
		return value.I32Val(r), trp
	}
}
func u32trap(f func(a, b uint32) (uint32, *trap.Trap)) binFn {
	return func(a, b value.Value) (value.Value, *trap.Trap) {
		r, trp := f(a.U32(), b.U32())
		return value.U32Val(r), trp
	}
}
func i64trap(f func(a, b int64) (int64, *trap.Trap)) binFn {
	return func(a, b value.Value) (value.Value, *trap.Trap) {
		r, trp := f(a.I64(), b.I64())
		return value.I64Val(r), trp
	}
}
func u64trap(f func(a, b uint64) (uint64, *trap.Trap)) binFn {
	return func(a, b value.Value) (value.Value, *trap.Trap) {
		r, trp := f(a.U64(), b.U64())
		return value.U64Val(r), trp
	}
}

var unaryOps map[inst.Op]unaryFn
var binOps map[inst.Op]binFn

func init() {
	unaryOps = map[inst.Op]unaryFn{
		inst.OpI32Eqz: func(v value.Value) (value.Value, *trap.Trap) { return boolVal(v.I32() == 0), nil },
		inst.OpI64Eqz: func(v value.Value) (value.Value, *trap.Trap) { return boolVal(v.I64() == 0), nil },

		inst.OpI32Clz:    i32u(value.I32Clz),
		inst.OpI32Ctz:    i32u(value.I32Ctz),
		inst.OpI32Popcnt: i32u(value.I32Popcnt),
		inst.OpI64Clz:    i64u(value.I64Clz),
		inst.OpI64Ctz:    i64u(value.I64Ctz),
		inst.OpI64Popcnt: i64u(value.I64Popcnt),

		inst.OpF32Abs:     f32u(absF32),
		inst.OpF32Neg:     f32u(func(v float32) float32 { return -v }),
		inst.OpF32Ceil:    f32u(ceilF32),
		inst.OpF32Floor:   f32u(floorF32),
		inst.OpF32Trunc:   f32u(truncF32),
		inst.OpF32Nearest: f32u(value.F32Nearest),
		inst.OpF32Sqrt:    f32u(sqrtF32),
		inst.OpF64Abs:     f64u(absF64),
		inst.OpF64Neg:     f64u(func(v float64) float64 { return -v }),
		inst.OpF64Ceil:    f64u(ceilF64),
		inst.OpF64Floor:   f64u(floorF64),
		inst.OpF64Trunc:   f64u(truncF64),
		inst.OpF64Nearest: f64u(value.F64Nearest),
		inst.OpF64Sqrt:    f64u(sqrtF64),

		inst.OpI32WrapI64: func(v value.Value) (value.Value, *trap.Trap) { return value.I32Val(int32(v.I64())), nil },
		inst.OpI64ExtendI32S: func(v value.Value) (value.Value, *trap.Trap) { return value.I64Val(int64(v.I32())), nil },
		inst.OpI64ExtendI32U: func(v value.Value) (value.Value, *trap.Trap) { return value.I64Val(int64(v.U32())), nil },

		inst.OpI32TruncF32S: trunc(func(v value.Value) (int32, *trap.Trap) { return value.TruncF32ToI32(v.F32()) }, value.I32Val),
		inst.OpI32TruncF32U: truncU32(func(v value.Value) (uint32, *trap.Trap) { return value.TruncF32ToU32(v.F32()) }),
		inst.OpI32TruncF64S: trunc(func(v value.Value) (int32, *trap.Trap) { return value.TruncF64ToI32(v.F64()) }, value.I32Val),
		inst.OpI32TruncF64U: truncU32(func(v value.Value) (uint32, *trap.Trap) { return value.TruncF64ToU32(v.F64()) }),
		inst.OpI64TruncF32S: truncI64(func(v value.Value) (int64, *trap.Trap) { return value.TruncF32ToI64(v.F32()) }),
		inst.OpI64TruncF32U: truncU64(func(v value.Value) (uint64, *trap.Trap) { return value.TruncF32ToU64(v.F32()) }),
		inst.OpI64TruncF64S: truncI64(func(v value.Value) (int64, *trap.Trap) { return value.TruncF64ToI64(v.F64()) }),
		inst.OpI64TruncF64U: truncU64(func(v value.Value) (uint64, *trap.Trap) { return value.TruncF64ToU64(v.F64()) }),

		inst.OpF32ConvertI32S: func(v value.Value) (value.Value, *trap.Trap) { return value.F32Val(float32(v.I32())), nil },
		inst.OpF32ConvertI32U: func(v value.Value) (value.Value, *trap.Trap) { return value.F32Val(float32(v.U32())), nil },
		inst.OpF32ConvertI64S: func(v value.Value) (value.Value, *trap.Trap) { return value.F32Val(float32(v.I64())), nil },
		inst.OpF32ConvertI64U: func(v value.Value) (value.Value, *trap.Trap) { return value.F32Val(float32(v.U64())), nil },
		inst.OpF32DemoteF64:   func(v value.Value) (value.Value, *trap.Trap) { return value.F32Val(float32(v.F64())), nil },
		inst.OpF64ConvertI32S: func(v value.Value) (value.Value, *trap.Trap) { return value.F64Val(float64(v.I32())), nil },
		inst.OpF64ConvertI32U: func(v value.Value) (value.Value, *trap.Trap) { return value.F64Val(float64(v.U32())), nil },
		inst.OpF64ConvertI64S: func(v value.Value) (value.Value, *trap.Trap) { return value.F64Val(float64(v.I64())), nil },
		inst.OpF64ConvertI64U: func(v value.Value) (value.Value, *trap.Trap) { return value.F64Val(float64(v.U64())), nil },
		inst.OpF64PromoteF32:  func(v value.Value) (value.Value, *trap.Trap) { return value.F64Val(float64(v.F32())), nil },

		inst.OpI32Extend8S:  func(v value.Value) (value.Value, *trap.Trap) { return value.I32Val(value.Extend32(v.I32(), 8)), nil },
		inst.OpI32Extend16S: func(v value.Value) (value.Value, *trap.Trap) { return value.I32Val(value.Extend32(v.I32(), 16)), nil },
		inst.OpI64Extend8S:  func(v value.Value) (value.Value, *trap.Trap) { return value.I64Val(value.Extend64(v.I64(), 8)), nil },
		inst.OpI64Extend16S: func(v value.Value) (value.Value, *trap.Trap) { return value.I64Val(value.Extend64(v.I64(), 16)), nil },
		inst.OpI64Extend32S: func(v value.Value) (value.Value, *trap.Trap) { return value.I64Val(value.Extend64(v.I64(), 32)), nil },

		inst.OpI32ReinterpretF32: func(v value.Value) (value.Value, *trap.Trap) { return value.U32Val(v.U32()), nil },
		inst.OpI64ReinterpretF64: func(v value.Value) (value.Value, *trap.Trap) { return value.U64Val(v.U64()), nil },
		inst.OpF32ReinterpretI32: func(v value.Value) (value.Value, *trap.Trap) { return value.F32Bits(v.U32()), nil },
		inst.OpF64ReinterpretI64: func(v value.Value) (value.Value, *trap.Trap) { return value.F64Bits(v.U64()), nil },

		inst.OpI32TruncSatF32S: func(v value.Value) (value.Value, *trap.Trap) { return value.I32Val(value.TruncSatF32ToI32(v.F32())), nil },
		inst.OpI32TruncSatF32U: func(v value.Value) (value.Value, *trap.Trap) { return value.U32Val(value.TruncSatF32ToU32(v.F32())), nil },
		inst.OpI32TruncSatF64S: func(v value.Value) (value.Value, *trap.Trap) { return value.I32Val(value.TruncSatF64ToI32(v.F64())), nil },
		inst.OpI32TruncSatF64U: func(v value.Value) (value.Value, *trap.Trap) { return value.U32Val(value.TruncSatF64ToU32(v.F64())), nil },
		inst.OpI64TruncSatF32S: func(v value.Value) (value.Value, *trap.Trap) { return value.I64Val(value.TruncSatF32ToI64(v.F32())), nil },
		inst.OpI64TruncSatF32U: func(v value.Value) (value.Value, *trap.Trap) { return value.U64Val(value.TruncSatF32ToU64(v.F32())), nil },
		inst.OpI64TruncSatF64S: func(v value.Value) (value.Value, *trap.Trap) { return value.I64Val(value.TruncSatF64ToI64(v.F64())), nil },
		inst.OpI64TruncSatF64U: func(v value.Value) (value.Value, *trap.Trap) { return value.U64Val(value.TruncSatF64ToU64(v.F64())), nil },
	}

	binOps = map[inst.Op]binFn{
		inst.OpI32Eq:  i32cmp(func(a, b int32) bool { return a == b }),
		inst.OpI32Ne:  i32cmp(func(a, b int32) bool { return a != b }),
		inst.OpI32LtS: i32cmp(func(a, b int32) bool { return a < b }),
		inst.OpI32GtS: i32cmp(func(a, b int32) bool { return a > b }),
		inst.OpI32LeS: i32cmp(func(a, b int32) bool { return a <= b }),
		inst.OpI32GeS: i32cmp(func(a, b int32) bool { return a >= b }),
		inst.OpI32LtU: u32cmp(func(a, b uint32) bool { return a < b }),
		inst.OpI32GtU: u32cmp(func(a, b uint32) bool { return a > b }),
		inst.OpI32LeU: u32cmp(func(a, b uint32) bool { return a <= b }),
		inst.OpI32GeU: u32cmp(func(a, b uint32) bool { return a >= b }),

		inst.OpI64Eq:  i64cmp(func(a, b int64) bool { return a == b }),
		inst.OpI64Ne:  i64cmp(func(a, b int64) bool { return a != b }),
		inst.OpI64LtS: i64cmp(func(a, b int64) bool { return a < b }),
		inst.OpI64GtS: i64cmp(func(a, b int64) bool { return a > b }),
		inst.OpI64LeS: i64cmp(func(a, b int64) bool { return a <= b }),
		inst.OpI64GeS: i64cmp(func(a, b int64) bool { return a >= b }),
		inst.OpI64LtU: u64cmp(func(a, b uint64) bool { return a < b }),
		inst.OpI64GtU: u64cmp(func(a, b uint64) bool { return a > b }),
		inst.OpI64LeU: u64cmp(func(a, b uint64) bool { return a <= b }),
		inst.OpI64GeU: u64cmp(func(a, b uint64) bool { return a >= b }),

		inst.OpF32Eq: f32cmp(func(a, b float32) bool { return a == b }),
		inst.OpF32Ne: f32cmp(func(a, b float32) bool { return a != b }),
		inst.OpF32Lt: f32cmp(func(a, b float32) bool { return a < b }),
		inst.OpF32Gt: f32cmp(func(a, b float32) bool { return a > b }),
		inst.OpF32Le: f32cmp(func(a, b float32) bool { return a <= b }),
		inst.OpF32Ge: f32cmp(func(a, b float32) bool { return a >= b }),
		inst.OpF64Eq: f64cmp(func(a, b float64) bool { return a == b }),
		inst.OpF64Ne: f64cmp(func(a, b float64) bool { return a != b }),
		inst.OpF64Lt: f64cmp(func(a, b float64) bool { return a < b }),
		inst.OpF64Gt: f64cmp(func(a, b float64) bool { return a > b }),
		inst.OpF64Le: f64cmp(func(a, b float64) bool { return a <= b }),
		inst.OpF64Ge: f64cmp(func(a, b float64) bool { return a >= b }),

		inst.OpI32Add:  i32bin(func(a, b int32) int32 { return a + b }),
		inst.OpI32Sub:  i32bin(func(a, b int32) int32 { return a - b }),
		inst.OpI32Mul:  i32bin(func(a, b int32) int32 { return a * b }),
		inst.OpI32And:  i32bin(func(a, b int32) int32 { return a & b }),
		inst.OpI32Or:   i32bin(func(a, b int32) int32 { return a | b }),
		inst.OpI32Xor:  i32bin(func(a, b int32) int32 { return a ^ b }),
		inst.OpI32Shl:  i32bin(func(a, b int32) int32 { return a << (uint32(b) % 32) }),
		inst.OpI32ShrS: i32bin(func(a, b int32) int32 { return a >> (uint32(b) % 32) }),
		inst.OpI32ShrU: u32bin(func(a, b uint32) uint32 { return a >> (b % 32) }),
		inst.OpI32Rotl: i32bin(value.I32Rotl),
		inst.OpI32Rotr: i32bin(value.I32Rotr),
		inst.OpI32DivS: i32trap(value.I32DivS),
		inst.OpI32DivU: u32trap(value.I32DivU),
		inst.OpI32RemS: i32trap(value.I32RemS),
		inst.OpI32RemU: u32trap(value.I32RemU),

		inst.OpI64Add:  i64bin(func(a, b int64) int64 { return a + b }),
		inst.OpI64Sub:  i64bin(func(a, b int64) int64 { return a - b }),
		inst.OpI64Mul:  i64bin(func(a, b int64) int64 { return a * b }),
		inst.OpI64And:  i64bin(func(a, b int64) int64 { return a & b }),
		inst.OpI64Or:   i64bin(func(a, b int64) int64 { return a | b }),
		inst.OpI64Xor:  i64bin(func(a, b int64) int64 { return a ^ b }),
		inst.OpI64Shl:  i64bin(func(a, b int64) int64 { return a << (uint64(b) % 64) }),
		inst.OpI64ShrS: i64bin(func(a, b int64) int64 { return a >> (uint64(b) % 64) }),
		inst.OpI64ShrU: u64bin(func(a, b uint64) uint64 { return a >> (b % 64) }),
		inst.OpI64Rotl: i64bin(value.I64Rotl),
		inst.OpI64Rotr: i64bin(value.I64Rotr),
		inst.OpI64DivS: i64trap(value.I64DivS),
		inst.OpI64DivU: u64trap(value.I64DivU),
		inst.OpI64RemS: i64trap(value.I64RemS),
		inst.OpI64RemU: u64trap(value.I64RemU),

		inst.OpF32Add:      f32bin(func(a, b float32) float32 { return a + b }),
		inst.OpF32Sub:      f32bin(func(a, b float32) float32 { return a - b }),
		inst.OpF32Mul:      f32bin(func(a, b float32) float32 { return a * b }),
		inst.OpF32Div:      f32bin(func(a, b float32) float32 { return a / b }),
		inst.OpF32Min:      f32bin(value.F32Min),
		inst.OpF32Max:      f32bin(value.F32Max),
		inst.OpF32Copysign: f32bin(value.F32Copysign),

		inst.OpF64Add:      f64bin(func(a, b float64) float64 { return a + b }),
		inst.OpF64Sub:      f64bin(func(a, b float64) float64 { return a - b }),
		inst.OpF64Mul:      f64bin(func(a, b float64) float64 { return a * b }),
		inst.OpF64Div:      f64bin(func(a, b float64) float64 { return a / b }),
		inst.OpF64Min:      f64bin(value.F64Min),
		inst.OpF64Max:      f64bin(value.F64Max),
		inst.OpF64Copysign: f64bin(value.F64Copysign),
	}
}

func trunc(f func(value.Value) (int32, *trap.Trap), mk func(int32) value.Value) unaryFn {
	return func(v value.Value) (value.Value, *trap.Trap) {
		r, trp := f(v)
		if trp != nil {
			return value.Value{}, trp
		}
		return mk(r), nil
	}
}
func truncU32(f func(value.Value) (uint32, *trap.Trap)) unaryFn {
	return func(v value.Value) (value.Value, *trap.Trap) {
		r, trp := f(v)
		if trp != nil {
			return value.Value{}, trp
		}
		return value.U32Val(r), nil
	}
}
func truncI64(f func(value.Value) (int64, *trap.Trap)) unaryFn {
	return func(v value.Value) (value.Value, *trap.Trap) {
		r, trp := f(v)
		if trp != nil {
			return value.Value{}, trp
		}
		return value.I64Val(r), nil
	}
}
func truncU64(f func(value.Value) (uint64, *trap.Trap)) unaryFn {
	return func(v value.Value) (value.Value, *trap.Trap) {
		r, trp := f(v)
		if trp != nil {
			return value.Value{}, trp
		}
		return value.U64Val(r), nil
	}
}
