package value

import (
	"fmt"
	"math"

	"github.com/wasminspect-go/wasminspect/internal/address"
)

// Value is a tagged scalar. Numeric values are carried as their raw bit
// pattern in Num; arithmetic converts to/from the native Go numeric type only
// at the operator boundary, so NaN payloads survive moves between the stack,
// locals, globals and memory unchanged.
type Value struct {
	Type Type
	Num  uint64
	Ref  Ref
}

func I32Val(v int32) Value { return Value{Type: I32, Num: uint64(uint32(v))} }
func U32Val(v uint32) Value { return Value{Type: I32, Num: uint64(v)} }
func I64Val(v int64) Value { return Value{Type: I64, Num: uint64(v)} }
func U64Val(v uint64) Value { return Value{Type: I64, Num: v} }
func F32Val(v float32) Value { return Value{Type: F32, Num: uint64(math.Float32bits(v))} }
func F64Val(v float64) Value { return Value{Type: F64, Num: math.Float64bits(v)} }
func F32Bits(bits uint32) Value { return Value{Type: F32, Num: uint64(bits)} }
func F64Bits(bits uint64) Value { return Value{Type: F64, Num: bits} }
func RefVal(r Ref) Value    { return Value{Type: r.Type(), Ref: r} }

func Null(t Type) Value { return RefVal(NullRef(t)) }

func (v Value) I32() int32     { return int32(uint32(v.Num)) }
func (v Value) U32() uint32    { return uint32(v.Num) }
func (v Value) I64() int64     { return int64(v.Num) }
func (v Value) U64() uint64    { return v.Num }
func (v Value) F32() float32   { return math.Float32frombits(uint32(v.Num)) }
func (v Value) F64() float64   { return math.Float64frombits(v.Num) }

func (v Value) String() string {
	switch v.Type {
	case I32:
		return fmt.Sprintf("i32:%d", v.I32())
	case I64:
		return fmt.Sprintf("i64:%d", v.I64())
	case F32:
		return fmt.Sprintf("f32:%v", v.F32())
	case F64:
		return fmt.Sprintf("f64:%v", v.F64())
	case FuncRef, ExternRef:
		if v.Ref.IsNull() {
			return fmt.Sprintf("%s:null", v.Type)
		}
		return fmt.Sprintf("%s:%+v", v.Type, v.Ref)
	default:
		return "invalid"
	}
}

// Zero returns the zero value of the given type: numeric zero for numeric
// types, a typed null reference for reference types.
func Zero(t Type) Value {
	switch t {
	case I32, I64, F32, F64:
		return Value{Type: t}
	default:
		return Null(t)
	}
}

func (v Value) IsRef() bool { return v.Type.IsRef() }

func (v Value) FuncAddr() (address.FuncAddr, bool) {
	if v.Type != FuncRef || v.Ref.Kind != RefKindFunc {
		return address.FuncAddr{}, false
	}
	return v.Ref.Func, true
}
