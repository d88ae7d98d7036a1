// Package value implements the typed scalar value system: numeric scalars
// carried as raw bit patterns so NaN payloads round-trip unchanged, and
// reference values that address back into a Store.
package value

import "github.com/wasminspect-go/wasminspect/internal/address"

// Type is the value-type tag. The concrete byte values follow the WebAssembly
// binary format's valtype encoding so decode/encode need no translation
// table.
type Type byte

const (
	I32       Type = 0x7f
	I64       Type = 0x7e
	F32       Type = 0x7d
	F64       Type = 0x7c
	FuncRef   Type = 0x70
	ExternRef Type = 0x6f
)

func (t Type) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case FuncRef:
		return "funcref"
	case ExternRef:
		return "externref"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether t is one of the four numeric value types.
func (t Type) IsNumeric() bool {
	switch t {
	case I32, I64, F32, F64:
		return true
	}
	return false
}

// IsRef reports whether t is one of the two reference types.
func (t Type) IsRef() bool {
	return t == FuncRef || t == ExternRef
}

// RefKind distinguishes the three reference value variants.
type RefKind byte

const (
	RefKindNull RefKind = iota
	RefKindFunc
	RefKindExtern
)

// Ref is a reference value: a null reference typed by its ref-type, a
// function reference addressing back into the Store, or an opaque external
// id owned by the host.
type Ref struct {
	Kind     RefKind
	NullType Type // meaningful only when Kind == RefKindNull
	Func     address.FuncAddr
	Extern   uint64
}

func NullRef(t Type) Ref           { return Ref{Kind: RefKindNull, NullType: t} }
func FuncRefVal(a address.FuncAddr) Ref { return Ref{Kind: RefKindFunc, Func: a} }
func ExternRefVal(id uint64) Ref   { return Ref{Kind: RefKindExtern, Extern: id} }

func (r Ref) IsNull() bool { return r.Kind == RefKindNull }

// Type reports the declared ref-type of r. Func and Extern refs report their
// concrete type; null refs carry the type they were created with.
func (r Ref) Type() Type {
	switch r.Kind {
	case RefKindFunc:
		return FuncRef
	case RefKindExtern:
		return ExternRef
	default:
		return r.NullType
	}
}
