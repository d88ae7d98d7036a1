package wasm

import (
	"github.com/wasminspect-go/wasminspect/internal/inst"
	"github.com/wasminspect-go/wasminspect/internal/value"
)

// FuncType is a function signature: positional parameter and result value
// types. Two FuncTypes are signature-equal when both slices match
// element-for-element; this equality is load-bearing for import matching and
// call_indirect's type check.
type FuncType struct {
	Params  []value.Type
	Results []value.Type
}

func (t *FuncType) Equal(o *FuncType) bool {
	if t == o {
		return true
	}
	if len(t.Params) != len(o.Params) || len(t.Results) != len(o.Results) {
		return false
	}
	for i, p := range t.Params {
		if p != o.Params[i] {
			return false
		}
	}
	for i, r := range t.Results {
		if r != o.Results[i] {
			return false
		}
	}
	return true
}

// Limits bounds a growable memory or table: at least Min units, at most Max
// units when present.
type Limits struct {
	Min uint32
	Max *uint32 // nil means unbounded
}

// MemoryType declares a memory import/definition in page units (64KiB each).
type MemoryType struct {
	Limits
	Memory64 bool
}

// TableType declares a table import/definition: its element ref-type and
// size limits.
type TableType struct {
	ElemType value.Type
	Limits   Limits
}

// GlobalType declares a global import/definition's value type and mutability.
type GlobalType struct {
	ValType value.Type
	Mutable bool
}

// ExternKind classifies an import or export.
type ExternKind byte

const (
	ExternKindFunc ExternKind = iota
	ExternKindTable
	ExternKindMemory
	ExternKindGlobal
)

func (k ExternKind) String() string {
	switch k {
	case ExternKindFunc:
		return "func"
	case ExternKindTable:
		return "table"
	case ExternKindMemory:
		return "memory"
	case ExternKindGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// Import names an external dependency resolved by the Store at load time.
type Import struct {
	Module, Name string
	Kind         ExternKind
	// exactly one of the following is meaningful, selected by Kind.
	FuncTypeIndex uint32
	Table         TableType
	Memory        MemoryType
	Global        GlobalType
}

// Export names a module-local index made visible under Name.
type Export struct {
	Name  string
	Kind  ExternKind
	Index uint32
}

// ConstExpr is a restricted init-expression: i32.const | i64.const | f32.const
// | f64.const | global.get | ref.null | ref.func, exactly one instruction.
// Evaluated by the Linker during instantiation, never by the Executor.
type ConstExpr struct {
	Opcode inst.Op
	I32    int32
	I64    int64
	F32    uint32
	F64    uint64
	Index  uint32 // global or function index, depending on Opcode
	RefTy  value.Type
}

// ElementSegment is the static (pre-instantiation) declaration of an element
// segment: a passive or active vector of function-index init expressions.
type ElementSegment struct {
	Type    value.Type
	Init    []ConstExpr
	Mode    SegmentMode
	TableIdx uint32
	Offset  ConstExpr
}

// DataSegment is the static declaration of a data segment: a passive or
// active byte blob.
type DataSegment struct {
	Init    []byte
	Mode    SegmentMode
	MemIdx  uint32
	Offset  ConstExpr
}

type SegmentMode byte

const (
	SegmentModeActive SegmentMode = iota
	SegmentModePassive
)

// Function is the static declaration of a module-defined function: its type
// index, local variable types (beyond the parameters), and decoded body.
type Function struct {
	TypeIndex uint32
	Locals    []value.Type
	Body      []inst.Instruction
	Name      string
}

// Module is the fully decoded, not-yet-instantiated contents of one wasm
// binary.
type Module struct {
	Name string

	Types   []*FuncType
	Imports []Import

	// Functions/Tables/Memories/Globals hold only module-defined (non-import)
	// declarations; the combined index space is imports-first and is
	// reconstructed by the Store at instantiation.
	Functions []Function
	Tables    []TableType
	Memories  []MemoryType
	Globals   []GlobalType
	GlobalInit []ConstExpr // index-aligned with Globals

	Exports []Export

	Elements []ElementSegment
	Data     []DataSegment

	StartFunc *uint32 // index into the combined function space, if present

	NameSection *NameSection // best-effort; nil if absent or unparsed
}

// NameSection carries the optional debug names recovered from the custom
// "name" section, used for stack traces and the debugger's lookup_func.
type NameSection struct {
	ModuleName string
	FuncNames  map[uint32]string
}

// ImportCount returns how many of Imports are of kind k; for ExternKindFunc
// it is the offset of module-defined function indices in the combined
// function space.
func (m *Module) ImportCount(k ExternKind) int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Kind == k {
			n++
		}
	}
	return n
}

// NumFuncs is the size of the combined (imports-first) function index space.
func (m *Module) NumFuncs() int { return m.ImportCount(ExternKindFunc) + len(m.Functions) }
func (m *Module) NumTables() int { return m.ImportCount(ExternKindTable) + len(m.Tables) }
func (m *Module) NumMemories() int { return m.ImportCount(ExternKindMemory) + len(m.Memories) }
func (m *Module) NumGlobals() int { return m.ImportCount(ExternKindGlobal) + len(m.Globals) }

// FuncTypeIndexAt returns the type index of the function at the given combined
// index, whether imported or defined.
func (m *Module) FuncTypeIndexAt(combinedIdx uint32) uint32 {
	importFuncs := m.ImportCount(ExternKindFunc)
	if int(combinedIdx) < importFuncs {
		i := 0
		for _, imp := range m.Imports {
			if imp.Kind != ExternKindFunc {
				continue
			}
			if i == int(combinedIdx) {
				return imp.FuncTypeIndex
			}
			i++
		}
	}
	return m.Functions[int(combinedIdx)-importFuncs].TypeIndex
}

func (m *Module) GetType(idx uint32) *FuncType {
	if int(idx) >= len(m.Types) {
		return nil
	}
	return m.Types[idx]
}

func (m *Module) FuncName(combinedIdx uint32) string {
	if m.NameSection != nil {
		if n, ok := m.NameSection.FuncNames[combinedIdx]; ok {
			return n
		}
	}
	importFuncs := m.ImportCount(ExternKindFunc)
	if int(combinedIdx) >= importFuncs {
		if n := m.Functions[int(combinedIdx)-importFuncs].Name; n != "" {
			return n
		}
	}
	return ""
}
