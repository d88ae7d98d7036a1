// Package address defines the nominal address types used to reach into the
// Store. Each kind is its own Go type so the compiler rejects mixing, say, a
// TableAddr where a MemoryAddr is expected.
package address

// ModuleIndex identifies a module instance within a Store. Indices are
// assigned monotonically as modules are loaded and are never reused.
type ModuleIndex uint32

// FuncAddr resolves to a FunctionInstance (defined or host) global slot.
type FuncAddr struct {
	Module ModuleIndex
	Index  uint32
}

// MemoryAddr resolves to a MemoryInstance global slot.
type MemoryAddr struct {
	Module ModuleIndex
	Index  uint32
}

// TableAddr resolves to a TableInstance global slot.
type TableAddr struct {
	Module ModuleIndex
	Index  uint32
}

// GlobalAddr resolves to a GlobalInstance global slot.
type GlobalAddr struct {
	Module ModuleIndex
	Index  uint32
}

// ElemAddr resolves to an ElementSegment global slot.
type ElemAddr struct {
	Module ModuleIndex
	Index  uint32
}

// DataAddr resolves to a DataSegment global slot.
type DataAddr struct {
	Module ModuleIndex
	Index  uint32
}

func NewFuncAddr(m ModuleIndex, i uint32) FuncAddr     { return FuncAddr{m, i} }
func NewMemoryAddr(m ModuleIndex, i uint32) MemoryAddr { return MemoryAddr{m, i} }
func NewTableAddr(m ModuleIndex, i uint32) TableAddr   { return TableAddr{m, i} }
func NewGlobalAddr(m ModuleIndex, i uint32) GlobalAddr { return GlobalAddr{m, i} }
func NewElemAddr(m ModuleIndex, i uint32) ElemAddr     { return ElemAddr{m, i} }
func NewDataAddr(m ModuleIndex, i uint32) DataAddr     { return DataAddr{m, i} }
