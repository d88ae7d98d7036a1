package instance

import (
	"github.com/wasminspect-go/wasminspect/internal/address"
	"github.com/wasminspect-go/wasminspect/internal/inst"
	"github.com/wasminspect-go/wasminspect/internal/value"
	"github.com/wasminspect-go/wasminspect/internal/wasm"
)

// HostContext is the slice of Store capability a host function body needs:
// access to the calling module's memory/global instances. Store implements
// this; it is declared here (rather than imported from package store) so
// instance has no dependency on store, matching the ownership direction the
// rest of the package graph follows.
type HostContext interface {
	MemoryAt(address.ModuleIndex, uint32) *Memory
	GlobalAt(address.ModuleIndex, uint32) *Global
}

// HostFunc is a host-function body: it receives its arguments, the index of
// the module whose instructions invoked it, and a capability to reach that
// module's memory/globals, and returns its results or a HostExecutionError.
type HostFunc func(args []value.Value, caller address.ModuleIndex, ctx HostContext) ([]value.Value, error)

// DefinedFunction is a module-defined (wasm-authored) function. It borrows
// its module's type via Module+TypeIndex rather than owning a copy.
type DefinedFunction struct {
	Module     address.ModuleIndex
	Type       *wasm.FuncType
	LocalTypes []value.Type // params ++ declared locals, in local-index order
	Body       []inst.Instruction
	Name       string
}

// HostFunction is a host-implemented function: its type plus a Go callable.
type HostFunction struct {
	Type *wasm.FuncType
	Call HostFunc
	Name string
}

// Function is the FunctionInstance variant union: exactly one of Defined or
// Host is non-nil.
type Function struct {
	Defined *DefinedFunction
	Host    *HostFunction
}

func (f *Function) Type() *wasm.FuncType {
	if f.Defined != nil {
		return f.Defined.Type
	}
	return f.Host.Type
}

func (f *Function) Name() string {
	if f.Defined != nil {
		return f.Defined.Name
	}
	return f.Host.Name
}

func (f *Function) IsHost() bool { return f.Host != nil }
