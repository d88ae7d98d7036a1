// Package interceptor defines the Executor's sole extension seam: a small
// set of callable hooks a debugger (or any other observer) registers once,
// rather than a layer the Executor inherits from or is wrapped by.
package interceptor

import (
	"github.com/wasminspect-go/wasminspect/internal/address"
	"github.com/wasminspect-go/wasminspect/internal/inst"
	"github.com/wasminspect-go/wasminspect/internal/value"
)

// Signal tells the Executor how to proceed after a hook runs.
type Signal int

const (
	// SignalContinue lets execution proceed normally.
	SignalContinue Signal = iota
	// SignalBreak pauses execution, returning control to whoever drives the
	// Executor (the debugger): before the instruction when ExecuteInst
	// returns it, after the write when AfterStore returns it.
	SignalBreak
)

// Interceptor is the capability a debugger plugs into the Executor: three
// hooks, each called on one class of event. ExecuteInst and AfterStore can
// halt execution by returning SignalBreak; InvokeFunc only observes. A nil
// method value is never called; NoOp leaves every hook as a no-op.
type Interceptor interface {
	// ExecuteInst runs immediately before the instruction at pc executes.
	ExecuteInst(module address.ModuleIndex, funcAddr address.FuncAddr, instIdx uint32, in inst.Instruction) Signal
	// InvokeFunc runs immediately before a call (direct or indirect, host or
	// defined) transfers control to addr. The Executor ignores the Signal
	// it returns, so a call never pauses here.
	InvokeFunc(addr address.FuncAddr, args []value.Value) Signal
	// AfterStore runs immediately after a memory instruction (store,
	// memory.fill, memory.copy, memory.init) has written bytes to mem at
	// offset; used for data watchpoints. Returning SignalBreak pauses
	// before the next instruction runs.
	AfterStore(mem address.MemoryAddr, offset uint64, bytes []byte) Signal
}

// NoOp is an Interceptor that never breaks and never records anything; the
// default when no debugger is attached.
type NoOp struct{}

func (NoOp) ExecuteInst(address.ModuleIndex, address.FuncAddr, uint32, inst.Instruction) Signal {
	return SignalContinue
}
func (NoOp) InvokeFunc(address.FuncAddr, []value.Value) Signal { return SignalContinue }
func (NoOp) AfterStore(address.MemoryAddr, uint64, []byte) Signal {
	return SignalContinue
}
