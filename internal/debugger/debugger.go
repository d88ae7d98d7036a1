// Package debugger implements the capability surface a frontend drives a
// running module through: load/instantiate, run to completion or to a
// breakpoint, inspect the current frame, and single-step at instruction or
// call-boundary granularity. It is itself the Interceptor the Executor
// calls into; there is no separate observer layer wrapping the Executor.
package debugger

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/wasminspect-go/wasminspect/internal/address"
	"github.com/wasminspect-go/wasminspect/internal/executor"
	"github.com/wasminspect-go/wasminspect/internal/inst"
	"github.com/wasminspect-go/wasminspect/internal/instance"
	"github.com/wasminspect-go/wasminspect/internal/interceptor"
	"github.com/wasminspect-go/wasminspect/internal/stack"
	"github.com/wasminspect-go/wasminspect/internal/store"
	"github.com/wasminspect-go/wasminspect/internal/trap"
	"github.com/wasminspect-go/wasminspect/internal/value"
	"github.com/wasminspect-go/wasminspect/internal/wasm"
	"github.com/wasminspect-go/wasminspect/internal/wasm/binary"
)

// StepStyle selects how far Step advances.
type StepStyle int

const (
	// StepInstIn executes exactly one instruction, descending into any call.
	StepInstIn StepStyle = iota
	// StepInstOver executes one instruction, running any call it makes to
	// completion before returning control.
	StepInstOver
	// StepOut runs until the current activation returns to its caller.
	StepOut
)

// Outcome classifies why ExecuteFunc, Continue or Step returned control to
// the caller.
type Outcome int

const (
	OutcomeBreakpoint Outcome = iota
	OutcomeFinished
)

// RunResult is what ExecuteFunc and Step report back.
type RunResult struct {
	Outcome Outcome
	Results []value.Value
}

// Debugger owns one Store and the single Executor driving it, plus the
// breakpoint and watchpoint sets its Interceptor hooks consult and the call
// depth Step compares against.
type Debugger struct {
	log      *logrus.Logger
	Store    *store.Store
	Exec     *executor.Executor
	features wasm.Features

	breakpoints map[breakKey]struct{}
	watchpoints map[address.MemoryAddr]struct{}

	stepBaseline int // call depth at the moment Step was requested
}

type breakKey struct {
	fn  address.FuncAddr
	idx uint32
}

func New(features wasm.Features, log *logrus.Logger) *Debugger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	st := store.New(log)
	d := &Debugger{
		log:         log,
		Store:       st,
		features:    features,
		breakpoints: map[breakKey]struct{}{},
		watchpoints: map[address.MemoryAddr]struct{}{},
	}
	d.Exec = executor.New(st)
	st.SetInterceptor(d)
	return d
}

// LoadModule decodes and instantiates one module, registering it under
// name so later imports and lookups can find it.
func (d *Debugger) LoadModule(name string, bin []byte) (address.ModuleIndex, error) {
	mod, err := binary.Decode(bin, d.features)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", name, err)
	}
	idx, err := d.Store.LoadModule(name, mod, d.Exec.Invoke)
	if err != nil {
		return 0, fmt.Errorf("instantiate %s: %w", name, err)
	}
	d.log.WithField("module", name).Info("module loaded")
	return idx, nil
}

// RegisterHostModule exposes host-implemented imports under hm.Name.
func (d *Debugger) RegisterHostModule(hm *store.HostModule) (address.ModuleIndex, error) {
	return d.Store.RegisterHostModule(hm)
}

// ResetStore discards every loaded module and starts over with an empty
// Store, used between independent debug sessions in the same process.
func (d *Debugger) ResetStore() {
	st := store.New(d.log)
	d.Store = st
	d.Exec = executor.New(st)
	st.SetInterceptor(d)
	d.breakpoints = map[breakKey]struct{}{}
	d.watchpoints = map[address.MemoryAddr]struct{}{}
}

// LookupFunc resolves an exported function by module and field name.
func (d *Debugger) LookupFunc(moduleName, field string) (address.FuncAddr, bool) {
	return d.Store.ExportedFunction(moduleName, field)
}

// SetBreakpoint arms a break before instruction idx of fn. Clearing uses the
// same key with ClearBreakpoint.
func (d *Debugger) SetBreakpoint(fn address.FuncAddr, idx uint32) {
	d.breakpoints[breakKey{fn, idx}] = struct{}{}
}

func (d *Debugger) ClearBreakpoint(fn address.FuncAddr, idx uint32) {
	delete(d.breakpoints, breakKey{fn, idx})
}

// SetWatchpoint arms a break after any write to mem; ClearWatchpoint disarms.
func (d *Debugger) SetWatchpoint(mem address.MemoryAddr) {
	d.watchpoints[mem] = struct{}{}
}

func (d *Debugger) ClearWatchpoint(mem address.MemoryAddr) {
	delete(d.watchpoints, mem)
}

// ExecuteFunc pushes a fresh activation of addr onto the Executor and runs
// it, stopping at the first breakpoint hit or when it returns. It never
// resumes a stopped run; Continue does that.
func (d *Debugger) ExecuteFunc(addr address.FuncAddr, args []value.Value) (RunResult, *trap.Trap) {
	if trp := d.Exec.Resume(addr, args); trp != nil {
		return RunResult{}, trp
	}
	return d.run()
}

// Continue resumes a stopped Executor (after a breakpoint or step) until
// the next breakpoint or completion.
func (d *Debugger) Continue() (RunResult, *trap.Trap) {
	return d.run()
}

func (d *Debugger) run() (RunResult, *trap.Trap) {
	for {
		sig, trp := d.Exec.Step()
		if trp != nil {
			return RunResult{}, trp
		}
		switch sig {
		case executor.SignalBreakpoint:
			return RunResult{Outcome: OutcomeBreakpoint}, nil
		case executor.SignalExited:
			return RunResult{Outcome: OutcomeFinished, Results: d.Exec.Results}, nil
		}
	}
}

// Step advances execution by one instruction, descending into, stepping
// over, or running out of calls per style.
func (d *Debugger) Step(style StepStyle) (RunResult, *trap.Trap) {
	d.stepBaseline = d.Exec.Depth()

	for {
		sig, trp := d.Exec.Step()
		if trp != nil {
			return RunResult{}, trp
		}
		switch sig {
		case executor.SignalExited:
			return RunResult{Outcome: OutcomeFinished, Results: d.Exec.Results}, nil
		case executor.SignalBreakpoint:
			return RunResult{Outcome: OutcomeBreakpoint}, nil
		}
		depth := d.Exec.Depth()
		switch style {
		case StepInstIn:
			return RunResult{Outcome: OutcomeBreakpoint}, nil
		case StepInstOver:
			if depth <= d.stepBaseline {
				return RunResult{Outcome: OutcomeBreakpoint}, nil
			}
		case StepOut:
			if depth < d.stepBaseline {
				return RunResult{Outcome: OutcomeBreakpoint}, nil
			}
		}
	}
}

// Frame reports the currently executing module/function/instruction
// index, the backing the disassemble and backtrace views read.
func (d *Debugger) Frame() stack.ProgramCounter { return d.Exec.PC }

// Instructions returns the decoded body of the function currently
// executing, for a disassemble view.
func (d *Debugger) Instructions() []inst.Instruction {
	return d.Store.Function(d.Exec.PC.FuncAddr).Defined.Body
}

// Locals reports the current activation's locals.
func (d *Debugger) Locals() ([]value.Value, error) {
	frame, err := d.Exec.Stack.CurrentFrame()
	if err != nil {
		return nil, err
	}
	return frame.Locals, nil
}

// Globals reports every global of the given module, in index order.
func (d *Debugger) Globals(m address.ModuleIndex) []value.Value {
	mi := d.Store.Module(m)
	out := make([]value.Value, len(mi.GlobalAddrs))
	for i, addr := range mi.GlobalAddrs {
		out[i] = d.Store.Global(addr).Value
	}
	return out
}

// MemoryBytes reads length bytes at offset from module m's memory 0.
func (d *Debugger) MemoryBytes(m address.ModuleIndex, offset, length uint64) ([]byte, *trap.Trap) {
	mi := d.Store.Module(m)
	mem := d.Store.Memory(mi.MemoryAddrs[0])
	return mem.Load(offset, length)
}

// --- interceptor.Interceptor ---

// ExecuteInst only honors standing breakpoints. Step-completion for
// StepInstIn is detected by Step's own loop after the instruction runs, not
// here — checking stepStyle in this hook would break before the instruction
// this very Step call is meant to execute, and the step would never advance.
func (d *Debugger) ExecuteInst(module address.ModuleIndex, fn address.FuncAddr, idx uint32, in inst.Instruction) interceptor.Signal {
	if _, hit := d.breakpoints[breakKey{fn, idx}]; hit {
		return interceptor.SignalBreak
	}
	return interceptor.SignalContinue
}

func (d *Debugger) InvokeFunc(addr address.FuncAddr, args []value.Value) interceptor.Signal {
	return interceptor.SignalContinue
}

func (d *Debugger) AfterStore(mem address.MemoryAddr, offset uint64, bytes []byte) interceptor.Signal {
	if _, watched := d.watchpoints[mem]; watched {
		d.log.WithFields(logrus.Fields{"memory": mem, "offset": offset, "len": len(bytes)}).Debug("watchpoint hit")
		return interceptor.SignalBreak
	}
	return interceptor.SignalContinue
}

var _ instance.HostContext = (*store.Store)(nil)
