// Package executor implements the instruction-level interpreter: fetch,
// decode dispatch, and the stack machine's control-flow bookkeeping.
// Instructions never carry precomputed jump targets; branch targets are
// found by scanning the flat instruction stream for matching block
// boundaries at the moment a branch executes, trading a small amount of
// per-branch work for a decoder with no separate resolution pass.
package executor

import (
	"github.com/wasminspect-go/wasminspect/internal/address"
	"github.com/wasminspect-go/wasminspect/internal/buildoptions"
	"github.com/wasminspect-go/wasminspect/internal/inst"
	"github.com/wasminspect-go/wasminspect/internal/interceptor"
	"github.com/wasminspect-go/wasminspect/internal/stack"
	"github.com/wasminspect-go/wasminspect/internal/store"
	"github.com/wasminspect-go/wasminspect/internal/trap"
	"github.com/wasminspect-go/wasminspect/internal/value"
)

// Signal reports the coarse outcome of one Step call.
type Signal int

const (
	// SignalNext means execution may continue with another Step.
	SignalNext Signal = iota
	// SignalBreakpoint means an interceptor hook requested a pause. When
	// ExecuteInst asked for it, the instruction at PC has not executed yet;
	// when AfterStore asked for it, the write is done and PC is past it.
	SignalBreakpoint
	// SignalExited means the outermost invocation has returned; Results
	// holds its return values.
	SignalExited
)

// Executor drives one Stack against one Store. It holds no instruction
// state of its own beyond PC: every operand, label and activation lives on
// the Stack so a debugger can inspect or unwind it between steps.
type Executor struct {
	St    *store.Store
	Stack *stack.Stack
	PC    stack.ProgramCounter

	// Results is populated once Step returns SignalExited.
	Results []value.Value

	callDepth int
}

const maxCallDepth = 1 << 16

// New creates an Executor over st, with its own empty Stack.
func New(st *store.Store) *Executor {
	return &Executor{St: st, Stack: &stack.Stack{}}
}

func (e *Executor) hook() interceptor.Interceptor { return e.St.Interceptor() }

// Invoke runs addr to completion (or until it traps), driving Step in a
// loop. It is also the Invoker the Store's LoadModule uses to run a start
// function.
func (e *Executor) Invoke(addr address.FuncAddr, args []value.Value) ([]value.Value, *trap.Trap) {
	if trp := e.pushCall(addr, args, nil); trp != nil {
		return nil, trp
	}
	for {
		sig, trp := e.Step()
		if trp != nil {
			return nil, trp
		}
		if sig == SignalExited {
			return e.Results, nil
		}
	}
}

// pushCall sets up one activation for addr: a CallFrame plus its enclosing
// Return label, and points PC at its first instruction. retPC is nil for
// the outermost call in an Invoke chain.
func (e *Executor) pushCall(addr address.FuncAddr, args []value.Value, retPC *stack.ProgramCounter) *trap.Trap {
	e.callDepth++
	if e.callDepth > maxCallDepth {
		e.callDepth--
		return trap.New(trap.CallStackExhausted)
	}
	fn := e.St.Function(addr)
	e.hook().InvokeFunc(addr, args)
	if fn.IsHost() {
		caller := e.PC.Module
		results, err := fn.Host.Call(args, caller, e.St)
		e.callDepth--
		if err != nil {
			return trap.Wrap(trap.HostFunctionError, err)
		}
		e.Stack.PushValues(results)
		// A host call pushes no frame, so nothing else advances PC past
		// the call/call_indirect that invoked it; without this, the next
		// Step would re-fetch the same instruction and re-enter the host
		// function with its own results as args.
		if retPC != nil {
			e.PC = *retPC
		}
		return nil
	}
	def := fn.Defined
	locals := make([]value.Value, len(def.LocalTypes))
	copy(locals, args)
	for i := len(args); i < len(locals); i++ {
		locals[i] = value.Zero(def.LocalTypes[i])
	}
	frame := &stack.CallFrame{Module: def.Module, FuncAddr: addr, Locals: locals, RetPC: retPC}
	e.Stack.PushFrame(frame)
	e.Stack.PushLabel(stack.Label{Kind: stack.LabelReturn, Arity: len(def.Type.Results)})
	e.PC = stack.ProgramCounter{Module: def.Module, FuncAddr: addr, Inst: 0}
	return nil
}

// Resume sets up a fresh activation for addr without running it; the
// caller drives execution afterward via Step, so a breakpoint armed on
// addr's first instruction still fires.
func (e *Executor) Resume(addr address.FuncAddr, args []value.Value) *trap.Trap {
	return e.pushCall(addr, args, nil)
}

// Depth reports the number of activations currently live, used by the
// debugger to detect descent into or return from a call while stepping.
func (e *Executor) Depth() int { return e.Stack.Depth() }

func (e *Executor) currentBody() []inst.Instruction {
	return e.St.Function(e.PC.FuncAddr).Defined.Body
}

// Step executes exactly one instruction.
func (e *Executor) Step() (Signal, *trap.Trap) {
	body := e.currentBody()
	if int(e.PC.Inst) >= len(body) {
		return 0, trap.New(trap.NoMoreInstruction)
	}
	in := body[e.PC.Inst]

	if sig := e.hook().ExecuteInst(e.PC.Module, e.PC.FuncAddr, e.PC.Inst, in); sig == interceptor.SignalBreak {
		return SignalBreakpoint, nil
	}

	return e.executeInst(body, in)
}

// executeInst dispatches one decoded instruction. Most arithmetic,
// comparison and conversion opcodes are handled in numeric_ops.go; memory,
// table and bulk-memory opcodes in memtable_ops.go.
func (e *Executor) executeInst(body []inst.Instruction, in inst.Instruction) (Signal, *trap.Trap) {
	switch in.Op {
	case inst.OpUnreachable:
		return 0, trap.New(trap.Unreachable)
	case inst.OpNop:
		e.PC.Inst++
		return SignalNext, nil

	case inst.OpBlock:
		e.Stack.PushLabel(stack.Label{Kind: stack.LabelBlock, Arity: e.blockArity(in.BlockType, false)})
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpLoop:
		e.Stack.PushLabel(stack.Label{Kind: stack.LabelLoop, Arity: e.blockArity(in.BlockType, true),
			LoopPC: stack.ProgramCounter{Module: e.PC.Module, FuncAddr: e.PC.FuncAddr, Inst: e.PC.Inst + 1}})
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpIf:
		cond, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		e.Stack.PushLabel(stack.Label{Kind: stack.LabelIf, Arity: e.blockArity(in.BlockType, false)})
		if cond.I32() != 0 {
			e.PC.Inst++
			return SignalNext, nil
		}
		elseIdx, endIdx := findElseOrEnd(body, int(e.PC.Inst)+1)
		if elseIdx >= 0 {
			e.PC.Inst = uint32(elseIdx) + 1
		} else {
			e.PC.Inst = uint32(endIdx) // land exactly on the matching End, executed next step
		}
		return SignalNext, nil
	case inst.OpElse:
		// Reached only by falling through the if-true branch: skip to the
		// matching end without touching the label the if pushed.
		_, endIdx := matchElseEnd(body, int(e.PC.Inst))
		e.PC.Inst = uint32(endIdx)
		return SignalNext, nil
	case inst.OpEnd:
		return e.execEnd()

	case inst.OpBr:
		return e.execBranch(body, int(in.Index))
	case inst.OpBrIf:
		cond, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		if cond.I32() == 0 {
			e.PC.Inst++
			return SignalNext, nil
		}
		return e.execBranch(body, int(in.Index))
	case inst.OpBrTable:
		idxVal, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		i := int(idxVal.U32())
		depth := in.BrTable.Default
		if i >= 0 && i < len(in.BrTable.Targets) {
			depth = in.BrTable.Targets[i]
		}
		return e.execBranch(body, int(depth))
	case inst.OpReturn:
		return e.execReturn()

	case inst.OpCall:
		callee := e.St.Module(e.PC.Module).FuncAddrs[in.Index]
		return e.call(callee)
	case inst.OpCallIndirect:
		return e.callIndirect(in)

	case inst.OpDrop:
		if _, err := e.Stack.PopValue(); err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpSelect:
		cond, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		b, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		a, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		if cond.I32() != 0 {
			e.Stack.PushValue(a)
		} else {
			e.Stack.PushValue(b)
		}
		e.PC.Inst++
		return SignalNext, nil

	case inst.OpLocalGet:
		frame, err := e.Stack.CurrentFrame()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		e.Stack.PushValue(frame.Local(int(in.Index)))
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpLocalSet:
		v, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		frame, err := e.Stack.CurrentFrame()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		frame.SetLocal(int(in.Index), v)
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpLocalTee:
		v, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		frame, err := e.Stack.CurrentFrame()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		frame.SetLocal(int(in.Index), v)
		e.Stack.PushValue(v)
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpGlobalGet:
		addr := e.St.Module(e.PC.Module).GlobalAddrs[in.Index]
		e.Stack.PushValue(e.St.Global(addr).Value)
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpGlobalSet:
		v, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		addr := e.St.Module(e.PC.Module).GlobalAddrs[in.Index]
		e.St.Global(addr).Value = v
		e.PC.Inst++
		return SignalNext, nil

	case inst.OpRefNull:
		e.Stack.PushValue(value.Null(in.RefType))
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpRefIsNull:
		v, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		e.Stack.PushValue(boolVal(v.Ref.IsNull()))
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpRefFunc:
		addr := e.St.Module(e.PC.Module).FuncAddrs[in.Index]
		e.Stack.PushValue(value.RefVal(value.FuncRefVal(addr)))
		e.PC.Inst++
		return SignalNext, nil

	case inst.OpI32Const:
		e.Stack.PushValue(value.I32Val(in.I32))
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpI64Const:
		e.Stack.PushValue(value.I64Val(in.I64))
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpF32Const:
		e.Stack.PushValue(value.F32Bits(in.F32))
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpF64Const:
		e.Stack.PushValue(value.F64Bits(in.F64))
		e.PC.Inst++
		return SignalNext, nil
	}

	if isMemTableOp(in.Op) {
		return e.execMemTableOp(in)
	}
	return e.execNumericOp(in)
}

func boolVal(b bool) value.Value {
	if b {
		return value.I32Val(1)
	}
	return value.I32Val(0)
}

// blockArity reports the branch arity for a pushed label: a loop branches
// to its start carrying its parameter count, a block/if branches past its
// end carrying its result count.
func (e *Executor) blockArity(bt inst.BlockType, isLoop bool) int {
	switch bt.Kind {
	case inst.BlockKindEmpty:
		return 0
	case inst.BlockKindSingle:
		if isLoop {
			return 0
		}
		return 1
	default:
		ft := e.St.Module(e.PC.Module).Mod.GetType(bt.TypeIndex)
		if isLoop {
			return len(ft.Params)
		}
		return len(ft.Results)
	}
}

func (e *Executor) execEnd() (Signal, *trap.Trap) {
	if !e.Stack.IsFuncTopLevel() {
		if _, err := e.Stack.PopLabel(); err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		e.PC.Inst++
		return SignalNext, nil
	}
	return e.execReturn()
}

// execReturn unwinds the current activation, whether reached via an
// explicit `return` or by falling off the end of a function body.
func (e *Executor) execReturn() (Signal, *trap.Trap) {
	lbl, err := e.Stack.FrameLabel(0)
	if err != nil {
		return 0, trap.New(trap.StackUnderflow)
	}
	results, err := e.Stack.PopValues(lbl.Arity)
	if err != nil {
		return 0, trap.New(trap.StackUnderflow)
	}
	e.Stack.UnwindToFrame()
	if _, err := e.Stack.PopLabel(); err != nil {
		return 0, trap.New(trap.StackUnderflow)
	}
	frame, err := e.Stack.PopFrame()
	if err != nil {
		return 0, trap.New(trap.StackUnderflow)
	}
	e.callDepth--
	if buildoptions.IsTest && e.callDepth < 0 {
		panic("executor: callDepth went negative on return")
	}
	if frame.RetPC == nil {
		e.Results = results
		return SignalExited, nil
	}
	e.Stack.PushValues(results)
	e.PC = *frame.RetPC
	return SignalNext, nil
}

// execBranch implements br to the label `depth` levels out from the
// current one (0 = innermost).
func (e *Executor) execBranch(body []inst.Instruction, depth int) (Signal, *trap.Trap) {
	lbl, err := e.Stack.FrameLabel(depth)
	if err != nil {
		return 0, trap.New(trap.StackUnderflow)
	}
	carried, err := e.Stack.PopValues(lbl.Arity)
	if err != nil {
		return 0, trap.New(trap.StackUnderflow)
	}
	for i := 0; i <= depth; i++ {
		e.Stack.DropOperands()
		if _, err := e.Stack.PopLabel(); err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
	}
	e.Stack.PushValues(carried)
	if lbl.Kind == stack.LabelLoop {
		e.Stack.PushLabel(lbl)
		e.PC = lbl.LoopPC
		return SignalNext, nil
	}
	endIdx := findMatchingEnd(body, int(e.PC.Inst), depth+1)
	e.PC.Inst = uint32(endIdx) + 1
	return SignalNext, nil
}

func (e *Executor) call(addr address.FuncAddr) (Signal, *trap.Trap) {
	fn := e.St.Function(addr)
	argc := len(fn.Type().Params)
	args, err := e.Stack.PopValues(argc)
	if err != nil {
		return 0, trap.New(trap.StackUnderflow)
	}
	ret := e.PC
	ret.Inst++
	if trp := e.pushCall(addr, args, &ret); trp != nil {
		return 0, trp
	}
	return SignalNext, nil
}

func (e *Executor) callIndirect(in inst.Instruction) (Signal, *trap.Trap) {
	idxVal, err := e.Stack.PopValue()
	if err != nil {
		return 0, trap.New(trap.StackUnderflow)
	}
	mi := e.St.Module(e.PC.Module)
	tableAddr := mi.TableAddrs[in.Index2]
	tbl := e.St.Table(tableAddr)
	ref, trp := tbl.Get(int(idxVal.U32()))
	if trp != nil {
		return 0, trp
	}
	if ref.IsNull() {
		return 0, trap.New(trap.UninitializedElement)
	}
	if ref.Kind != value.RefKindFunc {
		return 0, trap.New(trap.IndirectCallTypeMismatch)
	}
	funcAddr := ref.Func
	wantType := mi.Mod.GetType(in.Index)
	gotType := e.St.Function(funcAddr).Type()
	if !wantType.Equal(gotType) {
		return 0, trap.New(trap.IndirectCallTypeMismatch)
	}
	args, err := e.Stack.PopValues(len(wantType.Params))
	if err != nil {
		return 0, trap.New(trap.StackUnderflow)
	}
	ret := e.PC
	ret.Inst++
	if trp := e.pushCall(funcAddr, args, &ret); trp != nil {
		return 0, trp
	}
	return SignalNext, nil
}

// findMatchingEnd scans forward from start (the br instruction, or a
// Block/Loop/If itself) for the count-th End closing a label at or above
// start's own nesting level, skipping nested openers met along the way so
// an inner block's End is never mistaken for an enclosing one. count=1
// finds the innermost enclosing block's End.
func findMatchingEnd(body []inst.Instruction, start, count int) int {
	depth := 0
	found := 0
	for i := start + 1; i < len(body); i++ {
		switch body[i].Op {
		case inst.OpBlock, inst.OpLoop, inst.OpIf:
			depth++
		case inst.OpEnd:
			if depth == 0 {
				found++
				if found == count {
					return i
				}
				continue
			}
			depth--
		}
	}
	return len(body) - 1
}

// findElseOrEnd scans an If's body (start = index just after the If
// instruction) for its own Else and matching End at the same nesting depth.
// elseIdx is -1 if the if-arm has no else clause.
func findElseOrEnd(body []inst.Instruction, start int) (elseIdx, endIdx int) {
	elseIdx = -1
	depth := 0
	for i := start; i < len(body); i++ {
		switch body[i].Op {
		case inst.OpBlock, inst.OpLoop, inst.OpIf:
			depth++
		case inst.OpElse:
			if depth == 0 {
				elseIdx = i
			}
		case inst.OpEnd:
			if depth == 0 {
				return elseIdx, i
			}
			depth--
		}
	}
	return -1, len(body) - 1
}

// matchElseEnd finds the matching End for an Else reached by straight-line
// execution of the if-true arm.
func matchElseEnd(body []inst.Instruction, elsePos int) (int, int) {
	depth := 0
	for i := elsePos + 1; i < len(body); i++ {
		switch body[i].Op {
		case inst.OpBlock, inst.OpLoop, inst.OpIf:
			depth++
		case inst.OpEnd:
			if depth == 0 {
				return elsePos, i
			}
			depth--
		}
	}
	return elsePos, len(body) - 1
}
