// Package stack implements the single operand/label/activation sequence the
// Executor drives: a flat slice of tagged entries rather than three separate
// stacks, so label and frame boundaries interleave with operands exactly as
// the specification's Stack invariants describe.
package stack

import (
	"github.com/wasminspect-go/wasminspect/internal/address"
	"github.com/wasminspect-go/wasminspect/internal/value"
)

// LabelKind distinguishes the four control-flow label variants.
type LabelKind byte

const (
	LabelBlock LabelKind = iota
	LabelLoop
	LabelIf
	LabelReturn
)

// Label is a stack sentinel marking a control-flow scope. Arity is the
// number of operand values expected at the label's branch/end boundary.
type Label struct {
	Kind    LabelKind
	Arity   int
	LoopPC  ProgramCounter // meaningful only for LabelLoop: the loop's start
}

// ProgramCounter addresses one instruction within one function of one
// module. Advancing only touches Inst; calls rewrite all three fields.
type ProgramCounter struct {
	Module   address.ModuleIndex
	FuncAddr address.FuncAddr
	Inst     uint32
}

// CallFrame is one activation: the locals of a single function invocation
// and where to resume once it returns.
type CallFrame struct {
	Module   address.ModuleIndex
	FuncAddr address.FuncAddr
	Locals   []value.Value
	RetPC    *ProgramCounter // nil for the outermost (entry) call
}

func (f *CallFrame) Local(i int) value.Value  { return f.Locals[i] }
func (f *CallFrame) SetLocal(i int, v value.Value) { f.Locals[i] = v }

// entryKind tags what a stack entry holds.
type entryKind byte

const (
	entryValue entryKind = iota
	entryLabel
	entryFrame
)

// entry is one element of the flat stack.
type entry struct {
	kind  entryKind
	value value.Value
	label Label
	frame *CallFrame
}

// Stack is the single sequence described in the specification's data model:
// operand values, Labels, and Activations (frames) interleaved.
//
// Invariants maintained by every method here: (a) within an activation, the
// entries above the nearest Label are all operand values; (b) every
// activation's base carries at least one enclosing Return label; (c) labels
// nest properly with block/loop/if boundaries, enforced by callers matching
// push/pop in lock-step with the decoded instruction stream.
type Stack struct {
	entries []entry
}

var ErrUnderflow = errUnderflow{}

type errUnderflow struct{}

func (errUnderflow) Error() string { return "stack underflow" }

func (s *Stack) PushValue(v value.Value) { s.entries = append(s.entries, entry{kind: entryValue, value: v}) }

func (s *Stack) PopValue() (value.Value, error) {
	if len(s.entries) == 0 || s.entries[len(s.entries)-1].kind != entryValue {
		return value.Value{}, ErrUnderflow
	}
	e := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return e.value, nil
}

// PopValues pops n operands and returns them in original (bottom-to-top)
// order.
func (s *Stack) PopValues(n int) ([]value.Value, error) {
	out := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := s.PopValue()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *Stack) PushValues(vs []value.Value) {
	for _, v := range vs {
		s.PushValue(v)
	}
}

func (s *Stack) PushLabel(l Label) { s.entries = append(s.entries, entry{kind: entryLabel, label: l}) }

func (s *Stack) PopLabel() (Label, error) {
	if len(s.entries) == 0 || s.entries[len(s.entries)-1].kind != entryLabel {
		return Label{}, ErrUnderflow
	}
	e := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return e.label, nil
}

// DropOperands discards every operand value on top of the stack, stopping at
// the first Label or Frame entry.
func (s *Stack) DropOperands() {
	for len(s.entries) > 0 && s.entries[len(s.entries)-1].kind == entryValue {
		s.entries = s.entries[:len(s.entries)-1]
	}
}

// FrameLabel returns the depth-th enclosing label (0 = innermost) within the
// current activation, without popping anything.
func (s *Stack) FrameLabel(depth int) (Label, error) {
	seen := 0
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].kind == entryLabel {
			if seen == depth {
				return s.entries[i].label, nil
			}
			seen++
		} else if s.entries[i].kind == entryFrame {
			break
		}
	}
	return Label{}, ErrUnderflow
}

func (s *Stack) PushFrame(f *CallFrame) { s.entries = append(s.entries, entry{kind: entryFrame, frame: f}) }

func (s *Stack) PopFrame() (*CallFrame, error) {
	if len(s.entries) == 0 || s.entries[len(s.entries)-1].kind != entryFrame {
		return nil, ErrUnderflow
	}
	e := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return e.frame, nil
}

func (s *Stack) CurrentFrame() (*CallFrame, error) {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].kind == entryFrame {
			return s.entries[i].frame, nil
		}
	}
	return nil, ErrUnderflow
}

// IsFuncTopLevel reports whether the top of the stack is positioned exactly
// at a Return label (i.e. "end" here closes a function, not an inner block).
func (s *Stack) IsFuncTopLevel() bool {
	for i := len(s.entries) - 1; i >= 0; i-- {
		switch s.entries[i].kind {
		case entryValue:
			continue
		case entryLabel:
			return s.entries[i].label.Kind == LabelReturn
		default:
			return false
		}
	}
	return false
}

// Depth reports the number of activations currently on the stack; used by
// the debugger's step-over/step-out to detect descent into/return from a
// callee.
func (s *Stack) Depth() int {
	n := 0
	for _, e := range s.entries {
		if e.kind == entryFrame {
			n++
		}
	}
	return n
}

// IsEmpty reports whether the stack holds no activations at all, meaning the
// initial Return label (and its frame) have been fully unwound.
func (s *Stack) IsEmpty() bool { return s.Depth() == 0 }

// UnwindToFrame discards every value and label above the current
// activation's frame, leaving the frame itself on top. Used by `return` to
// clear any still-open block/loop/if labels before popping the frame.
func (s *Stack) UnwindToFrame() {
	for len(s.entries) > 0 && s.entries[len(s.entries)-1].kind != entryFrame {
		s.entries = s.entries[:len(s.entries)-1]
	}
}
