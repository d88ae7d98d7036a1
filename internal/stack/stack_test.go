package stack

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasminspect-go/wasminspect/internal/value"
)

func TestValuePushPop(t *testing.T) {
	var s Stack
	s.PushValue(value.I32Val(1))
	s.PushValue(value.I32Val(2))

	vs, err := s.PopValues(2)
	require.NoError(t, err)
	require.Equal(t, []value.Value{value.I32Val(1), value.I32Val(2)}, vs)
}

func TestPopValueUnderflow(t *testing.T) {
	var s Stack
	_, err := s.PopValue()
	require.ErrorIs(t, err, ErrUnderflow)
}

func TestPopLabelRejectsValueOnTop(t *testing.T) {
	var s Stack
	s.PushValue(value.I32Val(1))
	_, err := s.PopLabel()
	require.ErrorIs(t, err, ErrUnderflow)
}

func TestDropOperandsStopsAtLabel(t *testing.T) {
	var s Stack
	s.PushLabel(Label{Kind: LabelBlock, Arity: 0})
	s.PushValue(value.I32Val(1))
	s.PushValue(value.I32Val(2))

	s.DropOperands()
	_, err := s.PopLabel()
	require.NoError(t, err)
}

func TestFrameLabelDepth(t *testing.T) {
	var s Stack
	s.PushFrame(&CallFrame{})
	s.PushLabel(Label{Kind: LabelReturn, Arity: 0})
	s.PushLabel(Label{Kind: LabelBlock, Arity: 1})
	s.PushLabel(Label{Kind: LabelLoop, Arity: 2})

	inner, err := s.FrameLabel(0)
	require.NoError(t, err)
	require.Equal(t, LabelLoop, inner.Kind)

	outer, err := s.FrameLabel(2)
	require.NoError(t, err)
	require.Equal(t, LabelReturn, outer.Kind)
}

func TestFrameLabelDoesNotCrossFrameBoundary(t *testing.T) {
	var s Stack
	s.PushFrame(&CallFrame{})
	s.PushLabel(Label{Kind: LabelReturn, Arity: 0})
	s.PushFrame(&CallFrame{}) // a nested call with no labels of its own yet

	_, err := s.FrameLabel(0)
	require.ErrorIs(t, err, ErrUnderflow)
}

func TestCurrentFrameAndLocals(t *testing.T) {
	var s Stack
	frame := &CallFrame{Locals: []value.Value{value.I32Val(41)}}
	s.PushFrame(frame)

	got, err := s.CurrentFrame()
	require.NoError(t, err)
	require.Same(t, frame, got)

	got.SetLocal(0, value.I32Val(42))
	require.Equal(t, int32(42), frame.Local(0).I32())
}

func TestIsFuncTopLevel(t *testing.T) {
	var s Stack
	s.PushFrame(&CallFrame{})
	s.PushLabel(Label{Kind: LabelReturn, Arity: 0})
	require.True(t, s.IsFuncTopLevel())

	s.PushLabel(Label{Kind: LabelBlock, Arity: 0})
	require.False(t, s.IsFuncTopLevel())
}

func TestDepthTracksActivations(t *testing.T) {
	var s Stack
	require.Equal(t, 0, s.Depth())
	require.True(t, s.IsEmpty())

	s.PushFrame(&CallFrame{})
	s.PushFrame(&CallFrame{})
	require.Equal(t, 2, s.Depth())
	require.False(t, s.IsEmpty())
}

func TestUnwindToFrameLeavesFrameOnTop(t *testing.T) {
	var s Stack
	s.PushFrame(&CallFrame{})
	s.PushLabel(Label{Kind: LabelReturn, Arity: 0})
	s.PushLabel(Label{Kind: LabelBlock, Arity: 0})
	s.PushValue(value.I32Val(9))

	s.UnwindToFrame()
	_, err := s.PopFrame()
	require.NoError(t, err)
}

// TestBrUnwindLeavesExactlyBrOperand reproduces the spec's nested-br
// boundary scenario: block block block (br 2; drop) leaves exactly the
// br's operand after the two outer ends, discarding intervening operands.
func TestBrUnwindLeavesExactlyBrOperand(t *testing.T) {
	var s Stack
	s.PushFrame(&CallFrame{})
	s.PushLabel(Label{Kind: LabelReturn, Arity: 0})
	s.PushLabel(Label{Kind: LabelBlock, Arity: 1}) // outermost of the three blocks, depth 2 from innermost; br 2's target
	s.PushLabel(Label{Kind: LabelBlock, Arity: 0})
	s.PushLabel(Label{Kind: LabelBlock, Arity: 0}) // innermost
	s.PushValue(value.I32Val(7))

	lbl, err := s.FrameLabel(2)
	require.NoError(t, err)
	carried, err := s.PopValues(lbl.Arity)
	require.NoError(t, err)

	for i := 0; i <= 2; i++ {
		s.DropOperands()
		_, err := s.PopLabel()
		require.NoError(t, err)
	}
	s.PushValues(carried)

	vs, err := s.PopValues(1)
	require.NoError(t, err)
	require.Equal(t, int32(7), vs[0].I32())

	_, err = s.PopValue()
	require.ErrorIs(t, err, ErrUnderflow)
}
