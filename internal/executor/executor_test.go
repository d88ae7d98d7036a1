package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasminspect-go/wasminspect/internal/address"
	"github.com/wasminspect-go/wasminspect/internal/inst"
	"github.com/wasminspect-go/wasminspect/internal/instance"
	"github.com/wasminspect-go/wasminspect/internal/interceptor"
	"github.com/wasminspect-go/wasminspect/internal/store"
	"github.com/wasminspect-go/wasminspect/internal/trap"
	"github.com/wasminspect-go/wasminspect/internal/value"
	"github.com/wasminspect-go/wasminspect/internal/wasm"
)

// loadFunc builds a one-function module (no imports) from a hand-built body
// and returns an Executor plus that function's address, ready to Invoke.
func loadFunc(t *testing.T, params, results []value.Type, locals []value.Type, body []inst.Instruction) (*Executor, *store.Store) {
	t.Helper()
	st := store.New(nil)
	m := &wasm.Module{
		Types:     []*wasm.FuncType{{Params: params, Results: results}},
		Functions: []wasm.Function{{TypeIndex: 0, Locals: locals, Body: body}},
		Memories:  []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}},
	}
	_, err := st.LoadModule("m", m, nil)
	require.NoError(t, err)
	return New(st), st
}

func TestInvokeAddsTwoLocals(t *testing.T) {
	e, st := loadFunc(t, []value.Type{value.I32, value.I32}, []value.Type{value.I32}, nil, []inst.Instruction{
		{Op: inst.OpLocalGet, Index: 0},
		{Op: inst.OpLocalGet, Index: 1},
		{Op: inst.OpI32Add},
		{Op: inst.OpEnd},
	})
	mi, _, ok := st.ModuleByName("m")
	require.True(t, ok)

	results, trp := e.Invoke(mi.FuncAddrs[0], []value.Value{value.I32Val(3), value.I32Val(4)})
	require.Nil(t, trp)
	require.Equal(t, []value.Value{value.I32Val(7)}, results)
}

func TestUnreachableTraps(t *testing.T) {
	e, st := loadFunc(t, nil, nil, nil, []inst.Instruction{
		{Op: inst.OpUnreachable},
		{Op: inst.OpEnd},
	})
	mi, _, _ := st.ModuleByName("m")
	_, trp := e.Invoke(mi.FuncAddrs[0], nil)
	require.NotNil(t, trp)
	require.Equal(t, trap.Unreachable, trp.Kind)
}

func TestIfElseTakesFalseBranch(t *testing.T) {
	e, st := loadFunc(t, []value.Type{value.I32}, []value.Type{value.I32}, nil, []inst.Instruction{
		{Op: inst.OpLocalGet, Index: 0},
		{Op: inst.OpIf, BlockType: inst.BlockType{Kind: inst.BlockKindSingle, ValueType: value.I32}},
		{Op: inst.OpI32Const, I32: 1},
		{Op: inst.OpElse},
		{Op: inst.OpI32Const, I32: 0},
		{Op: inst.OpEnd},
		{Op: inst.OpEnd},
	})
	mi, _, _ := st.ModuleByName("m")

	results, trp := e.Invoke(mi.FuncAddrs[0], []value.Value{value.I32Val(0)})
	require.Nil(t, trp)
	require.Equal(t, int32(0), results[0].I32())
}

func TestLoopBranchCountsDown(t *testing.T) {
	// locals[0] starts at 3; loop decrements until it hits 0, result is 0.
	e, st := loadFunc(t, []value.Type{value.I32}, []value.Type{value.I32}, nil, []inst.Instruction{
		{Op: inst.OpLoop, BlockType: inst.BlockType{Kind: inst.BlockKindEmpty}},
		{Op: inst.OpLocalGet, Index: 0},
		{Op: inst.OpI32Const, I32: 1},
		{Op: inst.OpI32Sub},
		{Op: inst.OpLocalTee, Index: 0},
		{Op: inst.OpBrIf, Index: 0},
		{Op: inst.OpEnd},
		{Op: inst.OpLocalGet, Index: 0},
		{Op: inst.OpEnd},
	})
	mi, _, _ := st.ModuleByName("m")

	results, trp := e.Invoke(mi.FuncAddrs[0], []value.Value{value.I32Val(3)})
	require.Nil(t, trp)
	require.Equal(t, int32(0), results[0].I32())
}

func TestMultiLevelBrTargetsTheNamedOuterBlock(t *testing.T) {
	// block(result i32) { block { i32.const 7; br 1 } i32.const 99 }
	// br 1 exits both blocks straight to the function result, so the
	// trailing i32.const 99 must never run.
	e, st := loadFunc(t, nil, []value.Type{value.I32}, nil, []inst.Instruction{
		{Op: inst.OpBlock, BlockType: inst.BlockType{Kind: inst.BlockKindSingle, ValueType: value.I32}},
		{Op: inst.OpBlock, BlockType: inst.BlockType{Kind: inst.BlockKindEmpty}},
		{Op: inst.OpI32Const, I32: 7},
		{Op: inst.OpBr, Index: 1},
		{Op: inst.OpEnd},
		{Op: inst.OpI32Const, I32: 99},
		{Op: inst.OpEnd},
		{Op: inst.OpEnd},
	})
	mi, _, _ := st.ModuleByName("m")

	results, trp := e.Invoke(mi.FuncAddrs[0], nil)
	require.Nil(t, trp)
	require.Equal(t, int32(7), results[0].I32())
}

func TestMemoryStoreThenLoadRoundTrips(t *testing.T) {
	e, st := loadFunc(t, nil, []value.Type{value.I32}, nil, []inst.Instruction{
		{Op: inst.OpI32Const, I32: 0},  // addr
		{Op: inst.OpI32Const, I32: 99}, // value
		{Op: inst.OpI32Store},
		{Op: inst.OpI32Const, I32: 0},
		{Op: inst.OpI32Load},
		{Op: inst.OpEnd},
	})
	mi, _, _ := st.ModuleByName("m")

	results, trp := e.Invoke(mi.FuncAddrs[0], nil)
	require.Nil(t, trp)
	require.Equal(t, int32(99), results[0].I32())
}

func TestAfterStoreHookObservesWrite(t *testing.T) {
	e, st := loadFunc(t, nil, nil, nil, []inst.Instruction{
		{Op: inst.OpI32Const, I32: 4},
		{Op: inst.OpI32Const, I32: 7},
		{Op: inst.OpI32Store},
		{Op: inst.OpEnd},
	})
	hook := &recordingHook{}
	st.SetInterceptor(hook)
	mi, _, _ := st.ModuleByName("m")

	_, trp := e.Invoke(mi.FuncAddrs[0], nil)
	require.Nil(t, trp)
	require.Equal(t, uint64(4), hook.lastOffset)
	require.Len(t, hook.lastBytes, 4)
}

func TestCallInvokesDefinedFunction(t *testing.T) {
	st := store.New(nil)
	m := &wasm.Module{
		Types: []*wasm.FuncType{
			{Results: []value.Type{value.I32}},                              // type 0: () -> i32, the callee
			{Params: []value.Type{value.I32}, Results: []value.Type{value.I32}}, // unused placeholder
		},
		Functions: []wasm.Function{
			{TypeIndex: 0, Body: []inst.Instruction{{Op: inst.OpI32Const, I32: 41}, {Op: inst.OpEnd}}},
			{TypeIndex: 0, Body: []inst.Instruction{
				{Op: inst.OpCall, Index: 0},
				{Op: inst.OpI32Const, I32: 1},
				{Op: inst.OpI32Add},
				{Op: inst.OpEnd},
			}},
		},
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}},
	}
	_, err := st.LoadModule("m", m, nil)
	require.NoError(t, err)
	mi, _, _ := st.ModuleByName("m")

	e := New(st)
	results, trp := e.Invoke(mi.FuncAddrs[1], nil)
	require.Nil(t, trp)
	require.Equal(t, int32(42), results[0].I32())
}

func TestCallInvokesHostFunctionAndAdvancesPastIt(t *testing.T) {
	st := store.New(nil)
	i32ToI32 := &wasm.FuncType{Params: []value.Type{value.I32}, Results: []value.Type{value.I32}}
	double := &instance.HostFunction{
		Type: i32ToI32,
		Name: "double",
		Call: func(args []value.Value, caller address.ModuleIndex, ctx instance.HostContext) ([]value.Value, error) {
			return []value.Value{value.I32Val(args[0].I32() * 2)}, nil
		},
	}
	_, err := st.RegisterHostModule(&store.HostModule{
		Name:  "env",
		Funcs: map[string]*instance.HostFunction{"double": double},
	})
	require.NoError(t, err)

	m := &wasm.Module{
		Types:   []*wasm.FuncType{i32ToI32},
		Imports: []wasm.Import{{Module: "env", Name: "double", Kind: wasm.ExternKindFunc, FuncTypeIndex: 0}},
		Functions: []wasm.Function{
			{TypeIndex: 0, Body: []inst.Instruction{
				{Op: inst.OpLocalGet, Index: 0},
				{Op: inst.OpCall, Index: 0}, // module-local index 0 is the import
				{Op: inst.OpEnd},
			}},
		},
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}},
	}
	_, err = st.LoadModule("m", m, nil)
	require.NoError(t, err)
	mi, _, _ := st.ModuleByName("m")

	e := New(st)
	// If the call/call_indirect path failed to advance PC past a host
	// call, this would re-execute OpCall forever instead of reaching
	// OpEnd; a bounded-time pass here is the regression check.
	results, trp := e.Invoke(mi.FuncAddrs[1], []value.Value{value.I32Val(21)})
	require.Nil(t, trp)
	require.Equal(t, int32(42), results[0].I32())
}

func TestCallIndirectTypeMismatchTraps(t *testing.T) {
	st := store.New(nil)
	noArgsType := &wasm.FuncType{Results: []value.Type{value.I32}}
	oneArgType := &wasm.FuncType{Params: []value.Type{value.I32}, Results: []value.Type{value.I32}}
	m := &wasm.Module{
		Types: []*wasm.FuncType{noArgsType, oneArgType},
		Functions: []wasm.Function{
			{TypeIndex: 0, Body: []inst.Instruction{{Op: inst.OpI32Const, I32: 1}, {Op: inst.OpEnd}}},
			{TypeIndex: 1, Body: []inst.Instruction{
				{Op: inst.OpI32Const, I32: 0}, // table index
				{Op: inst.OpCallIndirect, Index: 1, Index2: 0}, // expects oneArgType
				{Op: inst.OpEnd},
			}},
		},
		Tables: []wasm.TableType{{ElemType: value.FuncRef, Limits: wasm.Limits{Min: 1}}},
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}},
		Elements: []wasm.ElementSegment{{
			Mode:     wasm.SegmentModeActive,
			TableIdx: 0,
			Offset:   wasm.ConstExpr{Opcode: inst.OpI32Const, I32: 0},
			Init:     []wasm.ConstExpr{{Opcode: inst.OpRefFunc, Index: 0}},
		}},
	}
	_, err := st.LoadModule("m", m, nil)
	require.NoError(t, err)
	mi, _, _ := st.ModuleByName("m")

	e := New(st)
	_, trp := e.Invoke(mi.FuncAddrs[1], []value.Value{value.I32Val(5)})
	require.NotNil(t, trp)
	require.Equal(t, trap.IndirectCallTypeMismatch, trp.Kind)
}

// recordingHook wraps the no-op default, overriding only AfterStore, so it
// satisfies Interceptor without restating the other two hooks.
type recordingHook struct {
	interceptor.NoOp
	lastOffset uint64
	lastBytes  []byte
}

func (h *recordingHook) AfterStore(mem address.MemoryAddr, offset uint64, bytes []byte) interceptor.Signal {
	h.lastOffset = offset
	h.lastBytes = append([]byte(nil), bytes...)
	return interceptor.SignalContinue
}
