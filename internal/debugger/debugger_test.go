package debugger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasminspect-go/wasminspect/internal/inst"
	"github.com/wasminspect-go/wasminspect/internal/value"
	"github.com/wasminspect-go/wasminspect/internal/wasm"
)

func leb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func section(id byte, body []byte) []byte {
	out := []byte{id}
	out = append(out, leb(uint32(len(body)))...)
	return append(out, body...)
}

// addModuleBinary hand-encodes a module exporting `add(i32, i32) -> i32`:
// local.get 0; local.get 1; i32.add.
func addModuleBinary() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	typeBody := []byte{0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f}
	out = append(out, section(1, typeBody)...)
	out = append(out, section(3, []byte{0x01, 0x00})...)
	out = append(out, section(7, []byte{0x01, 0x03, 'a', 'd', 'd', 0x00, 0x00})...)
	funcBody := []byte{0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b}
	codeBody := append([]byte{0x01}, leb(uint32(len(funcBody)))...)
	codeBody = append(codeBody, funcBody...)
	out = append(out, section(10, codeBody)...)
	return out
}

func TestLoadModuleAndExecuteFunc(t *testing.T) {
	d := New(wasm.FeaturesDefault, nil)
	_, err := d.LoadModule("m", addModuleBinary())
	require.NoError(t, err)

	addr, ok := d.LookupFunc("m", "add")
	require.True(t, ok)

	res, trp := d.ExecuteFunc(addr, []value.Value{value.I32Val(10), value.I32Val(32)})
	require.Nil(t, trp)
	require.Equal(t, OutcomeFinished, res.Outcome)
	require.Equal(t, int32(42), res.Results[0].I32())
}

func TestLoadModuleRejectsBadBinary(t *testing.T) {
	d := New(wasm.FeaturesDefault, nil)
	_, err := d.LoadModule("m", []byte{0xde, 0xad, 0xbe, 0xef})
	require.Error(t, err)
}

func TestBreakpointStopsBeforeInstruction(t *testing.T) {
	d := New(wasm.FeaturesDefault, nil)
	_, err := d.LoadModule("m", addModuleBinary())
	require.NoError(t, err)
	addr, _ := d.LookupFunc("m", "add")

	d.SetBreakpoint(addr, 2) // the i32.add instruction
	res, trp := d.ExecuteFunc(addr, []value.Value{value.I32Val(1), value.I32Val(2)})
	require.Nil(t, trp)
	require.Equal(t, OutcomeBreakpoint, res.Outcome)
	require.Equal(t, uint32(2), d.Frame().Inst)

	d.ClearBreakpoint(addr, 2)
	res, trp = d.Continue()
	require.Nil(t, trp)
	require.Equal(t, OutcomeFinished, res.Outcome)
	require.Equal(t, int32(3), res.Results[0].I32())
}

func TestStepInstInStopsAtEveryInstruction(t *testing.T) {
	d := New(wasm.FeaturesDefault, nil)
	_, err := d.LoadModule("m", addModuleBinary())
	require.NoError(t, err)
	addr, _ := d.LookupFunc("m", "add")

	setupTrp := d.Exec.Resume(addr, []value.Value{value.I32Val(1), value.I32Val(2)})
	require.Nil(t, setupTrp)

	res, trp := d.Step(StepInstIn)
	require.Nil(t, trp)
	require.Equal(t, OutcomeBreakpoint, res.Outcome)
	require.Equal(t, uint32(1), d.Frame().Inst) // stopped just before local.get 1
}

func TestLocalsReportsCurrentActivation(t *testing.T) {
	d := New(wasm.FeaturesDefault, nil)
	_, err := d.LoadModule("m", addModuleBinary())
	require.NoError(t, err)
	addr, _ := d.LookupFunc("m", "add")

	d.SetBreakpoint(addr, 2)
	_, trp := d.ExecuteFunc(addr, []value.Value{value.I32Val(7), value.I32Val(9)})
	require.Nil(t, trp)

	locals, err := d.Locals()
	require.NoError(t, err)
	require.Equal(t, []value.Value{value.I32Val(7), value.I32Val(9)}, locals)
}

func TestInstructionsReturnsDecodedBody(t *testing.T) {
	d := New(wasm.FeaturesDefault, nil)
	_, err := d.LoadModule("m", addModuleBinary())
	require.NoError(t, err)
	addr, _ := d.LookupFunc("m", "add")

	d.SetBreakpoint(addr, 0)
	_, trp := d.ExecuteFunc(addr, []value.Value{value.I32Val(1), value.I32Val(1)})
	require.Nil(t, trp)

	body := d.Instructions()
	require.Len(t, body, 4)
	require.Equal(t, inst.OpLocalGet, body[0].Op)
}

// storeModuleBinary encodes a memory-backed module exporting a void
// function `poke()` that writes i32 5 at address 0.
func storeModuleBinary() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, section(1, []byte{0x01, 0x60, 0x00, 0x00})...) // () -> ()
	out = append(out, section(3, []byte{0x01, 0x00})...)
	out = append(out, section(5, []byte{0x01, 0x00, 0x01})...) // one memory, min 1 page
	out = append(out, section(7, []byte{0x01, 0x04, 'p', 'o', 'k', 'e', 0x00, 0x00})...)
	funcBody := []byte{0x00, 0x41, 0x00, 0x41, 0x05, 0x36, 0x02, 0x00, 0x0b}
	codeBody := append([]byte{0x01}, leb(uint32(len(funcBody)))...)
	codeBody = append(codeBody, funcBody...)
	out = append(out, section(10, codeBody)...)
	return out
}

func TestWatchpointStopsAfterWrite(t *testing.T) {
	d := New(wasm.FeaturesDefault, nil)
	idx, err := d.LoadModule("m", storeModuleBinary())
	require.NoError(t, err)
	addr, _ := d.LookupFunc("m", "poke")

	mi := d.Store.Module(idx)
	d.SetWatchpoint(mi.MemoryAddrs[0])

	res, trp := d.ExecuteFunc(addr, nil)
	require.Nil(t, trp)
	require.Equal(t, OutcomeBreakpoint, res.Outcome)

	bytes, trp := d.MemoryBytes(idx, 0, 4)
	require.Nil(t, trp)
	require.Equal(t, []byte{5, 0, 0, 0}, bytes)
}

func TestResetStoreDiscardsLoadedModules(t *testing.T) {
	d := New(wasm.FeaturesDefault, nil)
	_, err := d.LoadModule("m", addModuleBinary())
	require.NoError(t, err)

	d.ResetStore()
	_, ok := d.LookupFunc("m", "add")
	require.False(t, ok)
}
