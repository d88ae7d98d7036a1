package executor

import (
	"encoding/binary"

	"github.com/wasminspect-go/wasminspect/internal/address"
	"github.com/wasminspect-go/wasminspect/internal/inst"
	"github.com/wasminspect-go/wasminspect/internal/instance"
	"github.com/wasminspect-go/wasminspect/internal/interceptor"
	"github.com/wasminspect-go/wasminspect/internal/trap"
	"github.com/wasminspect-go/wasminspect/internal/value"
)

func isMemTableOp(op inst.Op) bool {
	switch op {
	case inst.OpTableGet, inst.OpTableSet, inst.OpTableSize, inst.OpTableGrow,
		inst.OpTableFill, inst.OpTableCopy, inst.OpTableInit, inst.OpElemDrop,
		inst.OpI32Load, inst.OpI64Load, inst.OpF32Load, inst.OpF64Load,
		inst.OpI32Load8S, inst.OpI32Load8U, inst.OpI32Load16S, inst.OpI32Load16U,
		inst.OpI64Load8S, inst.OpI64Load8U, inst.OpI64Load16S, inst.OpI64Load16U,
		inst.OpI64Load32S, inst.OpI64Load32U,
		inst.OpI32Store, inst.OpI64Store, inst.OpF32Store, inst.OpF64Store,
		inst.OpI32Store8, inst.OpI32Store16, inst.OpI64Store8, inst.OpI64Store16, inst.OpI64Store32,
		inst.OpMemorySize, inst.OpMemoryGrow, inst.OpMemoryCopy, inst.OpMemoryFill,
		inst.OpMemoryInit, inst.OpDataDrop:
		return true
	}
	return false
}

// memAt returns the Executor's current module's one linear memory. Only the
// MVP single-memory model is supported; every load/store/bulk op addresses
// index 0.
func (e *Executor) memAt() *instance.Memory {
	mi := e.St.Module(e.PC.Module)
	return e.St.Memory(mi.MemoryAddrs[0])
}

func (e *Executor) tableAt(idx uint32) *instance.Table {
	mi := e.St.Module(e.PC.Module)
	return e.St.Table(mi.TableAddrs[idx])
}

func (e *Executor) memAddr() address.MemoryAddr {
	return e.St.Module(e.PC.Module).MemoryAddrs[0]
}

// signalAfterWrite runs the after_store watchpoint hook for a completed
// memory write, overriding sig with SignalBreakpoint when the hook asks for
// a pause.
func (e *Executor) signalAfterWrite(offset uint64, bytes []byte, sig Signal) Signal {
	if e.hook().AfterStore(e.memAddr(), offset, bytes) == interceptor.SignalBreak {
		return SignalBreakpoint
	}
	return sig
}

// effectiveAddress computes memarg.offset + base, the effective byte
// address a load/store reads width bytes from. The addition is carried out
// in 64 bits so a base near 2^32-1 cannot silently wrap; only an actual
// 64-bit overflow (unreachable with today's 32-bit memories, reachable once
// Memory64 bases grow) raises MemoryAddressOverflow instead of the ordinary
// bounds trap ValidateRegion raises next.
func effectiveAddress(base uint32, memArg inst.MemArg) (uint64, *trap.Trap) {
	addr := uint64(base) + memArg.Offset
	if addr < uint64(base) {
		return 0, trap.New(trap.MemoryAddressOverflow)
	}
	return addr, nil
}

func (e *Executor) execMemTableOp(in inst.Instruction) (Signal, *trap.Trap) {
	switch in.Op {
	case inst.OpI32Load:
		return e.load(in, 4, func(b []byte) value.Value { return value.U32Val(binary.LittleEndian.Uint32(b)) })
	case inst.OpI64Load:
		return e.load(in, 8, func(b []byte) value.Value { return value.U64Val(binary.LittleEndian.Uint64(b)) })
	case inst.OpF32Load:
		return e.load(in, 4, func(b []byte) value.Value { return value.F32Bits(binary.LittleEndian.Uint32(b)) })
	case inst.OpF64Load:
		return e.load(in, 8, func(b []byte) value.Value { return value.F64Bits(binary.LittleEndian.Uint64(b)) })
	case inst.OpI32Load8S:
		return e.load(in, 1, func(b []byte) value.Value { return value.I32Val(int32(int8(b[0]))) })
	case inst.OpI32Load8U:
		return e.load(in, 1, func(b []byte) value.Value { return value.U32Val(uint32(b[0])) })
	case inst.OpI32Load16S:
		return e.load(in, 2, func(b []byte) value.Value { return value.I32Val(int32(int16(binary.LittleEndian.Uint16(b)))) })
	case inst.OpI32Load16U:
		return e.load(in, 2, func(b []byte) value.Value { return value.U32Val(uint32(binary.LittleEndian.Uint16(b))) })
	case inst.OpI64Load8S:
		return e.load(in, 1, func(b []byte) value.Value { return value.I64Val(int64(int8(b[0]))) })
	case inst.OpI64Load8U:
		return e.load(in, 1, func(b []byte) value.Value { return value.U64Val(uint64(b[0])) })
	case inst.OpI64Load16S:
		return e.load(in, 2, func(b []byte) value.Value { return value.I64Val(int64(int16(binary.LittleEndian.Uint16(b)))) })
	case inst.OpI64Load16U:
		return e.load(in, 2, func(b []byte) value.Value { return value.U64Val(uint64(binary.LittleEndian.Uint16(b))) })
	case inst.OpI64Load32S:
		return e.load(in, 4, func(b []byte) value.Value { return value.I64Val(int64(int32(binary.LittleEndian.Uint32(b)))) })
	case inst.OpI64Load32U:
		return e.load(in, 4, func(b []byte) value.Value { return value.U64Val(uint64(binary.LittleEndian.Uint32(b))) })

	case inst.OpI32Store:
		return e.store(in, 4, func(b []byte, v value.Value) { binary.LittleEndian.PutUint32(b, v.U32()) })
	case inst.OpI64Store:
		return e.store(in, 8, func(b []byte, v value.Value) { binary.LittleEndian.PutUint64(b, v.U64()) })
	case inst.OpF32Store:
		return e.store(in, 4, func(b []byte, v value.Value) { binary.LittleEndian.PutUint32(b, v.U32()) })
	case inst.OpF64Store:
		return e.store(in, 8, func(b []byte, v value.Value) { binary.LittleEndian.PutUint64(b, v.U64()) })
	case inst.OpI32Store8:
		return e.store(in, 1, func(b []byte, v value.Value) { b[0] = byte(v.U32()) })
	case inst.OpI32Store16:
		return e.store(in, 2, func(b []byte, v value.Value) { binary.LittleEndian.PutUint16(b, uint16(v.U32())) })
	case inst.OpI64Store8:
		return e.store(in, 1, func(b []byte, v value.Value) { b[0] = byte(v.U64()) })
	case inst.OpI64Store16:
		return e.store(in, 2, func(b []byte, v value.Value) { binary.LittleEndian.PutUint16(b, uint16(v.U64())) })
	case inst.OpI64Store32:
		return e.store(in, 4, func(b []byte, v value.Value) { binary.LittleEndian.PutUint32(b, uint32(v.U64())) })

	case inst.OpMemorySize:
		e.Stack.PushValue(value.U32Val(e.memAt().PageCount()))
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpMemoryGrow:
		delta, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		mem := e.memAt()
		old := mem.PageCount()
		if growErr := mem.Grow(delta.U32()); growErr != nil {
			e.Stack.PushValue(value.I32Val(-1))
		} else {
			e.Stack.PushValue(value.U32Val(old))
		}
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpMemoryCopy:
		return e.memoryCopy()
	case inst.OpMemoryFill:
		return e.memoryFill()
	case inst.OpMemoryInit:
		return e.memoryInit(in)
	case inst.OpDataDrop:
		mi := e.St.Module(e.PC.Module)
		e.St.Data(mi.DataAddrs[in.Index]).Drop()
		e.PC.Inst++
		return SignalNext, nil

	case inst.OpTableGet:
		i, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		ref, trp := e.tableAt(in.Index).Get(int(i.U32()))
		if trp != nil {
			return 0, trp
		}
		e.Stack.PushValue(value.RefVal(ref))
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpTableSet:
		v, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		i, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		if trp := e.tableAt(in.Index).Set(int(i.U32()), v.Ref); trp != nil {
			return 0, trp
		}
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpTableSize:
		e.Stack.PushValue(value.U32Val(uint32(e.tableAt(in.Index).Len())))
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpTableGrow:
		n, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		fill, err := e.Stack.PopValue()
		if err != nil {
			return 0, trap.New(trap.StackUnderflow)
		}
		tbl := e.tableAt(in.Index)
		old := tbl.Len()
		if tbl.Grow(int(n.U32()), fill.Ref) {
			e.Stack.PushValue(value.U32Val(uint32(old)))
		} else {
			e.Stack.PushValue(value.I32Val(-1))
		}
		e.PC.Inst++
		return SignalNext, nil
	case inst.OpTableFill:
		return e.tableFill(in)
	case inst.OpTableCopy:
		return e.tableCopy(in)
	case inst.OpTableInit:
		return e.tableInit(in)
	case inst.OpElemDrop:
		mi := e.St.Module(e.PC.Module)
		e.St.Element(mi.ElemAddrs[in.Index]).Drop()
		e.PC.Inst++
		return SignalNext, nil
	}
	return 0, trap.Newf(trap.UnsupportedInstruction, "opcode %v", in.Op)
}

func (e *Executor) load(in inst.Instruction, width uint64, decode func([]byte) value.Value) (Signal, *trap.Trap) {
	baseVal, err := e.Stack.PopValue()
	if err != nil {
		return 0, trap.New(trap.StackUnderflow)
	}
	addr, trp := effectiveAddress(baseVal.U32(), in.MemArg)
	if trp != nil {
		return 0, trp
	}
	bytes, trp := e.memAt().Load(addr, width)
	if trp != nil {
		return 0, trp
	}
	e.Stack.PushValue(decode(bytes))
	e.PC.Inst++
	return SignalNext, nil
}

func (e *Executor) store(in inst.Instruction, width uint64, encode func([]byte, value.Value)) (Signal, *trap.Trap) {
	v, err := e.Stack.PopValue()
	if err != nil {
		return 0, trap.New(trap.StackUnderflow)
	}
	baseVal, err := e.Stack.PopValue()
	if err != nil {
		return 0, trap.New(trap.StackUnderflow)
	}
	addr, trp := effectiveAddress(baseVal.U32(), in.MemArg)
	if trp != nil {
		return 0, trp
	}
	mem := e.memAt()
	if trp := mem.ValidateRegion(addr, width); trp != nil {
		return 0, trp
	}
	buf := make([]byte, width)
	encode(buf, v)
	mem.Store(addr, buf)
	e.PC.Inst++
	return e.signalAfterWrite(addr, buf, SignalNext), nil
}

func (e *Executor) popThreeU32() (a, b, c uint32, trp *trap.Trap) {
	vc, err := e.Stack.PopValue()
	if err != nil {
		return 0, 0, 0, trap.New(trap.StackUnderflow)
	}
	vb, err := e.Stack.PopValue()
	if err != nil {
		return 0, 0, 0, trap.New(trap.StackUnderflow)
	}
	va, err := e.Stack.PopValue()
	if err != nil {
		return 0, 0, 0, trap.New(trap.StackUnderflow)
	}
	return va.U32(), vb.U32(), vc.U32(), nil
}

func (e *Executor) memoryCopy() (Signal, *trap.Trap) {
	dest, src, n, trp := e.popThreeU32()
	if trp != nil {
		return 0, trp
	}
	mem := e.memAt()
	if trp := mem.ValidateRegion(uint64(dest), uint64(n)); trp != nil {
		return 0, trp
	}
	if trp := mem.ValidateRegion(uint64(src), uint64(n)); trp != nil {
		return 0, trp
	}
	copy(mem.Bytes[dest:uint64(dest)+uint64(n)], mem.Bytes[src:uint64(src)+uint64(n)])
	e.PC.Inst++
	return e.signalAfterWrite(uint64(dest), mem.Bytes[dest:uint64(dest)+uint64(n)], SignalNext), nil
}

func (e *Executor) memoryFill() (Signal, *trap.Trap) {
	dest, val, n, trp := e.popThreeU32()
	if trp != nil {
		return 0, trp
	}
	mem := e.memAt()
	if trp := mem.ValidateRegion(uint64(dest), uint64(n)); trp != nil {
		return 0, trp
	}
	region := mem.Bytes[dest : uint64(dest)+uint64(n)]
	for i := range region {
		region[i] = byte(val)
	}
	e.PC.Inst++
	return e.signalAfterWrite(uint64(dest), region, SignalNext), nil
}

func (e *Executor) memoryInit(in inst.Instruction) (Signal, *trap.Trap) {
	dest, src, n, trp := e.popThreeU32()
	if trp != nil {
		return 0, trp
	}
	mi := e.St.Module(e.PC.Module)
	data := e.St.Data(mi.DataAddrs[in.Index])
	if trp := data.ValidateRegion(int(src), int(n)); trp != nil {
		return 0, trp
	}
	mem := e.memAt()
	if trp := mem.ValidateRegion(uint64(dest), uint64(n)); trp != nil {
		return 0, trp
	}
	copy(mem.Bytes[dest:uint64(dest)+uint64(n)], data.Raw()[src:uint64(src)+uint64(n)])
	e.PC.Inst++
	return e.signalAfterWrite(uint64(dest), mem.Bytes[dest:uint64(dest)+uint64(n)], SignalNext), nil
}

func (e *Executor) tableFill(in inst.Instruction) (Signal, *trap.Trap) {
	n, err := e.Stack.PopValue()
	if err != nil {
		return 0, trap.New(trap.StackUnderflow)
	}
	val, err := e.Stack.PopValue()
	if err != nil {
		return 0, trap.New(trap.StackUnderflow)
	}
	i, err := e.Stack.PopValue()
	if err != nil {
		return 0, trap.New(trap.StackUnderflow)
	}
	tbl := e.tableAt(in.Index)
	off, count := int(i.U32()), int(n.U32())
	if trp := tbl.ValidateRegion(off, count); trp != nil {
		return 0, trp
	}
	for j := 0; j < count; j++ {
		tbl.Set(off+j, val.Ref)
	}
	e.PC.Inst++
	return SignalNext, nil
}

func (e *Executor) tableCopy(in inst.Instruction) (Signal, *trap.Trap) {
	dest, src, n, trp := e.popThreeU32()
	if trp != nil {
		return 0, trp
	}
	dst := e.tableAt(in.Index)
	srcTbl := e.tableAt(in.Index2)
	if trp := dst.ValidateRegion(int(dest), int(n)); trp != nil {
		return 0, trp
	}
	if trp := srcTbl.ValidateRegion(int(src), int(n)); trp != nil {
		return 0, trp
	}
	if dest <= src {
		for i := uint32(0); i < n; i++ {
			v, _ := srcTbl.Get(int(src + i))
			dst.Set(int(dest+i), v)
		}
	} else {
		for i := n; i > 0; i-- {
			v, _ := srcTbl.Get(int(src + i - 1))
			dst.Set(int(dest+i-1), v)
		}
	}
	e.PC.Inst++
	return SignalNext, nil
}

func (e *Executor) tableInit(in inst.Instruction) (Signal, *trap.Trap) {
	dest, src, n, trp := e.popThreeU32()
	if trp != nil {
		return 0, trp
	}
	mi := e.St.Module(e.PC.Module)
	elem := e.St.Element(mi.ElemAddrs[in.Index])
	tbl := e.tableAt(in.Index2)
	if trp := elem.ValidateRegion(int(src), int(n)); trp != nil {
		return 0, trp
	}
	if trp := tbl.ValidateRegion(int(dest), int(n)); trp != nil {
		return 0, trp
	}
	for i := uint32(0); i < n; i++ {
		v, _ := elem.Get(int(src + i))
		tbl.Set(int(dest+i), v)
	}
	e.PC.Inst++
	return SignalNext, nil
}
