package binary

import (
	"bytes"

	"github.com/wasminspect-go/wasminspect/internal/inst"
	"github.com/wasminspect-go/wasminspect/internal/value"
	"github.com/wasminspect-go/wasminspect/internal/wasm"
)

var magic = []byte{0x00, 0x61, 0x73, 0x6d}

const version1 = 0x01

type sectionID byte

const (
	secCustom sectionID = iota
	secType
	secImport
	secFunction
	secTable
	secMemory
	secGlobal
	secExport
	secStart
	secElement
	secCode
	secData
	secDataCount
)

// Decode parses a wasm binary module, honoring the given feature set.
// Opcodes and section contents of the features the decoder gates (see
// wasm.Features) are rejected with a DecodeError when that feature is
// disabled.
func Decode(data []byte, features wasm.Features) (*wasm.Module, error) {
	r := newReader(data)
	magicBytes, err := r.bytes(4)
	if err != nil || !bytes.Equal(magicBytes, magic) {
		return nil, errAt(0, "not a wasm binary (bad magic)")
	}
	verBytes, err := r.bytes(4)
	if err != nil {
		return nil, err
	}
	if verBytes[0] != version1 || verBytes[1] != 0 || verBytes[2] != 0 || verBytes[3] != 0 {
		return nil, errAt(4, "unsupported binary version")
	}

	m := &wasm.Module{}
	var codeBodies [][]byte
	var funcTypeIdx []uint32
	var dataCount *uint32

	for !r.eof() {
		idByte, err := r.byte()
		if err != nil {
			return nil, err
		}
		id := sectionID(idByte)
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		body, err := r.bytes(int(size))
		if err != nil {
			return nil, err
		}
		sr := newReader(body)

		switch id {
		case secCustom:
			if err := decodeCustomSection(sr, m); err != nil {
				return nil, err
			}
		case secType:
			if m.Types, err = decodeTypeSection(sr); err != nil {
				return nil, err
			}
		case secImport:
			if m.Imports, err = decodeImportSection(sr, features); err != nil {
				return nil, err
			}
		case secFunction:
			if funcTypeIdx, err = decodeFunctionSection(sr); err != nil {
				return nil, err
			}
		case secTable:
			if m.Tables, err = decodeTableSection(sr, features); err != nil {
				return nil, err
			}
		case secMemory:
			if m.Memories, err = decodeMemorySection(sr, features); err != nil {
				return nil, err
			}
		case secGlobal:
			if m.Globals, m.GlobalInit, err = decodeGlobalSection(sr); err != nil {
				return nil, err
			}
		case secExport:
			if m.Exports, err = decodeExportSection(sr); err != nil {
				return nil, err
			}
		case secStart:
			idx, err := sr.u32()
			if err != nil {
				return nil, err
			}
			m.StartFunc = &idx
		case secElement:
			if m.Elements, err = decodeElementSection(sr, features); err != nil {
				return nil, err
			}
		case secCode:
			if codeBodies, err = decodeCodeSection(sr); err != nil {
				return nil, err
			}
		case secData:
			if m.Data, err = decodeDataSection(sr, features); err != nil {
				return nil, err
			}
		case secDataCount:
			n, err := sr.u32()
			if err != nil {
				return nil, err
			}
			dataCount = &n
		default:
			return nil, errAt(r.pos, "unknown section id %d", id)
		}
	}

	if dataCount != nil && int(*dataCount) != len(m.Data) {
		return nil, errAt(0, "data count section mismatch: declared %d, got %d", *dataCount, len(m.Data))
	}
	if len(codeBodies) != len(funcTypeIdx) {
		return nil, errAt(0, "code section count (%d) does not match function section count (%d)", len(codeBodies), len(funcTypeIdx))
	}
	m.Functions = make([]wasm.Function, len(codeBodies))
	for i, body := range codeBodies {
		locals, insts, err := decodeFunctionBody(body, features)
		if err != nil {
			return nil, err
		}
		m.Functions[i] = wasm.Function{TypeIndex: funcTypeIdx[i], Locals: locals, Body: insts}
	}
	return m, nil
}

func decodeCustomSection(r *reader, m *wasm.Module) error {
	name, err := r.name()
	if err != nil {
		return err
	}
	if name != "name" {
		return nil // other custom sections (producers, target_features, ...) carry no runtime semantics
	}
	ns := &wasm.NameSection{FuncNames: map[uint32]string{}}
	for !r.eof() {
		subID, err := r.byte()
		if err != nil {
			break
		}
		subSize, err := r.u32()
		if err != nil {
			break
		}
		subBytes, err := r.bytes(int(subSize))
		if err != nil {
			break
		}
		subR := newReader(subBytes)
		switch subID {
		case 0: // module name
			if n, err := subR.name(); err == nil {
				ns.ModuleName = n
			}
		case 1: // function names
			count, err := subR.u32()
			if err != nil {
				break
			}
			for i := uint32(0); i < count; i++ {
				idx, err := subR.u32()
				if err != nil {
					break
				}
				n, err := subR.name()
				if err != nil {
					break
				}
				ns.FuncNames[idx] = n
			}
		}
	}
	m.NameSection = ns
	return nil
}

func decodeValueType(b byte) (value.Type, error) {
	switch value.Type(b) {
	case value.I32, value.I64, value.F32, value.F64, value.FuncRef, value.ExternRef:
		return value.Type(b), nil
	default:
		return 0, errAt(0, "invalid value type byte %#x", b)
	}
}

func decodeTypeSection(r *reader) ([]*wasm.FuncType, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]*wasm.FuncType, count)
	for i := range out {
		form, err := r.byte()
		if err != nil {
			return nil, err
		}
		if form != 0x60 {
			return nil, errAt(r.pos, "expected functype form 0x60, got %#x", form)
		}
		params, err := decodeValueTypeVec(r)
		if err != nil {
			return nil, err
		}
		results, err := decodeValueTypeVec(r)
		if err != nil {
			return nil, err
		}
		out[i] = &wasm.FuncType{Params: params, Results: results}
	}
	return out, nil
}

func decodeValueTypeVec(r *reader) ([]value.Type, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]value.Type, count)
	for i := range out {
		b, err := r.byte()
		if err != nil {
			return nil, err
		}
		if out[i], err = decodeValueType(b); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeLimits(r *reader) (wasm.Limits, error) {
	flags, err := r.byte()
	if err != nil {
		return wasm.Limits{}, err
	}
	min, err := r.u32()
	if err != nil {
		return wasm.Limits{}, err
	}
	l := wasm.Limits{Min: min}
	if flags&0x01 != 0 {
		max, err := r.u32()
		if err != nil {
			return wasm.Limits{}, err
		}
		l.Max = &max
	}
	return l, nil
}

func decodeTableType(r *reader, features wasm.Features) (wasm.TableType, error) {
	b, err := r.byte()
	if err != nil {
		return wasm.TableType{}, err
	}
	elemTy, err := decodeValueType(b)
	if err != nil {
		return wasm.TableType{}, err
	}
	if elemTy == value.ExternRef && !features.Has(wasm.FeatureReferenceTypes) {
		return wasm.TableType{}, errAt(r.pos, "externref requires reference-types feature")
	}
	limits, err := decodeLimits(r)
	if err != nil {
		return wasm.TableType{}, err
	}
	return wasm.TableType{ElemType: elemTy, Limits: limits}, nil
}

func decodeMemType(r *reader, features wasm.Features) (wasm.MemoryType, error) {
	limits, err := decodeLimits(r)
	if err != nil {
		return wasm.MemoryType{}, err
	}
	return wasm.MemoryType{Limits: limits}, nil
}

func decodeGlobalType(r *reader) (wasm.GlobalType, error) {
	b, err := r.byte()
	if err != nil {
		return wasm.GlobalType{}, err
	}
	ty, err := decodeValueType(b)
	if err != nil {
		return wasm.GlobalType{}, err
	}
	mutByte, err := r.byte()
	if err != nil {
		return wasm.GlobalType{}, err
	}
	return wasm.GlobalType{ValType: ty, Mutable: mutByte == 1}, nil
}

func decodeImportSection(r *reader, features wasm.Features) ([]wasm.Import, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Import, count)
	for i := range out {
		mod, err := r.name()
		if err != nil {
			return nil, err
		}
		field, err := r.name()
		if err != nil {
			return nil, err
		}
		kindByte, err := r.byte()
		if err != nil {
			return nil, err
		}
		imp := wasm.Import{Module: mod, Name: field, Kind: wasm.ExternKind(kindByte)}
		switch imp.Kind {
		case wasm.ExternKindFunc:
			if imp.FuncTypeIndex, err = r.u32(); err != nil {
				return nil, err
			}
		case wasm.ExternKindTable:
			if imp.Table, err = decodeTableType(r, features); err != nil {
				return nil, err
			}
		case wasm.ExternKindMemory:
			if imp.Memory, err = decodeMemType(r, features); err != nil {
				return nil, err
			}
		case wasm.ExternKindGlobal:
			if imp.Global, err = decodeGlobalType(r); err != nil {
				return nil, err
			}
		default:
			return nil, errAt(r.pos, "invalid import kind %#x", kindByte)
		}
		out[i] = imp
	}
	return out, nil
}

func decodeFunctionSection(r *reader) ([]uint32, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	for i := range out {
		if out[i], err = r.u32(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeTableSection(r *reader, features wasm.Features) ([]wasm.TableType, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.TableType, count)
	for i := range out {
		if out[i], err = decodeTableType(r, features); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeMemorySection(r *reader, features wasm.Features) ([]wasm.MemoryType, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.MemoryType, count)
	for i := range out {
		if out[i], err = decodeMemType(r, features); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeConstExpr(r *reader) (wasm.ConstExpr, error) {
	opByte, err := r.byte()
	if err != nil {
		return wasm.ConstExpr{}, err
	}
	var ce wasm.ConstExpr
	switch opByte {
	case 0x41:
		ce.Opcode = inst.OpI32Const
		if ce.I32, err = r.i32(); err != nil {
			return ce, err
		}
	case 0x42:
		ce.Opcode = inst.OpI64Const
		if ce.I64, err = r.i64(); err != nil {
			return ce, err
		}
	case 0x43:
		ce.Opcode = inst.OpF32Const
		if ce.F32, err = r.f32(); err != nil {
			return ce, err
		}
	case 0x44:
		ce.Opcode = inst.OpF64Const
		if ce.F64, err = r.f64(); err != nil {
			return ce, err
		}
	case 0x23:
		ce.Opcode = inst.OpGlobalGet
		if ce.Index, err = r.u32(); err != nil {
			return ce, err
		}
	case 0xd0:
		ce.Opcode = inst.OpRefNull
		b, err := r.byte()
		if err != nil {
			return ce, err
		}
		if ce.RefTy, err = decodeValueType(b); err != nil {
			return ce, err
		}
	case 0xd2:
		ce.Opcode = inst.OpRefFunc
		if ce.Index, err = r.u32(); err != nil {
			return ce, err
		}
	default:
		return ce, errAt(r.pos, "unsupported init expression opcode %#x", opByte)
	}
	end, err := r.byte()
	if err != nil {
		return ce, err
	}
	if end != 0x0b {
		return ce, errAt(r.pos, "init expression missing end opcode")
	}
	return ce, nil
}

func decodeGlobalSection(r *reader) ([]wasm.GlobalType, []wasm.ConstExpr, error) {
	count, err := r.u32()
	if err != nil {
		return nil, nil, err
	}
	types := make([]wasm.GlobalType, count)
	inits := make([]wasm.ConstExpr, count)
	for i := range types {
		if types[i], err = decodeGlobalType(r); err != nil {
			return nil, nil, err
		}
		if inits[i], err = decodeConstExpr(r); err != nil {
			return nil, nil, err
		}
	}
	return types, inits, nil
}

func decodeExportSection(r *reader) ([]wasm.Export, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Export, count)
	for i := range out {
		name, err := r.name()
		if err != nil {
			return nil, err
		}
		kindByte, err := r.byte()
		if err != nil {
			return nil, err
		}
		idx, err := r.u32()
		if err != nil {
			return nil, err
		}
		out[i] = wasm.Export{Name: name, Kind: wasm.ExternKind(kindByte), Index: idx}
	}
	return out, nil
}

func decodeElementSection(r *reader, features wasm.Features) ([]wasm.ElementSegment, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.ElementSegment, count)
	for i := range out {
		flags, err := r.u32()
		if err != nil {
			return nil, err
		}
		if flags != 0 && !features.Has(wasm.FeatureBulkMemory) {
			return nil, errAt(r.pos, "non-active element segments require bulk-memory feature")
		}
		seg := wasm.ElementSegment{Type: value.FuncRef}
		switch flags {
		case 0:
			seg.Mode = wasm.SegmentModeActive
			if seg.Offset, err = decodeConstExpr(r); err != nil {
				return nil, err
			}
			if seg.Init, err = decodeElemFuncIndices(r); err != nil {
				return nil, err
			}
		case 1:
			seg.Mode = wasm.SegmentModePassive
			if _, err := r.byte(); err != nil { // elemkind, must be 0x00 (funcref)
				return nil, err
			}
			if seg.Init, err = decodeElemFuncIndices(r); err != nil {
				return nil, err
			}
		case 2:
			seg.Mode = wasm.SegmentModeActive
			if seg.TableIdx, err = r.u32(); err != nil {
				return nil, err
			}
			if seg.Offset, err = decodeConstExpr(r); err != nil {
				return nil, err
			}
			if _, err := r.byte(); err != nil {
				return nil, err
			}
			if seg.Init, err = decodeElemFuncIndices(r); err != nil {
				return nil, err
			}
		case 3:
			seg.Mode = wasm.SegmentModePassive
			if _, err := r.byte(); err != nil {
				return nil, err
			}
			if seg.Init, err = decodeElemFuncIndices(r); err != nil {
				return nil, err
			}
		case 4:
			seg.Mode = wasm.SegmentModeActive
			if seg.Offset, err = decodeConstExpr(r); err != nil {
				return nil, err
			}
			if seg.Init, err = decodeElemExprs(r); err != nil {
				return nil, err
			}
		case 5:
			seg.Mode = wasm.SegmentModePassive
			b, err := r.byte()
			if err != nil {
				return nil, err
			}
			if seg.Type, err = decodeValueType(b); err != nil {
				return nil, err
			}
			if seg.Init, err = decodeElemExprs(r); err != nil {
				return nil, err
			}
		case 6:
			seg.Mode = wasm.SegmentModeActive
			if seg.TableIdx, err = r.u32(); err != nil {
				return nil, err
			}
			if seg.Offset, err = decodeConstExpr(r); err != nil {
				return nil, err
			}
			b, err := r.byte()
			if err != nil {
				return nil, err
			}
			if seg.Type, err = decodeValueType(b); err != nil {
				return nil, err
			}
			if seg.Init, err = decodeElemExprs(r); err != nil {
				return nil, err
			}
		case 7:
			seg.Mode = wasm.SegmentModePassive
			b, err := r.byte()
			if err != nil {
				return nil, err
			}
			if seg.Type, err = decodeValueType(b); err != nil {
				return nil, err
			}
			if seg.Init, err = decodeElemExprs(r); err != nil {
				return nil, err
			}
		default:
			return nil, errAt(r.pos, "invalid element segment flags %d", flags)
		}
		out[i] = seg
	}
	return out, nil
}

func decodeElemFuncIndices(r *reader) ([]wasm.ConstExpr, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.ConstExpr, count)
	for i := range out {
		idx, err := r.u32()
		if err != nil {
			return nil, err
		}
		out[i] = wasm.ConstExpr{Opcode: inst.OpRefFunc, Index: idx}
	}
	return out, nil
}

func decodeElemExprs(r *reader) ([]wasm.ConstExpr, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.ConstExpr, count)
	for i := range out {
		if out[i], err = decodeConstExpr(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeDataSection(r *reader, features wasm.Features) ([]wasm.DataSegment, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.DataSegment, count)
	for i := range out {
		flags, err := r.u32()
		if err != nil {
			return nil, err
		}
		seg := wasm.DataSegment{}
		switch flags {
		case 0:
			seg.Mode = wasm.SegmentModeActive
			if seg.Offset, err = decodeConstExpr(r); err != nil {
				return nil, err
			}
		case 1:
			if !features.Has(wasm.FeatureBulkMemory) {
				return nil, errAt(r.pos, "passive data segments require bulk-memory feature")
			}
			seg.Mode = wasm.SegmentModePassive
		case 2:
			seg.Mode = wasm.SegmentModeActive
			if seg.MemIdx, err = r.u32(); err != nil {
				return nil, err
			}
			if seg.Offset, err = decodeConstExpr(r); err != nil {
				return nil, err
			}
		default:
			return nil, errAt(r.pos, "invalid data segment flags %d", flags)
		}
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		if seg.Init, err = r.bytes(int(n)); err != nil {
			return nil, err
		}
		out[i] = seg
	}
	return out, nil
}

func decodeCodeSection(r *reader) ([][]byte, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, count)
	for i := range out {
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		if out[i], err = r.bytes(int(size)); err != nil {
			return nil, err
		}
	}
	return out, nil
}
