package binary

import (
	"github.com/wasminspect-go/wasminspect/internal/inst"
	"github.com/wasminspect-go/wasminspect/internal/value"
	"github.com/wasminspect-go/wasminspect/internal/wasm"
)

// decodeFunctionBody parses one code-section entry: its local declarations
// followed by its instruction stream, terminated by the function-level end.
func decodeFunctionBody(body []byte, features wasm.Features) ([]value.Type, []inst.Instruction, error) {
	r := newReader(body)
	localGroupCount, err := r.u32()
	if err != nil {
		return nil, nil, err
	}
	var locals []value.Type
	for i := uint32(0); i < localGroupCount; i++ {
		n, err := r.u32()
		if err != nil {
			return nil, nil, err
		}
		b, err := r.byte()
		if err != nil {
			return nil, nil, err
		}
		ty, err := decodeValueType(b)
		if err != nil {
			return nil, nil, err
		}
		for j := uint32(0); j < n; j++ {
			locals = append(locals, ty)
		}
	}
	insts, err := decodeInstructions(r, features)
	if err != nil {
		return nil, nil, err
	}
	return locals, insts, nil
}

// decodeBlockType reads a block's arity encoding: 0x40 (empty), a bare
// value-type byte (single result), or a signed LEB128 type index.
func decodeBlockType(r *reader) (inst.BlockType, error) {
	if r.eof() {
		return inst.BlockType{}, errAt(r.pos, "truncated block type")
	}
	peek := r.buf[r.pos]
	if peek == 0x40 {
		r.pos++
		return inst.BlockType{Kind: inst.BlockKindEmpty}, nil
	}
	switch value.Type(peek) {
	case value.I32, value.I64, value.F32, value.F64, value.FuncRef, value.ExternRef:
		r.pos++
		return inst.BlockType{Kind: inst.BlockKindSingle, ValueType: value.Type(peek)}, nil
	}
	idx, err := r.i64()
	if err != nil {
		return inst.BlockType{}, err
	}
	if idx < 0 {
		return inst.BlockType{}, errAt(r.pos, "invalid block type encoding %d", idx)
	}
	return inst.BlockType{Kind: inst.BlockKindFuncType, TypeIndex: uint32(idx)}, nil
}

func decodeMemArg(r *reader) (inst.MemArg, error) {
	align, err := r.u32()
	if err != nil {
		return inst.MemArg{}, err
	}
	offset, err := r.u32()
	if err != nil {
		return inst.MemArg{}, err
	}
	return inst.MemArg{Align: align, Offset: uint64(offset)}, nil
}

// decodeInstructions decodes a flat instruction stream up to and including
// its matching function-level 0x0b (end). Nested block/loop/if bodies are
// left inline with their own Block/Loop/If/Else/End markers; the Executor's
// forward label scan resolves branch targets at run time rather than a
// separate pass here.
func decodeInstructions(r *reader, features wasm.Features) ([]inst.Instruction, error) {
	var out []inst.Instruction
	depth := 0
	for {
		offset := uint32(r.pos)
		opByte, err := r.byte()
		if err != nil {
			return nil, err
		}
		var ins inst.Instruction
		ins.Offset = offset

		switch opByte {
		case 0x00:
			ins.Op = inst.OpUnreachable
		case 0x01:
			ins.Op = inst.OpNop
		case 0x02:
			ins.Op = inst.OpBlock
			depth++
			if ins.BlockType, err = decodeBlockType(r); err != nil {
				return nil, err
			}
		case 0x03:
			ins.Op = inst.OpLoop
			depth++
			if ins.BlockType, err = decodeBlockType(r); err != nil {
				return nil, err
			}
		case 0x04:
			ins.Op = inst.OpIf
			depth++
			if ins.BlockType, err = decodeBlockType(r); err != nil {
				return nil, err
			}
		case 0x05:
			ins.Op = inst.OpElse
		case 0x0b:
			ins.Op = inst.OpEnd
			out = append(out, ins)
			if depth == 0 {
				return out, nil
			}
			depth--
			continue
		case 0x0c:
			ins.Op = inst.OpBr
			if ins.Index, err = r.u32(); err != nil {
				return nil, err
			}
		case 0x0d:
			ins.Op = inst.OpBrIf
			if ins.Index, err = r.u32(); err != nil {
				return nil, err
			}
		case 0x0e:
			ins.Op = inst.OpBrTable
			count, err := r.u32()
			if err != nil {
				return nil, err
			}
			targets := make([]uint32, count)
			for i := range targets {
				if targets[i], err = r.u32(); err != nil {
					return nil, err
				}
			}
			def, err := r.u32()
			if err != nil {
				return nil, err
			}
			ins.BrTable = &inst.BrTable{Targets: targets, Default: def}
		case 0x0f:
			ins.Op = inst.OpReturn
		case 0x10:
			ins.Op = inst.OpCall
			if ins.Index, err = r.u32(); err != nil {
				return nil, err
			}
		case 0x11:
			ins.Op = inst.OpCallIndirect
			if ins.Index, err = r.u32(); err != nil { // type index
				return nil, err
			}
			if ins.Index2, err = r.u32(); err != nil { // table index
				return nil, err
			}
		case 0x1a:
			ins.Op = inst.OpDrop
		case 0x1b:
			ins.Op = inst.OpSelect
		case 0x1c: // select t*, reference-types form; result types are validated, not executed on
			ins.Op = inst.OpSelect
			n, err := r.u32()
			if err != nil {
				return nil, err
			}
			for i := uint32(0); i < n; i++ {
				if _, err := r.byte(); err != nil {
					return nil, err
				}
			}
		case 0x20:
			ins.Op = inst.OpLocalGet
			if ins.Index, err = r.u32(); err != nil {
				return nil, err
			}
		case 0x21:
			ins.Op = inst.OpLocalSet
			if ins.Index, err = r.u32(); err != nil {
				return nil, err
			}
		case 0x22:
			ins.Op = inst.OpLocalTee
			if ins.Index, err = r.u32(); err != nil {
				return nil, err
			}
		case 0x23:
			ins.Op = inst.OpGlobalGet
			if ins.Index, err = r.u32(); err != nil {
				return nil, err
			}
		case 0x24:
			ins.Op = inst.OpGlobalSet
			if ins.Index, err = r.u32(); err != nil {
				return nil, err
			}
		case 0x25:
			ins.Op = inst.OpTableGet
			if ins.Index, err = r.u32(); err != nil {
				return nil, err
			}
		case 0x26:
			ins.Op = inst.OpTableSet
			if ins.Index, err = r.u32(); err != nil {
				return nil, err
			}
		case 0xd0:
			ins.Op = inst.OpRefNull
			b, err := r.byte()
			if err != nil {
				return nil, err
			}
			if ins.RefType, err = decodeValueType(b); err != nil {
				return nil, err
			}
		case 0xd1:
			ins.Op = inst.OpRefIsNull
		case 0xd2:
			ins.Op = inst.OpRefFunc
			if ins.Index, err = r.u32(); err != nil {
				return nil, err
			}

		// loads
		case 0x28, 0x29, 0x2a, 0x2b, 0x2c, 0x2d, 0x2e, 0x2f, 0x30, 0x31, 0x32, 0x33, 0x34, 0x35:
			ins.Op = loadOpFor(opByte)
			if ins.MemArg, err = decodeMemArg(r); err != nil {
				return nil, err
			}
		// stores
		case 0x36, 0x37, 0x38, 0x39, 0x3a, 0x3b, 0x3c, 0x3d, 0x3e:
			ins.Op = storeOpFor(opByte)
			if ins.MemArg, err = decodeMemArg(r); err != nil {
				return nil, err
			}
		case 0x3f:
			ins.Op = inst.OpMemorySize
			if _, err := r.byte(); err != nil { // reserved memidx, must be 0
				return nil, err
			}
		case 0x40:
			ins.Op = inst.OpMemoryGrow
			if _, err := r.byte(); err != nil {
				return nil, err
			}

		case 0x41:
			ins.Op = inst.OpI32Const
			if ins.I32, err = r.i32(); err != nil {
				return nil, err
			}
		case 0x42:
			ins.Op = inst.OpI64Const
			if ins.I64, err = r.i64(); err != nil {
				return nil, err
			}
		case 0x43:
			ins.Op = inst.OpF32Const
			if ins.F32, err = r.f32(); err != nil {
				return nil, err
			}
		case 0x44:
			ins.Op = inst.OpF64Const
			if ins.F64, err = r.f64(); err != nil {
				return nil, err
			}

		case 0xfc:
			if ins.Op, err = decodeExtendedOp(r, &ins, features); err != nil {
				return nil, err
			}

		default:
			if op, ok := simpleOps[opByte]; ok {
				ins.Op = op
			} else if op, ok := signExtOps[opByte]; ok {
				if !features.Has(wasm.FeatureSignExtensionOps) {
					return nil, errAt(r.pos, "sign-extension opcode %#x requires sign-extension-ops feature", opByte)
				}
				ins.Op = op
			} else {
				return nil, errAt(r.pos, "unsupported opcode %#x", opByte)
			}
		}
		out = append(out, ins)
	}
}

func loadOpFor(b byte) inst.Op {
	switch b {
	case 0x28:
		return inst.OpI32Load
	case 0x29:
		return inst.OpI64Load
	case 0x2a:
		return inst.OpF32Load
	case 0x2b:
		return inst.OpF64Load
	case 0x2c:
		return inst.OpI32Load8S
	case 0x2d:
		return inst.OpI32Load8U
	case 0x2e:
		return inst.OpI32Load16S
	case 0x2f:
		return inst.OpI32Load16U
	case 0x30:
		return inst.OpI64Load8S
	case 0x31:
		return inst.OpI64Load8U
	case 0x32:
		return inst.OpI64Load16S
	case 0x33:
		return inst.OpI64Load16U
	case 0x34:
		return inst.OpI64Load32S
	default: // 0x35
		return inst.OpI64Load32U
	}
}

func storeOpFor(b byte) inst.Op {
	switch b {
	case 0x36:
		return inst.OpI32Store
	case 0x37:
		return inst.OpI64Store
	case 0x38:
		return inst.OpF32Store
	case 0x39:
		return inst.OpF64Store
	case 0x3a:
		return inst.OpI32Store8
	case 0x3b:
		return inst.OpI32Store16
	case 0x3c:
		return inst.OpI64Store8
	case 0x3d:
		return inst.OpI64Store16
	default: // 0x3e
		return inst.OpI64Store32
	}
}

// decodeExtendedOp handles the 0xFC prefix: saturating truncation (always
// available) and the bulk-memory/table operations gated on that feature.
func decodeExtendedOp(r *reader, ins *inst.Instruction, features wasm.Features) (inst.Op, error) {
	sub, err := r.u32()
	if err != nil {
		return 0, err
	}
	switch sub {
	case 0:
		return inst.OpI32TruncSatF32S, nil
	case 1:
		return inst.OpI32TruncSatF32U, nil
	case 2:
		return inst.OpI32TruncSatF64S, nil
	case 3:
		return inst.OpI32TruncSatF64U, nil
	case 4:
		return inst.OpI64TruncSatF32S, nil
	case 5:
		return inst.OpI64TruncSatF32U, nil
	case 6:
		return inst.OpI64TruncSatF64S, nil
	case 7:
		return inst.OpI64TruncSatF64U, nil
	}
	if !features.Has(wasm.FeatureBulkMemory) {
		return 0, errAt(r.pos, "bulk-memory opcode 0xfc %d requires bulk-memory feature", sub)
	}
	switch sub {
	case 8: // memory.init
		idx, err := r.u32()
		if err != nil {
			return 0, err
		}
		ins.Index = idx
		if _, err := r.byte(); err != nil { // memidx, must be 0
			return 0, err
		}
		return inst.OpMemoryInit, nil
	case 9: // data.drop
		if ins.Index, err = r.u32(); err != nil {
			return 0, err
		}
		return inst.OpDataDrop, nil
	case 10: // memory.copy
		if _, err := r.byte(); err != nil {
			return 0, err
		}
		if _, err := r.byte(); err != nil {
			return 0, err
		}
		return inst.OpMemoryCopy, nil
	case 11: // memory.fill
		if _, err := r.byte(); err != nil {
			return 0, err
		}
		return inst.OpMemoryFill, nil
	case 12: // table.init
		elemIdx, err := r.u32()
		if err != nil {
			return 0, err
		}
		tableIdx, err := r.u32()
		if err != nil {
			return 0, err
		}
		ins.Index, ins.Index2 = elemIdx, tableIdx
		return inst.OpTableInit, nil
	case 13: // elem.drop
		if ins.Index, err = r.u32(); err != nil {
			return 0, err
		}
		return inst.OpElemDrop, nil
	case 14: // table.copy
		dst, err := r.u32()
		if err != nil {
			return 0, err
		}
		src, err := r.u32()
		if err != nil {
			return 0, err
		}
		ins.Index, ins.Index2 = dst, src
		return inst.OpTableCopy, nil
	case 15: // table.grow
		if ins.Index, err = r.u32(); err != nil {
			return 0, err
		}
		return inst.OpTableGrow, nil
	case 16: // table.size
		if ins.Index, err = r.u32(); err != nil {
			return 0, err
		}
		return inst.OpTableSize, nil
	case 17: // table.fill
		if ins.Index, err = r.u32(); err != nil {
			return 0, err
		}
		return inst.OpTableFill, nil
	default:
		return 0, errAt(r.pos, "unsupported 0xfc opcode %d", sub)
	}
}

// simpleOps covers numeric/comparison/conversion opcodes with no immediate
// operand.
var simpleOps = map[byte]inst.Op{
	0x45: inst.OpI32Eqz, 0x46: inst.OpI32Eq, 0x47: inst.OpI32Ne,
	0x48: inst.OpI32LtS, 0x49: inst.OpI32LtU, 0x4a: inst.OpI32GtS, 0x4b: inst.OpI32GtU,
	0x4c: inst.OpI32LeS, 0x4d: inst.OpI32LeU, 0x4e: inst.OpI32GeS, 0x4f: inst.OpI32GeU,
	0x50: inst.OpI64Eqz, 0x51: inst.OpI64Eq, 0x52: inst.OpI64Ne,
	0x53: inst.OpI64LtS, 0x54: inst.OpI64LtU, 0x55: inst.OpI64GtS, 0x56: inst.OpI64GtU,
	0x57: inst.OpI64LeS, 0x58: inst.OpI64LeU, 0x59: inst.OpI64GeS, 0x5a: inst.OpI64GeU,
	0x5b: inst.OpF32Eq, 0x5c: inst.OpF32Ne, 0x5d: inst.OpF32Lt, 0x5e: inst.OpF32Gt,
	0x5f: inst.OpF32Le, 0x60: inst.OpF32Ge,
	0x61: inst.OpF64Eq, 0x62: inst.OpF64Ne, 0x63: inst.OpF64Lt, 0x64: inst.OpF64Gt,
	0x65: inst.OpF64Le, 0x66: inst.OpF64Ge,

	0x67: inst.OpI32Clz, 0x68: inst.OpI32Ctz, 0x69: inst.OpI32Popcnt,
	0x6a: inst.OpI32Add, 0x6b: inst.OpI32Sub, 0x6c: inst.OpI32Mul,
	0x6d: inst.OpI32DivS, 0x6e: inst.OpI32DivU, 0x6f: inst.OpI32RemS, 0x70: inst.OpI32RemU,
	0x71: inst.OpI32And, 0x72: inst.OpI32Or, 0x73: inst.OpI32Xor,
	0x74: inst.OpI32Shl, 0x75: inst.OpI32ShrS, 0x76: inst.OpI32ShrU,
	0x77: inst.OpI32Rotl, 0x78: inst.OpI32Rotr,

	0x79: inst.OpI64Clz, 0x7a: inst.OpI64Ctz, 0x7b: inst.OpI64Popcnt,
	0x7c: inst.OpI64Add, 0x7d: inst.OpI64Sub, 0x7e: inst.OpI64Mul,
	0x7f: inst.OpI64DivS, 0x80: inst.OpI64DivU, 0x81: inst.OpI64RemS, 0x82: inst.OpI64RemU,
	0x83: inst.OpI64And, 0x84: inst.OpI64Or, 0x85: inst.OpI64Xor,
	0x86: inst.OpI64Shl, 0x87: inst.OpI64ShrS, 0x88: inst.OpI64ShrU,
	0x89: inst.OpI64Rotl, 0x8a: inst.OpI64Rotr,

	0x8b: inst.OpF32Abs, 0x8c: inst.OpF32Neg, 0x8d: inst.OpF32Ceil, 0x8e: inst.OpF32Floor,
	0x8f: inst.OpF32Trunc, 0x90: inst.OpF32Nearest, 0x91: inst.OpF32Sqrt,
	0x92: inst.OpF32Add, 0x93: inst.OpF32Sub, 0x94: inst.OpF32Mul, 0x95: inst.OpF32Div,
	0x96: inst.OpF32Min, 0x97: inst.OpF32Max, 0x98: inst.OpF32Copysign,

	0x99: inst.OpF64Abs, 0x9a: inst.OpF64Neg, 0x9b: inst.OpF64Ceil, 0x9c: inst.OpF64Floor,
	0x9d: inst.OpF64Trunc, 0x9e: inst.OpF64Nearest, 0x9f: inst.OpF64Sqrt,
	0xa0: inst.OpF64Add, 0xa1: inst.OpF64Sub, 0xa2: inst.OpF64Mul, 0xa3: inst.OpF64Div,
	0xa4: inst.OpF64Min, 0xa5: inst.OpF64Max, 0xa6: inst.OpF64Copysign,

	0xa7: inst.OpI32WrapI64,
	0xa8: inst.OpI32TruncF32S, 0xa9: inst.OpI32TruncF32U,
	0xaa: inst.OpI32TruncF64S, 0xab: inst.OpI32TruncF64U,
	0xac: inst.OpI64ExtendI32S, 0xad: inst.OpI64ExtendI32U,
	0xae: inst.OpI64TruncF32S, 0xaf: inst.OpI64TruncF32U,
	0xb0: inst.OpI64TruncF64S, 0xb1: inst.OpI64TruncF64U,
	0xb2: inst.OpF32ConvertI32S, 0xb3: inst.OpF32ConvertI32U,
	0xb4: inst.OpF32ConvertI64S, 0xb5: inst.OpF32ConvertI64U,
	0xb6: inst.OpF32DemoteF64,
	0xb7: inst.OpF64ConvertI32S, 0xb8: inst.OpF64ConvertI32U,
	0xb9: inst.OpF64ConvertI64S, 0xba: inst.OpF64ConvertI64U,
	0xbb: inst.OpF64PromoteF32,
	0xbc: inst.OpI32ReinterpretF32, 0xbd: inst.OpI64ReinterpretF64,
	0xbe: inst.OpF32ReinterpretI32, 0xbf: inst.OpF64ReinterpretI64,
}

// signExtOps are gated on the sign-extension-ops feature.
var signExtOps = map[byte]inst.Op{
	0xc0: inst.OpI32Extend8S,
	0xc1: inst.OpI32Extend16S,
	0xc2: inst.OpI64Extend8S,
	0xc3: inst.OpI64Extend16S,
	0xc4: inst.OpI64Extend32S,
}
