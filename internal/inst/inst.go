package inst

import "github.com/wasminspect-go/wasminspect/internal/value"

// Instruction is one decoded instruction. Not every field is meaningful for
// every Op; which ones apply is determined by Op alone, mirroring the
// wasm binary format's own per-opcode operand shapes.
type Instruction struct {
	Op     Op
	Offset uint32 // byte offset into the function body this was decoded from

	I32       int32
	I64       int64
	F32       uint32
	F64       uint64
	Index     uint32 // local/global/func/table/mem/elem/data index, depending on Op
	Index2    uint32 // second index, e.g. table.copy's source table
	BlockType BlockType
	MemArg    MemArg
	BrTable   *BrTable
	RefType   value.Type // ref.null's declared type
}
