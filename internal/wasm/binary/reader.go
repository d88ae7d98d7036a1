// Package binary decodes the standard WebAssembly binary format into a
// wasm.Module. It supports the MVP section set plus the BulkMemory,
// ReferenceTypes and SignExtensionOps proposals named in the specification's
// external interfaces; unsupported opcodes decline the module with a
// DecodeError rather than panicking mid-run.
package binary

import (
	"encoding/binary"
	"fmt"

	"github.com/wasminspect-go/wasminspect/internal/leb128"
)

// DecodeError reports a malformed binary; it terminates load_module before
// any instance is allocated.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error at offset %#x: %s", e.Offset, e.Reason)
}

func errAt(off int, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Offset: off, Reason: fmt.Sprintf(format, args...)}
}

// reader is a forward-only cursor over a module's bytes.
type reader struct {
	buf []byte
	pos int
}

func newReader(b []byte) *reader { return &reader{buf: b} }

func (r *reader) eof() bool { return r.pos >= len(r.buf) }

func (r *reader) byte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, errAt(r.pos, "unexpected end of input")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, errAt(r.pos, "unexpected end of input reading %d bytes", n)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	v, n, err := leb128.DecodeUint32(r.buf[r.pos:])
	if err != nil {
		return 0, errAt(r.pos, "leb128 u32: %s", err)
	}
	r.pos += n
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	v, n, err := leb128.DecodeUint64(r.buf[r.pos:])
	if err != nil {
		return 0, errAt(r.pos, "leb128 u64: %s", err)
	}
	r.pos += n
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, n, err := leb128.DecodeInt32(r.buf[r.pos:])
	if err != nil {
		return 0, errAt(r.pos, "leb128 i32: %s", err)
	}
	r.pos += n
	return v, nil
}

func (r *reader) i64() (int64, error) {
	v, n, err := leb128.DecodeInt64(r.buf[r.pos:])
	if err != nil {
		return 0, errAt(r.pos, "leb128 i64: %s", err)
	}
	r.pos += n
	return v, nil
}

func (r *reader) f32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) f64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) name() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
