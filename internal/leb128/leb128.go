// Package leb128 implements the LEB128 variable-length integer encoding used
// throughout the wasm binary format for indices, counts and immediates.
package leb128

import "errors"

var ErrOverflow = errors.New("leb128: overflow")
var ErrUnexpectedEOF = errors.New("leb128: unexpected end of input")

// DecodeUint32 reads an unsigned LEB128 value, returning the value, the
// number of bytes consumed, and an error if the input is truncated or the
// value overflows 32 bits.
func DecodeUint32(b []byte) (uint32, int, error) {
	var result uint32
	var shift uint
	for i := 0; i < len(b); i++ {
		c := b[i]
		if shift >= 32 && (c&0x7f) != 0 {
			return 0, 0, ErrOverflow
		}
		result |= uint32(c&0x7f) << shift
		if c&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrUnexpectedEOF
}

func DecodeUint64(b []byte) (uint64, int, error) {
	var result uint64
	var shift uint
	for i := 0; i < len(b); i++ {
		c := b[i]
		if shift >= 64 && (c&0x7f) != 0 {
			return 0, 0, ErrOverflow
		}
		result |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrUnexpectedEOF
}

// DecodeInt32 reads a signed LEB128 value, sign-extending the final group.
func DecodeInt32(b []byte) (int32, int, error) {
	var result int64
	var shift uint
	for i := 0; i < len(b); i++ {
		c := b[i]
		result |= int64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			if shift < 32 && c&0x40 != 0 {
				result |= -1 << shift
			}
			return int32(result), i + 1, nil
		}
	}
	return 0, 0, ErrUnexpectedEOF
}

func DecodeInt64(b []byte) (int64, int, error) {
	var result int64
	var shift uint
	for i := 0; i < len(b); i++ {
		c := b[i]
		result |= int64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			if shift < 64 && c&0x40 != 0 {
				result |= -1 << shift
			}
			return result, i + 1, nil
		}
	}
	return 0, 0, ErrUnexpectedEOF
}

func EncodeUint32(v uint32) []byte { return EncodeUint64(uint64(v)) }

func EncodeUint64(v uint64) []byte {
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

func EncodeInt32(v int32) []byte { return EncodeInt64(int64(v)) }

func EncodeInt64(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}
