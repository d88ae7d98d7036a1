package leb128

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint32RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 300, 1 << 31, ^uint32(0)} {
		enc := EncodeUint32(v)
		got, n, err := DecodeUint32(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, v, got)
	}
}

func TestInt32RoundTrip(t *testing.T) {
	for _, v := range []int32{0, -1, 63, -64, 1000000, -1000000} {
		enc := EncodeInt32(v)
		got, n, err := DecodeInt32(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, v, got)
	}
}

func TestUint64RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 1 << 63, ^uint64(0)} {
		enc := EncodeUint64(v)
		got, n, err := DecodeUint64(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, v, got)
	}
}

func TestInt64RoundTrip(t *testing.T) {
	for _, v := range []int64{0, -1, 1 << 62, -(1 << 62)} {
		enc := EncodeInt64(v)
		got, n, err := DecodeInt64(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, v, got)
	}
}

func TestDecodeUnexpectedEOF(t *testing.T) {
	_, _, err := DecodeUint32([]byte{0x80})
	require.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestDecodeUint32Overflow(t *testing.T) {
	// Six bytes: five continuations push shift to 35, then a nonzero final
	// group falls past bit 32.
	_, _, err := DecodeUint32([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	require.ErrorIs(t, err, ErrOverflow)
}

func TestEncodeUint32StopsAtFirstNonContinuationByte(t *testing.T) {
	enc := EncodeUint32(300)
	require.Equal(t, []byte{0xac, 0x02}, enc)
}
