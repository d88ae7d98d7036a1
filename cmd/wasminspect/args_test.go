package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasminspect-go/wasminspect/internal/value"
)

func TestParseArgEachType(t *testing.T) {
	v, err := parseArg("i32:42")
	require.NoError(t, err)
	require.Equal(t, value.I32Val(42), v)

	v, err = parseArg("i64:-7")
	require.NoError(t, err)
	require.Equal(t, value.I64Val(-7), v)

	v, err = parseArg("f32:1.5")
	require.NoError(t, err)
	require.Equal(t, value.F32Val(1.5), v)

	v, err = parseArg("f64:-2.25")
	require.NoError(t, err)
	require.Equal(t, value.F64Val(-2.25), v)
}

func TestParseArgMissingColonRejected(t *testing.T) {
	_, err := parseArg("i32")
	require.Error(t, err)
}

func TestParseArgUnsupportedTypeRejected(t *testing.T) {
	_, err := parseArg("v128:0")
	require.Error(t, err)
}

func TestParseArgBadLiteralRejected(t *testing.T) {
	_, err := parseArg("i32:not-a-number")
	require.Error(t, err)
}

func TestParseArgsPreservesOrder(t *testing.T) {
	vs, err := parseArgs([]string{"i32:1", "i32:2", "i32:3"})
	require.NoError(t, err)
	require.Equal(t, []value.Value{value.I32Val(1), value.I32Val(2), value.I32Val(3)}, vs)
}

func TestParseArgsPropagatesFirstError(t *testing.T) {
	_, err := parseArgs([]string{"i32:1", "bogus"})
	require.Error(t, err)
}
