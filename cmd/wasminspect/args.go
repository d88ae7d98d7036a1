package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wasminspect-go/wasminspect/internal/value"
)

// parseArg reads one "type:literal" operand, e.g. "i32:42" or "f64:-1.5",
// the same shape wasm text-format invocations use for call arguments.
func parseArg(s string) (value.Value, error) {
	kind, lit, ok := strings.Cut(s, ":")
	if !ok {
		return value.Value{}, fmt.Errorf("argument %q must be of the form type:literal", s)
	}
	switch kind {
	case "i32":
		n, err := strconv.ParseInt(lit, 10, 32)
		if err != nil {
			return value.Value{}, err
		}
		return value.I32Val(int32(n)), nil
	case "i64":
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.I64Val(n), nil
	case "f32":
		f, err := strconv.ParseFloat(lit, 32)
		if err != nil {
			return value.Value{}, err
		}
		return value.F32Val(float32(f)), nil
	case "f64":
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.F64Val(f), nil
	default:
		return value.Value{}, fmt.Errorf("unsupported argument type %q", kind)
	}
}

func parseArgs(raw []string) ([]value.Value, error) {
	out := make([]value.Value, len(raw))
	for i, s := range raw {
		v, err := parseArg(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
