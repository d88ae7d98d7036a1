package value

import (
	"math"
	"math/bits"

	"github.com/wasminspect-go/wasminspect/internal/moremath"
	"github.com/wasminspect-go/wasminspect/internal/trap"
)

// Integer operators. Add/Sub/Mul/shifts/rotates wrap modulo 2^N by
// construction of Go's fixed-width integer arithmetic; div/rem below trap on
// the two cases the wasm spec calls out explicitly.

func I32DivS(a, b int32) (int32, *trap.Trap) {
	if b == 0 {
		return 0, trap.New(trap.IntegerDivideByZero)
	}
	if a == math.MinInt32 && b == -1 {
		return 0, trap.New(trap.IntegerOverflow)
	}
	return a / b, nil
}

func I32DivU(a, b uint32) (uint32, *trap.Trap) {
	if b == 0 {
		return 0, trap.New(trap.IntegerDivideByZero)
	}
	return a / b, nil
}

func I32RemS(a, b int32) (int32, *trap.Trap) {
	if b == 0 {
		return 0, trap.New(trap.IntegerDivideByZero)
	}
	if a == math.MinInt32 && b == -1 {
		return 0, nil
	}
	return a % b, nil
}

func I32RemU(a, b uint32) (uint32, *trap.Trap) {
	if b == 0 {
		return 0, trap.New(trap.IntegerDivideByZero)
	}
	return a % b, nil
}

func I64DivS(a, b int64) (int64, *trap.Trap) {
	if b == 0 {
		return 0, trap.New(trap.IntegerDivideByZero)
	}
	if a == math.MinInt64 && b == -1 {
		return 0, trap.New(trap.IntegerOverflow)
	}
	return a / b, nil
}

func I64DivU(a, b uint64) (uint64, *trap.Trap) {
	if b == 0 {
		return 0, trap.New(trap.IntegerDivideByZero)
	}
	return a / b, nil
}

func I64RemS(a, b int64) (int64, *trap.Trap) {
	if b == 0 {
		return 0, trap.New(trap.IntegerDivideByZero)
	}
	if a == math.MinInt64 && b == -1 {
		return 0, nil
	}
	return a % b, nil
}

func I64RemU(a, b uint64) (uint64, *trap.Trap) {
	if b == 0 {
		return 0, trap.New(trap.IntegerDivideByZero)
	}
	return a % b, nil
}

// Sign extension: treat the low n bits of x as signed and sign-extend to the
// full width. Idempotent when applied twice with the same n.
func Extend32(x int32, n uint) int32 {
	shift := uint(32) - n
	return (x << shift) >> shift
}

func Extend64(x int64, n uint) int64 {
	shift := uint(64) - n
	return (x << shift) >> shift
}

// Float min/max propagate NaN and distinguish signed zero per the wasm spec,
// unlike math.Min/math.Max.
func F32Min(a, b float32) float32 { return float32(moremath.WasmCompatMin(float64(a), float64(b))) }
func F32Max(a, b float32) float32 { return float32(moremath.WasmCompatMax(float64(a), float64(b))) }
func F64Min(a, b float64) float64 { return moremath.WasmCompatMin(a, b) }
func F64Max(a, b float64) float64 { return moremath.WasmCompatMax(a, b) }

// Nearest rounds to the nearest integral value, ties to even, matching
// f32.nearest / f64.nearest.
func F32Nearest(v float32) float32 { return float32(math.RoundToEven(float64(v))) }
func F64Nearest(v float64) float64 { return math.RoundToEven(v) }

func F32Copysign(a, b float32) float32 { return float32(math.Copysign(float64(a), float64(b))) }
func F64Copysign(a, b float64) float64 { return math.Copysign(a, b) }

// Clz/Ctz/Popcnt delegate to math/bits; wasm defines clz(0) == bit width,
// which bits.LeadingZeros already returns.
func I32Clz(v int32) int32    { return int32(bits.LeadingZeros32(uint32(v))) }
func I32Ctz(v int32) int32    { return int32(bits.TrailingZeros32(uint32(v))) }
func I32Popcnt(v int32) int32 { return int32(bits.OnesCount32(uint32(v))) }
func I64Clz(v int64) int64    { return int64(bits.LeadingZeros64(uint64(v))) }
func I64Ctz(v int64) int64    { return int64(bits.TrailingZeros64(uint64(v))) }
func I64Popcnt(v int64) int64 { return int64(bits.OnesCount64(uint64(v))) }

func I32Rotl(v int32, n int32) int32 { return int32(bits.RotateLeft32(uint32(v), int(n))) }
func I32Rotr(v int32, n int32) int32 { return int32(bits.RotateLeft32(uint32(v), -int(n))) }
func I64Rotl(v int64, n int64) int64 { return int64(bits.RotateLeft64(uint64(v), int(n))) }
func I64Rotr(v int64, n int64) int64 { return int64(bits.RotateLeft64(uint64(v), -int(n))) }

// truncRangeF64 bounds a non-saturating truncation of a float to an integer
// of the given width/signedness. NaN traps InvalidConversionToInteger;
// values at or beyond the representable range (finite or infinite) trap
// IntegerOverflow.
func truncRangeF64(v float64, bitSize int, signed bool) *trap.Trap {
	if math.IsNaN(v) {
		return trap.New(trap.InvalidConversionToInteger)
	}
	if math.IsInf(v, 0) {
		return trap.New(trap.IntegerOverflow)
	}
	var lo, hi float64
	switch {
	case bitSize == 32 && signed:
		lo, hi = -2147483649, 2147483648
	case bitSize == 32 && !signed:
		lo, hi = -1, 4294967296
	case bitSize == 64 && signed:
		lo, hi = -9223372036854777856, 9223372036854775808 // widest doubles still < 2^63
	default: // 64, unsigned
		lo, hi = -1, 18446744073709551616
	}
	if v <= lo || v >= hi {
		return trap.New(trap.IntegerOverflow)
	}
	return nil
}

func TruncF32ToI32(v float32) (int32, *trap.Trap) {
	f := float64(v)
	if err := truncRangeF64(f, 32, true); err != nil {
		return 0, err
	}
	return int32(math.Trunc(f)), nil
}

func TruncF32ToU32(v float32) (uint32, *trap.Trap) {
	f := float64(v)
	if err := truncRangeF64(f, 32, false); err != nil {
		return 0, err
	}
	return uint32(math.Trunc(f)), nil
}

func TruncF64ToI32(v float64) (int32, *trap.Trap) {
	if err := truncRangeF64(v, 32, true); err != nil {
		return 0, err
	}
	return int32(math.Trunc(v)), nil
}

func TruncF64ToU32(v float64) (uint32, *trap.Trap) {
	if err := truncRangeF64(v, 32, false); err != nil {
		return 0, err
	}
	return uint32(math.Trunc(v)), nil
}

func TruncF32ToI64(v float32) (int64, *trap.Trap) {
	f := float64(v)
	if err := truncRangeF64(f, 64, true); err != nil {
		return 0, err
	}
	return int64(math.Trunc(f)), nil
}

func TruncF32ToU64(v float32) (uint64, *trap.Trap) {
	f := float64(v)
	if err := truncRangeF64(f, 64, false); err != nil {
		return 0, err
	}
	return uint64(math.Trunc(f)), nil
}

func TruncF64ToI64(v float64) (int64, *trap.Trap) {
	if err := truncRangeF64(v, 64, true); err != nil {
		return 0, err
	}
	return int64(math.Trunc(v)), nil
}

func TruncF64ToU64(v float64) (uint64, *trap.Trap) {
	if err := truncRangeF64(v, 64, false); err != nil {
		return 0, err
	}
	return uint64(math.Trunc(v)), nil
}

// Saturating truncation never traps: NaN maps to 0, out-of-range values clamp
// to the nearest representable extremum.
func TruncSatF64ToI32(v float64) int32 {
	if math.IsNaN(v) {
		return 0
	}
	if v <= -2147483649 {
		return math.MinInt32
	}
	if v >= 2147483648 {
		return math.MaxInt32
	}
	return int32(math.Trunc(v))
}

func TruncSatF64ToU32(v float64) uint32 {
	if math.IsNaN(v) || v <= -1 {
		return 0
	}
	if v >= 4294967296 {
		return math.MaxUint32
	}
	return uint32(math.Trunc(v))
}

func TruncSatF64ToI64(v float64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	if v <= -9223372036854777856 {
		return math.MinInt64
	}
	if v >= 9223372036854775808 {
		return math.MaxInt64
	}
	return int64(math.Trunc(v))
}

func TruncSatF64ToU64(v float64) uint64 {
	if math.IsNaN(v) || v <= -1 {
		return 0
	}
	if v >= 18446744073709551616 {
		return math.MaxUint64
	}
	return uint64(math.Trunc(v))
}

func TruncSatF32ToI32(v float32) int32  { return TruncSatF64ToI32(float64(v)) }
func TruncSatF32ToU32(v float32) uint32 { return TruncSatF64ToU32(float64(v)) }
func TruncSatF32ToI64(v float32) int64  { return TruncSatF64ToI64(float64(v)) }
func TruncSatF32ToU64(v float32) uint64 { return TruncSatF64ToU64(float64(v)) }
