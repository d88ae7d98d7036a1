package executor

import "math"

// Thin float32 wrappers around math's float64 functions; wasm's f32 unary
// ops operate at f32 precision, which Go's math package doesn't expose
// directly.
func absF32(v float32) float32   { return float32(math.Abs(float64(v))) }
func ceilF32(v float32) float32  { return float32(math.Ceil(float64(v))) }
func floorF32(v float32) float32 { return float32(math.Floor(float64(v))) }
func truncF32(v float32) float32 { return float32(math.Trunc(float64(v))) }
func sqrtF32(v float32) float32  { return float32(math.Sqrt(float64(v))) }

func absF64(v float64) float64   { return math.Abs(v) }
func ceilF64(v float64) float64  { return math.Ceil(v) }
func floorF64(v float64) float64 { return math.Floor(v) }
func truncF64(v float64) float64 { return math.Trunc(v) }
func sqrtF64(v float64) float64  { return math.Sqrt(v) }
