package cpu

import "math"

// These widen to float64 for the transcendental, then narrow back — the
// same approach any CPU reference implementation without hand-written
// f32 polynomial approximations takes; it is the numerically safe
// default and what the GPU backends are checked against (spec.md §4.8's
// dispatcher-agreement tolerance already allows for this).

func sin32(x float32) float32  { return float32(math.Sin(float64(x))) }
func cos32(x float32) float32  { return float32(math.Cos(float64(x))) }
func exp32(x float32) float32  { return float32(math.Exp(float64(x))) }
func log32(x float32) float32  { return float32(math.Log(float64(x))) }
func sqrt32(x float32) float32 { return float32(math.Sqrt(float64(x))) }
func pow32(x, p float32) float32 {
	return float32(math.Pow(float64(x), float64(p)))
}
