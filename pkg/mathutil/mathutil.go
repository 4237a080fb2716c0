// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/keplerfit/pkg/constants"
)

// WrapAngle maps an angle into (-π, π].
func WrapAngle(theta float64) float64 {
	r := math.Remainder(theta, constants.TwoPi)
	if r == -math.Pi {
		return math.Pi
	}
	return r
}

// WrapPositive maps an angle into [0, 2π).
func WrapPositive(theta float64) float64 {
	r := math.Mod(theta, constants.TwoPi)
	if r < 0 {
		r += constants.TwoPi
	}
	if r >= constants.TwoPi {
		return 0
	}
	return r
}

// Frac returns x - floor(x), always in [0, 1).
func Frac(x float64) float64 {
	f := x - math.Floor(x)
	if f >= 1 {
		return 0
	}
	return f
}

// IsFinite reports whether val is neither NaN nor ±Inf.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// WithinRelative checks that two values agree to a relative tolerance, with
// an absolute floor for values near zero.
func WithinRelative(val1, val2, relTol float64) bool {
	diff := math.Abs(val1 - val2)
	if diff <= constants.AbsoluteTolerance {
		return true
	}
	scale := math.Max(math.Abs(val1), math.Abs(val2))
	return diff <= relTol*scale
}

// Clamp limits val to [lo, hi].
func Clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// SafeAcos is math.Acos with its argument clamped to [-1, 1], so rounding
// just outside the domain does not produce NaN.
func SafeAcos(x float64) float64 {
	return math.Acos(Clamp(x, -1, 1))
}
