package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// ClampMax caps `f` at `high`, where a zero `high` means there is no upper
// bound.
func ClampMax[T constraints.Integer](f, high T) T {
	if high > 0 && f > high {
		return high
	}
	return f
}
