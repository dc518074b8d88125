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

// IsPowerOfTwo reports whether x is a non-zero power of two.
func IsPowerOfTwo[T constraints.Unsigned](x T) bool {
	return x != 0 && x&(x-1) == 0
}

// AlignUp rounds x up to the next multiple of alignment, which must be a power of two.
// The result wraps if x is within alignment of the type's maximum.
func AlignUp[T constraints.Unsigned](x, alignment T) T {
	return (x + alignment - 1) &^ (alignment - 1)
}

// DivCeil returns ceil(a / b) for b > 0.
func DivCeil[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}
