package math

import (
	m "math"

	"golang.org/x/exp/constraints"
)

func Clamp[T constraints.Ordered](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func invSqrt(v float32) float32 {
	return float32(1.0 / m.Sqrt(float64(v)))
}
