// Package numeric collects the small pure numeric helpers shared across
// the codec and its conformance validator: error metrics, basic
// statistics, boundary indexing, and bit math. Consolidates the
// "small pure numeric helper function" idiom scattered through the
// teacher's colorspace and MCT code into one package.
package numeric

import (
	"math"

	"github.com/corewave/jpeg2000core/internal/boundary"
)

// MSE returns the mean squared error between a and b. Panics if the
// slices differ in length, mirroring the teacher's convention of
// trusting internally-paired sample buffers to already agree in size.
func MSE(a, b []float64) float64 {
	if len(a) != len(b) {
		panic("numeric: MSE operands have different lengths")
	}
	if len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum / float64(len(a))
}

// PSNR returns the peak signal-to-noise ratio in decibels for a
// bitDepth-bit signal given its mean squared error, using
// PSNR = 10*log10((2^bitDepth - 1)^2 / mse). Returns +Inf when mse is
// zero (a lossless match).
func PSNR(mse float64, bitDepth int) float64 {
	if mse == 0 {
		return math.Inf(1)
	}
	peak := float64((int64(1) << bitDepth) - 1)
	return 10 * math.Log10(peak*peak/mse)
}

// Mean returns the arithmetic mean of data. Returns 0 for an empty slice.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// Variance returns the sample variance of data (divisor n-1). Returns 0
// when len(data) < 2, since the sample variance is undefined there.
func Variance(data []float64) float64 {
	n := len(data)
	if n < 2 {
		return 0
	}
	m := Mean(data)
	var sum float64
	for _, v := range data {
		d := v - m
		sum += d * d
	}
	return sum / float64(n-1)
}

// SymmetricIndex maps index into [0, length) using the same reflection
// rule as internal/boundary's Symmetric mode, for callers that need
// boundary-consistent indexing outside the lifting transform itself.
func SymmetricIndex(index, length int) int {
	return boundary.Extend[float64](index, length, boundary.Symmetric)
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// CeilDiv returns ceil(a/b) for non-negative a and positive b.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}

// CeilLog2 returns the smallest k such that (1 << k) >= n, for n >= 1.
func CeilLog2(n int) int {
	k := 0
	v := 1
	for v < n {
		v <<= 1
		k++
	}
	return k
}
