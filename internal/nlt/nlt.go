// Package nlt implements the non-linear point transforms (NLT) that may
// be applied between the multi-component transform and the wavelet
// transform: gamma, logarithmic, LUT, PQ (SMPTE ST 2084) and HLG (ITU-R
// BT.2100). Each transform normalizes its input to [0,1] using the range
// implied by (bitDepth, signed), applies the point function, then
// denormalizes and rounds to the nearest integer in the original range,
// mirroring the normalize/apply/denormalize shape of the teacher's
// Annex-M colorspace conversions.
package nlt

import (
	"fmt"
	"math"
)

// Range describes the integer sample range implied by a component's bit
// depth and signedness.
type Range struct {
	Min, Max float64
}

// RangeOf derives the sample range for the given bit depth and signedness.
func RangeOf(bitDepth int, signed bool) Range {
	if signed {
		half := float64(int64(1) << (bitDepth - 1))
		return Range{Min: -half, Max: half - 1}
	}
	return Range{Min: 0, Max: float64((int64(1) << bitDepth) - 1)}
}

func (r Range) normalize(v int32) float64 {
	if r.Max == r.Min {
		return 0
	}
	return (float64(v) - r.Min) / (r.Max - r.Min)
}

func (r Range) denormalize(x float64) int32 {
	v := x*(r.Max-r.Min) + r.Min
	return clampToInt32(v, r.Min, r.Max)
}

func clampToInt32(v, min, max float64) int32 {
	if v < min {
		return int32(min)
	}
	if v > max {
		return int32(max)
	}
	if v >= 0 {
		return int32(v + 0.5)
	}
	return int32(v - 0.5)
}

// Apply runs a normalized point function f over every sample of data,
// using the range implied by (bitDepth, signed) for normalize/denormalize.
func apply(data []int32, bitDepth int, signed bool, f func(float64) float64) {
	r := RangeOf(bitDepth, signed)
	for i, v := range data {
		x := r.normalize(v)
		y := f(x)
		data[i] = r.denormalize(y)
	}
}

// GammaForward applies y = x^gamma. Returns an error if gamma <= 0.
func GammaForward(data []int32, bitDepth int, signed bool, gamma float64) error {
	if gamma <= 0 {
		return fmt.Errorf("nlt: gamma must be positive, got %g", gamma)
	}
	apply(data, bitDepth, signed, func(x float64) float64 {
		return math.Pow(clamp01(x), gamma)
	})
	return nil
}

// GammaInverse applies y = x^(1/gamma). Returns an error if gamma <= 0.
func GammaInverse(data []int32, bitDepth int, signed bool, gamma float64) error {
	if gamma <= 0 {
		return fmt.Errorf("nlt: gamma must be positive, got %g", gamma)
	}
	apply(data, bitDepth, signed, func(x float64) float64 {
		return math.Pow(clamp01(x), 1/gamma)
	})
	return nil
}

// LogForward applies y = log(x+1), normalized by log(2).
func LogForward(data []int32, bitDepth int, signed bool) {
	apply(data, bitDepth, signed, func(x float64) float64 {
		return math.Log(clamp01(x)+1) / math.Ln2
	})
}

// LogInverse applies y = exp(x*log(2)) - 1.
func LogInverse(data []int32, bitDepth int, signed bool) {
	apply(data, bitDepth, signed, func(x float64) float64 {
		return math.Exp(x*math.Ln2) - 1
	})
}

// LUTInterpolation selects how LUT samples a table at a non-integer index.
type LUTInterpolation int

const (
	LUTNearest LUTInterpolation = iota
	LUTLinear
)

// LUTForward maps each normalized sample through table via
// index = normalized * (len(table)-1), using the given interpolation
// mode. It returns an error if table has fewer than 2 entries.
func LUTForward(data []int32, bitDepth int, signed bool, table []float64, interp LUTInterpolation) error {
	if len(table) < 2 {
		return fmt.Errorf("nlt: LUT must have at least 2 entries, got %d", len(table))
	}
	apply(data, bitDepth, signed, func(x float64) float64 {
		return lutLookup(table, clamp01(x), interp)
	})
	return nil
}

// LUTInverse maps each sample back through table's inverse: given a
// value produced by LUTForward, it recovers the normalized index that
// produced it. table must be strictly monotone (increasing or
// decreasing) for the mapping to be well-defined, per spec. It returns
// an error if table has fewer than 2 entries.
func LUTInverse(data []int32, bitDepth int, signed bool, table []float64, interp LUTInterpolation) error {
	if len(table) < 2 {
		return fmt.Errorf("nlt: LUT must have at least 2 entries, got %d", len(table))
	}
	apply(data, bitDepth, signed, func(y float64) float64 {
		return lutLookupInverse(table, y, interp)
	})
	return nil
}

// lutLookupInverse finds the normalized index x in [0,1] such that
// lutLookup(table, x, interp) ~= y, assuming table is monotone. It
// locates the bracketing pair of table entries and linearly
// interpolates the fractional index within it, regardless of interp:
// a nearest-neighbor forward lookup is not exactly invertible, so the
// inverse always returns its best linear estimate.
func lutLookupInverse(table []float64, y float64, interp LUTInterpolation) float64 {
	n := len(table)
	increasing := table[n-1] >= table[0]

	lo := 0
	for i := 0; i < n-1; i++ {
		b := table[i+1]
		if increasing {
			if y <= b || i == n-2 {
				lo = i
				break
			}
		} else {
			if y >= b || i == n-2 {
				lo = i
				break
			}
		}
	}

	a, b := table[lo], table[lo+1]
	var frac float64
	if b != a {
		frac = (y - a) / (b - a)
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	idx := float64(lo) + frac
	return idx / float64(n-1)
}

func lutLookup(table []float64, x float64, interp LUTInterpolation) float64 {
	n := len(table)
	idx := x * float64(n-1)
	switch interp {
	case LUTLinear:
		lo := int(math.Floor(idx))
		if lo < 0 {
			lo = 0
		}
		if lo >= n-1 {
			return table[n-1]
		}
		frac := idx - float64(lo)
		return table[lo]*(1-frac) + table[lo+1]*frac
	default:
		i := int(idx + 0.5)
		if i < 0 {
			i = 0
		}
		if i >= n {
			i = n - 1
		}
		return table[i]
	}
}

// PQ (SMPTE ST 2084) constants.
const (
	pqM1 = 2610.0 / 16384.0
	pqM2 = 2523.0 / 4096.0 * 128.0
	pqC1 = 3424.0 / 4096.0
	pqC2 = 2413.0 / 4096.0 * 32.0
	pqC3 = 2392.0 / 4096.0 * 32.0
)

// PQForward applies the PQ EOTF (electro-optical transfer function):
// normalized code value -> normalized linear light.
func PQForward(data []int32, bitDepth int, signed bool) {
	apply(data, bitDepth, signed, func(e float64) float64 {
		e = clamp01(e)
		num := math.Max(math.Pow(e, 1/pqM2)-pqC1, 0)
		den := pqC2 - pqC3*math.Pow(e, 1/pqM2)
		return math.Pow(num/den, 1/pqM1)
	})
}

// PQInverse applies the PQ OETF (opto-electronic transfer function):
// normalized linear light -> normalized code value.
func PQInverse(data []int32, bitDepth int, signed bool) {
	apply(data, bitDepth, signed, func(l float64) float64 {
		l = clamp01(l)
		num := pqC1 + pqC2*math.Pow(l, pqM1)
		den := 1 + pqC3*math.Pow(l, pqM1)
		return math.Pow(num/den, pqM2)
	})
}

// HLG (ITU-R BT.2100) constants.
const (
	hlgA = 0.17883277
	hlgB = 0.28466892
	hlgC = 0.55991073
)

// HLGForward applies the HLG OETF: normalized scene light -> normalized
// signal. The breakpoint comparison at 1/12 is non-strict (<=), per the
// ITU-R BT.2100 reference.
func HLGForward(data []int32, bitDepth int, signed bool) {
	apply(data, bitDepth, signed, func(x float64) float64 {
		x = clamp01(x)
		if x <= 1.0/12.0 {
			return math.Sqrt(3 * x)
		}
		return hlgA*math.Log(12*x-hlgB) + hlgC
	})
}

// HLGInverse applies the HLG EOTF-companding inverse: normalized signal
// -> normalized scene light. The breakpoint comparison at 0.5 is
// non-strict (<=).
func HLGInverse(data []int32, bitDepth int, signed bool) {
	apply(data, bitDepth, signed, func(y float64) float64 {
		y = clamp01(y)
		if y <= 0.5 {
			return y * y / 3
		}
		return (math.Exp((y-hlgC)/hlgA) + hlgB) / 12
	})
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
