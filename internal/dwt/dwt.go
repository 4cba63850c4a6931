// Package dwt implements the Discrete Wavelet Transform for JPEG 2000.
//
// JPEG 2000 uses two wavelet filters:
// - 5-3 reversible (lossless): integer arithmetic
// - 9-7 irreversible (lossy): floating-point arithmetic
//
// Both use lifting-based implementations for efficiency.
package dwt

import (
	"fmt"
	"math"
	"sync"

	"github.com/corewave/jpeg2000core/internal/boundary"
)

// BoundaryExtension selects how a signal is extended past its edges
// before a lifting or convolution step reads outside [0, length).
type BoundaryExtension = boundary.Mode

// Re-exported boundary modes, so callers never need to import
// internal/boundary directly just to pick a transform's edge handling.
const (
	BoundarySymmetric   = boundary.Symmetric
	BoundaryPeriodic    = boundary.Periodic
	BoundaryZeroPadding = boundary.ZeroPadding
)

// Buffer pools for temporary storage to reduce allocations
var (
	intBufPool = sync.Pool{
		New: func() interface{} {
			buf := make([]int32, 4096)
			return &buf
		},
	}
	floatBufPool = sync.Pool{
		New: func() interface{} {
			buf := make([]float64, 4096)
			return &buf
		},
	}
)

// getIntBuf returns a buffer of at least size n from the pool.
func getIntBuf(n int) []int32 {
	bp := intBufPool.Get().(*[]int32)
	buf := *bp
	if cap(buf) < n {
		buf = make([]int32, n)
		*bp = buf
	}
	return buf[:n]
}

// putIntBuf returns a buffer to the pool.
func putIntBuf(buf []int32) {
	bp := &buf
	intBufPool.Put(bp)
}

// getFloatBuf returns a buffer of at least size n from the pool.
func getFloatBuf(n int) []float64 {
	bp := floatBufPool.Get().(*[]float64)
	buf := *bp
	if cap(buf) < n {
		buf = make([]float64, n)
		*bp = buf
	}
	return buf[:n]
}

// Transform type constants.
const (
	// Reversible53 is the 5-3 reversible wavelet transform (lossless).
	Reversible53 = iota
	// Irreversible97 is the 9-7 irreversible wavelet transform (lossy).
	Irreversible97
)

// extended returns data's virtual sample at idx, folding an
// out-of-range index back into [0, length) according to mode (or
// returning 0 for ZeroPadding past the edge). Every lifting step below
// only ever reaches one position past an edge, so a single-sample
// lookup is all boundary handling needs.
func extended(data []int32, idx, length int, mode BoundaryExtension) int32 {
	i := boundary.Extend[int32](idx, length, mode)
	if i < 0 {
		return 0
	}
	return data[i]
}

func extendedFloat(data []float64, idx, length int, mode BoundaryExtension) float64 {
	i := boundary.Extend[float64](idx, length, mode)
	if i < 0 {
		return 0
	}
	return data[i]
}

// Forward53 performs the forward 5-3 reversible wavelet transform.
// The input slice is modified in-place.
// length is the number of samples to transform.
// mode selects how samples past the edges are extended.
// After transformation:
// - Even indices contain low-pass (L) coefficients
// - Odd indices contain high-pass (H) coefficients
func Forward53(data []int32, length int, mode BoundaryExtension) {
	if length < 2 {
		return
	}

	// Apply lifting steps with loop unrolling
	// Step 1: Update odd samples (high-pass)
	// H[n] = X[2n+1] - floor((X[2n] + X[2n+2]) / 2)
	i := 1
	// Unroll by 4 (processes indices 1, 3, 5, 7)
	for ; i+6 < length-1; i += 8 {
		data[i] -= (data[i-1] + data[i+1]) >> 1
		data[i+2] -= (data[i+1] + data[i+3]) >> 1
		data[i+4] -= (data[i+3] + data[i+5]) >> 1
		data[i+6] -= (data[i+5] + data[i+7]) >> 1
	}
	for ; i < length-1; i += 2 {
		data[i] -= (data[i-1] + data[i+1]) >> 1
	}
	// Handle last odd sample (needs the virtual sample at index length)
	if length&1 == 0 {
		data[length-1] -= (data[length-2] + extended(data, length, length, mode)) >> 1
	}

	// Step 2: Update even samples (low-pass)
	// L[n] = X[2n] + floor((H[n-1] + H[n] + 2) / 4)
	data[0] += (extended(data, -1, length, mode) + data[1] + 2) >> 2
	i = 2
	// Unroll by 4 (processes indices 2, 4, 6, 8)
	for ; i+6 < length-1; i += 8 {
		data[i] += (data[i-1] + data[i+1] + 2) >> 2
		data[i+2] += (data[i+1] + data[i+3] + 2) >> 2
		data[i+4] += (data[i+3] + data[i+5] + 2) >> 2
		data[i+6] += (data[i+5] + data[i+7] + 2) >> 2
	}
	for ; i < length-1; i += 2 {
		data[i] += (data[i-1] + data[i+1] + 2) >> 2
	}
	// Handle last even sample (needs the virtual sample at index length)
	if length&1 != 0 {
		data[length-1] += (data[length-2] + extended(data, length, length, mode) + 2) >> 2
	}

	// Rearrange coefficients: L L L... H H H...
	deinterleave(data, length)
}

// Inverse53 performs the inverse 5-3 reversible wavelet transform.
// Reconstructs the original signal from wavelet coefficients. mode
// must match the mode Forward53 used to produce data.
func Inverse53(data []int32, length int, mode BoundaryExtension) {
	if length < 2 {
		return
	}

	// Rearrange from L L L... H H H... to interleaved
	interleave(data, length)

	// Reverse lifting steps
	// Step 1: Undo low-pass update
	data[0] -= (extended(data, -1, length, mode) + data[1] + 2) >> 2
	for i := 2; i < length-1; i += 2 {
		data[i] -= (data[i-1] + data[i+1] + 2) >> 2
	}
	if length&1 != 0 {
		data[length-1] -= (data[length-2] + extended(data, length, length, mode) + 2) >> 2
	}

	// Step 2: Undo high-pass update
	for i := 1; i < length-1; i += 2 {
		data[i] += (data[i-1] + data[i+1]) >> 1
	}
	if length&1 == 0 {
		data[length-1] += (data[length-2] + extended(data, length, length, mode)) >> 1
	}
}

// 9-7 filter coefficients, per ISO/IEC 15444-1 Annex F.
const (
	alpha97 = -1.586134342059924 // Step 1
	beta97  = -0.052980118572961 // Step 2
	gamma97 = 0.882911075530934  // Step 3
	delta97 = 0.443506852043971  // Step 4
	k97     = 1.149604398        // Scaling factor
	k97Inv  = 0.869864452275695  // 1/k
)

// Forward97 performs the forward 9-7 irreversible wavelet transform.
// Uses floating-point arithmetic for lossy compression. mode selects
// how samples past the edges are extended.
func Forward97(data []float64, length int, mode BoundaryExtension) {
	if length < 2 {
		return
	}

	// Step 1: Predict (alpha)
	for i := 1; i < length-1; i += 2 {
		data[i] += alpha97 * (data[i-1] + data[i+1])
	}
	if length&1 == 0 {
		data[length-1] += alpha97 * (data[length-2] + extendedFloat(data, length, length, mode))
	}

	// Step 2: Update (beta)
	data[0] += beta97 * (extendedFloat(data, -1, length, mode) + data[1])
	for i := 2; i < length-1; i += 2 {
		data[i] += beta97 * (data[i-1] + data[i+1])
	}
	if length&1 != 0 {
		data[length-1] += beta97 * (data[length-2] + extendedFloat(data, length, length, mode))
	}

	// Step 3: Predict (gamma)
	for i := 1; i < length-1; i += 2 {
		data[i] += gamma97 * (data[i-1] + data[i+1])
	}
	if length&1 == 0 {
		data[length-1] += gamma97 * (data[length-2] + extendedFloat(data, length, length, mode))
	}

	// Step 4: Update (delta)
	data[0] += delta97 * (extendedFloat(data, -1, length, mode) + data[1])
	for i := 2; i < length-1; i += 2 {
		data[i] += delta97 * (data[i-1] + data[i+1])
	}
	if length&1 != 0 {
		data[length-1] += delta97 * (data[length-2] + extendedFloat(data, length, length, mode))
	}

	// Step 5: Scale
	for i := 0; i < length; i += 2 {
		data[i] *= k97Inv
	}
	for i := 1; i < length; i += 2 {
		data[i] *= k97
	}

	// Rearrange coefficients
	deinterleaveFloat(data, length)
}

// Inverse97 performs the inverse 9-7 irreversible wavelet transform.
// mode must match the mode Forward97 used to produce data.
func Inverse97(data []float64, length int, mode BoundaryExtension) {
	if length < 2 {
		return
	}

	// Rearrange from separated to interleaved
	interleaveFloat(data, length)

	// Undo scaling
	for i := 0; i < length; i += 2 {
		data[i] *= k97
	}
	for i := 1; i < length; i += 2 {
		data[i] *= k97Inv
	}

	// Undo Step 4: Update (delta)
	data[0] -= delta97 * (extendedFloat(data, -1, length, mode) + data[1])
	for i := 2; i < length-1; i += 2 {
		data[i] -= delta97 * (data[i-1] + data[i+1])
	}
	if length&1 != 0 {
		data[length-1] -= delta97 * (data[length-2] + extendedFloat(data, length, length, mode))
	}

	// Undo Step 3: Predict (gamma)
	for i := 1; i < length-1; i += 2 {
		data[i] -= gamma97 * (data[i-1] + data[i+1])
	}
	if length&1 == 0 {
		data[length-1] -= gamma97 * (data[length-2] + extendedFloat(data, length, length, mode))
	}

	// Undo Step 2: Update (beta)
	data[0] -= beta97 * (extendedFloat(data, -1, length, mode) + data[1])
	for i := 2; i < length-1; i += 2 {
		data[i] -= beta97 * (data[i-1] + data[i+1])
	}
	if length&1 != 0 {
		data[length-1] -= beta97 * (data[length-2] + extendedFloat(data, length, length, mode))
	}

	// Undo Step 1: Predict (alpha)
	for i := 1; i < length-1; i += 2 {
		data[i] -= alpha97 * (data[i-1] + data[i+1])
	}
	if length&1 == 0 {
		data[length-1] -= alpha97 * (data[length-2] + extendedFloat(data, length, length, mode))
	}
}

// deinterleave rearranges data from interleaved to separated (L...H...).
func deinterleave(data []int32, length int) {
	if length < 2 {
		return
	}

	temp := getIntBuf(length)
	halfLen := (length + 1) / 2

	// Copy even samples (low-pass) to first half
	for i, j := 0, 0; i < length; i, j = i+2, j+1 {
		temp[j] = data[i]
	}
	// Copy odd samples (high-pass) to second half
	for i, j := 1, halfLen; i < length; i, j = i+2, j+1 {
		temp[j] = data[i]
	}

	copy(data[:length], temp[:length])
	putIntBuf(temp)
}

// interleave rearranges data from separated (L...H...) to interleaved.
func interleave(data []int32, length int) {
	if length < 2 {
		return
	}

	temp := getIntBuf(length)
	copy(temp[:length], data[:length])

	halfLen := (length + 1) / 2

	// Copy low-pass samples to even positions
	for i, j := 0, 0; j < halfLen; i, j = i+2, j+1 {
		data[i] = temp[j]
	}
	// Copy high-pass samples to odd positions
	for i, j := 1, halfLen; j < length; i, j = i+2, j+1 {
		data[i] = temp[j]
	}
	putIntBuf(temp)
}

// deinterleaveFloat rearranges float64 data from interleaved to separated.
func deinterleaveFloat(data []float64, length int) {
	if length < 2 {
		return
	}

	temp := getFloatBuf(length)
	halfLen := (length + 1) / 2

	for i, j := 0, 0; i < length; i, j = i+2, j+1 {
		temp[j] = data[i]
	}
	for i, j := 1, halfLen; i < length; i, j = i+2, j+1 {
		temp[j] = data[i]
	}

	copy(data[:length], temp[:length])
	putFloatBuf(temp)
}

// interleaveFloat rearranges float64 data from separated to interleaved.
func interleaveFloat(data []float64, length int) {
	if length < 2 {
		return
	}

	temp := getFloatBuf(length)
	copy(temp[:length], data[:length])

	halfLen := (length + 1) / 2

	for i, j := 0, 0; j < halfLen; i, j = i+2, j+1 {
		data[i] = temp[j]
	}
	for i, j := 1, halfLen; j < length; i, j = i+2, j+1 {
		data[i] = temp[j]
	}
	putFloatBuf(temp)
}

// putFloatBuf returns a buffer to the pool.
func putFloatBuf(buf []float64) {
	bp := &buf
	floatBufPool.Put(bp)
}

// Forward2D53 performs a 2D forward 5-3 wavelet transform.
// data is a row-major 2D array with the given dimensions.
func Forward2D53(data []int32, width, height int, mode BoundaryExtension) {
	// Transform rows - unroll by 4 for better pipelining
	y := 0
	for ; y+4 <= height; y += 4 {
		Forward53(data[y*width:(y+1)*width], width, mode)
		Forward53(data[(y+1)*width:(y+2)*width], width, mode)
		Forward53(data[(y+2)*width:(y+3)*width], width, mode)
		Forward53(data[(y+3)*width:(y+4)*width], width, mode)
	}
	for ; y < height; y++ {
		Forward53(data[y*width:(y+1)*width], width, mode)
	}

	// Transform columns using pooled buffer
	// Process 4 columns at a time for better cache utilization
	col := getIntBuf(height * 4)
	x := 0
	for ; x+4 <= width; x += 4 {
		// Extract 4 columns
		for yy := 0; yy < height; yy++ {
			rowStart := yy * width
			col[yy] = data[rowStart+x]
			col[height+yy] = data[rowStart+x+1]
			col[2*height+yy] = data[rowStart+x+2]
			col[3*height+yy] = data[rowStart+x+3]
		}
		// Transform all 4
		Forward53(col[:height], height, mode)
		Forward53(col[height:2*height], height, mode)
		Forward53(col[2*height:3*height], height, mode)
		Forward53(col[3*height:4*height], height, mode)
		// Write back
		for yy := 0; yy < height; yy++ {
			rowStart := yy * width
			data[rowStart+x] = col[yy]
			data[rowStart+x+1] = col[height+yy]
			data[rowStart+x+2] = col[2*height+yy]
			data[rowStart+x+3] = col[3*height+yy]
		}
	}
	// Handle remaining columns
	for ; x < width; x++ {
		for yy := 0; yy < height; yy++ {
			col[yy] = data[yy*width+x]
		}
		Forward53(col[:height], height, mode)
		for yy := 0; yy < height; yy++ {
			data[yy*width+x] = col[yy]
		}
	}
	putIntBuf(col)
}

// Inverse2D53 performs a 2D inverse 5-3 wavelet transform.
func Inverse2D53(data []int32, width, height int, mode BoundaryExtension) {
	// Transform columns first (reverse order of forward)
	col := getIntBuf(height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			col[y] = data[y*width+x]
		}
		Inverse53(col, height, mode)
		for y := 0; y < height; y++ {
			data[y*width+x] = col[y]
		}
	}
	putIntBuf(col)

	// Transform rows
	for y := 0; y < height; y++ {
		row := data[y*width : (y+1)*width]
		Inverse53(row, width, mode)
	}
}

// Forward2D97 performs a 2D forward 9-7 wavelet transform.
func Forward2D97(data []float64, width, height int, mode BoundaryExtension) {
	// Transform rows
	for y := 0; y < height; y++ {
		row := data[y*width : (y+1)*width]
		Forward97(row, width, mode)
	}

	// Transform columns using pooled buffer
	col := getFloatBuf(height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			col[y] = data[y*width+x]
		}
		Forward97(col, height, mode)
		for y := 0; y < height; y++ {
			data[y*width+x] = col[y]
		}
	}
	putFloatBuf(col)
}

// Inverse2D97 performs a 2D inverse 9-7 wavelet transform.
func Inverse2D97(data []float64, width, height int, mode BoundaryExtension) {
	// Transform columns first
	col := getFloatBuf(height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			col[y] = data[y*width+x]
		}
		Inverse97(col, height, mode)
		for y := 0; y < height; y++ {
			data[y*width+x] = col[y]
		}
	}
	putFloatBuf(col)

	// Transform rows
	for y := 0; y < height; y++ {
		row := data[y*width : (y+1)*width]
		Inverse97(row, width, mode)
	}
}

// SubbandBounds calculates the bounds for each subband at a resolution level.
// Returns the x0, y0, x1, y1 for LL, HL, LH, HH subbands.
type SubbandBounds struct {
	X0, Y0, X1, Y1 int
}

// CalculateSubbands calculates subband bounds for a given resolution level.
// level 0 is the finest resolution.
func CalculateSubbands(width, height, level int) (ll, hl, lh, hh SubbandBounds) {
	// At each level, dimensions are halved
	w := width >> level
	h := height >> level

	halfW := (w + 1) / 2
	halfH := (h + 1) / 2

	ll = SubbandBounds{0, 0, halfW, halfH}
	hl = SubbandBounds{halfW, 0, w, halfH}
	lh = SubbandBounds{0, halfH, halfW, h}
	hh = SubbandBounds{halfW, halfH, w, h}

	return
}

// Quantize is a flat scalar quantizer kept for callers that don't need
// per-subband step derivation; internal/quant supersedes it for the
// tile pipeline with dead-zone and trellis-coded variants.
func Quantize(data []float64, stepSize float64) []int32 {
	result := make([]int32, len(data))
	invStep := 1.0 / stepSize
	for i, v := range data {
		if v >= 0 {
			result[i] = int32(math.Floor(v*invStep + 0.5))
		} else {
			result[i] = int32(math.Ceil(v*invStep - 0.5))
		}
	}
	return result
}

// Dequantize reconstructs floating-point values from quantized coefficients.
func Dequantize(data []int32, stepSize float64) []float64 {
	result := make([]float64, len(data))
	for i, v := range data {
		result[i] = float64(v) * stepSize
	}
	return result
}

// checkLevels verifies that levels recursive LL splits can be applied to
// a width×height plane without any intermediate dimension dropping
// below 2, the point past which a lifting step has nothing to predict
// or update.
func checkLevels(width, height, levels int) error {
	if levels < 0 {
		return fmt.Errorf("dwt: levels must be non-negative, got %d", levels)
	}
	w, h := width, height
	for level := 0; level < levels; level++ {
		if w < 2 || h < 2 {
			return fmt.Errorf("dwt: %d decomposition levels requested but dimensions collapse below 2 at level %d (%dx%d)", levels, level, w, h)
		}
		w = (w + 1) / 2
		h = (h + 1) / 2
	}
	return nil
}

// DecomposeMultiLevel53 performs multi-level 2D 5/3 reversible wavelet
// decomposition, recursively splitting the LL band. mode selects the
// edge extension (Symmetric, Periodic, or ZeroPadding); each lifting
// step only ever reads one virtual sample past an edge, via
// internal/boundary.Extend.
func DecomposeMultiLevel53(data []int32, width, height, levels int, mode BoundaryExtension) error {
	if err := checkLevels(width, height, levels); err != nil {
		return err
	}
	w, h := width, height
	for level := 0; level < levels; level++ {
		Forward2D53(data, w, h, mode)
		w = (w + 1) / 2
		h = (h + 1) / 2
	}
	return nil
}

// ReconstructMultiLevel53 performs multi-level 2D 5/3 reversible wavelet
// reconstruction. mode must match the mode used to decompose.
func ReconstructMultiLevel53(data []int32, width, height, levels int, mode BoundaryExtension) error {
	if err := checkLevels(width, height, levels); err != nil {
		return err
	}
	dims := make([]struct{ w, h int }, levels)
	w, h := width, height
	for level := 0; level < levels; level++ {
		dims[level] = struct{ w, h int }{w, h}
		w = (w + 1) / 2
		h = (h + 1) / 2
	}
	for level := levels - 1; level >= 0; level-- {
		Inverse2D53(data, dims[level].w, dims[level].h, mode)
	}
	return nil
}

// DecomposeMultiLevel97 performs multi-level 2D 9/7 irreversible wavelet
// decomposition. mode selects the edge extension, as in
// DecomposeMultiLevel53.
func DecomposeMultiLevel97(data []float64, width, height, levels int, mode BoundaryExtension) error {
	if err := checkLevels(width, height, levels); err != nil {
		return err
	}
	w, h := width, height
	for level := 0; level < levels; level++ {
		Forward2D97(data, w, h, mode)
		w = (w + 1) / 2
		h = (h + 1) / 2
	}
	return nil
}

// ReconstructMultiLevel97 performs multi-level 2D 9/7 irreversible
// wavelet reconstruction. mode must match the mode used to decompose.
func ReconstructMultiLevel97(data []float64, width, height, levels int, mode BoundaryExtension) error {
	if err := checkLevels(width, height, levels); err != nil {
		return err
	}
	dims := make([]struct{ w, h int }, levels)
	w, h := width, height
	for level := 0; level < levels; level++ {
		dims[level] = struct{ w, h int }{w, h}
		w = (w + 1) / 2
		h = (h + 1) / 2
	}
	for level := levels - 1; level >= 0; level-- {
		Inverse2D97(data, dims[level].w, dims[level].h, mode)
	}
	return nil
}

// ArbitraryFilter describes a custom wavelet kernel as a 2x2 block
// transform applied to each (even, odd) sample pair: AnalysisLo/
// AnalysisHi are the two-tap rows that produce one low-pass and one
// high-pass coefficient per pair, and SynthesisLo/SynthesisHi are the
// corresponding rows of the inverse matrix. ScaleLo/ScaleHi are applied
// as an extra output gain on top of the tap weights, matching the
// standard's separate "scale" parameter for custom Part-2 kernels.
//
// Analysis/synthesis matrix invertibility (SynthesisLo/SynthesisHi form
// the inverse of the 2x2 matrix [[AnalysisLo],[AnalysisHi]]) is the
// caller's contract, the same way mct.CustomMCT trusts its caller to
// supply an invertible matrix.
type ArbitraryFilter struct {
	AnalysisLo, AnalysisHi   [2]float64
	SynthesisLo, SynthesisHi [2]float64
	ScaleLo, ScaleHi         float64
}

// ForwardArbitrary performs a single-level 1D forward transform by
// applying f as a 2x2 block transform to each (data[2i], data[2i+1])
// pair. A trailing unpaired sample (odd length) passes through
// unchanged into the low-pass band: pairing it with a virtual sample
// under mode would make InverseArbitrary unable to recover it exactly,
// since the pair's two inputs would no longer both be real samples.
// mode is accepted for interface consistency with the lifting-based
// filters but otherwise unused here: a pairwise block transform never
// reads outside [0, length) the way the 5/3 and 9/7 lifting steps do.
// Output is separated as L...H..., matching Forward53/Forward97.
func ForwardArbitrary(data []float64, length int, f ArbitraryFilter, mode BoundaryExtension) {
	if length < 2 {
		return
	}
	half := (length + 1) / 2
	out := make([]float64, length)

	pairs := length / 2
	for i := 0; i < pairs; i++ {
		x0, x1 := data[2*i], data[2*i+1]
		out[i] = f.ScaleLo * (f.AnalysisLo[0]*x0 + f.AnalysisLo[1]*x1)
		out[half+i] = f.ScaleHi * (f.AnalysisHi[0]*x0 + f.AnalysisHi[1]*x1)
	}
	if length%2 == 1 {
		out[half-1] = data[length-1]
	}
	copy(data[:length], out)
}

// InverseArbitrary performs a single-level 1D inverse transform matching
// ForwardArbitrary.
func InverseArbitrary(data []float64, length int, f ArbitraryFilter, mode BoundaryExtension) {
	if length < 2 {
		return
	}
	half := (length + 1) / 2
	lo := make([]float64, half)
	hi := make([]float64, length-half)
	copy(lo, data[:half])
	copy(hi, data[half:length])

	out := make([]float64, length)
	pairs := length / 2
	for i := 0; i < pairs; i++ {
		out[2*i] = f.SynthesisLo[0]*lo[i] + f.SynthesisHi[0]*hi[i]
		out[2*i+1] = f.SynthesisLo[1]*lo[i] + f.SynthesisHi[1]*hi[i]
	}
	if length%2 == 1 {
		out[length-1] = lo[half-1]
	}
	copy(data[:length], out)
}
