// Package quant implements per-subband step-size derivation and the two
// coefficient quantizers used after the wavelet transform: a plain
// dead-zone scalar quantizer and a Trellis-Coded Quantizer that
// Viterbi-searches a small state trellis for a better rate/distortion
// tradeoff.
package quant

import (
	"fmt"
	"math"

	"github.com/corewave/jpeg2000core/internal/codestream"
)

// Subband identifies which of the four 2D subband types a band holds.
type Subband int

const (
	SubbandLL Subband = iota
	SubbandHL
	SubbandLH
	SubbandHH
)

// gain returns the fixed log-2 gain term used in the irreversible
// step-size formula: 0 for LL, 1 for HL/LH, 2 for HH.
func gain(s Subband) int {
	switch s {
	case SubbandLL:
		return 0
	case SubbandHL, SubbandLH:
		return 1
	default:
		return 2
	}
}

// SubbandStepSize derives the quantization step for a subband at the
// given resolution level (0 = coarsest LL, increasing toward full
// resolution) out of totalLevels decompositions.
//
// Reversible (5/3) transforms are integer-preserving: the step is
// always 1, delivered as a no-op gain. Irreversible (9/7) transforms
// scale a base step size (taken from the codestream's default
// quantization table) by 2^(gain(subband) - decompositionLevel), where
// decompositionLevel counts down from totalLevels (at the LL band) to 0
// (at the finest detail bands).
func SubbandStepSize(q codestream.QuantizationDefault, subband Subband, resLevel, totalLevels int, reversible bool) float64 {
	if reversible {
		return 1
	}
	base := 1.0
	if len(q.StepSizes) > 0 {
		base = q.StepSizes[0].Value()
	}
	decompositionLevel := totalLevels - resLevel
	return base * math.Pow(2, float64(gain(subband)-decompositionLevel))
}

// Quantize applies dead-zone scalar quantization: q[i] =
// sign(c[i])*floor(|c[i]|/step), i.e. a symmetric dead-zone of width
// 2*step around zero. The sign is applied after the floor, per the
// absolute-value-first convention.
func Quantize(coeffs []float64, step float64) ([]int32, error) {
	if step <= 0 {
		return nil, fmt.Errorf("quant: step size must be positive, got %g", step)
	}
	q := make([]int32, len(coeffs))
	for i, c := range coeffs {
		mag := math.Floor(math.Abs(c) / step)
		if c < 0 {
			q[i] = -int32(mag)
		} else {
			q[i] = int32(mag)
		}
	}
	return q, nil
}

// Dequantize reconstructs an approximation of the original coefficients
// from quantization indices: ĉ = (q + 0.5*sign(q))*step when q != 0,
// else 0.
func Dequantize(q []int32, step float64) []float64 {
	c := make([]float64, len(q))
	for i, v := range q {
		switch {
		case v > 0:
			c[i] = (float64(v) + 0.5) * step
		case v < 0:
			c[i] = (float64(v) - 0.5) * step
		default:
			c[i] = 0
		}
	}
	return c
}

// Result holds the outcome of a trellis-coded quantization pass.
type Result struct {
	QuantizedCoefficients []int32
	TotalDistortion       float64
	EstimatedRate         float64
	RDCost                float64
	StateSequence         []int
}

// trellisShortSequence is the sample-count threshold below which TCQ
// falls back to plain dead-zone quantization; below it the Viterbi
// search overhead dominates any rate/distortion gain.
const trellisShortSequence = 16

// TrellisQuantize performs Trellis-Coded Quantization: a Viterbi search
// over a fully-connected trellis of numStates states, minimizing
// accumulated distortion + lambda*rate. Each state's quantization level
// is sign(c)*(floor(|c|/step) + (state mod 2)), so even/odd states
// select between the two dead-zone neighbors of a coefficient.
//
// Sequences shorter than 16 samples fall back to dead-zone
// quantization: the search overhead is not worth it at that size.
func TrellisQuantize(coeffs []float64, step, lambda float64, numStates int, pruningThreshold float64) (*Result, error) {
	if step <= 0 {
		return nil, fmt.Errorf("quant: step size must be positive, got %g", step)
	}
	if lambda < 0 {
		return nil, fmt.Errorf("quant: lambda must be non-negative, got %g", lambda)
	}
	if numStates < 2 {
		return nil, fmt.Errorf("quant: numStates must be at least 2, got %d", numStates)
	}

	if len(coeffs) < trellisShortSequence {
		q, err := Quantize(coeffs, step)
		if err != nil {
			return nil, err
		}
		return finalizeResult(coeffs, q, step, lambda, make([]int, len(coeffs))), nil
	}

	n := len(coeffs)
	levels := make([][]int32, n)  // levels[i][state] = quant level chosen at sample i for state
	cost := make([]float64, numStates)
	backptr := make([][]int, n) // backptr[i][state] = predecessor state

	for s := range cost {
		cost[s] = 0
	}

	for i, c := range coeffs {
		mag := math.Floor(math.Abs(c) / step)
		stageLevel := make([]int32, numStates)
		stageCost := make([]float64, numStates)
		for toState := 0; toState < numStates; toState++ {
			offset := toState % 2
			level := mag + float64(offset)
			var q int32
			if c < 0 {
				q = -int32(level)
			} else {
				q = int32(level)
			}
			stageLevel[toState] = q

			reconstructed := float64(q) * step
			distortion := (c - reconstructed) * (c - reconstructed)
			rate := rateEstimate(q)
			stageCost[toState] = distortion + lambda*rate
		}

		newCost := make([]float64, numStates)
		back := make([]int, numStates)
		bestPrev, bestPrevState := cost[0], 0
		for s := 1; s < numStates; s++ {
			if cost[s] < bestPrev {
				bestPrev, bestPrevState = cost[s], s
			}
		}
		for toState := 0; toState < numStates; toState++ {
			newCost[toState] = bestPrev + stageCost[toState]
			back[toState] = bestPrevState
		}

		if pruningThreshold > 0 {
			best := newCost[0]
			for _, v := range newCost {
				if v < best {
					best = v
				}
			}
			limit := best * pruningThreshold
			for s := range newCost {
				if newCost[s] > limit {
					newCost[s] = math.Inf(1)
				}
			}
		}

		levels[i] = stageLevel
		backptr[i] = back
		cost = newCost
	}

	bestFinal, bestState := cost[0], 0
	for s := 1; s < numStates; s++ {
		if cost[s] < bestFinal {
			bestFinal, bestState = cost[s], s
		}
	}

	stateSeq := make([]int, n)
	quantized := make([]int32, n)
	state := bestState
	for i := n - 1; i >= 0; i-- {
		stateSeq[i] = state
		quantized[i] = levels[i][state]
		state = backptr[i][state]
	}

	return finalizeResult(coeffs, quantized, step, lambda, stateSeq), nil
}

// rateEstimate is the heuristic bit-cost proxy used during the search:
// 1 bit for a zero level, otherwise a sign bit plus a rough log-2 code
// length for the magnitude.
func rateEstimate(level int32) float64 {
	if level == 0 {
		return 1
	}
	mag := math.Abs(float64(level))
	return 1 + math.Log2(mag+1) + 1
}

// finalizeResult recomputes distortion and rate exactly from the chosen
// quantization levels, rather than trusting the search's running totals.
func finalizeResult(coeffs []float64, quantized []int32, step, lambda float64, stateSeq []int) *Result {
	var totalDistortion, totalRate float64
	for i, c := range coeffs {
		reconstructed := float64(quantized[i]) * step
		d := c - reconstructed
		totalDistortion += d * d
		totalRate += rateEstimate(quantized[i])
	}
	return &Result{
		QuantizedCoefficients: quantized,
		TotalDistortion:       totalDistortion,
		EstimatedRate:         totalRate,
		RDCost:                totalDistortion + lambda*totalRate,
		StateSequence:         stateSeq,
	}
}
