// Package pipeline orchestrates a single tile through every coding
// stage: DC level shift, optional multi-component transform, optional
// non-linear point transform, the wavelet transform, per-subband
// quantization, and the handoff to tier-1 entropy coding. Decoding runs
// the same stages in reverse. This generalizes the teacher's
// hand-inlined preprocess/generateCodestream and decodeTiles methods
// into a single reusable orchestrator driven by a codestream.Header.
package pipeline

import (
	"fmt"

	"github.com/corewave/jpeg2000core/internal/codestream"
	"github.com/corewave/jpeg2000core/internal/dwt"
	"github.com/corewave/jpeg2000core/internal/mct"
	"github.com/corewave/jpeg2000core/internal/nlt"
	"github.com/corewave/jpeg2000core/internal/numeric"
	"github.com/corewave/jpeg2000core/internal/quant"
	"github.com/corewave/jpeg2000core/internal/tcd"
)

// NLTKind selects which non-linear point transform a Config applies.
type NLTKind int

const (
	NLTNone NLTKind = iota
	NLTGamma
	NLTLogarithmic
	NLTLUT
	NLTPQ
	NLTHLG
)

// NLTSpec configures the non-linear point transform stage. A nil *NLTSpec
// on Config skips the stage entirely.
type NLTSpec struct {
	Kind   NLTKind
	Gamma  float64
	Table  []float64
	Interp nlt.LUTInterpolation
}

func (s *NLTSpec) forward(data []int32, bitDepth int, signed bool) error {
	if s == nil {
		return nil
	}
	switch s.Kind {
	case NLTGamma:
		return nlt.GammaForward(data, bitDepth, signed, s.Gamma)
	case NLTLogarithmic:
		nlt.LogForward(data, bitDepth, signed)
	case NLTLUT:
		return nlt.LUTForward(data, bitDepth, signed, s.Table, s.Interp)
	case NLTPQ:
		nlt.PQForward(data, bitDepth, signed)
	case NLTHLG:
		nlt.HLGForward(data, bitDepth, signed)
	}
	return nil
}

func (s *NLTSpec) inverse(data []int32, bitDepth int, signed bool) error {
	if s == nil {
		return nil
	}
	switch s.Kind {
	case NLTGamma:
		return nlt.GammaInverse(data, bitDepth, signed, s.Gamma)
	case NLTLogarithmic:
		nlt.LogInverse(data, bitDepth, signed)
	case NLTLUT:
		return nlt.LUTInverse(data, bitDepth, signed, s.Table, s.Interp)
	case NLTPQ:
		nlt.PQInverse(data, bitDepth, signed)
	case NLTHLG:
		nlt.HLGInverse(data, bitDepth, signed)
	}
	return nil
}

// QuantizerKind selects which per-subband quantizer EncodeTile applies
// to irreversible (9/7) coefficients. The reversible (5/3) path is
// always identity, regardless of this setting.
type QuantizerKind int

const (
	QuantizerNone QuantizerKind = iota
	QuantizerDeadZone
	QuantizerTrellis
)

// Config selects the optional stages of the pipeline. MCTEnabled is
// consulted only when the tile has at least 3 components (C=1 or C=2
// always skips MCT). NLT is applied uniformly to every component when
// non-nil.
type Config struct {
	MCTEnabled bool
	NLT        *NLTSpec
	Boundary   dwt.BoundaryExtension

	Quantizer               QuantizerKind
	TrellisLambda           float64
	TrellisNumStates        int
	TrellisPruningThreshold float64
}

// EncodeTile runs the forward pipeline over componentData (one []int32
// per component, in raster order, at the tile-component's own
// resolution) and returns a tile ready for marker/bitstream assembly.
func EncodeTile(header *codestream.Header, tileIndex int, componentData [][]int32, cfg Config) (*tcd.Tile, error) {
	nc := int(header.NumComponents)
	if len(componentData) != nc {
		return nil, fmt.Errorf("pipeline: got %d components, header expects %d", len(componentData), nc)
	}

	for c := 0; c < nc; c++ {
		info := header.ComponentInfo[c]
		if !info.IsSigned() {
			mct.DCLevelShiftForward(componentData[c], info.Precision())
		}
	}

	if cfg.MCTEnabled && nc >= 3 {
		if header.CodingStyle.IsReversible() {
			mct.ForwardRCT(componentData[0], componentData[1], componentData[2])
		} else {
			r := int32ToFloat64(componentData[0])
			g := int32ToFloat64(componentData[1])
			b := int32ToFloat64(componentData[2])
			mct.ForwardICT(r, g, b)
			mct.ConvertFloat64ToInt32(r, componentData[0])
			mct.ConvertFloat64ToInt32(g, componentData[1])
			mct.ConvertFloat64ToInt32(b, componentData[2])
		}
	}

	for c := 0; c < nc; c++ {
		info := header.ComponentInfo[c]
		if err := cfg.NLT.forward(componentData[c], info.Precision(), info.IsSigned()); err != nil {
			return nil, fmt.Errorf("pipeline: NLT forward on component %d: %w", c, err)
		}
	}

	enc := tcd.NewTileEncoder(header)
	enc.SetBoundary(cfg.Boundary)
	enc.InitTile(tileIndex, componentData)
	tile := enc.Tile()

	reversible := header.CodingStyle.IsReversible()
	numLevels := int(header.CodingStyle.NumDecompositions)

	for _, comp := range tile.Components {
		if numLevels > 0 {
			if err := enc.ApplyForwardDWT(comp); err != nil {
				return nil, fmt.Errorf("pipeline: forward DWT: %w", err)
			}
		}
		if err := quantizeComponent(comp, numLevels, reversible, enc, cfg); err != nil {
			return nil, err
		}
	}

	return tile, nil
}

// quantizeComponent extracts each subband's coefficients from tc.Data,
// quantizes them with the subband's step size and the configured
// quantizer (identity when lossless), splits the result into
// code-blocks, and hands each block to the tile encoder for entropy
// coding.
func quantizeComponent(comp *tcd.TileComponent, numLevels int, reversible bool, enc *tcd.TileEncoder, cfg Config) error {
	fullWidth := comp.X1 - comp.X0

	for resLevel, res := range comp.Resolutions {
		scale := 1 << (numLevels - resLevel)
		resX0 := numeric.CeilDiv(comp.X0, scale)
		resY0 := numeric.CeilDiv(comp.Y0, scale)

		for _, band := range res.Bands {
			localX0 := band.X0 - resX0
			localY0 := band.Y0 - resY0
			bw := band.X1 - band.X0
			bh := band.Y1 - band.Y0

			coeffs := make([]int32, bw*bh)
			for y := 0; y < bh; y++ {
				for x := 0; x < bw; x++ {
					srcIdx := (localY0+y)*fullWidth + (localX0 + x)
					coeffs[y*bw+x] = comp.Data[srcIdx]
				}
			}

			quantized := coeffs
			if !reversible {
				floatCoeffs := make([]float64, len(coeffs))
				for i, v := range coeffs {
					floatCoeffs[i] = float64(v)
				}
				q, err := quantizeSubband(floatCoeffs, band.StepSize, cfg)
				if err != nil {
					return fmt.Errorf("pipeline: quantize subband: %w", err)
				}
				quantized = q
			}

			for _, cb := range band.CodeBlocks {
				cbLocalX0 := cb.X0 - band.X0
				cbLocalY0 := cb.Y0 - band.Y0
				cw := cb.X1 - cb.X0
				ch := cb.Y1 - cb.Y0

				data := make([]int32, cw*ch)
				for y := 0; y < ch; y++ {
					for x := 0; x < cw; x++ {
						data[y*cw+x] = quantized[(cbLocalY0+y)*bw+(cbLocalX0+x)]
					}
				}
				enc.EncodeCodeBlock(cb, data, band.Type)
			}
		}
	}
	return nil
}

// quantizeSubband applies cfg.Quantizer to one subband's coefficients.
// QuantizerNone still runs the dead-zone quantizer: a 9/7 tile without
// an explicit quantizer choice is not actually lossless, so coefficients
// always need reducing to integers somehow, and dead-zone is the
// standard's default scalar quantizer.
func quantizeSubband(coeffs []float64, step float64, cfg Config) ([]int32, error) {
	if cfg.Quantizer == QuantizerTrellis {
		result, err := quant.TrellisQuantize(coeffs, step, cfg.TrellisLambda, cfg.TrellisNumStates, cfg.TrellisPruningThreshold)
		if err != nil {
			return nil, err
		}
		return result.QuantizedCoefficients, nil
	}
	return quant.Quantize(coeffs, step)
}

// DecodeTile runs the inverse pipeline over a tile whose code-blocks
// already carry entropy-coded data (e.g. from EncodeTile, or
// reconstructed from a parsed codestream), returning one []int32 per
// component at the tile-component's own resolution.
func DecodeTile(header *codestream.Header, tile *tcd.Tile, cfg Config) ([][]int32, error) {
	dec := tcd.NewTileDecoder(header)
	dec.SetBoundary(cfg.Boundary)
	dec.InitTile(tile.Index)
	decTile := dec.Tile()

	reversible := header.CodingStyle.IsReversible()
	numLevels := int(header.CodingStyle.NumDecompositions)

	nc := int(header.NumComponents)
	result := make([][]int32, nc)

	for c := 0; c < nc; c++ {
		srcComp := tile.Components[c]
		dstComp := decTile.Components[c]
		dstComp.Data = make([]int32, len(srcComp.Data))

		if err := dequantizeComponent(srcComp, dstComp, numLevels, reversible, dec); err != nil {
			return nil, err
		}

		if numLevels > 0 {
			if err := dec.ApplyInverseDWT(dstComp); err != nil {
				return nil, fmt.Errorf("pipeline: inverse DWT: %w", err)
			}
		}

		result[c] = dstComp.Data
	}

	if cfg.MCTEnabled && nc >= 3 {
		if header.CodingStyle.IsReversible() {
			mct.InverseRCT(result[0], result[1], result[2])
		} else {
			y := int32ToFloat64(result[0])
			cb := int32ToFloat64(result[1])
			cr := int32ToFloat64(result[2])
			mct.InverseICT(y, cb, cr)
			mct.ConvertFloat64ToInt32(y, result[0])
			mct.ConvertFloat64ToInt32(cb, result[1])
			mct.ConvertFloat64ToInt32(cr, result[2])
		}
	}

	for c := 0; c < nc; c++ {
		info := header.ComponentInfo[c]
		if err := cfg.NLT.inverse(result[c], info.Precision(), info.IsSigned()); err != nil {
			return nil, fmt.Errorf("pipeline: NLT inverse on component %d: %w", c, err)
		}
	}

	for c := 0; c < nc; c++ {
		info := header.ComponentInfo[c]
		if !info.IsSigned() {
			mct.DCLevelShiftInverse(result[c], info.Precision())
		}
	}

	return result, nil
}

// dequantizeComponent decodes every code-block's entropy-coded payload,
// dequantizes it with the subband's step size (identity when lossless),
// and writes the reconstructed coefficients into dst.Data at the
// position quantizeComponent originally extracted them from.
func dequantizeComponent(src, dst *tcd.TileComponent, numLevels int, reversible bool, dec *tcd.TileDecoder) error {
	fullWidth := dst.X1 - dst.X0

	for resLevel, res := range dst.Resolutions {
		scale := 1 << (numLevels - resLevel)
		resX0 := numeric.CeilDiv(dst.X0, scale)
		resY0 := numeric.CeilDiv(dst.Y0, scale)

		srcRes := src.Resolutions[resLevel]
		for bi, band := range res.Bands {
			srcBand := srcRes.Bands[bi]
			bw := band.X1 - band.X0
			bh := band.Y1 - band.Y0
			quantized := make([]int32, bw*bh)

			for cbi, cb := range band.CodeBlocks {
				srcCB := srcBand.CodeBlocks[cbi]
				cb.Data = srcCB.Data
				cb.TotalBitPlanes = srcCB.TotalBitPlanes
				if err := dec.DecodeCodeBlock(cb, band.Type); err != nil {
					return fmt.Errorf("pipeline: decode code-block: %w", err)
				}

				cbLocalX0 := cb.X0 - band.X0
				cbLocalY0 := cb.Y0 - band.Y0
				cw := cb.X1 - cb.X0
				ch := cb.Y1 - cb.Y0
				if len(cb.Coefficients) == 0 {
					// All-zero code-block: entropy coding skips it entirely.
					continue
				}
				for y := 0; y < ch; y++ {
					for x := 0; x < cw; x++ {
						quantized[(cbLocalY0+y)*bw+(cbLocalX0+x)] = cb.Coefficients[y*cw+x]
					}
				}
			}

			coeffs := quantized
			if !reversible {
				floats := quant.Dequantize(quantized, band.StepSize)
				coeffs = make([]int32, len(floats))
				for i, v := range floats {
					if v >= 0 {
						coeffs[i] = int32(v + 0.5)
					} else {
						coeffs[i] = int32(v - 0.5)
					}
				}
			}

			localX0 := band.X0 - resX0
			localY0 := band.Y0 - resY0
			for y := 0; y < bh; y++ {
				for x := 0; x < bw; x++ {
					dstIdx := (localY0+y)*fullWidth + (localX0 + x)
					dst.Data[dstIdx] = coeffs[y*bw+x]
				}
			}
		}
	}
	return nil
}

func int32ToFloat64(src []int32) []float64 {
	dst := make([]float64, len(src))
	mct.ConvertInt32ToFloat64(src, dst)
	return dst
}
