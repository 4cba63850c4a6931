// Package jpeg2000 implements the numerical core of the JPEG 2000 image
// codec (ISO/IEC 15444-1, with High-Throughput block coding per
// ISO/IEC 15444-15): boundary extension, the 5/3 and 9/7 discrete
// wavelet transforms, multi-component and non-linear point transforms,
// quantization, codestream marker segments, and conformance validation.
//
// The package takes no environment variables and performs no filesystem
// I/O. Every operation consumes and produces in-memory byte or sample
// buffers; tier-1 entropy coding is delegated to internal/entropy and
// internal/tcd and exercised through EncodeTile/DecodeTile rather than
// respecified here. Tier-2 packet assembly is not part of this module:
// EncodeTile frames code-blocks with a length-prefixed layout instead.
package jpeg2000

import (
	"math"

	"github.com/corewave/jpeg2000core/internal/codestream"
	"github.com/corewave/jpeg2000core/internal/dwt"
	"github.com/corewave/jpeg2000core/internal/mct"
	"github.com/corewave/jpeg2000core/internal/pipeline"
	"github.com/corewave/jpeg2000core/internal/validate"
)

// ProgressionOrder defines the order in which packets are encoded/decoded.
type ProgressionOrder int

const (
	// LRCP is Layer-Resolution-Component-Position order.
	LRCP ProgressionOrder = iota
	// RLCP is Resolution-Layer-Component-Position order.
	RLCP
	// RPCL is Resolution-Position-Component-Layer order.
	RPCL
	// PCRL is Position-Component-Resolution-Layer order.
	PCRL
	// CPRL is Component-Position-Resolution-Layer order.
	CPRL
)

// String returns the string representation of the progression order.
func (p ProgressionOrder) String() string {
	switch p {
	case LRCP:
		return "LRCP"
	case RLCP:
		return "RLCP"
	case RPCL:
		return "RPCL"
	case PCRL:
		return "PCRL"
	case CPRL:
		return "CPRL"
	default:
		return "Unknown"
	}
}

// Filter selects the wavelet kernel used by the DWT and pipeline stages.
type Filter int

const (
	// Filter53 is the 5/3 reversible (lossless) wavelet.
	Filter53 Filter = iota
	// Filter97 is the 9/7 irreversible (lossy) wavelet.
	Filter97
)

// BoundaryExtension selects how a signal is extended past its edges.
type BoundaryExtension = dwt.BoundaryExtension

const (
	BoundarySymmetric   = dwt.BoundarySymmetric
	BoundaryPeriodic    = dwt.BoundaryPeriodic
	BoundaryZeroPadding = dwt.BoundaryZeroPadding
)

// QuantizerKind selects the per-subband quantizer a Config uses.
type QuantizerKind int

const (
	// QuantizerNone performs no quantization (identity, used for Filter53).
	QuantizerNone QuantizerKind = iota
	// QuantizerDeadZone is the scalar dead-zone quantizer of spec.md §4.6.
	QuantizerDeadZone
	// QuantizerTrellis is the Viterbi-searched trellis-coded quantizer
	// of spec.md §6, trading extra search cost for a better
	// rate/distortion point than plain dead-zone quantization.
	QuantizerTrellis
)

// Tile is the canonical sample buffer this package operates on: one
// tile's worth of component data, at the tile's own resolution, in
// raster order. It is the unit EncodeTile consumes and DecodeTile
// produces.
type Tile struct {
	Width, Height int
	NumComponents int
	Precision     []int
	Signed        []bool
	Components    [][]int32
}

// Config selects the optional pipeline stages and coding parameters for
// EncodeTile. Unrecognized enum values fail with InvalidParameter.
type Config struct {
	Filter             Filter
	NumDecompositions  int
	UseMCT             bool
	Quantizer          QuantizerKind
	BaseStepSize       float64
	Boundary           BoundaryExtension
	NLT                *pipeline.NLTSpec
	ProgressionOrder   ProgressionOrder
	NumLayers          int
	CodeBlockWidthExp  uint8
	CodeBlockHeightExp uint8
	HighThroughput     bool
	Comment            string

	// Trellis* configure QuantizerTrellis; zero values fall back to
	// TrellisLambda=1, TrellisNumStates=4, no pruning.
	TrellisLambda           float64
	TrellisNumStates        int
	TrellisPruningThreshold float64
}

// DefaultConfig returns a lossless single-layer configuration: 5/3
// wavelet, no MCT, no quantization (identity), symmetric boundary.
func DefaultConfig() Config {
	return Config{
		Filter:             Filter53,
		NumDecompositions:  5,
		Quantizer:          QuantizerNone,
		Boundary:           BoundarySymmetric,
		ProgressionOrder:   LRCP,
		NumLayers:          1,
		CodeBlockWidthExp:  4,
		CodeBlockHeightExp: 4,
	}
}

func (c Config) validate(t *Tile) error {
	if t.Width <= 0 || t.Height <= 0 {
		return newError(InvalidParameter, "tile dimensions must be positive")
	}
	if t.NumComponents <= 0 {
		return newError(InvalidParameter, "component count must be positive")
	}
	if len(t.Components) != t.NumComponents || len(t.Precision) != t.NumComponents || len(t.Signed) != t.NumComponents {
		return newError(InvalidParameter, "mismatched per-component array lengths")
	}
	for i, p := range t.Precision {
		if p < 1 || p > 16 {
			return newErrorAt(InvalidParameter, i, "bit depth out of range 1..16")
		}
	}
	if c.ProgressionOrder > CPRL {
		return newError(InvalidParameter, "progression order out of range")
	}
	if (c.Quantizer == QuantizerDeadZone || c.Quantizer == QuantizerTrellis) && c.BaseStepSize <= 0 {
		return newError(InvalidParameter, "dead-zone and trellis quantizers require a positive base step size")
	}
	return nil
}

func (c Config) header(t *Tile) *codestream.Header {
	comps := make([]codestream.ComponentInfo, t.NumComponents)
	for i := range comps {
		bitDepth := uint8(t.Precision[i] - 1)
		if t.Signed[i] {
			bitDepth |= 0x80
		}
		comps[i] = codestream.ComponentInfo{BitDepth: bitDepth, SubsamplingX: 1, SubsamplingY: 1}
	}

	wavelet := uint8(0)
	if c.Filter == Filter53 {
		wavelet = 1
	}

	style := codestream.QuantizationNone
	switch c.Quantizer {
	case QuantizerDeadZone, QuantizerTrellis:
		style = codestream.QuantizationScalarExpounded
	}

	baseStep := c.BaseStepSize
	if baseStep <= 0 {
		baseStep = 1
	}
	numBands := 3*c.NumDecompositions + 1
	qcdSteps := make([]codestream.StepSize, numBands)
	for i := range qcdSteps {
		qcdSteps[i] = stepSizeFromValue(baseStep)
	}

	cbStyle := uint8(0)
	if c.HighThroughput {
		cbStyle |= codestream.CodeBlockHT
	}

	return &codestream.Header{
		ImageWidth:    uint32(t.Width),
		ImageHeight:   uint32(t.Height),
		TileWidth:     uint32(t.Width),
		TileHeight:    uint32(t.Height),
		NumComponents: uint16(t.NumComponents),
		ComponentInfo: comps,
		CodingStyle: codestream.CodingStyleDefault{
			ProgressionOrder:   uint8(c.ProgressionOrder),
			NumLayers:          uint16(c.NumLayers),
			NumDecompositions:  uint8(c.NumDecompositions),
			CodeBlockWidthExp:  c.CodeBlockWidthExp,
			CodeBlockHeightExp: c.CodeBlockHeightExp,
			CodeBlockStyle:     cbStyle,
			WaveletTransform:   wavelet,
		},
		Quantization: codestream.QuantizationDefault{
			QuantizationStyle: style,
			StepSizes:         qcdSteps,
		},
	}
}

// stepSizeFromValue encodes a desired floating-point step size as the
// 5-bit-exponent/11-bit-mantissa QCD representation of ISO/IEC
// 15444-1 Annex A.6.4, inverting StepSize.Value's
// (1+Mantissa/2048)*2^(31-Exponent) formula with Mantissa left at 0.
func stepSizeFromValue(v float64) codestream.StepSize {
	if v <= 0 {
		return codestream.StepSize{Exponent: 31}
	}
	exp := 31 - int(math.Floor(math.Log2(v)))
	if exp < 0 {
		exp = 0
	}
	if exp > 31 {
		exp = 31
	}
	return codestream.StepSize{Exponent: uint8(exp)}
}

func toPipelineConfig(c Config) pipeline.Config {
	quantizer := pipeline.QuantizerNone
	switch c.Quantizer {
	case QuantizerDeadZone:
		quantizer = pipeline.QuantizerDeadZone
	case QuantizerTrellis:
		quantizer = pipeline.QuantizerTrellis
	}

	lambda := c.TrellisLambda
	if lambda <= 0 {
		lambda = 1
	}
	numStates := c.TrellisNumStates
	if numStates < 2 {
		numStates = 4
	}

	return pipeline.Config{
		MCTEnabled:              c.UseMCT,
		NLT:                     c.NLT,
		Boundary:                c.Boundary,
		Quantizer:               quantizer,
		TrellisLambda:           lambda,
		TrellisNumStates:        numStates,
		TrellisPruningThreshold: c.TrellisPruningThreshold,
	}
}

// DWTForward2D applies the forward multi-level 2D wavelet transform to
// data (width*height samples, row-major) in place, using the 5/3 kernel
// for int32 data.
func DWTForward2D(data []int32, width, height, levels int, boundary BoundaryExtension) error {
	if err := dwt.DecomposeMultiLevel53(data, width, height, levels, boundary); err != nil {
		return newError(InvalidParameter, err.Error())
	}
	return nil
}

// DWTInverse2D is the inverse of DWTForward2D.
func DWTInverse2D(data []int32, width, height, levels int, boundary BoundaryExtension) error {
	if err := dwt.ReconstructMultiLevel53(data, width, height, levels, boundary); err != nil {
		return newError(InvalidParameter, err.Error())
	}
	return nil
}

// DWTForward2DFloat applies the forward multi-level 2D wavelet transform
// using the 9/7 kernel for float64 data.
func DWTForward2DFloat(data []float64, width, height, levels int, boundary BoundaryExtension) error {
	if err := dwt.DecomposeMultiLevel97(data, width, height, levels, boundary); err != nil {
		return newError(InvalidParameter, err.Error())
	}
	return nil
}

// DWTInverse2DFloat is the inverse of DWTForward2DFloat.
func DWTInverse2DFloat(data []float64, width, height, levels int, boundary BoundaryExtension) error {
	if err := dwt.ReconstructMultiLevel97(data, width, height, levels, boundary); err != nil {
		return newError(InvalidParameter, err.Error())
	}
	return nil
}

// MCTForward applies the reversible color transform (RCT) to three
// integer components in place.
func MCTForward(r, g, b []int32) error {
	if len(r) != len(g) || len(g) != len(b) {
		return newError(InvalidParameter, "mismatched component lengths")
	}
	mct.ForwardRCT(r, g, b)
	return nil
}

// MCTInverse is the inverse of MCTForward.
func MCTInverse(y, u, v []int32) error {
	if len(y) != len(u) || len(u) != len(v) {
		return newError(InvalidParameter, "mismatched component lengths")
	}
	mct.InverseRCT(y, u, v)
	return nil
}

// MCTForwardFloat applies the irreversible color transform (ICT) to
// three float64 components in place.
func MCTForwardFloat(r, g, b []float64) error {
	if len(r) != len(g) || len(g) != len(b) {
		return newError(InvalidParameter, "mismatched component lengths")
	}
	mct.ForwardICT(r, g, b)
	return nil
}

// MCTInverseFloat is the inverse of MCTForwardFloat.
func MCTInverseFloat(y, cb, cr []float64) error {
	if len(y) != len(cb) || len(cb) != len(cr) {
		return newError(InvalidParameter, "mismatched component lengths")
	}
	mct.InverseICT(y, cb, cr)
	return nil
}

// ValidationReport carries the complete list of conformance issues
// found while validating a codestream; issues are accumulated rather
// than returned on first failure.
type ValidationReport struct {
	IsCompliant bool
	Issues      []ValidationIssue
}

// ValidationIssue is a single conformance issue found during Validate,
// with Position set to the byte offset it was found at (-1 when not
// tied to a specific offset).
type ValidationIssue struct {
	Position int
	Reason   string
}

// Validate checks a codestream's marker structure and parameter
// ranges, returning a report that accumulates every issue found rather
// than failing on the first one.
func Validate(data []byte) *ValidationReport {
	r := validate.ValidateCodestream(data)
	report := &ValidationReport{IsCompliant: r.IsCompliant}
	for _, issue := range r.Errors {
		report.Issues = append(report.Issues, ValidationIssue{Position: issue.Position, Reason: issue.Reason})
	}
	return report
}
