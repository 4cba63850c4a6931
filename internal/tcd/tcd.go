// Package tcd implements the tile coder/decoder.
//
// The TCD orchestrates per-tile processing once a tile's samples have
// passed through the DC level shift, MCT and NLT stages: it splits each
// tile-component's subbands into code-blocks, drives the wavelet
// transform, derives per-subband quantization step sizes, and hands code-block
// coefficient arrays to the entropy-coding subsystem. Packet and
// precinct assembly (tier-2) is outside this package's responsibility;
// the orchestrator in internal/pipeline consumes encoded code-blocks
// directly.
package tcd

import (
	"github.com/corewave/jpeg2000core/internal/codestream"
	"github.com/corewave/jpeg2000core/internal/dwt"
	"github.com/corewave/jpeg2000core/internal/entropy"
	"github.com/corewave/jpeg2000core/internal/quant"
)

// Tile represents a single tile in the image.
type Tile struct {
	// Tile index
	Index int

	// Tile bounds in image coordinates
	X0, Y0, X1, Y1 int

	// Components
	Components []*TileComponent
}

// TileComponent represents a single component within a tile.
type TileComponent struct {
	// Component index
	Index int

	// Component bounds (may differ due to subsampling)
	X0, Y0, X1, Y1 int

	// Resolution levels
	Resolutions []*Resolution

	// Coefficient data
	Data []int32

	// Floating point data for the 9/7 transform
	DataFloat []float64
}

// Resolution represents a resolution level within a tile-component.
type Resolution struct {
	// Resolution level (0 = coarsest LL)
	Level int

	// Bounds at this resolution
	X0, Y0, X1, Y1 int

	// Number of bands (1 for LL, 3 otherwise)
	NumBands int

	// Bands at this resolution
	Bands []*Band
}

// Band represents a subband within a resolution level.
type Band struct {
	// Band type (LL, HL, LH, HH)
	Type int

	// Band bounds
	X0, Y0, X1, Y1 int

	// Quantization step size derived for this subband
	StepSize float64

	// Code-blocks
	CodeBlocks []*CodeBlock

	// Code-block grid dimensions
	CodeBlocksX, CodeBlocksY int
}

// CodeBlock represents a code-block for entropy coding.
type CodeBlock struct {
	// Code-block index within its band
	Index int

	// Bounds
	X0, Y0, X1, Y1 int

	// Encoded data
	Data []byte

	// Number of zero bit-planes signaled for this block
	ZeroBitPlanes int

	// Total number of bit-planes
	TotalBitPlanes int

	// Decoded (dequantized-pending) coefficient data
	Coefficients []int32
}

// TileDecoder decodes a single tile.
type TileDecoder struct {
	header   *codestream.Header
	tile     *Tile
	htj2k    bool
	boundary dwt.BoundaryExtension
}

// NewTileDecoder creates a new tile decoder.
func NewTileDecoder(header *codestream.Header) *TileDecoder {
	return &TileDecoder{
		header:   header,
		htj2k:    header.IsHTJ2K(),
		boundary: dwt.BoundarySymmetric,
	}
}

// SetHTJ2K sets whether this decoder uses High-Throughput block coding.
func (d *TileDecoder) SetHTJ2K(htj2k bool) {
	d.htj2k = htj2k
}

// SetBoundary sets the edge-extension mode ApplyInverseDWT uses; it
// must match the mode the tile was encoded with.
func (d *TileDecoder) SetBoundary(mode dwt.BoundaryExtension) {
	d.boundary = mode
}

// Tile returns the tile currently being decoded.
func (d *TileDecoder) Tile() *Tile {
	return d.tile
}

// InitTile initializes a tile for decoding, building the resolution,
// band and code-block grid for every component.
func (d *TileDecoder) InitTile(tileIndex int) {
	h := d.header

	tileX := tileIndex % int(h.NumTilesX)
	tileY := tileIndex / int(h.NumTilesX)

	x0 := max(int(h.TileXOffset)+tileX*int(h.TileWidth), int(h.ImageXOffset))
	y0 := max(int(h.TileYOffset)+tileY*int(h.TileHeight), int(h.ImageYOffset))
	x1 := min(int(h.TileXOffset)+(tileX+1)*int(h.TileWidth), int(h.ImageWidth))
	y1 := min(int(h.TileYOffset)+(tileY+1)*int(h.TileHeight), int(h.ImageHeight))

	d.tile = &Tile{
		Index:      tileIndex,
		X0:         x0,
		Y0:         y0,
		X1:         x1,
		Y1:         y1,
		Components: make([]*TileComponent, h.NumComponents),
	}

	for c := 0; c < int(h.NumComponents); c++ {
		comp := h.ComponentInfo[c]

		cx0 := ceilDiv(x0, int(comp.SubsamplingX))
		cy0 := ceilDiv(y0, int(comp.SubsamplingY))
		cx1 := ceilDiv(x1, int(comp.SubsamplingX))
		cy1 := ceilDiv(y1, int(comp.SubsamplingY))

		tc := &TileComponent{
			Index: c,
			X0:    cx0,
			Y0:    cy0,
			X1:    cx1,
			Y1:    cy1,
		}

		width := cx1 - cx0
		height := cy1 - cy0
		tc.Data = make([]int32, width*height)

		numRes := int(h.CodingStyle.NumDecompositions) + 1
		tc.Resolutions = make([]*Resolution, numRes)

		for r := 0; r < numRes; r++ {
			d.initResolution(tc, r)
		}

		d.tile.Components[c] = tc
	}
}

// initResolution initializes a resolution level and its bands.
func (d *TileDecoder) initResolution(tc *TileComponent, resLevel int) {
	h := d.header.CodingStyle

	scale := 1 << (int(h.NumDecompositions) - resLevel)
	rx0 := ceilDiv(tc.X0, scale)
	ry0 := ceilDiv(tc.Y0, scale)
	rx1 := ceilDiv(tc.X1, scale)
	ry1 := ceilDiv(tc.Y1, scale)

	res := &Resolution{
		Level: resLevel,
		X0:    rx0,
		Y0:    ry0,
		X1:    rx1,
		Y1:    ry1,
	}

	if resLevel == 0 {
		res.NumBands = 1
		res.Bands = []*Band{d.initBand(res, entropy.BandLL, resLevel)}
	} else {
		res.NumBands = 3
		res.Bands = []*Band{
			d.initBand(res, entropy.BandHL, resLevel),
			d.initBand(res, entropy.BandLH, resLevel),
			d.initBand(res, entropy.BandHH, resLevel),
		}
	}

	tc.Resolutions[resLevel] = res
}

// initBand initializes a band, its quantization step and its code-block grid.
func (d *TileDecoder) initBand(res *Resolution, bandType int, resLevel int) *Band {
	h := d.header.CodingStyle
	q := d.header.Quantization

	band := &Band{Type: bandType}

	switch bandType {
	case entropy.BandLL:
		band.X0, band.Y0, band.X1, band.Y1 = res.X0, res.Y0, res.X1, res.Y1
	case entropy.BandHL:
		band.X0, band.Y0 = res.X0, res.Y0
		band.X1, band.Y1 = res.X1, (res.Y0+res.Y1)/2
	case entropy.BandLH:
		band.X0, band.Y0 = res.X0, res.Y0
		band.X1, band.Y1 = (res.X0+res.X1)/2, res.Y1
	case entropy.BandHH:
		band.X0, band.Y0 = (res.X0+res.X1)/2, (res.Y0+res.Y1)/2
		band.X1, band.Y1 = res.X1, res.Y1
	}

	band.StepSize = quant.SubbandStepSize(q, subbandKind(bandType), resLevel, int(h.NumDecompositions), h.IsReversible())

	cbWidth := 1 << (h.CodeBlockWidthExp + 2)
	cbHeight := 1 << (h.CodeBlockHeightExp + 2)

	band.CodeBlocksX = ceilDiv(band.X1-band.X0, cbWidth)
	band.CodeBlocksY = ceilDiv(band.Y1-band.Y0, cbHeight)

	numCB := band.CodeBlocksX * band.CodeBlocksY
	band.CodeBlocks = make([]*CodeBlock, numCB)

	for i := 0; i < numCB; i++ {
		cbX := i % band.CodeBlocksX
		cbY := i / band.CodeBlocksX

		band.CodeBlocks[i] = &CodeBlock{
			Index: i,
			X0:    band.X0 + cbX*cbWidth,
			Y0:    band.Y0 + cbY*cbHeight,
			X1:    min(band.X0+(cbX+1)*cbWidth, band.X1),
			Y1:    min(band.Y0+(cbY+1)*cbHeight, band.Y1),
		}
	}

	return band
}

// subbandKind maps an entropy band constant to a quant.Subband.
func subbandKind(bandType int) quant.Subband {
	switch bandType {
	case entropy.BandLL:
		return quant.SubbandLL
	case entropy.BandHL:
		return quant.SubbandHL
	case entropy.BandLH:
		return quant.SubbandLH
	default:
		return quant.SubbandHH
	}
}

// DecodeCodeBlock entropy-decodes a single code-block into raw quantized
// coefficients; the caller is responsible for dequantizing with the
// band's StepSize before reconstruction.
func (d *TileDecoder) DecodeCodeBlock(cb *CodeBlock, bandType int) error {
	if len(cb.Data) == 0 {
		return nil
	}

	width := cb.X1 - cb.X0
	height := cb.Y1 - cb.Y0

	if d.htj2k {
		htDec := entropy.GetHTDecoder(width, height)
		cb.Coefficients = htDec.Decode(cb.Data, cb.TotalBitPlanes, bandType)
		entropy.PutHTDecoder(htDec)
	} else {
		t1 := entropy.NewT1(width, height)
		cb.Coefficients = t1.Decode(cb.Data, cb.TotalBitPlanes, bandType)
	}

	return nil
}

// ApplyInverseDWT applies the inverse wavelet transform to a tile-component
// after its code-blocks have been decoded, dequantized and reassembled
// into tc.Data.
func (d *TileDecoder) ApplyInverseDWT(tc *TileComponent) error {
	h := d.header.CodingStyle
	numLevels := int(h.NumDecompositions)

	width := tc.X1 - tc.X0
	height := tc.Y1 - tc.Y0

	if h.IsReversible() {
		return dwt.ReconstructMultiLevel53(tc.Data, width, height, numLevels, d.boundary)
	}

	tc.DataFloat = make([]float64, len(tc.Data))
	for i, v := range tc.Data {
		tc.DataFloat[i] = float64(v)
	}
	if err := dwt.ReconstructMultiLevel97(tc.DataFloat, width, height, numLevels, d.boundary); err != nil {
		return err
	}
	for i, v := range tc.DataFloat {
		tc.Data[i] = int32(v + 0.5)
	}
	return nil
}

// TileEncoder encodes a single tile.
type TileEncoder struct {
	header   *codestream.Header
	tile     *Tile
	htj2k    bool
	boundary dwt.BoundaryExtension
}

// NewTileEncoder creates a new tile encoder.
func NewTileEncoder(header *codestream.Header) *TileEncoder {
	return &TileEncoder{
		header:   header,
		htj2k:    header.IsHTJ2K(),
		boundary: dwt.BoundarySymmetric,
	}
}

// SetHTJ2K sets whether this encoder uses High-Throughput block coding.
func (e *TileEncoder) SetHTJ2K(htj2k bool) {
	e.htj2k = htj2k
}

// SetBoundary sets the edge-extension mode ApplyForwardDWT uses.
func (e *TileEncoder) SetBoundary(mode dwt.BoundaryExtension) {
	e.boundary = mode
}

// Tile returns the tile initialized by InitTile.
func (e *TileEncoder) Tile() *Tile {
	return e.tile
}

// InitTile initializes a tile for encoding with the given per-component
// sample data (post DC-shift, post-MCT, post-NLT).
func (e *TileEncoder) InitTile(tileIndex int, componentData [][]int32) {
	h := e.header

	tileX := tileIndex % int(h.NumTilesX)
	tileY := tileIndex / int(h.NumTilesX)

	x0 := max(int(h.TileXOffset)+tileX*int(h.TileWidth), int(h.ImageXOffset))
	y0 := max(int(h.TileYOffset)+tileY*int(h.TileHeight), int(h.ImageYOffset))
	x1 := min(int(h.TileXOffset)+(tileX+1)*int(h.TileWidth), int(h.ImageWidth))
	y1 := min(int(h.TileYOffset)+(tileY+1)*int(h.TileHeight), int(h.ImageHeight))

	e.tile = &Tile{
		Index:      tileIndex,
		X0:         x0,
		Y0:         y0,
		X1:         x1,
		Y1:         y1,
		Components: make([]*TileComponent, h.NumComponents),
	}

	for c := 0; c < int(h.NumComponents); c++ {
		comp := h.ComponentInfo[c]

		cx0 := ceilDiv(x0, int(comp.SubsamplingX))
		cy0 := ceilDiv(y0, int(comp.SubsamplingY))
		cx1 := ceilDiv(x1, int(comp.SubsamplingX))
		cy1 := ceilDiv(y1, int(comp.SubsamplingY))

		tc := &TileComponent{
			Index: c,
			X0:    cx0,
			Y0:    cy0,
			X1:    cx1,
			Y1:    cy1,
			Data:  componentData[c],
		}

		numRes := int(h.CodingStyle.NumDecompositions) + 1
		tc.Resolutions = make([]*Resolution, numRes)
		for r := 0; r < numRes; r++ {
			e.initResolution(tc, r)
		}

		e.tile.Components[c] = tc
	}
}

// initResolution mirrors the decoder's grid construction so the encoder
// can derive identical band bounds, step sizes and code-block geometry.
func (e *TileEncoder) initResolution(tc *TileComponent, resLevel int) {
	d := &TileDecoder{header: e.header, htj2k: e.htj2k}
	d.initResolution(tc, resLevel)
}

// ApplyForwardDWT applies the forward wavelet transform to a tile-component.
func (e *TileEncoder) ApplyForwardDWT(tc *TileComponent) error {
	h := e.header.CodingStyle
	numLevels := int(h.NumDecompositions)

	width := tc.X1 - tc.X0
	height := tc.Y1 - tc.Y0

	if h.IsReversible() {
		return dwt.DecomposeMultiLevel53(tc.Data, width, height, numLevels, e.boundary)
	}

	tc.DataFloat = make([]float64, len(tc.Data))
	for i, v := range tc.Data {
		tc.DataFloat[i] = float64(v)
	}
	if err := dwt.DecomposeMultiLevel97(tc.DataFloat, width, height, numLevels, e.boundary); err != nil {
		return err
	}
	for i, v := range tc.DataFloat {
		if v >= 0 {
			tc.Data[i] = int32(v + 0.5)
		} else {
			tc.Data[i] = int32(v - 0.5)
		}
	}
	return nil
}

// EncodeCodeBlock entropy-encodes a single code-block's quantized data.
func (e *TileEncoder) EncodeCodeBlock(cb *CodeBlock, data []int32, bandType int) {
	width := cb.X1 - cb.X0
	height := cb.Y1 - cb.Y0

	if e.htj2k {
		htEnc := entropy.GetHTEncoder(width, height)
		htEnc.SetData(data)
		cb.Data = htEnc.Encode(bandType)
		cb.TotalBitPlanes = htEnc.NumBitplanes()
		entropy.PutHTEncoder(htEnc)
	} else {
		t1 := entropy.NewT1(width, height)
		t1.SetData(data)
		cb.Data = t1.Encode(bandType)
		cb.TotalBitPlanes = t1.NumBitplanes()
	}
}

// Helper functions

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
