package jpeg2000

import (
	"encoding/binary"

	"github.com/corewave/jpeg2000core/internal/codestream"
	"github.com/corewave/jpeg2000core/internal/pipeline"
	"github.com/corewave/jpeg2000core/internal/tcd"
)

// EncodeTile runs the full forward pipeline over t (DC level shift,
// optional MCT, optional NLT, multi-level DWT, per-subband
// quantization, tier-1 entropy coding) and assembles the result into a
// single-tile codestream: SOC, main header markers, one SOT/SOD tile
// part, EOC.
//
// Tile-part bitstream framing (the concatenation of entropy-coded
// code-blocks after SOD) uses a length-prefixed per-code-block layout
// rather than the tag-tree packet headers of ISO/IEC 15444-1 Annex B;
// tier-2 packet assembly is delegated to an external subsystem and is
// not respecified here. DecodeTile understands this same layout.
func EncodeTile(t Tile, cfg Config) ([]byte, error) {
	if err := cfg.validate(&t); err != nil {
		return nil, err
	}

	header := cfg.header(&t)
	if err := header.Validate(); err != nil {
		return nil, newError(InvalidParameter, err.Error())
	}
	header.CalculateDerivedValues()

	componentData := make([][]int32, t.NumComponents)
	for i, comp := range t.Components {
		componentData[i] = append([]int32(nil), comp...)
	}

	tile, err := pipeline.EncodeTile(header, 0, componentData, toPipelineConfig(cfg))
	if err != nil {
		return nil, newError(InvalidParameter, err.Error())
	}

	buf, err := codestream.WriteMainHeader(header, cfg.HighThroughput, cfg.Comment)
	if err != nil {
		return nil, newError(InvalidParameter, err.Error())
	}

	tileData := encodeTileBitstream(tile)
	buf = codestream.WriteSOT(buf, 0, uint32(len(tileData)+12), 0, 1)
	buf = codestream.WriteSOD(buf)
	buf = append(buf, tileData...)
	buf = codestream.WriteEOC(buf)

	return buf, nil
}

// encodeTileBitstream concatenates every code-block's entropy-coded
// payload in the deterministic order tcd.TileEncoder/TileDecoder both
// walk (component, resolution, band, code-block), each framed with its
// bitplane counts and byte length so DecodeTile can split them back out
// without re-deriving subband geometry from the payload itself.
func encodeTileBitstream(tile *tcd.Tile) []byte {
	var buf []byte
	for _, comp := range tile.Components {
		for _, res := range comp.Resolutions {
			for _, band := range res.Bands {
				for _, cb := range band.CodeBlocks {
					var header [6]byte
					header[0] = uint8(cb.TotalBitPlanes)
					header[1] = uint8(cb.ZeroBitPlanes)
					binary.BigEndian.PutUint32(header[2:6], uint32(len(cb.Data)))
					buf = append(buf, header[:]...)
					buf = append(buf, cb.Data...)
				}
			}
		}
	}
	return buf
}
