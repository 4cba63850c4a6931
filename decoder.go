package jpeg2000

import (
	"bytes"
	"encoding/binary"

	"github.com/corewave/jpeg2000core/internal/codestream"
	"github.com/corewave/jpeg2000core/internal/pipeline"
	"github.com/corewave/jpeg2000core/internal/tcd"
)

var errShortTileData = newError(InvalidCodestream, "truncated tile-part bitstream")

// DecodeTile parses a single-tile codestream produced by EncodeTile (or
// any codestream using the same tile-part bitstream framing) and runs
// the full inverse pipeline, returning the reconstructed Tile.
func DecodeTile(data []byte, cfg Config) (Tile, error) {
	parser := codestream.NewParser(bytes.NewReader(data))
	header, err := parser.ReadHeader()
	if err != nil {
		return Tile{}, newError(InvalidCodestream, err.Error())
	}

	sodOffset := bytes.Index(data, []byte{0xFF, 0x93})
	if sodOffset < 0 {
		return Tile{}, newError(InvalidCodestream, "missing SOD marker")
	}
	eocOffset := bytes.LastIndex(data, []byte{0xFF, 0xD9})
	if eocOffset < 0 || eocOffset < sodOffset {
		return Tile{}, newError(InvalidCodestream, "missing EOC marker")
	}
	tileData := data[sodOffset+2 : eocOffset]

	dec := tcd.NewTileDecoder(header)
	dec.SetHTJ2K(header.IsHTJ2K())
	dec.InitTile(0)
	tile := dec.Tile()
	if err := decodeTileBitstream(tile, tileData); err != nil {
		return Tile{}, newError(InvalidCodestream, err.Error())
	}

	result, err := pipeline.DecodeTile(header, tile, toPipelineConfig(cfg))
	if err != nil {
		return Tile{}, newError(PrecisionViolation, err.Error())
	}

	t := Tile{
		Width:         int(header.ImageWidth),
		Height:        int(header.ImageHeight),
		NumComponents: int(header.NumComponents),
		Precision:     make([]int, header.NumComponents),
		Signed:        make([]bool, header.NumComponents),
		Components:    result,
	}
	for i, info := range header.ComponentInfo {
		t.Precision[i] = info.Precision()
		t.Signed[i] = info.IsSigned()
	}
	return t, nil
}

// decodeTileBitstream splits tileData (as framed by encodeTileBitstream)
// back into each code-block's Data/ZeroBitPlanes/TotalBitPlanes fields,
// walking the tile's geometry in the same deterministic order it was
// written in.
func decodeTileBitstream(tile *tcd.Tile, tileData []byte) error {
	offset := 0
	for _, comp := range tile.Components {
		for _, res := range comp.Resolutions {
			for _, band := range res.Bands {
				for _, cb := range band.CodeBlocks {
					if offset+6 > len(tileData) {
						return errShortTileData
					}
					cb.TotalBitPlanes = int(tileData[offset])
					cb.ZeroBitPlanes = int(tileData[offset+1])
					length := int(binary.BigEndian.Uint32(tileData[offset+2 : offset+6]))
					offset += 6
					if offset+length > len(tileData) {
						return errShortTileData
					}
					if length > 0 {
						cb.Data = tileData[offset : offset+length]
					}
					offset += length
				}
			}
		}
	}
	return nil
}
