package codestream

import (
	"encoding/binary"
	"fmt"
)

// WriteSOC appends the start-of-codestream marker.
func WriteSOC(buf []byte) []byte {
	return append(buf, 0xFF, 0x4F)
}

// WriteEOC appends the end-of-codestream marker.
func WriteEOC(buf []byte) []byte {
	return append(buf, 0xFF, 0xD9)
}

// WriteSIZ appends the SIZ marker segment describing h's image, tile
// and per-component geometry.
func WriteSIZ(buf []byte, h *Header) []byte {
	numComp := int(h.NumComponents)
	length := 38 + 3*numComp

	seg := make([]byte, 2+length)
	binary.BigEndian.PutUint16(seg[0:2], uint16(SIZ))
	binary.BigEndian.PutUint16(seg[2:4], uint16(length))

	binary.BigEndian.PutUint16(seg[4:6], h.Profile)
	binary.BigEndian.PutUint32(seg[6:10], h.ImageWidth)
	binary.BigEndian.PutUint32(seg[10:14], h.ImageHeight)
	binary.BigEndian.PutUint32(seg[14:18], h.ImageXOffset)
	binary.BigEndian.PutUint32(seg[18:22], h.ImageYOffset)
	binary.BigEndian.PutUint32(seg[22:26], h.TileWidth)
	binary.BigEndian.PutUint32(seg[26:30], h.TileHeight)
	binary.BigEndian.PutUint32(seg[30:34], h.TileXOffset)
	binary.BigEndian.PutUint32(seg[34:38], h.TileYOffset)
	binary.BigEndian.PutUint16(seg[38:40], uint16(numComp))

	for c := 0; c < numComp; c++ {
		offset := 40 + c*3
		info := h.ComponentInfo[c]
		seg[offset] = info.BitDepth
		seg[offset+1] = info.SubsamplingX
		seg[offset+2] = info.SubsamplingY
	}

	return append(buf, seg...)
}

// WriteCOD appends the COD marker segment describing h's default coding
// style. Precinct sizes are written only when CodingStylePrecincts is set.
func WriteCOD(buf []byte, h *Header) []byte {
	cs := h.CodingStyle

	length := 12
	if cs.CodingStyle&CodingStylePrecincts != 0 {
		length += len(cs.PrecinctSizes)
	}

	seg := make([]byte, 2+length)
	binary.BigEndian.PutUint16(seg[0:2], uint16(COD))
	binary.BigEndian.PutUint16(seg[2:4], uint16(length))

	seg[4] = cs.CodingStyle
	seg[5] = cs.ProgressionOrder
	binary.BigEndian.PutUint16(seg[6:8], cs.NumLayers)
	seg[8] = cs.MultipleComponentXf
	seg[9] = cs.NumDecompositions
	seg[10] = cs.CodeBlockWidthExp
	seg[11] = cs.CodeBlockHeightExp
	seg[12] = cs.CodeBlockStyle
	seg[13] = cs.WaveletTransform

	if cs.CodingStyle&CodingStylePrecincts != 0 {
		for i, p := range cs.PrecinctSizes {
			seg[14+i] = p.WidthExp | (p.HeightExp << 4)
		}
	}

	return append(buf, seg...)
}

// WriteQCD appends the QCD marker segment describing h's default
// quantization, honoring the style encoded in QuantizationStyle.
func WriteQCD(buf []byte, h *Header) []byte {
	q := h.Quantization
	style := q.Style()

	var seg []byte
	switch style {
	case QuantizationNone:
		length := 3 + len(q.StepSizes)
		seg = make([]byte, 2+length)
		binary.BigEndian.PutUint16(seg[0:2], uint16(QCD))
		binary.BigEndian.PutUint16(seg[2:4], uint16(length))
		seg[4] = q.QuantizationStyle
		for i, s := range q.StepSizes {
			seg[5+i] = uint8(s.Exponent) << 3
		}
	case QuantizationScalarDerived:
		length := 5
		seg = make([]byte, 2+length)
		binary.BigEndian.PutUint16(seg[0:2], uint16(QCD))
		binary.BigEndian.PutUint16(seg[2:4], uint16(length))
		seg[4] = q.QuantizationStyle
		if len(q.StepSizes) > 0 {
			binary.BigEndian.PutUint16(seg[5:7], stepSizeWord(q.StepSizes[0]))
		}
	default: // QuantizationScalarExpounded
		length := 3 + 2*len(q.StepSizes)
		seg = make([]byte, 2+length)
		binary.BigEndian.PutUint16(seg[0:2], uint16(QCD))
		binary.BigEndian.PutUint16(seg[2:4], uint16(length))
		seg[4] = q.QuantizationStyle
		for i, s := range q.StepSizes {
			binary.BigEndian.PutUint16(seg[5+2*i:7+2*i], stepSizeWord(s))
		}
	}

	return append(buf, seg...)
}

func stepSizeWord(s StepSize) uint16 {
	return (uint16(s.Exponent) << 11) | (s.Mantissa & 0x07FF)
}

// WriteCAP appends the CAP (extended capabilities) marker segment. This
// marker is required whenever a codestream uses the HTJ2K block coder.
func WriteCAP(buf []byte, pcap uint32) []byte {
	const length = 6
	seg := make([]byte, 2+length)
	binary.BigEndian.PutUint16(seg[0:2], uint16(CAP))
	binary.BigEndian.PutUint16(seg[2:4], uint16(length))
	binary.BigEndian.PutUint32(seg[4:8], pcap)
	return append(buf, seg...)
}

// WriteCPF appends the CPF (corresponding profile) marker segment, Part
// 15, restating the HT profile alongside the CAP marker's capability bit.
func WriteCPF(buf []byte, pcpf []uint16) []byte {
	length := 2 + 2*len(pcpf)
	seg := make([]byte, 2+length)
	binary.BigEndian.PutUint16(seg[0:2], uint16(CPF))
	binary.BigEndian.PutUint16(seg[2:4], uint16(length))
	for i, p := range pcpf {
		binary.BigEndian.PutUint16(seg[4+2*i:6+2*i], p)
	}
	return append(buf, seg...)
}

// WriteCOM appends a COM (comment) marker segment carrying text in
// Latin-1.
func WriteCOM(buf []byte, comment string) []byte {
	data := []byte(comment)
	length := 4 + len(data)
	seg := make([]byte, 2+length)
	binary.BigEndian.PutUint16(seg[0:2], uint16(COM))
	binary.BigEndian.PutUint16(seg[2:4], uint16(length))
	binary.BigEndian.PutUint16(seg[4:6], CommentLatin1)
	copy(seg[6:], data)
	return append(buf, seg...)
}

// WriteSOT appends the SOT (start-of-tile-part) marker segment.
func WriteSOT(buf []byte, tileIndex uint16, tilePartLength uint32, tilePartIndex, numTileParts uint8) []byte {
	const length = 10
	seg := make([]byte, 2+length)
	binary.BigEndian.PutUint16(seg[0:2], uint16(SOT))
	binary.BigEndian.PutUint16(seg[2:4], uint16(length))
	binary.BigEndian.PutUint16(seg[4:6], tileIndex)
	binary.BigEndian.PutUint32(seg[6:10], tilePartLength)
	seg[10] = tilePartIndex
	seg[11] = numTileParts
	return append(buf, seg...)
}

// WriteSOD appends the SOD (start-of-data) marker, the boundary between
// a tile-part header and its packet data.
func WriteSOD(buf []byte) []byte {
	return append(buf, 0xFF, 0x93)
}

// WriteMainHeader assembles SOC through the last main-header marker
// (SIZ, optional CAP/CPF when htj2k is true, COD, QCD, optional COM) in
// the order ValidateCodestream and Parser.ReadHeader both expect.
func WriteMainHeader(h *Header, htj2k bool, comment string) ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("codestream: invalid header: %w", err)
	}

	buf := WriteSOC(nil)
	buf = WriteSIZ(buf, h)
	if htj2k {
		buf = WriteCAP(buf, CapPcapHTJ2K)
		buf = WriteCPF(buf, []uint16{CpfProfileHT})
	}
	buf = WriteCOD(buf, h)
	buf = WriteQCD(buf, h)
	if comment != "" {
		buf = WriteCOM(buf, comment)
	}
	return buf, nil
}
