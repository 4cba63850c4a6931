// Package validate implements conformance checking for JPEG 2000
// codestreams: marker ordering, numerical precision, and bit-depth
// range. Unlike internal/codestream's Parser, which fails fast on the
// first malformed marker, Validate accumulates every problem it finds
// into a single report so a caller can see the whole picture at once.
package validate

import (
	"bytes"
	"fmt"

	"github.com/corewave/jpeg2000core/internal/codestream"
	"github.com/corewave/jpeg2000core/internal/numeric"
)

// Issue is a single conformance problem, carrying the byte offset it
// was found at (or -1 when no single offset applies) and a reason tag
// rather than free text.
type Issue struct {
	Position int
	Reason   string
}

// Report is the result of validating a codestream's marker structure.
type Report struct {
	IsCompliant bool
	Errors      []Issue
}

func (r *Report) fail(position int, reason string) {
	r.IsCompliant = false
	r.Errors = append(r.Errors, Issue{Position: position, Reason: reason})
}

// ValidateCodestream checks marker presence, ordering, and uniqueness
// obligations against data, a complete JPEG 2000 codestream.
func ValidateCodestream(data []byte) Report {
	report := Report{IsCompliant: true}

	if len(data) < 2 || codestream.Marker(be16(data, 0)) != codestream.SOC {
		report.fail(0, "InvalidCodestream: missing SOC at offset 0")
		return report
	}
	if len(data) < 4 || codestream.Marker(be16(data, 2)) != codestream.SIZ {
		report.fail(2, "InvalidCodestream: SIZ must immediately follow SOC")
		return report
	}

	seenSIZ, seenCOD, seenQCD, seenSOT := false, false, false, false
	var capMarker *codestream.CapabilitiesMarker
	offset := 0
	for offset+2 <= len(data) {
		marker := codestream.Marker(be16(data, offset))
		if marker == codestream.EOC {
			if offset+2 != len(data) {
				report.fail(offset, "InvalidCodestream: EOC is not the last two bytes")
			}
			break
		}
		if !marker.HasLength() {
			offset += 2
			continue
		}
		if offset+4 > len(data) {
			report.fail(offset, "InvalidCodestream: truncated marker segment length")
			break
		}
		length := int(be16(data, offset+2))
		segEnd := offset + 2 + length
		if length < 2 || segEnd > len(data) {
			report.fail(offset, "InvalidCodestream: marker segment length out of range")
			break
		}

		switch marker {
		case codestream.SIZ:
			if seenSIZ {
				report.fail(offset, "InvalidCodestream: duplicate SIZ marker in main header")
			}
			seenSIZ = true
		case codestream.COD:
			if seenCOD {
				report.fail(offset, "InvalidCodestream: duplicate COD marker in main header")
			}
			seenCOD = true
		case codestream.QCD:
			if seenQCD {
				report.fail(offset, "InvalidCodestream: duplicate QCD marker in main header")
			}
			seenQCD = true
		case codestream.SOT:
			seenSOT = true
		case codestream.CAP:
			if length >= 8 {
				pcap := be32(data, offset+4)
				capMarker = &codestream.CapabilitiesMarker{Pcap: pcap}
			}
		}
		if marker == codestream.SOT {
			if !seenSIZ || !seenCOD || !seenQCD {
				report.fail(offset, "InvalidCodestream: SOT encountered before SIZ/COD/QCD in main header")
			}
			// Tile-part bitstream data follows SOT/SOD and is opaque to
			// marker scanning; the EOC check below covers the tail.
			break
		}
		offset = segEnd
	}

	if !seenSOT {
		report.fail(-1, "InvalidCodestream: no SOT marker found")
	}
	if len(data) < 2 || codestream.Marker(be16(data, len(data)-2)) != codestream.EOC {
		report.fail(len(data)-2, "InvalidCodestream: missing EOC at end of codestream")
	}

	header, err := codestream.NewParser(bytes.NewReader(data)).ReadHeader()
	if err != nil {
		report.fail(-1, fmt.Sprintf("InvalidCodestream: header parse failed: %v", err))
		return report
	}
	if prog := header.CodingStyle.ProgressionOrder; prog > 4 {
		report.fail(-1, fmt.Sprintf("InvalidParameter: COD progression order %d out of range [0,4]", prog))
	}
	if header.IsHTJ2K() {
		if capMarker == nil || !capMarker.IsHTJ2K() {
			report.fail(-1, "InvalidCodestream: HTJ2K codestream missing CAP marker with Pcap bit 17 set")
		}
	}

	return report
}

func be16(data []byte, offset int) uint16 {
	return uint16(data[offset])<<8 | uint16(data[offset+1])
}

func be32(data []byte, offset int) uint32 {
	return uint32(data[offset])<<24 | uint32(data[offset+1])<<16 |
		uint32(data[offset+2])<<8 | uint32(data[offset+3])
}

// RoundtripResult reports lossless round-trip fidelity between an
// original and reconstructed sample array.
type RoundtripResult struct {
	MaxAbsoluteError  int64
	MeanSquaredError  float64
	IsExact           bool
	PassesConformance bool
}

// ValidateLosslessRoundtrip compares original and reconstructed
// element-wise. PassesConformance is true iff IsExact.
func ValidateLosslessRoundtrip(original, reconstructed []int32) RoundtripResult {
	if len(original) != len(reconstructed) {
		return RoundtripResult{MaxAbsoluteError: -1, MeanSquaredError: -1}
	}
	a := make([]float64, len(original))
	b := make([]float64, len(reconstructed))
	var maxAbs int64
	for i := range original {
		diff := int64(original[i]) - int64(reconstructed[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > maxAbs {
			maxAbs = diff
		}
		a[i] = float64(original[i])
		b[i] = float64(reconstructed[i])
	}
	mse := numeric.MSE(a, b)
	exact := maxAbs == 0
	return RoundtripResult{
		MaxAbsoluteError:  maxAbs,
		MeanSquaredError:  mse,
		IsExact:           exact,
		PassesConformance: exact,
	}
}

// PSNRResult reports lossy fidelity between an original and
// reconstructed sample array.
type PSNRResult struct {
	MeanSquaredError  float64
	PSNR              float64
	PassesConformance bool
}

// ValidateLossyPSNR computes PSNR between original and reconstructed
// bitDepth-bit samples and reports conformance against minimumPSNR.
func ValidateLossyPSNR(original, reconstructed []int32, bitDepth int, minimumPSNR float64) PSNRResult {
	a := make([]float64, len(original))
	b := make([]float64, len(reconstructed))
	for i := range original {
		a[i] = float64(original[i])
		b[i] = float64(reconstructed[i])
	}
	mse := numeric.MSE(a, b)
	psnr := numeric.PSNR(mse, bitDepth)
	return PSNRResult{
		MeanSquaredError:  mse,
		PSNR:              psnr,
		PassesConformance: psnr >= minimumPSNR,
	}
}

// ValidateBitDepthRange reports, as Issues, every sample that falls
// outside the range implied by (bitDepth, signed): [0, 2^B - 1] for
// unsigned, [-2^(B-1), 2^(B-1) - 1] for signed.
func ValidateBitDepthRange(samples []int32, bitDepth int, signed bool) []Issue {
	var min, max int64
	if signed {
		half := int64(1) << (bitDepth - 1)
		min, max = -half, half-1
	} else {
		min, max = 0, (int64(1)<<bitDepth)-1
	}
	var issues []Issue
	for i, v := range samples {
		if int64(v) < min || int64(v) > max {
			issues = append(issues, Issue{
				Position: i,
				Reason:   fmt.Sprintf("sample %d out of range [%d, %d]", v, min, max),
			})
		}
	}
	return issues
}
