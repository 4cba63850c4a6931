package nlt

import (
	"math"
	"testing"
)

func TestRangeOf(t *testing.T) {
	tests := []struct {
		bitDepth int
		signed   bool
		wantMin  float64
		wantMax  float64
	}{
		{8, false, 0, 255},
		{8, true, -128, 127},
		{12, false, 0, 4095},
		{16, true, -32768, 32767},
	}
	for _, tt := range tests {
		r := RangeOf(tt.bitDepth, tt.signed)
		if r.Min != tt.wantMin || r.Max != tt.wantMax {
			t.Errorf("RangeOf(%d, %v) = {%g, %g}, want {%g, %g}",
				tt.bitDepth, tt.signed, r.Min, r.Max, tt.wantMin, tt.wantMax)
		}
	}
}

func TestGammaRoundtrip(t *testing.T) {
	data := []int32{0, 32, 64, 128, 192, 255}
	orig := append([]int32(nil), data...)

	if err := GammaForward(data, 8, false, 2.2); err != nil {
		t.Fatalf("GammaForward returned error: %v", err)
	}
	if err := GammaInverse(data, 8, false, 2.2); err != nil {
		t.Fatalf("GammaInverse returned error: %v", err)
	}

	for i := range data {
		if diff := data[i] - orig[i]; diff < -1 || diff > 1 {
			t.Errorf("index %d: roundtrip got %d, want ~%d", i, data[i], orig[i])
		}
	}
}

func TestGammaInvalid(t *testing.T) {
	data := []int32{1, 2, 3}
	if err := GammaForward(data, 8, false, 0); err == nil {
		t.Error("GammaForward with gamma=0 should return an error")
	}
	if err := GammaForward(data, 8, false, -1); err == nil {
		t.Error("GammaForward with gamma<0 should return an error")
	}
	if err := GammaInverse(data, 8, false, 0); err == nil {
		t.Error("GammaInverse with gamma=0 should return an error")
	}
}

func TestLogRoundtrip(t *testing.T) {
	data := []int32{0, 32, 64, 128, 192, 255}
	orig := append([]int32(nil), data...)

	LogForward(data, 8, false)
	LogInverse(data, 8, false)

	for i := range data {
		if diff := data[i] - orig[i]; diff < -1 || diff > 1 {
			t.Errorf("index %d: roundtrip got %d, want ~%d", i, data[i], orig[i])
		}
	}
}

func TestLUTForwardNearest(t *testing.T) {
	table := []float64{0, 0.5, 1}
	data := []int32{0, 128, 255}
	if err := LUTForward(data, 8, false, table, LUTNearest); err != nil {
		t.Fatalf("LUTForward returned error: %v", err)
	}
	if data[0] != 0 {
		t.Errorf("data[0] = %d, want 0", data[0])
	}
	if data[2] != 255 {
		t.Errorf("data[2] = %d, want 255", data[2])
	}
}

func TestLUTForwardLinear(t *testing.T) {
	table := []float64{0, 1}
	data := []int32{0, 128, 255}
	if err := LUTForward(data, 8, false, table, LUTLinear); err != nil {
		t.Fatalf("LUTForward returned error: %v", err)
	}
	if data[0] != 0 {
		t.Errorf("data[0] = %d, want 0", data[0])
	}
	if data[2] != 255 {
		t.Errorf("data[2] = %d, want 255", data[2])
	}
}

func TestLUTForwardInvalidTable(t *testing.T) {
	data := []int32{0, 1, 2}
	if err := LUTForward(data, 8, false, []float64{1}, LUTNearest); err == nil {
		t.Error("LUTForward with a 1-entry table should return an error")
	}
	if err := LUTForward(data, 8, false, nil, LUTNearest); err == nil {
		t.Error("LUTForward with an empty table should return an error")
	}
}

func TestPQRoundtrip(t *testing.T) {
	data := []int32{0, 256, 1024, 2048, 4095}
	orig := append([]int32(nil), data...)

	PQInverse(data, 12, false)
	PQForward(data, 12, false)

	for i := range data {
		if diff := data[i] - orig[i]; diff < -2 || diff > 2 {
			t.Errorf("index %d: roundtrip got %d, want ~%d", i, data[i], orig[i])
		}
	}
}

func TestHLGRoundtrip(t *testing.T) {
	data := []int32{0, 32, 64, 128, 192, 255}
	orig := append([]int32(nil), data...)

	HLGForward(data, 8, false)
	HLGInverse(data, 8, false)

	for i := range data {
		if diff := data[i] - orig[i]; diff < -1 || diff > 1 {
			t.Errorf("index %d: roundtrip got %d, want ~%d", i, data[i], orig[i])
		}
	}
}

func TestHLGBreakpoint(t *testing.T) {
	// 1/12 is not an 8-bit sample value: the nearest sample, 21,
	// normalizes to 21/255, just below the breakpoint, so the sqrt branch
	// applies; assert against the closed-form value at that input.
	bitDepth, signed := 8, false
	r := RangeOf(bitDepth, signed)
	atBreak := r.denormalize(1.0 / 12.0)

	data := []int32{atBreak}
	HLGForward(data, bitDepth, signed)
	want := r.denormalize(math.Sqrt(3 * r.normalize(atBreak)))
	if data[0] != want {
		t.Errorf("HLG forward near breakpoint x=1/12: got %d, want %d (sqrt branch)", data[0], want)
	}

	dataInv := []int32{r.denormalize(0.5)}
	HLGInverse(dataInv, bitDepth, signed)
	wantInv := r.denormalize(0.5 * 0.5 / 3)
	if dataInv[0] != wantInv {
		t.Errorf("HLG inverse at breakpoint y=0.5: got %d, want %d (square branch)", dataInv[0], wantInv)
	}
}
