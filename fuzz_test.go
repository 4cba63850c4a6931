package jpeg2000

import "testing"

// FuzzDecodeTile exercises DecodeTile with arbitrary input data; it
// should never panic regardless of what bytes it's given.
func FuzzDecodeTile(f *testing.F) {
	f.Add([]byte{0xFF, 0x4F, 0xFF, 0x51})
	f.Add([]byte{})
	f.Add([]byte{0x00})
	f.Add([]byte{0xFF})

	tile := testTile(8, 8, 1)
	if encoded, err := EncodeTile(tile, DefaultConfig()); err == nil {
		f.Add(encoded)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeTile(data, DefaultConfig())
	})
}

// FuzzValidate exercises Validate with arbitrary input data; it should
// never panic and should always return a report.
func FuzzValidate(f *testing.F) {
	f.Add([]byte{0xFF, 0x4F, 0xFF, 0x51})
	f.Add([]byte{})
	f.Add([]byte{0x00})

	tile := testTile(8, 8, 1)
	if encoded, err := EncodeTile(tile, DefaultConfig()); err == nil {
		f.Add(encoded)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		report := Validate(data)
		if report == nil {
			t.Fatal("Validate returned nil report")
		}
	})
}
