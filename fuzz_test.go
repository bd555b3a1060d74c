package xcf

import (
	"bytes"
	"testing"
)

// FuzzDecode tests the container parser with arbitrary input data.
// Run with: go test -fuzz=FuzzDecode -fuzztime=60s
func FuzzDecode(f *testing.F) {
	// Seed with real encoder output across the version branches.
	for _, img := range []*Image{
		{Version: 1, Width: 1, Height: 1, ColorModel: RGB},
		{Version: 10, Width: 1, Height: 1, ColorModel: RGB},
		{
			Version: 11, Width: 3, Height: 3, ColorModel: RGB,
			Layers: []Layer{{
				Width: 3, Height: 3,
				Kind:   LayerKind{Base: RGB, Alpha: true},
				Name:   "Background",
				Pixels: PixelData{Width: 3, Height: 3, Pix: make([]RGBA, 9)},
			}},
		},
	} {
		var buf bytes.Buffer
		if err := Encode(&buf, img); err != nil {
			f.Fatal(err)
		}
		f.Add(buf.Bytes())
	}
	f.Add([]byte("gimp xcf file\x00"))
	f.Add([]byte("gimp xcf v011\x00"))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		// The decoder must never panic, regardless of input.
		_, _ = Decode(bytes.NewReader(data))
	})
}

// FuzzDecodeHeader tests header-only parsing with arbitrary input.
func FuzzDecodeHeader(f *testing.F) {
	f.Add([]byte("gimp xcf file\x00"))
	f.Add([]byte("gimp xcf v010\x00\x00\x00\x00\x01\x00\x00\x00\x01\x00\x00\x00\x00"))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeHeader(bytes.NewReader(data))
	})
}
