package rle

import (
	"bytes"
	"testing"

	"github.com/mrjoshuak/go-xcf/internal/bio"
)

func decompressAll(t *testing.T, data []byte, n int) []byte {
	t.Helper()
	br, err := bio.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	out, err := Decompress(br, n)
	if err != nil {
		t.Fatalf("Decompress(%v, %d): %v", data, n, err)
	}
	return out
}

func TestCompress_ReferenceStreams(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{
			name: "leading pair then verbatim",
			in:   []byte{0, 0, 114, 121},
			want: []byte{1, 0, 254, 114, 121},
		},
		{
			name: "four distinct bytes",
			in:   []byte{158, 0, 255, 43},
			want: []byte{252, 158, 0, 255, 43},
		},
		{
			name: "interior pair stays verbatim",
			in:   []byte{222, 36, 36, 222},
			want: []byte{252, 222, 36, 36, 222},
		},
		{
			name: "nine mixed bytes",
			in:   []byte{222, 36, 36, 222, 36, 48, 0, 219, 0},
			want: []byte{247, 222, 36, 36, 222, 36, 48, 0, 219, 0},
		},
		{
			name: "single byte",
			in:   []byte{77},
			want: []byte{0, 77},
		},
		{
			name: "two identical bytes",
			in:   []byte{9, 9},
			want: []byte{1, 9},
		},
		{
			name: "short identical run",
			in:   bytes.Repeat([]byte{5}, 100),
			want: []byte{99, 5},
		},
		{
			name: "long identical run",
			in:   bytes.Repeat([]byte{7}, 4096),
			want: []byte{127, 16, 0, 7},
		},
		{
			name: "run then trailing byte",
			in:   []byte{5, 5, 5, 9},
			want: []byte{2, 5, 0, 9},
		},
		{
			name: "run interrupting verbatim",
			in:   []byte{1, 2, 3, 8, 8, 8, 4},
			want: []byte{253, 1, 2, 3, 2, 8, 0, 4},
		},
		{
			name: "pair after run is identical",
			in:   []byte{5, 5, 5, 7, 7, 9, 9, 9},
			want: []byte{2, 5, 1, 7, 2, 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compress(tt.in)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Compress(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompress_LongVerbatim(t *testing.T) {
	// 200 strictly alternating bytes cannot form runs; the stream must
	// use the long verbatim token.
	in := make([]byte, 200)
	for i := range in {
		in[i] = byte(i % 2 * 255)
	}
	got := Compress(in)
	want := append([]byte{128, 0, 200}, in...)
	if !bytes.Equal(got, want) {
		t.Errorf("Compress() = %d bytes starting %v, want long verbatim token", len(got), got[:4])
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"single", []byte{0}},
		{"pair", []byte{4, 4}},
		{"distinct pair", []byte{4, 5}},
		{"three identical", []byte{4, 4, 4}},
		{"trailing pair", []byte{1, 2, 3, 3}},
		{"leading pair short", []byte{3, 3, 1}},
		{"all byte values", iota256()},
		{"solid tile", bytes.Repeat([]byte{201}, 4096)},
		{"checkerboard", alternating(4096)},
		{"very long run", bytes.Repeat([]byte{1}, 70000)},
		{"long verbatim", alternating(70000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := Compress(tt.in)
			got := decompressAll(t, enc, len(tt.in))
			if !bytes.Equal(got, tt.in) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(tt.in))
			}
		})
	}
}

func iota256() []byte {
	b := make([]byte, 256)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func alternating(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		if i%2 == 1 {
			b[i] = 0xff
		}
	}
	return b
}

func TestDecompress_ConsecutiveStreams(t *testing.T) {
	// Channel streams are stored back to back; decoding one must not
	// consume bytes of the next.
	first := []byte{10, 20, 30}
	second := []byte{40, 40, 40, 40}
	data := append(Compress(first), Compress(second)...)

	br, err := bio.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	got1, err := Decompress(br, len(first))
	if err != nil {
		t.Fatalf("first stream: %v", err)
	}
	got2, err := Decompress(br, len(second))
	if err != nil {
		t.Fatalf("second stream: %v", err)
	}
	if !bytes.Equal(got1, first) || !bytes.Equal(got2, second) {
		t.Errorf("got %v, %v, want %v, %v", got1, got2, first, second)
	}
}

func TestDecompress_Truncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		n    int
	}{
		{"empty stream", nil, 1},
		{"identical run missing value", []byte{5}, 6},
		{"long run missing length", []byte{127, 1}, 10},
		{"verbatim missing bytes", []byte{253, 1, 2}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br, err := bio.NewReader(bytes.NewReader(tt.data))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := Decompress(br, tt.n); err != bio.ErrTruncated {
				t.Errorf("Decompress() error = %v, want %v", err, bio.ErrTruncated)
			}
		})
	}
}

func TestDecompress_Overrun(t *testing.T) {
	// A run of four into a three-byte channel crosses the boundary.
	br, err := bio.NewReader(bytes.NewReader([]byte{3, 9}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decompress(br, 3); err != ErrOverrun {
		t.Errorf("Decompress() error = %v, want %v", err, ErrOverrun)
	}
}
