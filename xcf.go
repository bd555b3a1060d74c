// Package xcf reads and writes GIMP's native XCF layered-image
// container.
//
// The package covers format versions 0 through 11+ for reading and
// writing, including the switch from 32-bit to 64-bit file offsets at
// version 11. Pixel data is handled for 8-bit RGB and RGBA layers with
// RLE, zlib or no tile compression.
//
// Basic usage for decoding:
//
//	file, _ := os.Open("image.xcf")
//	img, err := xcf.Decode(file)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Basic usage for encoding:
//
//	file, _ := os.Create("output.xcf")
//	err := xcf.Encode(file, img)
//	if err != nil {
//	    log.Fatal(err)
//	}
package xcf

import (
	"fmt"
	"io"
)

// Version is an XCF container version. It selects the signature form,
// the presence of the precision field, and the file offset width.
type Version uint16

// OffsetSize returns the width of file offsets in bytes: 8 from
// version 11 on, 4 before.
func (v Version) OffsetSize() int {
	if v >= 11 {
		return 8
	}
	return 4
}

// String returns the signature spelling of the version.
func (v Version) String() string {
	if v <= 1 {
		return "file"
	}
	return fmt.Sprintf("v%03d", uint16(v))
}

// ColorModel is the image-wide color model.
type ColorModel uint32

const (
	// RGB is the red/green/blue color model.
	RGB ColorModel = 0
	// Grayscale is the single-channel gray color model.
	Grayscale ColorModel = 1
	// Indexed is the palette-indexed color model.
	Indexed ColorModel = 2
)

// String returns the name of the color model.
func (m ColorModel) String() string {
	switch m {
	case RGB:
		return "RGB"
	case Grayscale:
		return "Grayscale"
	case Indexed:
		return "Indexed"
	default:
		return "Unknown"
	}
}

// Compression is the tile compression algorithm carried by the
// image-level Compression property.
type Compression uint8

const (
	// CompressNone stores raw interleaved tile bytes.
	CompressNone Compression = 0
	// CompressRLE stores per-channel run-length encoded tile streams.
	CompressRLE Compression = 1
	// CompressZlib stores zlib-compressed interleaved tile bytes.
	CompressZlib Compression = 2
	// CompressFractal is declared by the format but not implemented.
	CompressFractal Compression = 3
)

// String returns the name of the compression algorithm.
func (c Compression) String() string {
	switch c {
	case CompressNone:
		return "None"
	case CompressRLE:
		return "RLE"
	case CompressZlib:
		return "Zlib"
	case CompressFractal:
		return "Fractal"
	default:
		return "Unknown"
	}
}

// LayerKind is a layer's color type: a base color model plus an alpha
// flag. On disk it is stored as base*2 + alpha.
type LayerKind struct {
	Base  ColorModel
	Alpha bool
}

// value returns the on-disk encoding of the kind.
func (k LayerKind) value() uint32 {
	v := uint32(k.Base) * 2
	if k.Alpha {
		v++
	}
	return v
}

// Channels returns the number of stored channels per pixel.
func (k LayerKind) Channels() int {
	n := 1
	if k.Base == RGB {
		n = 3
	}
	if k.Alpha {
		n++
	}
	return n
}

func layerKindFromValue(v uint32) (LayerKind, error) {
	base := v / 2
	if base > uint32(Indexed) {
		return LayerKind{}, fmt.Errorf("%w: layer kind %d", ErrInvalidFormat, v)
	}
	return LayerKind{Base: ColorModel(base), Alpha: v%2 == 1}, nil
}

// RGBA is one 8-bit-per-channel pixel.
type RGBA struct {
	R, G, B, A uint8
}

// PixelData is a layer's decoded pixel buffer in row-major order.
type PixelData struct {
	Width  uint32
	Height uint32
	Pix    []RGBA
}

// Pixel returns the pixel at (x, y) and whether the coordinate is in
// bounds.
func (p *PixelData) Pixel(x, y uint32) (RGBA, bool) {
	if x >= p.Width || y >= p.Height {
		return RGBA{}, false
	}
	return p.Pix[y*p.Width+x], true
}

// Layer is one layer of an image: dimensions, color type, name,
// properties and pixel data.
type Layer struct {
	Width      uint32
	Height     uint32
	Kind       LayerKind
	Name       string
	Properties []Property
	Pixels     PixelData
}

// Dimensions returns the layer's width and height.
func (l *Layer) Dimensions() (uint32, uint32) {
	return l.Width, l.Height
}

// Pixel returns the pixel at (x, y) and whether the coordinate is in
// bounds.
func (l *Layer) Pixel(x, y uint32) (RGBA, bool) {
	return l.Pixels.Pixel(x, y)
}

// Header is the leading portion of a container: everything before the
// layer pointer table.
type Header struct {
	Version    Version
	Width      uint32
	Height     uint32
	ColorModel ColorModel
	Precision  Precision
	Properties []Property
}

// Compression returns the tile compression declared in the header
// properties, or CompressNone when no Compression property is present.
func (h *Header) Compression() Compression {
	for _, p := range h.Properties {
		if c, ok := p.Payload.(CompressionPayload); ok {
			return c.Algorithm
		}
	}
	return CompressNone
}

// Image is a complete in-memory XCF image.
type Image struct {
	Version    Version
	Width      uint32
	Height     uint32
	ColorModel ColorModel
	Precision  Precision
	Properties []Property

	// Layers is ordered as stored in the file, top-most first.
	Layers []Layer
}

// Dimensions returns the canvas width and height.
func (x *Image) Dimensions() (uint32, uint32) {
	return x.Width, x.Height
}

// Layer returns the first layer with the given name, or nil.
func (x *Image) Layer(name string) *Layer {
	for i := range x.Layers {
		if x.Layers[i].Name == name {
			return &x.Layers[i]
		}
	}
	return nil
}

// Decode reads a complete image from r.
func Decode(r io.ReadSeeker) (*Image, error) {
	d, err := newDecoder(r)
	if err != nil {
		return nil, err
	}
	return d.decode()
}

// DecodeHeader reads only the container header: signature, dimensions,
// precision and global properties. Pixel data is not touched.
func DecodeHeader(r io.ReadSeeker) (*Header, error) {
	d, err := newDecoder(r)
	if err != nil {
		return nil, err
	}
	if err := d.parseHeader(); err != nil {
		return nil, err
	}
	return &d.hdr, nil
}

// Encode serializes img and writes the resulting byte stream to w. The
// output is deterministic for a given image.
func Encode(w io.Writer, img *Image) error {
	e := newEncoder(img)
	if err := e.encode(); err != nil {
		return err
	}
	_, err := w.Write(e.w.Bytes())
	return err
}
