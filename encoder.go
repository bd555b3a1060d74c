package xcf

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zlib"

	"github.com/mrjoshuak/go-xcf/internal/bio"
	"github.com/mrjoshuak/go-xcf/internal/rle"
)

// encoder serializes one image into an owned buffer. Forward offsets
// are resolved by sizing every sub-section before its position is
// committed, so the emitted pointers always name the byte index of the
// structure they describe.
type encoder struct {
	img         *Image
	w           *bio.Writer
	compression Compression
}

func newEncoder(img *Image) *encoder {
	return &encoder{
		img: img,
		w:   bio.NewWriter(img.Version.OffsetSize()),
	}
}

func (e *encoder) encode() error {
	if err := e.validate(); err != nil {
		return err
	}
	if err := e.writeHeader(); err != nil {
		return err
	}
	if e.img.Version < 11 {
		e.writeLegacyLayers()
		return nil
	}
	return e.writeLayers()
}

// validate rejects image models the writer cannot express.
func (e *encoder) validate() error {
	for i := range e.img.Layers {
		l := &e.img.Layers[i]
		if l.Kind.Base != RGB {
			return fmt.Errorf("layer %q: %w: only RGB layers can be written", l.Name, ErrNotSupported)
		}
		if l.Pixels.Width != l.Width || l.Pixels.Height != l.Height {
			return fmt.Errorf("layer %q: %w: pixel buffer %dx%d for %dx%d layer",
				l.Name, ErrInvalidFormat, l.Pixels.Width, l.Pixels.Height, l.Width, l.Height)
		}
		if uint64(len(l.Pixels.Pix)) != uint64(l.Width)*uint64(l.Height) {
			return fmt.Errorf("layer %q: %w: %d pixels for %dx%d",
				l.Name, ErrInvalidFormat, len(l.Pixels.Pix), l.Width, l.Height)
		}
	}
	if e.img.Version < 11 && len(e.img.Layers) > 0 {
		return fmt.Errorf("%w: layers require container version 11", ErrNotSupported)
	}
	return nil
}

// writeHeader emits the signature, image header and global property
// list, and fixes the tile compression for the rest of the encode.
func (e *encoder) writeHeader() error {
	v := e.img.Version
	if v <= 1 {
		e.w.Raw([]byte(signatureMagic + "file\x00"))
	} else {
		e.w.Raw([]byte(fmt.Sprintf("%sv%03d\x00", signatureMagic, v)))
	}
	e.w.U32(e.img.Width)
	e.w.U32(e.img.Height)
	e.w.U32(uint32(e.img.ColorModel))

	if v >= 4 {
		p := e.img.Precision
		if p == 0 {
			p = NonLinearU8
		}
		raw, err := encodePrecision(p, v)
		if err != nil {
			return err
		}
		e.w.U32(raw)
	}

	props := e.img.Properties
	if len(props) == 0 && v >= 11 {
		props = defaultImageProperties()
	}
	writeProperties(e.w, props)

	// Without a Compression property the tiles are stored uncompressed,
	// which is how the reader interprets such a list.
	e.compression = CompressNone
	for _, p := range props {
		if c, ok := p.Payload.(CompressionPayload); ok {
			e.compression = c.Algorithm
		}
	}
	return nil
}

// writeLayers emits the layer pointer table followed by each layer
// body for version >= 11 containers.
func (e *encoder) writeLayers() error {
	offSize := e.img.Version.OffsetSize()

	// The pointer table is followed by its zero terminator and the
	// terminator of the (always empty) channel pointer list; bodies
	// start right after.
	pos := uint64(e.w.Len()) + uint64((len(e.img.Layers)+2)*offSize)

	bodies := make([][]byte, len(e.img.Layers))
	for i := range e.img.Layers {
		body, err := e.buildLayer(&e.img.Layers[i], pos)
		if err != nil {
			return fmt.Errorf("layer %q: %w", e.img.Layers[i].Name, err)
		}
		bodies[i] = body
		e.w.Offset(pos)
		pos += uint64(len(body))
	}
	e.w.Offset(0) // end of layer pointers
	e.w.Offset(0) // end of channel pointers
	for _, body := range bodies {
		e.w.Raw(body)
	}
	return nil
}

// buildLayer serializes one layer body that will be placed at absolute
// position layerPos.
func (e *encoder) buildLayer(l *Layer, layerPos uint64) ([]byte, error) {
	offSize := e.img.Version.OffsetSize()
	w := bio.NewWriter(offSize)

	w.U32(l.Width)
	w.U32(l.Height)
	w.U32(l.Kind.value())
	w.GimpString(l.Name)

	props := l.Properties
	if len(props) == 0 && e.img.Version >= 11 {
		props = defaultLayerProperties()
	}
	writeProperties(w, props)

	// The hierarchy follows the hierarchy and mask pointers directly.
	hierarchyPos := layerPos + uint64(w.Len()) + uint64(2*offSize)
	w.Offset(hierarchyPos)
	w.Offset(0) // no layer mask

	if err := e.writeHierarchy(w, l, hierarchyPos); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// writeHierarchy emits a layer's pixel container at hierarchyPos: the
// hierarchy header with one level pointer per tile (all naming the
// single full-resolution level, as the reference tool emits them), the
// level with its tile pointer table, then the tile bodies.
func (e *encoder) writeHierarchy(w *bio.Writer, l *Layer, hierarchyPos uint64) error {
	offSize := uint64(w.OffsetWidth())
	bpp := uint64(l.Kind.Channels())
	grid := tileGridFor(l.Width, l.Height)
	n := uint64(grid.count())

	tiles, err := e.buildTiles(l, grid, int(bpp))
	if err != nil {
		return err
	}

	w.U32(l.Pixels.Width)
	w.U32(l.Pixels.Height)
	w.U32(uint32(bpp))

	levelPos := hierarchyPos + 12 + (n+1)*offSize
	for i := uint64(0); i < n; i++ {
		w.Offset(levelPos)
	}
	w.Offset(0)

	w.U32(l.Pixels.Width)
	w.U32(l.Pixels.Height)
	tilePos := levelPos + 8 + (n+1)*offSize
	for _, tile := range tiles {
		w.Offset(tilePos)
		tilePos += uint64(len(tile))
	}
	w.Offset(0)
	for _, tile := range tiles {
		w.Raw(tile)
	}
	return nil
}

// buildTiles compresses every tile of the layer in row-major order.
func (e *encoder) buildTiles(l *Layer, grid tileGrid, bpp int) ([][]byte, error) {
	tiles := make([][]byte, grid.count())
	for i := range tiles {
		x0, y0, tw, th := grid.tile(uint32(i))
		raw := gatherTile(&l.Pixels, x0, y0, tw, th, bpp)

		switch e.compression {
		case CompressRLE:
			var body []byte
			samples := int(tw) * int(th)
			for c := 0; c < bpp; c++ {
				body = append(body, rle.Compress(raw[c*samples:(c+1)*samples])...)
			}
			tiles[i] = body
		case CompressNone:
			tiles[i] = interleave(raw, bpp)
		case CompressZlib:
			var buf bytes.Buffer
			zw := zlib.NewWriter(&buf)
			if _, err := zw.Write(interleave(raw, bpp)); err != nil {
				return nil, err
			}
			if err := zw.Close(); err != nil {
				return nil, err
			}
			tiles[i] = buf.Bytes()
		default:
			return nil, fmt.Errorf("%w: compression %s", ErrNotSupported, e.compression)
		}
	}
	return tiles, nil
}

// gatherTile extracts one tile's samples as planar channel data:
// all R samples, then G, then B, then A when present.
func gatherTile(p *PixelData, x0, y0, tw, th uint32, bpp int) []byte {
	samples := int(tw) * int(th)
	raw := make([]byte, samples*bpp)
	i := 0
	for y := y0; y < y0+th; y++ {
		for x := x0; x < x0+tw; x++ {
			px := p.Pix[y*p.Width+x]
			raw[i] = px.R
			raw[samples+i] = px.G
			raw[2*samples+i] = px.B
			if bpp == 4 {
				raw[3*samples+i] = px.A
			}
			i++
		}
	}
	return raw
}

// interleave converts planar channel data back to per-pixel order for
// the uncompressed and zlib tile forms.
func interleave(raw []byte, bpp int) []byte {
	samples := len(raw) / bpp
	out := make([]byte, len(raw))
	for i := 0; i < samples; i++ {
		for c := 0; c < bpp; c++ {
			out[i*bpp+c] = raw[c*samples+i]
		}
	}
	return out
}

// writeLegacyLayers emits the historical fixed body used for version
// 10 and earlier: a single uncompressed 1x1 RGB "Background" layer
// with 32-bit offsets, byte-identical to what the original tool wrote
// for empty images.
func (e *encoder) writeLegacyLayers() {
	w := e.w
	w.U32(uint32(w.Len()) + 12) // layer pointer, past both terminators
	w.U32(0)                    // end of layer pointers
	w.U32(0)                    // end of channel pointers

	w.U32(1) // width
	w.U32(1) // height
	w.U32(0) // RGB without alpha

	// Legacy name form: the count includes a four-byte terminator.
	w.U32(14)
	w.Raw([]byte("Background"))
	w.U32(0)

	w.U32(uint32(PropActiveLayer))
	w.U32(0)
	w.U32(uint32(PropOpacity))
	w.U32(4)
	w.U32(255)
	w.U32(uint32(PropMode))
	w.U32(4)
	w.U32(0) // legacy normal mode
	w.U32(uint32(PropFloatOpacity))
	w.U32(4)
	w.F32(1.0)
	w.U32(uint32(PropVisible))
	w.U32(4)
	w.U32(1)
	w.U32(uint32(PropLinked))
	w.U32(4)
	w.U32(0)
	w.U32(uint32(PropEnd))
	w.U32(0)

	w.U32(uint32(w.Len()) + 8) // hierarchy pointer
	w.U32(0)                   // mask pointer

	w.U32(1) // hierarchy width
	w.U32(1) // hierarchy height
	w.U32(3) // bytes per pixel

	w.U32(uint32(w.Len()) + 8) // level pointer
	w.U32(0)

	w.U32(1) // level width
	w.U32(1) // level height

	w.U32(uint32(w.Len()) + 8) // tile pointer
	w.U32(0)

	w.Raw([]byte{158, 36, 222}) // one uncompressed violet pixel
}
