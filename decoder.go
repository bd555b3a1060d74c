package xcf

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/compress/zlib"

	"github.com/mrjoshuak/go-xcf/internal/bio"
	"github.com/mrjoshuak/go-xcf/internal/rle"
)

// signatureMagic is the first nine bytes of every XCF file. The four
// bytes that follow spell either "file" (version 0) or "v" plus three
// version digits, then a NUL closes the 14-byte signature.
const signatureMagic = "gimp xcf "

// decoder parses one container from a seekable byte source.
type decoder struct {
	br          *bio.Reader
	hdr         Header
	compression Compression
}

func newDecoder(r io.ReadSeeker) (*decoder, error) {
	br, err := bio.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &decoder{br: br}, nil
}

// decode parses the whole image: header, global properties, then every
// layer reachable from the layer pointer table.
func (d *decoder) decode() (*Image, error) {
	if err := d.parseHeader(); err != nil {
		return nil, err
	}

	var layers []Layer
	offSize := d.hdr.Version.OffsetSize()
	for {
		ptr, err := d.br.Offset(offSize)
		if err != nil {
			return nil, fmt.Errorf("reading layer pointer: %w", err)
		}
		if ptr == 0 {
			break
		}
		pos, err := d.br.Pos()
		if err != nil {
			return nil, err
		}
		if err := d.seekTo(ptr); err != nil {
			return nil, fmt.Errorf("layer %d: %w", len(layers), err)
		}
		layer, err := d.parseLayer()
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", len(layers), err)
		}
		layers = append(layers, layer)
		if err := d.br.Seek(pos); err != nil {
			return nil, err
		}
	}

	return &Image{
		Version:    d.hdr.Version,
		Width:      d.hdr.Width,
		Height:     d.hdr.Height,
		ColorModel: d.hdr.ColorModel,
		Precision:  d.hdr.Precision,
		Properties: d.hdr.Properties,
		Layers:     layers,
	}, nil
}

// seekTo validates a forward offset against the input length before
// following it.
func (d *decoder) seekTo(off uint64) error {
	if off > uint64(d.br.Size()) {
		return fmt.Errorf("%w: offset %d beyond input size %d", ErrInvalidFormat, off, d.br.Size())
	}
	return d.br.Seek(int64(off))
}

// parseHeader parses the signature, image header and global property
// list, leaving the cursor at the layer pointer table.
func (d *decoder) parseHeader() error {
	magic, err := d.br.Bytes(len(signatureMagic))
	if err != nil {
		return fmt.Errorf("reading signature: %w", err)
	}
	if string(magic) != signatureMagic {
		return fmt.Errorf("%w: bad signature %q", ErrInvalidFormat, magic)
	}

	version, err := d.parseVersion()
	if err != nil {
		return err
	}
	d.hdr.Version = version

	nul, err := d.br.U8()
	if err != nil {
		return fmt.Errorf("reading signature: %w", err)
	}
	if nul != 0 {
		return fmt.Errorf("%w: unterminated signature", ErrInvalidFormat)
	}

	if d.hdr.Width, err = d.br.U32(); err != nil {
		return fmt.Errorf("reading canvas width: %w", err)
	}
	if d.hdr.Height, err = d.br.U32(); err != nil {
		return fmt.Errorf("reading canvas height: %w", err)
	}
	model, err := d.br.U32()
	if err != nil {
		return fmt.Errorf("reading color model: %w", err)
	}
	if model > uint32(Indexed) {
		return fmt.Errorf("%w: color model %d", ErrInvalidFormat, model)
	}
	d.hdr.ColorModel = ColorModel(model)

	if version >= 4 {
		raw, err := d.br.U32()
		if err != nil {
			return fmt.Errorf("reading precision: %w", err)
		}
		if d.hdr.Precision, err = parsePrecision(raw, version); err != nil {
			return err
		}
	} else {
		d.hdr.Precision = NonLinearU8
	}

	if d.hdr.Properties, err = parseProperties(d.br); err != nil {
		return fmt.Errorf("reading image properties: %w", err)
	}
	d.compression = d.hdr.Compression()
	return nil
}

// parseVersion decodes the four version bytes of the signature.
func (d *decoder) parseVersion() (Version, error) {
	raw, err := d.br.Bytes(4)
	if err != nil {
		return 0, fmt.Errorf("reading version: %w", err)
	}
	if bytes.Equal(raw, []byte("file")) {
		return 0, nil
	}
	if raw[0] != 'v' {
		return 0, fmt.Errorf("%w: %q", ErrUnknownVersion, raw)
	}
	n, err := strconv.Atoi(string(raw[1:]))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownVersion, raw)
	}
	return Version(n), nil
}

// parseLayer parses one layer body at the current position, following
// its hierarchy pointer for the pixel data.
func (d *decoder) parseLayer() (Layer, error) {
	var l Layer
	var err error
	if l.Width, err = d.br.U32(); err != nil {
		return l, fmt.Errorf("reading width: %w", err)
	}
	if l.Height, err = d.br.U32(); err != nil {
		return l, fmt.Errorf("reading height: %w", err)
	}
	kindRaw, err := d.br.U32()
	if err != nil {
		return l, fmt.Errorf("reading kind: %w", err)
	}
	if l.Kind, err = layerKindFromValue(kindRaw); err != nil {
		return l, err
	}
	if l.Name, err = d.br.GimpString(); err != nil {
		return l, fmt.Errorf("reading name: %w", err)
	}
	if l.Properties, err = parseProperties(d.br); err != nil {
		return l, fmt.Errorf("reading properties: %w", err)
	}

	offSize := d.hdr.Version.OffsetSize()
	hptr, err := d.br.Offset(offSize)
	if err != nil {
		return l, fmt.Errorf("reading hierarchy pointer: %w", err)
	}
	// The mask pointer is read and ignored; layer masks are not
	// decoded.
	if _, err := d.br.Offset(offSize); err != nil {
		return l, fmt.Errorf("reading mask pointer: %w", err)
	}

	if err := d.seekTo(hptr); err != nil {
		return l, err
	}
	if l.Pixels, err = d.parseHierarchy(); err != nil {
		return l, fmt.Errorf("reading hierarchy: %w", err)
	}
	return l, nil
}

// parseHierarchy decodes a layer's pixel container: the hierarchy
// header, the first level, and every tile of that level. Dummy level
// pointers past the first are skipped.
func (d *decoder) parseHierarchy() (PixelData, error) {
	var p PixelData
	var err error
	if p.Width, err = d.br.U32(); err != nil {
		return p, err
	}
	if p.Height, err = d.br.U32(); err != nil {
		return p, err
	}
	bpp, err := d.br.U32()
	if err != nil {
		return p, err
	}
	if bpp != 3 && bpp != 4 {
		return p, fmt.Errorf("%w: %d bytes per pixel", ErrNotSupported, bpp)
	}

	offSize := d.hdr.Version.OffsetSize()
	levelPtr, err := d.br.Offset(offSize)
	if err != nil {
		return p, err
	}
	if levelPtr == 0 {
		return p, fmt.Errorf("%w: hierarchy has no levels", ErrInvalidFormat)
	}
	for {
		dummy, err := d.br.Offset(offSize)
		if err != nil {
			return p, err
		}
		if dummy == 0 {
			break
		}
	}

	if err := d.seekTo(levelPtr); err != nil {
		return p, err
	}
	levelWidth, err := d.br.U32()
	if err != nil {
		return p, err
	}
	levelHeight, err := d.br.U32()
	if err != nil {
		return p, err
	}
	if levelWidth != p.Width || levelHeight != p.Height {
		return p, fmt.Errorf("%w: level %dx%d does not match hierarchy %dx%d",
			ErrInvalidFormat, levelWidth, levelHeight, p.Width, p.Height)
	}

	pixels := uint64(p.Width) * uint64(p.Height)
	// Even a solid-color RLE tile takes two bytes per channel, so a
	// valid input cannot encode more samples than this; the check
	// bounds allocations for garbage dimensions.
	if pixels > uint64(d.br.Size())*683 {
		return p, fmt.Errorf("%w: %dx%d pixels exceed input size", ErrInvalidFormat, p.Width, p.Height)
	}

	grid := tileGridFor(p.Width, p.Height)
	ptrs := make([]uint64, grid.count())
	for i := range ptrs {
		if ptrs[i], err = d.br.Offset(offSize); err != nil {
			return p, err
		}
	}

	p.Pix = make([]RGBA, pixels)
	for i := range p.Pix {
		p.Pix[i].A = 255
	}
	for i, ptr := range ptrs {
		if err := d.seekTo(ptr); err != nil {
			return p, fmt.Errorf("tile %d: %w", i, err)
		}
		if err := d.decodeTile(&p, grid, uint32(i), int(bpp)); err != nil {
			return p, fmt.Errorf("tile %d: %w", i, err)
		}
	}
	return p, nil
}

// decodeTile decodes one tile at the current position into p.
func (d *decoder) decodeTile(p *PixelData, grid tileGrid, index uint32, bpp int) error {
	x0, y0, tw, th := grid.tile(index)
	samples := int(tw) * int(th)

	switch d.compression {
	case CompressRLE:
		for c := 0; c < bpp; c++ {
			data, err := rle.Decompress(d.br, samples)
			if err != nil {
				if err == rle.ErrOverrun {
					return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
				}
				return err
			}
			scatterChannel(p, data, x0, y0, tw, c)
		}
	case CompressNone:
		data, err := d.br.Bytes(samples * bpp)
		if err != nil {
			return err
		}
		scatterInterleaved(p, data, x0, y0, tw, bpp)
	case CompressZlib:
		zr, err := zlib.NewReader(d.br)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		defer zr.Close()
		data := make([]byte, samples*bpp)
		if _, err := io.ReadFull(zr, data); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return ErrTruncated
			}
			return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		scatterInterleaved(p, data, x0, y0, tw, bpp)
	default:
		return fmt.Errorf("%w: compression %s", ErrNotSupported, d.compression)
	}
	return nil
}

// scatterChannel writes one decoded channel plane into the pixel
// buffer of a tile at (x0, y0) with row width tw.
func scatterChannel(p *PixelData, data []byte, x0, y0, tw uint32, channel int) {
	for i, v := range data {
		x := x0 + uint32(i)%tw
		y := y0 + uint32(i)/tw
		px := &p.Pix[y*p.Width+x]
		switch channel {
		case 0:
			px.R = v
		case 1:
			px.G = v
		case 2:
			px.B = v
		case 3:
			px.A = v
		}
	}
}

// scatterInterleaved writes pixel-interleaved tile bytes into the
// pixel buffer.
func scatterInterleaved(p *PixelData, data []byte, x0, y0, tw uint32, bpp int) {
	for i := 0; i*bpp < len(data); i++ {
		x := x0 + uint32(i)%tw
		y := y0 + uint32(i)/tw
		px := &p.Pix[y*p.Width+x]
		px.R = data[i*bpp]
		px.G = data[i*bpp+1]
		px.B = data[i*bpp+2]
		if bpp == 4 {
			px.A = data[i*bpp+3]
		}
	}
}
