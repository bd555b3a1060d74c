package xcf

import (
	"bytes"
	"fmt"

	"github.com/mrjoshuak/go-xcf/internal/bio"
)

// PropertyID identifies a property record. The set is closed; readers
// preserve records with identifiers outside it as UnknownPayload.
type PropertyID uint32

const (
	PropEnd                PropertyID = 0
	PropColormap           PropertyID = 1
	PropActiveLayer        PropertyID = 2
	PropActiveChannel      PropertyID = 3
	PropSelection          PropertyID = 4
	PropFloatingSelection  PropertyID = 5
	PropOpacity            PropertyID = 6
	PropMode               PropertyID = 7
	PropVisible            PropertyID = 8
	PropLinked             PropertyID = 9
	PropLockAlpha          PropertyID = 10
	PropApplyMask          PropertyID = 11
	PropEditMask           PropertyID = 12
	PropShowMask           PropertyID = 13
	PropOffsets            PropertyID = 15
	PropCompression        PropertyID = 17
	PropTypeIdentification PropertyID = 18
	PropResolution         PropertyID = 19
	PropTattoo             PropertyID = 20
	PropParasites          PropertyID = 21
	PropUnit               PropertyID = 22
	PropPaths              PropertyID = 23
	PropUserUnit           PropertyID = 24
	PropVectors            PropertyID = 25
	PropTextLayerFlags     PropertyID = 26
	PropOldSamplePoints    PropertyID = 27
	PropLockContent        PropertyID = 28
	PropLockPosition       PropertyID = 32
	PropFloatOpacity       PropertyID = 33
	PropColorTag           PropertyID = 34
	PropCompositeMode      PropertyID = 35
	PropCompositeSpace     PropertyID = 36
	PropBlendSpace         PropertyID = 37
	PropFloatColor         PropertyID = 38
	PropSamplePoints       PropertyID = 39
	PropItemSet            PropertyID = 40
	PropItemSetItem        PropertyID = 41
	PropLockVisibility     PropertyID = 42
	PropSelectedPath       PropertyID = 43
	PropFilterRegion       PropertyID = 44
	PropFilterArgument     PropertyID = 45
	PropFilterClip         PropertyID = 46
)

// Property is one record of an image-level or layer-level property
// list. The terminating End record is implicit: it is consumed on read
// and emitted on write, never stored.
type Property struct {
	Kind    PropertyID
	Payload PropertyPayload
}

// PropertyPayload is the decoded payload of a property record.
type PropertyPayload interface {
	isPropertyPayload()
}

// CompressionPayload selects the tile compression algorithm.
type CompressionPayload struct {
	Algorithm Compression
}

// ResolutionPayload carries the canvas resolution in DPI.
type ResolutionPayload struct {
	XRes, YRes float32
}

// U32Payload is the payload of the many properties carrying a single
// 32-bit value: Tattoo, Unit, Mode, Visible, Linked, ColorTag, the
// lock and mask flags, BlendSpace, CompositeSpace and CompositeMode.
type U32Payload struct {
	Value uint32
}

// OpacityPayload carries a layer opacity as an RGBA tuple whose alpha
// byte is the 0-255 opacity.
type OpacityPayload struct {
	Color RGBA
}

// FloatOpacityPayload carries a layer opacity as a 0.0-1.0 float.
type FloatOpacityPayload struct {
	Value float32
}

// OffsetsPayload carries a layer's signed canvas offsets.
type OffsetsPayload struct {
	X, Y int32
}

// Parasite is one named annotation within a Parasites property.
type Parasite struct {
	Name  string
	Flags uint32
	Data  string
}

// ParasitesPayload carries a sequence of parasite records.
type ParasitesPayload struct {
	Parasites []Parasite
}

// ColormapPayload carries the palette of an indexed image as packed
// RGB triples.
type ColormapPayload struct {
	Colors []byte
}

// MarkerPayload is the empty payload of zero-length marker properties
// such as ActiveLayer.
type MarkerPayload struct{}

// UnknownPayload preserves the raw bytes of any record the codec does
// not interpret, so it round-trips unchanged.
type UnknownPayload struct {
	Data []byte
}

func (CompressionPayload) isPropertyPayload()  {}
func (ResolutionPayload) isPropertyPayload()   {}
func (U32Payload) isPropertyPayload()          {}
func (OpacityPayload) isPropertyPayload()      {}
func (FloatOpacityPayload) isPropertyPayload() {}
func (OffsetsPayload) isPropertyPayload()      {}
func (ParasitesPayload) isPropertyPayload()    {}
func (ColormapPayload) isPropertyPayload()     {}
func (MarkerPayload) isPropertyPayload()       {}
func (UnknownPayload) isPropertyPayload()      {}

// parseProperties reads records until the End record.
func parseProperties(br *bio.Reader) ([]Property, error) {
	var props []Property
	for {
		kind, err := br.U32()
		if err != nil {
			return nil, err
		}
		length, err := br.U32()
		if err != nil {
			return nil, err
		}
		if PropertyID(kind) == PropEnd {
			return props, nil
		}
		payload, err := parsePayload(br, PropertyID(kind), length)
		if err != nil {
			return nil, fmt.Errorf("property %d: %w", kind, err)
		}
		props = append(props, Property{Kind: PropertyID(kind), Payload: payload})
	}
}

// parsePayload decodes one payload. Records whose kind is understood
// but whose length does not match the expected form fall back to raw
// preservation, honoring the advisory nature of the length field.
func parsePayload(br *bio.Reader, kind PropertyID, length uint32) (PropertyPayload, error) {
	if length == 0 {
		return MarkerPayload{}, nil
	}
	switch kind {
	case PropCompression:
		if length == 1 {
			v, err := br.U8()
			if err != nil {
				return nil, err
			}
			return CompressionPayload{Algorithm: Compression(v)}, nil
		}
	case PropResolution:
		if length == 8 {
			x, err := br.F32()
			if err != nil {
				return nil, err
			}
			y, err := br.F32()
			if err != nil {
				return nil, err
			}
			return ResolutionPayload{XRes: x, YRes: y}, nil
		}
	case PropOpacity:
		if length == 4 {
			b, err := br.Bytes(4)
			if err != nil {
				return nil, err
			}
			return OpacityPayload{Color: RGBA{b[0], b[1], b[2], b[3]}}, nil
		}
	case PropFloatOpacity:
		if length == 4 {
			v, err := br.F32()
			if err != nil {
				return nil, err
			}
			return FloatOpacityPayload{Value: v}, nil
		}
	case PropOffsets:
		if length == 8 {
			x, err := br.I32()
			if err != nil {
				return nil, err
			}
			y, err := br.I32()
			if err != nil {
				return nil, err
			}
			return OffsetsPayload{X: x, Y: y}, nil
		}
	case PropTattoo, PropUnit, PropMode, PropVisible, PropLinked,
		PropColorTag, PropLockContent, PropLockAlpha, PropLockPosition,
		PropLockVisibility, PropApplyMask, PropEditMask, PropShowMask,
		PropBlendSpace, PropCompositeSpace, PropCompositeMode:
		if length == 4 {
			v, err := br.U32()
			if err != nil {
				return nil, err
			}
			return U32Payload{Value: v}, nil
		}
	case PropParasites:
		raw, err := br.Bytes(int(length))
		if err != nil {
			return nil, err
		}
		parasites, err := parseParasites(raw)
		if err != nil {
			return nil, err
		}
		return ParasitesPayload{Parasites: parasites}, nil
	case PropColormap:
		// The declared length of the colormap is wrong in files written
		// by some historical GIMP versions, so the payload is sized from
		// the color count instead.
		n, err := br.U32()
		if err != nil {
			return nil, err
		}
		colors, err := br.Bytes(int(n) * 3)
		if err != nil {
			return nil, err
		}
		return ColormapPayload{Colors: colors}, nil
	}
	raw, err := br.Bytes(int(length))
	if err != nil {
		return nil, err
	}
	return UnknownPayload{Data: raw}, nil
}

// parseParasites decodes parasite records until raw is consumed
// exactly.
func parseParasites(raw []byte) ([]Parasite, error) {
	br, err := bio.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	var out []Parasite
	for {
		pos, err := br.Pos()
		if err != nil {
			return nil, err
		}
		if pos == int64(len(raw)) {
			return out, nil
		}
		name, err := br.GimpString()
		if err != nil {
			return nil, err
		}
		flags, err := br.U32()
		if err != nil {
			return nil, err
		}
		data, err := br.GimpString()
		if err != nil {
			return nil, err
		}
		out = append(out, Parasite{Name: name, Flags: flags, Data: data})
	}
}

// writeProperties serializes props in order and terminates the list
// with the End record.
func writeProperties(w *bio.Writer, props []Property) {
	for _, p := range props {
		writeProperty(w, p)
	}
	w.U32(uint32(PropEnd))
	w.U32(0)
}

func writeProperty(w *bio.Writer, p Property) {
	w.U32(uint32(p.Kind))
	switch pl := p.Payload.(type) {
	case CompressionPayload:
		w.U32(1)
		w.U8(uint8(pl.Algorithm))
	case ResolutionPayload:
		w.U32(8)
		w.F32(pl.XRes)
		w.F32(pl.YRes)
	case U32Payload:
		w.U32(4)
		w.U32(pl.Value)
	case OpacityPayload:
		w.U32(4)
		w.Raw([]byte{pl.Color.R, pl.Color.G, pl.Color.B, pl.Color.A})
	case FloatOpacityPayload:
		w.U32(4)
		w.F32(pl.Value)
	case OffsetsPayload:
		w.U32(8)
		w.I32(pl.X)
		w.I32(pl.Y)
	case ParasitesPayload:
		body := bio.NewWriter(w.OffsetWidth())
		for _, par := range pl.Parasites {
			body.GimpString(par.Name)
			body.U32(par.Flags)
			body.GimpString(par.Data)
		}
		w.U32(uint32(body.Len()))
		w.Raw(body.Bytes())
	case ColormapPayload:
		w.U32(uint32(4 + len(pl.Colors)))
		w.U32(uint32(len(pl.Colors) / 3))
		w.Raw(pl.Colors)
	case MarkerPayload, nil:
		w.U32(0)
	case UnknownPayload:
		w.U32(uint32(len(pl.Data)))
		w.Raw(pl.Data)
	}
}

// imageGridParasite is the canvas grid GIMP attaches to every image it
// writes; emitting the same one keeps the reference tool from
// complaining about synthesized files.
const imageGridParasite = "(style solid)\n(fgcolor (color-rgba 0 0 0 1))\n(bgcolor (color-rgba 1 1 1 1))\n(xspacing 10)\n(yspacing 10)\n(spacing-unit inches)\n(xoffset 0)\n(yoffset 0)\n(offset-unit inches)\n"

// defaultImageProperties is the canonical global property set
// synthesized when a version >= 11 image is written with no properties
// of its own.
func defaultImageProperties() []Property {
	return []Property{
		{Kind: PropCompression, Payload: CompressionPayload{Algorithm: CompressRLE}},
		{Kind: PropResolution, Payload: ResolutionPayload{XRes: 300, YRes: 300}},
		{Kind: PropTattoo, Payload: U32Payload{Value: 2}},
		{Kind: PropUnit, Payload: U32Payload{Value: 1}},
		{Kind: PropParasites, Payload: ParasitesPayload{Parasites: []Parasite{
			{Name: "gimp-comment", Flags: 1, Data: "Test Comment"},
			{Name: "gimp-image-grid", Flags: 1, Data: imageGridParasite},
		}}},
	}
}

// defaultLayerProperties is the canonical per-layer property set
// synthesized when a version >= 11 layer is written with no properties
// of its own. Mode 28 is the post-legacy normal blend mode.
func defaultLayerProperties() []Property {
	return []Property{
		{Kind: PropActiveLayer, Payload: MarkerPayload{}},
		{Kind: PropOpacity, Payload: OpacityPayload{Color: RGBA{0, 0, 0, 255}}},
		{Kind: PropFloatOpacity, Payload: FloatOpacityPayload{Value: 1.0}},
		{Kind: PropVisible, Payload: U32Payload{Value: 1}},
		{Kind: PropLinked, Payload: U32Payload{Value: 0}},
		{Kind: PropColorTag, Payload: U32Payload{Value: 0}},
		{Kind: PropLockContent, Payload: U32Payload{Value: 0}},
		{Kind: PropLockAlpha, Payload: U32Payload{Value: 0}},
		{Kind: PropLockPosition, Payload: U32Payload{Value: 0}},
		{Kind: PropApplyMask, Payload: U32Payload{Value: 0}},
		{Kind: PropEditMask, Payload: U32Payload{Value: 0}},
		{Kind: PropShowMask, Payload: U32Payload{Value: 0}},
		{Kind: PropOffsets, Payload: OffsetsPayload{X: 0, Y: 0}},
		{Kind: PropMode, Payload: U32Payload{Value: 28}},
		{Kind: PropBlendSpace, Payload: U32Payload{Value: 0}},
		{Kind: PropCompositeSpace, Payload: U32Payload{Value: 0xFFFFFFFF}},
		{Kind: PropCompositeMode, Payload: U32Payload{Value: 0xFFFFFFFF}},
		{Kind: PropTattoo, Payload: U32Payload{Value: 2}},
	}
}
