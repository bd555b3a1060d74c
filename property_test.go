package xcf

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/mrjoshuak/go-xcf/internal/bio"
)

func propertyListRoundTrip(t *testing.T, props []Property) []Property {
	t.Helper()
	w := bio.NewWriter(8)
	writeProperties(w, props)

	br, err := bio.NewReader(bytes.NewReader(w.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	got, err := parseProperties(br)
	if err != nil {
		t.Fatalf("parseProperties: %v", err)
	}
	pos, err := br.Pos()
	if err != nil {
		t.Fatal(err)
	}
	if pos != int64(len(w.Bytes())) {
		t.Errorf("parser consumed %d of %d bytes", pos, len(w.Bytes()))
	}
	return got
}

func TestPropertyList_RoundTrip(t *testing.T) {
	props := []Property{
		{Kind: PropCompression, Payload: CompressionPayload{Algorithm: CompressZlib}},
		{Kind: PropResolution, Payload: ResolutionPayload{XRes: 300, YRes: 150}},
		{Kind: PropTattoo, Payload: U32Payload{Value: 7}},
		{Kind: PropUnit, Payload: U32Payload{Value: 1}},
		{Kind: PropActiveLayer, Payload: MarkerPayload{}},
		{Kind: PropOpacity, Payload: OpacityPayload{Color: RGBA{0, 0, 0, 128}}},
		{Kind: PropFloatOpacity, Payload: FloatOpacityPayload{Value: 0.5}},
		{Kind: PropOffsets, Payload: OffsetsPayload{X: -64, Y: 1024}},
		{Kind: PropMode, Payload: U32Payload{Value: 28}},
		{Kind: PropCompositeSpace, Payload: U32Payload{Value: 0xFFFFFFFF}},
		{Kind: PropColormap, Payload: ColormapPayload{Colors: []byte{1, 2, 3, 4, 5, 6}}},
		{Kind: PropParasites, Payload: ParasitesPayload{Parasites: []Parasite{
			{Name: "gimp-comment", Flags: 1, Data: "Test Comment"},
			{Name: "empty", Flags: 0, Data: ""},
		}}},
		{Kind: PropVectors, Payload: UnknownPayload{Data: []byte{9, 9, 9}}},
	}

	got := propertyListRoundTrip(t, props)
	if !reflect.DeepEqual(got, props) {
		t.Errorf("round trip = %+v, want %+v", got, props)
	}
}

func TestPropertyList_OrderPreserved(t *testing.T) {
	props := []Property{
		{Kind: PropTattoo, Payload: U32Payload{Value: 3}},
		{Kind: PropUnit, Payload: U32Payload{Value: 2}},
		{Kind: PropTattoo, Payload: U32Payload{Value: 1}},
	}
	got := propertyListRoundTrip(t, props)
	if !reflect.DeepEqual(got, props) {
		t.Errorf("order not preserved: %+v", got)
	}
}

func TestPropertyList_EmptyTerminates(t *testing.T) {
	w := bio.NewWriter(8)
	writeProperties(w, nil)
	if want := []byte{0, 0, 0, 0, 0, 0, 0, 0}; !bytes.Equal(w.Bytes(), want) {
		t.Errorf("empty list = %v, want bare End record", w.Bytes())
	}
}

// TestParseProperties_UnknownKindSkipsLength checks the advisory
// length contract: unknown kinds skip exactly their declared payload.
func TestParseProperties_UnknownKindSkipsLength(t *testing.T) {
	w := bio.NewWriter(8)
	w.U32(9999) // outside the closed identifier set
	w.U32(3)
	w.Raw([]byte{1, 2, 3})
	w.U32(uint32(PropTattoo))
	w.U32(4)
	w.U32(42)
	w.U32(uint32(PropEnd))
	w.U32(0)

	br, err := bio.NewReader(bytes.NewReader(w.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	got, err := parseProperties(br)
	if err != nil {
		t.Fatal(err)
	}
	want := []Property{
		{Kind: PropertyID(9999), Payload: UnknownPayload{Data: []byte{1, 2, 3}}},
		{Kind: PropTattoo, Payload: U32Payload{Value: 42}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseProperties = %+v, want %+v", got, want)
	}
}

// TestParseProperties_OddLengthFallsBack checks that a known kind with
// an unexpected length keeps its raw payload instead of misparsing.
func TestParseProperties_OddLengthFallsBack(t *testing.T) {
	w := bio.NewWriter(8)
	w.U32(uint32(PropTattoo))
	w.U32(2)
	w.Raw([]byte{0xab, 0xcd})
	w.U32(uint32(PropEnd))
	w.U32(0)

	br, err := bio.NewReader(bytes.NewReader(w.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	got, err := parseProperties(br)
	if err != nil {
		t.Fatal(err)
	}
	want := []Property{{Kind: PropTattoo, Payload: UnknownPayload{Data: []byte{0xab, 0xcd}}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseProperties = %+v, want %+v", got, want)
	}
}

func TestParseProperties_MissingEnd(t *testing.T) {
	w := bio.NewWriter(8)
	w.U32(uint32(PropTattoo))
	w.U32(4)
	w.U32(9)

	br, err := bio.NewReader(bytes.NewReader(w.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parseProperties(br); !errors.Is(err, ErrTruncated) {
		t.Errorf("parseProperties error = %v, want %v", err, ErrTruncated)
	}
}

func TestParseProperties_MalformedParasites(t *testing.T) {
	// A parasite record that claims more bytes than the payload holds.
	w := bio.NewWriter(8)
	w.U32(uint32(PropParasites))
	w.U32(6)
	w.U32(200) // name length far past the payload
	w.Raw([]byte{'h', 0})
	w.U32(uint32(PropEnd))
	w.U32(0)

	br, err := bio.NewReader(bytes.NewReader(w.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parseProperties(br); !errors.Is(err, ErrTruncated) {
		t.Errorf("parseProperties error = %v, want %v", err, ErrTruncated)
	}
}

func TestDefaultProperties_CanonicalShape(t *testing.T) {
	img := defaultImageProperties()
	if img[0].Kind != PropCompression {
		t.Errorf("first default property = %d, want Compression", img[0].Kind)
	}
	if c := img[0].Payload.(CompressionPayload); c.Algorithm != CompressRLE {
		t.Errorf("default compression = %v, want RLE", c.Algorithm)
	}

	layer := defaultLayerProperties()
	if len(layer) != 18 {
		t.Fatalf("got %d default layer properties, want 18", len(layer))
	}
	var mode *Property
	for i := range layer {
		if layer[i].Kind == PropMode {
			mode = &layer[i]
		}
	}
	if mode == nil {
		t.Fatal("no Mode in default layer properties")
	}
	if v := mode.Payload.(U32Payload).Value; v != 28 {
		t.Errorf("default mode = %d, want 28 (post-legacy normal)", v)
	}
}
