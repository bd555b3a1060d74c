package xcf

import "fmt"

// Precision is the per-channel storage precision of an image. The
// constants use the modern (version 7+) on-disk code values; older
// containers encode the same precisions with different numbers, and
// parsePrecision/encodePrecision translate per version.
type Precision uint32

const (
	LinearU8      Precision = 100
	NonLinearU8   Precision = 150
	PerceptualU8  Precision = 175
	LinearU16     Precision = 200
	NonLinearU16  Precision = 250
	PerceptualU16 Precision = 275
	LinearU32     Precision = 300
	NonLinearU32  Precision = 350
	PerceptualU32 Precision = 375
	LinearF16     Precision = 500
	NonLinearF16  Precision = 550
	PerceptualF16 Precision = 575
	LinearF32     Precision = 600
	NonLinearF32  Precision = 650
	PerceptualF32 Precision = 675
	LinearF64     Precision = 700
	NonLinearF64  Precision = 750
	PerceptualF64 Precision = 775
)

// BytesPerChannel returns the storage width of one channel sample.
func (p Precision) BytesPerChannel() int {
	switch {
	case p < LinearU16:
		return 1
	case p < LinearU32:
		return 2
	case p < LinearF16:
		return 4
	case p < LinearF32:
		return 2
	case p < LinearF64:
		return 4
	default:
		return 8
	}
}

// Version 4 used a small enumeration instead of the hundred-codes.
var precisionV4 = map[uint32]Precision{
	0: NonLinearU8,
	1: NonLinearU16,
	2: LinearU32,
	3: LinearF16,
	4: LinearF32,
}

// Versions 5 and 6 had no perceptual variants and packed the float
// precisions into lower codes.
var precisionV5 = map[uint32]Precision{
	100: LinearU8,
	150: NonLinearU8,
	200: LinearU16,
	250: NonLinearU16,
	300: LinearU32,
	350: NonLinearU32,
	400: LinearF16,
	450: NonLinearF16,
	500: LinearF32,
	550: NonLinearF32,
}

var precisionV7 = map[uint32]Precision{
	100: LinearU8,
	150: NonLinearU8,
	175: PerceptualU8,
	200: LinearU16,
	250: NonLinearU16,
	275: PerceptualU16,
	300: LinearU32,
	350: NonLinearU32,
	375: PerceptualU32,
	500: LinearF16,
	550: NonLinearF16,
	575: PerceptualF16,
	600: LinearF32,
	650: NonLinearF32,
	675: PerceptualF32,
	700: LinearF64,
	750: NonLinearF64,
	775: PerceptualF64,
}

func precisionTable(v Version) (map[uint32]Precision, error) {
	switch {
	case v == 4:
		return precisionV4, nil
	case v == 5 || v == 6:
		return precisionV5, nil
	case v >= 7:
		return precisionV7, nil
	default:
		return nil, fmt.Errorf("%w: version %d carries no precision field", ErrInvalidPrecision, v)
	}
}

// parsePrecision maps an on-disk precision code to its canonical value
// under the given container version.
func parsePrecision(raw uint32, v Version) (Precision, error) {
	table, err := precisionTable(v)
	if err != nil {
		return 0, err
	}
	p, ok := table[raw]
	if !ok {
		return 0, fmt.Errorf("%w: code %d at version %d", ErrInvalidPrecision, raw, v)
	}
	return p, nil
}

// encodePrecision maps a canonical precision to its on-disk code under
// the given container version.
func encodePrecision(p Precision, v Version) (uint32, error) {
	table, err := precisionTable(v)
	if err != nil {
		return 0, err
	}
	for raw, canon := range table {
		if canon == p {
			return raw, nil
		}
	}
	return 0, fmt.Errorf("%w: precision %d not representable at version %d", ErrInvalidPrecision, p, v)
}
