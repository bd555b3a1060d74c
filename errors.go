package xcf

import (
	"errors"

	"github.com/mrjoshuak/go-xcf/internal/bio"
)

// Errors returned by the codec. Underlying I/O failures from the byte
// source or sink are forwarded unchanged; everything else wraps one of
// these sentinels, so errors.Is works across context wrapping.
var (
	// ErrTruncated reports that the input ended in the middle of a field.
	ErrTruncated = bio.ErrTruncated

	// ErrEncoding reports invalid UTF-8 in a name or parasite field.
	ErrEncoding = bio.ErrEncoding

	// ErrInvalidFormat reports a structural mismatch: a bad signature,
	// an out-of-range offset, or inconsistent hierarchy dimensions.
	ErrInvalidFormat = errors.New("xcf: invalid format")

	// ErrUnknownVersion reports version digits that could not be parsed.
	ErrUnknownVersion = errors.New("xcf: unknown version")

	// ErrInvalidPrecision reports a precision value outside the set
	// defined for the container version.
	ErrInvalidPrecision = errors.New("xcf: invalid precision")

	// ErrNotSupported reports a feature the codec does not implement,
	// such as fractal compression or non-RGB pixel decoding.
	ErrNotSupported = errors.New("xcf: not supported")
)
