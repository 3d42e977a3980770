package frames

import (
	"errors"

	"github.com/star/framerot/internal/eop"
)

var (
	// ErrUnsupportedConversion is returned for unknown frames or pairs with no route.
	ErrUnsupportedConversion = errors.New("unsupported frame conversion")

	// ErrModelMismatch is returned when the frames do not belong to the model
	// family selected by the EOP data, or share no family at all.
	ErrModelMismatch = errors.New("frame and EOP model mismatch")

	// ErrMissingOrientationData is returned when a step needs EOP values that
	// cannot be approximated, such as polar motion, and no data was given.
	ErrMissingOrientationData = errors.New("missing Earth orientation data")

	// ErrDataCoverage matches lookups outside the tabulated EOP range.
	ErrDataCoverage = eop.ErrOutOfCoverage

	// ErrInvalidRepresentation is returned for an unknown rotation representation.
	ErrInvalidRepresentation = errors.New("invalid rotation representation")
)
