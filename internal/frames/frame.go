// Package frames dispatches rotations between Earth-fixed (ECEF) and inertial
// (ECI) reference frames.
//
// Two model families are supported. The FK5 family (IAU-76/FK5 theory) covers
// ITRF, PEF, MOD, TOD, J2000, GCRF and TEME; the IAU2006 family (IAU-2006/2010,
// CIO based) covers ITRF, TIRS, CIRS and GCRF. A conversion is planned from a
// fixed route table, parameters are resolved from the epoch and the optional
// Earth Orientation data, and the chain of elementary rotations is then
// composed in the caller's representation.
//
// All functions are pure and safe for concurrent use.
package frames

import (
	"fmt"
	"strings"
)

// Frame identifies a reference frame.
type Frame uint8

const (
	ITRF Frame = iota + 1
	PEF
	TIRS
	MOD
	TOD
	GCRF
	J2000
	TEME
	CIRS
)

var frameNames = map[Frame]string{
	ITRF:  "ITRF",
	PEF:   "PEF",
	TIRS:  "TIRS",
	MOD:   "MOD",
	TOD:   "TOD",
	GCRF:  "GCRF",
	J2000: "J2000",
	TEME:  "TEME",
	CIRS:  "CIRS",
}

// Frames returns every supported frame in declaration order.
func Frames() []Frame {
	return []Frame{ITRF, PEF, TIRS, MOD, TOD, GCRF, J2000, TEME, CIRS}
}

func (f Frame) String() string {
	if n, ok := frameNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Frame(%d)", uint8(f))
}

// ParseFrame accepts frame names case-insensitively. "ITRS", "GCRS", "TIRF",
// "CIRF" and "EME2000" are accepted as aliases.
func ParseFrame(s string) (Frame, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "ITRS":
		return ITRF, nil
	case "GCRS":
		return GCRF, nil
	case "TIRF":
		return TIRS, nil
	case "CIRF":
		return CIRS, nil
	case "EME2000":
		return J2000, nil
	}
	for f, n := range frameNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown frame %q", ErrUnsupportedConversion, s)
}

// EarthFixed reports whether the frame rotates with the Earth.
func (f Frame) EarthFixed() bool {
	return f == ITRF || f == PEF || f == TIRS
}

// Family is a set of model families, used as a bitmask.
type Family uint8

const (
	FK5 Family = 1 << iota
	IAU2006
)

func (f Family) String() string {
	switch f {
	case FK5:
		return "fk5"
	case IAU2006:
		return "iau2006"
	case FK5 | IAU2006:
		return "fk5|iau2006"
	}
	return fmt.Sprintf("Family(%d)", uint8(f))
}

// Families returns the model families the frame belongs to, or zero for an
// unknown frame.
func (f Frame) Families() Family {
	switch f {
	case ITRF, GCRF:
		return FK5 | IAU2006
	case PEF, MOD, TOD, J2000, TEME:
		return FK5
	case TIRS, CIRS:
		return IAU2006
	}
	return 0
}

// pivot is the Earth-fixed frame through which inertial frames of a family
// are connected.
func (f Family) pivot() Frame {
	if f == IAU2006 {
		return TIRS
	}
	return PEF
}
