// Package eop provides Earth Orientation Parameters as continuous functions of
// epoch, in the two flavours consumed by the frame models:
//
//   - IAU1980: polar motion, UT1−UTC and the nutation corrections dPsi/dEps
//     used with the IAU-76/FK5 theory.
//   - IAU2000A: polar motion, UT1−UTC and the celestial pole offsets dX/dY
//     used with the CIO-based IAU-2006/2010 theory.
//
// Values are built once from tabulated records and never mutated, so a single
// instance can be shared by any number of goroutines.
package eop

import (
	"errors"
	"fmt"
	"math"

	"github.com/star/framerot/internal/timescale"
)

// ArcsecToRad converts arcseconds to radians.
const ArcsecToRad = math.Pi / 648000

// Model identifies the EOP flavour.
type Model uint8

const (
	ModelIAU1980 Model = iota + 1
	ModelIAU2000A
)

func (m Model) String() string {
	switch m {
	case ModelIAU1980:
		return "iau1980"
	case ModelIAU2000A:
		return "iau2000a"
	}
	return fmt.Sprintf("Model(%d)", uint8(m))
}

// ParseModel accepts the names produced by Model.String.
func ParseModel(s string) (Model, error) {
	switch s {
	case "iau1980", "IAU1980":
		return ModelIAU1980, nil
	case "iau2000a", "IAU2000A":
		return ModelIAU2000A, nil
	}
	return 0, fmt.Errorf("unknown EOP model %q", s)
}

var (
	// ErrOutOfCoverage matches every *CoverageError.
	ErrOutOfCoverage = errors.New("epoch outside EOP data coverage")

	// ErrInsufficientData is returned when a series has fewer than two samples.
	ErrInsufficientData = errors.New("insufficient EOP samples")
)

// CoverageError reports a query outside the tabulated range of one series.
type CoverageError struct {
	Series string
	JD     float64
	First  float64
	Last   float64
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("%s: JD %.6f outside [%.6f, %.6f]", e.Series, e.JD, e.First, e.Last)
}

func (e *CoverageError) Is(target error) bool {
	return target == ErrOutOfCoverage
}

// Record is one tabulated row. Angles are in arcseconds, UT1−UTC in seconds
// and LOD in milliseconds. Missing values are NaN.
type Record struct {
	MJD    float64
	XP     float64
	YP     float64
	UT1UTC float64
	LOD    float64
	DPsi   float64
	DEps   float64
	DX     float64
	DY     float64
}

// JD returns the record epoch as a Julian Date (UTC).
func (r Record) JD() float64 {
	return r.MJD + timescale.MJDOffset
}

// Data is implemented by *IAU1980 and *IAU2000A.
type Data interface {
	Model() Model
	// UT1UTC returns UT1 − UTC in seconds.
	UT1UTC(jdUTC float64) (float64, error)
	// PolarMotion returns x_p and y_p in radians.
	PolarMotion(jd float64) (xp, yp float64, err error)
	// Coverage returns the first and last Julian Date of the polar motion series.
	Coverage() (first, last float64)
	// Len returns the number of records the data was built from.
	Len() int
}
