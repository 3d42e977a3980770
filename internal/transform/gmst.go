// Package transform provides the elementary frame rotations that the frame
// dispatcher chains together.
//
// Each provider returns a rotation.Sequence describing the passive rotation
// from its origin frame to its destination frame, in application order. The
// sequence is realised as a DCM or quaternion by the caller.
//
// FK5 (equinox-based) providers follow Vallado, "Fundamentals of Astrodynamics
// and Applications", Ch. 3: IAU-82 GMST, IAU-76 precession and IAU-80
// nutation. IAU-2006 (CIO-based) providers follow the IERS Conventions 2010,
// Ch. 5.
package transform

import (
	"math"

	"github.com/star/framerot/internal/timescale"
)

// OmegaEarth is Earth's rotation rate in rad/s (IAU value).
const OmegaEarth = 7.292115146706979e-5

// arcsec converts arcseconds to radians.
const arcsec = math.Pi / 648000

// julianCenturies returns centuries elapsed since J2000.0 on the scale of jd.
func julianCenturies(jd float64) float64 {
	return (jd - timescale.J2000) / 36525.0
}

// GMST calculates Greenwich Mean Sidereal Time in radians from a UT1 Julian
// Date, using the IAU-82 model (Vallado Eq 3-47):
//
//	θ_GMST = 67310.54841 + (876600h + 8640184.812866)*T + 0.093104*T² - 6.2e-6*T³
//
// where T is Julian centuries of UT1 from J2000.0, result is in seconds of time.
func GMST(jdUT1 float64) float64 {
	tUT1 := julianCenturies(jdUT1)

	// 876600h = 876600 * 3600 = 3155760000 seconds.
	gmstSec := 67310.54841 +
		(3155760000.0+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	gmstSec = math.Mod(gmstSec, 86400.0)
	if gmstSec < 0 {
		gmstSec += 86400.0
	}
	return gmstSec / 86400.0 * 2.0 * math.Pi
}

// EarthRotationAngle returns the IAU 2000 Earth Rotation Angle in radians,
// normalised to [0, 2π).
func EarthRotationAngle(jdUT1 float64) float64 {
	du := jdUT1 - timescale.J2000
	// Split the integer day so the fractional turn keeps full precision.
	_, frac := math.Modf(du)
	turns := 0.7790572732640 + frac + 0.00273781191135448*du
	turns = math.Mod(turns, 1)
	if turns < 0 {
		turns++
	}
	return 2 * math.Pi * turns
}

// normalizeAngle wraps a to [0, 2π).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
