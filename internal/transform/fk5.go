package transform

import (
	"math"

	"github.com/soniakeys/meeus/v3/nutation"

	"github.com/star/framerot/internal/rotation"
)

// eqeKinematicEpoch is 1997-02-27 00:00 UTC, after which the IAU-1994
// kinematic terms are included in the equation of the equinoxes.
const eqeKinematicEpoch = 2450449.5

// Nutation returns the IAU-1980 nutation in longitude and obliquity and the
// IAU-1980 mean obliquity, all in radians, at a TT Julian Date.
func Nutation(jdTT float64) (dPsi, dEps, meanObliquity float64) {
	psi, eps := nutation.Nutation(jdTT)
	return psi.Rad(), eps.Rad(), nutation.MeanObliquity(jdTT).Rad()
}

// moonNode returns the mean longitude of the Moon's ascending node (radians)
// as used by the IAU-1982 equation of the equinoxes.
func moonNode(jdTT float64) float64 {
	t := julianCenturies(jdTT)
	deg := 125.04452222 - (5*360+134.1362608)*t + 0.0020708*t*t + 2.2e-6*t*t*t
	return normalizeAngle(deg * math.Pi / 180)
}

// EquationOfEquinoxes returns GAST − GMST in radians. dPsi is the observed
// correction to the nutation in longitude.
func EquationOfEquinoxes(jdTT, dPsi float64) float64 {
	psi, eps, epsBar := Nutation(jdTT)
	eqe := (psi + dPsi) * math.Cos(epsBar+eps)
	if jdTT > eqeKinematicEpoch {
		om := moonNode(jdTT)
		eqe += (0.00264*math.Sin(om) + 0.000063*math.Sin(2*om)) * arcsec
	}
	return eqe
}

// GAST returns Greenwich Apparent Sidereal Time in radians.
func GAST(jdUT1, jdTT, dPsi float64) float64 {
	return normalizeAngle(GMST(jdUT1) + EquationOfEquinoxes(jdTT, dPsi))
}

// PrecessionAngles returns the IAU-1976 precession angles ζ, θ and z in
// radians at a TT Julian Date.
func PrecessionAngles(jdTT float64) (zeta, theta, z float64) {
	t := julianCenturies(jdTT)
	t2, t3 := t*t, t*t*t
	zeta = (2306.2181*t + 0.30188*t2 + 0.017998*t3) * arcsec
	theta = (2004.3109*t - 0.42665*t2 - 0.041833*t3) * arcsec
	z = (2306.2181*t + 1.09468*t2 + 0.018203*t3) * arcsec
	return zeta, theta, z
}

// ITRFToPEF removes polar motion. xp and yp are in radians.
func ITRFToPEF(xp, yp float64) rotation.Sequence {
	return rotation.Sequence{
		{Axis: rotation.X, Angle: yp},
		{Axis: rotation.Y, Angle: xp},
	}
}

// PEFToTOD rotates by the apparent sidereal time.
func PEFToTOD(jdUT1, jdTT, dPsi float64) rotation.Sequence {
	return rotation.Sequence{
		{Axis: rotation.Z, Angle: -GAST(jdUT1, jdTT, dPsi)},
	}
}

// TODToMOD removes nutation. dEps and dPsi are the observed corrections in
// radians; pass zero to use the bare IAU-1980 theory.
func TODToMOD(jdTT, dEps, dPsi float64) rotation.Sequence {
	psi, eps, epsBar := Nutation(jdTT)
	return rotation.Sequence{
		{Axis: rotation.X, Angle: epsBar + eps + dEps},
		{Axis: rotation.Z, Angle: psi + dPsi},
		{Axis: rotation.X, Angle: -epsBar},
	}
}

// PEFToMOD chains PEFToTOD and TODToMOD with consistent corrections.
func PEFToMOD(jdUT1, jdTT, dEps, dPsi float64) rotation.Sequence {
	seq := PEFToTOD(jdUT1, jdTT, dPsi)
	return append(seq, TODToMOD(jdTT, dEps, dPsi)...)
}

// PEFToTEME rotates by the mean sidereal time. TEME shares the true equator
// of TOD but measures right ascension from the mean equinox.
func PEFToTEME(jdUT1 float64) rotation.Sequence {
	return rotation.Sequence{
		{Axis: rotation.Z, Angle: -GMST(jdUT1)},
	}
}

// MODToGCRF removes IAU-1976 precession. The FK5 frame bias is not applied,
// so the destination is the J2000 mean equator and equinox.
func MODToGCRF(jdTT float64) rotation.Sequence {
	zeta, theta, z := PrecessionAngles(jdTT)
	return rotation.Sequence{
		{Axis: rotation.Z, Angle: z},
		{Axis: rotation.Y, Angle: -theta},
		{Axis: rotation.Z, Angle: zeta},
	}
}
