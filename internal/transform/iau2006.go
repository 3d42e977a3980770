package transform

import (
	"math"

	"github.com/star/framerot/internal/rotation"
)

// fundamentalArgs are the Delaunay arguments (IERS Conventions 2003), radians.
type fundamentalArgs struct {
	l, lp, f, d, om float64
}

func delaunay(t float64) fundamentalArgs {
	arg := func(c0, c1, c2, c3, c4 float64) float64 {
		as := c0 + t*(c1+t*(c2+t*(c3+t*c4)))
		return math.Mod(as, 1296000) * arcsec
	}
	return fundamentalArgs{
		l:  arg(485868.249036, 1717915923.2178, 31.8792, 0.051635, -0.00024470),
		lp: arg(1287104.793048, 129596581.0481, -0.5532, 0.000136, -0.00001149),
		f:  arg(335779.526232, 1739527262.8478, -12.7512, -0.001037, 0.00000417),
		d:  arg(1072260.703692, 1602961601.2090, -6.3706, 0.006593, -0.00003169),
		om: arg(450160.398036, -6962890.5431, 7.4722, 0.007702, -0.00005939),
	}
}

// poly5 evaluates c[0] + c[1]t + … + c[5]t⁵.
func poly5(c [6]float64, t float64) float64 {
	return c[0] + t*(c[1]+t*(c[2]+t*(c[3]+t*(c[4]+t*c[5]))))
}

// Fukushima-Williams bias-precession angles (IAU 2006), arcseconds.
var (
	fwGamma = [6]float64{-0.052928, 10.556378, 0.4932044, -0.00031238, -0.000002788, 0.0000000260}
	fwPhi   = [6]float64{84381.412819, -46.811016, 0.0511268, 0.00053289, -0.000000440, -0.0000000176}
	fwPsi   = [6]float64{-0.041775, 5038.481484, 1.5584175, -0.00018522, -0.000026452, -0.0000000148}
	fwEpsA  = [6]float64{84381.406, -46.836769, -0.0001831, 0.00200340, -0.000000576, -0.0000000434}
)

// npb returns the bias-precession-nutation sequence from GCRF to the true
// equator and equinox of date.
func npb(jdTT float64) rotation.Sequence {
	t := julianCenturies(jdTT)
	dPsi, dEps, _ := Nutation(jdTT)
	return rotation.Sequence{
		{Axis: rotation.Z, Angle: poly5(fwGamma, t) * arcsec},
		{Axis: rotation.X, Angle: poly5(fwPhi, t) * arcsec},
		{Axis: rotation.Z, Angle: -(poly5(fwPsi, t)*arcsec + dPsi)},
		{Axis: rotation.X, Angle: -(poly5(fwEpsA, t)*arcsec + dEps)},
	}
}

// CIP returns the GCRS coordinates X and Y of the Celestial Intermediate
// Pole in radians, before observed corrections.
//
// Nutation comes from the IAU-1980 series, not IAU-2000A. The model differs
// from IAU-2000A by tens of milliarcseconds, which exceeds the observed dX
// and dY offsets, so CIRSToGCRF is accurate to that level rather than to the
// published corrections.
func CIP(jdTT float64) (x, y float64) {
	m := rotation.FromSequence(rotation.DCMBuilder{}, npb(jdTT))
	return m.At(2, 0), m.At(2, 1)
}

// sTerm is one periodic term of the CIO locator series. Multipliers apply to
// l, l′, F, D and Ω; coefficients are in microarcseconds.
type sTerm struct {
	n        [5]float64
	sin, cos float64
}

var (
	// Polynomial part of s + XY/2, microarcseconds.
	sPoly = [6]float64{94.00, 3808.65, -122.68, -72574.11, 27.98, 15.62}

	sTerms0 = []sTerm{
		{[5]float64{0, 0, 0, 0, 1}, -2640.73, 0.39},
		{[5]float64{0, 0, 0, 0, 2}, -63.53, 0.02},
		{[5]float64{0, 0, 2, -2, 3}, -11.75, -0.01},
		{[5]float64{0, 0, 2, -2, 1}, -11.21, -0.01},
		{[5]float64{0, 0, 2, -2, 2}, 4.57, 0.00},
		{[5]float64{0, 0, 2, 0, 3}, -2.02, 0.00},
		{[5]float64{0, 0, 2, 0, 1}, -1.98, 0.00},
		{[5]float64{0, 0, 0, 0, 3}, 1.72, 0.00},
		{[5]float64{0, 1, 0, 0, 1}, 1.41, 0.01},
		{[5]float64{0, 1, 0, 0, -1}, 1.26, 0.01},
		{[5]float64{1, 0, 0, 0, -1}, -0.63, 0.00},
		{[5]float64{1, 0, 0, 0, 1}, -0.63, 0.00},
	}
	sTerms1 = []sTerm{
		{[5]float64{0, 0, 0, 0, 2}, -0.07, 3.57},
		{[5]float64{0, 0, 0, 0, 1}, 1.73, -0.03},
		{[5]float64{0, 0, 2, -2, 3}, 0.00, 0.48},
	}
	sTerms2 = []sTerm{
		{[5]float64{0, 0, 0, 0, 1}, 743.52, -0.17},
		{[5]float64{0, 0, 2, -2, 2}, 56.91, 0.06},
		{[5]float64{0, 0, 2, 0, 2}, 9.84, -0.01},
		{[5]float64{0, 0, 0, 0, 2}, -8.85, 0.01},
	}
)

func sumTerms(terms []sTerm, fa fundamentalArgs) float64 {
	var sum float64
	for _, tm := range terms {
		a := tm.n[0]*fa.l + tm.n[1]*fa.lp + tm.n[2]*fa.f + tm.n[3]*fa.d + tm.n[4]*fa.om
		sum += tm.sin*math.Sin(a) + tm.cos*math.Cos(a)
	}
	return sum
}

// CIOLocator returns s in radians given the CIP coordinates x and y.
func CIOLocator(jdTT, x, y float64) float64 {
	t := julianCenturies(jdTT)
	fa := delaunay(t)
	uas := poly5(sPoly, t) +
		sumTerms(sTerms0, fa) +
		sumTerms(sTerms1, fa)*t +
		sumTerms(sTerms2, fa)*t*t
	return uas*1e-6*arcsec - x*y/2
}

// TIOLocator returns s′ in radians.
func TIOLocator(jdTT float64) float64 {
	return -47e-6 * julianCenturies(jdTT) * arcsec
}

// ITRFToTIRS removes polar motion and the TIO locator. xp and yp are in
// radians.
func ITRFToTIRS(jdTT, xp, yp float64) rotation.Sequence {
	return rotation.Sequence{
		{Axis: rotation.X, Angle: yp},
		{Axis: rotation.Y, Angle: xp},
		{Axis: rotation.Z, Angle: -TIOLocator(jdTT)},
	}
}

// TIRSToCIRS rotates by the Earth Rotation Angle.
func TIRSToCIRS(jdUT1 float64) rotation.Sequence {
	return rotation.Sequence{
		{Axis: rotation.Z, Angle: -EarthRotationAngle(jdUT1)},
	}
}

// CIRSToGCRF applies the celestial motion of the CIP. dX and dY are the
// observed offsets in radians.
func CIRSToGCRF(jdTT, dX, dY float64) rotation.Sequence {
	x, y := CIP(jdTT)
	x += dX
	y += dY
	s := CIOLocator(jdTT, x, y)

	e := 0.0
	r2 := x*x + y*y
	if r2 > 0 {
		e = math.Atan2(y, x)
	}
	d := math.Atan(math.Sqrt(r2 / (1 - r2)))

	return rotation.Sequence{
		{Axis: rotation.Z, Angle: e + s},
		{Axis: rotation.Y, Angle: -d},
		{Axis: rotation.Z, Angle: -e},
	}
}
