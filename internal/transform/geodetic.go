package transform

import (
	"math"

	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/spatial/r3"
)

// WGS-84 ellipsoid parameters.
const (
	wgs84A  = 6378137.0             // semi-major axis (meters)
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// Geodetic is a position on the WGS-84 ellipsoid. Alt is meters above the
// ellipsoid.
type Geodetic struct {
	Lat, Lon unit.Angle
	Alt      float64
}

// LookAngles holds azimuth, elevation, and range from a station to a target.
type LookAngles struct {
	Azimuth   unit.Angle // 0 = North, clockwise
	Elevation unit.Angle // 0 = horizon
	Range     float64    // meters
}

// GeodeticToITRF returns the Earth-fixed position of g in meters.
func GeodeticToITRF(g Geodetic) r3.Vec {
	sinLat, cosLat := g.Lat.Sincos()
	sinLon, cosLon := g.Lon.Sincos()

	// Radius of curvature in the prime vertical.
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return r3.Vec{
		X: (n + g.Alt) * cosLat * cosLon,
		Y: (n + g.Alt) * cosLat * sinLon,
		Z: (n*(1-wgs84E2) + g.Alt) * sinLat,
	}
}

// ITRFToGeodetic converts an Earth-fixed position in meters to geodetic
// coordinates by fixed-point iteration on the latitude, which converges in
// a few steps for points near the Earth.
func ITRFToGeodetic(v r3.Vec) Geodetic {
	lon := math.Atan2(v.Y, v.X)
	p := math.Hypot(v.X, v.Y)

	lat := math.Atan2(v.Z, p*(1-wgs84E2))
	for i := 0; i < 6; i++ {
		sinLat := math.Sin(lat)
		n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(v.Z+wgs84E2*n*sinLat, p)
	}

	sinLat, cosLat := math.Sincos(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - n
	} else {
		alt = math.Abs(v.Z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return Geodetic{Lat: unit.Angle(lat), Lon: unit.Angle(lon), Alt: alt}
}

// Topocentric returns the look angles from station to target, both in the
// same Earth-fixed frame, using the South-East-Zenith rotation (Vallado 4.4).
func Topocentric(station Geodetic, target r3.Vec) LookAngles {
	rho := r3.Sub(target, GeodeticToITRF(station))

	sinLat, cosLat := station.Lat.Sincos()
	sinLon, cosLon := station.Lon.Sincos()

	south := sinLat*cosLon*rho.X + sinLat*sinLon*rho.Y - cosLat*rho.Z
	east := -sinLon*rho.X + cosLon*rho.Y
	zenith := cosLat*cosLon*rho.X + cosLat*sinLon*rho.Y + sinLat*rho.Z

	rng := r3.Norm(rho)
	if rng == 0 {
		return LookAngles{Elevation: unit.Angle(math.Pi / 2)}
	}

	// North is -South in SEZ.
	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}

	return LookAngles{
		Azimuth:   unit.Angle(az),
		Elevation: unit.Angle(math.Asin(zenith / rng)),
		Range:     rng,
	}
}
