package transform

import (
	"math"
	"testing"

	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func geo(latDeg, lonDeg, alt float64) Geodetic {
	return Geodetic{Lat: unit.AngleFromDeg(latDeg), Lon: unit.AngleFromDeg(lonDeg), Alt: alt}
}

func TestGeodeticToITRFRadii(t *testing.T) {
	// WGS-84 equatorial and polar radii.
	assert.InDelta(t, 6378137.0, r3.Norm(GeodeticToITRF(geo(0, 0, 0))), 1e-6)
	assert.InDelta(t, 6356752.314245, r3.Norm(GeodeticToITRF(geo(90, 0, 0))), 1e-5)

	diff := r3.Norm(GeodeticToITRF(geo(0, 0, 100))) - r3.Norm(GeodeticToITRF(geo(0, 0, 0)))
	assert.InDelta(t, 100.0, diff, 1e-6)
}

func TestGeodeticRoundTrip(t *testing.T) {
	tests := []Geodetic{
		geo(0, 0, 0),
		geo(39.7392, -104.9903, 1609),
		geo(-33.8688, 151.2093, 58),
		geo(78.2232, 15.6267, 400000),
		geo(-89.9, 0, 2835),
	}
	for _, g := range tests {
		got := ITRFToGeodetic(GeodeticToITRF(g))
		assert.InDelta(t, g.Lat.Rad(), got.Lat.Rad(), 1e-11, "lat %v", g.Lat.Deg())
		assert.InDelta(t, g.Lon.Rad(), got.Lon.Rad(), 1e-12, "lon %v", g.Lon.Deg())
		assert.InDelta(t, g.Alt, got.Alt, 1e-4, "alt at lat %v", g.Lat.Deg())
	}
}

func TestTopocentricOverhead(t *testing.T) {
	st := geo(0, 0, 0)
	la := Topocentric(st, r3.Add(GeodeticToITRF(st), r3.Vec{X: 400000}))
	assert.InDelta(t, 90.0, la.Elevation.Deg(), 1e-9)
	assert.InDelta(t, 400000.0, la.Range, 1e-6)
}

func TestTopocentricAzimuth(t *testing.T) {
	st := geo(0, 0, 0)
	tests := []struct {
		name   string
		target Geodetic
		az     float64
	}{
		{"north", geo(10, 0, 400000), 0},
		{"east", geo(0, 10, 400000), 90},
		{"south", geo(-10, 0, 400000), 180},
		{"west", geo(0, -10, 400000), 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			la := Topocentric(st, GeodeticToITRF(tt.target))
			d := math.Mod(la.Azimuth.Deg()-tt.az+540, 360) - 180
			assert.InDelta(t, 0, d, 0.5)
			assert.Greater(t, la.Range, 0.0)
		})
	}
}

func TestTopocentricBelowHorizon(t *testing.T) {
	la := Topocentric(geo(0, 0, 0), GeodeticToITRF(geo(0, 90, 400000)))
	assert.Less(t, la.Elevation.Deg(), 0.0)
}
