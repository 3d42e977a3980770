package eop

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// series is a piecewise-linear function of Julian Date.
type series struct {
	name  string
	first float64
	last  float64
	pl    interp.PiecewiseLinear
}

// newSeries fits the samples whose value is not NaN. Epochs must be strictly
// increasing.
func newSeries(name string, records []Record, value func(Record) float64) (*series, error) {
	xs := make([]float64, 0, len(records))
	ys := make([]float64, 0, len(records))
	for _, r := range records {
		v := value(r)
		if math.IsNaN(v) || math.IsNaN(r.MJD) {
			continue
		}
		// Fit panics on non-increasing abscissae.
		if n := len(xs); n > 0 && r.JD() <= xs[n-1] {
			return nil, fmt.Errorf("%s: epochs not strictly increasing at MJD %.2f", name, r.MJD)
		}
		xs = append(xs, r.JD())
		ys = append(ys, v)
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("%s: %w (%d)", name, ErrInsufficientData, len(xs))
	}

	s := &series{name: name, first: xs[0], last: xs[len(xs)-1]}
	if err := s.pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

// at returns the interpolated value at jd.
func (s *series) at(jd float64) (float64, error) {
	if math.IsNaN(jd) || jd < s.first || jd > s.last {
		return 0, &CoverageError{Series: s.name, JD: jd, First: s.first, Last: s.last}
	}
	return s.pl.Predict(jd), nil
}
