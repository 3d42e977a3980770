package eop

import (
	"fmt"
	"sort"

	"github.com/star/framerot/internal/timescale"
)

// IAU1980 holds the EOP series for the IAU-76/FK5 theory.
type IAU1980 struct {
	xp, yp *series
	ut1tai *series
	dpsi   *series
	deps   *series
	n      int
}

// IAU2000A holds the EOP series for the IAU-2006/2010 theory.
type IAU2000A struct {
	xp, yp *series
	ut1tai *series
	dx, dy *series
	n      int
}

// sortedCopy returns records ordered by epoch.
func sortedCopy(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MJD < out[j].MJD })
	return out
}

// leapOffset is TAI−UTC at jd, or zero before the leap-second table.
func leapOffset(jd float64) float64 {
	dat, err := timescale.TAIMinusUTC(jd)
	if err != nil {
		return 0
	}
	return dat
}

// ut1MinusTAI is the tabulated UT1−UTC without the leap-second steps, so the
// series can be interpolated across them.
func ut1MinusTAI(r Record) float64 {
	return r.UT1UTC - leapOffset(r.JD())
}

// ut1UTC evaluates s, a UT1−TAI series, as UT1−UTC at jdUTC.
func ut1UTC(s *series, jdUTC float64) (float64, error) {
	v, err := s.at(jdUTC)
	if err != nil {
		return 0, err
	}
	return v + leapOffset(jdUTC), nil
}

type seriesSpec struct {
	dst   **series
	name  string
	value func(Record) float64
}

func buildAll(records []Record, specs []seriesSpec) error {
	for _, s := range specs {
		ser, err := newSeries(s.name, records, s.value)
		if err != nil {
			return err
		}
		*s.dst = ser
	}
	return nil
}

// NewIAU1980 builds IAU1980 data from records carrying x_p, y_p, UT1−UTC,
// dPsi and dEps.
func NewIAU1980(records []Record) (*IAU1980, error) {
	records = sortedCopy(records)
	d := &IAU1980{n: len(records)}
	err := buildAll(records, []seriesSpec{
		{&d.xp, "x_p", func(r Record) float64 { return r.XP }},
		{&d.yp, "y_p", func(r Record) float64 { return r.YP }},
		{&d.ut1tai, "UT1-UTC", ut1MinusTAI},
		{&d.dpsi, "dPsi", func(r Record) float64 { return r.DPsi }},
		{&d.deps, "dEps", func(r Record) float64 { return r.DEps }},
	})
	if err != nil {
		return nil, fmt.Errorf("building IAU1980 EOP: %w", err)
	}
	return d, nil
}

// NewIAU2000A builds IAU2000A data from records carrying x_p, y_p, UT1−UTC,
// dX and dY.
func NewIAU2000A(records []Record) (*IAU2000A, error) {
	records = sortedCopy(records)
	d := &IAU2000A{n: len(records)}
	err := buildAll(records, []seriesSpec{
		{&d.xp, "x_p", func(r Record) float64 { return r.XP }},
		{&d.yp, "y_p", func(r Record) float64 { return r.YP }},
		{&d.ut1tai, "UT1-UTC", ut1MinusTAI},
		{&d.dx, "dX", func(r Record) float64 { return r.DX }},
		{&d.dy, "dY", func(r Record) float64 { return r.DY }},
	})
	if err != nil {
		return nil, fmt.Errorf("building IAU2000A EOP: %w", err)
	}
	return d, nil
}

func (d *IAU1980) Model() Model { return ModelIAU1980 }
func (d *IAU1980) Len() int     { return d.n }

func (d *IAU1980) Coverage() (float64, float64) { return d.xp.first, d.xp.last }

func (d *IAU1980) UT1UTC(jdUTC float64) (float64, error) { return ut1UTC(d.ut1tai, jdUTC) }

func (d *IAU1980) PolarMotion(jd float64) (float64, float64, error) {
	return polarMotion(d.xp, d.yp, jd)
}

// NutationCorrections returns dEps and dPsi in radians.
func (d *IAU1980) NutationCorrections(jd float64) (dEps, dPsi float64, err error) {
	return pair(d.deps, d.dpsi, jd)
}

func (d *IAU2000A) Model() Model { return ModelIAU2000A }
func (d *IAU2000A) Len() int     { return d.n }

func (d *IAU2000A) Coverage() (float64, float64) { return d.xp.first, d.xp.last }

func (d *IAU2000A) UT1UTC(jdUTC float64) (float64, error) { return ut1UTC(d.ut1tai, jdUTC) }

func (d *IAU2000A) PolarMotion(jd float64) (float64, float64, error) {
	return polarMotion(d.xp, d.yp, jd)
}

// CIPCorrections returns dX and dY in radians.
func (d *IAU2000A) CIPCorrections(jd float64) (dX, dY float64, err error) {
	return pair(d.dx, d.dy, jd)
}

func polarMotion(xp, yp *series, jd float64) (float64, float64, error) {
	return pair(xp, yp, jd)
}

// pair evaluates two arcsecond series and converts them to radians.
func pair(a, b *series, jd float64) (float64, float64, error) {
	va, err := a.at(jd)
	if err != nil {
		return 0, 0, err
	}
	vb, err := b.at(jd)
	if err != nil {
		return 0, 0, err
	}
	return va * ArcsecToRad, vb * ArcsecToRad, nil
}
