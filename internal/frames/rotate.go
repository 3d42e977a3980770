package frames

import (
	"fmt"
	"math"

	"github.com/star/framerot/internal/eop"
	"github.com/star/framerot/internal/rotation"
	"github.com/star/framerot/internal/timescale"
)

// Option configures a conversion.
type Option func(*options)

type options struct {
	lookup timescale.Scale
}

// WithEOPLookup selects the time scale of the epoch used to look up polar
// motion and nutation or CIP corrections: timescale.UTC (the default) or
// timescale.TT. Other scales make the conversion fail with
// ErrUnsupportedConversion. UT1−UTC is always looked up at UTC.
func WithEOPLookup(s timescale.Scale) Option {
	return func(o *options) {
		o.lookup = s
	}
}

// nutationSource is implemented by IAU-1980 EOP data.
type nutationSource interface {
	NutationCorrections(jd float64) (dEps, dPsi float64, err error)
}

// cipSource is implemented by IAU-2000A EOP data.
type cipSource interface {
	CIPCorrections(jd float64) (dX, dY float64, err error)
}

// params are the resolved inputs of every provider on a path.
type params struct {
	jdUTC, jdUT1, jdTT float64
	xp, yp             float64
	dEps, dPsi         float64
	dX, dY             float64
}

// conversion is a fully resolved rotation, ready to be built.
type conversion struct {
	path   path
	params params
}

// normalizeData turns typed nil pointers into an untyped nil.
func normalizeData(d eop.Data) eop.Data {
	switch v := d.(type) {
	case *eop.IAU1980:
		if v == nil {
			return nil
		}
	case *eop.IAU2000A:
		if v == nil {
			return nil
		}
	}
	return d
}

// selectFamily picks the model family for the pair.
func selectFamily(from, to Frame, data eop.Data) (Family, error) {
	ff, tf := from.Families(), to.Families()
	if ff == 0 {
		return 0, fmt.Errorf("%w: unknown frame %s", ErrUnsupportedConversion, from)
	}
	if tf == 0 {
		return 0, fmt.Errorf("%w: unknown frame %s", ErrUnsupportedConversion, to)
	}

	if data != nil {
		var fam Family
		switch data.Model() {
		case eop.ModelIAU1980:
			fam = FK5
		case eop.ModelIAU2000A:
			fam = IAU2006
		default:
			return 0, fmt.Errorf("%w: unknown EOP model %s", ErrModelMismatch, data.Model())
		}
		if ff&fam == 0 || tf&fam == 0 {
			return 0, fmt.Errorf("%w: %s to %s with %s data", ErrModelMismatch, from, to, data.Model())
		}
		return fam, nil
	}

	common := ff & tf
	switch {
	case common == 0:
		return 0, fmt.Errorf("%w: %s and %s share no model family", ErrModelMismatch, from, to)
	case common&FK5 != 0:
		return FK5, nil
	default:
		return IAU2006, nil
	}
}

// prepare plans the conversion and resolves every parameter it needs. No
// provider runs until this has succeeded.
func prepare(from, to Frame, jdUTC float64, data eop.Data, opts []Option) (*conversion, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.lookup != timescale.UTC && o.lookup != timescale.TT {
		return nil, fmt.Errorf("%w: EOP lookup on %s, want UTC or TT", ErrUnsupportedConversion, o.lookup)
	}
	if math.IsNaN(jdUTC) || math.IsInf(jdUTC, 0) {
		return nil, fmt.Errorf("%w: JD %v", timescale.ErrEpochOutOfRange, jdUTC)
	}

	data = normalizeData(data)
	fam, err := selectFamily(from, to, data)
	if err != nil {
		return nil, err
	}
	p, err := planPath(fam, from, to)
	if err != nil {
		return nil, err
	}

	c := &conversion{path: p, params: params{jdUTC: jdUTC, jdUT1: jdUTC, jdTT: jdUTC}}
	if err := c.resolve(data, o); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *conversion) resolve(data eop.Data, o options) error {
	needs := c.path.needs()
	p := &c.params

	eopNeeds := needs & (needPolar | needNutation | needCIP)
	if needs&needTT != 0 || (o.lookup == timescale.TT && eopNeeds != 0 && data != nil) {
		tt, err := timescale.ToTT(p.jdUTC)
		if err != nil {
			return err
		}
		p.jdTT = tt.JD
	}

	// Through the pivot the sidereal rotation appears once forwards and once
	// inverted, so UT1 cancels exactly and need not be looked up.
	if needs&needUT1 != 0 && !c.path.pivoted {
		var src timescale.UT1Source
		if data != nil {
			src = data
		}
		ut1, err := timescale.ToUT1(p.jdUTC, src)
		if err != nil {
			return err
		}
		p.jdUT1 = ut1.JD
	}

	lookup := p.jdUTC
	if o.lookup == timescale.TT {
		lookup = p.jdTT
	}

	if needs&needPolar != 0 {
		if data == nil {
			return fmt.Errorf("%w: polar motion required for %s", ErrMissingOrientationData, c.path.family)
		}
		xp, yp, err := data.PolarMotion(lookup)
		if err != nil {
			return fmt.Errorf("polar motion: %w", err)
		}
		p.xp, p.yp = xp, yp
	}

	if needs&needNutation != 0 && data != nil {
		src, ok := data.(nutationSource)
		if !ok {
			return fmt.Errorf("%w: %s data has no nutation corrections", ErrMissingOrientationData, data.Model())
		}
		dEps, dPsi, err := src.NutationCorrections(lookup)
		if err != nil {
			return fmt.Errorf("nutation corrections: %w", err)
		}
		p.dEps, p.dPsi = dEps, dPsi
	}

	if needs&needCIP != 0 && data != nil {
		src, ok := data.(cipSource)
		if !ok {
			return fmt.Errorf("%w: %s data has no CIP corrections", ErrMissingOrientationData, data.Model())
		}
		dX, dY, err := src.CIPCorrections(lookup)
		if err != nil {
			return fmt.Errorf("CIP corrections: %w", err)
		}
		p.dX, p.dY = dX, dY
	}
	return nil
}

// build composes the resolved path in the representation of b.
func build[R rotation.Rotation[R]](b rotation.Builder[R], c *conversion) R {
	legs := make([]R, 0, len(c.path.legs))
	for _, l := range c.path.legs {
		steps := make([]R, 0, len(l.steps))
		for _, s := range l.steps {
			steps = append(steps, rotation.FromSequence(b, s.sequence(c.params)))
		}
		r := rotation.Compose(b.Identity(), steps...)
		if l.inverse {
			r = r.Inverse()
		}
		legs = append(legs, r)
	}
	return rotation.Compose(b.Identity(), legs...)
}

// RotateDCM returns the matrix D with r_to = D·r_from at the UTC Julian Date.
// data may be nil, in which case UT1 is taken equal to UTC and all
// corrections are zero; conversions that need polar motion then fail.
func RotateDCM(from, to Frame, jdUTC float64, data eop.Data, opts ...Option) (rotation.DCM, error) {
	c, err := prepare(from, to, jdUTC, data, opts)
	if err != nil {
		return rotation.DCM{}, err
	}
	return build[rotation.DCM](rotation.DCMBuilder{}, c), nil
}

// RotateQuaternion is RotateDCM in quaternion form. The result is unit norm
// with a non-negative scalar part.
func RotateQuaternion(from, to Frame, jdUTC float64, data eop.Data, opts ...Option) (rotation.Quat, error) {
	c, err := prepare(from, to, jdUTC, data, opts)
	if err != nil {
		return rotation.Quat{}, err
	}
	return build[rotation.Quat](rotation.QuatBuilder{}, c).Normalize().Canonical(), nil
}

// Rotate dispatches to RotateDCM or RotateQuaternion.
func Rotate(rep rotation.Representation, from, to Frame, jdUTC float64, data eop.Data, opts ...Option) (rotation.Value, error) {
	switch rep {
	case rotation.Matrix:
		d, err := RotateDCM(from, to, jdUTC, data, opts...)
		if err != nil {
			return nil, err
		}
		return d, nil
	case rotation.Quaternion:
		q, err := RotateQuaternion(from, to, jdUTC, data, opts...)
		if err != nil {
			return nil, err
		}
		return q, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidRepresentation, rep)
}

// Plan reports the family and provider chain that a conversion would use,
// without evaluating it.
func Plan(from, to Frame, data eop.Data) (Route, error) {
	fam, err := selectFamily(from, to, normalizeData(data))
	if err != nil {
		return Route{}, err
	}
	p, err := planPath(fam, from, to)
	if err != nil {
		return Route{}, err
	}
	return p.describe(), nil
}
