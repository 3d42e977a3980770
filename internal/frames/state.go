package frames

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/star/framerot/internal/eop"
	"github.com/star/framerot/internal/transform"
)

// State is a position and velocity expressed in one frame. Units are the
// caller's, with velocity per second.
type State struct {
	R r3.Vec
	V r3.Vec
}

// TransformState rotates a state vector between frames.
//
// Between an Earth-fixed and an inertial frame the velocity picks up the
// transport term of the Earth's rotation, applied at the family's rotating
// pivot frame (PEF or TIRS):
//
//	v_inertial = D·(v_pivot + ω⊕ × r_pivot)
//
// Between two frames of the same kind only the rotation is applied.
func TransformState(from, to Frame, jdUTC float64, data eop.Data, s State, opts ...Option) (State, error) {
	data = normalizeData(data)
	fam, err := selectFamily(from, to, data)
	if err != nil {
		return State{}, err
	}

	if from.EarthFixed() == to.EarthFixed() {
		d, err := RotateDCM(from, to, jdUTC, data, opts...)
		if err != nil {
			return State{}, err
		}
		return State{R: d.Apply(s.R), V: d.Apply(s.V)}, nil
	}

	pv := fam.pivot()
	toPivot, err := RotateDCM(from, pv, jdUTC, data, opts...)
	if err != nil {
		return State{}, err
	}
	fromPivot, err := RotateDCM(pv, to, jdUTC, data, opts...)
	if err != nil {
		return State{}, err
	}

	r := toPivot.Apply(s.R)
	v := toPivot.Apply(s.V)
	transport := r3.Cross(r3.Vec{Z: transform.OmegaEarth}, r)
	if from.EarthFixed() {
		v = r3.Add(v, transport)
	} else {
		v = r3.Sub(v, transport)
	}

	return State{R: fromPivot.Apply(r), V: fromPivot.Apply(v)}, nil
}
