package rotation

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Quat is a unit quaternion q = q0 + q1·i + q2·j + q3·k describing a passive
// rotation.
type Quat struct {
	q quat.Number
}

// IdentityQuat returns the identity rotation.
func IdentityQuat() Quat {
	return Quat{q: quat.Number{Real: 1}}
}

// NewQuat builds a quaternion from its scalar and vector parts.
func NewQuat(q0, q1, q2, q3 float64) Quat {
	return Quat{q: quat.Number{Real: q0, Imag: q1, Jmag: q2, Kmag: q3}}
}

// axisQuat returns the quaternion of a passive rotation by angle about a.
func axisQuat(a Axis, angle float64) Quat {
	s, c := math.Sincos(angle / 2)
	switch a {
	case X:
		return NewQuat(c, s, 0, 0)
	case Y:
		return NewQuat(c, 0, s, 0)
	case Z:
		return NewQuat(c, 0, 0, s)
	}
	panic("rotation: invalid axis " + a.String())
}

// Components returns (q0, q1, q2, q3).
func (q Quat) Components() (float64, float64, float64, float64) {
	return q.q.Real, q.q.Imag, q.q.Jmag, q.q.Kmag
}

// Norm returns |q|, which is 1 for a rotation.
func (q Quat) Norm() float64 {
	return quat.Abs(q.q)
}

// Then returns q⊗next.
func (q Quat) Then(next Quat) Quat {
	return Quat{q: quat.Mul(q.q, next.q)}
}

// Inverse returns the conjugate.
func (q Quat) Inverse() Quat {
	return Quat{q: quat.Conj(q.q)}
}

// Apply returns q*⊗v⊗q.
func (q Quat) Apply(v r3.Vec) r3.Vec {
	p := quat.Mul(quat.Mul(quat.Conj(q.q), quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), q.q)
	return r3.Vec{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// Canonical returns q or −q, whichever has a non-negative scalar part.
func (q Quat) Canonical() Quat {
	if q.q.Real < 0 {
		return Quat{q: quat.Scale(-1, q.q)}
	}
	return q
}

// Normalize rescales q to unit norm.
func (q Quat) Normalize() Quat {
	n := quat.Abs(q.q)
	if n == 0 {
		return IdentityQuat()
	}
	return Quat{q: quat.Scale(1/n, q.q)}
}

// DCM returns the equivalent direction cosine matrix.
func (q Quat) DCM() DCM {
	q0, q1, q2, q3 := q.Components()
	return DCM{m: [9]float64{
		q0*q0 + q1*q1 - q2*q2 - q3*q3, 2 * (q1*q2 + q0*q3), 2 * (q1*q3 - q0*q2),
		2 * (q1*q2 - q0*q3), q0*q0 - q1*q1 + q2*q2 - q3*q3, 2 * (q2*q3 + q0*q1),
		2 * (q1*q3 + q0*q2), 2 * (q2*q3 - q0*q1), q0*q0 - q1*q1 - q2*q2 + q3*q3,
	}}
}

// Representation reports Quaternion.
func (q Quat) Representation() Representation { return Quaternion }

// QuatBuilder realises elementary rotations as quaternions.
type QuatBuilder struct{}

func (QuatBuilder) Identity() Quat { return IdentityQuat() }

func (QuatBuilder) Axis(a Axis, angle float64) Quat { return axisQuat(a, angle) }
