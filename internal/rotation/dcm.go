package rotation

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// DCM is a 3×3 direction cosine matrix stored row-major.
type DCM struct {
	m [9]float64
}

// IdentityDCM returns the identity rotation.
func IdentityDCM() DCM {
	return DCM{m: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// NewDCM builds a DCM from its rows. The caller is responsible for
// orthonormality.
func NewDCM(rows [3][3]float64) DCM {
	var d DCM
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			d.m[3*i+j] = rows[i][j]
		}
	}
	return d
}

// R1 is a passive rotation about the first axis.
func R1(x float64) DCM {
	s, c := math.Sincos(x)
	return DCM{m: [9]float64{1, 0, 0, 0, c, s, 0, -s, c}}
}

// R2 is a passive rotation about the second axis.
func R2(x float64) DCM {
	s, c := math.Sincos(x)
	return DCM{m: [9]float64{c, 0, -s, 0, 1, 0, s, 0, c}}
}

// R3 is a passive rotation about the third axis.
func R3(x float64) DCM {
	s, c := math.Sincos(x)
	return DCM{m: [9]float64{c, s, 0, -s, c, 0, 0, 0, 1}}
}

func (d DCM) dense() *mat.Dense {
	return mat.NewDense(3, 3, d.m[:])
}

// At returns element (i, j).
func (d DCM) At(i, j int) float64 {
	return d.m[3*i+j]
}

// Rows returns a copy of the matrix rows.
func (d DCM) Rows() [3][3]float64 {
	var rows [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rows[i][j] = d.m[3*i+j]
		}
	}
	return rows
}

// Then returns next·d.
func (d DCM) Then(next DCM) DCM {
	var out DCM
	mat.NewDense(3, 3, out.m[:]).Mul(next.dense(), d.dense())
	return out
}

// Inverse returns the transpose.
func (d DCM) Inverse() DCM {
	var out DCM
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.m[3*j+i] = d.m[3*i+j]
		}
	}
	return out
}

// Apply returns d·v.
func (d DCM) Apply(v r3.Vec) r3.Vec {
	var out mat.VecDense
	out.MulVec(d.dense(), mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// DCM returns d.
func (d DCM) DCM() DCM { return d }

// Representation reports Matrix.
func (d DCM) Representation() Representation { return Matrix }

// Det returns the determinant; +1 for a proper rotation.
func (d DCM) Det() float64 {
	return mat.Det(d.dense())
}

// EqualApprox reports whether every element of d and o differs by at most tol.
func (d DCM) EqualApprox(o DCM, tol float64) bool {
	return mat.EqualApprox(d.dense(), o.dense(), tol)
}

// OrthonormalityError returns the largest element of |DᵀD − I|.
func (d DCM) OrthonormalityError() float64 {
	var p mat.Dense
	p.Mul(d.dense().T(), d.dense())
	var worst float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			worst = math.Max(worst, math.Abs(p.At(i, j)-want))
		}
	}
	return worst
}

// Quat converts d to a quaternion with a non-negative scalar part, using
// Shepperd's method.
func (d DCM) Quat() Quat {
	m := d.m
	tr := m[0] + m[4] + m[8]

	var q0, q1, q2, q3 float64
	switch {
	case tr > 0:
		q0 = math.Sqrt(1+tr) / 2
		f := 4 * q0
		q1 = (m[5] - m[7]) / f
		q2 = (m[6] - m[2]) / f
		q3 = (m[1] - m[3]) / f
	case m[0] >= m[4] && m[0] >= m[8]:
		q1 = math.Sqrt(1+m[0]-m[4]-m[8]) / 2
		f := 4 * q1
		q0 = (m[5] - m[7]) / f
		q2 = (m[1] + m[3]) / f
		q3 = (m[2] + m[6]) / f
	case m[4] >= m[8]:
		q2 = math.Sqrt(1-m[0]+m[4]-m[8]) / 2
		f := 4 * q2
		q0 = (m[6] - m[2]) / f
		q1 = (m[1] + m[3]) / f
		q3 = (m[5] + m[7]) / f
	default:
		q3 = math.Sqrt(1-m[0]-m[4]+m[8]) / 2
		f := 4 * q3
		q0 = (m[1] - m[3]) / f
		q1 = (m[2] + m[6]) / f
		q2 = (m[5] + m[7]) / f
	}
	return NewQuat(q0, q1, q2, q3).Canonical()
}

// DCMBuilder realises elementary rotations as matrices.
type DCMBuilder struct{}

func (DCMBuilder) Identity() DCM { return IdentityDCM() }

func (DCMBuilder) Axis(a Axis, angle float64) DCM {
	switch a {
	case X:
		return R1(angle)
	case Y:
		return R2(angle)
	case Z:
		return R3(angle)
	}
	panic("rotation: invalid axis " + a.String())
}
