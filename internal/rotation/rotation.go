// Package rotation provides the two rotation representations used by the frame
// dispatcher: direction cosine matrices and unit quaternions.
//
// Every value describes a passive (frame) rotation. A value D_B_A maps a vector
// expressed in frame A to the same vector expressed in frame B:
//
//	DCM:        r_B = D · r_A
//	Quaternion: r_B = q* ⊗ r_A ⊗ q
//
// Composition follows the physical chain order: the first argument to Compose
// is applied first. For matrices this is D = Dn·…·D1, for quaternions
// q = q1⊗…⊗qn. Both produce the same physical rotation.
package rotation

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Axis identifies one of the three coordinate axes.
type Axis uint8

const (
	X Axis = iota + 1
	Y
	Z
)

func (a Axis) String() string {
	switch a {
	case X:
		return "X"
	case Y:
		return "Y"
	case Z:
		return "Z"
	}
	return fmt.Sprintf("Axis(%d)", uint8(a))
}

// Elem is a single passive rotation about a coordinate axis, in radians.
type Elem struct {
	Axis  Axis
	Angle float64
}

// Sequence lists elementary rotations in application order.
type Sequence []Elem

// Rotation is the capability shared by both representations. R is the
// concrete type itself, so composing across representations does not compile.
type Rotation[R any] interface {
	// Then returns the rotation equivalent to applying the receiver first and
	// next second.
	Then(next R) R
	Inverse() R
	Apply(v r3.Vec) r3.Vec
	DCM() DCM
}

// Builder realises elementary rotations in one representation.
type Builder[R Rotation[R]] interface {
	Identity() R
	Axis(a Axis, angle float64) R
}

// Compose folds the rotations left to right; first is applied first.
func Compose[R Rotation[R]](first R, rest ...R) R {
	out := first
	for _, r := range rest {
		out = out.Then(r)
	}
	return out
}

// FromSequence builds the rotation for seq with b.
func FromSequence[R Rotation[R]](b Builder[R], seq Sequence) R {
	out := b.Identity()
	for _, e := range seq {
		out = out.Then(b.Axis(e.Axis, e.Angle))
	}
	return out
}

// Representation selects how a rotation is expressed. The zero value is Matrix.
type Representation uint8

const (
	Matrix Representation = iota
	Quaternion
)

func (r Representation) String() string {
	switch r {
	case Matrix:
		return "matrix"
	case Quaternion:
		return "quaternion"
	}
	return fmt.Sprintf("Representation(%d)", uint8(r))
}

// ParseRepresentation accepts "matrix"/"dcm" and "quaternion"/"quat".
// An empty string selects Matrix.
func ParseRepresentation(s string) (Representation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "matrix", "dcm":
		return Matrix, nil
	case "quaternion", "quat":
		return Quaternion, nil
	}
	return 0, fmt.Errorf("unknown representation %q", s)
}

// Value is a rotation whose representation is only known at run time.
type Value interface {
	Representation() Representation
	Apply(v r3.Vec) r3.Vec
	DCM() DCM
}
