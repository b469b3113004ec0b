package geom

import (
	"github.com/golang/geo/r2"
)

// Affine is a 2D affine transform in row-major form:
//
//	| A  B  TX |
//	| C  D  TY |
type Affine struct {
	A, B, TX float64
	C, D, TY float64
}

// IdentityAffine returns the identity transform.
func IdentityAffine() Affine {
	return Affine{A: 1, D: 1}
}

// Translation returns a transform that moves points by (tx, ty).
func Translation(tx, ty float64) Affine {
	return Affine{A: 1, D: 1, TX: tx, TY: ty}
}

// Scaling returns a transform that scales about the origin.
func Scaling(sx, sy float64) Affine {
	return Affine{A: sx, D: sy}
}

// UnitRotation returns the transform that rotates the unit square onto
// itself by the given number of counterclockwise quarter turns.
func UnitRotation(quarterTurns int) Affine {
	switch ((quarterTurns % 4) + 4) % 4 {
	case 1:
		return Affine{A: 0, B: -1, TX: 1, C: 1, D: 0, TY: 0}
	case 2:
		return Affine{A: -1, B: 0, TX: 1, C: 0, D: -1, TY: 1}
	case 3:
		return Affine{A: 0, B: 1, TX: 0, C: -1, D: 0, TY: 1}
	default:
		return IdentityAffine()
	}
}

// Apply maps a point through the transform.
func (a Affine) Apply(p r2.Point) r2.Point {
	return r2.Point{
		X: a.A*p.X + a.B*p.Y + a.TX,
		Y: a.C*p.X + a.D*p.Y + a.TY,
	}
}

// Compose returns the transform equivalent to applying b first, then a.
func (a Affine) Compose(b Affine) Affine {
	return Affine{
		A:  a.A*b.A + a.B*b.C,
		B:  a.A*b.B + a.B*b.D,
		TX: a.A*b.TX + a.B*b.TY + a.TX,
		C:  a.C*b.A + a.D*b.C,
		D:  a.C*b.B + a.D*b.D,
		TY: a.C*b.TX + a.D*b.TY + a.TY,
	}
}

// IsIdentity reports whether the transform is exactly the identity.
func (a Affine) IsIdentity() bool {
	return a == IdentityAffine()
}

// UnitRotationTurns reports which counterclockwise quarter-turn rotation
// of the unit square the transform equals, if any.
func UnitRotationTurns(a Affine) (int, bool) {
	for k := 0; k < 4; k++ {
		if affineNear(a, UnitRotation(k), 1e-9) {
			return k, true
		}
	}
	return 0, false
}

func affineNear(a, b Affine, tol float64) bool {
	near := func(x, y float64) bool {
		d := x - y
		return d >= -tol && d <= tol
	}
	return near(a.A, b.A) && near(a.B, b.B) && near(a.TX, b.TX) &&
		near(a.C, b.C) && near(a.D, b.D) && near(a.TY, b.TY)
}
