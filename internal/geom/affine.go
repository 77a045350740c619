package geom

import (
	"math"

	"golang.org/x/image/math/f64"
)

// DegenerateEpsilon is the smallest |denominator| SolveAffine accepts.
// Below it the source triangle is treated as collinear.
const DegenerateEpsilon = 1e-10

// Affine is a 2x3 affine transform mapping (x,y) to
// (A*x + B*y + C, D*x + E*y + F)
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transform
func Identity() Affine {
	return Affine{A: 1, E: 1}
}

// Translate returns a translation by (tx, ty)
func Translate(tx, ty float64) Affine {
	return Affine{A: 1, C: tx, E: 1, F: ty}
}

// Scale returns a scale about the origin
func Scale(sx, sy float64) Affine {
	return Affine{A: sx, E: sy}
}

// SolveAffine computes the affine transform mapping each src vertex exactly
// onto the matching dst vertex. ok is false when src is (near) collinear.
func SolveAffine(src, dst [3]Point) (m Affine, ok bool) {
	x1, y1 := src[0].X, src[0].Y
	dx2, dy2 := src[1].X-x1, src[1].Y-y1
	dx3, dy3 := src[2].X-x1, src[2].Y-y1

	denom := dx2*dy3 - dx3*dy2
	if math.Abs(denom) < DegenerateEpsilon {
		return Affine{}, false
	}

	du2, du3 := dst[1].X-dst[0].X, dst[2].X-dst[0].X
	dv2, dv3 := dst[1].Y-dst[0].Y, dst[2].Y-dst[0].Y

	m.A = (du2*dy3 - du3*dy2) / denom
	m.B = (du3*dx2 - du2*dx3) / denom
	m.C = dst[0].X - m.A*x1 - m.B*y1

	m.D = (dv2*dy3 - dv3*dy2) / denom
	m.E = (dv3*dx2 - dv2*dx3) / denom
	m.F = dst[0].Y - m.D*x1 - m.E*y1

	return m, true
}

// Apply evaluates the transform at p
func (m Affine) Apply(p Point) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.C,
		Y: m.D*p.X + m.E*p.Y + m.F,
	}
}

// Then returns the transform that applies m first and next second
func (m Affine) Then(next Affine) Affine {
	return Affine{
		A: next.A*m.A + next.B*m.D,
		B: next.A*m.B + next.B*m.E,
		C: next.A*m.C + next.B*m.F + next.C,
		D: next.D*m.A + next.E*m.D,
		E: next.D*m.B + next.E*m.E,
		F: next.D*m.C + next.E*m.F + next.F,
	}
}

// Invert returns the inverse transform. ok is false for singular transforms.
func (m Affine) Invert() (inv Affine, ok bool) {
	det := m.A*m.E - m.B*m.D
	if math.Abs(det) < DegenerateEpsilon {
		return Affine{}, false
	}
	inv.A = m.E / det
	inv.B = -m.B / det
	inv.D = -m.D / det
	inv.E = m.A / det
	inv.C = -(inv.A*m.C + inv.B*m.F)
	inv.F = -(inv.D*m.C + inv.E*m.F)
	return inv, true
}

// Aff3 converts m to the matrix form used by golang.org/x/image/draw
func (m Affine) Aff3() f64.Aff3 {
	return f64.Aff3{m.A, m.B, m.C, m.D, m.E, m.F}
}
