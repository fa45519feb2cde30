package geom

import "github.com/chewxy/math32"

// ScaleTranslation is an axis-aligned placement: scale then translate, with
// no rotation or shear. Tile and chart placements are always of this form,
// which keeps their texel grids aligned with the canvas axes.
type ScaleTranslation struct {
	Scale       Vec2
	Translation Vec2
}

// IdentityScaleTranslation returns the placement that maps coordinates to
// themselves.
func IdentityScaleTranslation() ScaleTranslation {
	return ScaleTranslation{Scale: Vec2{1, 1}}
}

// Apply maps v through the placement: Scale*v + Translation.
func (t ScaleTranslation) Apply(v Vec2) Vec2 {
	return t.Scale.Mul(v).Add(t.Translation)
}

// Invert returns the inverse placement.
// Zero scale components invert to zero, mapping everything to a point;
// placements are caller-constructed and expected to be non-degenerate.
func (t ScaleTranslation) Invert() ScaleTranslation {
	inv := Vec2{X: safeInv(t.Scale.X), Y: safeInv(t.Scale.Y)}
	return ScaleTranslation{
		Scale:       inv,
		Translation: t.Translation.Neg().Mul(inv),
	}
}

// Affine returns the placement as a general affine transform.
func (t ScaleTranslation) Affine() Affine {
	return Affine{
		A: t.Scale.X, B: 0, C: t.Translation.X,
		D: 0, E: t.Scale.Y, F: t.Translation.Y,
	}
}

func safeInv(x float32) float32 {
	if x == 0 {
		return 0
	}
	return 1 / x
}

// Affine is a 2D affine transformation, stored row-major as
//
//	| A  B  C |
//	| D  E  F |
//
// applied to column vectors:
//
//	x' = A*x + B*y + C
//	y' = D*x + E*y + F
type Affine struct {
	A, B, C float32
	D, E, F float32
}

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{A: 1, E: 1}
}

// Translate creates a translation transform.
func Translate(x, y float32) Affine {
	return Affine{A: 1, C: x, E: 1, F: y}
}

// Scale creates a scaling transform.
func Scale(x, y float32) Affine {
	return Affine{A: x, E: y}
}

// Rotate creates a rotation transform (angle in radians,
// counter-clockwise).
func Rotate(angle float32) Affine {
	cos := math32.Cos(angle)
	sin := math32.Sin(angle)
	return Affine{A: cos, B: -sin, D: sin, E: cos}
}

// Mul composes two transforms: the result applies other first, then m.
func (m Affine) Mul(other Affine) Affine {
	return Affine{
		A: m.A*other.A + m.B*other.D,
		B: m.A*other.B + m.B*other.E,
		C: m.A*other.C + m.B*other.F + m.C,
		D: m.D*other.A + m.E*other.D,
		E: m.D*other.B + m.E*other.E,
		F: m.D*other.C + m.E*other.F + m.F,
	}
}

// Apply maps a point through the transform.
func (m Affine) Apply(v Vec2) Vec2 {
	return Vec2{
		X: m.A*v.X + m.B*v.Y + m.C,
		Y: m.D*v.X + m.E*v.Y + m.F,
	}
}

// ApplyVec maps a displacement through the transform, ignoring translation.
func (m Affine) ApplyVec(v Vec2) Vec2 {
	return Vec2{
		X: m.A*v.X + m.B*v.Y,
		Y: m.D*v.X + m.E*v.Y,
	}
}

// Invert returns the inverse transform.
// Returns the identity if the transform is not invertible.
func (m Affine) Invert() Affine {
	det := m.A*m.E - m.B*m.D
	if math32.Abs(det) < 1e-10 {
		return Identity()
	}

	invDet := 1 / det
	return Affine{
		A: m.E * invDet,
		B: -m.B * invDet,
		C: (m.B*m.F - m.C*m.E) * invDet,
		D: -m.D * invDet,
		E: m.A * invDet,
		F: (m.C*m.D - m.A*m.F) * invDet,
	}
}

// IsIdentity reports whether the transform is exactly the identity.
func (m Affine) IsIdentity() bool {
	return m.A == 1 && m.B == 0 && m.C == 0 &&
		m.D == 0 && m.E == 1 && m.F == 0
}
