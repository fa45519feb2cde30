package geom

import "testing"

func TestScaleTranslation_Apply(t *testing.T) {
	st := ScaleTranslation{Scale: V2(2, 3), Translation: V2(10, -5)}

	tests := []struct {
		in, want Vec2
	}{
		{V2(0, 0), V2(10, -5)},
		{V2(1, 1), V2(12, -2)},
		{V2(-1, 2), V2(8, 1)},
	}
	for _, tt := range tests {
		if got := st.Apply(tt.in); !got.Approx(tt.want, 1e-6) {
			t.Errorf("Apply(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestScaleTranslation_Invert(t *testing.T) {
	st := ScaleTranslation{Scale: V2(256, 256), Translation: V2(512, -256)}
	inv := st.Invert()

	points := []Vec2{{0, 0}, {1, 1}, {100, -30}, {0.25, 0.75}}
	for _, p := range points {
		back := inv.Apply(st.Apply(p))
		if !back.Approx(p, 1e-4) {
			t.Errorf("round trip of %+v = %+v", p, back)
		}
	}
}

func TestScaleTranslation_Affine(t *testing.T) {
	st := ScaleTranslation{Scale: V2(2, 4), Translation: V2(1, -1)}
	m := st.Affine()

	for _, p := range []Vec2{{0, 0}, {1, 2}, {-3, 0.5}} {
		if got, want := m.Apply(p), st.Apply(p); !got.Approx(want, 1e-6) {
			t.Errorf("Affine().Apply(%+v) = %+v, want %+v", p, got, want)
		}
	}
}

func TestAffine_Identity(t *testing.T) {
	m := Identity()
	if !m.IsIdentity() {
		t.Error("Identity().IsIdentity() = false")
	}
	p := V2(3.5, -7.25)
	if got := m.Apply(p); got != p {
		t.Errorf("Identity.Apply(%+v) = %+v", p, got)
	}
}

func TestAffine_Compose(t *testing.T) {
	// Mul applies the right operand first: translate after scaling.
	m := Translate(10, 0).Mul(Scale(2, 2))
	got := m.Apply(V2(1, 1))
	want := V2(12, 2)
	if !got.Approx(want, 1e-6) {
		t.Errorf("Apply = %+v, want %+v", got, want)
	}

	// The opposite order scales the translation too.
	m = Scale(2, 2).Mul(Translate(10, 0))
	got = m.Apply(V2(1, 1))
	want = V2(22, 2)
	if !got.Approx(want, 1e-6) {
		t.Errorf("Apply = %+v, want %+v", got, want)
	}
}

func TestAffine_Rotate(t *testing.T) {
	m := Rotate(3.14159265 / 2)
	got := m.Apply(V2(1, 0))
	if !got.Approx(V2(0, 1), 1e-5) {
		t.Errorf("quarter turn of (1,0) = %+v, want (0,1)", got)
	}
}

func TestAffine_Invert(t *testing.T) {
	m := Translate(5, -3).Mul(Rotate(0.7)).Mul(Scale(2, 0.5))
	inv := m.Invert()

	for _, p := range []Vec2{{0, 0}, {1, 2}, {-4, 7}, {0.1, 0.9}} {
		back := inv.Apply(m.Apply(p))
		if !back.Approx(p, 1e-4) {
			t.Errorf("round trip of %+v = %+v", p, back)
		}
	}
}

func TestAffine_InvertDegenerate(t *testing.T) {
	m := Scale(0, 0)
	if got := m.Invert(); !got.IsIdentity() {
		t.Errorf("Invert of degenerate = %+v, want identity", got)
	}
}

func TestAffine_ApplyVec(t *testing.T) {
	m := Translate(100, 100).Mul(Scale(3, 3))
	got := m.ApplyVec(V2(1, 2))
	if !got.Approx(V2(3, 6), 1e-6) {
		t.Errorf("ApplyVec = %+v, want translation ignored", got)
	}
}
