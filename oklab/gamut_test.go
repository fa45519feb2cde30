package oklab

import "testing"

func TestGamutConstrain_InGamutUnchanged(t *testing.T) {
	colors := []LinearRGB{
		{0.2, 0.3, 0.4},
		{0.5, 0.5, 0.5},
		{0.05, 0.9, 0.1},
		{0.8, 0.2, 0.7},
	}

	for _, rgb := range colors {
		lab := FromLinearSRGB(rgb)
		got, s := GamutConstrain(lab)
		if s != 1.0 {
			t.Errorf("GamutConstrain(%+v): s = %v, want exactly 1", lab, s)
		}
		direct := lab.LinearSRGB()
		if got != direct {
			t.Errorf("GamutConstrain(%+v) = %+v, want untouched %+v", lab, got, direct)
		}
	}
}

func TestGamutConstrain_OutOfGamut(t *testing.T) {
	tests := []struct {
		name string
		in   Color
	}{
		{"saturated red-ish", Color{0.5, 0.3, 0}},
		{"saturated blue-ish", Color{0.4, 0, -0.4}},
		{"saturated green-ish", Color{0.7, -0.35, 0.1}},
		{"bright yellow-ish", Color{0.95, -0.05, 0.25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rgb, s := GamutConstrain(tt.in)
			if s >= 1 {
				t.Errorf("s = %v, want < 1 for out-of-gamut input", s)
			}
			if s < 0 {
				t.Errorf("s = %v, want >= 0", s)
			}
			checkUnitRange(t, rgb)
		})
	}
}

func TestGamutConstrain_Sweep(t *testing.T) {
	// Every constrained color must land inside the displayable cube,
	// whatever the chroma of the input.
	for li := 1; li <= 19; li += 2 {
		l := float32(li) / 20
		for ai := -4; ai <= 4; ai++ {
			for bi := -4; bi <= 4; bi++ {
				c := Color{L: l, A: float32(ai) / 10, B: float32(bi) / 10}
				rgb, s := GamutConstrain(c)
				if s < 0 || s > 1 {
					t.Fatalf("GamutConstrain(%+v): s = %v out of [0, 1]", c, s)
				}
				checkUnitRange(t, rgb)
			}
		}
	}
}

func TestGamutConstrain_Deterministic(t *testing.T) {
	c := Color{0.62, 0.25, -0.18}
	rgb1, s1 := GamutConstrain(c)
	for i := 0; i < 10; i++ {
		rgb2, s2 := GamutConstrain(c)
		if rgb1 != rgb2 || s1 != s2 {
			t.Fatalf("run %d differed: (%+v, %v) vs (%+v, %v)", i, rgb1, s1, rgb2, s2)
		}
	}
}

func TestGamutConstrain_PreservesLightnessAndHue(t *testing.T) {
	// Constraining scales chroma only: converting the result back to Oklab
	// must keep L and the a:b ratio of the input.
	in := Color{0.55, 0.32, -0.16}
	rgb, s := GamutConstrain(in)
	if s >= 1 {
		t.Fatalf("expected out-of-gamut input, got s = %v", s)
	}
	back := FromLinearSRGB(rgb)
	if !almostEqual(back.L, in.L, 2e-3) {
		t.Errorf("lightness changed: %v -> %v", in.L, back.L)
	}
	wantRatio := in.A / in.B
	gotRatio := back.A / back.B
	if !almostEqual(gotRatio, wantRatio, 2e-2) {
		t.Errorf("hue ratio changed: %v -> %v", wantRatio, gotRatio)
	}
}

func checkUnitRange(t *testing.T, rgb LinearRGB) {
	t.Helper()
	for _, ch := range [3]float32{rgb.R, rgb.G, rgb.B} {
		if !(ch >= 0 && ch < 1) {
			t.Errorf("component %v outside [0, 1): %+v", ch, rgb)
		}
	}
}

func BenchmarkGamutConstrain(b *testing.B) {
	c := Color{0.5, 0.3, -0.2}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		GamutConstrain(c)
	}
}
