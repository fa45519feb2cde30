package oklab

import "testing"

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func almostEqual(a, b, epsilon float32) bool {
	return absf(a-b) <= epsilon
}

func TestLinearSRGB_Anchors(t *testing.T) {
	tests := []struct {
		name string
		in   Color
		want LinearRGB
	}{
		{"black", Color{0, 0, 0}, LinearRGB{0, 0, 0}},
		{"white", Color{1, 0, 0}, LinearRGB{1, 1, 1}},
		{"mid gray", Color{0.5, 0, 0}, LinearRGB{0.125, 0.125, 0.125}},
	}

	const epsilon = 1e-3
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.LinearSRGB()
			if !almostEqual(got.R, tt.want.R, epsilon) ||
				!almostEqual(got.G, tt.want.G, epsilon) ||
				!almostEqual(got.B, tt.want.B, epsilon) {
				t.Errorf("LinearSRGB(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLinearSRGB_RoundTrip(t *testing.T) {
	colors := []LinearRGB{
		{0.0, 0.0, 0.0},
		{1.0, 1.0, 1.0},
		{0.5, 0.5, 0.5},
		{0.2, 0.3, 0.4},
		{0.9, 0.1, 0.05},
		{0.01, 0.8, 0.3},
	}

	const epsilon = 1e-4
	for _, rgb := range colors {
		lab := FromLinearSRGB(rgb)
		back := lab.LinearSRGB()
		if !almostEqual(back.R, rgb.R, epsilon) ||
			!almostEqual(back.G, rgb.G, epsilon) ||
			!almostEqual(back.B, rgb.B, epsilon) {
			t.Errorf("round trip %+v -> %+v -> %+v", rgb, lab, back)
		}
	}
}

func TestLinearSRGB_AchromaticStaysNeutral(t *testing.T) {
	// Colors on the L axis must convert to equal R, G and B.
	for _, l := range []float32{0.1, 0.25, 0.5, 0.75, 0.9} {
		rgb := Color{L: l}.LinearSRGB()
		if !almostEqual(rgb.R, rgb.G, 1e-4) || !almostEqual(rgb.G, rgb.B, 1e-4) {
			t.Errorf("L=%v gave non-neutral %+v", l, rgb)
		}
	}
}

func TestLinearToDisplay(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want float32
	}{
		{"zero", 0, 0},
		{"one", 1, 1},
		{"linear segment", 0.002, 0.02584},
		{"segment boundary", 0.0031308, 0.04045},
		{"mid", 0.5, 0.73536},
	}

	const epsilon = 1e-4
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LinearToDisplay(tt.in)
			if !almostEqual(got, tt.want, epsilon) {
				t.Errorf("LinearToDisplay(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestGammaRoundTrip(t *testing.T) {
	const steps = 100
	const epsilon = 1e-5
	for i := 0; i <= steps; i++ {
		x := float32(i) / steps
		got := DisplayToLinear(LinearToDisplay(x))
		if !almostEqual(got, x, epsilon) {
			t.Errorf("round trip of %v = %v", x, got)
		}
	}
}

func BenchmarkLinearSRGB(b *testing.B) {
	c := Color{L: 0.62, A: 0.11, B: -0.05}
	var sink LinearRGB
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		sink = c.LinearSRGB()
	}
	_ = sink
}
