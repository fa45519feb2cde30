package brush

import (
	"errors"
	"testing"
)

func TestCurve_Empty(t *testing.T) {
	_, err := NewCurve()
	if !errors.Is(err, ErrNoKnots) {
		t.Fatalf("NewCurve() error = %v, want ErrNoKnots", err)
	}
}

func TestCurve_SingleKnot(t *testing.T) {
	c := mustCurve(Knot{X: 0, Y: 1})
	for _, x := range []float32{-1, 0, 1} {
		if got := c.Evaluate(x); got != 1 {
			t.Errorf("Evaluate(%v) = %v, want 1", x, got)
		}
	}
}

func TestCurve_Evaluate(t *testing.T) {
	c := mustCurve(Knot{X: 2, Y: 2}, Knot{X: 4, Y: 6})

	tests := []struct {
		x, want float32
	}{
		{1, 2},
		{2, 2},
		{3, 4},
		{4, 6},
		{5, 6},
	}
	for _, tt := range tests {
		if got := c.Evaluate(tt.x); got != tt.want {
			t.Errorf("Evaluate(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestCurve_SortsKnots(t *testing.T) {
	c := mustCurve(Knot{X: 4, Y: 6}, Knot{X: 2, Y: 2})
	if got := c.FirstKnot(); got != (Knot{X: 2, Y: 2}) {
		t.Errorf("FirstKnot() = %+v, want {2 2}", got)
	}
	if got := c.LastKnot(); got != (Knot{X: 4, Y: 6}) {
		t.Errorf("LastKnot() = %+v, want {4 6}", got)
	}
	if got := c.Evaluate(3); got != 4 {
		t.Errorf("Evaluate(3) = %v, want 4", got)
	}
}

func TestCurve_DuplicateX(t *testing.T) {
	// A vertical step: two knots share an X. On the step the later knot
	// wins; either side evaluates to its own plateau.
	c := mustCurve(Knot{X: 1, Y: 0}, Knot{X: 1, Y: 1})

	if got := c.Evaluate(0.5); got != 0 {
		t.Errorf("Evaluate(0.5) = %v, want 0", got)
	}
	if got := c.Evaluate(1); got != 1 {
		t.Errorf("Evaluate(1) = %v, want 1", got)
	}
	if got := c.Evaluate(1.5); got != 1 {
		t.Errorf("Evaluate(1.5) = %v, want 1", got)
	}
}

func TestMergeKnotXs(t *testing.T) {
	a := mustCurve(Knot{X: -1, Y: 0}, Knot{X: 2, Y: 1})
	b := mustCurve(Knot{X: 0, Y: 0}, Knot{X: 2, Y: 1}, Knot{X: 5, Y: 0})

	got := mergeKnotXs(a, b)
	want := []float32{-1, 0, 2, 5}
	if len(got) != len(want) {
		t.Fatalf("mergeKnotXs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mergeKnotXs = %v, want %v", got, want)
		}
	}
}

func TestMergeKnotXs_CapturesCurves(t *testing.T) {
	// Evaluating at the merged knots and re-interpolating linearly must
	// reproduce each source curve everywhere.
	a := mustCurve(Knot{X: 0, Y: 0}, Knot{X: 4, Y: 8})
	b := mustCurve(Knot{X: 1, Y: 3}, Knot{X: 2, Y: 3}, Knot{X: 3, Y: -1})

	xs := mergeKnotXs(a, b)
	for _, c := range []*Curve{a, b} {
		resampled := make([]Knot, len(xs))
		for i, x := range xs {
			resampled[i] = Knot{X: x, Y: c.Evaluate(x)}
		}
		rc := mustCurve(resampled...)
		for xi := -10; xi <= 50; xi++ {
			x := float32(xi) / 10
			if got, want := rc.Evaluate(x), c.Evaluate(x); !close32(got, want, 1e-6) {
				t.Fatalf("resampled curve at %v = %v, want %v", x, got, want)
			}
		}
	}
}

func close32(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}
