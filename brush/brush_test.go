package brush

import (
	"testing"

	"github.com/gogpu/paint/geom"
	"github.com/gogpu/paint/oklab"
)

func TestBrush_FirstDragEmitsNothing(t *testing.T) {
	b := NewBrush(WithSeed(1))
	b.Start()
	if action := b.Drag(strokePoint(0, 0)); action != nil {
		t.Fatal("first drag emitted an action")
	}
}

func TestBrush_SecondDragEmitsSegment(t *testing.T) {
	b := NewBrush(WithSeed(1))
	b.Start()
	b.Drag(strokePoint(0, 0))
	action := b.Drag(strokePoint(5, 0))
	if action == nil {
		t.Fatal("second drag emitted nothing")
	}
	if len(action.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(action.Segments))
	}
	seg := action.Segments[0]
	if !seg.From.Approx(geom.V2(0, 0), 1e-6) || !seg.To.Approx(geom.V2(5, 0), 1e-6) {
		t.Errorf("segment spans %+v .. %+v, want (0,0) .. (5,0)", seg.From, seg.To)
	}
}

func TestBrush_SpacingAbsorbsJitter(t *testing.T) {
	b := NewBrush(WithSeed(1))
	b.Start()
	b.Drag(strokePoint(0, 0))

	// Effective radii are 1, so the threshold is 0.05*2 = 0.1.
	if action := b.Drag(strokePoint(0.05, 0)); action != nil {
		t.Fatal("jitter within the spacing threshold emitted an action")
	}

	// The absorbed point must not shift the stroke anchor.
	action := b.Drag(strokePoint(0.2, 0))
	if action == nil {
		t.Fatal("drag past the threshold emitted nothing")
	}
	if !action.Segments[0].From.Approx(geom.V2(0, 0), 1e-6) {
		t.Errorf("segment starts at %+v, want the original anchor", action.Segments[0].From)
	}
}

func TestBrush_StopEndsStroke(t *testing.T) {
	b := NewBrush(WithSeed(1))
	b.Start()
	b.Drag(strokePoint(0, 0))
	b.Stop()

	if action := b.Drag(strokePoint(5, 0)); action != nil {
		t.Fatal("drag after Stop connected to the finished stroke")
	}
}

func TestBrush_StartDiscardsUnfinished(t *testing.T) {
	b := NewBrush(WithSeed(1))
	b.Start()
	b.Drag(strokePoint(0, 0))
	b.Start()
	if action := b.Drag(strokePoint(5, 0)); action != nil {
		t.Fatal("drag after Start connected to the discarded stroke")
	}
}

func TestBrush_ActionCarriesModelFieldColor(t *testing.T) {
	field, err := BuildField(GenerateShape(8, 1))
	if err != nil {
		t.Fatal(err)
	}
	b := NewBrush(
		WithSeed(1),
		WithModel(ModelCumulativeTransmission2D),
		WithField(field),
	)
	b.Start()

	p0 := strokePoint(0, 0)
	p1 := strokePoint(5, 0)
	p1.Color = oklab.Color{L: 0.6, A: 0.1, B: -0.05}
	b.Drag(p0)
	action := b.Drag(p1)
	if action == nil {
		t.Fatal("no action")
	}
	if action.Model != ModelCumulativeTransmission2D {
		t.Errorf("model = %v", action.Model)
	}
	if action.Field != field {
		t.Error("field not propagated")
	}
	if action.Color != p1.Color {
		t.Errorf("color = %+v, want the newest point's color", action.Color)
	}
}

func TestBrush_SeedsVaryPerAction(t *testing.T) {
	b := NewBrush(WithSeed(42))
	b.Start()
	b.Drag(strokePoint(0, 0))

	a1 := b.Drag(strokePoint(1, 0))
	a2 := b.Drag(strokePoint(2, 0))
	if a1 == nil || a2 == nil {
		t.Fatal("drags emitted nothing")
	}
	if a1.Seed == a2.Seed {
		t.Errorf("consecutive actions share seed %+v", a1.Seed)
	}
	for _, s := range []geom.Vec2{a1.Seed, a2.Seed} {
		if s.X < 0 || s.X >= 1 || s.Y < 0 || s.Y >= 1 {
			t.Errorf("seed %+v outside [0,1)", s)
		}
	}
}

func TestBrush_SeedDeterminism(t *testing.T) {
	run := func() []geom.Vec2 {
		b := NewBrush(WithSeed(7))
		b.Start()
		b.Drag(strokePoint(0, 0))
		var seeds []geom.Vec2
		for i := 1; i <= 3; i++ {
			if a := b.Drag(strokePoint(float32(i), 0)); a != nil {
				seeds = append(seeds, a.Seed)
			}
		}
		return seeds
	}
	a, b := run(), run()
	if len(a) != 3 || len(b) != 3 {
		t.Fatalf("got %d and %d seeds, want 3 each", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("seed %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestActionBounds(t *testing.T) {
	b := NewBrush(WithSeed(1))
	b.Start()
	b.Drag(strokePoint(0, 0))
	action := b.Drag(strokePoint(10, 0))
	if action == nil {
		t.Fatal("no action")
	}
	min, max := action.Bounds()
	if !min.Approx(geom.V2(-1, -1), 1e-5) || !max.Approx(geom.V2(11, 1), 1e-5) {
		t.Errorf("bounds = %+v .. %+v", min, max)
	}

	empty := &Action{}
	min, max = empty.Bounds()
	if min != (geom.Vec2{}) || max != (geom.Vec2{}) {
		t.Errorf("empty bounds = %+v .. %+v, want zero", min, max)
	}
}

func TestFilterPoints(t *testing.T) {
	points := []Point{
		strokePoint(0, 0),
		strokePoint(0.01, 0), // jitter
		strokePoint(0.05, 0), // jitter
		strokePoint(1, 0),
		strokePoint(1.02, 0), // jitter
		strokePoint(3, 0),
	}
	got := FilterPoints(points, 0.05)
	want := []float32{0, 1, 3}
	if len(got) != len(want) {
		t.Fatalf("kept %d points, want %d", len(got), len(want))
	}
	for i, x := range want {
		if got[i].Position.X != x {
			t.Errorf("kept[%d].X = %v, want %v", i, got[i].Position.X, x)
		}
	}
}

func TestFilterPoints_Empty(t *testing.T) {
	if got := FilterPoints(nil, 0.05); got != nil {
		t.Errorf("FilterPoints(nil) = %v, want nil", got)
	}
}

func TestModelString(t *testing.T) {
	tests := []struct {
		m    Model
		want string
	}{
		{ModelConstantOpacity, "constant-opacity"},
		{ModelCumulativeTransmission2D, "cumulative-transmission-2d"},
		{ModelCumulativeTransmission3D, "cumulative-transmission-3d"},
		{Model(7), "Model(7)"},
	}
	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
