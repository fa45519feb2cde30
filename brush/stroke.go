package brush

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/paint/geom"
)

// SegmentStop is the stroke state at one distance along a segment's axis.
// Between consecutive stops every attribute varies linearly, so the
// bracketing pair reconstructs the exact per-texel parameters anywhere
// on the strip.
type SegmentStop struct {
	// Distance along the axis, measured from the segment's From point.
	// Negative ahead of it, past Length beyond the To point.
	Distance float32

	// HalfWidth is the strip half-extent along the normal.
	HalfWidth float32

	// U0 and U1 bound the sweep sub-range this segment contributes at
	// that distance. A compositor charges the optical depth accumulated
	// between them; adjacent segments meet with U1 picking up exactly
	// where the neighbor's U0 left off, so a stroke deposits the same
	// ink no matter how it was cut into segments.
	U0, U1 float32

	// Opacity and Rate are the pressure-modulated endpoint values
	// blended across the segment.
	Opacity float32
	Rate    float32
}

// Segment is one straight stroke span: a centerline in canvas space with
// a piecewise-linear profile of widths and sweep parameters around it.
// The covered region is the union of trapezoids between consecutive
// stops.
type Segment struct {
	From, To geom.Vec2
	Tangent  geom.Vec2
	Normal   geom.Vec2
	Length   float32
	Stops    []SegmentStop
}

// At returns the interpolated stop at distance d along the axis, or
// false when d falls outside the strip.
func (s *Segment) At(d float32) (SegmentStop, bool) {
	stops := s.Stops
	if len(stops) == 0 || d < stops[0].Distance || d > stops[len(stops)-1].Distance {
		return SegmentStop{}, false
	}
	hi := 1
	for hi < len(stops)-1 && stops[hi].Distance < d {
		hi++
	}
	a, b := stops[hi-1], stops[hi]
	span := b.Distance - a.Distance
	if span <= 0 {
		return b, true
	}
	t := (d - a.Distance) / span
	return SegmentStop{
		Distance:  d,
		HalfWidth: a.HalfWidth + t*(b.HalfWidth-a.HalfWidth),
		U0:        a.U0 + t*(b.U0-a.U0),
		U1:        a.U1 + t*(b.U1-a.U1),
		Opacity:   a.Opacity + t*(b.Opacity-a.Opacity),
		Rate:      a.Rate + t*(b.Rate-a.Rate),
	}, true
}

// Angle returns the segment direction as a fraction of a full turn in
// [0, 1), for selecting rotation slices.
func (s *Segment) Angle() float32 {
	a := math32.Atan2(s.Tangent.Y, s.Tangent.X) / (2 * math32.Pi)
	if a < 0 {
		a++
	}
	return a
}

// Bounds returns the canvas-space bounding rectangle of the strip.
func (s *Segment) Bounds() (min, max geom.Vec2) {
	min = geom.V2(math32.Inf(1), math32.Inf(1))
	max = min.Neg()
	for _, stop := range s.Stops {
		p := s.From.Add(s.Tangent.Scale(stop.Distance))
		w := s.Normal.Scale(stop.HalfWidth)
		lo := p.Sub(w)
		hi := p.Add(w)
		min = min.Min(lo.Min(hi))
		max = max.Max(lo.Max(hi))
	}
	return min, max
}

// BuildSegments expands consecutive point pairs into stroke segments.
// Points should already be spacing-filtered; coincident pairs are
// skipped.
func BuildSegments(points []Point, dyn Dynamics) []Segment {
	if len(points) < 2 {
		return nil
	}
	segments := make([]Segment, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		if seg, ok := buildSegment(points[i-1], points[i], dyn); ok {
			segments = append(segments, seg)
		}
	}
	return segments
}

// buildSegment expands one point pair. The three profile curves live on
// a shared axis measured from the first point:
//
//   - blend ramps 0 to 1 across the span and carries the size, opacity
//     and rate interpolation;
//   - uEnd ramps 0 to 1 across the entry disc, the sweep fraction that
//     has passed a texel by the end of this segment;
//   - uStart ramps 0 to 1 across the exit disc, the fraction already
//     charged before this segment began.
//
// Stops are emitted at the union of all three curves' knots, which is
// every distance where any attribute changes slope.
func buildSegment(from, to Point, dyn Dynamics) (Segment, bool) {
	delta := to.Position.Sub(from.Position)
	length := delta.Length()
	if length <= 0 {
		return Segment{}, false
	}
	tangent := delta.Scale(1 / length)
	normal := tangent.Perp()

	s0, o0, r0 := dyn.apply(from)
	s1, o1, r1 := dyn.apply(to)

	blend := blendCurve(length, s0, s1)

	last := blend.LastKnot()
	exitSize := s0 + last.Y*(s1-s0)
	uStart := mustCurve(
		Knot{X: last.X - 2*exitSize, Y: 0},
		Knot{X: last.X, Y: 1},
	)

	first := blend.FirstKnot()
	entrySize := s0 + first.Y*(s1-s0)
	uEnd := mustCurve(
		Knot{X: first.X, Y: 0},
		Knot{X: first.X + 2*entrySize, Y: 1},
	)

	xs := mergeKnotXs(blend, uStart, uEnd)
	stops := make([]SegmentStop, len(xs))
	for i, x := range xs {
		b := blend.Evaluate(x)
		stops[i] = SegmentStop{
			Distance:  x,
			HalfWidth: s0 + b*(s1-s0),
			U0:        uStart.Evaluate(x),
			U1:        uEnd.Evaluate(x),
			Opacity:   o0 + b*(o1-o0),
			Rate:      r0 + b*(r1-r0),
		}
	}

	return Segment{
		From:    from.Position,
		To:      to.Position,
		Tangent: tangent,
		Normal:  normal,
		Length:  length,
		Stops:   stops,
	}, true
}

// blendCurve builds the 0-to-1 endpoint interpolation profile. For long
// spans the ramp runs between the discs, shifted toward the larger end;
// for spans shorter than the combined radii one disc may swallow the
// other, which pins the blend near the engulfed side so the stroke
// stays inside the larger disc.
func blendCurve(length, s0, s1 float32) *Curve {
	if length > s0+s1 {
		shift := (s0 - s1) * s0 / length
		if shift < -1 {
			shift = -1
		} else if shift > 1 {
			shift = 1
		}
		return mustCurve(
			Knot{X: -s0, Y: 0},
			Knot{X: s0 * shift, Y: 0},
			Knot{X: length + s1*shift, Y: 1},
			Knot{X: length + s1, Y: 1},
		)
	}

	var b0, b1 float32
	switch {
	case s1 > length+s0:
		b0 = 1 - length/(s1-s0)
		if b0 < 0 {
			b0 = 0
		}
		b1 = 1
	case s0 > length+s1:
		b1 = length / (s0 - s1)
		if b1 > 1 {
			b1 = 1
		}
	default:
		b1 = 1
	}
	return mustCurve(
		Knot{X: -(s0 + b0*(s1-s0)), Y: b0},
		Knot{X: length + s0 + b1*(s1-s0), Y: b1},
	)
}
