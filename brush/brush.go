// Package brush prepares paint strokes for compositing: density shapes,
// their precomputed transmittance fields, and the expansion of input
// point streams into renderable stroke segments.
package brush

import (
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"

	"github.com/gogpu/paint/geom"
	"github.com/gogpu/paint/oklab"
)

// Model selects how a compositor turns a stroke batch into coverage.
type Model uint8

const (
	// ModelConstantOpacity writes the interpolated stroke opacity
	// directly. No field lookup, no accumulation.
	ModelConstantOpacity Model = iota

	// ModelCumulativeTransmission2D accumulates optical depth from a
	// single-slice field.
	ModelCumulativeTransmission2D

	// ModelCumulativeTransmission3D accumulates optical depth from a
	// multi-slice field; the field's axis decides whether the slice is
	// picked by stroke opacity or by stroke direction.
	ModelCumulativeTransmission3D
)

// String returns the model name.
func (m Model) String() string {
	switch m {
	case ModelConstantOpacity:
		return "constant-opacity"
	case ModelCumulativeTransmission2D:
		return "cumulative-transmission-2d"
	case ModelCumulativeTransmission3D:
		return "cumulative-transmission-3d"
	default:
		return fmt.Sprintf("Model(%d)", uint8(m))
	}
}

// Point is one input sample along a stroke, typically a stylus event.
// Size, Opacity and Rate are the tool settings at that moment; Pressure
// modulates them through [Dynamics].
type Point struct {
	Position geom.Vec2
	Pressure float32
	Color    oklab.Color
	Size     float32
	Opacity  float32
	Rate     float32
}

// Dynamics maps stylus pressure onto stroke parameters. Each curve takes
// pressure in [0, 1] and returns the multiplier applied to the matching
// tool setting. A nil curve keeps the built-in response: radius scales
// linearly with pressure, opacity and rate with its square root.
type Dynamics struct {
	SizePressure    *Curve
	OpacityPressure *Curve
	RatePressure    *Curve
}

// apply returns the effective radius, opacity and rate of one point.
func (d Dynamics) apply(p Point) (size, opacity, rate float32) {
	if d.SizePressure != nil {
		size = p.Size * d.SizePressure.Evaluate(p.Pressure)
	} else {
		size = p.Size * p.Pressure
	}
	root := math32.Sqrt(p.Pressure)
	if d.OpacityPressure != nil {
		opacity = p.Opacity * d.OpacityPressure.Evaluate(p.Pressure)
	} else {
		opacity = p.Opacity * root
	}
	if d.RatePressure != nil {
		rate = p.Rate * d.RatePressure.Evaluate(p.Pressure)
	} else {
		rate = p.Rate * root
	}
	return size, opacity, rate
}

// Action is one stroke contribution batch: the segments emitted by a drag
// step plus everything a compositor needs to draw them. Actions are
// ephemeral; they do not outlive the submission that composites them.
type Action struct {
	Color    oklab.Color
	Seed     geom.Vec2
	Model    Model
	Field    *Field
	Segments []Segment
}

// Bounds returns the canvas-space rectangle covered by the action's
// segments. The zero rectangle when there are none.
func (a *Action) Bounds() (min, max geom.Vec2) {
	if len(a.Segments) == 0 {
		return geom.Vec2{}, geom.Vec2{}
	}
	min, max = a.Segments[0].Bounds()
	for _, seg := range a.Segments[1:] {
		lo, hi := seg.Bounds()
		min = min.Min(lo)
		max = max.Max(hi)
	}
	return min, max
}

// defaultSpacingFactor rejects input points that advance the stroke less
// than 5% of the combined radii. Tablets deliver near-duplicate events
// at high frequency; segments that short add nothing visible.
const defaultSpacingFactor = 0.05

// Brush is a stateful stroke tool. Feed it input points through Start,
// Drag and Stop; each Drag that moves far enough past the previous point
// yields an Action with the next stroke segment.
type Brush struct {
	model    Model
	field    *Field
	dynamics Dynamics
	spacing  float32
	rng      *rand.Rand
	last     *Point
}

// BrushOption configures a Brush.
type BrushOption func(*Brush)

// WithModel sets the compositing model. The default is
// ModelConstantOpacity.
func WithModel(m Model) BrushOption {
	return func(b *Brush) {
		b.model = m
	}
}

// WithField sets the transmittance field stamped into emitted actions.
// Required for the cumulative models.
func WithField(f *Field) BrushOption {
	return func(b *Brush) {
		b.field = f
	}
}

// WithDynamics sets the pressure response.
func WithDynamics(d Dynamics) BrushOption {
	return func(b *Brush) {
		b.dynamics = d
	}
}

// WithSpacing sets the minimum point spacing as a fraction of the
// combined endpoint radii.
func WithSpacing(factor float32) BrushOption {
	return func(b *Brush) {
		b.spacing = factor
	}
}

// WithSeed makes the per-action dither seeds deterministic.
func WithSeed(seed uint64) BrushOption {
	return func(b *Brush) {
		b.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// NewBrush returns a brush tool with the given options.
func NewBrush(opts ...BrushOption) *Brush {
	b := &Brush{
		spacing: defaultSpacingFactor,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.rng == nil {
		b.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return b
}

// Start begins a stroke, discarding any unfinished one.
func (b *Brush) Start() {
	b.last = nil
}

// Drag advances the stroke to point. It returns nil until the stroke has
// two points far enough apart; a point within the spacing threshold of
// the previous one is absorbed without emitting anything. Each returned
// action carries a fresh dither seed.
func (b *Brush) Drag(point Point) *Action {
	if b.last != nil {
		s0, _, _ := b.dynamics.apply(*b.last)
		s1, _, _ := b.dynamics.apply(point)
		minSpacing := b.spacing * (s0 + s1)
		if point.Position.Sub(b.last.Position).LengthSq() < minSpacing*minSpacing {
			return nil
		}
	}
	last := b.last
	p := point
	b.last = &p
	if last == nil {
		return nil
	}

	seg, ok := buildSegment(*last, point, b.dynamics)
	if !ok {
		return nil
	}
	return &Action{
		Color:    point.Color,
		Seed:     geom.V2(b.rng.Float32(), b.rng.Float32()),
		Model:    b.model,
		Field:    b.field,
		Segments: []Segment{seg},
	}
}

// Stop ends the stroke.
func (b *Brush) Stop() {
	b.last = nil
}

// FilterPoints drops samples that advance the stroke less than
// factor*(s0+s1), where s is the pressure-scaled radius of each endpoint.
// The first point is always kept and later points are measured against
// the last kept one. A factor around 0.05 suppresses duplicate stylus
// events without visibly changing the stroke.
func FilterPoints(points []Point, factor float32) []Point {
	if len(points) == 0 {
		return nil
	}
	kept := make([]Point, 1, len(points))
	kept[0] = points[0]
	for _, p := range points[1:] {
		last := kept[len(kept)-1]
		minSpacing := factor * (last.Size*last.Pressure + p.Size*p.Pressure)
		if p.Position.Sub(last.Position).LengthSq() < minSpacing*minSpacing {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
