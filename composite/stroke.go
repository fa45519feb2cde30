package composite

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/paint/brush"
	"github.com/gogpu/paint/geom"
	"github.com/gogpu/paint/internal/parallel"
	"github.com/gogpu/paint/oklab"
)

// ditherScale converts the blue-noise dither amplitude, which spans
// one 8-bit quantization step, into the unit channel range.
const ditherScale = 1.0 / 255.0

// StrokeOptions configures the Stroke kernel.
type StrokeOptions struct {
	// Debug selects an alternate output. The stroke kernel honors
	// DebugUBounds.
	Debug DebugMode

	// Pool, when non-nil, distributes raster rows across workers.
	Pool *parallel.WorkerPool
}

// Stroke composites a brush action into the layer raster.
//
// Each texel is tested against every segment in submission order. A
// texel inside a segment's strip receives paint through straight
// alpha blending, so overlapping segments of one stroke accumulate
// exactly as consecutive strokes would. The coverage alpha depends on
// the action's model:
//
//   - ModelConstantOpacity deposits the interpolated stroke opacity.
//   - The cumulative models integrate optical depth between the
//     segment's swept bounds through the action's field, which makes
//     the deposit independent of how finely the stroke was segmented.
//
// Actions whose cumulative model lacks a field deposit nothing.
func Stroke(dst Layer, action *brush.Action, opts StrokeOptions) {
	if dst.Width <= 0 || dst.Height <= 0 || len(action.Segments) == 0 {
		return
	}
	if opts.Debug == DebugNone && action.Field == nil && action.Model != brush.ModelConstantOpacity {
		return
	}

	x0, x1, y0, y1 := strokeRect(dst, action)
	if x0 > x1 || y0 > y1 {
		return
	}

	render := func(r0, r1 int) {
		strokeRows(dst, action, opts.Debug, x0, x1, y0+r0, y0+r1)
	}
	if opts.Pool != nil {
		opts.Pool.ForRows(y1-y0+1, render)
		return
	}
	render(0, y1-y0+1)
}

// strokeRect intersects the action's canvas bounds with the raster
// and returns the inclusive texel rectangle to visit.
func strokeRect(dst Layer, action *brush.Action) (x0, x1, y0, y1 int) {
	minB, maxB := action.Bounds()
	inv := dst.Placement.Invert()
	a := inv.Apply(minB)
	b := inv.Apply(maxB)
	lo := a.Min(b)
	hi := a.Max(b)

	x0 = clampIndex(int(math32.Ceil(lo.X*float32(dst.Width)-0.5)), dst.Width)
	x1 = clampIndex(int(math32.Floor(hi.X*float32(dst.Width)-0.5)), dst.Width)
	y0 = clampIndex(int(math32.Ceil(lo.Y*float32(dst.Height)-0.5)), dst.Height)
	y1 = clampIndex(int(math32.Floor(hi.Y*float32(dst.Height)-0.5)), dst.Height)

	if hi.X < 0 || lo.X > 1 || hi.Y < 0 || lo.Y > 1 {
		return 1, 0, 1, 0
	}
	return x0, x1, y0, y1
}

func strokeRows(dst Layer, action *brush.Action, debug DebugMode, x0, x1, y0, y1 int) {
	invW := 1 / float32(dst.Width)
	invH := 1 / float32(dst.Height)
	for y := y0; y < y1; y++ {
		ly := (float32(y) + 0.5) * invH
		for x := x0; x <= x1; x++ {
			local := geom.V2((float32(x)+0.5)*invW, ly)
			q := dst.Placement.Apply(local)
			px := dst.texel(x, y)
			for si := range action.Segments {
				seg := &action.Segments[si]
				stop, v, ok := segmentHit(seg, q)
				if !ok {
					continue
				}
				fv := (v + 1) / 2
				if debug == DebugUBounds {
					px[0] = stop.U0
					px[1] = stop.U1
					px[2] = fv
					px[3] = 1
					continue
				}
				alpha := coverage(action, seg, stop, fv)
				if alpha <= 0 {
					continue
				}
				dr, dg, db := oklab.Dither(q.X+action.Seed.X, q.Y+action.Seed.Y)
				inv := 1 - alpha
				px[0] = (action.Color.L+dr*ditherScale)*alpha + px[0]*inv
				px[1] = (action.Color.A+dg*ditherScale)*alpha + px[1]*inv
				px[2] = (action.Color.B+db*ditherScale)*alpha + px[2]*inv
				px[3] = alpha + px[3]*inv
			}
		}
	}
}

// segmentHit locates the canvas point within a segment's strip. It
// returns the interpolated stop and the signed cross coordinate v in
// [-1, 1], or ok=false when the point falls outside the strip.
func segmentHit(seg *brush.Segment, q geom.Vec2) (brush.SegmentStop, float32, bool) {
	rel := q.Sub(seg.From)
	stop, ok := seg.At(rel.Dot(seg.Tangent))
	if !ok || stop.HalfWidth <= 0 {
		return brush.SegmentStop{}, 0, false
	}
	v := rel.Dot(seg.Normal) / stop.HalfWidth
	if v < -1 || v > 1 {
		return brush.SegmentStop{}, 0, false
	}
	return stop, v, true
}

// coverage evaluates the model-specific alpha for one texel.
func coverage(action *brush.Action, seg *brush.Segment, stop brush.SegmentStop, fv float32) float32 {
	switch action.Model {
	case brush.ModelConstantOpacity:
		return clamp01(stop.Opacity)

	case brush.ModelCumulativeTransmission2D:
		delta := action.Field.Sample(stop.U1, fv) - action.Field.Sample(stop.U0, fv)
		return depthAlpha(stop.Rate, delta)

	case brush.ModelCumulativeTransmission3D:
		var delta float32
		if action.Field.Axis == brush.SliceAxisAngle {
			w := seg.Angle()
			delta = action.Field.SampleAngular(stop.U1, fv, w) -
				action.Field.SampleAngular(stop.U0, fv, w)
		} else {
			w := clamp01(stop.Opacity)
			delta = action.Field.Sample3(stop.U1, fv, w) -
				action.Field.Sample3(stop.U0, fv, w)
		}
		return depthAlpha(stop.Rate, delta)
	}
	return 0
}

// depthAlpha converts an optical depth increment into coverage.
// The field stores log transmittance, so the swept difference scaled
// by the deposition rate exponentiates to the remaining transmittance
// and alpha is its complement, clamped to [0, 1].
func depthAlpha(rate, delta float32) float32 {
	depth := rate * delta
	if depth >= 0 {
		return 0
	}
	return clamp01(-math32.Expm1(depth))
}
