package brush

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/gogpu/paint/internal/parallel"
)

// ErrBadFieldSize is returned when field dimensions and sample count do not
// agree.
var ErrBadFieldSize = errors.New("field dimensions do not match sample count")

// SliceAxis tells a stroke kernel what the third field coordinate means.
type SliceAxis uint8

const (
	// SliceAxisNone marks a single-slice field; the third coordinate is
	// ignored.
	SliceAxisNone SliceAxis = iota

	// SliceAxisOpacity selects between slices baked at increasing opacity.
	SliceAxisOpacity

	// SliceAxisAngle selects between slices baked at increasing rotation,
	// covering a full turn.
	SliceAxisAngle
)

// String returns the axis name.
func (a SliceAxis) String() string {
	switch a {
	case SliceAxisNone:
		return "none"
	case SliceAxisOpacity:
		return "opacity"
	case SliceAxisAngle:
		return "angle"
	default:
		return fmt.Sprintf("SliceAxis(%d)", uint8(a))
	}
}

// Field is a precomputed cumulative log-transmittance table for a brush
// cross-section. Row y of slice z holds, for each scan position x, the
// running integral of log(1 - opacity*density) up to x, evaluated with the
// midpoint rule and clamped to zero or below.
//
// The table turns stroke compositing into two lookups: the optical depth a
// texel accumulates while the brush sweeps from parameter u0 to u1 is
// rate * (S(u1, v) - S(u0, v)), for any u0 <= u1 and at any sampling rate.
// Values are monotone non-increasing along the scan axis.
//
// Sampling clamps all coordinates to the table edge, so parameter ranges
// reaching outside [0, 1] saturate instead of failing.
type Field struct {
	Width, Height, Depth int
	Axis                 SliceAxis
	values               []float32
}

// fieldConfig holds the build options.
type fieldConfig struct {
	opacity float32
	pool    *parallel.WorkerPool
}

// FieldOption configures field construction.
type FieldOption func(*fieldConfig)

// WithOpacity sets the per-pass paint opacity baked into the table.
// The default is 1.
func WithOpacity(opacity float32) FieldOption {
	return func(c *fieldConfig) {
		c.opacity = opacity
	}
}

// WithPool makes the builder process slices on the given worker pool.
// Without a pool the build runs on the calling goroutine.
func WithPool(pool *parallel.WorkerPool) FieldOption {
	return func(c *fieldConfig) {
		c.pool = pool
	}
}

func defaultFieldConfig() fieldConfig {
	return fieldConfig{opacity: 1}
}

// NewField wraps precomputed table values directly. The slice is retained.
// Use this for custom analytically derived tables; the Build functions
// cover raster shapes.
func NewField(width, height int, values []float32) (*Field, error) {
	if width <= 0 || height <= 0 || len(values) != width*height {
		return nil, fmt.Errorf("%w: %dx%d with %d values", ErrBadFieldSize, width, height, len(values))
	}
	return &Field{Width: width, Height: height, Depth: 1, Axis: SliceAxisNone, values: values}, nil
}

// BuildField precomputes the single-slice table for a shape.
func BuildField(shape Shape, opts ...FieldOption) (*Field, error) {
	cfg := defaultFieldConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if shape.Width <= 0 || shape.Height <= 0 {
		return nil, ErrEmptyShape
	}

	f := &Field{
		Width:  shape.Width,
		Height: shape.Height,
		Depth:  1,
		Axis:   SliceAxisNone,
		values: make([]float32, shape.Width*shape.Height),
	}
	buildSlice(f.values, shape, cfg.opacity, cfg.pool)
	return f, nil
}

// BuildRotationField precomputes a multi-slice table whose slices hold the
// shape rotated through a full turn. Stroke kernels select the slice from
// the segment direction, so stamp-like shapes follow the stroke.
func BuildRotationField(shape Shape, slices int, opts ...FieldOption) (*Field, error) {
	cfg := defaultFieldConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if shape.Width <= 0 || shape.Height <= 0 {
		return nil, ErrEmptyShape
	}
	if slices < 1 {
		slices = 1
	}

	size := RotationSize(shape.Width, shape.Height)
	f := &Field{
		Width:  size,
		Height: size,
		Depth:  slices,
		Axis:   SliceAxisAngle,
		values: make([]float32, size*size*slices),
	}
	angleStep := 2 * math32.Pi / float32(slices)
	for z := 0; z < slices; z++ {
		rotated := shape.Rotated(angleStep*float32(z), size)
		buildSlice(f.slice(z), rotated, cfg.opacity, cfg.pool)
	}
	return f, nil
}

// BuildOpacityField precomputes a multi-slice table with slices baked at
// evenly spaced opacities from 0 to 1. Stroke kernels select the slice
// from the per-texel opacity, interpolating between bakes.
func BuildOpacityField(shape Shape, levels int, opts ...FieldOption) (*Field, error) {
	cfg := defaultFieldConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if shape.Width <= 0 || shape.Height <= 0 {
		return nil, ErrEmptyShape
	}
	if levels < 2 {
		levels = 2
	}

	f := &Field{
		Width:  shape.Width,
		Height: shape.Height,
		Depth:  levels,
		Axis:   SliceAxisOpacity,
		values: make([]float32, shape.Width*shape.Height*levels),
	}
	for z, opacity := range UniformSamples(levels) {
		buildSlice(f.slice(z), shape, opacity*cfg.opacity, cfg.pool)
	}
	return f, nil
}

// slice returns the backing row-major values of slice z.
func (f *Field) slice(z int) []float32 {
	n := f.Width * f.Height
	return f.values[z*n : (z+1)*n]
}

// Slices exposes the table as one shape plane per slice, in slice
// order. The planes share the field's storage, so writing through them
// alters the field; reprojection between layered and volumetric forms
// uses this to avoid copying.
func (f *Field) Slices() []Shape {
	planes := make([]Shape, f.Depth)
	for z := range planes {
		planes[z] = Shape{Width: f.Width, Height: f.Height, Values: f.slice(z)}
	}
	return planes
}

// fullAbsorption floors the per-sample log transmittance. A density at
// or past total absorption would otherwise sum as -Inf and make later
// segment differences NaN.
const fullAbsorption = -16

// buildSlice runs the two preprocessing stages over one slice: the log
// transform per sample, then the running midpoint scan per row.
func buildSlice(dst []float32, shape Shape, opacity float32, pool *parallel.WorkerPool) {
	scan := func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			src := shape.Values[y*shape.Width : (y+1)*shape.Width]
			row := dst[y*shape.Width : (y+1)*shape.Width]
			sum := float32(0)
			for x, v := range src {
				if v < 0 {
					v = 0
				}
				value := float32(fullAbsorption)
				if a := -opacity * v; a > -1 {
					value = math32.Log1p(a)
					if value < fullAbsorption {
						value = fullAbsorption
					}
				}
				result := sum + 0.5*value
				if result > 0 {
					result = 0
				}
				row[x] = result
				sum += value
			}
		}
	}
	if pool != nil {
		pool.ForRows(shape.Height, scan)
		return
	}
	scan(0, shape.Height)
}

// Sample returns the table value at normalized coordinates, clamped to the
// edge. u is the scan axis, v the cross axis, both in [0, 1]. Single-slice
// lookup; see [Field.Sample3] for multi-slice fields.
func (f *Field) Sample(u, v float32) float32 {
	return f.SampleSlice(0, u, v)
}

// Sample3 returns the table value at (u, v) with the third coordinate
// w in [0, 1] selecting the slice, linearly interpolating between adjacent
// bakes. All coordinates clamp to the edge.
func (f *Field) Sample3(u, v, w float32) float32 {
	if f.Depth == 1 {
		return f.SampleSlice(0, u, v)
	}
	if w < 0 {
		w = 0
	} else if w > 1 {
		w = 1
	}
	zf := w * float32(f.Depth-1)
	z0 := int(zf)
	if z0 >= f.Depth-1 {
		return f.SampleSlice(f.Depth-1, u, v)
	}
	fz := zf - float32(z0)
	a := f.SampleSlice(z0, u, v)
	b := f.SampleSlice(z0+1, u, v)
	return a + (b-a)*fz
}

// SampleAngular is Sample3 with w treated as periodic rather than
// clamped, for fields whose slices cover a full turn: the last slice
// interpolates back into the first.
func (f *Field) SampleAngular(u, v, w float32) float32 {
	if f.Depth == 1 {
		return f.SampleSlice(0, u, v)
	}
	w -= math32.Floor(w)
	zf := w * float32(f.Depth)
	z0 := int(zf) % f.Depth
	z1 := (z0 + 1) % f.Depth
	fz := zf - math32.Floor(zf)
	a := f.SampleSlice(z0, u, v)
	b := f.SampleSlice(z1, u, v)
	return a + (b-a)*fz
}

// SampleSlice is the clamped bilinear lookup within slice z. Callers are
// expected to pass z in [0, Depth).
func (f *Field) SampleSlice(z int, u, v float32) float32 {
	if u < 0 {
		u = 0
	} else if u > 1 {
		u = 1
	}
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}

	x := u * float32(f.Width-1)
	y := v * float32(f.Height-1)
	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > f.Width-1 {
		x1 = f.Width - 1
	}
	if y1 > f.Height-1 {
		y1 = f.Height - 1
	}
	fx := x - float32(x0)
	fy := y - float32(y0)

	base := f.slice(z)
	v00 := base[y0*f.Width+x0]
	v10 := base[y0*f.Width+x1]
	v01 := base[y1*f.Width+x0]
	v11 := base[y1*f.Width+x1]

	top := v00 + (v10-v00)*fx
	bot := v01 + (v11-v01)*fx
	return top + (bot-top)*fy
}
