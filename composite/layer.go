// Package composite holds the CPU compositing kernels of the paint
// engine. Stroke accumulates a brush action into a layer raster and
// View projects a stack of layer rasters onto an 8-bit display image.
//
// Both kernels mirror the GPU passes texel for texel so that software
// and accelerated rendering stay interchangeable.
package composite

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/paint/geom"
)

// Layer is one layer raster together with its canvas placement.
//
// Pixels holds Width*Height texels of four float32 channels: Oklab L,
// a, b and straight (non-premultiplied) alpha. Placement maps the
// normalized local rectangle [0,1]x[0,1] onto canvas coordinates.
type Layer struct {
	Width  int
	Height int
	Pixels []float32

	Placement geom.ScaleTranslation
}

// NewLayer allocates a transparent raster of the given size.
func NewLayer(width, height int, placement geom.ScaleTranslation) Layer {
	return Layer{
		Width:     width,
		Height:    height,
		Pixels:    make([]float32, width*height*4),
		Placement: placement,
	}
}

// texel returns the four channels at integer coordinates, which must
// be in range.
func (l *Layer) texel(x, y int) []float32 {
	base := (y*l.Width + x) * 4
	return l.Pixels[base : base+4 : base+4]
}

// Sample bilinearly filters the raster at a normalized local
// coordinate. Lookups outside the raster clamp to the edge texels.
func (l *Layer) Sample(local geom.Vec2) (cl, ca, cb, alpha float32) {
	x := local.X*float32(l.Width) - 0.5
	y := local.Y*float32(l.Height) - 0.5
	x0 := int(math32.Floor(x))
	y0 := int(math32.Floor(y))
	fx := x - float32(x0)
	fy := y - float32(y0)

	x1 := clampIndex(x0+1, l.Width)
	y1 := clampIndex(y0+1, l.Height)
	x0 = clampIndex(x0, l.Width)
	y0 = clampIndex(y0, l.Height)

	t00 := l.texel(x0, y0)
	t10 := l.texel(x1, y0)
	t01 := l.texel(x0, y1)
	t11 := l.texel(x1, y1)
	var out [4]float32
	for c := range 4 {
		top := t00[c] + (t10[c]-t00[c])*fx
		bottom := t01[c] + (t11[c]-t01[c])*fx
		out[c] = top + (bottom-top)*fy
	}
	return out[0], out[1], out[2], out[3]
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
