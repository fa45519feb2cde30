package brush

import (
	"errors"
	"fmt"
	"image"
	_ "image/png" // embedded and on-disk brush shapes are PNG
	"io"

	"github.com/chewxy/math32"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/paint/geom"
)

// ErrEmptyShape is returned when a shape has no samples.
var ErrEmptyShape = errors.New("shape has no samples")

// Shape is a brush cross-section density raster. Values are linear coverage
// densities, normally in [0, 1]; negative samples are treated as zero by
// the field builder.
type Shape struct {
	Width, Height int
	Values        []float32
}

// At returns the density at texel (x, y), or 0 outside the raster.
func (s Shape) At(x, y int) float32 {
	if x < 0 || y < 0 || x >= s.Width || y >= s.Height {
		return 0
	}
	return s.Values[y*s.Width+x]
}

// UniformSamples returns size evenly spaced values covering [0, 1].
func UniformSamples(size int) []float32 {
	out := make([]float32, size)
	if size == 1 {
		return out
	}
	scale := 1 / float32(size-1)
	for i := range out {
		out[i] = scale * float32(i)
	}
	return out
}

// CenteredUniformSamples returns size evenly spaced values covering
// [-1, 1].
func CenteredUniformSamples(size int) []float32 {
	out := UniformSamples(size)
	for i, x := range out {
		out[i] = 2*x - 1
	}
	return out
}

// GenerateShape produces the built-in round brush: a radial falloff
// (1 - (x^2 + y^2)^power) clamped at zero, over centered samples.
// power 1 gives the default soft airbrush profile; higher powers flatten
// the core and sharpen the rim.
func GenerateShape(size int, power float32) Shape {
	values := make([]float32, size*size)
	coords := CenteredUniformSamples(size)
	for yi, y := range coords {
		row := values[yi*size : (yi+1)*size]
		for xi, x := range coords {
			d := math32.Pow(x*x+y*y, power)
			if v := 1 - d; v > 0 {
				row[xi] = v
			}
		}
	}
	return Shape{Width: size, Height: size, Values: values}
}

// DecodeShape reads an image (PNG or any registered format) and converts
// it to a density raster from its Rec. 601 luminance. When size is
// positive the image is first resampled to size x size with Catmull-Rom
// filtering; zero keeps the source dimensions.
func DecodeShape(r io.Reader, size int) (Shape, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return Shape{}, fmt.Errorf("decode shape: %w", err)
	}
	if size > 0 {
		dst := image.NewRGBA(image.Rect(0, 0, size, size))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		img = dst
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return Shape{}, ErrEmptyShape
	}
	values := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r16, g16, b16, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// Rec. 601 luma over the 16-bit channels.
			luma := (0.299*float32(r16) + 0.587*float32(g16) + 0.114*float32(b16)) / 0xffff
			values[y*w+x] = luma
		}
	}
	return Shape{Width: w, Height: h, Values: values}, nil
}

// RotationSize returns the square output size that fits the shape at any
// rotation angle: the diagonal of the source, rounded up.
func RotationSize(width, height int) int {
	m := width
	if height > m {
		m = height
	}
	return int(math32.Ceil(float32(m) * math32.Sqrt2))
}

// Rotated resamples the shape into a size x size raster rotated by angle
// radians about the center. Samples falling outside the source read as
// zero, so rotated corners stay empty.
func (s Shape) Rotated(angle float32, size int) Shape {
	values := make([]float32, size*size)
	out := Shape{Width: size, Height: size, Values: values}
	if s.Width == 0 || s.Height == 0 {
		return out
	}

	// Map output pixel centers back into source texel space: undo the
	// rotation, then recenter. The source keeps its texel scale, so it
	// sits centered in the larger output square with empty margins, and
	// a zero-angle rotation reproduces the source exactly.
	inv := geom.Rotate(-angle)
	half := float32(size) / 2
	for yi := 0; yi < size; yi++ {
		cy := (float32(yi)+0.5)/half - 1
		row := values[yi*size : (yi+1)*size]
		for xi := 0; xi < size; xi++ {
			cx := (float32(xi)+0.5)/half - 1
			p := inv.Apply(geom.V2(cx, cy))
			sx := p.X*half + float32(s.Width)/2 - 0.5
			sy := p.Y*half + float32(s.Height)/2 - 0.5
			row[xi] = s.bilinear(sx, sy)
		}
	}
	return out
}

// bilinear samples the shape at fractional texel coordinates, reading zero
// outside the raster.
func (s Shape) bilinear(x, y float32) float32 {
	x0 := int(math32.Floor(x))
	y0 := int(math32.Floor(y))
	fx := x - float32(x0)
	fy := y - float32(y0)

	v00 := s.At(x0, y0)
	v10 := s.At(x0+1, y0)
	v01 := s.At(x0, y0+1)
	v11 := s.At(x0+1, y0+1)

	top := v00 + (v10-v00)*fx
	bot := v01 + (v11-v01)*fx
	return top + (bot-top)*fy
}
