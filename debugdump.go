package paint

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/chewxy/math32"

	"github.com/gogpu/paint/brush"
	"github.com/gogpu/paint/oklab"
)

// DumpLayerPNG writes the layer's texels as a 16-bit PNG. Color goes
// through the display pipeline (gamut constraint, then sRGB encode);
// alpha is written straight. Sixteen bits keep enough precision to
// diff kernel outputs texel by texel.
func DumpLayerPNG(w io.Writer, e *Engine, id LayerID) error {
	pixels, err := e.ReadLayer(id)
	if err != nil {
		return err
	}
	return encodePixelsPNG(w, pixels, e.TileSize(), e.TileSize())
}

// DumpChartPNG writes a loaded chart's texels as a 16-bit PNG, through
// the same display pipeline as DumpLayerPNG.
func DumpChartPNG(w io.Writer, e *Engine, key ChartKey) error {
	e.mu.Lock()
	c, ok := e.atlas.charts[key]
	var pixels []float32
	if ok {
		pixels = append([]float32(nil), c.pixels...)
	}
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("paint: %v not loaded", key)
	}
	return encodePixelsPNG(w, pixels, ChartSize, ChartSize)
}

// DumpFieldPNG writes one slice of a brush field as a 16-bit grayscale
// PNG. Table entries are log-space absorption, so the image shows the
// transmittance exp(S): white where the slice deposits nothing, dark
// where it saturates.
func DumpFieldPNG(w io.Writer, f *brush.Field, z int) error {
	if f == nil || z < 0 || z >= f.Depth {
		return fmt.Errorf("paint: field slice %d out of range of %d slices", z, fieldDepth(f))
	}
	plane := f.Slices()[z]
	img := image.NewGray16(image.Rect(0, 0, plane.Width, plane.Height))
	for y := 0; y < plane.Height; y++ {
		for x := 0; x < plane.Width; x++ {
			t := math32.Exp(plane.Values[y*plane.Width+x])
			img.SetGray16(x, y, color.Gray16{Y: quant16(t)})
		}
	}
	return png.Encode(w, img)
}

func fieldDepth(f *brush.Field) int {
	if f == nil {
		return 0
	}
	return f.Depth
}

// encodePixelsPNG converts tile pixels to straight-alpha 16-bit RGBA
// and PNG-encodes them.
func encodePixelsPNG(w io.Writer, pixels []float32, width, height int) error {
	img := image.NewNRGBA64(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			base := (y*width + x) * 4
			c := oklab.Color{L: pixels[base], A: pixels[base+1], B: pixels[base+2]}
			rgb, _ := oklab.GamutConstrain(c)
			img.SetNRGBA64(x, y, color.NRGBA64{
				R: quant16(oklab.LinearToDisplay(rgb.R)),
				G: quant16(oklab.LinearToDisplay(rgb.G)),
				B: quant16(oklab.LinearToDisplay(rgb.B)),
				A: quant16(pixels[base+3]),
			})
		}
	}
	return png.Encode(w, img)
}

// quant16 maps [0,1] to the full 16-bit range, clamping outside values.
func quant16(v float32) uint16 {
	x := v*65535 + 0.5
	if x < 0 {
		return 0
	}
	if x > 65535 {
		return 65535
	}
	return uint16(x)
}
