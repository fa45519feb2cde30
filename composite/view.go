package composite

import (
	"image"

	"github.com/gogpu/paint/geom"
	"github.com/gogpu/paint/internal/parallel"
	"github.com/gogpu/paint/oklab"
)

// ViewOptions configures the View kernel.
type ViewOptions struct {
	// Debug selects an alternate output. The view kernel honors
	// DebugLayerIndex.
	Debug DebugMode

	// Pool, when non-nil, distributes image rows across workers.
	Pool *parallel.WorkerPool
}

// View projects a stack of layers onto an 8-bit display image.
//
// Layers blend back to front, so the first slice element is the
// bottommost. Each destination pixel is inverse-mapped through
// canvasToView into canvas space and then through every layer's
// placement; pixels outside a layer's unit rectangle skip that layer.
// Sampled Oklab color is gamut-constrained and display-encoded per
// layer before straight alpha blending, matching the accelerated view
// pass which blends display-encoded fragments. The image's existing
// content serves as the blend background; pixels no layer contributes
// to are left byte for byte as they were.
//
// Blue-noise dither spanning one quantization step is added to the
// color channels before the bytes are written. Alpha is quantized
// without dithering and is never color-converted.
func View(dst *image.RGBA, layers []Layer, canvasToView geom.Affine, opts ViewOptions) {
	bounds := dst.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return
	}

	viewToCanvas := canvasToView.Invert()
	placements := make([]geom.ScaleTranslation, len(layers))
	for i := range layers {
		placements[i] = layers[i].Placement.Invert()
	}

	render := func(y0, y1 int) {
		viewRows(dst, layers, placements, viewToCanvas, opts.Debug, y0, y1)
	}
	if opts.Pool != nil {
		opts.Pool.ForRows(bounds.Dy(), render)
		return
	}
	render(0, bounds.Dy())
}

func viewRows(dst *image.RGBA, layers []Layer, placements []geom.ScaleTranslation, viewToCanvas geom.Affine, debug DebugMode, y0, y1 int) {
	bounds := dst.Bounds()
	width := bounds.Dx()
	for y := y0; y < y1; y++ {
		offset := dst.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		row := dst.Pix[offset : offset+width*4 : offset+width*4]
		vy := float32(bounds.Min.Y+y) + 0.5
		for x := 0; x < width; x++ {
			view := geom.V2(float32(bounds.Min.X+x)+0.5, vy)
			canvas := viewToCanvas.Apply(view)
			px := row[x*4 : x*4+4 : x*4+4]

			accR := float32(px[0]) / 255
			accG := float32(px[1]) / 255
			accB := float32(px[2]) / 255
			accA := float32(px[3]) / 255

			// Pixels no layer contributes to keep their exact bytes,
			// like framebuffer pixels no fragment wrote.
			touched := false
			for i := range layers {
				local := placements[i].Apply(canvas)
				if local.X < 0 || local.X > 1 || local.Y < 0 || local.Y > 1 {
					continue
				}
				if debug == DebugLayerIndex {
					accR, accG, accB = debugLayerColor(i)
					accA = 1
					touched = true
					continue
				}
				cl, ca, cb, alpha := layers[i].Sample(local)
				if alpha <= 0 {
					continue
				}
				rgb, _ := oklab.GamutConstrain(oklab.Color{L: cl, A: ca, B: cb})
				r := oklab.LinearToDisplay(rgb.R)
				g := oklab.LinearToDisplay(rgb.G)
				b := oklab.LinearToDisplay(rgb.B)
				inv := 1 - alpha
				accR = r*alpha + accR*inv
				accG = g*alpha + accG*inv
				accB = b*alpha + accB*inv
				accA = alpha + accA*inv
				touched = true
			}
			if !touched {
				continue
			}

			dr, dg, db := oklab.Dither(view.X, view.Y)
			px[0] = quant8(accR, dr)
			px[1] = quant8(accG, dg)
			px[2] = quant8(accB, db)
			px[3] = quant8(accA, 0)
		}
	}
}

// quant8 rounds a unit-range channel to a byte, folding in a dither
// offset measured in quantization steps.
func quant8(v, dither float32) uint8 {
	x := v*255 + dither + 0.5
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return uint8(x)
}
