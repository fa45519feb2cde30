package paint

import (
	"fmt"
	"image"
	"slices"

	"github.com/chewxy/math32"
	"golang.org/x/image/draw"

	"github.com/gogpu/paint/composite"
	"github.com/gogpu/paint/geom"
	"github.com/gogpu/paint/internal/cache"
	"github.com/gogpu/paint/oklab"
)

// ChartSize is the texel and canvas-unit extent of one chart cell.
const ChartSize = 256

// ChartKey addresses one cell of the chart grid. Cell (X, Y) covers the
// half-open canvas rectangle [X*ChartSize, (X+1)*ChartSize) by
// [Y*ChartSize, (Y+1)*ChartSize).
type ChartKey struct {
	X, Y int32
}

func (k ChartKey) String() string {
	return fmt.Sprintf("chart(%d,%d)", k.X, k.Y)
}

// ChartKeyFor returns the grid cell containing the canvas position.
// Cells are half-open: a position exactly on a cell's right or bottom
// edge belongs to the neighboring cell.
func ChartKeyFor(pos geom.Vec2) ChartKey {
	return ChartKey{
		X: int32(math32.Floor(pos.X / ChartSize)),
		Y: int32(math32.Floor(pos.Y / ChartSize)),
	}
}

// Placement returns the cell's canvas placement: a ChartSize square at
// the cell's grid position.
func (k ChartKey) Placement() geom.ScaleTranslation {
	return geom.ScaleTranslation{
		Scale:       geom.V2(ChartSize, ChartSize),
		Translation: geom.V2(float32(k.X)*ChartSize, float32(k.Y)*ChartSize),
	}
}

// CoveredKeys lists the grid cells overlapped by the half-open canvas
// rectangle [min, max), in row-major order. A rectangle that only
// touches a cell's edge does not cover it. Returns nil for an empty
// rectangle.
func CoveredKeys(min, max geom.Vec2) []ChartKey {
	if max.X <= min.X || max.Y <= min.Y {
		return nil
	}
	first := ChartKeyFor(min)
	lastX := int32(math32.Ceil(max.X/ChartSize)) - 1
	lastY := int32(math32.Ceil(max.Y/ChartSize)) - 1
	keys := make([]ChartKey, 0, int(lastX-first.X+1)*int(lastY-first.Y+1))
	for y := first.Y; y <= lastY; y++ {
		for x := first.X; x <= lastX; x++ {
			keys = append(keys, ChartKey{X: x, Y: y})
		}
	}
	return keys
}

// chartHasher spreads grid keys across cache shards. The low bits of
// both coordinates survive into the hash, so neighboring cells land in
// different shards.
func chartHasher(k ChartKey) uint64 {
	return uint64(uint32(k.X))<<32 | uint64(uint32(k.Y))
}

// chart holds one decoded cell raster in tile pixel layout.
type chart struct {
	key    ChartKey
	pixels []float32
}

// ChartAtlas holds decoded reference charts: read-only rasters pinned to
// the chart grid that render below the paint layers. Upload decodes
// arbitrary images into tile pixel form; decoding is the expensive step,
// so freed charts are parked in a bounded reuse cache from which Restore
// can bring them back without another decode.
//
// The atlas itself is not safe for concurrent use; the engine serializes
// access. The reuse cache underneath is concurrency-safe and may be
// shared.
type ChartAtlas struct {
	capacity int
	charts   map[ChartKey]*chart
	recent   *cache.ShardedCache[ChartKey, *chart]
}

// NewChartAtlas creates an atlas holding at most maxCharts decoded
// charts, with a reuse cache of roughly the same size behind it.
func NewChartAtlas(maxCharts int) *ChartAtlas {
	if maxCharts < 1 {
		maxCharts = 1
	}
	perShard := max(1, maxCharts/cache.DefaultShardCount)
	return &ChartAtlas{
		capacity: maxCharts,
		charts:   make(map[ChartKey]*chart, maxCharts),
		recent:   cache.NewSharded[ChartKey, *chart](perShard, chartHasher),
	}
}

// Upload decodes img into the chart cell: Catmull-Rom resample to
// ChartSize texels on a side, then sRGB decode and Oklab conversion per
// texel. Uploading a key that is already present replaces its content.
// Returns ErrCapacityExceeded when the atlas is full; Free cells to make
// room.
func (a *ChartAtlas) Upload(key ChartKey, img image.Image) error {
	if _, ok := a.charts[key]; !ok && len(a.charts) >= a.capacity {
		return fmt.Errorf("%v: %w", key, ErrCapacityExceeded)
	}
	a.charts[key] = &chart{key: key, pixels: decodeChart(img)}
	return nil
}

// decodeChart resamples img to the cell size and converts each texel
// from display sRGB to Oklab. Alpha passes through unconverted.
func decodeChart(img image.Image) []float32 {
	straight := image.NewNRGBA(image.Rect(0, 0, ChartSize, ChartSize))
	draw.CatmullRom.Scale(straight, straight.Bounds(), img, img.Bounds(), draw.Src, nil)

	pixels := make([]float32, ChartSize*ChartSize*4)
	for i := 0; i < ChartSize*ChartSize; i++ {
		c := oklab.FromLinearSRGB(oklab.LinearRGB{
			R: oklab.DisplayToLinear(float32(straight.Pix[i*4+0]) / 255),
			G: oklab.DisplayToLinear(float32(straight.Pix[i*4+1]) / 255),
			B: oklab.DisplayToLinear(float32(straight.Pix[i*4+2]) / 255),
		})
		pixels[i*4+0] = c.L
		pixels[i*4+1] = c.A
		pixels[i*4+2] = c.B
		pixels[i*4+3] = float32(straight.Pix[i*4+3]) / 255
	}
	return pixels
}

// Free removes the chart from the atlas and parks its decoded pixels in
// the reuse cache. Reports whether the key was present.
func (a *ChartAtlas) Free(key ChartKey) bool {
	c, ok := a.charts[key]
	if !ok {
		return false
	}
	delete(a.charts, key)
	a.recent.Set(key, c)
	return true
}

// Restore brings a freed chart back from the reuse cache without
// decoding again. It reports false with a nil error when the chart has
// aged out of the cache, in which case the caller must Upload the source
// image again. A full atlas returns ErrCapacityExceeded.
func (a *ChartAtlas) Restore(key ChartKey) (bool, error) {
	if _, ok := a.charts[key]; ok {
		return true, nil
	}
	c, ok := a.recent.Get(key)
	if !ok {
		return false, nil
	}
	if len(a.charts) >= a.capacity {
		return false, fmt.Errorf("%v: %w", key, ErrCapacityExceeded)
	}
	a.recent.Delete(key)
	a.charts[key] = c
	return true, nil
}

// Contains reports whether the cell currently holds a chart.
func (a *ChartAtlas) Contains(key ChartKey) bool {
	_, ok := a.charts[key]
	return ok
}

// Len returns the number of loaded charts.
func (a *ChartAtlas) Len() int { return len(a.charts) }

// Capacity returns the maximum number of loaded charts.
func (a *ChartAtlas) Capacity() int { return a.capacity }

// Keys returns the loaded cells in row-major grid order.
func (a *ChartAtlas) Keys() []ChartKey {
	keys := make([]ChartKey, 0, len(a.charts))
	for k := range a.charts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(p, q ChartKey) int {
		if p.Y != q.Y {
			return int(p.Y - q.Y)
		}
		return int(p.X - q.X)
	})
	return keys
}

// Sample bilinearly filters the chart at a normalized cell coordinate,
// with the same texel-center mapping the compositing kernels use. The
// second result is false when the cell holds no chart.
func (a *ChartAtlas) Sample(key ChartKey, u, v float32) (Pixel, bool) {
	c, ok := a.charts[key]
	if !ok {
		return Pixel{}, false
	}
	layer := composite.Layer{Width: ChartSize, Height: ChartSize, Pixels: c.pixels}
	cl, ca, cb, alpha := layer.Sample(geom.V2(u, v))
	return Pixel{L: cl, A: ca, B: cb, Alpha: alpha}, true
}

// chartLayer adapts a loaded chart into a compositing layer at its grid
// placement.
func (a *ChartAtlas) chartLayer(key ChartKey) (composite.Layer, bool) {
	c, ok := a.charts[key]
	if !ok {
		return composite.Layer{}, false
	}
	return composite.Layer{
		Width:     ChartSize,
		Height:    ChartSize,
		Pixels:    c.pixels,
		Placement: key.Placement(),
	}, true
}
