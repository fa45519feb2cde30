package paint

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/paint/brush"
	"github.com/gogpu/paint/composite"
	"github.com/gogpu/paint/geom"
	"github.com/gogpu/paint/internal/cache"
	"github.com/gogpu/paint/internal/parallel"
	"github.com/gogpu/paint/volume"
)

// fieldCacheLimit bounds how many precomputed brush fields the engine
// keeps. Fields are a few hundred KB each; painting sessions cycle
// through a handful of brushes.
const fieldCacheLimit = 64

// Engine owns the canvas state: the layer table, the tile store, the
// chart atlas and the worker pool the CPU kernels run on. All mutation
// goes through Submit; RenderView reads a consistent snapshot because
// both serialize on the same lock.
//
// When a GPU accelerator is available the engine dispatches supported
// operations to it and falls back to the CPU kernels per operation. The
// two paths produce the same texels, so hosts cannot observe which one
// ran. After a device loss the engine logs a warning, fails the losing
// command with ErrDeviceLost and serves everything on the CPU from then
// on.
type Engine struct {
	mu      sync.Mutex
	cfg     config
	store   *TileStore
	layers  *LayerTable
	atlas   *ChartAtlas
	fields  *cache.Cache[FieldSpec, *brush.Field]
	pool    *parallel.WorkerPool
	accel   GPUAccelerator
	gpuLost bool
	closed  bool
}

// New creates an engine.
//
// With no options the engine holds DefaultMaxLayers layers of
// DefaultTileSize texels, DefaultMaxCharts charts, runs the CPU kernels
// on one worker per logical CPU, and uses the registered GPU accelerator
// when one is present.
func New(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	store, err := NewTileStore(cfg.tileSize, cfg.maxLayers)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:    cfg,
		store:  store,
		layers: NewLayerTable(store),
		atlas:  NewChartAtlas(cfg.maxCharts),
		fields: cache.New[FieldSpec, *brush.Field](fieldCacheLimit),
		pool:   parallel.NewWorkerPool(cfg.workers),
	}
	if cfg.gpu {
		a := cfg.accel
		if a == nil {
			a = Accelerator()
		}
		if a != nil {
			e.accel = a
			if h := cfg.device; h != nil {
				if _, null := h.(NullDeviceHandle); !null {
					if aware, ok := a.(DeviceHandleAware); ok {
						if err := aware.SetDeviceHandle(h); err != nil {
							Logger().Warn("paint: device handle rejected, accelerator keeps its own device",
								"accelerator", a.Name(), "error", err)
						}
					}
				}
			}
		}
	}
	Logger().Info("paint: engine ready",
		"tileSize", cfg.tileSize,
		"maxLayers", cfg.maxLayers,
		"maxCharts", cfg.maxCharts,
		"gpu", e.accel != nil)
	return e, nil
}

// Close shuts the worker pool down. Submitting or rendering afterwards
// returns ErrEngineClosed. Close does not close the accelerator, which
// is package-global or caller-owned. Close is safe to call twice.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.pool.Close()
}

// Submission is an ordered list of commands applied together. Commands
// execute strictly in submission order; the first failing command stops
// the rest and its error is returned wrapped with the command's
// position. Commands before the failure stay applied.
//
// Staged transform updates from earlier submissions become visible at
// the submission boundary, before the first command runs.
type Submission []Command

// Command is one engine operation inside a Submission. Commands are
// passed by value; the concrete types below implement it.
type Command interface {
	isCommand()
}

// AllocateLayer claims a new transparent layer at the given placement.
type AllocateLayer struct {
	Transform geom.ScaleTranslation

	// ID receives the new handle when non-nil.
	ID *LayerID
}

// FreeLayer releases a layer and invalidates its handle.
type FreeLayer struct {
	ID LayerID
}

// UpdateTransform stages a new placement for a layer. The new placement
// takes effect at the next submission boundary; commands later in the
// same submission still see the old one.
type UpdateTransform struct {
	ID        LayerID
	Transform geom.ScaleTranslation
}

// CloneLayer allocates a copy of an existing layer, pixels and
// placement both.
type CloneLayer struct {
	Source LayerID

	// ID receives the clone's handle when non-nil.
	ID *LayerID
}

// ClearLayer fills every texel of a layer with one value.
type ClearLayer struct {
	ID    LayerID
	Value Pixel
}

// CompositeStroke blends a prepared brush action into a layer.
type CompositeStroke struct {
	Layer  LayerID
	Action *brush.Action
}

// UploadChart decodes an image into a chart cell.
type UploadChart struct {
	Key   ChartKey
	Image image.Image
}

// FreeChart removes a chart, keeping its decoded pixels in the reuse
// cache.
type FreeChart struct {
	Key ChartKey
}

// RestoreChart brings a freed chart back from the reuse cache.
type RestoreChart struct {
	Key ChartKey

	// Restored, when non-nil, receives whether the cached pixels were
	// still available. When false the caller must upload the source
	// image again.
	Restored *bool
}

// LayersToVolume copies shape planes into a voxel grid.
type LayersToVolume struct {
	Planes []brush.Shape
	Volume *volume.Volume
}

// VolumeToLayers copies a voxel grid back into shape planes.
type VolumeToLayers struct {
	Volume *volume.Volume
	Planes []brush.Shape
}

func (AllocateLayer) isCommand()   {}
func (FreeLayer) isCommand()       {}
func (UpdateTransform) isCommand() {}
func (CloneLayer) isCommand()      {}
func (ClearLayer) isCommand()      {}
func (CompositeStroke) isCommand() {}
func (UploadChart) isCommand()     {}
func (FreeChart) isCommand()       {}
func (RestoreChart) isCommand()    {}
func (LayersToVolume) isCommand()  {}
func (VolumeToLayers) isCommand()  {}

// Submit commits staged transform updates and then executes the
// commands in order.
func (e *Engine) Submit(batch Submission) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	e.layers.commit()
	for i, cmd := range batch {
		if err := e.apply(cmd); err != nil {
			return fmt.Errorf("submission command %d: %w", i, err)
		}
	}
	return nil
}

func (e *Engine) apply(cmd Command) error {
	switch c := cmd.(type) {
	case AllocateLayer:
		id, err := e.layers.Allocate(c.Transform)
		if err != nil {
			return err
		}
		if c.ID != nil {
			*c.ID = id
		}
		return nil
	case FreeLayer:
		return e.layers.Free(c.ID)
	case UpdateTransform:
		return e.layers.UpdateTransform(c.ID, c.Transform)
	case CloneLayer:
		id, err := e.layers.CloneLayer(c.Source)
		if err != nil {
			return err
		}
		if c.ID != nil {
			*c.ID = id
		}
		return nil
	case ClearLayer:
		slot, err := e.layers.Slot(c.ID)
		if err != nil {
			return err
		}
		e.store.Clear(slot, c.Value)
		return nil
	case CompositeStroke:
		return e.compositeStroke(c.Layer, c.Action)
	case UploadChart:
		return e.atlas.Upload(c.Key, c.Image)
	case FreeChart:
		e.atlas.Free(c.Key)
		return nil
	case RestoreChart:
		ok, err := e.atlas.Restore(c.Key)
		if c.Restored != nil {
			*c.Restored = ok
		}
		return err
	case LayersToVolume:
		return e.reproject("layers to volume", c.Planes, c.Volume, true)
	case VolumeToLayers:
		return e.reproject("volume to layers", c.Planes, c.Volume, false)
	default:
		return fmt.Errorf("paint: unknown command %T", cmd)
	}
}

// accelerate runs op through the accelerator when one is active.
// handled reports whether the GPU path covered the operation; when it is
// false the caller runs the CPU kernel. A device loss fails the
// operation and parks the engine on the CPU path; any other accelerator
// error falls back silently apart from a warning.
func (e *Engine) accelerate(op AcceleratedOp, what string, run func(GPUAccelerator) error) (handled bool, err error) {
	a := e.accel
	if a == nil || e.gpuLost || !a.CanAccelerate(op) {
		return false, nil
	}
	runErr := run(a)
	switch {
	case runErr == nil:
		return true, nil
	case errors.Is(runErr, ErrFallbackToCPU):
		return false, nil
	case errors.Is(runErr, ErrDeviceLost):
		e.gpuLost = true
		Logger().Warn("paint: device lost, continuing on CPU",
			"op", what, "accelerator", a.Name(), "error", runErr)
		return true, fmt.Errorf("%s: %w", what, runErr)
	default:
		Logger().Warn("paint: accelerated operation failed, using CPU",
			"op", what, "accelerator", a.Name(), "error", runErr)
		return false, nil
	}
}

func (e *Engine) compositeStroke(id LayerID, action *brush.Action) error {
	if action == nil {
		return nil
	}
	layer, err := e.layerView(id)
	if err != nil {
		return err
	}
	handled, err := e.accelerate(AccelStroke, "composite stroke", func(a GPUAccelerator) error {
		return a.CompositeStroke(layer, action)
	})
	if handled || err != nil {
		return err
	}
	composite.Stroke(layer, action, composite.StrokeOptions{Pool: e.pool})
	return nil
}

func (e *Engine) reproject(what string, planes []brush.Shape, vol *volume.Volume, toVolume bool) error {
	handled, err := e.accelerate(AccelReproject, what, func(a GPUAccelerator) error {
		if toVolume {
			return a.LayersToVolume(planes, vol)
		}
		return a.VolumeToLayers(vol, planes)
	})
	if handled || err != nil {
		return err
	}
	if toVolume {
		volume.LayersToVolume(planes, vol, volume.Options{Pool: e.pool})
	} else {
		volume.VolumeToLayers(vol, planes, volume.Options{Pool: e.pool})
	}
	return nil
}

// layerView adapts a layer into the compositing kernels' form: raster
// dimensions, writable texels and the committed placement.
func (e *Engine) layerView(id LayerID) (composite.Layer, error) {
	rec, err := e.layers.record(id)
	if err != nil {
		return composite.Layer{}, err
	}
	return composite.Layer{
		Width:     e.store.TileSize(),
		Height:    e.store.TileSize(),
		Pixels:    e.store.Writable(rec.slot),
		Placement: rec.transform,
	}, nil
}

// RenderOptions configures RenderView.
type RenderOptions struct {
	// Debug selects an alternate shading mode. Debug renders always use
	// the CPU kernels.
	Debug composite.DebugMode
}

// RenderView projects the canvas onto dst: loaded charts first, then the
// live layers in allocation order, all blended back to front over dst's
// existing content. Pixels nothing contributes to keep their exact
// bytes.
//
// canvasToView maps canvas coordinates to dst pixel coordinates. Only
// charts whose cells intersect the view take part.
func (e *Engine) RenderView(dst *image.RGBA, canvasToView geom.Affine, opts RenderOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	stack := e.viewStack(dst, canvasToView)
	if opts.Debug == composite.DebugNone {
		handled, err := e.accelerate(AccelView, "render view", func(a GPUAccelerator) error {
			return a.RenderView(dst, stack, canvasToView)
		})
		if handled || err != nil {
			return err
		}
	}
	composite.View(dst, stack, canvasToView, composite.ViewOptions{Debug: opts.Debug, Pool: e.pool})
	return nil
}

// viewStack assembles the compositing stack for a view: charts under
// the stroke layers, charts limited to the cells the view can reach.
func (e *Engine) viewStack(dst *image.RGBA, canvasToView geom.Affine) []composite.Layer {
	var stack []composite.Layer
	if e.atlas.Len() > 0 {
		lo, hi := viewCanvasBounds(dst, canvasToView)
		for _, key := range CoveredKeys(lo, hi) {
			if layer, ok := e.atlas.chartLayer(key); ok {
				stack = append(stack, layer)
			}
		}
	}
	size := e.store.TileSize()
	e.layers.forEachLive(func(rec *layerRecord) {
		stack = append(stack, composite.Layer{
			Width:     size,
			Height:    size,
			Pixels:    e.store.Writable(rec.slot),
			Placement: rec.transform,
		})
	})
	return stack
}

// viewCanvasBounds maps the image rectangle back to canvas space and
// returns its axis-aligned bounds there. All four corners are mapped,
// so rotated views stay covered.
func viewCanvasBounds(dst *image.RGBA, canvasToView geom.Affine) (lo, hi geom.Vec2) {
	inv := canvasToView.Invert()
	b := dst.Bounds()
	corners := [4]geom.Vec2{
		geom.V2(float32(b.Min.X), float32(b.Min.Y)),
		geom.V2(float32(b.Max.X), float32(b.Min.Y)),
		geom.V2(float32(b.Min.X), float32(b.Max.Y)),
		geom.V2(float32(b.Max.X), float32(b.Max.Y)),
	}
	lo = inv.Apply(corners[0])
	hi = lo
	for _, c := range corners[1:] {
		p := inv.Apply(c)
		lo = lo.Min(p)
		hi = hi.Max(p)
	}
	return lo, hi
}

// FieldSpec describes a brush field derived from a generated shape. It
// fully determines the build, so equal specs share one cached field.
type FieldSpec struct {
	// Size is the shape raster's width and height in texels.
	Size int

	// Power shapes the generated falloff; see brush.GenerateShape.
	Power float32

	// Axis selects the slicing of the field. SliceAxisNone builds a
	// single slice; the others need Slices > 1.
	Axis brush.SliceAxis

	// Slices is the slice count for sliced axes.
	Slices int

	// Opacity scales the baked per-pass opacity. Zero means 1.
	Opacity float32
}

// FieldFor returns the precomputed field for the spec, building and
// caching it on first use. Fields are immutable once built; callers on
// any goroutine may share the result.
func (e *Engine) FieldFor(spec FieldSpec) (*brush.Field, error) {
	if f, ok := e.fields.Get(spec); ok {
		return f, nil
	}
	f, err := e.buildField(spec)
	if err != nil {
		return nil, err
	}
	e.fields.Set(spec, f)
	return f, nil
}

func (e *Engine) buildField(spec FieldSpec) (*brush.Field, error) {
	shape := brush.GenerateShape(spec.Size, spec.Power)
	opts := []brush.FieldOption{brush.WithPool(e.pool)}
	if spec.Opacity > 0 {
		opts = append(opts, brush.WithOpacity(spec.Opacity))
	}
	switch {
	case spec.Axis == brush.SliceAxisAngle && spec.Slices > 1:
		return brush.BuildRotationField(shape, spec.Slices, opts...)
	case spec.Axis == brush.SliceAxisOpacity && spec.Slices > 1:
		return brush.BuildOpacityField(shape, spec.Slices, opts...)
	default:
		return brush.BuildField(shape, opts...)
	}
}

// Layers returns the live layer handles in compositing order.
func (e *Engine) Layers() []LayerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layers.Layers()
}

// Transform returns the layer's committed placement.
func (e *Engine) Transform(id LayerID) (geom.ScaleTranslation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layers.Transform(id)
}

// ReadLayer returns a copy of the layer's texels, four float32 channels
// per texel in row-major order.
func (e *Engine) ReadLayer(id LayerID) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	slot, err := e.layers.Slot(id)
	if err != nil {
		return nil, err
	}
	return e.store.ReadLayer(slot), nil
}

// SampleLayer bilinearly reads the layer at a normalized local
// coordinate.
func (e *Engine) SampleLayer(id LayerID, u, v float32) (Pixel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	slot, err := e.layers.Slot(id)
	if err != nil {
		return Pixel{}, err
	}
	return e.store.Sample(slot, u, v), nil
}

// ChartLoaded reports whether the cell currently holds a chart.
func (e *Engine) ChartLoaded(key ChartKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.atlas.Contains(key)
}

// SampleChart bilinearly reads a loaded chart at a normalized cell
// coordinate. The second result is false when the cell holds no chart.
func (e *Engine) SampleChart(key ChartKey, u, v float32) (Pixel, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.atlas.Sample(key, u, v)
}

// TileSize returns the texel width and height of the engine's layer
// tiles.
func (e *Engine) TileSize() int {
	return e.store.TileSize()
}
