package paint

const (
	// DefaultMaxLayers is the default layer capacity of an Engine.
	DefaultMaxLayers = 1024

	// DefaultMaxCharts is the default chart capacity of an Engine.
	DefaultMaxCharts = 256
)

// Option configures an Engine during creation.
// Use functional options to customize Engine behavior.
//
// Example:
//
//	// Default configuration
//	eng, err := paint.New()
//
//	// Small canvas with a shared GPU device
//	eng, err := paint.New(
//	    paint.WithMaxLayers(64),
//	    paint.WithDeviceHandle(handle),
//	)
type Option func(*config)

// config holds optional configuration for Engine creation.
type config struct {
	tileSize  int
	maxLayers int
	maxCharts int
	workers   int
	gpu       bool
	device    DeviceHandle
	accel     GPUAccelerator
}

// defaultConfig returns the default engine configuration.
func defaultConfig() config {
	return config{
		tileSize:  DefaultTileSize,
		maxLayers: DefaultMaxLayers,
		maxCharts: DefaultMaxCharts,
		workers:   0, // one worker per logical CPU
		gpu:       true,
	}
}

// WithTileSize sets the texel width and height of layer tiles.
func WithTileSize(size int) Option {
	return func(c *config) {
		c.tileSize = size
	}
}

// WithMaxLayers sets how many layers the engine can hold at once.
// The capacity is fixed; allocations past it fail with
// ErrCapacityExceeded.
func WithMaxLayers(n int) Option {
	return func(c *config) {
		c.maxLayers = n
	}
}

// WithMaxCharts sets how many decoded charts the engine can hold at
// once.
func WithMaxCharts(n int) Option {
	return func(c *config) {
		c.maxCharts = n
	}
}

// WithWorkers sets the number of worker goroutines the CPU kernels
// spread rows across. Zero or negative uses one worker per logical CPU.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithGPU controls whether the engine uses a registered GPU accelerator.
// The default is true; pass false to force the CPU kernels even when a
// backend is registered.
func WithGPU(enabled bool) Option {
	return func(c *config) {
		c.gpu = enabled
	}
}

// WithDeviceHandle shares the host application's GPU device with the
// engine's accelerator. Without a handle (or with NullDeviceHandle) the
// backend opens its own device.
func WithDeviceHandle(h DeviceHandle) Option {
	return func(c *config) {
		c.device = h
	}
}

// WithAccelerator injects an accelerator for this engine only, bypassing
// the package-level registration. The accelerator must already be
// initialized; the caller keeps ownership and closes it after the engine.
//
// Example:
//
//	a := wgpu.NewWGPUAccelerator()
//	if err := a.Init(); err != nil { ... }
//	defer a.Close()
//	eng, err := paint.New(paint.WithAccelerator(a))
func WithAccelerator(a GPUAccelerator) Option {
	return func(c *config) {
		c.accel = a
	}
}
