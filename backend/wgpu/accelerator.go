//go:build !nogpu

package wgpu

import (
	"log/slog"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/paint"
)

// Accelerator composites on the GPU through wgpu/hal compute pipelines.
// It implements the paint.GPUAccelerator interface.
//
// The three kernels mirror the CPU compositor: stroke blending into
// layer rasters, view projection onto display frames and reprojection
// between shape planes and voxel grids. Operations the GPU cannot take
// return paint.ErrFallbackToCPU, and a dead device surfaces as
// paint.ErrDeviceLost so the engine can park itself on the CPU path.
type Accelerator struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	strokeShader    hal.ShaderModule
	viewShader      hal.ShaderModule
	reprojectShader hal.ShaderModule

	stroke   computeStage
	blend    computeStage
	resolve  computeStage
	toVolume computeStage
	toLayers computeStage

	tiles tileMirror

	gpuReady       bool
	externalDevice bool // true when using a shared device (don't destroy on Close)
}

var (
	_ paint.GPUAccelerator    = (*Accelerator)(nil)
	_ paint.DeviceHandleAware = (*Accelerator)(nil)
)

// New returns an unstarted accelerator. Init opens the device and builds
// the pipelines; the blank import of this package does both automatically.
func New() *Accelerator { return &Accelerator{} }

// Name returns the accelerator name.
func (a *Accelerator) Name() string { return "wgpu" }

// Init opens the GPU and builds the compute pipelines. Initialization
// failure is not an error: the accelerator stays registered and reports
// no capabilities, leaving every operation on the CPU kernels.
func (a *Accelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gpuReady {
		return nil
	}
	if err := a.initGPU(); err != nil {
		slogger().Warn("wgpu: GPU init failed, staying on CPU", "error", err)
	}
	return nil
}

// Close releases all GPU resources. Shared devices are returned to their
// owner, not destroyed.
func (a *Accelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tiles.destroy(a.device)
	a.destroyPipelines()
	if !a.externalDevice {
		if a.device != nil {
			a.device.Destroy()
		}
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.device = nil
	a.queue = nil
	a.instance = nil
	a.gpuReady = false
	a.externalDevice = false
}

// CanAccelerate reports which operations the GPU path covers. Without a
// working device nothing is covered and the engine never calls in.
func (a *Accelerator) CanAccelerate(op paint.AcceleratedOp) bool {
	a.mu.Lock()
	ready := a.gpuReady
	a.mu.Unlock()
	if !ready {
		return false
	}
	return op&(paint.AccelStroke|paint.AccelView|paint.AccelReproject) != 0
}

// Ready reports whether a device is open and the pipelines are built.
func (a *Accelerator) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gpuReady
}

// SetLogger wires the package logger to the engine's. Called by
// paint.SetLogger through the registration hook.
func (a *Accelerator) SetLogger(l *slog.Logger) { setLogger(l) }
