package paint

import (
	"errors"
	"image"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/paint/brush"
	"github.com/gogpu/paint/composite"
	"github.com/gogpu/paint/geom"
	"github.com/gogpu/paint/volume"
)

// ErrFallbackToCPU indicates the GPU accelerator cannot handle this
// operation. The caller should transparently fall back to the CPU kernels.
var ErrFallbackToCPU = errors.New("paint: falling back to CPU compositing")

// AcceleratedOp describes operation types for GPU capability checking.
type AcceleratedOp uint32

const (
	// AccelStroke represents stroke compositing into a layer raster.
	AccelStroke AcceleratedOp = 1 << iota

	// AccelView represents projecting the layer stack onto a display image.
	AccelView

	// AccelReproject represents shape reprojection between layered and
	// volumetric form.
	AccelReproject
)

// DeviceHandle provides GPU device access from the host application.
//
// The host application (for example a gogpu window) implements DeviceHandle
// and passes it to the engine via WithDeviceHandle, letting the backend
// reuse the shared GPU device instead of opening its own.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, providing a
// paint-specific name for the interface while maintaining full
// compatibility with the gpucontext ecosystem.
type DeviceHandle = gpucontext.DeviceProvider

// NullDeviceHandle is a DeviceHandle that provides nil implementations.
// Passing it to WithDeviceHandle is the same as passing no handle: the
// backend opens its own device, or the engine stays on the CPU when no
// backend is registered.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo returns unknown adapter info.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}

// GPUAccelerator is an optional GPU compositing provider.
//
// When registered via RegisterAccelerator, the engine tries GPU execution
// first for supported operations. If the accelerator returns
// ErrFallbackToCPU, the operation runs on the CPU kernels instead; the two
// paths produce the same texel values, so callers cannot observe which one
// ran. An ErrDeviceLost return fails the operation and parks the engine on
// the CPU path until the backend is rebuilt.
//
// Implementations are provided by backend packages. Users opt in via
// blank import:
//
//	import _ "github.com/gogpu/paint/backend/wgpu" // enables GPU compositing
type GPUAccelerator interface {
	// Name returns the accelerator name (e.g., "wgpu", "vulkan").
	Name() string

	// Init initializes GPU resources. Called once during registration.
	Init() error

	// Close releases GPU resources.
	Close()

	// CanAccelerate reports whether the accelerator supports the given
	// operation. This is a fast check used to skip the GPU entirely for
	// unsupported operations.
	CanAccelerate(op AcceleratedOp) bool

	// CompositeStroke blends one brush action into the layer raster.
	// The layer's Pixels slice is both input and output.
	// Returns ErrFallbackToCPU if the action cannot be GPU-composited.
	CompositeStroke(layer composite.Layer, action *brush.Action) error

	// RenderView projects the layer stack onto dst, back to front, with
	// dst's existing content as the blend background.
	// Returns ErrFallbackToCPU if the stack cannot be GPU-rendered.
	RenderView(dst *image.RGBA, layers []composite.Layer, canvasToView geom.Affine) error

	// LayersToVolume copies shape planes into the volume's voxel grid.
	LayersToVolume(planes []brush.Shape, vol *volume.Volume) error

	// VolumeToLayers copies the volume's voxel grid back into shape planes.
	VolumeToLayers(vol *volume.Volume, planes []brush.Shape) error
}

// DeviceHandleAware is an optional interface for accelerators that can
// share GPU resources with an external provider. When SetDeviceHandle is
// called, the accelerator reuses the provided GPU device instead of
// creating its own.
type DeviceHandleAware interface {
	SetDeviceHandle(h DeviceHandle) error
}

var (
	accelMu sync.RWMutex
	accel   GPUAccelerator
)

// RegisterAccelerator registers a GPU accelerator for optional GPU
// compositing.
//
// Only one accelerator can be registered. Subsequent calls replace the
// previous one. The accelerator's Init() method is called during
// registration. If Init() fails, the accelerator is not registered and the
// error is returned.
//
// Typical usage via blank import in backend packages:
//
//	func init() {
//	    paint.RegisterAccelerator(NewWGPUAccelerator())
//	}
func RegisterAccelerator(a GPUAccelerator) error {
	if a == nil {
		return errors.New("paint: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	propagateLogger(a, Logger())
	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// Accelerator returns the currently registered GPU accelerator, or nil if none.
func Accelerator() GPUAccelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// SetAcceleratorDeviceHandle passes a device handle to the registered
// accelerator, enabling GPU device sharing. If no accelerator is
// registered or it doesn't support device sharing, this is a no-op.
func SetAcceleratorDeviceHandle(h DeviceHandle) error {
	a := Accelerator()
	if a == nil {
		return nil
	}
	if aware, ok := a.(DeviceHandleAware); ok {
		return aware.SetDeviceHandle(h)
	}
	return nil
}
