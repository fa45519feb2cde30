// Package wgpu accelerates paint compositing on the GPU through the
// gogpu/wgpu hardware abstraction layer.
//
// The package registers itself as the process-wide accelerator on
// import:
//
//	import _ "github.com/gogpu/paint/backend/wgpu"
//
// Stroke compositing, view rendering, and volume reprojection run as
// compute kernels mirroring the CPU pipeline texel for texel. When no
// adapter can be opened the accelerator still registers; every
// operation then reports paint.ErrFallbackToCPU and the engine renders
// on the CPU unchanged.
//
// By default the accelerator opens its own Vulkan device. Hosts that
// already hold one can share it through paint.WithDeviceHandle or
// paint.SetAcceleratorDeviceHandle, which reach SetDeviceHandle here.
//
// Building with the nogpu tag compiles this package down to nothing.
package wgpu
