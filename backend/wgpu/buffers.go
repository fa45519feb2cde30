//go:build !nogpu

package wgpu

import (
	"fmt"
	"structs"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/paint"
)

// fenceTimeout bounds every GPU wait. A fence that does not signal in
// this window is treated as a lost device.
const fenceTimeout = 5 * time.Second

// strokeParams mirrors Params in stroke.wgsl.
type strokeParams struct {
	_ structs.HostLayout

	Width, Height uint32
	Segment       uint32
	Model         uint32
	PlaceScale    [2]float32
	PlaceTrans    [2]float32
	Seed          [2]float32
	FieldSize     [2]uint32
	Color         [4]float32
	FieldDepth    uint32
	FieldAxis     uint32
	_pad          [2]uint32
}

// gpuSegment mirrors Segment in stroke.wgsl. 48-byte stride.
type gpuSegment struct {
	_ structs.HostLayout

	Origin    [2]float32
	Tangent   [2]float32
	Normal    [2]float32
	Length    float32
	Angle     float32
	StopFirst uint32
	StopCount uint32
	_pad      [2]uint32
}

// gpuStop mirrors Stop in stroke.wgsl. 32-byte stride.
type gpuStop struct {
	_ structs.HostLayout

	Distance  float32
	HalfWidth float32
	U0, U1    float32
	Opacity   float32
	Rate      float32
	_pad      [2]float32
}

// viewParams mirrors Params in view.wgsl.
type viewParams struct {
	_ structs.HostLayout

	Width, Height           uint32
	LayerWidth, LayerHeight uint32
	InvA, InvB, InvC, InvD  float32
	InvE, InvF              float32
	PlaceScale              [2]float32
	PlaceTrans              [2]float32
	Origin                  [2]float32
}

// reprojectParams mirrors Params in reproject.wgsl.
type reprojectParams struct {
	_ structs.HostLayout

	PlaneWidth, PlaneHeight uint32
	PlaneCount              uint32
	_pad0                   uint32

	VolWidth, VolHeight, VolDepth uint32
	_pad1                         uint32
}

func structBytes(ptr unsafe.Pointer, size uintptr) []byte {
	return unsafe.Slice((*byte)(ptr), size) //nolint:gosec // safe struct serialization
}

// floatBytes views a float32 slice as raw bytes for buffer upload and
// readback without copying. GPU buffers and host float32 share the
// little-endian layout on every supported target.
func floatBytes(s []float32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4) //nolint:gosec // same backing array
}

// newBuffer creates a device buffer. Callers destroy it when the
// dispatch is done; buffers never outlive one operation.
func (a *Accelerator) newBuffer(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s buffer: %w", label, err)
	}
	return buf, nil
}

// newUniform creates and fills a small uniform buffer.
func (a *Accelerator) newUniform(label string, data []byte) (hal.Buffer, error) {
	buf, err := a.newBuffer(label, uint64(len(data)), gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	a.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// newStorage creates a read-write storage buffer and uploads its
// initial content when data is non-nil.
func (a *Accelerator) newStorage(label string, size uint64, data []byte) (hal.Buffer, error) {
	buf, err := a.newBuffer(label, size, gputypes.BufferUsageStorage|gputypes.BufferUsageCopySrc|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	if data != nil {
		a.queue.WriteBuffer(buf, 0, data)
	}
	return buf, nil
}

// newStorageRO creates a read-only storage buffer filled with data.
func (a *Accelerator) newStorageRO(label string, data []byte) (hal.Buffer, error) {
	buf, err := a.newBuffer(label, uint64(len(data)), gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	a.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// lost wraps a dispatch failure as a device loss. Submission, fence and
// readback failures all mean the device stopped answering; the engine
// reacts by parking itself on the CPU kernels.
func lost(what string, err error) error {
	return fmt.Errorf("wgpu: %s: %w: %v", what, paint.ErrDeviceLost, err)
}

// submit encodes one command stream, submits it behind a fence and
// waits out the result. The encode callback runs between BeginEncoding
// and EndEncoding and adds compute passes and buffer copies.
func (a *Accelerator) submit(label string, encode func(enc hal.CommandEncoder) error) error {
	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label + "_encoder"})
	if err != nil {
		return lost("create command encoder", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return lost("begin encoding", err)
	}
	if err := encode(encoder); err != nil {
		return err
	}
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return lost("end encoding", err)
	}
	defer a.device.FreeCommandBuffer(cmdBuf)

	fence, err := a.device.CreateFence()
	if err != nil {
		return lost("create fence", err)
	}
	defer a.device.DestroyFence(fence)
	if err := a.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return lost("submit", err)
	}
	fenceOK, err := a.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return lost("wait for GPU", err)
	}
	if !fenceOK {
		return fmt.Errorf("wgpu: fence timeout after %v: %w", fenceTimeout, paint.ErrDeviceLost)
	}
	return nil
}

// readBack copies a staging buffer into host memory.
func (a *Accelerator) readBack(staging hal.Buffer, out []byte) error {
	if err := a.queue.ReadBuffer(staging, 0, out); err != nil {
		return lost("readback", err)
	}
	return nil
}

func groups(n, size int) uint32 {
	return uint32((n + size - 1) / size)
}
