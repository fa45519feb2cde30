//go:build !nogpu

package wgpu

import (
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/paint"
	"github.com/gogpu/paint/brush"
	"github.com/gogpu/paint/volume"
)

// LayersToVolume copies shape planes into the voxel grid on the GPU,
// plane index becoming the z coordinate. Extents need not match; voxels
// outside either side are skipped, as in the CPU copy.
func (a *Accelerator) LayersToVolume(planes []brush.Shape, vol *volume.Volume) error {
	return a.reproject(planes, vol, true)
}

// VolumeToLayers copies the voxel grid back into shape planes on the
// GPU, with the bounds rules of LayersToVolume.
func (a *Accelerator) VolumeToLayers(vol *volume.Volume, planes []brush.Shape) error {
	return a.reproject(planes, vol, false)
}

func (a *Accelerator) reproject(planes []brush.Shape, vol *volume.Volume, toVolume bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.gpuReady {
		return paint.ErrFallbackToCPU
	}
	if vol == nil || vol.Width <= 0 || vol.Height <= 0 || vol.Depth <= 0 || len(planes) == 0 {
		return paint.ErrFallbackToCPU
	}
	if len(vol.Values) != vol.Width*vol.Height*vol.Depth {
		return paint.ErrFallbackToCPU
	}
	// The GPU layout packs planes as one contiguous z-major run, which
	// needs a uniform plane extent. Ragged stacks stay on the CPU.
	pw, ph := planes[0].Width, planes[0].Height
	if pw <= 0 || ph <= 0 {
		return paint.ErrFallbackToCPU
	}
	for _, p := range planes {
		if p.Width != pw || p.Height != ph || len(p.Values) != pw*ph {
			return paint.ErrFallbackToCPU
		}
	}

	planeFloats := pw * ph
	planeBytes := uint64(planeFloats) * 4
	totalPlaneBytes := planeBytes * uint64(len(planes))
	volBytes := floatBytes(vol.Values)

	planeBuf, err := a.newStorage("reproject_planes", totalPlaneBytes, nil)
	if err != nil {
		return err
	}
	defer a.device.DestroyBuffer(planeBuf)
	for z, p := range planes {
		a.queue.WriteBuffer(planeBuf, uint64(z)*planeBytes, floatBytes(p.Values))
	}

	volBuf, err := a.newStorage("reproject_voxels", uint64(len(volBytes)), volBytes)
	if err != nil {
		return err
	}
	defer a.device.DestroyBuffer(volBuf)

	stage := &a.toLayers
	dstBuf, dstSize := planeBuf, totalPlaneBytes
	if toVolume {
		stage = &a.toVolume
		dstBuf, dstSize = volBuf, uint64(len(volBytes))
	}

	stagingBuf, err := a.newBuffer("reproject_staging", dstSize, gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer a.device.DestroyBuffer(stagingBuf)

	params := reprojectParams{
		PlaneWidth:  uint32(pw),
		PlaneHeight: uint32(ph),
		PlaneCount:  uint32(len(planes)),
		VolWidth:    uint32(vol.Width),
		VolHeight:   uint32(vol.Height),
		VolDepth:    uint32(vol.Depth),
	}
	ub, err := a.newUniform("reproject_params", structBytes(unsafe.Pointer(&params), unsafe.Sizeof(params)))
	if err != nil {
		return err
	}
	defer a.device.DestroyBuffer(ub)

	bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "reproject_bind",
		Layout: stage.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Offset: 0, Size: uint64(unsafe.Sizeof(params))}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: planeBuf.NativeHandle(), Offset: 0, Size: totalPlaneBytes}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: volBuf.NativeHandle(), Offset: 0, Size: uint64(len(volBytes))}},
		},
	})
	if err != nil {
		return err
	}
	defer a.device.DestroyBindGroup(bg)

	// The copy domain follows the destination extent, rounded up to
	// whole 8x8x4 workgroups; the kernel re-checks both sides.
	gx, gy, gz := groups(pw, 8), groups(ph, 8), groups(len(planes), 4)
	if !toVolume {
		gx, gy, gz = groups(vol.Width, 8), groups(vol.Height, 8), groups(vol.Depth, 4)
	}

	err = a.submit("reproject", func(enc hal.CommandEncoder) error {
		pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "reproject_pass"})
		pass.SetPipeline(stage.pipeline)
		pass.SetBindGroup(0, bg, nil)
		pass.Dispatch(gx, gy, gz)
		pass.End()
		enc.CopyBufferToBuffer(dstBuf, stagingBuf, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: dstSize},
		})
		return nil
	})
	if err != nil {
		return err
	}

	if toVolume {
		return a.readBack(stagingBuf, volBytes)
	}
	scratch := make([]float32, planeFloats*len(planes))
	if err := a.readBack(stagingBuf, floatBytes(scratch)); err != nil {
		return err
	}
	for z, p := range planes {
		copy(p.Values, scratch[z*planeFloats:(z+1)*planeFloats])
	}
	return nil
}
