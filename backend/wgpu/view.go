//go:build !nogpu

package wgpu

import (
	"image"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/paint"
	"github.com/gogpu/paint/composite"
	"github.com/gogpu/paint/geom"
)

// RenderView projects the layer stack onto dst on the GPU: one blend
// pass per layer, back to front, then a resolve pass that quantizes to
// bytes. The frame is uploaded first and pixels no pass touches come
// back byte for byte, matching the CPU compositor's untouched-pixel
// rule.
func (a *Accelerator) RenderView(dst *image.RGBA, layers []composite.Layer, canvasToView geom.Affine) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.gpuReady {
		return paint.ErrFallbackToCPU
	}
	bounds := dst.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || len(layers) == 0 {
		return paint.ErrFallbackToCPU
	}

	pixCount := w * h
	frameBytes := gatherFrame(dst)

	// The accumulator starts from the frame's existing content, the
	// blend background.
	accumInit := make([]float32, pixCount*4)
	for i, b := range frameBytes {
		accumInit[i] = float32(b) / 255
	}

	accumBuf, err := a.newStorage("view_accum", uint64(len(accumInit))*4, floatBytes(accumInit))
	if err != nil {
		return err
	}
	defer a.device.DestroyBuffer(accumBuf)

	touchedBuf, err := a.newStorage("view_touched", uint64(pixCount)*4, make([]byte, pixCount*4))
	if err != nil {
		return err
	}
	defer a.device.DestroyBuffer(touchedBuf)

	frameBuf, err := a.newStorage("view_frame", uint64(len(frameBytes)), frameBytes)
	if err != nil {
		return err
	}
	defer a.device.DestroyBuffer(frameBuf)

	stagingBuf, err := a.newBuffer("view_staging", uint64(len(frameBytes)), gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer a.device.DestroyBuffer(stagingBuf)

	viewToCanvas := canvasToView.Invert()
	params := viewParams{
		Width:  uint32(w),
		Height: uint32(h),
		InvA:   viewToCanvas.A, InvB: viewToCanvas.B, InvC: viewToCanvas.C,
		InvD: viewToCanvas.D, InvE: viewToCanvas.E, InvF: viewToCanvas.F,
		Origin: [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
	}
	paramSize := uint64(unsafe.Sizeof(params))

	var layerBufs, uniformBufs []hal.Buffer
	var blendGroups []hal.BindGroup
	var resolveGroup hal.BindGroup
	defer func() {
		for _, bg := range blendGroups {
			a.device.DestroyBindGroup(bg)
		}
		if resolveGroup != nil {
			a.device.DestroyBindGroup(resolveGroup)
		}
		for _, ub := range uniformBufs {
			a.device.DestroyBuffer(ub)
		}
		for _, lb := range layerBufs {
			a.device.DestroyBuffer(lb)
		}
	}()

	for i := range layers {
		layer := &layers[i]
		if layer.Width <= 0 || layer.Height <= 0 || len(layer.Pixels) == 0 {
			return paint.ErrFallbackToCPU
		}
		lb, err := a.newStorageRO("view_layer", floatBytes(layer.Pixels))
		if err != nil {
			return err
		}
		layerBufs = append(layerBufs, lb)

		place := layer.Placement.Invert()
		params.LayerWidth = uint32(layer.Width)
		params.LayerHeight = uint32(layer.Height)
		params.PlaceScale = [2]float32{place.Scale.X, place.Scale.Y}
		params.PlaceTrans = [2]float32{place.Translation.X, place.Translation.Y}
		ub, err := a.newUniform("view_params", structBytes(unsafe.Pointer(&params), unsafe.Sizeof(params)))
		if err != nil {
			return err
		}
		uniformBufs = append(uniformBufs, ub)

		bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  "view_blend_bind",
			Layout: a.blend.bindLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Offset: 0, Size: paramSize}},
				{Binding: 1, Resource: gputypes.BufferBinding{Buffer: accumBuf.NativeHandle(), Offset: 0, Size: uint64(len(accumInit)) * 4}},
				{Binding: 2, Resource: gputypes.BufferBinding{Buffer: touchedBuf.NativeHandle(), Offset: 0, Size: uint64(pixCount) * 4}},
				{Binding: 3, Resource: gputypes.BufferBinding{Buffer: lb.NativeHandle(), Offset: 0, Size: uint64(len(layer.Pixels)) * 4}},
				{Binding: 4, Resource: gputypes.BufferBinding{Buffer: frameBuf.NativeHandle(), Offset: 0, Size: uint64(len(frameBytes))}},
			},
		})
		if err != nil {
			return err
		}
		blendGroups = append(blendGroups, bg)
	}

	params.LayerWidth = 0
	params.LayerHeight = 0
	params.PlaceScale = [2]float32{}
	params.PlaceTrans = [2]float32{}
	resolveUB, err := a.newUniform("view_resolve_params", structBytes(unsafe.Pointer(&params), unsafe.Sizeof(params)))
	if err != nil {
		return err
	}
	uniformBufs = append(uniformBufs, resolveUB)

	resolveGroup, err = a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "view_resolve_bind",
		Layout: a.resolve.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: resolveUB.NativeHandle(), Offset: 0, Size: paramSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: accumBuf.NativeHandle(), Offset: 0, Size: uint64(len(accumInit)) * 4}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: touchedBuf.NativeHandle(), Offset: 0, Size: uint64(pixCount) * 4}},
			{Binding: 3, Resource: gputypes.BufferBinding{Buffer: layerBufs[0].NativeHandle(), Offset: 0, Size: uint64(len(layers[0].Pixels)) * 4}},
			{Binding: 4, Resource: gputypes.BufferBinding{Buffer: frameBuf.NativeHandle(), Offset: 0, Size: uint64(len(frameBytes))}},
		},
	})
	if err != nil {
		return err
	}

	err = a.submit("view", func(enc hal.CommandEncoder) error {
		for _, bg := range blendGroups {
			pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "view_blend_pass"})
			pass.SetPipeline(a.blend.pipeline)
			pass.SetBindGroup(0, bg, nil)
			pass.Dispatch(groups(w, 8), groups(h, 8), 1)
			pass.End()
		}
		pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "view_resolve_pass"})
		pass.SetPipeline(a.resolve.pipeline)
		pass.SetBindGroup(0, resolveGroup, nil)
		pass.Dispatch(groups(w, 8), groups(h, 8), 1)
		pass.End()
		enc.CopyBufferToBuffer(frameBuf, stagingBuf, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: uint64(len(frameBytes))},
		})
		return nil
	})
	if err != nil {
		return err
	}
	if err := a.readBack(stagingBuf, frameBytes); err != nil {
		return err
	}
	scatterFrame(dst, frameBytes)

	// Keep the presentation mirror current while the full stack is in
	// hand; hosts compositing tiles directly read these textures.
	a.tiles.refresh(a.device, a.queue, layers)
	return nil
}

// gatherFrame copies the image rectangle into a contiguous RGBA byte
// run; the GPU's packed u32 frame texels share this byte order.
func gatherFrame(dst *image.RGBA) []byte {
	bounds := dst.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		off := dst.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		copy(out[y*w*4:(y+1)*w*4], dst.Pix[off:off+w*4])
	}
	return out
}

// scatterFrame writes a contiguous RGBA byte run back into the image
// rectangle.
func scatterFrame(dst *image.RGBA, data []byte) {
	bounds := dst.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	for y := 0; y < h; y++ {
		off := dst.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		copy(dst.Pix[off:off+w*4], data[y*w*4:(y+1)*w*4])
	}
}
