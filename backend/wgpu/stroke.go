//go:build !nogpu

package wgpu

import (
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/paint"
	"github.com/gogpu/paint/brush"
	"github.com/gogpu/paint/composite"
)

// CompositeStroke blends one brush action into the layer raster on the
// GPU. Segments are encoded as one compute pass each, in order, inside a
// single command encoder; the implicit storage barriers between passes
// reproduce the CPU kernel's sequential blending, and one fence wait
// covers the whole action.
func (a *Accelerator) CompositeStroke(layer composite.Layer, action *brush.Action) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.gpuReady {
		return paint.ErrFallbackToCPU
	}
	if layer.Width <= 0 || layer.Height <= 0 || len(layer.Pixels) == 0 || len(action.Segments) == 0 {
		return paint.ErrFallbackToCPU
	}
	if action.Field == nil && action.Model != brush.ModelConstantOpacity {
		return paint.ErrFallbackToCPU
	}

	segs, stopData := packSegments(action.Segments)
	pixelBytes := floatBytes(layer.Pixels)
	pixelBufSize := uint64(len(pixelBytes))

	segBuf, err := a.newStorageRO("stroke_segments", structBytes(unsafe.Pointer(&segs[0]), uintptr(len(segs))*unsafe.Sizeof(segs[0])))
	if err != nil {
		return err
	}
	defer a.device.DestroyBuffer(segBuf)

	stopBuf, err := a.newStorageRO("stroke_stops", structBytes(unsafe.Pointer(&stopData[0]), uintptr(len(stopData))*unsafe.Sizeof(stopData[0])))
	if err != nil {
		return err
	}
	defer a.device.DestroyBuffer(stopBuf)

	fieldBuf, fieldSize, fieldDepth, fieldAxis, err := a.uploadField(action.Field)
	if err != nil {
		return err
	}
	defer a.device.DestroyBuffer(fieldBuf)

	pixelBuf, err := a.newStorage("stroke_pixels", pixelBufSize, pixelBytes)
	if err != nil {
		return err
	}
	defer a.device.DestroyBuffer(pixelBuf)

	stagingBuf, err := a.newBuffer("stroke_staging", pixelBufSize, gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	defer a.device.DestroyBuffer(stagingBuf)

	// One uniform buffer and bind group per segment pass.
	params := strokeParams{
		Width:      uint32(layer.Width),
		Height:     uint32(layer.Height),
		Model:      uint32(action.Model),
		PlaceScale: [2]float32{layer.Placement.Scale.X, layer.Placement.Scale.Y},
		PlaceTrans: [2]float32{layer.Placement.Translation.X, layer.Placement.Translation.Y},
		Seed:       [2]float32{action.Seed.X, action.Seed.Y},
		FieldSize:  fieldSize,
		Color:      [4]float32{action.Color.L, action.Color.A, action.Color.B, 0},
		FieldDepth: fieldDepth,
		FieldAxis:  fieldAxis,
	}
	paramSize := uint64(unsafe.Sizeof(params))

	uniformBufs := make([]hal.Buffer, 0, len(segs))
	bindGroups := make([]hal.BindGroup, 0, len(segs))
	defer func() {
		for _, bg := range bindGroups {
			a.device.DestroyBindGroup(bg)
		}
		for _, ub := range uniformBufs {
			a.device.DestroyBuffer(ub)
		}
	}()
	for i := range segs {
		params.Segment = uint32(i)
		ub, err := a.newUniform("stroke_params", structBytes(unsafe.Pointer(&params), unsafe.Sizeof(params)))
		if err != nil {
			return err
		}
		uniformBufs = append(uniformBufs, ub)

		bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  "stroke_bind",
			Layout: a.stroke.bindLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Offset: 0, Size: paramSize}},
				{Binding: 1, Resource: gputypes.BufferBinding{Buffer: segBuf.NativeHandle(), Offset: 0, Size: uint64(len(segs)) * uint64(unsafe.Sizeof(segs[0]))}},
				{Binding: 2, Resource: gputypes.BufferBinding{Buffer: stopBuf.NativeHandle(), Offset: 0, Size: uint64(len(stopData)) * uint64(unsafe.Sizeof(stopData[0]))}},
				{Binding: 3, Resource: gputypes.BufferBinding{Buffer: fieldBuf.NativeHandle(), Offset: 0, Size: uint64(fieldSize[0]) * uint64(fieldSize[1]) * uint64(fieldDepth) * 4}},
				{Binding: 4, Resource: gputypes.BufferBinding{Buffer: pixelBuf.NativeHandle(), Offset: 0, Size: pixelBufSize}},
			},
		})
		if err != nil {
			return err
		}
		bindGroups = append(bindGroups, bg)
	}

	err = a.submit("stroke", func(enc hal.CommandEncoder) error {
		for _, bg := range bindGroups {
			pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "stroke_pass"})
			pass.SetPipeline(a.stroke.pipeline)
			pass.SetBindGroup(0, bg, nil)
			pass.Dispatch(groups(layer.Width, 8), groups(layer.Height, 8), 1)
			pass.End()
		}
		enc.CopyBufferToBuffer(pixelBuf, stagingBuf, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: pixelBufSize},
		})
		return nil
	})
	if err != nil {
		return err
	}
	return a.readBack(stagingBuf, pixelBytes)
}

// packSegments flattens stroke segments and their stops into the GPU
// array layouts. Stops concatenate across segments; each segment records
// its window.
func packSegments(segments []brush.Segment) ([]gpuSegment, []gpuStop) {
	stopTotal := 0
	for i := range segments {
		stopTotal += len(segments[i].Stops)
	}
	segs := make([]gpuSegment, 0, len(segments))
	stopData := make([]gpuStop, 0, max(stopTotal, 1))
	for i := range segments {
		seg := &segments[i]
		segs = append(segs, gpuSegment{
			Origin:    [2]float32{seg.From.X, seg.From.Y},
			Tangent:   [2]float32{seg.Tangent.X, seg.Tangent.Y},
			Normal:    [2]float32{seg.Normal.X, seg.Normal.Y},
			Length:    seg.Length,
			Angle:     seg.Angle(),
			StopFirst: uint32(len(stopData)),
			StopCount: uint32(len(seg.Stops)),
		})
		for _, stop := range seg.Stops {
			stopData = append(stopData, gpuStop{
				Distance:  stop.Distance,
				HalfWidth: stop.HalfWidth,
				U0:        stop.U0,
				U1:        stop.U1,
				Opacity:   stop.Opacity,
				Rate:      stop.Rate,
			})
		}
	}
	if len(stopData) == 0 {
		stopData = append(stopData, gpuStop{})
	}
	return segs, stopData
}

// uploadField copies the action's transmittance table into a read-only
// storage buffer, slice by slice. Actions without a field get a one-texel
// zero table that the constant-opacity model never reads.
func (a *Accelerator) uploadField(field *brush.Field) (hal.Buffer, [2]uint32, uint32, uint32, error) {
	if field == nil {
		dummy := [1]float32{}
		buf, err := a.newStorageRO("stroke_field", floatBytes(dummy[:]))
		return buf, [2]uint32{1, 1}, 1, 0, err
	}
	slices := field.Slices()
	sliceBytes := uint64(field.Width) * uint64(field.Height) * 4
	buf, err := a.newBuffer("stroke_field", sliceBytes*uint64(field.Depth), gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, [2]uint32{}, 0, 0, err
	}
	for z, plane := range slices {
		a.queue.WriteBuffer(buf, uint64(z)*sliceBytes, floatBytes(plane.Values))
	}
	size := [2]uint32{uint32(field.Width), uint32(field.Height)}
	return buf, size, uint32(field.Depth), uint32(field.Axis), nil
}
