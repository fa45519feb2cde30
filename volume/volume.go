// Package volume converts brush shape data between its layered form,
// one 2D plane per slice, and a dense 3D grid. The reprojection passes
// mirror the GPU compute dispatches voxel for voxel: work covers whole
// 8x8x4 blocks, so every voxel is bounds-checked against both sides
// and silently skipped outside either.
package volume

import (
	"errors"
	"fmt"
)

// ErrBadVolumeSize reports non-positive grid extents.
var ErrBadVolumeSize = errors.New("volume extents must be positive")

// Volume is a dense single-channel 3D grid. Values are stored x-fastest,
// so voxel (x, y, z) lives at Values[(z*Height+y)*Width+x].
type Volume struct {
	Width, Height, Depth int
	Values               []float32
}

// NewVolume allocates a zeroed grid with the given extents.
func NewVolume(width, height, depth int) (*Volume, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrBadVolumeSize, width, height, depth)
	}
	return &Volume{
		Width:  width,
		Height: height,
		Depth:  depth,
		Values: make([]float32, width*height*depth),
	}, nil
}

// At returns the voxel value at (x, y, z). Coordinates must be in range.
func (vol *Volume) At(x, y, z int) float32 {
	return vol.Values[(z*vol.Height+y)*vol.Width+x]
}

// Set writes the voxel value at (x, y, z). Coordinates must be in range.
func (vol *Volume) Set(x, y, z int, value float32) {
	vol.Values[(z*vol.Height+y)*vol.Width+x] = value
}

// Sample returns the trilinear lookup at normalized coordinates, each
// clamped to [0, 1]. Adjacent z planes are sampled bilinearly and then
// blended, so a grid filled from [brush.Field.Slices] reads back exactly
// what [brush.Field.Sample3] returns.
func (vol *Volume) Sample(u, v, w float32) float32 {
	if vol.Depth == 1 {
		return vol.samplePlane(0, u, v)
	}
	if w < 0 {
		w = 0
	} else if w > 1 {
		w = 1
	}
	zf := w * float32(vol.Depth-1)
	z0 := int(zf)
	if z0 >= vol.Depth-1 {
		return vol.samplePlane(vol.Depth-1, u, v)
	}
	fz := zf - float32(z0)
	a := vol.samplePlane(z0, u, v)
	b := vol.samplePlane(z0+1, u, v)
	return a + (b-a)*fz
}

// samplePlane is the clamped bilinear lookup within plane z.
func (vol *Volume) samplePlane(z int, u, v float32) float32 {
	if u < 0 {
		u = 0
	} else if u > 1 {
		u = 1
	}
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}

	x := u * float32(vol.Width-1)
	y := v * float32(vol.Height-1)
	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > vol.Width-1 {
		x1 = vol.Width - 1
	}
	if y1 > vol.Height-1 {
		y1 = vol.Height - 1
	}
	fx := x - float32(x0)
	fy := y - float32(y0)

	plane := vol.Values[z*vol.Height*vol.Width:]
	v00 := plane[y0*vol.Width+x0]
	v10 := plane[y0*vol.Width+x1]
	v01 := plane[y1*vol.Width+x0]
	v11 := plane[y1*vol.Width+x1]

	top := v00 + (v10-v00)*fx
	bot := v01 + (v11-v01)*fx
	return top + (bot-top)*fy
}
