//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/paint/composite"
)

// maxBlockLayers caps the array depth of a single mirror texture.
// Stacks deeper than this span several blocks.
const maxBlockLayers = 256

// A tileBlock mirrors a run of same-extent layers as one layered
// RGBA32Float texture, one array layer per composite layer.
type tileBlock struct {
	width, height int
	depth         int
	texture       hal.Texture
	views         []hal.TextureView
}

// tileMirror keeps GPU-resident copies of the most recently rendered
// layer stack. Hosts that composite tiles themselves can sample these
// textures instead of re-uploading linear pixels every frame. The
// mirror is best-effort: on any texture failure it shuts itself off
// until the device changes.
type tileMirror struct {
	blocks   []*tileBlock
	disabled bool
}

// tileRun is a maximal run of adjacent layers sharing one extent.
type tileRun struct {
	width, height int
	layers        []composite.Layer
}

func splitRuns(layers []composite.Layer) []tileRun {
	var runs []tileRun
	for _, l := range layers {
		if l.Width <= 0 || l.Height <= 0 {
			continue
		}
		n := len(runs)
		if n > 0 && runs[n-1].width == l.Width && runs[n-1].height == l.Height && len(runs[n-1].layers) < maxBlockLayers {
			runs[n-1].layers = append(runs[n-1].layers, l)
			continue
		}
		runs = append(runs, tileRun{width: l.Width, height: l.Height, layers: []composite.Layer{l}})
	}
	return runs
}

// matches reports whether the existing blocks already fit the runs, so
// refresh can reuse textures and only re-upload texels.
func (m *tileMirror) matches(runs []tileRun) bool {
	if len(m.blocks) != len(runs) {
		return false
	}
	for i, r := range runs {
		b := m.blocks[i]
		if b.width != r.width || b.height != r.height || b.depth != len(r.layers) {
			return false
		}
	}
	return true
}

// refresh brings the mirror in line with the given stack, recreating
// textures when the stack shape changed and re-uploading every layer's
// texels. Failures disable the mirror rather than failing the render.
func (m *tileMirror) refresh(device hal.Device, queue hal.Queue, layers []composite.Layer) {
	if device == nil || queue == nil || m.disabled {
		return
	}
	runs := splitRuns(layers)
	if !m.matches(runs) {
		m.destroy(device)
		for i, r := range runs {
			b, err := newTileBlock(device, i, r)
			if err != nil {
				slogger().Warn("tile mirror disabled", "error", err)
				m.destroy(device)
				m.disabled = true
				return
			}
			m.blocks = append(m.blocks, b)
		}
	}
	for i, r := range runs {
		m.blocks[i].upload(queue, r.layers)
	}
}

func newTileBlock(device hal.Device, index int, r tileRun) (*tileBlock, error) {
	depth := len(r.layers)
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: fmt.Sprintf("paint_tiles_%d", index),
		Size: hal.Extent3D{
			Width:              uint32(r.width),  //nolint:gosec // extent validated by splitRuns
			Height:             uint32(r.height), //nolint:gosec // extent validated by splitRuns
			DepthOrArrayLayers: uint32(depth),    //nolint:gosec // capped at maxBlockLayers
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA32Float,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tile texture: %w", err)
	}
	b := &tileBlock{width: r.width, height: r.height, depth: depth, texture: tex}
	for z := 0; z < depth; z++ {
		view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:           fmt.Sprintf("paint_tiles_%d_layer_%d", index, z),
			Format:          gputypes.TextureFormatRGBA32Float,
			Dimension:       gputypes.TextureViewDimension2D,
			Aspect:          gputypes.TextureAspectAll,
			BaseMipLevel:    0,
			MipLevelCount:   1,
			BaseArrayLayer:  uint32(z), //nolint:gosec // z < depth <= maxBlockLayers
			ArrayLayerCount: 1,
		})
		if err != nil {
			b.destroy(device)
			return nil, fmt.Errorf("failed to create tile view: %w", err)
		}
		b.views = append(b.views, view)
	}
	return b, nil
}

func (b *tileBlock) upload(queue hal.Queue, layers []composite.Layer) {
	w := uint32(b.width)  //nolint:gosec // extent validated by splitRuns
	h := uint32(b.height) //nolint:gosec // extent validated by splitRuns
	for z, l := range layers {
		queue.WriteTexture(
			&hal.ImageCopyTexture{
				Texture:  b.texture,
				MipLevel: 0,
				Origin:   hal.Origin3D{X: 0, Y: 0, Z: uint32(z)}, //nolint:gosec // z < depth
			},
			floatBytes(l.Pixels),
			&hal.ImageDataLayout{
				Offset:       0,
				BytesPerRow:  w * 16,
				RowsPerImage: h,
			},
			&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		)
	}
}

func (b *tileBlock) destroy(device hal.Device) {
	for _, v := range b.views {
		if v != nil {
			device.DestroyTextureView(v)
		}
	}
	b.views = nil
	if b.texture != nil {
		device.DestroyTexture(b.texture)
		b.texture = nil
	}
}

func (m *tileMirror) destroy(device hal.Device) {
	if device != nil {
		for _, b := range m.blocks {
			b.destroy(device)
		}
	}
	m.blocks = nil
	m.disabled = false
}

// View returns the texture view mirroring the given stack position, or
// nil when the mirror has nothing for it. Callers must treat the view
// as read-only and not retain it across a refresh.
func (m *tileMirror) View(index int) hal.TextureView {
	for _, b := range m.blocks {
		if index < len(b.views) {
			return b.views[index]
		}
		index -= len(b.views)
	}
	return nil
}
