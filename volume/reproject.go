package volume

import (
	"github.com/gogpu/paint/brush"
	"github.com/gogpu/paint/internal/parallel"
)

// The GPU passes dispatch 8x8x4 workgroups, so the copy domain is
// rounded up to whole blocks and each voxel re-checks its bounds.
const (
	blockWidth  = 8
	blockHeight = 8
	blockDepth  = 4
)

// Options configures the reprojection passes.
type Options struct {
	// Pool distributes z slabs across workers. Nil runs the copy on
	// the calling goroutine.
	Pool *parallel.WorkerPool
}

// LayersToVolume copies shape planes into the grid, plane index becoming
// the z coordinate. Extents need not match on any axis: voxels outside
// either side are skipped without error, so callers may reproject
// between differently sized forms and keep whatever the copy does not
// reach. Values are copied untouched.
func LayersToVolume(layers []brush.Shape, dst *Volume, opts Options) {
	if dst == nil || dst.Width <= 0 || dst.Height <= 0 || dst.Depth <= 0 || len(layers) == 0 {
		return
	}
	width, height := 0, 0
	for _, layer := range layers {
		width = max(width, layer.Width)
		height = max(height, layer.Height)
	}
	width = alignUp(width, blockWidth)
	height = alignUp(height, blockHeight)
	depth := alignUp(len(layers), blockDepth)

	slab := func(z0, z1 int) {
		for z := z0; z < z1; z++ {
			if z >= len(layers) || z >= dst.Depth {
				continue
			}
			layer := layers[z]
			for y := 0; y < height; y++ {
				if y >= layer.Height || y >= dst.Height {
					continue
				}
				src := layer.Values[y*layer.Width : (y+1)*layer.Width]
				row := dst.Values[(z*dst.Height+y)*dst.Width : (z*dst.Height+y+1)*dst.Width]
				for x := 0; x < width; x++ {
					if x >= layer.Width || x >= dst.Width {
						continue
					}
					row[x] = src[x]
				}
			}
		}
	}
	if opts.Pool != nil {
		opts.Pool.ForRows(depth, slab)
	} else {
		slab(0, depth)
	}
}

// VolumeToLayers copies the grid back into shape planes, z selecting the
// plane. The bounds rules match [LayersToVolume]: voxels outside either
// side are skipped, and plane texels the copy does not reach keep their
// previous values.
func VolumeToLayers(src *Volume, layers []brush.Shape, opts Options) {
	if src == nil || src.Width <= 0 || src.Height <= 0 || src.Depth <= 0 || len(layers) == 0 {
		return
	}
	width := alignUp(src.Width, blockWidth)
	height := alignUp(src.Height, blockHeight)
	depth := alignUp(src.Depth, blockDepth)

	slab := func(z0, z1 int) {
		for z := z0; z < z1; z++ {
			if z >= src.Depth || z >= len(layers) {
				continue
			}
			layer := layers[z]
			for y := 0; y < height; y++ {
				if y >= src.Height || y >= layer.Height {
					continue
				}
				row := src.Values[(z*src.Height+y)*src.Width : (z*src.Height+y+1)*src.Width]
				dst := layer.Values[y*layer.Width : (y+1)*layer.Width]
				for x := 0; x < width; x++ {
					if x >= src.Width || x >= layer.Width {
						continue
					}
					dst[x] = row[x]
				}
			}
		}
	}
	if opts.Pool != nil {
		opts.Pool.ForRows(depth, slab)
	} else {
		slab(0, depth)
	}
}

func alignUp(n, block int) int {
	return (n + block - 1) / block * block
}
