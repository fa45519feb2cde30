package paint

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/paint/composite"
	"github.com/gogpu/paint/geom"
)

const (
	// DefaultTileSize is the texel width and height of a layer tile.
	DefaultTileSize = 256

	// maxBlockLayers caps how many layers one storage block holds.
	// Blocks double in size up to this cap, mirroring the layered
	// texture arrays the GPU backend allocates.
	maxBlockLayers = 256
	blockCapExp    = 8 // log2(maxBlockLayers)
)

// Pixel is one texel of layer storage: Oklab coordinates and straight
// (non-premultiplied) coverage.
type Pixel struct {
	L, A, B, Alpha float32
}

// TileStore holds the texels of every allocated layer in fixed-size
// square tiles of four float32 channels (Oklab L, a, b, alpha).
//
// Capacity is fixed at construction, but backing memory materializes
// lazily: slots live in blocks of doubling size (1, 2, 4, ... up to 256
// layers) and a block is only allocated when a slot inside it is first
// claimed. Released slots are reused before fresh ones, so a steady
// workload touches no new blocks.
//
// The store trusts its callers: slot arguments must come from Allocate
// and still be held. Handle validation lives in LayerTable, which wraps
// the store. TileStore is not safe for concurrent use.
type TileStore struct {
	tileSize  int
	capacity  int
	blocks    [][]float32
	free      []int32
	next      int32
	allocated int
}

// NewTileStore creates a store for maxLayers tiles of tileSize texels on
// a side.
func NewTileStore(tileSize, maxLayers int) (*TileStore, error) {
	if tileSize <= 0 || maxLayers <= 0 {
		return nil, fmt.Errorf("paint: tile store needs positive size and capacity, got %dx%d texels, %d layers",
			tileSize, tileSize, maxLayers)
	}
	numBlocks, total := 0, 0
	for total < maxLayers {
		total += blockLen(numBlocks)
		numBlocks++
	}
	return &TileStore{
		tileSize: tileSize,
		capacity: maxLayers,
		blocks:   make([][]float32, numBlocks),
	}, nil
}

// blockLen returns how many layers block b holds.
func blockLen(b int) int {
	if b < blockCapExp {
		return 1 << b
	}
	return maxBlockLayers
}

// slotLocation maps a slot to its block and the layer offset inside it.
func slotLocation(slot int32) (block, offset int32) {
	if slot < maxBlockLayers-1 {
		block = int32(bits.Len32(uint32(slot)+1)) - 1
		return block, slot + 1 - 1<<block
	}
	rest := slot - (maxBlockLayers - 1)
	return blockCapExp + rest/maxBlockLayers, rest % maxBlockLayers
}

// layerPixels returns the slot's backing texels, materializing its block
// on first touch.
func (s *TileStore) layerPixels(slot int32) []float32 {
	block, offset := slotLocation(slot)
	if s.blocks[block] == nil {
		s.blocks[block] = make([]float32, blockLen(int(block))*s.tileSize*s.tileSize*4)
	}
	n := s.tileSize * s.tileSize * 4
	base := int(offset) * n
	return s.blocks[block][base : base+n : base+n]
}

// Allocate claims a slot and clears its texels to transparent. Released
// slots are reused first. Returns ErrCapacityExceeded when all slots are
// claimed.
func (s *TileStore) Allocate() (int32, error) {
	var slot int32
	switch {
	case len(s.free) > 0:
		slot = s.free[len(s.free)-1]
		s.free = s.free[:len(s.free)-1]
	case int(s.next) < s.capacity:
		slot = s.next
		s.next++
	default:
		return 0, fmt.Errorf("tile store: %w", ErrCapacityExceeded)
	}
	s.allocated++
	s.Clear(slot, Pixel{})
	return slot, nil
}

// Release returns the slot to the free pool. Its block stays
// materialized for reuse.
func (s *TileStore) Release(slot int32) {
	s.allocated--
	s.free = append(s.free, slot)
}

// Writable returns the slot's texels for in-place compositing, four
// channels per texel in row-major order.
func (s *TileStore) Writable(slot int32) []float32 {
	return s.layerPixels(slot)
}

// ReadLayer returns a copy of the slot's texels.
func (s *TileStore) ReadLayer(slot int32) []float32 {
	src := s.layerPixels(slot)
	out := make([]float32, len(src))
	copy(out, src)
	return out
}

// Clear fills every texel of the slot with the given value.
func (s *TileStore) Clear(slot int32, value Pixel) {
	pixels := s.layerPixels(slot)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i+0] = value.L
		pixels[i+1] = value.A
		pixels[i+2] = value.B
		pixels[i+3] = value.Alpha
	}
}

// CopyLayer copies the texels of slot src over those of slot dst.
func (s *TileStore) CopyLayer(dst, src int32) {
	copy(s.layerPixels(dst), s.layerPixels(src))
}

// Sample bilinearly filters the slot's texels at a normalized
// coordinate, clamping to the edge texels. It uses the compositing
// kernels' texel-center mapping, so Sample agrees with what rendering
// reads at the same local position.
func (s *TileStore) Sample(slot int32, u, v float32) Pixel {
	layer := composite.Layer{
		Width:  s.tileSize,
		Height: s.tileSize,
		Pixels: s.layerPixels(slot),
	}
	l, a, b, alpha := layer.Sample(geom.V2(u, v))
	return Pixel{L: l, A: a, B: b, Alpha: alpha}
}

// TileSize returns the texel width and height of one tile.
func (s *TileStore) TileSize() int { return s.tileSize }

// Capacity returns the total number of layer slots.
func (s *TileStore) Capacity() int { return s.capacity }

// Allocated returns the number of currently claimed slots.
func (s *TileStore) Allocated() int { return s.allocated }

// materialized counts the blocks that have backing memory.
func (s *TileStore) materialized() int {
	n := 0
	for _, b := range s.blocks {
		if b != nil {
			n++
		}
	}
	return n
}
