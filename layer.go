package paint

import (
	"fmt"
	"structs"

	"github.com/gogpu/paint/geom"
)

// LayerID is a stable handle to a canvas layer. Handles carry a
// generation stamp, so a handle that outlives its layer is rejected even
// after the slot has been reused. The zero value is never valid.
type LayerID struct {
	index      int32
	generation uint32
}

func (id LayerID) String() string {
	return fmt.Sprintf("layer(%d@%d)", id.index, id.generation)
}

// TileData is the GPU-shared mirror of a layer's canvas placement, laid
// out to match the WGSL uniform struct: two vec2<f32>, 16 bytes.
type TileData struct {
	_           structs.HostLayout
	Scale       [2]float32
	Translation [2]float32
}

// layerRecord is one arena slot. generation counts how many layers have
// occupied the slot; a handle is valid only while its generation matches
// and the record is live.
type layerRecord struct {
	generation uint32
	live       bool
	transform  geom.ScaleTranslation
	slot       int32
}

type pendingTransform struct {
	id        LayerID
	transform geom.ScaleTranslation
}

// LayerTable tracks the live layers of a canvas: placement, pixel slot
// and handle validity. Records live in a fixed arena indexed by handle,
// and the table owns slot allocation in the backing TileStore, which
// trusts its callers; all handle validation happens here.
//
// Transform updates are staged: UpdateTransform lands in a pending list
// and becomes visible when the engine commits at the next submission
// boundary, so a render in flight never sees a half-applied placement.
//
// LayerTable is not safe for concurrent use; the engine serializes
// access.
type LayerTable struct {
	store   *TileStore
	records []layerRecord
	free    []int32
	pending []pendingTransform
}

// NewLayerTable creates a table over the store's full layer capacity.
func NewLayerTable(store *TileStore) *LayerTable {
	n := store.Capacity()
	t := &LayerTable{
		store:   store,
		records: make([]layerRecord, n),
		free:    make([]int32, 0, n),
	}
	for i := n - 1; i >= 0; i-- {
		t.free = append(t.free, int32(i))
	}
	return t
}

// record validates a handle and returns its arena slot.
func (t *LayerTable) record(id LayerID) (*layerRecord, error) {
	if id.index < 0 || int(id.index) >= len(t.records) {
		return nil, fmt.Errorf("%v: %w", id, ErrInvalidLayer)
	}
	rec := &t.records[id.index]
	if !rec.live || rec.generation != id.generation {
		return nil, fmt.Errorf("%v: %w", id, ErrInvalidLayer)
	}
	return rec, nil
}

// Allocate claims a layer slot with the given placement and clears its
// pixels to transparent. Returns ErrCapacityExceeded when the table is
// full.
func (t *LayerTable) Allocate(transform geom.ScaleTranslation) (LayerID, error) {
	if len(t.free) == 0 {
		return LayerID{}, fmt.Errorf("allocate layer: %w", ErrCapacityExceeded)
	}
	slot, err := t.store.Allocate()
	if err != nil {
		return LayerID{}, fmt.Errorf("allocate layer: %w", err)
	}
	index := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]
	rec := &t.records[index]
	rec.generation++
	rec.live = true
	rec.transform = transform
	rec.slot = slot
	return LayerID{index: index, generation: rec.generation}, nil
}

// Free releases the layer and its pixel slot. The handle is dead
// afterwards; any copy of it held elsewhere is rejected with
// ErrInvalidLayer from then on.
func (t *LayerTable) Free(id LayerID) error {
	rec, err := t.record(id)
	if err != nil {
		return err
	}
	rec.live = false
	t.store.Release(rec.slot)
	t.free = append(t.free, id.index)
	return nil
}

// CloneLayer allocates a new layer with a copy of the source layer's
// placement and pixels.
func (t *LayerTable) CloneLayer(id LayerID) (LayerID, error) {
	src, err := t.record(id)
	if err != nil {
		return LayerID{}, err
	}
	srcSlot, srcTransform := src.slot, src.transform
	clone, err := t.Allocate(srcTransform)
	if err != nil {
		return LayerID{}, fmt.Errorf("clone layer: %w", err)
	}
	dst, _ := t.record(clone)
	t.store.CopyLayer(dst.slot, srcSlot)
	return clone, nil
}

// UpdateTransform stages a new placement for the layer. The update is
// validated now but takes effect at the next commit; until then,
// Transform keeps returning the old placement.
func (t *LayerTable) UpdateTransform(id LayerID, transform geom.ScaleTranslation) error {
	if _, err := t.record(id); err != nil {
		return err
	}
	t.pending = append(t.pending, pendingTransform{id: id, transform: transform})
	return nil
}

// commit applies staged transform updates in order. The engine calls it
// at each submission boundary. Updates whose layer has been freed in the
// meantime are dropped.
func (t *LayerTable) commit() {
	for _, p := range t.pending {
		if rec, err := t.record(p.id); err == nil {
			rec.transform = p.transform
		}
	}
	t.pending = t.pending[:0]
}

// Transform returns the layer's committed placement.
func (t *LayerTable) Transform(id LayerID) (geom.ScaleTranslation, error) {
	rec, err := t.record(id)
	if err != nil {
		return geom.ScaleTranslation{}, err
	}
	return rec.transform, nil
}

// Slot returns the layer's pixel slot in the backing TileStore.
func (t *LayerTable) Slot(id LayerID) (int32, error) {
	rec, err := t.record(id)
	if err != nil {
		return 0, err
	}
	return rec.slot, nil
}

// TileData returns the GPU-shared mirror of the layer's committed
// placement.
func (t *LayerTable) TileData(id LayerID) (TileData, error) {
	rec, err := t.record(id)
	if err != nil {
		return TileData{}, err
	}
	tr := rec.transform
	return TileData{
		Scale:       [2]float32{tr.Scale.X, tr.Scale.Y},
		Translation: [2]float32{tr.Translation.X, tr.Translation.Y},
	}, nil
}

// Layers returns the live handles in arena order, which is also the
// compositing order: earlier handles render below later ones.
func (t *LayerTable) Layers() []LayerID {
	ids := make([]LayerID, 0, t.Len())
	for i := range t.records {
		rec := &t.records[i]
		if rec.live {
			ids = append(ids, LayerID{index: int32(i), generation: rec.generation})
		}
	}
	return ids
}

// forEachLive visits the live records in compositing order.
func (t *LayerTable) forEachLive(fn func(rec *layerRecord)) {
	for i := range t.records {
		if t.records[i].live {
			fn(&t.records[i])
		}
	}
}

// Len returns the number of live layers.
func (t *LayerTable) Len() int {
	return len(t.records) - len(t.free)
}

// Capacity returns the total number of layer slots.
func (t *LayerTable) Capacity() int {
	return len(t.records)
}
