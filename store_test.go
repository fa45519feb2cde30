package paint

import (
	"errors"
	"testing"
)

func TestNewTileStore(t *testing.T) {
	s, err := NewTileStore(8, 4)
	if err != nil {
		t.Fatalf("NewTileStore: %v", err)
	}
	if s.TileSize() != 8 || s.Capacity() != 4 || s.Allocated() != 0 {
		t.Fatalf("size/capacity/allocated = %d/%d/%d, want 8/4/0",
			s.TileSize(), s.Capacity(), s.Allocated())
	}

	for _, args := range [][2]int{{0, 4}, {8, 0}, {-1, 4}, {8, -2}} {
		if _, err := NewTileStore(args[0], args[1]); err == nil {
			t.Errorf("NewTileStore(%d, %d) accepted invalid arguments", args[0], args[1])
		}
	}
}

func TestSlotLocation(t *testing.T) {
	tests := []struct {
		slot, block, offset int32
	}{
		{0, 0, 0},
		{1, 1, 0},
		{2, 1, 1},
		{3, 2, 0},
		{6, 2, 3},
		{7, 3, 0},
		{254, 7, 127},
		{255, 8, 0},
		{510, 8, 255},
		{511, 9, 0},
		{767, 9, 255},
		{768, 10, 0},
	}
	for _, tt := range tests {
		block, offset := slotLocation(tt.slot)
		if block != tt.block || offset != tt.offset {
			t.Errorf("slotLocation(%d) = (%d, %d), want (%d, %d)",
				tt.slot, block, offset, tt.block, tt.offset)
		}
	}
}

func TestTileStore_AllocateReleaseReuse(t *testing.T) {
	s, err := NewTileStore(4, 8)
	if err != nil {
		t.Fatalf("NewTileStore: %v", err)
	}

	var slots []int32
	for i := range 3 {
		slot, err := s.Allocate()
		if err != nil {
			t.Fatalf("Allocate %d: %v", i, err)
		}
		slots = append(slots, slot)
	}
	if slots[0] != 0 || slots[1] != 1 || slots[2] != 2 {
		t.Fatalf("fresh slots = %v, want [0 1 2]", slots)
	}
	if s.Allocated() != 3 {
		t.Fatalf("Allocated() = %d, want 3", s.Allocated())
	}

	s.Release(1)
	if s.Allocated() != 2 {
		t.Fatalf("Allocated() after release = %d, want 2", s.Allocated())
	}
	slot, err := s.Allocate()
	if err != nil {
		t.Fatalf("Allocate after release: %v", err)
	}
	if slot != 1 {
		t.Fatalf("reused slot = %d, want 1", slot)
	}
}

func TestTileStore_CapacityExceeded(t *testing.T) {
	s, err := NewTileStore(4, 2)
	if err != nil {
		t.Fatalf("NewTileStore: %v", err)
	}
	for range 2 {
		if _, err := s.Allocate(); err != nil {
			t.Fatalf("Allocate: %v", err)
		}
	}
	if _, err := s.Allocate(); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Allocate past capacity = %v, want ErrCapacityExceeded", err)
	}

	// Releasing makes room again.
	s.Release(0)
	if _, err := s.Allocate(); err != nil {
		t.Fatalf("Allocate after release: %v", err)
	}
}

func TestTileStore_LazyBlocks(t *testing.T) {
	s, err := NewTileStore(4, 16)
	if err != nil {
		t.Fatalf("NewTileStore: %v", err)
	}
	if len(s.blocks) != 5 {
		t.Fatalf("planned blocks = %d, want 5", len(s.blocks))
	}
	if s.materialized() != 0 {
		t.Fatalf("materialized before use = %d, want 0", s.materialized())
	}

	wantAfter := []int{1, 2, 2, 3, 3, 3, 3, 4}
	for i, want := range wantAfter {
		if _, err := s.Allocate(); err != nil {
			t.Fatalf("Allocate %d: %v", i, err)
		}
		if got := s.materialized(); got != want {
			t.Fatalf("materialized after %d allocs = %d, want %d", i+1, got, want)
		}
	}

	// Reuse keeps the footprint flat.
	s.Release(3)
	if _, err := s.Allocate(); err != nil {
		t.Fatalf("Allocate reuse: %v", err)
	}
	if got := s.materialized(); got != 4 {
		t.Fatalf("materialized after reuse = %d, want 4", got)
	}
}

func TestTileStore_AllocateClearsReusedSlot(t *testing.T) {
	s, err := NewTileStore(2, 2)
	if err != nil {
		t.Fatalf("NewTileStore: %v", err)
	}
	slot, _ := s.Allocate()
	pixels := s.Writable(slot)
	for i := range pixels {
		pixels[i] = 0.5
	}
	s.Release(slot)

	again, _ := s.Allocate()
	if again != slot {
		t.Fatalf("reused slot = %d, want %d", again, slot)
	}
	for i, v := range s.Writable(again) {
		if v != 0 {
			t.Fatalf("reused slot channel %d = %v, want 0", i, v)
		}
	}
}

func TestTileStore_ClearFillsValue(t *testing.T) {
	s, err := NewTileStore(2, 1)
	if err != nil {
		t.Fatalf("NewTileStore: %v", err)
	}
	slot, _ := s.Allocate()
	s.Clear(slot, Pixel{L: 0.7, A: -0.1, B: 0.2, Alpha: 1})

	pixels := s.Writable(slot)
	for i := 0; i < len(pixels); i += 4 {
		if pixels[i] != 0.7 || pixels[i+1] != -0.1 || pixels[i+2] != 0.2 || pixels[i+3] != 1 {
			t.Fatalf("texel %d = %v, want cleared value", i/4, pixels[i:i+4])
		}
	}
}

func TestTileStore_CopyAndRead(t *testing.T) {
	s, err := NewTileStore(2, 2)
	if err != nil {
		t.Fatalf("NewTileStore: %v", err)
	}
	src, _ := s.Allocate()
	dst, _ := s.Allocate()
	pixels := s.Writable(src)
	for i := range pixels {
		pixels[i] = float32(i)
	}

	s.CopyLayer(dst, src)
	for i, v := range s.Writable(dst) {
		if v != float32(i) {
			t.Fatalf("copied channel %d = %v, want %v", i, v, float32(i))
		}
	}

	// ReadLayer snapshots: mutating the copy leaves the store alone.
	snap := s.ReadLayer(src)
	snap[0] = -99
	if got := s.Writable(src)[0]; got != 0 {
		t.Fatalf("store channel 0 = %v after mutating snapshot, want 0", got)
	}
}

func TestTileStore_Sample(t *testing.T) {
	s, err := NewTileStore(2, 1)
	if err != nil {
		t.Fatalf("NewTileStore: %v", err)
	}
	slot, _ := s.Allocate()
	pixels := s.Writable(slot)
	// L channel distinct per texel: 0, 1, 2, 3 row-major.
	for i := range 4 {
		pixels[i*4] = float32(i)
		pixels[i*4+3] = 1
	}

	tests := []struct {
		name  string
		u, v  float32
		wantL float32
	}{
		{"texel 0 center", 0.25, 0.25, 0},
		{"texel 3 center", 0.75, 0.75, 3},
		{"midpoint blends all four", 0.5, 0.5, 1.5},
		{"clamps at origin", 0, 0, 0},
		{"clamps past the far corner", 2, 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sample(slot, tt.u, tt.v)
			if got.L != tt.wantL {
				t.Fatalf("Sample(%v, %v).L = %v, want %v", tt.u, tt.v, got.L, tt.wantL)
			}
			if got.Alpha != 1 {
				t.Fatalf("Sample(%v, %v).Alpha = %v, want 1", tt.u, tt.v, got.Alpha)
			}
		})
	}
}
