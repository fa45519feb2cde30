package paint

import "errors"

// ErrCapacityExceeded indicates a fixed resource pool is exhausted: every
// layer slot or chart cell the engine was configured with is in use.
// Freeing layers or charts makes room; capacities never grow after
// construction.
var ErrCapacityExceeded = errors.New("paint: capacity exceeded")

// ErrInvalidLayer indicates a layer handle that is out of range, was never
// allocated, or went stale because its slot was freed. Stale handles are
// rejected outright, even when the slot has since been reused.
var ErrInvalidLayer = errors.New("paint: invalid layer handle")

// ErrDeviceLost indicates the GPU device or its resources became
// unusable. The failing operation did not complete; the engine serves
// subsequent submissions on the CPU path until the host rebuilds the
// backend.
var ErrDeviceLost = errors.New("paint: device lost")

// ErrEngineClosed indicates use of an Engine after Close.
var ErrEngineClosed = errors.New("paint: engine closed")
