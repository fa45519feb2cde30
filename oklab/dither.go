package oklab

import "math"

// Per-channel salts decorrelate the three dither sequences.
const (
	ditherSaltR = 0x5bd1e995
	ditherSaltG = 0x9e3779b9
	ditherSaltB = 0x85ebca6b
)

// Dither returns a deterministic pseudo-random offset in [-0.5, 0.5) for
// each channel, derived from the coordinate alone.
//
// Callers fold any per-stroke seed into the coordinate before calling, so
// repeated renders of the same content produce bit-identical noise while
// distinct strokes decorrelate. The offsets are applied either to stored
// color (stroke compositing) or scaled to one display quantum before 8-bit
// quantization (view compositing).
func Dither(x, y float32) (r, g, b float32) {
	hx := math.Float32bits(x)
	hy := math.Float32bits(y)
	base := hx*0x9e3779b1 ^ hy*0x85ebca77
	r = ditherUnit(mix32(base ^ ditherSaltR))
	g = ditherUnit(mix32(base ^ ditherSaltG))
	b = ditherUnit(mix32(base ^ ditherSaltB))
	return r, g, b
}

// mix32 is a low-bias 32-bit finalizer. Every input bit affects every
// output bit, which keeps the noise free of coordinate-aligned patterns.
func mix32(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x7feb352d
	h ^= h >> 15
	h *= 0x846ca68b
	h ^= h >> 16
	return h
}

// ditherUnit maps the top 24 bits of a hash to [-0.5, 0.5).
func ditherUnit(h uint32) float32 {
	return float32(h>>8)*(1.0/(1<<24)) - 0.5
}
