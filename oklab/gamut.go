package oklab

// gamutIterations is the number of binary search refinement steps.
// Nine total tests (8 in the loop plus the final adjustment) resolve the
// chroma scale to about three decimal digits, below a display quantum.
const gamutIterations = 8

// GamutConstrain maps a possibly out-of-gamut Oklab color to the nearest
// same-lightness, same-hue color inside the linear sRGB unit cube, by
// scaling chroma toward the achromatic axis.
//
// Returns the constrained linear triple and the chroma scale s in [0, 1].
// Colors already inside the gamut come back unchanged with s == 1.
// The function is deterministic: identical inputs always produce identical
// outputs, which view compositing relies on for stable frames.
func GamutConstrain(c Color) (LinearRGB, float32) {
	s := float32(0.5)
	step := float32(0.5)
	for i := 0; i < gamutIterations; i++ {
		step /= 2
		if c.scaleChroma(s).LinearSRGB().inUnitRange() {
			s += step
		} else {
			s -= step
		}
	}
	// One unhalved application of the last step. In-gamut inputs have
	// climbed to 1 - 2^-9 by now and land on exactly 1.0 here.
	if c.scaleChroma(s).LinearSRGB().inUnitRange() {
		s += step
	} else {
		s -= step
	}
	if s < 0 {
		s = 0
	} else if s > 1 {
		s = 1
	}

	rgb := c.scaleChroma(s).LinearSRGB()
	if !rgb.inUnitRange() && s >= step {
		// The final step can overshoot the gamut boundary by at most one
		// step width; retreating once restores a valid triple.
		s -= step
		rgb = c.scaleChroma(s).LinearSRGB()
	}
	return rgb, s
}
