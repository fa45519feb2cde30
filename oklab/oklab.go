// Package oklab implements the Oklab color space used for all paint blending,
// plus the conversions needed to bring stored colors to a display surface.
//
// Layer pixels store Oklab coordinates directly, so strokes blend in a
// perceptually uniform space. Conversion to display sRGB happens once, in the
// view compositor, through [GamutConstrain] and [LinearToDisplay].
package oklab

import "github.com/chewxy/math32"

// Color is a color in Oklab coordinates.
// L is perceptual lightness, nominally in [0, 1].
// A and B are the green-red and blue-yellow opponent axes, unbounded.
type Color struct {
	L, A, B float32
}

// LinearRGB is a color in linear (pre-gamma) sRGB. Components outside [0, 1]
// indicate an out-of-gamut color.
type LinearRGB struct {
	R, G, B float32
}

// LinearSRGB converts the color to linear sRGB.
// Out-of-gamut colors produce components outside [0, 1]; use
// [GamutConstrain] before display conversion.
func (c Color) LinearSRGB() LinearRGB {
	lp := c.L + 0.3963377774*c.A + 0.2158037573*c.B
	mp := c.L - 0.1055613458*c.A - 0.0638541728*c.B
	sp := c.L - 0.0894841775*c.A - 1.2914855480*c.B

	l := lp * lp * lp
	m := mp * mp * mp
	s := sp * sp * sp

	return LinearRGB{
		R: 4.0767416621*l - 3.3077115913*m + 0.2309699292*s,
		G: -1.2684380046*l + 2.6097574011*m - 0.3413193965*s,
		B: -0.0041960863*l - 0.7034186147*m + 1.7076147010*s,
	}
}

// FromLinearSRGB converts a linear sRGB color to Oklab.
func FromLinearSRGB(rgb LinearRGB) Color {
	l := 0.4122214708*rgb.R + 0.5363325363*rgb.G + 0.0514459929*rgb.B
	m := 0.2119034982*rgb.R + 0.6806995451*rgb.G + 0.1073969566*rgb.B
	s := 0.0883024619*rgb.R + 0.2817188376*rgb.G + 0.6299787005*rgb.B

	lc := math32.Cbrt(l)
	mc := math32.Cbrt(m)
	sc := math32.Cbrt(s)

	return Color{
		L: 0.2104542553*lc + 0.7936177850*mc - 0.0040720468*sc,
		A: 1.9779984951*lc - 2.4285922050*mc + 0.4505937099*sc,
		B: 0.0259040371*lc + 0.7827717662*mc - 0.8086757660*sc,
	}
}

// LinearToDisplay applies the piecewise sRGB transfer function to one
// linear component.
func LinearToDisplay(x float32) float32 {
	if x >= 0.0031308 {
		return 1.055*math32.Pow(x, 1.0/2.4) - 0.055
	}
	return 12.92 * x
}

// DisplayToLinear inverts [LinearToDisplay].
func DisplayToLinear(x float32) float32 {
	if x >= 0.04045 {
		return math32.Pow((x+0.055)/1.055, 2.4)
	}
	return x / 12.92
}

// scaleChroma returns the color with both opponent axes scaled by s,
// moving it toward the achromatic axis while preserving lightness.
func (c Color) scaleChroma(s float32) Color {
	return Color{L: c.L, A: c.A * s, B: c.B * s}
}

// inUnitRange reports whether every component lies in the half-open [0, 1).
// The upper bound is exclusive so that quantized display values never
// round up past the top code.
func (rgb LinearRGB) inUnitRange() bool {
	return rgb.R >= 0 && rgb.R < 1 &&
		rgb.G >= 0 && rgb.G < 1 &&
		rgb.B >= 0 && rgb.B < 1
}
