package composite

import "fmt"

// DebugMode selects an alternate kernel output for inspecting the
// pipeline. DebugNone renders normally.
type DebugMode uint8

const (
	// DebugNone renders the regular color pipeline.
	DebugNone DebugMode = iota

	// DebugUBounds makes the stroke kernel write the swept parameter
	// range (u0, u1) and the cross coordinate into the raster channels
	// instead of paint. Used by the Stroke kernel.
	DebugUBounds

	// DebugLayerIndex makes the view kernel fill each layer footprint
	// with a flat color keyed on the layer's position in the stack.
	// Used by the View kernel.
	DebugLayerIndex
)

func (m DebugMode) String() string {
	switch m {
	case DebugNone:
		return "none"
	case DebugUBounds:
		return "u-bounds"
	case DebugLayerIndex:
		return "layer-index"
	default:
		return fmt.Sprintf("DebugMode(%d)", uint8(m))
	}
}

// debugPalette cycles through visually distinct colors for
// DebugLayerIndex.
var debugPalette = [...][3]uint8{
	{230, 25, 75},
	{60, 180, 75},
	{255, 225, 25},
	{0, 130, 200},
	{245, 130, 48},
	{145, 30, 180},
	{70, 240, 240},
	{240, 50, 230},
}

func debugLayerColor(index int) (r, g, b float32) {
	c := debugPalette[index%len(debugPalette)]
	return float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255
}
