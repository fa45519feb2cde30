// Package paint provides the rendering core of a GPU-accelerated painting
// application.
//
// # Overview
//
// paint keeps an effectively unbounded, multi-layer canvas in fixed-size
// layer tiles and composites continuous brush strokes into them. Stroke
// opacity integrates optical depth along the stroke, so the deposit on the
// canvas does not depend on how finely an input device sampled the stroke.
// All painting happens in Oklab; display output is gamut-constrained,
// sRGB-encoded and dithered in a single pass.
//
// # Quick Start
//
//	import "github.com/gogpu/paint"
//
//	// Create an engine with default tile and capacity settings.
//	eng, err := paint.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer eng.Close()
//
//	// Allocate a layer and composite a stroke into it.
//	var id paint.LayerID
//	err = eng.Submit(paint.Submission{
//		paint.AllocateLayer{Transform: placement, ID: &id},
//		paint.CompositeStroke{Layer: id, Action: action},
//	})
//
//	// Project the layer stack onto a display image.
//	img := image.NewRGBA(image.Rect(0, 0, 800, 600))
//	err = eng.RenderView(img, canvasToView, paint.RenderOptions{})
//
// # Architecture
//
// The library is organized into:
//   - Public API: Engine, LayerTable, TileStore, ChartAtlas
//   - Kernels: composite (stroke and view), volume (reprojection)
//   - Support: geom (fixed transform conventions), oklab (color math),
//     brush (stroke preparation and shape fields)
//   - Backends: backend/wgpu (GPU compute passes via gogpu/wgpu)
//
// # Renderers
//
// The CPU kernels are the reference implementation and are always
// available. A GPU accelerator registered via blank import runs the same
// passes on the device and falls back to the CPU per operation:
//
//	import _ "github.com/gogpu/paint/backend/wgpu"
//
// # Coordinate System
//
// Uses standard computer graphics coordinates:
//   - Origin (0,0) at top-left
//   - X increases right
//   - Y increases down
//   - Layer placements map the normalized rectangle [0,1]x[0,1] onto
//     canvas space; chart cells span 256x256 canvas units
package paint

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
