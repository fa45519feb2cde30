//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"errors"
	"image"
	"math"
	"strings"
	"testing"
	"unsafe"

	"github.com/gogpu/naga"

	"github.com/gogpu/paint"
	"github.com/gogpu/paint/brush"
	"github.com/gogpu/paint/composite"
	"github.com/gogpu/paint/geom"
	"github.com/gogpu/paint/volume"
)

// TestShaderCompilation compiles each embedded WGSL kernel to SPIR-V.
// A shader bug should fail here, not on the first dispatch.
func TestShaderCompilation(t *testing.T) {
	shaders := []struct {
		name   string
		source string
	}{
		{"stroke", strokeShaderSource},
		{"view", viewShaderSource},
		{"reproject", reprojectShaderSource},
	}

	for _, s := range shaders {
		t.Run(s.name, func(t *testing.T) {
			if s.source == "" {
				t.Fatal("shader source is empty")
			}
			spirvBytes, err := naga.Compile(s.source)
			if err != nil {
				errStr := err.Error()
				if strings.Contains(errStr, "not yet implemented") || strings.Contains(errStr, "not supported") {
					t.Skipf("Skipping: naga feature not yet implemented: %v", err)
				}
				t.Fatalf("failed to compile %s shader: %v", s.name, err)
			}
			if len(spirvBytes) < 4 {
				t.Fatal("SPIR-V too short")
			}
			magic := uint32(spirvBytes[0]) |
				uint32(spirvBytes[1])<<8 |
				uint32(spirvBytes[2])<<16 |
				uint32(spirvBytes[3])<<24
			if magic != 0x07230203 {
				t.Errorf("invalid SPIR-V magic: 0x%08X, want 0x07230203", magic)
			}

			words, err := compileShader(s.source)
			if err != nil {
				t.Fatalf("compileShader: %v", err)
			}
			if len(words) == 0 || words[0] != 0x07230203 {
				t.Errorf("word conversion lost the magic: got %#x", words[0])
			}
		})
	}
}

// TestParamStructSizes pins the Go mirrors to the WGSL struct layouts.
// A drifted field would silently scramble every kernel parameter.
func TestParamStructSizes(t *testing.T) {
	sizes := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"strokeParams", unsafe.Sizeof(strokeParams{}), 80},
		{"gpuSegment", unsafe.Sizeof(gpuSegment{}), 48},
		{"gpuStop", unsafe.Sizeof(gpuStop{}), 32},
		{"viewParams", unsafe.Sizeof(viewParams{}), 64},
		{"reprojectParams", unsafe.Sizeof(reprojectParams{}), 32},
	}
	for _, s := range sizes {
		if s.got != s.want {
			t.Errorf("%s size = %d, want %d", s.name, s.got, s.want)
		}
	}
	if off := unsafe.Offsetof(strokeParams{}.Color); off != 48 {
		t.Errorf("strokeParams.Color offset = %d, want 48 (vec4f alignment)", off)
	}
	if off := unsafe.Offsetof(reprojectParams{}.VolWidth); off != 16 {
		t.Errorf("reprojectParams.VolWidth offset = %d, want 16 (vec3u alignment)", off)
	}
}

func TestPackSegments(t *testing.T) {
	segments := []brush.Segment{
		{
			From:    geom.V2(1, 2),
			Tangent: geom.V2(1, 0),
			Normal:  geom.V2(0, 1),
			Length:  3,
			Stops: []brush.SegmentStop{
				{Distance: -1, HalfWidth: 1, U0: 0, U1: 0.1, Opacity: 0.5, Rate: 2},
				{Distance: 1.5, HalfWidth: 1.25, U0: 0.2, U1: 0.6, Opacity: 0.6, Rate: 2},
				{Distance: 4, HalfWidth: 1, U0: 0.4, U1: 1, Opacity: 0.7, Rate: 2},
			},
		},
		{
			From:    geom.V2(4, 2),
			Tangent: geom.V2(0, 1),
			Normal:  geom.V2(-1, 0),
			Length:  2,
			Stops: []brush.SegmentStop{
				{Distance: -1, HalfWidth: 1, U0: 0.6, U1: 0.8, Opacity: 0.7, Rate: 2},
				{Distance: 3, HalfWidth: 1, U0: 0.8, U1: 1, Opacity: 0.7, Rate: 2},
			},
		},
	}

	segs, stops := packSegments(segments)
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if len(stops) != 5 {
		t.Fatalf("got %d stops, want 5", len(stops))
	}
	if segs[0].StopFirst != 0 || segs[0].StopCount != 3 {
		t.Errorf("segment 0 window = (%d, %d), want (0, 3)", segs[0].StopFirst, segs[0].StopCount)
	}
	if segs[1].StopFirst != 3 || segs[1].StopCount != 2 {
		t.Errorf("segment 1 window = (%d, %d), want (3, 2)", segs[1].StopFirst, segs[1].StopCount)
	}
	if segs[0].Angle != 0 {
		t.Errorf("segment 0 angle = %v, want 0", segs[0].Angle)
	}
	if segs[1].Angle != 0.25 {
		t.Errorf("segment 1 angle = %v, want 0.25", segs[1].Angle)
	}
	if stops[3].U0 != 0.6 || stops[4].U1 != 1 {
		t.Errorf("second segment stops landed wrong: %+v %+v", stops[3], stops[4])
	}

	// A stopless segment still gets a non-empty stop buffer, since
	// zero-sized GPU buffers are invalid.
	segs, stops = packSegments([]brush.Segment{{Tangent: geom.V2(1, 0)}})
	if len(segs) != 1 || segs[0].StopCount != 0 {
		t.Fatalf("stopless segment packed as %+v", segs)
	}
	if len(stops) != 1 {
		t.Errorf("got %d padding stops, want 1", len(stops))
	}
}

func TestFloatBytes(t *testing.T) {
	if floatBytes(nil) != nil {
		t.Error("nil slice should view as nil")
	}
	s := []float32{1, 2, 3}
	b := floatBytes(s)
	if len(b) != 12 {
		t.Fatalf("len = %d, want 12", len(b))
	}
	// The view aliases the slice: writes through it land in the floats,
	// which is what readBack relies on.
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(42))
	if s[1] != 42 {
		t.Errorf("write through view: s[1] = %v, want 42", s[1])
	}
}

// TestGatherScatterFrame checks the row copies against a subimage whose
// bounds do not start at the origin, the case PixOffset exists for.
func TestGatherScatterFrame(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := range base.Pix {
		base.Pix[i] = uint8(i * 7)
	}
	sub, ok := base.SubImage(image.Rect(4, 4, 12, 12)).(*image.RGBA)
	if !ok {
		t.Fatal("SubImage is not *image.RGBA")
	}

	data := gatherFrame(sub)
	if len(data) != 8*8*4 {
		t.Fatalf("gathered %d bytes, want %d", len(data), 8*8*4)
	}
	off := base.PixOffset(4, 5)
	if data[1*8*4] != base.Pix[off] {
		t.Errorf("row 1 start = %d, want %d", data[1*8*4], base.Pix[off])
	}

	// Scatter a recognizable pattern back and confirm only the
	// subimage rectangle changed.
	before := append([]byte(nil), base.Pix...)
	for i := range data {
		data[i] = uint8(200 + i%16)
	}
	scatterFrame(sub, data)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			off := base.PixOffset(x, y)
			inside := x >= 4 && x < 12 && y >= 4 && y < 12
			changed := base.Pix[off] != before[off]
			if inside {
				want := data[((y-4)*8+(x-4))*4]
				if base.Pix[off] != want {
					t.Fatalf("pixel (%d,%d) = %d, want %d", x, y, base.Pix[off], want)
				}
			} else if changed {
				t.Fatalf("pixel (%d,%d) outside the rectangle changed", x, y)
			}
		}
	}
}

func TestSplitRuns(t *testing.T) {
	layers := []composite.Layer{
		{Width: 8, Height: 8},
		{Width: 8, Height: 8},
		{Width: 0, Height: 8}, // degenerate, dropped
		{Width: 4, Height: 4},
		{Width: 8, Height: 8},
	}
	runs := splitRuns(layers)
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	if len(runs[0].layers) != 2 || runs[0].width != 8 {
		t.Errorf("run 0 = %dx%d x%d", runs[0].width, runs[0].height, len(runs[0].layers))
	}
	if len(runs[1].layers) != 1 || runs[1].width != 4 {
		t.Errorf("run 1 = %dx%d x%d", runs[1].width, runs[1].height, len(runs[1].layers))
	}
	if len(runs[2].layers) != 1 || runs[2].width != 8 {
		t.Errorf("run 2 = %dx%d x%d", runs[2].width, runs[2].height, len(runs[2].layers))
	}

	// Deep same-extent stacks split at the texture array cap.
	deep := make([]composite.Layer, maxBlockLayers+44)
	for i := range deep {
		deep[i] = composite.Layer{Width: 2, Height: 2}
	}
	runs = splitRuns(deep)
	if len(runs) != 2 || len(runs[0].layers) != maxBlockLayers || len(runs[1].layers) != 44 {
		t.Fatalf("deep stack split into %d runs", len(runs))
	}

	m := tileMirror{blocks: []*tileBlock{{width: 8, height: 8, depth: 2}}}
	if !m.matches(splitRuns(layers[:2])) {
		t.Error("matches() rejected an identical shape")
	}
	if m.matches(splitRuns(layers)) {
		t.Error("matches() accepted a different shape")
	}
}

// TestFallbackWithoutGPU drives every operation on an accelerator that
// never opened a device. All of them must hand the work back.
func TestFallbackWithoutGPU(t *testing.T) {
	a := New()
	defer a.Close()

	if a.Name() != "wgpu" {
		t.Errorf("Name() = %q", a.Name())
	}
	if a.Ready() {
		t.Error("Ready() true without a device")
	}
	for _, op := range []paint.AcceleratedOp{paint.AccelStroke, paint.AccelView, paint.AccelReproject} {
		if a.CanAccelerate(op) {
			t.Errorf("CanAccelerate(%v) true without a device", op)
		}
	}

	layer := composite.NewLayer(4, 4, geom.IdentityScaleTranslation())
	action := &brush.Action{Segments: []brush.Segment{{Tangent: geom.V2(1, 0)}}}
	if err := a.CompositeStroke(layer, action); !errors.Is(err, paint.ErrFallbackToCPU) {
		t.Errorf("CompositeStroke err = %v, want fallback", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if err := a.RenderView(dst, []composite.Layer{layer}, geom.Identity()); !errors.Is(err, paint.ErrFallbackToCPU) {
		t.Errorf("RenderView err = %v, want fallback", err)
	}

	vol, err := volume.NewVolume(2, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	planes := []brush.Shape{{Width: 2, Height: 2, Values: make([]float32, 4)}}
	if err := a.LayersToVolume(planes, vol); !errors.Is(err, paint.ErrFallbackToCPU) {
		t.Errorf("LayersToVolume err = %v, want fallback", err)
	}
	if err := a.VolumeToLayers(vol, planes); !errors.Is(err, paint.ErrFallbackToCPU) {
		t.Errorf("VolumeToLayers err = %v, want fallback", err)
	}
}

// TestDegenerateInputsFallBack exercises the input guards that run
// before any device work. gpuReady is forced so the guards themselves
// are what answers.
func TestDegenerateInputsFallBack(t *testing.T) {
	a := New()
	a.gpuReady = true

	wantFallback := func(name string, err error) {
		t.Helper()
		if !errors.Is(err, paint.ErrFallbackToCPU) {
			t.Errorf("%s err = %v, want fallback", name, err)
		}
	}

	action := &brush.Action{Segments: []brush.Segment{{Tangent: geom.V2(1, 0)}}}
	wantFallback("zero-size layer",
		a.CompositeStroke(composite.Layer{}, action))
	wantFallback("no segments",
		a.CompositeStroke(composite.NewLayer(4, 4, geom.IdentityScaleTranslation()), &brush.Action{}))
	wantFallback("cumulative model without field",
		a.CompositeStroke(composite.NewLayer(4, 4, geom.IdentityScaleTranslation()),
			&brush.Action{Model: brush.ModelCumulativeTransmission2D, Segments: action.Segments}))

	wantFallback("empty layer stack",
		a.RenderView(image.NewRGBA(image.Rect(0, 0, 4, 4)), nil, geom.Identity()))
	wantFallback("empty destination",
		a.RenderView(image.NewRGBA(image.Rect(0, 0, 0, 0)), []composite.Layer{{Width: 4, Height: 4}}, geom.Identity()))

	vol, err := volume.NewVolume(4, 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	wantFallback("nil volume",
		a.LayersToVolume([]brush.Shape{{Width: 4, Height: 4, Values: make([]float32, 16)}}, nil))
	wantFallback("no planes", a.LayersToVolume(nil, vol))
	ragged := []brush.Shape{
		{Width: 4, Height: 4, Values: make([]float32, 16)},
		{Width: 2, Height: 4, Values: make([]float32, 8)},
	}
	wantFallback("ragged planes", a.LayersToVolume(ragged, vol))
	wantFallback("ragged planes back", a.VolumeToLayers(vol, ragged))
	short := []brush.Shape{{Width: 4, Height: 4, Values: make([]float32, 3)}}
	wantFallback("short plane values", a.LayersToVolume(short, vol))
}
