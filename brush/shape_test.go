package brush

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/chewxy/math32"
)

func TestUniformSamples(t *testing.T) {
	tests := []struct {
		size int
		want []float32
	}{
		{1, []float32{0}},
		{2, []float32{0, 1}},
		{5, []float32{0, 0.25, 0.5, 0.75, 1}},
	}
	for _, tt := range tests {
		got := UniformSamples(tt.size)
		if len(got) != len(tt.want) {
			t.Fatalf("UniformSamples(%d) = %v, want %v", tt.size, got, tt.want)
		}
		for i := range got {
			if !close32(got[i], tt.want[i], 1e-6) {
				t.Errorf("UniformSamples(%d)[%d] = %v, want %v", tt.size, i, got[i], tt.want[i])
			}
		}
	}
}

func TestCenteredUniformSamples(t *testing.T) {
	got := CenteredUniformSamples(3)
	want := []float32{-1, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("CenteredUniformSamples(3) = %v, want %v", got, want)
		}
	}
}

func TestGenerateShape(t *testing.T) {
	s := GenerateShape(5, 1)
	if s.Width != 5 || s.Height != 5 {
		t.Fatalf("shape is %dx%d, want 5x5", s.Width, s.Height)
	}

	// Unit peak at the center, zero at the edge midpoints and corners.
	if got := s.At(2, 2); got != 1 {
		t.Errorf("center = %v, want 1", got)
	}
	if got := s.At(4, 2); got != 0 {
		t.Errorf("right edge midpoint = %v, want 0", got)
	}
	if got := s.At(0, 0); got != 0 {
		t.Errorf("corner = %v, want 0", got)
	}
	// Halfway out along an axis: 1 - 0.5^2.
	if got := s.At(3, 2); !close32(got, 0.75, 1e-6) {
		t.Errorf("half radius = %v, want 0.75", got)
	}
}

func TestGenerateShape_PowerSharpensRim(t *testing.T) {
	soft := GenerateShape(9, 1)
	flat := GenerateShape(9, 4)

	// Away from the center a higher power keeps more density.
	x, y := 6, 4
	if soft.At(x, y) >= flat.At(x, y) {
		t.Errorf("power 4 should hold density at (%d,%d): soft %v, flat %v",
			x, y, soft.At(x, y), flat.At(x, y))
	}
}

func TestShapeAt_OutsideIsZero(t *testing.T) {
	s := Shape{Width: 2, Height: 2, Values: []float32{1, 1, 1, 1}}
	for _, xy := range [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 2}} {
		if got := s.At(xy[0], xy[1]); got != 0 {
			t.Errorf("At(%d, %d) = %v, want 0", xy[0], xy[1], got)
		}
	}
}

func TestRotationSize(t *testing.T) {
	tests := []struct {
		w, h, want int
	}{
		{64, 64, 91},
		{10, 4, 15},
		{1, 1, 2},
	}
	for _, tt := range tests {
		if got := RotationSize(tt.w, tt.h); got != tt.want {
			t.Errorf("RotationSize(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestRotated_ZeroAngleIdentity(t *testing.T) {
	src := GenerateShape(8, 1)
	got := src.Rotated(0, 8)
	for i, v := range got.Values {
		if !close32(v, src.Values[i], 1e-6) {
			t.Fatalf("value %d = %v, want %v", i, v, src.Values[i])
		}
	}
}

func TestRotated_QuarterTurn(t *testing.T) {
	// A single bright texel right of center must move to below center
	// after a quarter turn.
	src := Shape{Width: 3, Height: 3, Values: make([]float32, 9)}
	src.Values[1*3+2] = 1

	got := src.Rotated(math32.Pi/2, 3)
	if v := got.At(1, 2); !close32(v, 1, 1e-5) {
		t.Errorf("rotated texel = %v, want 1", v)
	}
	if v := got.At(2, 1); !close32(v, 0, 1e-5) {
		t.Errorf("original texel = %v, want 0", v)
	}
}

func TestRotated_FullTurn(t *testing.T) {
	src := GenerateShape(9, 2)
	got := src.Rotated(2*math32.Pi, 9)
	for i, v := range got.Values {
		if !close32(v, src.Values[i], 1e-4) {
			t.Fatalf("value %d = %v, want %v", i, v, src.Values[i])
		}
	}
}

func TestRotated_GrownCanvasKeepsMass(t *testing.T) {
	src := GenerateShape(16, 1)
	size := RotationSize(src.Width, src.Height)

	var srcSum float32
	for _, v := range src.Values {
		srcSum += v
	}
	for _, angle := range []float32{0, 0.4, math32.Pi / 3, 2.1} {
		rot := src.Rotated(angle, size)
		var sum float32
		for _, v := range rot.Values {
			sum += v
		}
		// Resampling smears but must not create or destroy much density.
		if sum < srcSum*0.95 || sum > srcSum*1.05 {
			t.Errorf("angle %v: mass %v, want about %v", angle, sum, srcSum)
		}
	}
}

func TestDecodeShape(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	img.SetGray(0, 0, color.Gray{Y: 0})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	s, err := DecodeShape(&buf, 0)
	if err != nil {
		t.Fatalf("DecodeShape: %v", err)
	}
	if s.Width != 4 || s.Height != 4 {
		t.Fatalf("shape is %dx%d, want 4x4", s.Width, s.Height)
	}
	if got := s.At(0, 0); got != 0 {
		t.Errorf("black texel = %v, want 0", got)
	}
	if got := s.At(3, 3); !close32(got, 1, 1e-4) {
		t.Errorf("white texel = %v, want 1", got)
	}
}

func TestDecodeShape_Resample(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 10; x++ {
			img.SetGray(x, y, color.Gray{Y: 128})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	s, err := DecodeShape(&buf, 8)
	if err != nil {
		t.Fatalf("DecodeShape: %v", err)
	}
	if s.Width != 8 || s.Height != 8 {
		t.Fatalf("shape is %dx%d, want 8x8", s.Width, s.Height)
	}
	if got := s.At(4, 4); !close32(got, float32(0x8080)/0xffff, 1e-3) {
		t.Errorf("gray texel = %v, want about 0.502", got)
	}
}

func TestDecodeShape_BadData(t *testing.T) {
	if _, err := DecodeShape(bytes.NewReader([]byte("not an image")), 0); err == nil {
		t.Fatal("DecodeShape accepted garbage input")
	}
}
