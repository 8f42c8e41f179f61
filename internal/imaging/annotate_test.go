package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"
)

func TestAnnotate_OutlinesBoxWithoutTouchingSource(t *testing.T) {
	white := color.RGBA{255, 255, 255, 255}
	src := createInMemoryImage(60, 60, white)

	out := Annotate(src, []Annotation{{X1: 10, Y1: 20, X2: 30, Y2: 50}}, DefaultBoxColor, false)

	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds: got %v, want %v", out.Bounds(), src.Bounds())
	}

	edges := []image.Point{{10, 20}, {30, 20}, {10, 50}, {30, 50}, {20, 20}, {10, 35}}
	for _, p := range edges {
		if got := out.NRGBAAt(p.X, p.Y); got != DefaultBoxColor {
			t.Errorf("outline pixel %v: got %v, want %v", p, got, DefaultBoxColor)
		}
	}

	inside := out.NRGBAAt(20, 35)
	if inside != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("interior pixel changed: %v", inside)
	}

	if src.RGBAAt(10, 20) != white {
		t.Error("Annotate modified the source image")
	}
}

func TestAnnotate_ClipsToImage(t *testing.T) {
	src := createInMemoryImage(20, 20, color.Black)
	// Must not panic for boxes leaving the frame
	out := Annotate(src, []Annotation{{X1: -5, Y1: -5, X2: 40, Y2: 40, Label: "3.25 cm"}}, DefaultBoxColor, true)
	if out.Bounds().Dx() != 20 {
		t.Errorf("width: got %d, want 20", out.Bounds().Dx())
	}
}

func TestAnnotate_DrawsLabel(t *testing.T) {
	src := createInMemoryImage(120, 80, color.White)
	withLabel := Annotate(src, []Annotation{{X1: 10, Y1: 40, X2: 30, Y2: 70, Label: "2.00 cm"}}, DefaultBoxColor, true)
	without := Annotate(src, []Annotation{{X1: 10, Y1: 40, X2: 30, Y2: 70, Label: "2.00 cm"}}, DefaultBoxColor, false)

	changed := 0
	for y := 20; y < 40; y++ {
		for x := 10; x < 70; x++ {
			if withLabel.NRGBAAt(x, y) != without.NRGBAAt(x, y) {
				changed++
			}
		}
	}
	if changed == 0 {
		t.Error("label area above the box is unchanged")
	}
}

func TestSaveImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotated.png")
	img := Annotate(createInMemoryImage(30, 30, color.White), nil, DefaultBoxColor, false)

	if err := SaveImage(img, path); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	cache := NewImageCache()
	loaded, err := cache.Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Bounds().Dx() != 30 || loaded.Bounds().Dy() != 30 {
		t.Errorf("reloaded size %v", loaded.Bounds())
	}
}

func TestSaveImage_UnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotated.unknown")
	if err := SaveImage(createInMemoryImage(5, 5, color.White), path); err == nil {
		t.Error("SaveImage should fail for unsupported extension")
	}
}

func TestEncodePNGBase64(t *testing.T) {
	img := createInMemoryImage(8, 4, color.Black)

	s, err := EncodePNGBase64(img)
	if err != nil {
		t.Fatalf("EncodePNGBase64 failed: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("not valid base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("not valid PNG: %v", err)
	}
	if decoded.Bounds().Dx() != 8 || decoded.Bounds().Dy() != 4 {
		t.Errorf("decoded size %v, want 8x4", decoded.Bounds())
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#0804F8", color.NRGBA{8, 4, 248, 255}, false},
		{"FF000080", color.NRGBA{255, 0, 0, 128}, false},
		{"", color.NRGBA{}, true},
		{"#123", color.NRGBA{}, true},
		{"#GGGGGG", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err: got %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSharpen(t *testing.T) {
	// A vertical step edge: sharpening pushes the dark side darker next to the edge
	src := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			v := uint8(100)
			if x >= 10 {
				v = 200
			}
			src.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}

	out := Sharpen(src, 1.0, 2.5)
	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds changed: %v", out.Bounds())
	}

	darkSide := out.RGBAAt(9, 5).R
	brightSide := out.RGBAAt(10, 5).R
	if darkSide >= 100 {
		t.Errorf("dark side of edge not darkened: %d", darkSide)
	}
	if brightSide <= 200 {
		t.Errorf("bright side of edge not brightened: %d", brightSide)
	}
	if src.RGBAAt(9, 5).R != 100 {
		t.Error("Sharpen modified the source image")
	}
}
