package imaging

import (
	"fmt"
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSVColor represents a color in the 8-bit HSV convention used by the
// segmentation bounds:
//   - H: 0-180 (degrees halved, 0=red, 60=green, 120=blue)
//   - S: 0-255
//   - V: 0-255
//
// This is the same scale the reference and medium colour ranges are written in,
// so a sampled pixel can be compared with a configured bound directly.
type HSVColor struct {
	H int `json:"h"`
	S int `json:"s"`
	V int `json:"v"`
}

// ColorResult contains a color value in multiple representations.
type ColorResult struct {
	Hex string   `json:"hex"` // Hex format "#RRGGBB"
	RGB RGBColor `json:"rgb"` // RGB components
	HSV HSVColor `json:"hsv"` // HSV in the 0-180/0-255/0-255 scale
}

// ToHSV converts 8-bit RGB components to HSVColor.
//
// The hue, saturation and value come from go-colorful and are rescaled:
// hue in degrees is halved and rounded, saturation and value are multiplied by
// 255 and rounded. Grey pixels (max == min) have H = 0 and S = 0.
func ToHSV(r, g, b uint8) HSVColor {
	c := colorful.Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}
	h, s, v := c.Hsv()
	return HSVColor{
		H: int(math.Round(h / 2)),
		S: int(math.Round(s * 255)),
		V: int(math.Round(v * 255)),
	}
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// Coordinates are 0-based with origin at top-left. Returns an error if (x, y)
// lies outside the image bounds.
//
// This is the tuning aid for the segmentation bounds: sampling a few pixels on
// the reference object and on the medium shows which HSV box separates them.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	bounds := img.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	r, g, b, _ := img.At(x, y).RGBA()
	// Convert from 16-bit to 8-bit
	r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)

	return &ColorResult{
		Hex: fmt.Sprintf("#%02X%02X%02X", r8, g8, b8),
		RGB: RGBColor{R: r8, G: g8, B: b8},
		HSV: ToHSV(r8, g8, b8),
	}, nil
}
