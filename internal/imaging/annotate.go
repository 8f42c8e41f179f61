package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultBoxColor is the outline colour of measured boxes.
var DefaultBoxColor = color.NRGBA{R: 8, G: 4, B: 248, A: 255}

// Annotation is one rectangle to outline, with an optional text label drawn
// just above its top-left corner.
type Annotation struct {
	X1, Y1, X2, Y2 int
	Label          string
}

// Annotate returns a copy of img with every annotation outlined in boxColor.
//
// The source image is never modified. Rectangles are 1 pixel wide and clipped to
// the image; labels are drawn with the 7x13 basic font on a dark backing strip
// so they stay legible over both sponge and background. Labels that would leave
// the top edge are drawn inside the box instead.
func Annotate(img image.Image, annotations []Annotation, boxColor color.Color, showLabels bool) *image.NRGBA {
	dst := imaging.Clone(img)

	for _, a := range annotations {
		drawRect(dst, a.X1, a.Y1, a.X2, a.Y2, boxColor)
		if showLabels && a.Label != "" {
			drawLabel(dst, a.X1, a.Y1, a.Label, boxColor)
		}
	}
	return dst
}

// SaveImage writes img to path; the format follows the file extension.
func SaveImage(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}

// EncodePNGBase64 encodes img as PNG and returns it base64-encoded, the form
// images travel in over the tool protocol.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ParseHexColor parses a hex color string like "#FF0000" or "#FF000080".
func ParseHexColor(hex string) (color.NRGBA, error) {
	if len(hex) == 0 {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

func drawRect(img *image.NRGBA, x1, y1, x2, y2 int, c color.Color) {
	for x := x1; x <= x2; x++ {
		setClipped(img, x, y1, c)
		setClipped(img, x, y2, c)
	}
	for y := y1; y <= y2; y++ {
		setClipped(img, x1, y, c)
		setClipped(img, x2, y, c)
	}
}

func setClipped(img *image.NRGBA, x, y int, c color.Color) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}

func drawLabel(img *image.NRGBA, x, y int, text string, fg color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Height

	top := y - height - 1
	if top < img.Bounds().Min.Y {
		top = y + 1
	}

	bg := color.NRGBA{R: 0, G: 0, B: 0, A: 160}
	for py := top; py < top+height; py++ {
		for px := x; px < x+width; px++ {
			setClipped(img, px, py, bg)
		}
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, top+face.Ascent),
	}
	d.DrawString(text)
}
