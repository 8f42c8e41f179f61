package detection

import (
	"image"
	"image/color"
)

// Mask is a binary raster: every pixel is either foreground (true) or
// background (false). There are no intermediate intensities.
//
// Pixels are stored row-major; the origin is (0,0) at the top-left. Reads
// outside the raster return background and writes outside it are ignored, so
// scans and rasterisation never need their own bounds checks.
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewMask returns an all-background mask of the given size.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

// Bounds returns the raster rectangle (0,0)-(Width,Height).
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// In reports whether (x, y) lies inside the raster.
func (m *Mask) In(x, y int) bool {
	return x >= 0 && x < m.Width && y >= 0 && y < m.Height
}

// At reports whether (x, y) is foreground. Out-of-raster points are background.
func (m *Mask) At(x, y int) bool {
	if !m.In(x, y) {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set marks (x, y) as foreground or background. Out-of-raster writes are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if m.In(x, y) {
		m.Pix[y*m.Width+x] = v
	}
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Empty reports whether the mask has no foreground pixel.
func (m *Mask) Empty() bool {
	for _, v := range m.Pix {
		if v {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of m.
func (m *Mask) Clone() *Mask {
	c := &Mask{Width: m.Width, Height: m.Height, Pix: make([]bool, len(m.Pix))}
	copy(c.Pix, m.Pix)
	return c
}

// Equal reports whether both masks have the same size and pixels.
func (m *Mask) Equal(o *Mask) bool {
	if m.Width != o.Width || m.Height != o.Height {
		return false
	}
	for i := range m.Pix {
		if m.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// RestrictColumns returns a copy of m that keeps only columns in [minX, maxX).
// The range is clipped to the raster.
func (m *Mask) RestrictColumns(minX, maxX int) *Mask {
	out := NewMask(m.Width, m.Height)
	if minX < 0 {
		minX = 0
	}
	if maxX > m.Width {
		maxX = m.Width
	}
	if minX >= maxX {
		return out
	}
	for y := 0; y < m.Height; y++ {
		row := y * m.Width
		copy(out.Pix[row+minX:row+maxX], m.Pix[row+minX:row+maxX])
	}
	return out
}

// Gray renders the mask as an 8-bit image with foreground 255 and background 0.
func (m *Mask) Gray() *image.Gray {
	g := image.NewGray(m.Bounds())
	for i, v := range m.Pix {
		if v {
			g.Pix[i] = 255
		}
	}
	return g
}

// MaskFromImage reduces any image to a mask. Multi-channel images are first
// converted to grayscale; every non-zero gray value is foreground.
func MaskFromImage(img image.Image) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			m.Pix[y*m.Width+x] = g.Y > 0
		}
	}
	return m
}
