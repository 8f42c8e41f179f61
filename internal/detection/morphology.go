package detection

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
)

// Square structuring elements of size k have their anchor at k/2: a pixel's
// window covers offsets [-k/2, k-1-k/2] on both axes. bild's rank filters use
// that window for radius (k-1)/2 and extend the image edge, so positions
// outside the raster never change the result.

func radius(k int) float64 {
	return float64(k-1) / 2
}

// Erode keeps a pixel only if every in-raster pixel of its k x k window is set.
func Erode(m *Mask, k int) *Mask {
	if k <= 1 {
		return m.Clone()
	}
	return maskFromRGBA(effect.Erode(m.Gray(), radius(k)))
}

// Dilate sets a pixel if any in-raster pixel of its k x k window is set.
func Dilate(m *Mask, k int) *Mask {
	if k <= 1 {
		return m.Clone()
	}
	return maskFromRGBA(effect.Dilate(m.Gray(), radius(k)))
}

// Open is erosion followed by dilation. It removes specks smaller than the
// kernel.
func Open(m *Mask, k int) *Mask {
	if k <= 1 {
		return m.Clone()
	}
	return Dilate(Erode(m, k), k)
}

// Close is dilation followed by erosion. It fills gaps smaller than the
// kernel.
func Close(m *Mask, k int) *Mask {
	if k <= 1 {
		return m.Clone()
	}
	return Erode(Dilate(m, k), k)
}

// maskFromRGBA reads a filter result back; any non-zero red channel is
// foreground.
func maskFromRGBA(img *image.RGBA) *Mask {
	b := img.Rect
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		row := y * img.Stride
		for x := 0; x < m.Width; x++ {
			m.Pix[y*m.Width+x] = img.Pix[row+x*4] > 0
		}
	}
	return m
}
