package detection

import (
	"errors"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/parallel"

	"github.com/stemhealth/stem-measure/internal/imaging"
)

// ErrNoForegroundPixels is returned when a colour mask is empty after
// thresholding and morphology.
var ErrNoForegroundPixels = errors.New("no foreground pixels")

// HSVBounds is an inclusive box in the 0-180/0-255/0-255 HSV scale.
type HSVBounds struct {
	Lower imaging.HSVColor `json:"lower"`
	Upper imaging.HSVColor `json:"upper"`
}

// Contains reports whether c lies inside the box on all three axes.
func (b HSVBounds) Contains(c imaging.HSVColor) bool {
	return c.H >= b.Lower.H && c.H <= b.Upper.H &&
		c.S >= b.Lower.S && c.S <= b.Upper.S &&
		c.V >= b.Lower.V && c.V <= b.Upper.V
}

// Validate checks that every component is in range and lower <= upper.
func (b HSVBounds) Validate() error {
	check := func(axis string, lo, hi, limit int) error {
		if lo < 0 || hi > limit || lo > hi {
			return fmt.Errorf("%s bounds [%d,%d] outside 0-%d or inverted", axis, lo, hi, limit)
		}
		return nil
	}
	return errors.Join(
		check("hue", b.Lower.H, b.Upper.H, 180),
		check("saturation", b.Lower.S, b.Upper.S, 255),
		check("value", b.Lower.V, b.Upper.V, 255),
	)
}

// MorphOp selects the morphological clean-up applied after thresholding.
type MorphOp int

const (
	MorphNone MorphOp = iota
	MorphOpen
	MorphClose
)

// ParseMorphOp maps "open", "close" and "" / "none" to a MorphOp.
func ParseMorphOp(s string) (MorphOp, error) {
	switch s {
	case "", "none":
		return MorphNone, nil
	case "open":
		return MorphOpen, nil
	case "close":
		return MorphClose, nil
	}
	return MorphNone, fmt.Errorf("unknown morphology %q", s)
}

func (op MorphOp) String() string {
	switch op {
	case MorphOpen:
		return "open"
	case MorphClose:
		return "close"
	}
	return "none"
}

// MaskParams configures ExtractMask.
type MaskParams struct {
	Bounds     HSVBounds
	Op         MorphOp
	KernelSize int
}

// Threshold marks every pixel whose HSV value lies inside bounds.
// Rows are processed in parallel.
func Threshold(img image.Image, bounds HSVBounds) *Mask {
	src := clone.AsRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	m := NewMask(w, h)

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				pos := y*src.Stride + x*4
				c := imaging.ToHSV(src.Pix[pos], src.Pix[pos+1], src.Pix[pos+2])
				m.Pix[y*w+x] = bounds.Contains(c)
			}
		}
	})
	return m
}

// ExtractMask thresholds img against p.Bounds and applies the configured
// morphology. The mask has the image's dimensions.
//
// Returns ErrNoForegroundPixels when nothing survives. Applying the same
// params to the returned mask's source image always yields the same mask.
func ExtractMask(img image.Image, p MaskParams) (*Mask, error) {
	m := Threshold(img, p.Bounds)

	switch p.Op {
	case MorphOpen:
		m = Open(m, p.KernelSize)
	case MorphClose:
		m = Close(m, p.KernelSize)
	}

	if m.Empty() {
		return m, ErrNoForegroundPixels
	}
	return m, nil
}
