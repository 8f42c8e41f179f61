package measurement

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/stemhealth/stem-measure/internal/detection"
)

// ErrDegenerateCalibration is returned when the reference span is too short
// to derive a scale from.
var ErrDegenerateCalibration = errors.New("degenerate calibration")

// Scale is the pixel-to-centimetre factor found for one box.
type Scale struct {
	// LeftEnd is the first reference pixel left of the box's bottom-right corner.
	LeftEnd image.Point `json:"left_end"`
	// Top is the topmost reference pixel in LeftEnd's column.
	Top image.Point `json:"top"`
	// SpanPixels is LeftEnd.Y - Top.Y.
	SpanPixels int `json:"span_pixels"`
	// CMPerPixel is ReferenceCM / SpanPixels.
	CMPerPixel float64 `json:"cm_per_pixel"`
}

// HeightCalculator converts box heights to centimetres against the
// simplified reference mask.
type HeightCalculator struct {
	Reference     *detection.Mask
	ReferenceCM   float64
	MinSpanPixels int
}

// ScaleAt derives the scale for a box whose bottom-right corner is p.
//
// The reference is found by scanning left from p; its top edge by scanning
// down from row 0 in that column. The vertical distance between the two is
// the reference height in pixels at the box's depth.
func (h HeightCalculator) ScaleAt(p image.Point) (Scale, error) {
	leftEnd, err := ScanToFirstBoundary(h.Reference, p, Left)
	if err != nil {
		return Scale{}, fmt.Errorf("failed to find reference left of %v: %w", p, err)
	}
	top, err := ScanToFirstBoundary(h.Reference, image.Pt(leftEnd.X, 0), Down)
	if err != nil {
		return Scale{}, fmt.Errorf("failed to find reference top in column %d: %w", leftEnd.X, err)
	}

	span := leftEnd.Y - top.Y
	minSpan := max(h.MinSpanPixels, 1)
	if span < minSpan {
		return Scale{}, fmt.Errorf("%w: span %d px at column %d, need at least %d", ErrDegenerateCalibration, span, leftEnd.X, minSpan)
	}

	return Scale{
		LeftEnd:    leftEnd,
		Top:        top,
		SpanPixels: span,
		CMPerPixel: h.ReferenceCM / float64(span),
	}, nil
}

// Measure returns the box height in centimetres, rounded to 2 decimals.
func (h HeightCalculator) Measure(box BoundingBox) (float64, error) {
	s, err := h.ScaleAt(box.BottomRight())
	if err != nil {
		return 0, err
	}
	return Round2(float64(box.Height()) * s.CMPerPixel), nil
}

// Round2 rounds to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
