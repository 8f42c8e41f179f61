package measurement

import (
	"fmt"
	"image"
)

// BoundingBox is a detector output in pixel coordinates. X2/Y2 is the
// bottom-right corner. Label and Confidence are carried through untouched.
type BoundingBox struct {
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Width is X2 - X1.
func (b BoundingBox) Width() int { return b.X2 - b.X1 }

// Height is Y2 - Y1.
func (b BoundingBox) Height() int { return b.Y2 - b.Y1 }

// Valid reports whether the box has positive width and height.
func (b BoundingBox) Valid() bool { return b.X2 > b.X1 && b.Y2 > b.Y1 }

// BottomRight is (X2, Y2).
func (b BoundingBox) BottomRight() image.Point { return image.Pt(b.X2, b.Y2) }

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.X1, b.Y1, b.X2, b.Y2)
}

// Record is one measured box.
type Record struct {
	HeightCM float64     `json:"height_cm"`
	Box      BoundingBox `json:"box"`
}

// Skip reasons.
const (
	ReasonOutsideRegion = "outside eligibility region"
	ReasonNotUpright    = "not taller than wide"
	ReasonInvalidBox    = "invalid box"
)

// Skipped is a box that produced no measurement and why.
type Skipped struct {
	Box    BoundingBox `json:"box"`
	Reason string      `json:"reason"`
}
