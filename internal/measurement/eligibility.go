package measurement

import (
	"fmt"
	"image"
	"sort"

	"github.com/stemhealth/stem-measure/internal/detection"
)

// EligibilityRegion is the band of the medium, right of the reference's
// bottom edge, in which a seedling's bottom-right corner must lie.
type EligibilityRegion struct {
	// Polygon is [refBottomLeft, refBottomRight, exit(refBottomRight), exit(refBottomLeft)].
	Polygon detection.Quadrilateral `json:"polygon"`
	mask    *detection.Mask
}

// ComputeEligibilityRegion builds the region from the reference quadrilateral
// and the medium's filled-quadrilateral mask.
//
// The reference's two lowest vertices (ties keep quad order) are split into
// bottom-left and bottom-right by X. From each, a rightward scan through the
// medium finds where the medium ends. The four points are rasterised on the
// medium mask's raster.
func ComputeEligibilityRegion(ref detection.Quadrilateral, medium *detection.Mask) (*EligibilityRegion, error) {
	bl, br := bottomCorners(ref)

	exitBR, err := ScanThroughRegionExit(medium, br, Right)
	if err != nil {
		return nil, fmt.Errorf("failed to find medium edge right of reference bottom-right %v: %w", br, err)
	}
	exitBL, err := ScanThroughRegionExit(medium, bl, Right)
	if err != nil {
		return nil, fmt.Errorf("failed to find medium edge right of reference bottom-left %v: %w", bl, err)
	}

	poly := detection.Quadrilateral{bl, br, exitBR, exitBL}
	return &EligibilityRegion{
		Polygon: poly,
		mask:    detection.FillPolygon(medium.Width, medium.Height, poly.Points()),
	}, nil
}

// NewEligibilityRegion wraps an existing mask, e.g. one loaded from disk.
// Colour images are reduced to a single channel first; any non-zero pixel
// counts as inside.
func NewEligibilityRegion(img image.Image) *EligibilityRegion {
	return &EligibilityRegion{mask: detection.MaskFromImage(img)}
}

// Contains reports whether p lies in the region. Points outside the raster
// are never contained.
func (e *EligibilityRegion) Contains(p image.Point) bool {
	return e.mask.At(p.X, p.Y)
}

// Mask returns the rasterised region.
func (e *EligibilityRegion) Mask() *detection.Mask {
	return e.mask
}

// bottomCorners picks the two vertices with the largest Y and orders them by X.
// On equal X the earlier vertex serves as both corners.
func bottomCorners(q detection.Quadrilateral) (bl, br image.Point) {
	pts := q.Points()
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Y > pts[j].Y })

	bl, br = pts[0], pts[0]
	if pts[1].X < bl.X {
		bl = pts[1]
	}
	if pts[1].X > br.X {
		br = pts[1]
	}
	return bl, br
}
