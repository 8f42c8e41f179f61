package measurement

import (
	"errors"
	"fmt"
	"image"

	"github.com/stemhealth/stem-measure/internal/config"
	"github.com/stemhealth/stem-measure/internal/detection"
)

// ObjectParams is everything needed to segment one physical object.
type ObjectParams struct {
	Mask     detection.MaskParams
	Simplify detection.SimplifyOptions
}

// NewObjectParams translates an object section of the configuration.
func NewObjectParams(obj config.ObjectConfig, s config.SimplifyConfig) (ObjectParams, error) {
	op, err := detection.ParseMorphOp(obj.Morphology)
	if err != nil {
		return ObjectParams{}, err
	}
	policy, err := detection.ParseQuadPolicy(s.Policy)
	if err != nil {
		return ObjectParams{}, err
	}

	p := ObjectParams{
		Mask: detection.MaskParams{
			Bounds:     obj.Color.Bounds(),
			Op:         op,
			KernelSize: obj.KernelSize,
		},
		Simplify: detection.SimplifyOptions{
			Tolerance:     s.Tolerance,
			Policy:        policy,
			MaxWidenSteps: s.MaxWidenSteps,
		},
	}
	if obj.Columns != nil {
		p.Simplify.Columns = &detection.ColumnWindow{Min: obj.Columns.Min, Max: obj.Columns.Max}
	}
	return p, nil
}

// ObjectCalibration is a segmented object: the thresholded mask and its
// simplified shape.
type ObjectCalibration struct {
	Mask  *detection.Mask
	Shape *detection.Shape
}

// Quad returns the object's quadrilateral.
func (o *ObjectCalibration) Quad() detection.Quadrilateral {
	return o.Shape.Quad
}

// Filled returns the quadrilateral rasterised as a mask.
func (o *ObjectCalibration) Filled() *detection.Mask {
	return o.Shape.Filled
}

// CalibrateReference segments the reference object in img.
func CalibrateReference(img image.Image, p ObjectParams) (*ObjectCalibration, error) {
	return calibrate("reference", img, p)
}

// ExtractMedium segments the growing medium in img.
func ExtractMedium(img image.Image, p ObjectParams) (*ObjectCalibration, error) {
	return calibrate("medium", img, p)
}

func calibrate(name string, img image.Image, p ObjectParams) (*ObjectCalibration, error) {
	m, shape, err := detection.ExtractRegion(img, p.Mask, p.Simplify)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", name, err)
	}
	return &ObjectCalibration{Mask: m, Shape: shape}, nil
}

// CalibrationContext is the per-batch geometry shared by every measurement.
// It is never modified after NewCalibrationContext returns and may be used
// from many goroutines.
type CalibrationContext struct {
	Reference   *ObjectCalibration
	Medium      *ObjectCalibration
	Eligibility *EligibilityRegion
	Height      HeightCalculator
}

// NewCalibrationContext derives the eligibility region and the height
// calculator from a reference and a medium calibration.
func NewCalibrationContext(ref, medium *ObjectCalibration, h config.HeightConfig) (*CalibrationContext, error) {
	elig, err := ComputeEligibilityRegion(ref.Quad(), medium.Filled())
	if err != nil {
		return nil, fmt.Errorf("failed to compute eligibility region: %w", err)
	}
	return &CalibrationContext{
		Reference:   ref,
		Medium:      medium,
		Eligibility: elig,
		Height: HeightCalculator{
			Reference:     ref.Filled(),
			ReferenceCM:   h.ReferenceCM,
			MinSpanPixels: h.MinSpanPixels,
		},
	}, nil
}

// ErrRasterMismatch is returned for an entry image whose size differs from
// the raster the batch was calibrated on.
var ErrRasterMismatch = errors.New("image size differs from calibration raster")

// Raster is the size of the image the batch was calibrated on.
func (c *CalibrationContext) Raster() image.Point {
	m := c.Eligibility.Mask()
	return image.Pt(m.Width, m.Height)
}

// CheckRaster returns ErrRasterMismatch unless img has the calibration size.
func (c *CalibrationContext) CheckRaster(img image.Image) error {
	want := c.Raster()
	if got := img.Bounds().Size(); got != want {
		return fmt.Errorf("%w: got %dx%d, calibrated on %dx%d", ErrRasterMismatch, got.X, got.Y, want.X, want.Y)
	}
	return nil
}

// Eligible applies the selection rule: the box has positive extent, its
// bottom-right corner lies in the eligibility region and it is taller than
// wide. A non-empty reason is returned for rejected boxes.
func (c *CalibrationContext) Eligible(box BoundingBox) (bool, string) {
	if !box.Valid() {
		return false, ReasonInvalidBox
	}
	if !c.Eligibility.Contains(box.BottomRight()) {
		return false, ReasonOutsideRegion
	}
	if box.Height() <= box.Width() {
		return false, ReasonNotUpright
	}
	return true, ""
}

// MeasureBox selects and measures one box. Rejected boxes and calculation
// failures both come back as a Skipped record.
func (c *CalibrationContext) MeasureBox(box BoundingBox) (*Record, *Skipped) {
	if ok, reason := c.Eligible(box); !ok {
		return nil, &Skipped{Box: box, Reason: reason}
	}
	h, err := c.Height.Measure(box)
	if err != nil {
		return nil, &Skipped{Box: box, Reason: err.Error()}
	}
	return &Record{HeightCM: h, Box: box}, nil
}

// MeasureBoxes runs MeasureBox over boxes, keeping input order.
func (c *CalibrationContext) MeasureBoxes(boxes []BoundingBox) ([]Record, []Skipped) {
	records := make([]Record, 0, len(boxes))
	skipped := make([]Skipped, 0)
	for _, b := range boxes {
		r, s := c.MeasureBox(b)
		if r != nil {
			records = append(records, *r)
		} else {
			skipped = append(skipped, *s)
		}
	}
	return records, skipped
}
