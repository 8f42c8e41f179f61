package measurement

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stemhealth/stem-measure/internal/config"
	"github.com/stemhealth/stem-measure/internal/detection"
)

var (
	red   = color.RGBA{220, 20, 20, 255}
	green = color.RGBA{60, 160, 60, 255}
)

// createSceneImage draws a 200x360 tray photo: a red reference block at
// x 40..50, y 100..300 and a green medium at x 60..180, y 250..340.
func createSceneImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 200, 360))
	for y := 0; y < 360; y++ {
		for x := 0; x < 200; x++ {
			switch {
			case x >= 40 && x <= 50 && y >= 100 && y <= 300:
				img.Set(x, y, red)
			case x >= 60 && x <= 180 && y >= 250 && y <= 340:
				img.Set(x, y, green)
			default:
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}

// testConfig is the default configuration with the reference column band
// moved onto the synthetic scene.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Reference.Columns = &config.ColumnRange{Min: 0, Max: 100}
	cfg.Workers = 2
	return cfg
}

func testParams(t *testing.T) (ObjectParams, ObjectParams) {
	t.Helper()
	cfg := testConfig()
	ref, err := NewObjectParams(cfg.Reference, cfg.Simplify)
	if err != nil {
		t.Fatalf("reference params: %v", err)
	}
	med, err := NewObjectParams(cfg.Medium, cfg.Simplify)
	if err != nil {
		t.Fatalf("medium params: %v", err)
	}
	return ref, med
}

// sceneCalibration calibrates the synthetic scene
func sceneCalibration(t *testing.T) *CalibrationContext {
	t.Helper()
	refParams, medParams := testParams(t)
	img := createSceneImage()

	ref, err := CalibrateReference(img, refParams)
	if err != nil {
		t.Fatalf("CalibrateReference failed: %v", err)
	}
	med, err := ExtractMedium(img, medParams)
	if err != nil {
		t.Fatalf("ExtractMedium failed: %v", err)
	}
	cal, err := NewCalibrationContext(ref, med, testConfig().Height)
	if err != nil {
		t.Fatalf("NewCalibrationContext failed: %v", err)
	}
	return cal
}

func TestNewObjectParams(t *testing.T) {
	cfg := config.Default()

	ref, err := NewObjectParams(cfg.Reference, cfg.Simplify)
	if err != nil {
		t.Fatalf("NewObjectParams failed: %v", err)
	}
	if ref.Mask.Op != detection.MorphClose || ref.Mask.KernelSize != 3 {
		t.Errorf("reference morphology: got %v k=%d", ref.Mask.Op, ref.Mask.KernelSize)
	}
	if ref.Simplify.Columns == nil || *ref.Simplify.Columns != (detection.ColumnWindow{Min: 420, Max: 565}) {
		t.Errorf("reference columns: got %+v", ref.Simplify.Columns)
	}
	if ref.Mask.Bounds.Upper.H != 10 || ref.Mask.Bounds.Lower.S != 100 {
		t.Errorf("reference bounds: got %+v", ref.Mask.Bounds)
	}

	med, err := NewObjectParams(cfg.Medium, cfg.Simplify)
	if err != nil {
		t.Fatalf("NewObjectParams failed: %v", err)
	}
	if med.Mask.Op != detection.MorphOpen || med.Simplify.Columns != nil {
		t.Errorf("medium: got op %v columns %+v", med.Mask.Op, med.Simplify.Columns)
	}

	bad := cfg.Medium
	bad.Morphology = "smudge"
	if _, err := NewObjectParams(bad, cfg.Simplify); err == nil {
		t.Error("unknown morphology should fail")
	}
}

func TestCalibrateReference(t *testing.T) {
	refParams, _ := testParams(t)

	ref, err := CalibrateReference(createSceneImage(), refParams)
	if err != nil {
		t.Fatalf("CalibrateReference failed: %v", err)
	}
	want := detection.Quadrilateral{{40, 100}, {50, 100}, {50, 300}, {40, 300}}
	if ref.Quad() != want {
		t.Errorf("Quad: got %v, want %v", ref.Quad(), want)
	}
	if ref.Filled().Count() != 11*201 {
		t.Errorf("filled reference: got %d pixels, want %d", ref.Filled().Count(), 11*201)
	}
}

func TestCalibrateReference_OutsideColumns(t *testing.T) {
	cfg := config.Default()
	refParams, err := NewObjectParams(cfg.Reference, cfg.Simplify)
	if err != nil {
		t.Fatalf("NewObjectParams failed: %v", err)
	}

	// the default column band starts at x=420, beyond the 200 px scene
	_, err = CalibrateReference(createSceneImage(), refParams)
	if !errors.Is(err, detection.ErrNoRegionFound) {
		t.Errorf("err: got %v, want ErrNoRegionFound", err)
	}
}

func TestExtractMedium_AllBackground(t *testing.T) {
	_, medParams := testParams(t)
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))

	_, err := ExtractMedium(img, medParams)
	if !errors.Is(err, detection.ErrNoRegionFound) {
		t.Errorf("err: got %v, want ErrNoRegionFound", err)
	}
}

func TestCalibrationContext_Eligible(t *testing.T) {
	cal := sceneCalibration(t)

	tests := []struct {
		name   string
		box    BoundingBox
		ok     bool
		reason string
	}{
		{"upright at the reference foot", BoundingBox{X1: 10, Y1: 220, X2: 60, Y2: 300}, true, ""},
		{"corner below the band", BoundingBox{X1: 10, Y1: 220, X2: 60, Y2: 305}, false, ReasonOutsideRegion},
		{"corner left of the reference", BoundingBox{X1: 0, Y1: 200, X2: 20, Y2: 300}, false, ReasonOutsideRegion},
		{"wider than tall", BoundingBox{X1: 0, Y1: 280, X2: 60, Y2: 300}, false, ReasonNotUpright},
		{"square", BoundingBox{X1: 20, Y1: 260, X2: 60, Y2: 300}, false, ReasonNotUpright},
		{"inverted corners", BoundingBox{X1: 100, Y1: 320, X2: 60, Y2: 300}, false, ReasonInvalidBox},
		{"zero height, inverted width", BoundingBox{X1: 100, Y1: 300, X2: 60, Y2: 300}, false, ReasonInvalidBox},
		{"zero width", BoundingBox{X1: 60, Y1: 220, X2: 60, Y2: 300}, false, ReasonInvalidBox},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := cal.Eligible(tt.box)
			if ok != tt.ok || reason != tt.reason {
				t.Errorf("got (%v, %q), want (%v, %q)", ok, reason, tt.ok, tt.reason)
			}
		})
	}
}

func TestCalibrationContext_RoundTrip(t *testing.T) {
	cal := sceneCalibration(t)

	r, s := cal.MeasureBox(BoundingBox{X1: 10, Y1: 220, X2: 60, Y2: 300, Label: "seedling", Confidence: 0.9})
	if s != nil {
		t.Fatalf("box skipped: %s", s.Reason)
	}
	if r.HeightCM != 2.00 {
		t.Errorf("HeightCM: got %v, want 2.00", r.HeightCM)
	}
	if r.Box.Label != "seedling" || r.Box.Confidence != 0.9 {
		t.Errorf("box metadata not carried: %+v", r.Box)
	}
}

func TestCalibrationContext_MeasureBoxes(t *testing.T) {
	cal := sceneCalibration(t)

	boxes := []BoundingBox{
		{X1: 10, Y1: 220, X2: 60, Y2: 300},
		{X1: 0, Y1: 280, X2: 60, Y2: 300},
		{X1: 70, Y1: 260, X2: 100, Y2: 300},
	}
	records, skipped := cal.MeasureBoxes(boxes)

	if len(records) != 2 || len(skipped) != 1 {
		t.Fatalf("got %d records and %d skipped, want 2 and 1", len(records), len(skipped))
	}
	if records[0].Box != boxes[0] || records[1].Box != boxes[2] {
		t.Error("records out of input order")
	}
	if records[1].HeightCM != 1.00 {
		t.Errorf("40 px box: got %v, want 1.00", records[1].HeightCM)
	}
	if skipped[0].Reason != ReasonNotUpright {
		t.Errorf("skip reason: got %q", skipped[0].Reason)
	}
	for _, r := range records {
		if r.HeightCM <= 0 {
			t.Error("zero height reported instead of a skip")
		}
	}
}

func TestCalibrationContext_MeasureBox_InvalidNeverMeasured(t *testing.T) {
	cal := sceneCalibration(t)

	r, s := cal.MeasureBox(BoundingBox{X1: 100, Y1: 320, X2: 60, Y2: 300})
	if r != nil {
		t.Fatalf("inverted box measured: %+v", r)
	}
	if s.Reason != ReasonInvalidBox {
		t.Errorf("reason: got %q, want %q", s.Reason, ReasonInvalidBox)
	}
}
