package detection

import (
	"errors"
	"image"
	"image/color"
	"math"
	"reflect"
	"testing"
)

var hexagon = []image.Point{{0, 10}, {5, 0}, {15, 0}, {20, 10}, {15, 20}, {5, 20}}

func TestArcLength(t *testing.T) {
	square := []image.Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}}

	if got := ArcLength(square, true); got != 16 {
		t.Errorf("closed: got %g, want 16", got)
	}
	if got := ArcLength(square, false); got != 12 {
		t.Errorf("open: got %g, want 12", got)
	}
	if got := ArcLength(square[:1], true); got != 0 {
		t.Errorf("single point: got %g, want 0", got)
	}
}

func TestApproxPolyDP_Closed(t *testing.T) {
	pts := []image.Point{{0, 0}, {2, 0}, {4, 0}, {4, 2}, {4, 4}, {2, 4}, {0, 4}, {0, 2}}

	got := ApproxPolyDP(pts, 0.5, true)
	want := []image.Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestApproxPolyDP_Open(t *testing.T) {
	pts := []image.Point{{0, 0}, {5, 1}, {10, 0}, {15, 8}}

	got := ApproxPolyDP(pts, 2, false)
	want := []image.Point{{0, 0}, {10, 0}, {15, 8}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestApproxPolyDP_KeepsFarPoints(t *testing.T) {
	if got := ApproxPolyDP(hexagon, 0.5, true); len(got) != 6 {
		t.Errorf("hexagon with small epsilon: got %d points, want 6", len(got))
	}
}

func TestQuadrilateralize(t *testing.T) {
	tests := []struct {
		name string
		hull []image.Point
		opts SimplifyOptions
		want Quadrilateral
	}{
		{
			name: "four points used as is",
			hull: []image.Point{{0, 0}, {9, 0}, {9, 9}, {0, 9}},
			opts: DefaultSimplifyOptions(),
			want: Quadrilateral{{0, 0}, {9, 0}, {9, 9}, {0, 9}},
		},
		{
			name: "triangle padded with last vertex",
			hull: []image.Point{{0, 0}, {9, 0}, {0, 9}},
			opts: DefaultSimplifyOptions(),
			want: Quadrilateral{{0, 0}, {9, 0}, {0, 9}, {0, 9}},
		},
		{
			name: "single point",
			hull: []image.Point{{3, 4}},
			opts: DefaultSimplifyOptions(),
			want: Quadrilateral{{3, 4}, {3, 4}, {3, 4}, {3, 4}},
		},
		{
			name: "hexagon truncated to first four",
			hull: hexagon,
			opts: DefaultSimplifyOptions(),
			want: Quadrilateral{{0, 10}, {5, 0}, {15, 0}, {20, 10}},
		},
		{
			name: "hexagon widened",
			hull: hexagon,
			opts: SimplifyOptions{Tolerance: 0.01, Policy: PolicyWiden, MaxWidenSteps: 8},
			want: Quadrilateral{{0, 10}, {20, 10}, {20, 10}, {20, 10}},
		},
		{
			name: "widen without steps behaves like truncate",
			hull: hexagon,
			opts: SimplifyOptions{Tolerance: 0.01, Policy: PolicyWiden, MaxWidenSteps: 0},
			want: Quadrilateral{{0, 10}, {5, 0}, {15, 0}, {20, 10}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quadrilateralize(tt.hull, tt.opts); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseQuadPolicy(t *testing.T) {
	for in, want := range map[string]QuadPolicy{"": PolicyTruncate, "truncate": PolicyTruncate, "widen": PolicyWiden} {
		got, err := ParseQuadPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseQuadPolicy(%q): got %v, %v", in, got, err)
		}
	}
	if _, err := ParseQuadPolicy("round"); err == nil {
		t.Error("unknown policy should fail")
	}
}

func TestSimplifyRegion_Rectangle(t *testing.T) {
	m := maskRect(60, 80, 10, 20, 29, 59)

	shape, err := SimplifyRegion(m, DefaultSimplifyOptions())
	if err != nil {
		t.Fatalf("SimplifyRegion failed: %v", err)
	}

	want := Quadrilateral{{10, 20}, {29, 20}, {29, 59}, {10, 59}}
	if shape.Quad != want {
		t.Errorf("Quad: got %v, want %v", shape.Quad, want)
	}
	if shape.Region.Area != 20*40 {
		t.Errorf("Area: got %d, want %d", shape.Region.Area, 20*40)
	}
	if !shape.Filled.Equal(m) {
		t.Errorf("filled quad differs from the rectangle: %d vs %d pixels", shape.Filled.Count(), m.Count())
	}
	if !shape.RegionMask.Equal(m) {
		t.Error("region mask differs from the single-region input")
	}
}

func TestSimplifyRegion_Idempotent(t *testing.T) {
	m := NewMask(60, 60)
	// irregular blob: a slanted band
	for y := 10; y < 50; y++ {
		for x := 10 + y/4; x < 30+y/3; x++ {
			m.Set(x, y, true)
		}
	}

	first, err := SimplifyRegion(m, DefaultSimplifyOptions())
	if err != nil {
		t.Fatalf("first SimplifyRegion failed: %v", err)
	}
	second, err := SimplifyRegion(m, DefaultSimplifyOptions())
	if err != nil {
		t.Fatalf("second SimplifyRegion failed: %v", err)
	}
	if first.Quad != second.Quad {
		t.Errorf("quads differ: %v vs %v", first.Quad, second.Quad)
	}
	if !first.Filled.Equal(second.Filled) {
		t.Error("filled masks differ")
	}
}

func TestSimplifyRegion_Columns(t *testing.T) {
	m := maskRect(100, 50, 0, 0, 30, 40)
	for y := 10; y <= 20; y++ {
		for x := 60; x <= 70; x++ {
			m.Set(x, y, true)
		}
	}

	opts := DefaultSimplifyOptions()
	opts.Columns = &ColumnWindow{Min: 50, Max: 90}

	shape, err := SimplifyRegion(m, opts)
	if err != nil {
		t.Fatalf("SimplifyRegion failed: %v", err)
	}
	if shape.Region.Bounds.Min != image.Pt(60, 10) {
		t.Errorf("picked region at %v, want the block inside the column window", shape.Region.Bounds.Min)
	}

	opts.Columns = &ColumnWindow{Min: 80, Max: 90}
	if _, err := SimplifyRegion(m, opts); !errors.Is(err, ErrNoRegionFound) {
		t.Errorf("empty window: got %v, want ErrNoRegionFound", err)
	}
}

func TestSimplifyRegion_Empty(t *testing.T) {
	if _, err := SimplifyRegion(NewMask(10, 10), DefaultSimplifyOptions()); !errors.Is(err, ErrNoRegionFound) {
		t.Errorf("err: got %v, want ErrNoRegionFound", err)
	}
}

func TestExtractRegion(t *testing.T) {
	img := createTestImage(80, 60, color.White)
	fillRect(img, 20, 10, 39, 49, color.RGBA{230, 30, 30, 255})

	params := MaskParams{Bounds: redBounds, Op: MorphClose, KernelSize: 3}
	raw, shape, err := ExtractRegion(img, params, DefaultSimplifyOptions())
	if err != nil {
		t.Fatalf("ExtractRegion failed: %v", err)
	}
	if raw.Count() != 20*40 {
		t.Errorf("raw mask: got %d pixels, want %d", raw.Count(), 20*40)
	}
	want := Quadrilateral{{20, 10}, {39, 10}, {39, 49}, {20, 49}}
	if shape.Quad != want {
		t.Errorf("Quad: got %v, want %v", shape.Quad, want)
	}
}

func TestExtractRegion_AllBackground(t *testing.T) {
	img := createTestImage(30, 30, color.White)

	_, shape, err := ExtractRegion(img, MaskParams{Bounds: redBounds, Op: MorphClose, KernelSize: 3}, DefaultSimplifyOptions())
	if shape != nil {
		t.Error("shape should be nil when nothing is found")
	}
	if !errors.Is(err, ErrNoRegionFound) {
		t.Errorf("err %v should match ErrNoRegionFound", err)
	}
	if !errors.Is(err, ErrNoForegroundPixels) {
		t.Errorf("err %v should match ErrNoForegroundPixels", err)
	}
}

func TestLineDistance(t *testing.T) {
	tests := []struct {
		name    string
		p, a, b image.Point
		want    float64
	}{
		{"on line", image.Pt(5, 0), image.Pt(0, 0), image.Pt(10, 0), 0},
		{"above horizontal", image.Pt(5, 3), image.Pt(0, 0), image.Pt(10, 0), 3},
		{"beyond segment end", image.Pt(20, 4), image.Pt(0, 0), image.Pt(10, 0), 4},
		{"degenerate line", image.Pt(3, 4), image.Pt(0, 0), image.Pt(0, 0), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lineDistance(tt.p, tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %g, want %g", got, tt.want)
			}
		})
	}
}
