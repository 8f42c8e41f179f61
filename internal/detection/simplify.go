package detection

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// Quadrilateral is a closed four-point polygon in pixel coordinates.
type Quadrilateral [4]image.Point

// Points returns the vertices as a slice.
func (q Quadrilateral) Points() []image.Point {
	return []image.Point{q[0], q[1], q[2], q[3]}
}

// QuadPolicy decides what happens when Douglas-Peucker leaves more than four
// vertices.
type QuadPolicy int

const (
	// PolicyTruncate keeps the first four vertices.
	PolicyTruncate QuadPolicy = iota
	// PolicyWiden doubles epsilon until four or fewer vertices remain, then
	// truncates whatever is left.
	PolicyWiden
)

// ParseQuadPolicy maps "truncate" (or "") and "widen" to a QuadPolicy.
func ParseQuadPolicy(s string) (QuadPolicy, error) {
	switch s {
	case "", "truncate":
		return PolicyTruncate, nil
	case "widen":
		return PolicyWiden, nil
	}
	return PolicyTruncate, fmt.Errorf("unknown quadrilateral policy %q", s)
}

// ColumnWindow keeps columns in [Min, Max).
type ColumnWindow struct {
	Min int
	Max int
}

// SimplifyOptions configures SimplifyRegion.
type SimplifyOptions struct {
	// Tolerance is epsilon as a fraction of the hull perimeter.
	Tolerance     float64
	Policy        QuadPolicy
	MaxWidenSteps int
	// Columns, when set, clears the mask outside the window before labelling.
	Columns *ColumnWindow
}

// DefaultSimplifyOptions matches the deployed setup: 1% of the perimeter,
// truncating surplus vertices.
func DefaultSimplifyOptions() SimplifyOptions {
	return SimplifyOptions{Tolerance: 0.01, Policy: PolicyTruncate, MaxWidenSteps: 8}
}

// Shape is the outcome of SimplifyRegion.
type Shape struct {
	// Region is the dominant connected region.
	Region Region `json:"region"`
	// RegionMask holds the dominant region only.
	RegionMask *Mask `json:"-"`
	// Hull is the convex hull of the region, before simplification.
	Hull []image.Point `json:"hull"`
	// Quad is the simplified, truncated or padded hull.
	Quad Quadrilateral `json:"quad"`
	// Filled is Quad rasterised inclusively on the mask's raster.
	Filled *Mask `json:"-"`
}

// SimplifyRegion reduces the largest connected region of m to a
// quadrilateral.
//
// Hulls of four or fewer vertices are used as they are. Longer hulls go
// through closed Douglas-Peucker with epsilon = Tolerance x perimeter.
// Results with fewer than four vertices are padded with their last vertex.
//
// Returns ErrNoRegionFound when m (after column restriction) is empty.
func SimplifyRegion(m *Mask, opts SimplifyOptions) (*Shape, error) {
	if opts.Columns != nil {
		m = m.RestrictColumns(opts.Columns.Min, opts.Columns.Max)
	}

	region, err := DominantRegion(m)
	if err != nil {
		return nil, err
	}

	hull := ConvexHull(region.boundary(m))
	quad := Quadrilateralize(hull, opts)

	return &Shape{
		Region:     region,
		RegionMask: region.Mask(m.Width, m.Height),
		Hull:       hull,
		Quad:       quad,
		Filled:     FillPolygon(m.Width, m.Height, quad.Points()),
	}, nil
}

// Quadrilateralize turns a hull into exactly four points.
func Quadrilateralize(hull []image.Point, opts SimplifyOptions) Quadrilateral {
	approx := hull
	if len(hull) > 4 {
		eps := opts.Tolerance * ArcLength(hull, true)
		approx = ApproxPolyDP(hull, eps, true)

		if opts.Policy == PolicyWiden {
			for step := 0; len(approx) > 4 && step < opts.MaxWidenSteps; step++ {
				eps *= 2
				approx = ApproxPolyDP(hull, eps, true)
			}
		}
	}

	var q Quadrilateral
	if len(approx) == 0 {
		return q
	}
	for i := range q {
		if i < len(approx) {
			q[i] = approx[i]
		} else {
			q[i] = approx[len(approx)-1]
		}
	}
	return q
}

// ArcLength returns the perimeter of the polyline; closed adds the segment
// from the last point back to the first.
func ArcLength(pts []image.Point, closed bool) float64 {
	if len(pts) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += dist(pts[i-1], pts[i])
	}
	if closed {
		total += dist(pts[len(pts)-1], pts[0])
	}
	return total
}

// ApproxPolyDP simplifies a polyline with the Douglas-Peucker algorithm.
// Points farther than epsilon from the simplified shape are kept.
//
// For closed curves the first point and the point farthest from it split the
// curve into two open chains, each simplified separately.
func ApproxPolyDP(pts []image.Point, epsilon float64, closed bool) []image.Point {
	n := len(pts)
	if n < 3 {
		return append([]image.Point(nil), pts...)
	}
	if !closed {
		return douglasPeucker(pts, epsilon)
	}

	far := 0
	best := -1.0
	for i := 1; i < n; i++ {
		if d := dist(pts[0], pts[i]); d > best {
			best, far = d, i
		}
	}
	if far == 0 {
		return []image.Point{pts[0]}
	}

	first := douglasPeucker(pts[:far+1], epsilon)

	second := make([]image.Point, 0, n-far+1)
	second = append(second, pts[far:]...)
	second = append(second, pts[0])
	back := douglasPeucker(second, epsilon)

	out := make([]image.Point, 0, len(first)+len(back))
	out = append(out, first...)
	// both chains share their endpoints
	out = append(out, back[1:len(back)-1]...)
	return out
}

// douglasPeucker simplifies an open chain, always keeping both endpoints.
func douglasPeucker(pts []image.Point, epsilon float64) []image.Point {
	n := len(pts)
	if n < 3 {
		return append([]image.Point(nil), pts...)
	}

	keep := make([]bool, n)
	keep[0], keep[n-1] = true, true

	type span struct{ lo, hi int }
	stack := []span{{0, n - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		idx, maxD := -1, 0.0
		for i := s.lo + 1; i < s.hi; i++ {
			if d := lineDistance(pts[i], pts[s.lo], pts[s.hi]); d > maxD {
				idx, maxD = i, d
			}
		}
		if idx >= 0 && maxD > epsilon {
			keep[idx] = true
			stack = append(stack, span{s.lo, idx}, span{idx, s.hi})
		}
	}

	out := make([]image.Point, 0, n)
	for i, k := range keep {
		if k {
			out = append(out, pts[i])
		}
	}
	return out
}

// lineDistance is the distance from p to the line through a and b.
func lineDistance(p, a, b image.Point) float64 {
	if a == b {
		return dist(p, a)
	}
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	num := math.Abs(dy*float64(p.X-a.X) - dx*float64(p.Y-a.Y))
	return num / math.Hypot(dx, dy)
}

func dist(a, b image.Point) float64 {
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
}

// ExtractRegion runs ExtractMask then SimplifyRegion. It returns the
// thresholded mask alongside the shape.
//
// An all-background mask fails with an error matching both
// ErrNoForegroundPixels and ErrNoRegionFound.
func ExtractRegion(img image.Image, p MaskParams, opts SimplifyOptions) (*Mask, *Shape, error) {
	m, err := ExtractMask(img, p)
	if err != nil {
		if errors.Is(err, ErrNoForegroundPixels) {
			return m, nil, fmt.Errorf("%w: %w", ErrNoRegionFound, err)
		}
		return m, nil, err
	}

	shape, err := SimplifyRegion(m, opts)
	if err != nil {
		return m, nil, err
	}
	return m, shape, nil
}
