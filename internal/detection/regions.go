package detection

import (
	"errors"
	"image"
	"sort"
)

// ErrNoRegionFound is returned when a mask has no connected foreground region.
var ErrNoRegionFound = errors.New("no connected region found")

// Region is one 8-connected foreground component of a mask.
type Region struct {
	// Area is the number of pixels in the region.
	Area int `json:"area"`

	// Bounds is the bounding box; Min is inclusive, Max exclusive.
	Bounds image.Rectangle `json:"bounds"`

	// Pixels lists every pixel of the region in discovery order.
	Pixels []image.Point `json:"-"`
}

// FindRegions labels the 8-connected foreground components of m.
// Components are returned in row-major order of their first pixel.
func FindRegions(m *Mask) []Region {
	visited := make([]bool, len(m.Pix))
	regions := make([]Region, 0)

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := y*m.Width + x
			if m.Pix[i] && !visited[i] {
				regions = append(regions, floodFill(m, visited, x, y))
			}
		}
	}
	return regions
}

// floodFill performs iterative flood-fill from a starting point.
//
// Uses an explicit stack so large regions cannot overflow the goroutine stack.
// Uses 8-connectivity (includes diagonal neighbors).
func floodFill(m *Mask, visited []bool, startX, startY int) Region {
	r := Region{Bounds: image.Rect(startX, startY, startX+1, startY+1)}
	stack := []image.Point{{X: startX, Y: startY}}
	visited[startY*m.Width+startX] = true

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		r.Pixels = append(r.Pixels, p)
		r.Bounds = r.Bounds.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := p.X+dx, p.Y+dy
				if !m.In(nx, ny) {
					continue
				}
				j := ny*m.Width + nx
				if m.Pix[j] && !visited[j] {
					visited[j] = true
					stack = append(stack, image.Point{X: nx, Y: ny})
				}
			}
		}
	}
	r.Area = len(r.Pixels)
	return r
}

// DominantRegion returns the region with the largest area. Ties go to the
// region whose bounding box top-left is smallest, comparing Y then X.
func DominantRegion(m *Mask) (Region, error) {
	regions := FindRegions(m)
	if len(regions) == 0 {
		return Region{}, ErrNoRegionFound
	}

	sort.SliceStable(regions, func(i, j int) bool {
		a, b := regions[i], regions[j]
		if a.Area != b.Area {
			return a.Area > b.Area
		}
		if a.Bounds.Min.Y != b.Bounds.Min.Y {
			return a.Bounds.Min.Y < b.Bounds.Min.Y
		}
		return a.Bounds.Min.X < b.Bounds.Min.X
	})
	return regions[0], nil
}

// Mask renders the region alone on a raster of the given size.
func (r Region) Mask(width, height int) *Mask {
	out := NewMask(width, height)
	for _, p := range r.Pixels {
		out.Set(p.X, p.Y, true)
	}
	return out
}

// boundary returns the region pixels that have at least one 4-neighbour
// outside the region. Every convex hull vertex is among them.
func (r Region) boundary(m *Mask) []image.Point {
	out := make([]image.Point, 0, len(r.Pixels))
	for _, p := range r.Pixels {
		if !m.At(p.X-1, p.Y) || !m.At(p.X+1, p.Y) || !m.At(p.X, p.Y-1) || !m.At(p.X, p.Y+1) {
			out = append(out, p)
		}
	}
	return out
}
