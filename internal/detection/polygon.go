package detection

import (
	"image"
	"math"
	"sort"
)

// FillPolygon rasterises a closed polygon onto a width x height mask.
//
// The fill is inclusive: the even-odd interior is set along with every pixel
// on the polygon's edges, so each vertex inside the raster is foreground.
// Degenerate polygons (repeated vertices, zero area) reduce to their edges.
func FillPolygon(width, height int, pts []image.Point) *Mask {
	m := NewMask(width, height)
	n := len(pts)
	if n == 0 {
		return m
	}

	xs := make([]float64, 0, n)
	for y := 0; y < height; y++ {
		xs = xs[:0]
		for i := 0; i < n; i++ {
			a, b := pts[i], pts[(i+1)%n]
			if a.Y == b.Y {
				continue
			}
			if a.Y > b.Y {
				a, b = b, a
			}
			// half-open so shared vertices are counted once
			if y < a.Y || y >= b.Y {
				continue
			}
			t := float64(y-a.Y) / float64(b.Y-a.Y)
			xs = append(xs, float64(a.X)+t*float64(b.X-a.X))
		}
		sort.Float64s(xs)

		for i := 0; i+1 < len(xs); i += 2 {
			from := max(0, int(math.Ceil(xs[i])))
			to := min(width-1, int(math.Floor(xs[i+1])))
			for x := from; x <= to; x++ {
				m.Pix[y*width+x] = true
			}
		}
	}

	for i := 0; i < n; i++ {
		drawLine(m, pts[i], pts[(i+1)%n])
	}
	return m
}

// drawLine sets every pixel of the Bresenham line from a to b, endpoints included.
func drawLine(m *Mask, a, b image.Point) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	x, y := a.X, a.Y
	for {
		m.Set(x, y, true)
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
