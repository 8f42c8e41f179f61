package measurement

import (
	"errors"
	"fmt"
	"image"

	"github.com/stemhealth/stem-measure/internal/detection"
)

// ErrBoundaryNotFound is returned when a scan reaches the raster edge without
// meeting the transition it looks for, or starts outside the raster.
var ErrBoundaryNotFound = errors.New("boundary not found")

// Direction is an axis-aligned scan direction.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

func (d Direction) step() image.Point {
	switch d {
	case Left:
		return image.Pt(-1, 0)
	case Right:
		return image.Pt(1, 0)
	case Up:
		return image.Pt(0, -1)
	}
	return image.Pt(0, 1)
}

// ScanToFirstBoundary walks from p, p included, and returns the first
// foreground pixel on the way.
func ScanToFirstBoundary(m *detection.Mask, p image.Point, dir Direction) (image.Point, error) {
	if !m.In(p.X, p.Y) {
		return image.Point{}, fmt.Errorf("%w: start %v outside %dx%d raster", ErrBoundaryNotFound, p, m.Width, m.Height)
	}
	s := dir.step()
	for q := p; m.In(q.X, q.Y); q = q.Add(s) {
		if m.At(q.X, q.Y) {
			return q, nil
		}
	}
	return image.Point{}, fmt.Errorf("%w: no foreground %s of %v", ErrBoundaryNotFound, dir, p)
}

// ScanThroughRegionExit walks from p, p included, until it has entered the
// foreground and left it again. It returns the first background pixel after
// the region.
func ScanThroughRegionExit(m *detection.Mask, p image.Point, dir Direction) (image.Point, error) {
	if !m.In(p.X, p.Y) {
		return image.Point{}, fmt.Errorf("%w: start %v outside %dx%d raster", ErrBoundaryNotFound, p, m.Width, m.Height)
	}
	s := dir.step()
	inside := false
	for q := p; m.In(q.X, q.Y); q = q.Add(s) {
		fg := m.At(q.X, q.Y)
		if fg {
			inside = true
		} else if inside {
			return q, nil
		}
	}
	return image.Point{}, fmt.Errorf("%w: no region exit %s of %v", ErrBoundaryNotFound, dir, p)
}
