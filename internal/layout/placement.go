package layout

import (
	"math"

	"canvas/internal/domain"
	"canvas/internal/geometry"
)

const (
	pageBuffer   = 20.0
	pageGap      = 40.0
	spiralStep   = 100.0
	maxAttempts  = 20
	fallbackStep = 20.0

	GridSize = 30.0
	Padding  = 60.0
)

// rect is a simple axis-aligned bounding box.
type rect struct {
	x, y, w, h float64
}

func (a rect) intersects(b rect) bool {
	return a.x < b.x+b.w && a.x+a.w > b.x &&
		a.y < b.y+b.h && a.y+a.h > b.y
}

func (a rect) grow(d float64) rect {
	return rect{a.x - d, a.y - d, a.w + 2*d, a.h + 2*d}
}

func rectOf(s domain.Shape) rect {
	return rect{s.XOffset, s.YOffset, s.Width, s.Height}
}

// FindOpenSpace returns where a new w×h page should go so it does not
// overlap (within a 20-unit buffer) any existing page. candidate is kept
// when it is already free.
func FindOpenSpace(pages []domain.Shape, candidate geometry.Point, w, h float64) geometry.Point {
	overlaps := func(p geometry.Point) bool {
		for _, pg := range pages {
			if (rect{p.X, p.Y, w + pageBuffer, h + pageBuffer}).intersects(rect{pg.XOffset, pg.YOffset, pg.Width + pageBuffer, pg.Height + pageBuffer}) {
				return true
			}
		}
		return false
	}
	if len(pages) == 0 || !overlaps(candidate) {
		return candidate
	}

	var cx, cy float64
	for _, pg := range pages {
		cx += pg.XOffset + pg.Width/2
		cy += pg.YOffset + pg.Height/2
	}
	cx /= float64(len(pages))
	cy /= float64(len(pages))

	attempt := 0
	for attempt < maxAttempts {
		attempt++
		var p geometry.Point
		switch attempt {
		case 1:
			r := rightmost(pages)
			p = geometry.Point{X: r.XOffset + r.Width + pageGap, Y: r.YOffset}
		case 2:
			b := bottommost(pages)
			p = geometry.Point{X: b.XOffset, Y: b.YOffset + b.Height + pageGap}
		default:
			radius := float64(attempt/2) * spiralStep
			angle := float64(attempt%8) * math.Pi / 4
			p = geometry.Point{
				X: cx + radius*math.Cos(angle) - w/2,
				Y: cy + radius*math.Sin(angle) - h/2,
			}
		}
		if !overlaps(p) {
			return p
		}
	}
	shift := spiralStep + float64(attempt)*fallbackStep
	return geometry.Point{X: candidate.X + shift, Y: candidate.Y + shift}
}

func rightmost(pages []domain.Shape) domain.Shape {
	best := pages[0]
	for _, p := range pages[1:] {
		if p.XOffset+p.Width > best.XOffset+best.Width {
			best = p
		}
	}
	return best
}

func bottommost(pages []domain.Shape) domain.Shape {
	best := pages[0]
	for _, p := range pages[1:] {
		if p.YOffset+p.Height > best.YOffset+best.Height {
			best = p
		}
	}
	return best
}

func snap(v float64) float64 {
	return math.Round(v/GridSize) * GridSize
}

// NextPosition finds the first grid position inside page where a w×h shape
// keeps Padding away from every sibling and stays strictly inside the page.
// ok is false when the page has no room left.
func NextPosition(page domain.Shape, siblings []domain.Shape, w, h float64) (geometry.Point, bool) {
	occupied := make([]rect, len(siblings))
	for i, s := range siblings {
		occupied[i] = rectOf(s).grow(Padding)
	}

	outer := geometry.BoundsOf(page)
	for y := snap(page.YOffset) + GridSize; y+h < outer.Bottom; y += GridSize {
		for x := snap(page.XOffset) + GridSize; x+w < outer.Right; x += GridSize {
			candidate := rect{x, y, w, h}
			free := true
			for _, occ := range occupied {
				if candidate.intersects(occ) {
					free = false
					break
				}
			}
			if free {
				return geometry.Point{X: x, Y: y}, true
			}
		}
	}
	return geometry.Point{}, false
}

// ArrangeGroup lays shapes out left to right from origin, wrapping rows at
// maxRowWidth. Positions are written in place and the slice is returned.
func ArrangeGroup(shapes []domain.Shape, origin geometry.Point, maxRowWidth float64) []domain.Shape {
	x, y := snap(origin.X), snap(origin.Y)
	rowHeight := 0.0
	for i := range shapes {
		if x > snap(origin.X) && x+shapes[i].Width > snap(origin.X)+maxRowWidth {
			x = snap(origin.X)
			y += snap(rowHeight + Padding)
			rowHeight = 0
		}
		shapes[i].XOffset = x
		shapes[i].YOffset = y
		rowHeight = math.Max(rowHeight, shapes[i].Height)
		x += snap(shapes[i].Width + Padding)
	}
	return shapes
}
