package route

import (
	"errors"
	"fmt"
	"math"

	"canvas/internal/domain"
	"canvas/internal/geometry"
)

// DirectionFor returns the middle-leg axis used for paths leaving handle h:
// side handles connect through a vertical leg, top and bottom through a
// horizontal one.
func DirectionFor(h domain.HandleType) domain.Direction {
	if h == domain.HandleLeft || h == domain.HandleRight {
		return domain.DirectionVertical
	}
	return domain.DirectionHorizontal
}

// AutoHandle picks the handle of s facing p. Outside the shape the side p
// lies beyond wins; inside, the nearest edge does.
func AutoHandle(s domain.Shape, p geometry.Point) domain.HandleType {
	b := geometry.BoundsOf(s)
	switch {
	case p.X < b.Left:
		return domain.HandleLeft
	case p.X > b.Right:
		return domain.HandleRight
	case p.Y < b.Top:
		return domain.HandleTop
	case p.Y > b.Bottom:
		return domain.HandleBottom
	}
	handles := []domain.HandleType{domain.HandleLeft, domain.HandleRight, domain.HandleTop, domain.HandleBottom}
	dists := []float64{p.X - b.Left, b.Right - p.X, p.Y - b.Top, b.Bottom - p.Y}
	best := 0
	for i, d := range dists {
		if d < dists[best] {
			best = i
		}
	}
	return handles[best]
}

// Obstacles lists what a path leaving source must avoid: the source itself
// and every page that does not contain it.
func Obstacles(source domain.Shape, shapes []domain.Shape) []domain.Shape {
	out := []domain.Shape{source}
	for _, p := range domain.Pages(shapes) {
		if p.ID == source.ID || geometry.Contains(p, source) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ExcludeList returns the ids of obstacles, the form stored on a path.
func ExcludeList(obstacles []domain.Shape) []string {
	ids := make([]string, len(obstacles))
	for i, o := range obstacles {
		ids[i] = o.ID
	}
	return ids
}

// Resolve computes the points of a stored path against the current shapes.
// Obstacles come from the path's exclude list; unknown ids are skipped.
func Resolve(p domain.Path, shapes []domain.Shape) ([]geometry.Point, error) {
	byID := make(map[string]domain.Shape, len(shapes))
	for _, s := range shapes {
		byID[s.ID] = s
	}
	start, ok := byID[p.ShapeStartID]
	if !ok {
		return nil, fmt.Errorf("path start %s: %w", p.ShapeStartID, domain.ErrNotFound)
	}
	end, ok := byID[p.ShapeEndID]
	if !ok {
		return nil, fmt.Errorf("path end %s: %w", p.ShapeEndID, domain.ErrNotFound)
	}

	var obstacles []domain.Shape
	for _, id := range p.PageExcludeList {
		if s, ok := byID[id]; ok {
			obstacles = append(obstacles, s)
		}
	}
	a := geometry.HandlePoint(start, p.ShapeStartHandleType)
	b := geometry.HandlePoint(end, p.ShapeEndHandleType)
	return RouteOrFallback(a, b, obstacles, p.Direction), nil
}

// ErrDegenerate is returned by Length for an empty route.
var ErrDegenerate = errors.New("empty route")

// Length is the total Manhattan length of pts.
func Length(pts []geometry.Point) (float64, error) {
	if len(pts) == 0 {
		return 0, ErrDegenerate
	}
	var total float64
	for i := 1; i < len(pts); i++ {
		total += math.Abs(pts[i].X-pts[i-1].X) + math.Abs(pts[i].Y-pts[i-1].Y)
	}
	return total, nil
}
