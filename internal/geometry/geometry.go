// Package geometry holds the containment and coordinate rules shared by every
// canvas component. All functions are pure.
package geometry

import "canvas/internal/domain"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

type Bounds struct {
	Left, Right, Top, Bottom float64
}

func BoundsOf(s domain.Shape) Bounds {
	return Bounds{
		Left:   s.XOffset,
		Right:  s.XOffset + s.Width,
		Top:    s.YOffset,
		Bottom: s.YOffset + s.Height,
	}
}

// StrictlyContains reports whether inner lies entirely inside outer.
// A box flush with any edge of outer is not contained.
func StrictlyContains(outer, inner Bounds) bool {
	return outer.Top < inner.Top &&
		outer.Bottom > inner.Bottom &&
		outer.Left < inner.Left &&
		outer.Right > inner.Right
}

// Contains is StrictlyContains over shapes.
func Contains(outer, inner domain.Shape) bool {
	return StrictlyContains(BoundsOf(outer), BoundsOf(inner))
}

// Origin is the shape's global top-left corner.
func Origin(s domain.Shape) Point {
	return Point{s.XOffset, s.YOffset}
}

// ToGlobal converts a page-local point to canvas coordinates.
// A nil parent means the point already is global.
func ToGlobal(local Point, parent *domain.Shape) Point {
	if parent == nil {
		return local
	}
	return local.Add(Origin(*parent))
}

// ToLocal is the inverse of ToGlobal.
func ToLocal(global Point, parent *domain.Shape) Point {
	if parent == nil {
		return global
	}
	return global.Sub(Origin(*parent))
}

// HostPage returns the first page in list order that strictly contains s.
// A shape is never its own host, and pages are never hosted.
func HostPage(s domain.Shape, pages []domain.Shape) *domain.Shape {
	if s.IsPage() {
		return nil
	}
	b := BoundsOf(s)
	for i := range pages {
		if pages[i].ID == s.ID || !pages[i].IsPage() {
			continue
		}
		if StrictlyContains(BoundsOf(pages[i]), b) {
			return &pages[i]
		}
	}
	return nil
}

// HostPageID is HostPage returning the id, or "" when homeless.
func HostPageID(s domain.Shape, pages []domain.Shape) string {
	if p := HostPage(s, pages); p != nil {
		return p.ID
	}
	return ""
}

// ResolveParent returns the page s.PageID points at, or nil.
func ResolveParent(s domain.Shape, pagesByID map[string]domain.Shape) *domain.Shape {
	if s.PageID == "" {
		return nil
	}
	p, ok := pagesByID[s.PageID]
	if !ok || !p.IsPage() {
		return nil
	}
	return &p
}

// RenderPosition is where the renderer draws s: page-local when its parent
// resolves, global otherwise.
func RenderPosition(s domain.Shape, pagesByID map[string]domain.Shape) Point {
	return ToLocal(Origin(s), ResolveParent(s, pagesByID))
}

// IndexPages maps page id to page.
func IndexPages(shapes []domain.Shape) map[string]domain.Shape {
	m := make(map[string]domain.Shape)
	for _, s := range shapes {
		if s.IsPage() {
			m[s.ID] = s
		}
	}
	return m
}

// HandlePoint is the anchor a connector attaches to on the given side of s.
func HandlePoint(s domain.Shape, h domain.HandleType) Point {
	switch h {
	case domain.HandleTop:
		return Point{s.XOffset + s.Width/2, s.YOffset - 20}
	case domain.HandleLeft:
		return Point{s.XOffset - 12, s.YOffset + s.Height/2 - 3}
	case domain.HandleBottom:
		return Point{s.XOffset + s.Width/2, s.YOffset + s.Height + 12}
	default:
		return Point{s.XOffset + s.Width + 14, s.YOffset + s.Height/2 - 3}
	}
}
