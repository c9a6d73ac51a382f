// Package transform turns finished pointer gestures into shape field updates.
// Every function returns the updates for one gesture so callers can submit
// them as a single batch.
package transform

import (
	"fmt"

	"canvas/internal/domain"
	"canvas/internal/geometry"
)

// DragStop computes the updates for a single shape released at release,
// given in the shape's render space (page-local when it has a parent).
// Host pages are only re-evaluated here, never mid-drag.
func DragStop(shapes []domain.Shape, id string, release geometry.Point) ([]domain.ShapeUpdate, error) {
	idx := indexOf(shapes, id)
	if idx < 0 {
		return nil, fmt.Errorf("drag %s: %w", id, domain.ErrNotFound)
	}
	shape := shapes[idx]
	pages := domain.Pages(shapes)
	parent := geometry.ResolveParent(shape, geometry.IndexPages(shapes))

	global := geometry.ToGlobal(release, parent)
	delta := global.Sub(geometry.Origin(shape))

	var updates []domain.ShapeUpdate
	if shape.IsPage() {
		moved := shape
		moved.XOffset, moved.YOffset = global.X, global.Y
		updates = append(updates, carryChildren(shapes, shape, moved, delta, replacePage(pages, moved))...)
		return append(updates, position(shape, global, nil)), nil
	}

	candidate := shape
	candidate.XOffset, candidate.YOffset = global.X, global.Y
	host := geometry.HostPageID(candidate, pages)
	return append(updates, position(shape, global, domain.AssignPage(host))), nil
}

// carryChildren moves the children of page from its old to its new position.
// Former children that were no longer inside the page before the move are
// detached instead of moved.
func carryChildren(shapes []domain.Shape, old, moved domain.Shape, delta geometry.Point, pagesAfter []domain.Shape) []domain.ShapeUpdate {
	var updates []domain.ShapeUpdate
	for _, s := range shapes {
		if s.IsPage() || s.PageID != old.ID {
			continue
		}
		if !geometry.Contains(old, s) {
			updates = append(updates, detach(s))
			continue
		}
		next := s
		next.XOffset += delta.X
		next.YOffset += delta.Y

		pageID := old.ID
		if !geometry.Contains(moved, next) {
			pageID = geometry.HostPageID(next, pagesAfter)
		}
		updates = append(updates, position(s, geometry.Origin(next), domain.AssignPage(pageID)))
	}
	return updates
}

// GroupDragStop moves every selected shape by delta. Selected pages carry
// their children along; a child that is itself selected moves only once.
// Non-page shapes are re-hosted against the page set after the move.
func GroupDragStop(shapes []domain.Shape, selection []string, delta geometry.Point) []domain.ShapeUpdate {
	selected := make(map[string]bool, len(selection))
	for _, id := range selection {
		selected[id] = true
	}
	targets := make(map[string]geometry.Point, len(selection))
	for _, s := range shapes {
		if selected[s.ID] {
			targets[s.ID] = geometry.Origin(s).Add(delta)
		}
	}
	return Relocate(shapes, targets)
}

// Relocate moves each shape named in targets to its global origin. A moved
// page carries the children that are not themselves in targets by the
// page's own delta. Moved non-page shapes keep their page while it still
// contains them and are re-hosted against the moved page set otherwise.
func Relocate(shapes []domain.Shape, targets map[string]geometry.Point) []domain.ShapeUpdate {
	pageDelta := make(map[string]geometry.Point)
	pagesAfter := domain.Pages(shapes)
	for i := range pagesAfter {
		if to, ok := targets[pagesAfter[i].ID]; ok {
			pageDelta[pagesAfter[i].ID] = to.Sub(geometry.Origin(pagesAfter[i]))
			pagesAfter[i].XOffset, pagesAfter[i].YOffset = to.X, to.Y
		}
	}

	var updates []domain.ShapeUpdate
	for _, s := range shapes {
		next := s
		if to, ok := targets[s.ID]; ok {
			next.XOffset, next.YOffset = to.X, to.Y
		} else if d, ok := pageDelta[s.PageID]; ok && !s.IsPage() {
			next.XOffset += d.X
			next.YOffset += d.Y
		} else {
			continue
		}
		if s.IsPage() {
			updates = append(updates, position(s, geometry.Origin(next), nil))
			continue
		}
		var pageID string
		if p := findShape(pagesAfter, s.PageID); p != nil && geometry.Contains(*p, next) {
			pageID = s.PageID
		} else {
			pageID = geometry.HostPageID(next, pagesAfter)
		}
		updates = append(updates, position(s, geometry.Origin(next), domain.AssignPage(pageID)))
	}
	return updates
}

func position(s domain.Shape, p geometry.Point, pageID *string) domain.ShapeUpdate {
	t := s.Type
	return domain.ShapeUpdate{
		ShapeID: s.ID,
		Fields: domain.Fields{
			Type:    &t,
			XOffset: domain.Float(p.X),
			YOffset: domain.Float(p.Y),
			PageID:  pageID,
		},
	}
}

func detach(s domain.Shape) domain.ShapeUpdate {
	t := s.Type
	return domain.ShapeUpdate{
		ShapeID: s.ID,
		Fields:  domain.Fields{Type: &t, PageID: domain.AssignPage("")},
	}
}

func replacePage(pages []domain.Shape, moved domain.Shape) []domain.Shape {
	out := make([]domain.Shape, len(pages))
	copy(out, pages)
	for i := range out {
		if out[i].ID == moved.ID {
			out[i] = moved
		}
	}
	return out
}

func indexOf(shapes []domain.Shape, id string) int {
	for i := range shapes {
		if shapes[i].ID == id {
			return i
		}
	}
	return -1
}

func findShape(shapes []domain.Shape, id string) *domain.Shape {
	if i := indexOf(shapes, id); i >= 0 {
		return &shapes[i]
	}
	return nil
}
