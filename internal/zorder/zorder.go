package zorder

import (
	"fmt"
	"sort"

	"canvas/internal/domain"
	"canvas/internal/geometry"
)

type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Front Direction = "front"
	Back  Direction = "back"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Up, Down, Front, Back:
		return d, nil
	}
	return "", fmt.Errorf("unknown z-order direction %q", s)
}

// Reorder returns a copy of shapes (same order) with recomputed zIndex values.
//
// front lifts the selection above the current maximum without touching other
// shapes. up, down and back work on the stable z-sorted order and renumber
// densely to 0..N-1 afterwards. A selected child never ends at or below the
// page that strictly contains it.
func Reorder(shapes []domain.Shape, selection map[string]struct{}, dir Direction) []domain.Shape {
	if len(selection) == 0 || len(shapes) == 0 {
		return shapes
	}
	out := domain.CloneShapes(shapes)

	// home pages are resolved once, before anything moves
	pages := domain.Pages(shapes)
	home := make(map[string]string, len(selection))
	for _, s := range shapes {
		if _, ok := selection[s.ID]; ok {
			home[s.ID] = geometry.HostPageID(s, pages)
		}
	}

	order := sortedIndexes(out)
	if dir == Front {
		bringToFront(out, order, selection)
		return out
	}

	ids := make([]string, len(order))
	for i, idx := range order {
		ids[i] = out[idx].ID
	}

	switch dir {
	case Back:
		ids = sendToBack(ids, selection, home, out)
	case Up:
		ids = step(ids, selection, home, +1)
	case Down:
		ids = step(ids, selection, home, -1)
	default:
		return shapes
	}

	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	for i := range out {
		out[i].ZIndex = pos[out[i].ID]
	}
	return out
}

// sortedIndexes returns the indexes of shapes ordered by zIndex, ties kept
// in array order.
func sortedIndexes(shapes []domain.Shape) []int {
	order := make([]int, len(shapes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return shapes[order[a]].ZIndex < shapes[order[b]].ZIndex
	})
	return order
}

func bringToFront(out []domain.Shape, order []int, selection map[string]struct{}) {
	max := 0
	for i, s := range out {
		if i == 0 || s.ZIndex > max {
			max = s.ZIndex
		}
	}
	for _, idx := range order {
		if _, ok := selection[out[idx].ID]; !ok {
			continue
		}
		max++
		out[idx].ZIndex = max
	}
}

func sendToBack(ids []string, selection map[string]struct{}, home map[string]string, shapes []domain.Shape) []string {
	isPage := make(map[string]bool, len(shapes))
	for _, s := range shapes {
		isPage[s.ID] = s.IsPage()
	}

	var rest, pagesSel, othersSel []string
	for _, id := range ids {
		if _, ok := selection[id]; !ok {
			rest = append(rest, id)
			continue
		}
		if isPage[id] {
			pagesSel = append(pagesSel, id)
		} else {
			othersSel = append(othersSel, id)
		}
	}

	// Pages go first so their selected children can be placed right above them.
	// Walking backwards keeps the relative order of the selection.
	for i := len(pagesSel) - 1; i >= 0; i-- {
		rest = insertAt(rest, 0, pagesSel[i])
	}
	for i := len(othersSel) - 1; i >= 0; i-- {
		id := othersSel[i]
		at := 0
		if h := home[id]; h != "" {
			if hi := indexOf(rest, h); hi >= 0 {
				at = hi + 1
			}
		}
		rest = insertAt(rest, at, id)
	}
	return rest
}

// step moves each selected id one slot in z order. Shapes are processed from
// the leading edge so adjacent selected shapes do not leapfrog each other.
func step(ids []string, selection map[string]struct{}, home map[string]string, delta int) []string {
	var queue []string
	for _, id := range ids {
		if _, ok := selection[id]; ok {
			queue = append(queue, id)
		}
	}
	if delta > 0 {
		for i, j := 0, len(queue)-1; i < j; i, j = i+1, j-1 {
			queue[i], queue[j] = queue[j], queue[i]
		}
	}

	out := append([]string(nil), ids...)
	for _, id := range queue {
		i := indexOf(out, id)
		rest := removeAt(out, i)
		target := i + delta
		if h := home[id]; h != "" {
			if hi := indexOf(rest, h); hi >= 0 && target <= hi {
				target = hi + 1
			}
		}
		if target < 0 {
			target = 0
		}
		if target > len(rest) {
			target = len(rest)
		}
		out = insertAt(rest, target, id)
	}
	return out
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeAt(ids []string, i int) []string {
	return append(ids[:i:i], ids[i+1:]...)
}

func insertAt(ids []string, i int, id string) []string {
	ids = append(ids, "")
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}

// Diff returns zIndex updates for every shape whose zIndex changed between
// before and after, which must list the same ids.
func Diff(before, after []domain.Shape) []domain.ShapeUpdate {
	prev := make(map[string]int, len(before))
	for _, s := range before {
		prev[s.ID] = s.ZIndex
	}
	var updates []domain.ShapeUpdate
	for _, s := range after {
		if z, ok := prev[s.ID]; ok && z == s.ZIndex {
			continue
		}
		t := s.Type
		updates = append(updates, domain.ShapeUpdate{
			ShapeID: s.ID,
			Fields:  domain.Fields{Type: &t, ZIndex: domain.Int(s.ZIndex)},
		})
	}
	return updates
}
