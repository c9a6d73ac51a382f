package transform

import "canvas/internal/domain"

// CopyPlan duplicates the selected shapes in place with fresh ids from newID.
// A copied page brings copies of its children, re-pointed at the new page.
// Children whose page is also selected are only copied once, with the page.
func CopyPlan(shapes []domain.Shape, selection []string, newID func() string) []domain.Shape {
	selected := make(map[string]bool, len(selection))
	for _, id := range selection {
		selected[id] = true
	}

	var out []domain.Shape
	for _, s := range shapes {
		if !selected[s.ID] {
			continue
		}
		if !s.IsPage() {
			if s.PageID != "" && selected[s.PageID] && isPage(shapes, s.PageID) {
				continue
			}
			c := s.Clone()
			c.ID = newID()
			out = append(out, c)
			continue
		}

		pageCopy := s.Clone()
		pageCopy.ID = newID()
		out = append(out, pageCopy)
		for _, child := range shapes {
			if child.IsPage() || child.PageID != s.ID {
				continue
			}
			c := child.Clone()
			c.ID = newID()
			c.PageID = pageCopy.ID
			out = append(out, c)
		}
	}
	return out
}

func isPage(shapes []domain.Shape, id string) bool {
	i := indexOf(shapes, id)
	return i >= 0 && shapes[i].IsPage()
}
