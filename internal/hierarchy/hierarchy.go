package hierarchy

import (
	"sync"

	"canvas/internal/domain"
	"canvas/internal/geometry"
)

// PageNode is a page with the shapes bucketed under it.
type PageNode struct {
	Page     domain.Shape   `json:"page"`
	Children []domain.Shape `json:"children"`
}

// Tree is the derived page hierarchy of a flat shape list.
// Repairs holds the pageId corrections found while building; it is meant
// to be dispatched as a single batch.
type Tree struct {
	Pages   []PageNode           `json:"pages"`
	Orphans []domain.Shape       `json:"orphans"`
	Repairs []domain.ShapeUpdate `json:"repairs,omitempty"`
}

// Build derives the page tree from shapes. It never fails: shapes whose
// parent cannot be resolved or found geometrically end up as orphans.
//
// A shape whose pageId resolves keeps it without re-checking containment.
// Otherwise the first page in list order that strictly contains it adopts it.
func Build(shapes []domain.Shape) Tree {
	pages := domain.Pages(shapes)
	index := make(map[string]int, len(pages))
	tree := Tree{Pages: make([]PageNode, len(pages))}
	for i, p := range pages {
		index[p.ID] = i
		tree.Pages[i] = PageNode{Page: p.Clone()}
	}

	for _, s := range shapes {
		if s.IsPage() {
			continue
		}
		if i, ok := index[s.PageID]; ok && s.PageID != "" {
			tree.Pages[i].Children = append(tree.Pages[i].Children, s.Clone())
			continue
		}

		if host := geometry.HostPage(s, pages); host != nil {
			adopted := s.Clone()
			adopted.PageID = host.ID
			tree.Pages[index[host.ID]].Children = append(tree.Pages[index[host.ID]].Children, adopted)
			tree.Repairs = append(tree.Repairs, repair(s, host.ID))
			continue
		}

		orphan := s.Clone()
		if orphan.PageID != "" {
			// dangling reference to a page that no longer exists
			orphan.PageID = ""
			tree.Repairs = append(tree.Repairs, repair(s, ""))
		}
		tree.Orphans = append(tree.Orphans, orphan)
	}
	return tree
}

func repair(s domain.Shape, pageID string) domain.ShapeUpdate {
	t := s.Type
	return domain.ShapeUpdate{
		ShapeID: s.ID,
		Fields:  domain.Fields{Type: &t, PageID: domain.AssignPage(pageID)},
	}
}

// Shapes flattens the tree back into pages followed by their children and the orphans.
func (t Tree) Shapes() []domain.Shape {
	var out []domain.Shape
	for _, n := range t.Pages {
		out = append(out, n.Page)
		out = append(out, n.Children...)
	}
	return append(out, t.Orphans...)
}

// Children returns the bucket of the given page, or nil.
func (t Tree) Children(pageID string) []domain.Shape {
	for _, n := range t.Pages {
		if n.Page.ID == pageID {
			return n.Children
		}
	}
	return nil
}

// Memo caches the last built tree by cache revision so rebuilds only happen
// when the shape list changes. Repairs are handed out once per revision.
type Memo struct {
	mu       sync.Mutex
	revision uint64
	built    bool
	tree     Tree
}

// Tree returns the tree for the given revision, building it if needed.
// The second return value reports whether a build happened.
func (m *Memo) Tree(revision uint64, shapes func() []domain.Shape) (Tree, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.built && m.revision == revision {
		cached := m.tree
		cached.Repairs = nil
		return cached, false
	}
	m.tree = Build(shapes())
	m.revision = revision
	m.built = true
	return m.tree, true
}

// Invalidate forces the next call to rebuild.
func (m *Memo) Invalidate() {
	m.mu.Lock()
	m.built = false
	m.mu.Unlock()
}
