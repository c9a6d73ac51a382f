package optimistic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvas/internal/domain"
)

func page(id string, x, y, w, h float64) domain.Shape {
	return domain.Shape{ID: id, Type: domain.ShapeTypePage, XOffset: x, YOffset: y, Width: w, Height: h}
}

func button(id, pageID string, x, y, w, h float64) domain.Shape {
	return domain.Shape{
		ID: id, Type: domain.ShapeTypeButton, PageID: pageID,
		XOffset: x, YOffset: y, Width: w, Height: h,
		Style: map[string]string{"variant": "Primary"},
	}
}

func seeded(shapes ...domain.Shape) *Cache {
	c := NewCache()
	c.replace(shapes)
	return c
}

func ids(shapes []domain.Shape) []string {
	out := make([]string, len(shapes))
	for i, s := range shapes {
		out[i] = s.ID
	}
	return out
}

func TestCache_SnapshotIsDeepCopy(t *testing.T) {
	c := seeded(button("a", "", 0, 0, 10, 10))

	snap := c.Snapshot()
	snap[0].Style["variant"] = "Secondary"

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "Primary", got.Style["variant"])
}

func TestCache_RevisionBumpsOnWrite(t *testing.T) {
	c := seeded(button("a", "", 0, 0, 10, 10))
	r0 := c.Revision()

	tx := c.Begin()
	tx.Put(button("b", "", 0, 0, 10, 10))
	assert.Greater(t, c.Revision(), r0)
	assert.Equal(t, 2, c.Len())
}

func TestTx_RollbackRestoresExactState(t *testing.T) {
	c := seeded(
		page("p", 0, 0, 1000, 562),
		button("a", "p", 10, 10, 50, 50),
		button("b", "p", 100, 100, 50, 50),
		button("c", "", 2000, 0, 50, 50),
	)
	before := c.Snapshot()

	tx := c.Begin()
	moved := button("a", "", 5000, 5000, 50, 50)
	moved.Style["variant"] = "Ghost"
	tx.Put(moved)
	tx.Remove("b")
	tx.Put(button("new", "", 0, 0, 5, 5))
	tx.Put(button("a", "", 6000, 6000, 50, 50))

	tx.Rollback()
	assert.Equal(t, before, c.Snapshot())
}

func TestTx_RollbackKeysIsSelective(t *testing.T) {
	c := seeded(button("a", "", 0, 0, 10, 10), button("b", "", 0, 0, 10, 10))

	tx := c.Begin()
	tx.Put(button("a", "", 1, 1, 10, 10))
	tx.Put(button("b", "", 2, 2, 10, 10))
	tx.RollbackKeys([]string{"b"})

	a, _ := c.Get("a")
	b, _ := c.Get("b")
	assert.Equal(t, 1.0, a.XOffset)
	assert.Equal(t, 0.0, b.XOffset)
	assert.Equal(t, []string{"a"}, tx.Keys())
}

func TestTx_RollbackRemovalKeepsListPosition(t *testing.T) {
	c := seeded(button("a", "", 0, 0, 1, 1), button("b", "", 0, 0, 1, 1), button("c", "", 0, 0, 1, 1))

	tx := c.Begin()
	tx.Remove("a")
	tx.Remove("b")
	tx.Rollback()

	assert.Equal(t, []string{"a", "b", "c"}, ids(c.Snapshot()))
}

func TestTx_CommitForgetsPreImages(t *testing.T) {
	c := seeded(button("a", "", 0, 0, 1, 1))

	tx := c.Begin()
	tx.Put(button("a", "", 9, 9, 1, 1))
	tx.Commit()
	tx.Rollback()

	a, _ := c.Get("a")
	assert.Equal(t, 9.0, a.XOffset)
}
