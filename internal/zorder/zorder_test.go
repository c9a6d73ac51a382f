package zorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvas/internal/domain"
)

func shape(id string, t domain.ShapeType, z int, x, y, w, h float64) domain.Shape {
	return domain.Shape{ID: id, Type: t, ZIndex: z, XOffset: x, YOffset: y, Width: w, Height: h}
}

func free(id string, z int) domain.Shape {
	return shape(id, domain.ShapeTypeButton, z, 5000+float64(z)*200, 5000, 100, 30)
}

func sel(ids ...string) map[string]struct{} {
	m := map[string]struct{}{}
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func zOf(shapes []domain.Shape) map[string]int {
	m := map[string]int{}
	for _, s := range shapes {
		m[s.ID] = s.ZIndex
	}
	return m
}

func TestReorder_EmptySelectionReturnsInput(t *testing.T) {
	in := []domain.Shape{free("a", 3), free("b", 7)}
	for _, d := range []Direction{Up, Down, Front, Back} {
		assert.Equal(t, in, Reorder(in, nil, d))
	}
}

func TestReorder_FrontKeepsOthersAndRelativeOrder(t *testing.T) {
	in := []domain.Shape{free("a", 0), free("b", 1), free("c", 7)}
	out := Reorder(in, sel("a", "b"), Front)

	assert.Equal(t, map[string]int{"a": 8, "b": 9, "c": 7}, zOf(out))
	assert.Equal(t, 0, in[0].ZIndex, "input is not mutated")
}

func TestReorder_BackHomeless(t *testing.T) {
	in := []domain.Shape{free("a", 0), free("b", 1), free("c", 2)}
	out := Reorder(in, sel("c"), Back)
	assert.Equal(t, map[string]int{"c": 0, "a": 1, "b": 2}, zOf(out))
}

func TestReorder_BackNeverBelowHomePage(t *testing.T) {
	in := []domain.Shape{
		free("x", 0),
		free("y", 1),
		shape("p", domain.ShapeTypePage, 5, 0, 0, 1000, 562),
		shape("c", domain.ShapeTypeText, 6, 100, 100, 50, 50),
	}
	out := Reorder(in, sel("c"), Back)
	z := zOf(out)

	assert.Equal(t, map[string]int{"x": 0, "y": 1, "p": 2, "c": 3}, z)
	assert.Greater(t, z["c"], z["p"])
}

func TestReorder_BackWithPageAndChildSelected(t *testing.T) {
	in := []domain.Shape{
		free("x", 0),
		shape("p", domain.ShapeTypePage, 1, 0, 0, 1000, 562),
		shape("c", domain.ShapeTypeText, 2, 100, 100, 50, 50),
	}
	out := Reorder(in, sel("p", "c"), Back)
	assert.Equal(t, map[string]int{"p": 0, "c": 1, "x": 2}, zOf(out))
}

func TestReorder_UpDown(t *testing.T) {
	in := []domain.Shape{free("a", 0), free("b", 1), free("c", 2)}

	assert.Equal(t, map[string]int{"b": 0, "a": 1, "c": 2}, zOf(Reorder(in, sel("a"), Up)))
	assert.Equal(t, map[string]int{"a": 0, "b": 1, "c": 2}, zOf(Reorder(in, sel("c"), Up)), "clamped at the top")
	assert.Equal(t, map[string]int{"a": 0, "c": 1, "b": 2}, zOf(Reorder(in, sel("c"), Down)))
	assert.Equal(t, map[string]int{"a": 0, "b": 1, "c": 2}, zOf(Reorder(in, sel("a"), Down)), "clamped at the bottom")
}

func TestReorder_UpPreservesSelectionOrder(t *testing.T) {
	in := []domain.Shape{free("a", 0), free("b", 1), free("c", 2)}
	out := Reorder(in, sel("a", "b"), Up)
	assert.Equal(t, map[string]int{"c": 0, "a": 1, "b": 2}, zOf(out))
}

func TestReorder_DownClampedAboveHomePage(t *testing.T) {
	in := []domain.Shape{
		free("x", 0),
		shape("p", domain.ShapeTypePage, 1, 0, 0, 1000, 562),
		shape("c", domain.ShapeTypeText, 2, 100, 100, 50, 50),
	}
	out := Reorder(in, sel("c"), Down)
	assert.Equal(t, map[string]int{"x": 0, "p": 1, "c": 2}, zOf(out))
}

func TestReorder_DensifiesAndBreaksTiesByArrayOrder(t *testing.T) {
	in := []domain.Shape{free("a", 10), free("b", 10), free("c", 40)}
	out := Reorder(in, sel("c"), Down)
	assert.Equal(t, map[string]int{"a": 0, "c": 1, "b": 2}, zOf(out))
}

func TestDiff(t *testing.T) {
	before := []domain.Shape{free("a", 0), free("b", 1), free("c", 2)}
	after := Reorder(before, sel("c"), Back)

	updates := Diff(before, after)
	require.Len(t, updates, 3)
	for _, u := range updates {
		require.NotNil(t, u.Fields.ZIndex)
		assert.False(t, u.Fields.TouchesPosition())
	}

	assert.Empty(t, Diff(before, before))
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("front")
	require.NoError(t, err)
	assert.Equal(t, Front, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}
