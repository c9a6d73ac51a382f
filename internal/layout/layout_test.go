package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvas/internal/domain"
	"canvas/internal/geometry"
)

func page(id string, x, y float64) domain.Shape {
	return domain.Shape{ID: id, Type: domain.ShapeTypePage, XOffset: x, YOffset: y, Width: 1000, Height: 562}
}

func TestDefaults(t *testing.T) {
	p := Defaults(domain.ShapeTypePage)
	assert.Equal(t, 1000.0, p.Width)
	assert.Equal(t, 562.0, p.Height)
	assert.Equal(t, 461.0, p.MinWidth)
	require.NotNil(t, p.MaxWidth)
	assert.Equal(t, 1000.0, *p.MaxWidth)
	assert.Equal(t, "New Page", p.Title)

	b := Defaults(domain.ShapeTypeButton)
	assert.Equal(t, 144.0, b.Width)
	assert.Equal(t, "Medium", b.Style["size"])

	txt := Defaults(domain.ShapeTypeText)
	assert.Equal(t, "Double click to edit...", txt.Content)
	assert.Equal(t, "fixed-size", txt.Style["widthMode"])

	other := Defaults(domain.ShapeTypeCircle)
	assert.Equal(t, 100.0, other.Width)
	assert.Equal(t, 20.0, other.MinHeight)
}

func TestNewShape_ButtonCentredAndHosted(t *testing.T) {
	existing := []domain.Shape{page("p", 0, 0)}

	s := NewShape("b1", domain.ShapeTypeButton, geometry.Point{X: 500, Y: 300}, existing)

	assert.Equal(t, 500-72.0, s.XOffset)
	assert.Equal(t, 300-14.5, s.YOffset)
	assert.Equal(t, 2, s.ZIndex)
	assert.Equal(t, "p", s.PageID)
}

func TestNewShape_StyleIsNotShared(t *testing.T) {
	a := NewShape("a", domain.ShapeTypeText, geometry.Point{}, nil)
	a.Style["fontSize"] = "text-xl"

	b := NewShape("b", domain.ShapeTypeText, geometry.Point{}, nil)
	assert.Equal(t, "text-sm", b.Style["fontSize"])
}

func TestNewShape_PageAvoidsExistingPages(t *testing.T) {
	existing := []domain.Shape{page("p", 0, 0)}

	s := NewShape("p2", domain.ShapeTypePage, geometry.Point{X: 500, Y: 281}, existing)

	assert.Equal(t, 0, s.ZIndex)
	assert.Empty(t, s.PageID)
	assert.Equal(t, 1040.0, s.XOffset)
	assert.Equal(t, 0.0, s.YOffset)
}

func TestFindOpenSpace_KeepsFreeCandidate(t *testing.T) {
	got := FindOpenSpace([]domain.Shape{page("p", 0, 0)}, geometry.Point{X: 5000, Y: 0}, 1000, 562)
	assert.Equal(t, geometry.Point{X: 5000, Y: 0}, got)
}

func TestFindOpenSpace_RightOfRightmostPage(t *testing.T) {
	pages := []domain.Shape{page("a", 0, 0), page("b", 1040, 300), page("c", 0, 700)}

	got := FindOpenSpace(pages, geometry.Point{X: 0, Y: 0}, 1000, 562)
	assert.Equal(t, geometry.Point{X: 2080, Y: 300}, got)
}

func TestFindOpenSpace_NoPages(t *testing.T) {
	got := FindOpenSpace(nil, geometry.Point{X: 7, Y: 9}, 1000, 562)
	assert.Equal(t, geometry.Point{X: 7, Y: 9}, got)
}

func TestFindOpenSpace_ResultNeverOverlaps(t *testing.T) {
	pages := []domain.Shape{page("a", 0, 0), page("b", 0, 700), page("c", 1100, 0)}

	got := FindOpenSpace(pages, geometry.Point{X: 10, Y: 10}, 1000, 562)

	candidate := rect{got.X, got.Y, 1000, 562}
	for _, p := range pages {
		assert.False(t, candidate.intersects(rectOf(p)), "overlaps %s", p.ID)
	}
}

func TestNextPosition(t *testing.T) {
	p := page("p", 0, 0)

	pos, ok := NextPosition(p, nil, 100, 50)
	require.True(t, ok)
	assert.Equal(t, geometry.Point{X: 30, Y: 30}, pos)

	sibling := domain.Shape{ID: "s", XOffset: 30, YOffset: 30, Width: 100, Height: 50}
	pos, ok = NextPosition(p, []domain.Shape{sibling}, 100, 50)
	require.True(t, ok)
	assert.False(t, rect{pos.X, pos.Y, 100, 50}.intersects(rectOf(sibling).grow(Padding)))
	assert.True(t, geometry.Contains(p, domain.Shape{XOffset: pos.X, YOffset: pos.Y, Width: 100, Height: 50}))

	_, ok = NextPosition(p, nil, 2000, 50)
	assert.False(t, ok)
}

func TestArrangeGroup(t *testing.T) {
	shapes := []domain.Shape{
		{ID: "1", Width: 300, Height: 200},
		{ID: "2", Width: 300, Height: 200},
		{ID: "3", Width: 300, Height: 200},
	}

	ArrangeGroup(shapes, geometry.Point{}, 800)

	assert.Equal(t, 0.0, shapes[0].XOffset)
	assert.Equal(t, 360.0, shapes[1].XOffset)
	assert.Equal(t, 0.0, shapes[2].XOffset)
	assert.Equal(t, 270.0, shapes[2].YOffset)
}
