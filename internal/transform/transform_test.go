package transform

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvas/internal/domain"
	"canvas/internal/geometry"
)

func page(id string, x, y, w, h float64) domain.Shape {
	return domain.Shape{ID: id, Type: domain.ShapeTypePage, XOffset: x, YOffset: y, Width: w, Height: h}
}

func child(id string, x, y, w, h float64, pageID string) domain.Shape {
	return domain.Shape{ID: id, Type: domain.ShapeTypeButton, XOffset: x, YOffset: y, Width: w, Height: h, PageID: pageID}
}

func byID(updates []domain.ShapeUpdate) map[string]domain.Fields {
	m := map[string]domain.Fields{}
	for _, u := range updates {
		m[u.ShapeID] = u.Fields
	}
	return m
}

func TestDragStop_PageCarriesChildren(t *testing.T) {
	shapes := []domain.Shape{
		page("P", 0, 0, 1000, 562),
		child("A", 100, 100, 50, 50, "P"),
	}

	updates, err := DragStop(shapes, "P", geometry.Point{X: 500, Y: 500})
	require.NoError(t, err)
	got := byID(updates)

	require.Contains(t, got, "P")
	assert.Equal(t, 500.0, *got["P"].XOffset)
	assert.Equal(t, 500.0, *got["P"].YOffset)
	assert.Nil(t, got["P"].PageID, "pages never carry a pageId")

	require.Contains(t, got, "A")
	assert.Equal(t, 600.0, *got["A"].XOffset)
	assert.Equal(t, 600.0, *got["A"].YOffset)
	assert.Equal(t, "P", *got["A"].PageID)
}

func TestDragStop_PageDetachesFormerChildrenOutsideIt(t *testing.T) {
	shapes := []domain.Shape{
		page("P", 0, 0, 1000, 562),
		child("inside", 100, 100, 50, 50, "P"),
		child("drifted", 2000, 2000, 50, 50, "P"),
		child("other", 100, 100, 50, 50, ""),
	}

	updates, err := DragStop(shapes, "P", geometry.Point{X: 10, Y: 10})
	require.NoError(t, err)
	got := byID(updates)

	require.Contains(t, got, "drifted")
	assert.Nil(t, got["drifted"].XOffset, "detached shapes are not moved")
	assert.Equal(t, "", *got["drifted"].PageID)
	assert.NotContains(t, got, "other")
	assert.Equal(t, 110.0, *got["inside"].XOffset)
}

func TestDragStop_OverlappingPageDoesNotStealCarriedChild(t *testing.T) {
	// Q also contains the child after the move, but it stays inside P.
	shapes := []domain.Shape{
		page("P", 0, 0, 200, 200),
		page("Q", 0, 0, 5000, 5000),
		child("A", 150, 150, 40, 40, "P"),
	}
	updates, err := DragStop(shapes, "P", geometry.Point{X: 100, Y: 100})
	require.NoError(t, err)
	got := byID(updates)

	assert.Equal(t, 250.0, *got["A"].XOffset)
	assert.Equal(t, "P", *got["A"].PageID, "rigid motion keeps the child inside")
}

func TestDragStop_ChildUsesLocalReleaseAndRehosts(t *testing.T) {
	shapes := []domain.Shape{
		page("P", 100, 100, 500, 500),
		page("Q", 1000, 100, 500, 500),
		child("A", 150, 150, 50, 50, "P"),
	}

	// released at page-local (950, 50): global (1050, 150), inside Q
	updates, err := DragStop(shapes, "A", geometry.Point{X: 950, Y: 50})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	f := updates[0].Fields
	assert.Equal(t, 1050.0, *f.XOffset)
	assert.Equal(t, 150.0, *f.YOffset)
	assert.Equal(t, "Q", *f.PageID)

	// released outside every page
	updates, err = DragStop(shapes, "A", geometry.Point{X: 5000, Y: 5000})
	require.NoError(t, err)
	assert.Equal(t, "", *updates[0].Fields.PageID)
}

func TestDragStop_FlushWithEdgeIsNotContained(t *testing.T) {
	shapes := []domain.Shape{
		page("P", 0, 0, 100, 100),
		child("A", 500, 500, 10, 10, ""),
	}
	updates, err := DragStop(shapes, "A", geometry.Point{X: 0, Y: 10})
	require.NoError(t, err)
	assert.Equal(t, "", *updates[0].Fields.PageID)
}

func TestDragStop_UnknownShape(t *testing.T) {
	_, err := DragStop(nil, "nope", geometry.Point{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestGroupDragStop(t *testing.T) {
	shapes := []domain.Shape{
		page("P", 0, 0, 1000, 562),
		child("A", 100, 100, 50, 50, "P"),
		child("B", 200, 100, 50, 50, "P"),
		child("C", 3000, 3000, 50, 50, ""),
		page("Q", 2000, 2000, 2000, 2000),
	}
	updates := GroupDragStop(shapes, []string{"P", "B", "C"}, geometry.Point{X: 10, Y: 20})
	got := byID(updates)

	assert.Len(t, updates, 4, "P, A (carried), B and C; B moves once")
	assert.Equal(t, 110.0, *got["A"].XOffset)
	assert.Equal(t, 120.0, *got["A"].YOffset)
	assert.Equal(t, 210.0, *got["B"].XOffset)
	assert.Equal(t, "P", *got["A"].PageID)
	assert.Equal(t, "P", *got["B"].PageID)
	assert.Equal(t, "Q", *got["C"].PageID)
	assert.Nil(t, got["P"].PageID)
	assert.NotContains(t, got, "Q")
}

func TestRelocate_PageCarriesUntargetedChildren(t *testing.T) {
	shapes := []domain.Shape{
		page("P", 0, 0, 1000, 562),
		child("A", 100, 100, 50, 50, "P"),
		child("B", 200, 100, 50, 50, "P"),
	}
	updates := Relocate(shapes, map[string]geometry.Point{
		"P": {X: 3000, Y: 3000},
		"B": {X: 5000, Y: 5000},
	})
	got := byID(updates)

	require.Len(t, updates, 3)
	assert.Equal(t, 3100.0, *got["A"].XOffset)
	assert.Equal(t, 3100.0, *got["A"].YOffset)
	assert.Equal(t, "P", *got["A"].PageID)
	assert.Equal(t, 5000.0, *got["B"].XOffset)
	assert.Equal(t, "", *got["B"].PageID, "B left the moved page")
	for _, u := range updates {
		assert.NotNil(t, u.Fields.Type)
	}
}

func TestResize(t *testing.T) {
	s := domain.Shape{ID: "s", Type: domain.ShapeTypeText, XOffset: 100, YOffset: 100, Width: 50, Height: 40, MinWidth: 49, MinHeight: 20}

	tests := []struct {
		handle     Handle
		delta      Size
		x, y, w, h float64
	}{
		{HandleBottomRight, Size{10, 20}, 100, 100, 60, 60},
		{HandleRight, Size{10, 20}, 100, 100, 60, 40},
		{HandleBottom, Size{10, 20}, 100, 100, 50, 60},
		{HandleLeft, Size{10, 0}, 90, 100, 60, 40},
		{HandleTop, Size{0, 10}, 100, 90, 50, 50},
		{HandleTopLeft, Size{10, 10}, 90, 90, 60, 50},
		{HandleTopRight, Size{10, 10}, 100, 90, 60, 50},
		{HandleBottomLeft, Size{10, 10}, 90, 100, 60, 50},
		// shrinking below the floor keeps the opposite edge fixed
		{HandleTopLeft, Size{-100, -100}, 145, 135, 5, 5},
		{HandleBottomRight, Size{-100, -100}, 100, 100, 5, 5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %v", tt.handle, tt.delta), func(t *testing.T) {
			u, err := Resize(s, tt.handle, tt.delta)
			require.NoError(t, err)
			assert.Equal(t, tt.x, *u.Fields.XOffset)
			assert.Equal(t, tt.y, *u.Fields.YOffset)
			assert.Equal(t, tt.w, *u.Fields.Width)
			assert.Equal(t, tt.h, *u.Fields.Height)
			// the edges opposite the handle never move
			if !tt.handle.movesLeftEdge() {
				assert.Equal(t, s.XOffset, *u.Fields.XOffset)
			} else {
				assert.Equal(t, s.XOffset+s.Width, *u.Fields.XOffset+*u.Fields.Width)
			}
			if tt.handle.movesTopEdge() {
				assert.Equal(t, s.YOffset+s.Height, *u.Fields.YOffset+*u.Fields.Height)
			}
		})
	}
}

func TestResize_InstanceChildLocked(t *testing.T) {
	_, err := Resize(domain.Shape{ID: "i", IsInstanceChild: true}, HandleRight, Size{10, 0})
	assert.ErrorIs(t, err, ErrResizeLocked)
}

func TestParseHandle(t *testing.T) {
	h, err := ParseHandle("bottomLeft")
	require.NoError(t, err)
	assert.Equal(t, HandleBottomLeft, h)
	_, err = ParseHandle("middle")
	assert.Error(t, err)
}

func TestCopyPlan(t *testing.T) {
	shapes := []domain.Shape{
		page("P", 0, 0, 1000, 562),
		child("A", 100, 100, 50, 50, "P"),
		child("B", 200, 100, 50, 50, "P"),
		child("C", 3000, 3000, 50, 50, ""),
	}
	n := 0
	newID := func() string {
		n++
		return fmt.Sprintf("new-%d", n)
	}

	copies := CopyPlan(shapes, []string{"P", "A", "C"}, newID)
	require.Len(t, copies, 4)

	assert.Equal(t, "new-1", copies[0].ID)
	assert.True(t, copies[0].IsPage())
	assert.Equal(t, 0.0, copies[0].XOffset)
	for _, c := range copies[1:3] {
		assert.Equal(t, "new-1", c.PageID)
	}
	assert.Equal(t, "new-4", copies[3].ID)
	assert.Equal(t, "", copies[3].PageID)

	// originals untouched
	assert.Equal(t, "P", shapes[1].PageID)
}
