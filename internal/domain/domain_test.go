package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields_PageIDTriState(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want *string
	}{
		{"absent", `{"xOffset":4}`, nil},
		{"null clears", `{"pageId":null}`, AssignPage("")},
		{"assigns", `{"pageId":"p1"}`, AssignPage("p1")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var f Fields
			require.NoError(t, json.Unmarshal([]byte(tc.in), &f))
			assert.Equal(t, tc.want, f.PageID)
		})
	}
}

func TestFields_MarshalPageID(t *testing.T) {
	data, err := json.Marshal(Fields{PageID: AssignPage("")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"pageId":null}`, string(data))

	data, err = json.Marshal(Fields{XOffset: Float(3), PageID: AssignPage("p1")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"xOffset":3,"pageId":"p1"}`, string(data))

	data, err = json.Marshal(Fields{Width: Float(10)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"width":10}`, string(data))
}

func TestShapeUpdate_ArgsEnvelope(t *testing.T) {
	var u ShapeUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"shapeId":"b","args":{"pageId":null,"zIndex":2}}`), &u))
	assert.Equal(t, "b", u.ShapeID)
	assert.Equal(t, AssignPage(""), u.Fields.PageID)
	assert.Equal(t, Int(2), u.Fields.ZIndex)
}

func TestFields_ApplyToMergesStyle(t *testing.T) {
	s := Shape{ID: "a", Type: ShapeTypeButton, PageID: "p1", Style: map[string]string{"color": "red", "bold": "1"}}
	Fields{PageID: AssignPage(""), Style: map[string]string{"color": "blue"}, Title: String("ok")}.ApplyTo(&s)

	assert.Empty(t, s.PageID)
	assert.Equal(t, "ok", s.Title)
	assert.Equal(t, map[string]string{"color": "blue", "bold": "1"}, s.Style)
}

func TestFields_Empty(t *testing.T) {
	assert.True(t, Fields{}.Empty())
	assert.False(t, Fields{PageID: AssignPage("")}.Empty())
	assert.True(t, GeometryOf(Shape{}).TouchesPosition())
}

func TestShape_Validate(t *testing.T) {
	ok := Shape{ID: "a", Type: ShapeTypeCard, Width: 10, Height: 10}
	assert.NoError(t, ok.Validate())

	bad := []Shape{
		{Type: ShapeTypeCard},
		{ID: "a", Type: "spaceship"},
		{ID: "a", Type: ShapeTypeCard, Width: -1},
		{ID: "p", Type: ShapeTypePage, PageID: "q"},
	}
	for _, s := range bad {
		assert.ErrorIs(t, s.Validate(), ErrInvalidShape)
	}
}

func TestShape_CloneIsDeep(t *testing.T) {
	s := Shape{ID: "a", MaxWidth: Float(5), Style: map[string]string{"k": "v"}}
	c := s.Clone()
	*c.MaxWidth = 9
	c.Style["k"] = "w"

	assert.Equal(t, 5.0, *s.MaxWidth)
	assert.Equal(t, "v", s.Style["k"])
	assert.Nil(t, CloneShapes(nil))
}

func TestPages(t *testing.T) {
	shapes := []Shape{{ID: "b", Type: ShapeTypeButton}, {ID: "p", Type: ShapeTypePage}}
	pages := Pages(shapes)
	require.Len(t, pages, 1)
	assert.Equal(t, "p", pages[0].ID)
	assert.True(t, HandleRight.Valid())
	assert.False(t, Direction("diagonal").Valid())
}
