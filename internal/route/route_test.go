package route

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvas/internal/domain"
	"canvas/internal/geometry"
)

func box(id string, x, y, w, h float64) domain.Shape {
	return domain.Shape{ID: id, Type: domain.ShapeTypeRectangle, XOffset: x, YOffset: y, Width: w, Height: h}
}

func pg(id string, x, y, w, h float64) domain.Shape {
	s := box(id, x, y, w, h)
	s.Type = domain.ShapeTypePage
	return s
}

func pt(x, y float64) geometry.Point { return geometry.Point{X: x, Y: y} }

func assertOrthogonal(t *testing.T, pts []geometry.Point) {
	t.Helper()
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		assert.True(t, math.Abs(a.X-b.X) < 0.5 || math.Abs(a.Y-b.Y) < 0.5,
			"diagonal segment %v -> %v", a, b)
	}
}

func TestRoute_OpenFieldIsSingleBend(t *testing.T) {
	pts := Route(pt(0, 0), pt(100, 100), nil, domain.DirectionVertical)

	assert.Equal(t, []geometry.Point{pt(0, 0), pt(100, 0), pt(100, 100)}, pts)
}

func TestRoute_AvoidsObstacle(t *testing.T) {
	wall := box("w", 100, 0, 100, 100)
	pts := Route(pt(0, 50), pt(300, 50), []domain.Shape{wall}, domain.DirectionVertical)

	require.NotEmpty(t, pts)
	assert.Equal(t, pt(0, 50), pts[0])
	assert.Equal(t, pt(300, 50), pts[len(pts)-1])
	assertOrthogonal(t, pts)

	r := rectOf(wall)
	for i := 1; i < len(pts); i++ {
		assert.False(t, r.crosses(pts[i-1], pts[i]), "segment %v -> %v crosses obstacle", pts[i-1], pts[i])
	}
	length, err := Length(pts)
	require.NoError(t, err)
	assert.Greater(t, length, 300.0)
}

func TestRoute_EndpointInsideObstacleIsEmpty(t *testing.T) {
	blocker := box("b", 250, 0, 100, 100)

	assert.Empty(t, Route(pt(0, 50), pt(300, 50), []domain.Shape{blocker}, domain.DirectionVertical))
	assert.NotEmpty(t, RouteOrFallback(pt(0, 50), pt(300, 50), []domain.Shape{blocker}, domain.DirectionVertical))
}

func TestRoute_UnreachableDestination(t *testing.T) {
	ring := []domain.Shape{
		box("top", 400, 400, 200, 20),
		box("bottom", 400, 580, 200, 20),
		box("left", 400, 400, 20, 200),
		box("right", 580, 400, 20, 200),
	}

	assert.Nil(t, Route(pt(0, 0), pt(500, 500), ring, domain.DirectionHorizontal))

	fallback := RouteOrFallback(pt(0, 0), pt(500, 500), ring, domain.DirectionHorizontal)
	require.NotEmpty(t, fallback)
	assert.Equal(t, pt(500, 500), fallback[len(fallback)-1])
	assertOrthogonal(t, fallback)
}

func TestRoute_SamePoint(t *testing.T) {
	assert.Equal(t, []geometry.Point{pt(5, 5)}, Route(pt(5, 5), pt(5, 5), nil, domain.DirectionVertical))
}

func TestDirectionFor(t *testing.T) {
	assert.Equal(t, domain.DirectionVertical, DirectionFor(domain.HandleLeft))
	assert.Equal(t, domain.DirectionVertical, DirectionFor(domain.HandleRight))
	assert.Equal(t, domain.DirectionHorizontal, DirectionFor(domain.HandleTop))
	assert.Equal(t, domain.DirectionHorizontal, DirectionFor(domain.HandleBottom))
}

func TestAutoHandle(t *testing.T) {
	s := box("s", 100, 100, 100, 50)

	tests := []struct {
		p    geometry.Point
		want domain.HandleType
	}{
		{pt(50, 120), domain.HandleLeft},
		{pt(250, 120), domain.HandleRight},
		{pt(150, 50), domain.HandleTop},
		{pt(150, 200), domain.HandleBottom},
		{pt(105, 125), domain.HandleLeft},
		{pt(150, 148), domain.HandleBottom},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AutoHandle(s, tt.p), "point %v", tt.p)
	}
}

func TestObstacles_SkipsHostPages(t *testing.T) {
	host := pg("host", 0, 0, 1000, 562)
	other := pg("other", 2000, 0, 1000, 562)
	src := box("src", 100, 100, 50, 50)

	obs := Obstacles(src, []domain.Shape{host, other, src})

	assert.Equal(t, []string{"src", "other"}, ExcludeList(obs))
}

func TestResolve(t *testing.T) {
	a := box("a", 0, 0, 100, 50)
	b := box("b", 400, 300, 100, 50)
	p := domain.Path{
		ShapeStartID: "a", ShapeStartHandleType: domain.HandleRight,
		ShapeEndID: "b", ShapeEndHandleType: domain.HandleLeft,
		Direction:       domain.DirectionVertical,
		PageExcludeList: []string{"a", "missing"},
	}

	pts, err := Resolve(p, []domain.Shape{a, b})
	require.NoError(t, err)
	assert.Equal(t, geometry.HandlePoint(a, domain.HandleRight), pts[0])
	assert.Equal(t, geometry.HandlePoint(b, domain.HandleLeft), pts[len(pts)-1])
	assertOrthogonal(t, pts)

	p.ShapeEndID = "gone"
	_, err = Resolve(p, []domain.Shape{a, b})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLength(t *testing.T) {
	l, err := Length([]geometry.Point{pt(0, 0), pt(10, 0), pt(10, 5)})
	require.NoError(t, err)
	assert.Equal(t, 15.0, l)

	_, err = Length(nil)
	assert.ErrorIs(t, err, ErrDegenerate)
}
