package transform

import (
	"errors"
	"fmt"
	"math"

	"canvas/internal/domain"
)

// MinSize is the floor for width and height after a resize, whatever the
// shape's configured minimums are.
const MinSize = 5.0

var ErrResizeLocked = errors.New("instance children cannot be resized")

type Handle string

const (
	HandleTop         Handle = "top"
	HandleRight       Handle = "right"
	HandleBottom      Handle = "bottom"
	HandleLeft        Handle = "left"
	HandleTopRight    Handle = "topRight"
	HandleBottomRight Handle = "bottomRight"
	HandleBottomLeft  Handle = "bottomLeft"
	HandleTopLeft     Handle = "topLeft"
)

func ParseHandle(s string) (Handle, error) {
	switch h := Handle(s); h {
	case HandleTop, HandleRight, HandleBottom, HandleLeft,
		HandleTopRight, HandleBottomRight, HandleBottomLeft, HandleTopLeft:
		return h, nil
	}
	return "", fmt.Errorf("unknown resize handle %q", s)
}

func (h Handle) movesLeftEdge() bool {
	return h == HandleLeft || h == HandleTopLeft || h == HandleBottomLeft
}

func (h Handle) movesTopEdge() bool {
	return h == HandleTop || h == HandleTopLeft || h == HandleTopRight
}

func (h Handle) resizesX() bool {
	return h != HandleTop && h != HandleBottom
}

func (h Handle) resizesY() bool {
	return h != HandleLeft && h != HandleRight
}

// Size is a resize delta: positive values grow the shape.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Resize applies a resize gesture dragged from handle. The edge or corner
// opposite the handle stays where it was.
func Resize(s domain.Shape, h Handle, delta Size) (domain.ShapeUpdate, error) {
	if s.IsInstanceChild {
		return domain.ShapeUpdate{}, fmt.Errorf("resize %s: %w", s.ID, ErrResizeLocked)
	}

	width, height := s.Width, s.Height
	if h.resizesX() {
		width = math.Max(s.Width+delta.Width, MinSize)
	}
	if h.resizesY() {
		height = math.Max(s.Height+delta.Height, MinSize)
	}

	x, y := s.XOffset, s.YOffset
	if h.movesLeftEdge() {
		x = s.XOffset + s.Width - width
	}
	if h.movesTopEdge() {
		y = s.YOffset + s.Height - height
	}

	t := s.Type
	return domain.ShapeUpdate{
		ShapeID: s.ID,
		Fields: domain.Fields{
			Type:    &t,
			Width:   domain.Float(width),
			Height:  domain.Float(height),
			XOffset: domain.Float(x),
			YOffset: domain.Float(y),
		},
	}, nil
}
