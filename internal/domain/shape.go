package domain

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidShape = errors.New("invalid shape")
)

type ShapeType string

const (
	ShapeTypePage       ShapeType = "page"
	ShapeTypeButton     ShapeType = "button"
	ShapeTypeInputField ShapeType = "inputField"
	ShapeTypeText       ShapeType = "text"
	ShapeTypeCheckbox   ShapeType = "checkbox"
	ShapeTypeRadio      ShapeType = "radio"
	ShapeTypeToggle     ShapeType = "toggle"
	ShapeTypeCard       ShapeType = "card"
	ShapeTypeImage      ShapeType = "image"
	ShapeTypeDropdown   ShapeType = "dropdown"
	ShapeTypeCircle     ShapeType = "circle"
	ShapeTypeChatbot    ShapeType = "chatbot"
	ShapeTypeDivider    ShapeType = "divider"
	ShapeTypeNavigation ShapeType = "navigation"
	ShapeTypeInstance   ShapeType = "instance"
	ShapeTypeRectangle  ShapeType = "rectangle"
)

var shapeTypes = map[ShapeType]struct{}{
	ShapeTypePage: {}, ShapeTypeButton: {}, ShapeTypeInputField: {}, ShapeTypeText: {},
	ShapeTypeCheckbox: {}, ShapeTypeRadio: {}, ShapeTypeToggle: {}, ShapeTypeCard: {},
	ShapeTypeImage: {}, ShapeTypeDropdown: {}, ShapeTypeCircle: {}, ShapeTypeChatbot: {},
	ShapeTypeDivider: {}, ShapeTypeNavigation: {}, ShapeTypeInstance: {}, ShapeTypeRectangle: {},
}

// Valid reports whether t belongs to the closed set of shape types.
func (t ShapeType) Valid() bool {
	_, ok := shapeTypes[t]
	return ok
}

// Shape is the universal positioned entity on the canvas.
// XOffset/YOffset are global canvas coordinates for every shape type;
// page-local coordinates only exist at the render boundary.
type Shape struct {
	ID              string            `json:"id"`
	Type            ShapeType         `json:"type"`
	XOffset         float64           `json:"xOffset"`
	YOffset         float64           `json:"yOffset"`
	Width           float64           `json:"width"`
	Height          float64           `json:"height"`
	MinWidth        float64           `json:"minWidth"`
	MinHeight       float64           `json:"minHeight"`
	MaxWidth        *float64          `json:"maxWidth"`
	MaxHeight       *float64          `json:"maxHeight"`
	ZIndex          int               `json:"zIndex"`
	IsInstanceChild bool              `json:"isInstanceChild"`
	PageID          string            `json:"pageId,omitempty"` // empty for pages and orphans
	Title           string            `json:"title,omitempty"`
	Description     string            `json:"description,omitempty"`
	Subtype         string            `json:"subtype,omitempty"`
	Content         string            `json:"content,omitempty"`
	Style           map[string]string `json:"style,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

func (s Shape) IsPage() bool { return s.Type == ShapeTypePage }

// Clone returns a deep copy; pointer and map fields are not shared.
func (s Shape) Clone() Shape {
	c := s
	if s.MaxWidth != nil {
		v := *s.MaxWidth
		c.MaxWidth = &v
	}
	if s.MaxHeight != nil {
		v := *s.MaxHeight
		c.MaxHeight = &v
	}
	if s.Style != nil {
		c.Style = make(map[string]string, len(s.Style))
		for k, v := range s.Style {
			c.Style[k] = v
		}
	}
	return c
}

// CloneShapes deep-copies a shape list.
func CloneShapes(shapes []Shape) []Shape {
	if shapes == nil {
		return nil
	}
	out := make([]Shape, len(shapes))
	for i, s := range shapes {
		out[i] = s.Clone()
	}
	return out
}

// Pages returns the page shapes of list in list order.
func Pages(shapes []Shape) []Shape {
	var pages []Shape
	for _, s := range shapes {
		if s.IsPage() {
			pages = append(pages, s)
		}
	}
	return pages
}

// Validate checks the fields every persisted shape must carry.
func (s Shape) Validate() error {
	switch {
	case s.ID == "":
		return errors.Join(ErrInvalidShape, errors.New("id is required"))
	case !s.Type.Valid():
		return errors.Join(ErrInvalidShape, errors.New("unknown type "+string(s.Type)))
	case s.Width < 0 || s.Height < 0:
		return errors.Join(ErrInvalidShape, errors.New("negative size"))
	case s.IsPage() && s.PageID != "":
		return errors.Join(ErrInvalidShape, errors.New("a page cannot have a pageId"))
	}
	return nil
}

// BatchOutcome is what the store reports for one item of a batch update.
// Err is nil when the item applied and carries ErrNotFound or
// ErrInvalidShape otherwise.
type BatchOutcome struct {
	ShapeID string
	Err     error
}

// BatchItemResult is the per-item outcome of a batch update (HTTP 207 body).
type BatchItemResult struct {
	ShapeID string `json:"shapeId"`
	Success bool   `json:"success"`
	Status  int    `json:"status"`
}

type ShapeStore interface {
	CreateShape(s *Shape) error
	GetShape(id string) (*Shape, error)
	ListShapes() ([]Shape, error)
	UpdateShape(id string, f Fields) (*Shape, error)
	BatchUpdate(updates []ShapeUpdate) ([]BatchOutcome, error)
	DeleteShape(id string) error
	BatchDelete(ids []string) error
	InsertShapes(shapes []Shape) ([]Shape, error)
}
