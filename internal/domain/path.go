package domain

import "time"

type HandleType string

const (
	HandleTop    HandleType = "top"
	HandleLeft   HandleType = "left"
	HandleBottom HandleType = "bottom"
	HandleRight  HandleType = "right"
)

func (h HandleType) Valid() bool {
	switch h {
	case HandleTop, HandleLeft, HandleBottom, HandleRight:
		return true
	}
	return false
}

type Direction string

const (
	DirectionVertical   Direction = "vertical"
	DirectionHorizontal Direction = "horizontal"
)

func (d Direction) Valid() bool {
	return d == DirectionVertical || d == DirectionHorizontal
}

// Path is a connector between two shape handles. PageExcludeList holds the ids
// of shapes the router must treat as obstacles.
type Path struct {
	ID                   string     `json:"id"`
	ShapeStartID         string     `json:"shapeStartId" validate:"required"`
	ShapeStartHandleType HandleType `json:"shapeStartHandleType" validate:"required,oneof=top left bottom right"`
	ShapeEndID           string     `json:"shapeEndId" validate:"required"`
	ShapeEndHandleType   HandleType `json:"shapeEndHandleType" validate:"required,oneof=top left bottom right"`
	Direction            Direction  `json:"direction" validate:"required,oneof=vertical horizontal"`
	PageExcludeList      []string   `json:"pageExcludeList"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"editedAt"`
}

// PathUpdate is the mutable subset of a Path.
type PathUpdate struct {
	ShapeEndID         *string     `json:"shapeEndId,omitempty"`
	ShapeEndHandleType *HandleType `json:"shapeEndHandleType,omitempty" validate:"omitempty,oneof=top left bottom right"`
	Direction          *Direction  `json:"direction,omitempty" validate:"omitempty,oneof=vertical horizontal"`
	PageExcludeList    []string    `json:"pageExcludeList,omitempty"`
}

type PathStore interface {
	// CreatePath inserts p, replacing any path that starts at the same shape.
	CreatePath(p *Path) error
	GetPath(id string) (*Path, error)
	ListPaths() ([]Path, error)
	UpdatePath(id string, u PathUpdate) (*Path, error)
	DeletePath(id string) error
}
