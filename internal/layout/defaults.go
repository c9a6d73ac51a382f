package layout

import (
	"canvas/internal/domain"
	"canvas/internal/geometry"
)

// Template is the default geometry and content of a freshly created shape.
type Template struct {
	Width, Height       float64
	MinWidth, MinHeight float64
	MaxWidth            *float64
	Title               string
	Description         string
	Subtype             string
	Content             string
	Style               map[string]string
}

// Defaults returns the template for t. Types without a dedicated template
// get a 100×100 box.
func Defaults(t domain.ShapeType) Template {
	switch t {
	case domain.ShapeTypePage:
		return Template{
			Width: 1000, Height: 562,
			MinWidth: 461, MinHeight: 562,
			MaxWidth:    domain.Float(1000),
			Title:       "New Page",
			Description: "Add a description to help document your wireframes",
			Subtype:     "Desktop",
		}
	case domain.ShapeTypeButton:
		return Template{
			Width: 144, Height: 29,
			MinWidth: 114, MinHeight: 23,
			Title:   "Confirm",
			Subtype: "Primary",
			Style: map[string]string{
				"size":           "Medium",
				"textAlign":      "center",
				"fontWeight":     "normal",
				"fontStyle":      "normal",
				"textDecoration": "none",
			},
		}
	case domain.ShapeTypeText:
		return Template{
			Width: 150, Height: 50,
			MinWidth: 49, MinHeight: 20,
			Content: "Double click to edit...",
			Style: map[string]string{
				"fontSize":  "text-sm",
				"fontColor": "text-white",
				"alignment": "left",
				"widthMode": "fixed-size",
			},
		}
	}
	return Template{Width: 100, Height: 100, MinWidth: 20, MinHeight: 20}
}

// NewShape builds a shape of type t centred on center. existing is the
// current canvas: its size sets the zIndex of non-page shapes and its pages
// drive the open-space search and the initial host page.
func NewShape(id string, t domain.ShapeType, center geometry.Point, existing []domain.Shape) domain.Shape {
	tpl := Defaults(t)
	s := domain.Shape{
		ID:          id,
		Type:        t,
		Width:       tpl.Width,
		Height:      tpl.Height,
		MinWidth:    tpl.MinWidth,
		MinHeight:   tpl.MinHeight,
		MaxWidth:    tpl.MaxWidth,
		Title:       tpl.Title,
		Description: tpl.Description,
		Subtype:     tpl.Subtype,
		Content:     tpl.Content,
		XOffset:     center.X - tpl.Width/2,
		YOffset:     center.Y - tpl.Height/2,
	}
	if tpl.Style != nil {
		s.Style = make(map[string]string, len(tpl.Style))
		for k, v := range tpl.Style {
			s.Style[k] = v
		}
	}

	pages := domain.Pages(existing)
	if s.IsPage() {
		s.ZIndex = 0
		pos := FindOpenSpace(pages, geometry.Point{X: s.XOffset, Y: s.YOffset}, s.Width, s.Height)
		s.XOffset, s.YOffset = pos.X, pos.Y
		return s
	}
	s.ZIndex = len(existing) + 1
	s.PageID = geometry.HostPageID(s, pages)
	return s
}
