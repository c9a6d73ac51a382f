package domain

import (
	"bytes"
	"encoding/json"
)

// Fields is a partial shape update. A nil pointer means "not part of the update".
// PageID is tri-state: nil leaves it alone, a pointer to "" clears it (JSON null),
// anything else assigns the page.
type Fields struct {
	Type            *ShapeType        `json:"type,omitempty"`
	XOffset         *float64          `json:"xOffset,omitempty"`
	YOffset         *float64          `json:"yOffset,omitempty"`
	Width           *float64          `json:"width,omitempty"`
	Height          *float64          `json:"height,omitempty"`
	ZIndex          *int              `json:"zIndex,omitempty"`
	IsInstanceChild *bool             `json:"isInstanceChild,omitempty"`
	PageID          *string           `json:"-"`
	Title           *string           `json:"title,omitempty"`
	Description     *string           `json:"description,omitempty"`
	Subtype         *string           `json:"subtype,omitempty"`
	Content         *string           `json:"content,omitempty"`
	Style           map[string]string `json:"style,omitempty"`
}

// ShapeUpdate pairs a shape id with the fields to change.
type ShapeUpdate struct {
	ShapeID string `json:"shapeId"`
	Fields  Fields `json:"args"`
}

func Float(v float64) *float64 { return &v }
func Int(v int) *int           { return &v }
func String(v string) *string  { return &v }

// AssignPage returns a PageID value pointing at id ("" clears the parent).
func AssignPage(id string) *string { return &id }

// TouchesPosition reports whether the update moves the shape.
func (f Fields) TouchesPosition() bool {
	return f.XOffset != nil || f.YOffset != nil
}

// Empty reports whether the update carries no field at all.
func (f Fields) Empty() bool {
	return f.Type == nil && f.XOffset == nil && f.YOffset == nil && f.Width == nil &&
		f.Height == nil && f.ZIndex == nil && f.IsInstanceChild == nil && f.PageID == nil &&
		f.Title == nil && f.Description == nil && f.Subtype == nil && f.Content == nil &&
		f.Style == nil
}

// ApplyTo writes every present field onto s. Style keys are merged.
func (f Fields) ApplyTo(s *Shape) {
	if f.Type != nil {
		s.Type = *f.Type
	}
	if f.XOffset != nil {
		s.XOffset = *f.XOffset
	}
	if f.YOffset != nil {
		s.YOffset = *f.YOffset
	}
	if f.Width != nil {
		s.Width = *f.Width
	}
	if f.Height != nil {
		s.Height = *f.Height
	}
	if f.ZIndex != nil {
		s.ZIndex = *f.ZIndex
	}
	if f.IsInstanceChild != nil {
		s.IsInstanceChild = *f.IsInstanceChild
	}
	if f.PageID != nil {
		s.PageID = *f.PageID
	}
	if f.Title != nil {
		s.Title = *f.Title
	}
	if f.Description != nil {
		s.Description = *f.Description
	}
	if f.Subtype != nil {
		s.Subtype = *f.Subtype
	}
	if f.Content != nil {
		s.Content = *f.Content
	}
	if f.Style != nil {
		if s.Style == nil {
			s.Style = make(map[string]string, len(f.Style))
		}
		for k, v := range f.Style {
			s.Style[k] = v
		}
	}
}

// GeometryOf returns the fields needed to put a shape back to the geometry of s.
func GeometryOf(s Shape) Fields {
	return Fields{
		XOffset: Float(s.XOffset),
		YOffset: Float(s.YOffset),
		Width:   Float(s.Width),
		Height:  Float(s.Height),
		ZIndex:  Int(s.ZIndex),
		PageID:  AssignPage(s.PageID),
	}
}

type fieldsAlias Fields

func (f Fields) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(fieldsAlias(f))
	if err != nil || f.PageID == nil {
		return data, err
	}
	var pageID any
	if *f.PageID != "" {
		pageID = *f.PageID
	}
	raw, err := json.Marshal(pageID)
	if err != nil {
		return nil, err
	}
	// splice "pageId" into the object produced above
	out := bytes.TrimSuffix(data, []byte("}"))
	if len(out) > 1 {
		out = append(out, ',')
	}
	out = append(out, []byte(`"pageId":`)...)
	out = append(out, raw...)
	return append(out, '}'), nil
}

func (f *Fields) UnmarshalJSON(data []byte) error {
	var alias fieldsAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var probe struct {
		PageID json.RawMessage `json:"pageId"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	*f = Fields(alias)
	if probe.PageID != nil {
		var id *string
		if err := json.Unmarshal(probe.PageID, &id); err != nil {
			return err
		}
		if id == nil {
			f.PageID = AssignPage("")
		} else {
			f.PageID = AssignPage(*id)
		}
	}
	return nil
}
