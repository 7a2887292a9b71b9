package template

import (
	"encoding/json"
	"fmt"
	"os"
)

// Field describes one extractable slot in a form template.
type Field struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
	Desc  string `json:"desc"`
	Type  string `json:"type"` // "text_line" | "box_grid"
	BBox  BBox   `json:"bbox"`
	OCR   Hints  `json:"ocr"`
	Style string `json:"style"` // e.g. "uppercase"
	Grid  *Grid  `json:"grid,omitempty"`
}

// BBox is a field's bounding box in template pixel space.
type BBox struct {
	PX []int `json:"px"` // [x, y, w, h]
}

// Valid reports whether the box carries four usable coordinates.
func (b BBox) Valid() bool {
	return len(b.PX) == 4 && b.PX[2] > 0 && b.PX[3] > 0
}

// Hints carries per-field OCR tuning for the fallback engine.
type Hints struct {
	Lang string `json:"lang"` // e.g. "nep+eng"
	PSM  int    `json:"psm"`
}

// Grid configures box_grid fields (one character per printed box).
type Grid struct {
	Boxes int `json:"boxes"`
}

// Size is the template's reference pixel dimensions. Bounding boxes are
// expressed in this space and scaled to the actual page/image size.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Template is a form definition: an ordered set of fields plus layout
// metadata for artifact generation. Static within a process lifetime.
type Template struct {
	ID              string  `json:"-"` // filename stem, set by the registry
	Name            string  `json:"name"`
	BackgroundImage string  `json:"image"`
	Size            Size    `json:"size"`
	Fields          []Field `json:"fields"`
}

// FieldIDs returns the template's field ids in definition order.
func (t *Template) FieldIDs() []string {
	ids := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		ids = append(ids, f.ID)
	}
	return ids
}

// FieldByID returns the field definition for id, or nil.
func (t *Template) FieldByID(id string) *Field {
	for i := range t.Fields {
		if t.Fields[i].ID == id {
			return &t.Fields[i]
		}
	}
	return nil
}

// Load reads a single template JSON file.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}
	if len(t.Fields) == 0 {
		return nil, fmt.Errorf("template %s defines no fields", path)
	}
	return &t, nil
}
