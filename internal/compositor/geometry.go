package compositor

import (
	"encoding/json"
	"image"
	"os"

	pkgerrors "github.com/inkbridge/inkbridge-backend/pkg/errors"
)

// referenceCanvas is the fixed edge length the generic pixel rectangles are
// defined against.
const referenceCanvas = 800

// PixelRect is a placement rectangle in pixels on the 800x800 reference canvas.
type PixelRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// PercentRect is a placement rectangle in canvas-relative percentages (0-100).
type PercentRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// AreaGeometry is the generic placement for one print area.
type AreaGeometry struct {
	Rect      PixelRect `json:"rect"`
	RotateDeg float64   `json:"rotate_deg,omitempty"`
}

// Table maps print areas to placement rectangles. Per-template percentage
// overrides take priority over the generic per-area pixel rectangles.
type Table struct {
	Areas     map[string]AreaGeometry           `json:"areas"`
	Templates map[string]map[string]PercentRect `json:"templates,omitempty"`
}

// DefaultTable covers the stock apparel print areas.
func DefaultTable() *Table {
	return &Table{
		Areas: map[string]AreaGeometry{
			"frontA4":  {Rect: PixelRect{X: 290, Y: 220, W: 220, H: 300}},
			"frontA3":  {Rect: PixelRect{X: 250, Y: 190, W: 300, H: 420}},
			"backA4":   {Rect: PixelRect{X: 290, Y: 210, W: 220, H: 300}},
			"backA3":   {Rect: PixelRect{X: 250, Y: 180, W: 300, H: 420}},
			"pocket":   {Rect: PixelRect{X: 440, Y: 230, W: 100, H: 100}},
			"sleeveL":  {Rect: PixelRect{X: 120, Y: 260, W: 90, H: 90}, RotateDeg: 25},
			"sleeveR":  {Rect: PixelRect{X: 590, Y: 260, W: 90, H: 90}, RotateDeg: -25},
			"neckTag":  {Rect: PixelRect{X: 360, Y: 120, W: 80, H: 50}},
			"capFront": {Rect: PixelRect{X: 300, Y: 280, W: 200, H: 140}},
		},
	}
}

// LoadTable reads a geometry table from a JSON file, merging it over the
// defaults so partial files only need to list overrides.
func LoadTable(path string) (*Table, error) {
	table := DefaultTable()
	if path == "" {
		return table, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read geometry table")
	}

	var loaded Table
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse geometry table")
	}

	for area, geometry := range loaded.Areas {
		table.Areas[area] = geometry
	}
	if len(loaded.Templates) > 0 {
		if table.Templates == nil {
			table.Templates = map[string]map[string]PercentRect{}
		}
		for template, areas := range loaded.Templates {
			table.Templates[template] = areas
		}
	}
	return table, nil
}

// Placement resolves the live-canvas rectangle and rotation for the
// (template, area) pair. Returns false when the area is unknown.
func (t *Table) Placement(template, area string, canvasW, canvasH int) (image.Rectangle, float64, bool) {
	rotate := 0.0
	if generic, ok := t.Areas[area]; ok {
		rotate = generic.RotateDeg
	}

	if overrides, ok := t.Templates[template]; ok {
		if pct, ok := overrides[area]; ok {
			return percentToRect(pct, canvasW, canvasH), rotate, true
		}
	}

	generic, ok := t.Areas[area]
	if !ok {
		return image.Rectangle{}, 0, false
	}
	return pixelToRect(generic.Rect, canvasW, canvasH), rotate, true
}

func percentToRect(pct PercentRect, canvasW, canvasH int) image.Rectangle {
	x := int(pct.X / 100 * float64(canvasW))
	y := int(pct.Y / 100 * float64(canvasH))
	w := int(pct.W / 100 * float64(canvasW))
	h := int(pct.H / 100 * float64(canvasH))
	return image.Rect(x, y, x+w, y+h)
}

// pixelToRect converts a reference-canvas rectangle onto the live canvas.
func pixelToRect(px PixelRect, canvasW, canvasH int) image.Rectangle {
	x := px.X * canvasW / referenceCanvas
	y := px.Y * canvasH / referenceCanvas
	w := px.W * canvasW / referenceCanvas
	h := px.H * canvasH / referenceCanvas
	return image.Rect(x, y, x+w, y+h)
}
