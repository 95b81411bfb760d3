package compositor

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

const (
	worksheetHeaderHeight = 48
	worksheetRowHeight    = 160
	worksheetThumbSize    = 144
	worksheetMargin       = 8
	worksheetTextX        = 170
)

var (
	worksheetRule = color.NRGBA{R: 0xd0, G: 0xd0, B: 0xd0, A: 0xff}
	worksheetBand = color.NRGBA{R: 0xf6, G: 0xf6, B: 0xf6, A: 0xff}
)

// worksheetLabels returns the fixed strings for the target display language.
// Unknown languages fall back to English so the sheet is always renderable.
func worksheetLabels(lang string) map[string]string {
	switch strings.ToLower(lang) {
	case "ko":
		return map[string]string{
			"title":  "JAKEOP JISISEO", // romanized; the label font is ASCII-only
			"qty":    "SURYANG",
			"colors": "SAEK",
			"method": "BANGBEOP",
		}
	default:
		return map[string]string{
			"title":  "PRODUCTION WORKSHEET",
			"qty":    "QTY",
			"colors": "COLORS",
			"method": "METHOD",
		}
	}
}

// WorksheetRow is one aggregated production line: a (line item, print area)
// pair with its mockup, colors and quantity.
type WorksheetRow struct {
	SKU      string
	Name     string
	Area     string
	Method   string
	Colors   []string
	Quantity int
	Note     string
	Mockup   image.Image
}

// RenderWorksheet aggregates every row into one production-reference sheet.
// Layout depends only on the inputs, so the same canonical order always
// produces identical bytes.
func (r *Renderer) RenderWorksheet(orderKey, lang string, rows []WorksheetRow) (image.Image, error) {
	labels := worksheetLabels(lang)

	height := worksheetHeaderHeight + worksheetRowHeight*len(rows)
	if len(rows) == 0 {
		height = worksheetHeaderHeight + worksheetRowHeight/2
	}
	canvas := image.NewNRGBA(image.Rect(0, 0, r.canvasSize, height))
	fill(canvas, canvas.Bounds(), canvasBackground)

	// Header band with the order's idempotency key.
	fill(canvas, image.Rect(0, 0, r.canvasSize, worksheetHeaderHeight), worksheetBand)
	drawLabelAt(canvas, worksheetMargin, 20, labels["title"])
	drawLabelAt(canvas, worksheetMargin, 38, "ORDER "+orderKey)
	hline(canvas, worksheetHeaderHeight-1)

	if len(rows) == 0 {
		drawLabelAt(canvas, worksheetMargin, worksheetHeaderHeight+30, "NO PRINT AREAS")
		return canvas, nil
	}

	for i, row := range rows {
		top := worksheetHeaderHeight + i*worksheetRowHeight

		thumb := image.Rect(
			worksheetMargin,
			top+worksheetMargin,
			worksheetMargin+worksheetThumbSize,
			top+worksheetMargin+worksheetThumbSize,
		)
		strokeRect(canvas, thumb, worksheetRule)
		if row.Mockup != nil {
			drawContained(canvas, thumb.Inset(1), row.Mockup)
		} else {
			drawLabelCentered(canvas, thumb, row.Area)
		}

		line := top + 28
		drawLabelAt(canvas, worksheetTextX, line, fmt.Sprintf("%s  %s", row.SKU, row.Name))
		line += 22
		drawLabelAt(canvas, worksheetTextX, line, fmt.Sprintf("%s / %s: %s", row.Area, labels["method"], row.Method))
		line += 22
		drawLabelAt(canvas, worksheetTextX, line, fmt.Sprintf("%s: %s", labels["colors"], strings.Join(row.Colors, ", ")))
		line += 22
		drawLabelAt(canvas, worksheetTextX, line, fmt.Sprintf("%s: %d", labels["qty"], row.Quantity))
		if row.Note != "" {
			line += 22
			drawLabelAt(canvas, worksheetTextX, line, row.Note)
		}

		hline(canvas, top+worksheetRowHeight-1)
	}

	return canvas, nil
}

func hline(dst *image.NRGBA, y int) {
	bounds := dst.Bounds()
	for x := bounds.Min.X; x < bounds.Max.X; x++ {
		dst.SetNRGBA(x, y, worksheetRule)
	}
}
