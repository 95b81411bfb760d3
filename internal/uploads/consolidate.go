package uploads

import (
	"sort"

	"github.com/inkbridge/inkbridge-backend/internal/cart"
)

// Record is one flat work-list row for the production team: a single design
// on a single print area, with the quantity and color context needed to run
// the job.
type Record struct {
	Area      string   `json:"area"`
	Method    string   `json:"method"`
	SKU       string   `json:"sku"`
	Colors    []string `json:"colors"`
	Quantity  int      `json:"quantity"`
	DesignURL string   `json:"design_url"`
	FileName  string   `json:"file_name,omitempty"`
}

// Consolidate flattens normalized line items into upload records. Items with
// no active color are skipped entirely; exactly one record is emitted per
// area that carries a design, even when the area is selected more than once
// or not selected at all. Preview assets are often lossy rasters of vector
// originals, so the original URL wins when present.
func Consolidate(items []cart.LineItem) []Record {
	var records []Record

	for _, item := range items {
		activeColors := item.ActiveColors()
		if len(activeColors) == 0 {
			continue
		}
		quantity := item.TotalQuantity(activeColors)

		methods := make(map[string]string, len(item.Selections))
		for _, sel := range item.Selections {
			methods[sel.Area] = sel.Method
		}

		for _, area := range designAreas(item) {
			design := item.Designs[area]
			url := design.BestURL()
			if url == "" {
				continue
			}
			method := methods[area]
			if method == "" {
				method = cart.DefaultMethod
			}
			records = append(records, Record{
				Area:      area,
				Method:    method,
				SKU:       item.SKU,
				Colors:    activeColors,
				Quantity:  quantity,
				DesignURL: url,
				FileName:  design.FileName,
			})
		}
	}
	return records
}

// designAreas lists the item's design-bearing areas once each, selection
// order first so records line up with what the shopper configured, then any
// unselected design areas in sorted order.
func designAreas(item cart.LineItem) []string {
	seen := make(map[string]bool, len(item.Designs))
	areas := make([]string, 0, len(item.Designs))
	for _, sel := range item.Selections {
		if _, ok := item.Designs[sel.Area]; !ok || seen[sel.Area] {
			continue
		}
		seen[sel.Area] = true
		areas = append(areas, sel.Area)
	}

	var rest []string
	for area := range item.Designs {
		if !seen[area] {
			rest = append(rest, area)
		}
	}
	sort.Strings(rest)
	return append(areas, rest...)
}
