package cart

import (
	"github.com/shopspring/decimal"

	"github.com/inkbridge/inkbridge-backend/internal/pricing"
	"github.com/inkbridge/inkbridge-backend/pkg/enums"
)

const (
	// DefaultMethod is assumed when a print-area selection arrives without one.
	DefaultMethod = string(enums.PrintMethodPrint)
	// DefaultPrintColor means "print the design as uploaded".
	DefaultPrintColor = "as-is"
)

// Selection is one chosen print area on a line item.
type Selection struct {
	Area             string `json:"area"`
	Method           string `json:"method"`
	PrintColor       string `json:"print_color"`
	DesignerComments string `json:"designer_comments"`
}

// DesignRef points at the uploaded design for one print area. OriginalURL is
// the high-resolution source when the storefront kept one separately from the
// lossy preview.
type DesignRef struct {
	PreviewURL  string `json:"preview_url"`
	OriginalURL string `json:"original_url,omitempty"`
	FileName    string `json:"file_name,omitempty"`
}

// BestURL prefers the original asset over the preview.
func (d DesignRef) BestURL() string {
	if d.OriginalURL != "" {
		return d.OriginalURL
	}
	return d.PreviewURL
}

// LineItem is the canonical shape every downstream component consumes,
// independent of whether the cart arrived in the legacy single-color form or
// the current per-color matrix form.
type LineItem struct {
	SKU        string                    `json:"sku"`
	Name       string                    `json:"name"`
	Colors     []string                  `json:"colors"`
	Sizes      map[string]map[string]int `json:"sizes"`
	Selections []Selection               `json:"selections"`
	Designs    map[string]DesignRef      `json:"designs,omitempty"`
	UnitPrice  *decimal.Decimal          `json:"unit_price"`
	TotalPrice *decimal.Decimal          `json:"total_price"`
	Note       string                    `json:"note"`

	Pricing pricing.Fields `json:"-"`
}

// ActiveColors returns the colors whose size quantities sum above zero, in
// color-list order.
func (li LineItem) ActiveColors() []string {
	var active []string
	for _, color := range li.Colors {
		total := 0
		for _, qty := range li.Sizes[color] {
			total += qty
		}
		if total > 0 {
			active = append(active, color)
		}
	}
	return active
}

// TotalQuantity sums every size quantity across the given colors.
func (li LineItem) TotalQuantity(colors []string) int {
	total := 0
	for _, color := range colors {
		for _, qty := range li.Sizes[color] {
			total += qty
		}
	}
	return total
}
