package cart

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/inkbridge/inkbridge-backend/internal/pricing"
)

// Normalize maps heterogeneous cart items into canonical line items. Items
// that are not well-formed objects are dropped; a malformed item never takes
// down the rest of the cart, so the result may be shorter than the input.
func Normalize(rawItems []any) []LineItem {
	items := make([]LineItem, 0, len(rawItems))
	for _, raw := range rawItems {
		if item, ok := normalizeOne(raw); ok {
			items = append(items, item)
		}
	}
	return items
}

// NormalizeJSON decodes a raw cart payload and normalizes it. A payload that
// is not a JSON array yields an empty list.
func NormalizeJSON(payload []byte) []LineItem {
	var rawItems []any
	if err := json.Unmarshal(payload, &rawItems); err != nil {
		return []LineItem{}
	}
	return Normalize(rawItems)
}

func normalizeOne(raw any) (item LineItem, ok bool) {
	// The input is arbitrary client JSON; treat any per-item panic as a
	// malformed item and drop it.
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	obj, isMap := raw.(map[string]any)
	if !isMap {
		return LineItem{}, false
	}

	item = LineItem{
		SKU:  firstString(obj, "sku", "productId"),
		Name: firstString(obj, "name", "productName"),
		Note: firstString(obj, "note"),
	}

	item.Colors, item.Sizes = normalizeColorSizes(obj)
	item.Selections = normalizeSelections(obj)
	item.Designs = normalizeDesigns(obj)
	item.UnitPrice = finiteDecimal(obj, "unitPrice")
	item.TotalPrice = finiteDecimal(obj, "totalPrice")
	item.Pricing = normalizePricing(obj, item.TotalPrice)

	return item, true
}

// normalizeColorSizes resolves both cart generations: the current map-of-maps
// keyed by color, and the legacy single "color" field with one flat size map.
func normalizeColorSizes(obj map[string]any) ([]string, map[string]map[string]int) {
	sizes := map[string]map[string]int{}

	if matrix, ok := obj["sizeQuantities"].(map[string]any); ok {
		for color, rawSizes := range matrix {
			if sizeMap, ok := rawSizes.(map[string]any); ok {
				sizes[color] = normalizeSizeMap(sizeMap)
			}
		}
	} else if legacySizes, ok := obj["sizes"].(map[string]any); ok {
		color := firstString(obj, "color")
		if color != "" {
			sizes[color] = normalizeSizeMap(legacySizes)
		}
	}

	colors := normalizeColors(obj)

	// Every color carrying quantities must appear in the color list.
	known := map[string]struct{}{}
	for _, color := range colors {
		known[color] = struct{}{}
	}
	var missing []string
	for color := range sizes {
		if _, ok := known[color]; !ok {
			missing = append(missing, color)
		}
	}
	sort.Strings(missing)
	colors = append(colors, missing...)

	return colors, sizes
}

func normalizeColors(obj map[string]any) []string {
	var colors []string
	seen := map[string]struct{}{}

	appendColor := func(value string) {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return
		}
		if _, dup := seen[trimmed]; dup {
			return
		}
		seen[trimmed] = struct{}{}
		colors = append(colors, trimmed)
	}

	if list, ok := obj["colors"].([]any); ok {
		for _, entry := range list {
			if color, ok := entry.(string); ok {
				appendColor(color)
			}
		}
	}
	if len(colors) == 0 {
		appendColor(firstString(obj, "color"))
	}
	return colors
}

func normalizeSizeMap(raw map[string]any) map[string]int {
	sizes := make(map[string]int, len(raw))
	for size, rawQty := range raw {
		qty := 0
		switch v := rawQty.(type) {
		case float64:
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				qty = int(v)
			}
		case string:
			qty = parseIntString(v)
		}
		if qty < 0 {
			qty = 0
		}
		sizes[size] = qty
	}
	return sizes
}

func parseIntString(value string) int {
	qty := 0
	for _, r := range strings.TrimSpace(value) {
		if r < '0' || r > '9' {
			return 0
		}
		qty = qty*10 + int(r-'0')
	}
	return qty
}

// normalizeSelections accepts both bare area-key strings (legacy) and
// structured objects, applying the canonical defaults.
func normalizeSelections(obj map[string]any) []Selection {
	raw, ok := obj["printAreas"].([]any)
	if !ok {
		return nil
	}

	selections := make([]Selection, 0, len(raw))
	for _, entry := range raw {
		switch v := entry.(type) {
		case string:
			if area := strings.TrimSpace(v); area != "" {
				selections = append(selections, Selection{
					Area:       area,
					Method:     DefaultMethod,
					PrintColor: DefaultPrintColor,
				})
			}
		case map[string]any:
			area := firstString(v, "area", "areaKey")
			if area == "" {
				continue
			}
			sel := Selection{
				Area:             area,
				Method:           firstString(v, "method"),
				PrintColor:       firstString(v, "printColor", "inkColor"),
				DesignerComments: firstString(v, "designerComments", "note"),
			}
			if sel.Method == "" {
				sel.Method = DefaultMethod
			}
			if sel.PrintColor == "" {
				sel.PrintColor = DefaultPrintColor
			}
			selections = append(selections, sel)
		}
	}
	return selections
}

func normalizeDesigns(obj map[string]any) map[string]DesignRef {
	raw, ok := obj["uploads"].(map[string]any)
	if !ok {
		raw, ok = obj["designs"].(map[string]any)
	}
	if !ok {
		return nil
	}

	designs := map[string]DesignRef{}
	for area, rawRef := range raw {
		ref, ok := rawRef.(map[string]any)
		if !ok {
			continue
		}
		design := DesignRef{
			PreviewURL:  firstString(ref, "previewUrl", "url"),
			OriginalURL: firstString(ref, "originalUrl", "highResUrl"),
			FileName:    firstString(ref, "fileName", "name"),
		}
		if design.PreviewURL == "" && design.OriginalURL == "" {
			continue
		}
		designs[area] = design
	}
	if len(designs) == 0 {
		return nil
	}
	return designs
}

func normalizePricing(obj map[string]any, totalPrice *decimal.Decimal) pricing.Fields {
	fields := pricing.Fields{
		MerchandiseTotal:     finiteDecimal(obj, "merchandiseTotal"),
		TotalBeforeDiscount:  finiteDecimal(obj, "totalBeforeDiscount"),
		StoredDiscountAmount: finiteDecimal(obj, "discountAmount"),
		StoredAfterDiscount:  finiteDecimal(obj, "totalAfterDiscount"),
		StoredRate:           finiteDecimal(obj, "discountRate"),
		StoredClaimed:        boolValue(obj, "discountClaimed"),
	}
	// The plain item total is the merchandise total unless a dedicated field
	// said otherwise.
	if fields.MerchandiseTotal == nil && totalPrice != nil {
		fields.MerchandiseTotal = totalPrice
	}
	return fields
}

func firstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := obj[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func boolValue(obj map[string]any, key string) bool {
	value, _ := obj[key].(bool)
	return value
}

func finiteDecimal(obj map[string]any, key string) *decimal.Decimal {
	raw, ok := obj[key].(float64)
	if !ok || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return nil
	}
	d := decimal.NewFromFloat(raw)
	return &d
}
