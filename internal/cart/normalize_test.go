package cart

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeItems(t *testing.T, payload string) []any {
	t.Helper()
	var items []any
	require.NoError(t, json.Unmarshal([]byte(payload), &items))
	return items
}

func TestNormalizeCurrentShape(t *testing.T) {
	items := Normalize(decodeItems(t, `[{
		"sku": "TSH-001",
		"name": "Staff Tee",
		"colors": ["Red", "Black"],
		"sizeQuantities": {"Red": {"L": 1, "M": 2}, "Black": {"S": 3}},
		"printAreas": [{"area": "frontA4", "method": "print", "printColor": "white", "designerComments": "center it"}],
		"uploads": {"frontA4": {"previewUrl": "https://cdn.example.com/p.png", "originalUrl": "https://cdn.example.com/o.pdf", "fileName": "logo.pdf"}},
		"unitPrice": 425,
		"totalPrice": 850
	}]`))

	require.Len(t, items, 1)
	item := items[0]
	require.Equal(t, "TSH-001", item.SKU)
	require.Equal(t, []string{"Red", "Black"}, item.Colors)
	require.Equal(t, 1, item.Sizes["Red"]["L"])
	require.Equal(t, 3, item.Sizes["Black"]["S"])

	require.Len(t, item.Selections, 1)
	require.Equal(t, "frontA4", item.Selections[0].Area)
	require.Equal(t, "white", item.Selections[0].PrintColor)
	require.Equal(t, "center it", item.Selections[0].DesignerComments)

	require.Equal(t, "https://cdn.example.com/o.pdf", item.Designs["frontA4"].BestURL())
	require.NotNil(t, item.TotalPrice)
	require.Equal(t, "850", item.TotalPrice.String())
}

func TestNormalizeLegacyShape(t *testing.T) {
	items := Normalize(decodeItems(t, `[{
		"productId": "TSH-002",
		"productName": "Legacy Tee",
		"color": "Navy",
		"sizes": {"XL": 4},
		"printAreas": ["backA3"]
	}]`))

	require.Len(t, items, 1)
	item := items[0]
	require.Equal(t, "TSH-002", item.SKU)
	require.Equal(t, []string{"Navy"}, item.Colors)
	require.Equal(t, 4, item.Sizes["Navy"]["XL"])

	require.Len(t, item.Selections, 1)
	require.Equal(t, "backA3", item.Selections[0].Area)
	require.Equal(t, DefaultMethod, item.Selections[0].Method)
	require.Equal(t, DefaultPrintColor, item.Selections[0].PrintColor)
	require.Equal(t, "", item.Selections[0].DesignerComments)
}

func TestNormalizeDropsMalformedEntries(t *testing.T) {
	items := Normalize([]any{
		"not an object",
		42.0,
		nil,
		[]any{"still", "not", "an", "object"},
		map[string]any{"sku": "KEEP-1"},
	})
	require.Len(t, items, 1)
	require.Equal(t, "KEEP-1", items[0].SKU)
}

func TestNormalizeNeverPanics(t *testing.T) {
	hostile := []any{
		map[string]any{"sizeQuantities": map[string]any{"Red": "not-a-map"}},
		map[string]any{"printAreas": []any{map[string]any{"area": 12}}},
		map[string]any{"colors": []any{1, 2, 3}},
		map[string]any{"uploads": map[string]any{"front": "nope"}},
		map[string]any{"unitPrice": "free"},
		map[string]any{},
	}
	require.NotPanics(t, func() {
		out := Normalize(hostile)
		require.LessOrEqual(t, len(out), len(hostile))
	})
}

func TestNormalizeOutputInvariants(t *testing.T) {
	items := Normalize(decodeItems(t, `[{
		"sku": "TSH-003",
		"colors": ["Red"],
		"sizeQuantities": {"Red": {"L": 1}, "Green": {"M": 2}, "Blue": {"S": 1}}
	}]`))

	require.Len(t, items, 1)
	item := items[0]

	// Every color carrying sizes appears in the color list, explicit colors first.
	require.Equal(t, "Red", item.Colors[0])
	require.ElementsMatch(t, []string{"Red", "Green", "Blue"}, item.Colors)
	for color := range item.Sizes {
		require.Contains(t, item.Colors, color)
	}
}

func TestNormalizeNonFinitePricesAreNil(t *testing.T) {
	inf := math.Inf(1)
	items := Normalize([]any{map[string]any{
		"sku":        "TSH-004",
		"unitPrice":  inf,
		"totalPrice": math.NaN(),
	}})
	require.Len(t, items, 1)
	require.Nil(t, items[0].UnitPrice)
	require.Nil(t, items[0].TotalPrice)
}

func TestNormalizeNegativeQuantitiesClampToZero(t *testing.T) {
	items := Normalize(decodeItems(t, `[{
		"sku": "TSH-005",
		"colors": ["Red"],
		"sizeQuantities": {"Red": {"L": -3, "M": 2}}
	}]`))
	require.Len(t, items, 1)
	require.Equal(t, 0, items[0].Sizes["Red"]["L"])
	require.Equal(t, 2, items[0].Sizes["Red"]["M"])
}

func TestNormalizeJSONBadPayload(t *testing.T) {
	require.Empty(t, NormalizeJSON([]byte(`{"not":"an array"}`)))
	require.Empty(t, NormalizeJSON([]byte(`garbage`)))
}

func TestNormalizeColorsDeduplicated(t *testing.T) {
	items := Normalize(decodeItems(t, `[{
		"sku": "TSH-006",
		"colors": ["Red", "Red", "Black", "Red"]
	}]`))
	require.Len(t, items, 1)
	require.Equal(t, []string{"Red", "Black"}, items[0].Colors)
}

func TestActiveColors(t *testing.T) {
	item := LineItem{
		Colors: []string{"Red", "Black", "White"},
		Sizes: map[string]map[string]int{
			"Red":   {"L": 1},
			"Black": {"S": 0, "M": 0},
			"White": {},
		},
	}
	require.Equal(t, []string{"Red"}, item.ActiveColors())
	require.Equal(t, 1, item.TotalQuantity(item.ActiveColors()))
}
