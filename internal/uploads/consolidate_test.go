package uploads

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inkbridge/inkbridge-backend/internal/cart"
)

func itemWith(colors map[string]map[string]int, selections []cart.Selection, designs map[string]cart.DesignRef) cart.LineItem {
	colorList := make([]string, 0, len(colors))
	for color := range colors {
		colorList = append(colorList, color)
	}
	return cart.LineItem{
		SKU:        "TSH-001",
		Colors:     colorList,
		Sizes:      colors,
		Selections: selections,
		Designs:    designs,
	}
}

func TestConsolidateSkipsItemsWithoutActiveColors(t *testing.T) {
	item := itemWith(
		map[string]map[string]int{"Red": {"L": 0}, "Black": {"M": 0}},
		[]cart.Selection{{Area: "frontA4", Method: "print"}},
		map[string]cart.DesignRef{"frontA4": {PreviewURL: "https://cdn.example.com/p.png"}},
	)
	require.Empty(t, Consolidate([]cart.LineItem{item}))
}

func TestConsolidateOneRecordPerAreaWithDesign(t *testing.T) {
	item := itemWith(
		map[string]map[string]int{"Red": {"L": 2, "M": 1}},
		[]cart.Selection{
			{Area: "frontA4", Method: "print"},
			{Area: "backA3", Method: "embroidery"},
			{Area: "sleeveL", Method: "print"}, // no design attached
		},
		map[string]cart.DesignRef{
			"frontA4": {PreviewURL: "https://cdn.example.com/front.png"},
			"backA3":  {PreviewURL: "https://cdn.example.com/back.png"},
		},
	)

	records := Consolidate([]cart.LineItem{item})
	require.Len(t, records, 2)

	byArea := map[string]Record{}
	for _, rec := range records {
		byArea[rec.Area] = rec
	}
	require.Equal(t, "print", byArea["frontA4"].Method)
	require.Equal(t, "embroidery", byArea["backA3"].Method)
	require.Equal(t, 3, byArea["frontA4"].Quantity)
	require.Equal(t, []string{"Red"}, byArea["frontA4"].Colors)
}

func TestConsolidateEmitsUnselectedDesignAreas(t *testing.T) {
	item := itemWith(
		map[string]map[string]int{"Red": {"L": 1}},
		nil,
		map[string]cart.DesignRef{
			"frontA4": {PreviewURL: "https://cdn.example.com/front.png"},
			"backA3":  {PreviewURL: "https://cdn.example.com/back.png"},
		},
	)

	records := Consolidate([]cart.LineItem{item})
	require.Len(t, records, 2)
	// no selection names these areas, so they come out sorted with the
	// default method
	require.Equal(t, "backA3", records[0].Area)
	require.Equal(t, cart.DefaultMethod, records[0].Method)
	require.Equal(t, "frontA4", records[1].Area)
	require.Equal(t, cart.DefaultMethod, records[1].Method)
}

func TestConsolidateDeduplicatesRepeatedSelections(t *testing.T) {
	item := itemWith(
		map[string]map[string]int{"Red": {"L": 1}},
		[]cart.Selection{
			{Area: "frontA4", Method: "print"},
			{Area: "frontA4", Method: "print"},
		},
		map[string]cart.DesignRef{"frontA4": {PreviewURL: "https://cdn.example.com/front.png"}},
	)

	records := Consolidate([]cart.LineItem{item})
	require.Len(t, records, 1)
	require.Equal(t, "frontA4", records[0].Area)
}

func TestConsolidateSelectionOrderBeforeUnselected(t *testing.T) {
	item := itemWith(
		map[string]map[string]int{"Red": {"L": 1}},
		[]cart.Selection{{Area: "sleeveL", Method: "embroidery"}},
		map[string]cart.DesignRef{
			"sleeveL": {PreviewURL: "https://cdn.example.com/sleeve.png"},
			"backA3":  {PreviewURL: "https://cdn.example.com/back.png"},
		},
	)

	records := Consolidate([]cart.LineItem{item})
	require.Len(t, records, 2)
	require.Equal(t, "sleeveL", records[0].Area)
	require.Equal(t, "embroidery", records[0].Method)
	require.Equal(t, "backA3", records[1].Area)
}

func TestConsolidatePrefersOriginalAsset(t *testing.T) {
	item := itemWith(
		map[string]map[string]int{"Red": {"L": 1}},
		[]cart.Selection{{Area: "frontA4", Method: "print"}},
		map[string]cart.DesignRef{"frontA4": {
			PreviewURL:  "https://cdn.example.com/preview.png",
			OriginalURL: "https://cdn.example.com/original.pdf",
			FileName:    "logo.pdf",
		}},
	)

	records := Consolidate([]cart.LineItem{item})
	require.Len(t, records, 1)
	require.Equal(t, "https://cdn.example.com/original.pdf", records[0].DesignURL)
	require.Equal(t, "logo.pdf", records[0].FileName)
}

func TestConsolidateOnlyActiveColorsCounted(t *testing.T) {
	item := cart.LineItem{
		SKU:    "TSH-002",
		Colors: []string{"Red", "Black"},
		Sizes: map[string]map[string]int{
			"Red":   {"L": 2},
			"Black": {"M": 0},
		},
		Selections: []cart.Selection{{Area: "frontA4", Method: "print"}},
		Designs:    map[string]cart.DesignRef{"frontA4": {PreviewURL: "https://cdn.example.com/p.png"}},
	}

	records := Consolidate([]cart.LineItem{item})
	require.Len(t, records, 1)
	require.Equal(t, []string{"Red"}, records[0].Colors)
	require.Equal(t, 2, records[0].Quantity)
}
