package compositor

import (
	"context"
	"image"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/inkbridge/inkbridge-backend/internal/cart"
	"github.com/inkbridge/inkbridge-backend/internal/uploads"
	pkgerrors "github.com/inkbridge/inkbridge-backend/pkg/errors"
	"github.com/inkbridge/inkbridge-backend/pkg/logger"
)

// SchematicSource resolves the base product schematic for a template key.
// A nil source or a nil image means the mockup renders on a blank canvas.
type SchematicSource interface {
	Schematic(template string) image.Image
}

// EngineParams carries the dependencies for NewEngine.
type EngineParams struct {
	Renderer   *Renderer
	Fetcher    Fetcher
	Logger     *logger.Logger
	Schematics SchematicSource
	Workers    int
}

// Engine renders every asset an order needs: one mockup per uploaded
// print area plus the aggregate worksheet.
type Engine struct {
	renderer   *Renderer
	fetcher    Fetcher
	logg       *logger.Logger
	schematics SchematicSource
	workers    int
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Renderer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "compositor: renderer is required")
	}
	if params.Fetcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "compositor: fetcher is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "compositor: logger is required")
	}
	workers := params.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		renderer:   params.Renderer,
		fetcher:    params.Fetcher,
		logg:       params.Logger,
		schematics: params.Schematics,
		workers:    workers,
	}, nil
}

// OrderAssets is the rendered output for one order. Mockups are keyed by
// "sku/area" in the same order the cart listed them.
type OrderAssets struct {
	Mockups   map[string][]byte
	Worksheet []byte
}

// MockupKey names one rendered mockup.
func MockupKey(sku, area string) string {
	return sku + "/" + area
}

// RenderOrderAssets renders the full asset bundle for a normalized order.
// Mockups render in parallel up to the worker limit. A design that fails
// to fetch or decode degrades to its placeholder panel; it never aborts
// the sibling images or the worksheet.
func (e *Engine) RenderOrderAssets(ctx context.Context, orderKey, lang string, items []cart.LineItem) (*OrderAssets, error) {
	records := uploads.Consolidate(items)

	itemsBySKU := make(map[string]cart.LineItem, len(items))
	for _, item := range items {
		if _, seen := itemsBySKU[item.SKU]; !seen {
			itemsBySKU[item.SKU] = item
		}
	}

	var mu sync.Mutex
	rendered := make(map[string]image.Image, len(records))
	encoded := make(map[string][]byte, len(records))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.workers)

	for _, rec := range records {
		rec := rec
		group.Go(func() error {
			img, err := e.renderOne(groupCtx, orderKey, rec)
			if err != nil {
				return err
			}
			payload, err := EncodePNG(img)
			if err != nil {
				return err
			}
			mu.Lock()
			rendered[MockupKey(rec.SKU, rec.Area)] = img
			encoded[MockupKey(rec.SKU, rec.Area)] = payload
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	rows := make([]WorksheetRow, 0, len(records))
	for _, rec := range records {
		item := itemsBySKU[rec.SKU]
		rows = append(rows, WorksheetRow{
			SKU:      rec.SKU,
			Name:     item.Name,
			Area:     rec.Area,
			Method:   rec.Method,
			Colors:   rec.Colors,
			Quantity: rec.Quantity,
			Note:     item.Note,
			Mockup:   rendered[MockupKey(rec.SKU, rec.Area)],
		})
	}

	sheet, err := e.renderer.RenderWorksheet(orderKey, lang, rows)
	if err != nil {
		return nil, err
	}
	sheetPNG, err := EncodePNG(sheet)
	if err != nil {
		return nil, err
	}

	return &OrderAssets{Mockups: encoded, Worksheet: sheetPNG}, nil
}

// renderOne fetches the design for a single print area and composites the
// mockup. Fetch failures fall through with empty bytes so the placeholder
// path takes over.
func (e *Engine) renderOne(ctx context.Context, orderKey string, rec uploads.Record) (image.Image, error) {
	ctx = e.logg.WithOrderKey(ctx, orderKey)
	ctx = e.logg.WithArea(ctx, rec.Area)

	var design []byte
	if rec.DesignURL != "" {
		payload, err := e.fetcher.Fetch(ctx, rec.DesignURL)
		if err != nil {
			e.logg.Warn(ctx, "design fetch failed, rendering placeholder: "+err.Error())
		} else {
			design = payload
		}
	}

	var schematic image.Image
	if e.schematics != nil {
		schematic = e.schematics.Schematic(rec.SKU)
	}

	label := rec.FileName
	if label == "" {
		label = rec.Area
	}

	return e.renderer.RenderMockup(MockupInput{
		Template:  rec.SKU,
		Area:      rec.Area,
		Schematic: schematic,
		Design:    design,
		Label:     label,
	})
}
