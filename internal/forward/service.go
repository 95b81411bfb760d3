package forward

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkbridge/inkbridge-backend/internal/cart"
	"github.com/inkbridge/inkbridge-backend/internal/compositor"
	"github.com/inkbridge/inkbridge-backend/internal/pricing"
	"github.com/inkbridge/inkbridge-backend/internal/uploads"
	"github.com/inkbridge/inkbridge-backend/pkg/db/models"
	"github.com/inkbridge/inkbridge-backend/pkg/enums"
	pkgerrors "github.com/inkbridge/inkbridge-backend/pkg/errors"
	"github.com/inkbridge/inkbridge-backend/pkg/logger"
	"github.com/inkbridge/inkbridge-backend/pkg/metrics"
	"github.com/inkbridge/inkbridge-backend/pkg/recordstore"
)

// recordUpserter is the slice of the record store client the service needs.
type recordUpserter interface {
	Upsert(ctx context.Context, idempotencyKey string, fields map[string]any) (*recordstore.UpsertResult, error)
}

// logAppender persists one forward attempt.
type logAppender interface {
	Append(ctx context.Context, entry *models.ForwardLogEntry) error
}

// assetRenderer produces the order's mockups and worksheet. Optional.
type assetRenderer interface {
	RenderOrderAssets(ctx context.Context, orderKey, lang string, items []cart.LineItem) (*compositor.OrderAssets, error)
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	Logger      *logger.Logger
	Store       recordUpserter
	Log         logAppender
	Renderer    assetRenderer
	Metrics     *metrics.ForwardMetrics
	DefaultRate decimal.Decimal
}

// Service runs the intake pipeline: normalize, price, consolidate, render,
// upsert, log.
type Service struct {
	logg        *logger.Logger
	store       recordUpserter
	log         logAppender
	renderer    assetRenderer
	metrics     *metrics.ForwardMetrics
	defaultRate decimal.Decimal
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "forward: logger is required")
	}
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "forward: record store is required")
	}
	if params.Log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "forward: forward log is required")
	}
	return &Service{
		logg:        params.Logger,
		store:       params.Store,
		log:         params.Log,
		renderer:    params.Renderer,
		metrics:     params.Metrics,
		defaultRate: params.DefaultRate,
	}, nil
}

// Submission is one raw cart submission.
type Submission struct {
	IdempotencyKey  string
	OrderNumber     string
	Language        string
	DiscountClaimed bool
	Items           []any
	Raw             json.RawMessage
}

// OrderView is the canonical order written to the record store and, on
// success, stored alongside the log entry for replay auditing.
type OrderView struct {
	IdempotencyKey string            `json:"idempotency_key"`
	OrderNumber    string            `json:"order_number,omitempty"`
	Status         enums.OrderStatus `json:"status"`
	Items          []cart.LineItem   `json:"items"`
	Uploads        []uploads.Record  `json:"uploads"`
	Totals         pricing.Snapshot  `json:"totals"`
}

// SubmitResult reports the outcome of one submission.
type SubmitResult struct {
	View     OrderView
	Assets   *compositor.OrderAssets
	RecordID string
	Created  bool
	Skipped  bool
}

// SubmitOrder runs the full intake pipeline for one cart submission. Every
// upsert attempt lands in the forward log before its outcome surfaces to the
// caller, so a rejected forward is always replayable.
func (s *Service) SubmitOrder(ctx context.Context, sub Submission) (*SubmitResult, error) {
	ctx = s.logg.WithOrderKey(ctx, sub.IdempotencyKey)

	items := cart.Normalize(sub.Items)
	totals := s.orderTotals(items, sub.DiscountClaimed)
	consolidated := uploads.Consolidate(items)

	view := OrderView{
		IdempotencyKey: sub.IdempotencyKey,
		OrderNumber:    sub.OrderNumber,
		Status:         enums.OrderStatusDraft,
		Items:          items,
		Uploads:        consolidated,
		Totals:         totals,
	}

	var assets *compositor.OrderAssets
	if s.renderer != nil {
		rendered, err := s.renderer.RenderOrderAssets(ctx, sub.IdempotencyKey, sub.Language, items)
		if err != nil {
			// Assets are production aids; the order still forwards without them.
			s.logg.Warn(ctx, "asset rendering failed: "+err.Error())
		} else {
			assets = rendered
		}
	}

	fields := map[string]any{
		"order_number":     sub.OrderNumber,
		"status":           enums.OrderStatusDraft.String(),
		"item_count":       len(items),
		"upload_count":     len(consolidated),
		"subtotal_before":  totals.SubtotalBefore.String(),
		"subtotal_after":   totals.SubtotalAfter.String(),
		"discount_amount":  totals.DiscountAmount.String(),
		"discount_applied": totals.DiscountApplied,
	}
	if encoded, err := json.Marshal(view.Items); err == nil {
		fields["items"] = string(encoded)
	}

	start := time.Now()
	result, upsertErr := s.store.Upsert(ctx, sub.IdempotencyKey, fields)
	s.recordAttempt("submit_order", start, upsertErr)

	entry := s.buildEntry(sub.IdempotencyKey, sub.OrderNumber, sub.Raw, view, result, upsertErr)
	if appendErr := s.log.Append(ctx, entry); appendErr != nil {
		s.logg.Error(ctx, "forward log append failed", appendErr)
		if upsertErr == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, appendErr, "record forward attempt")
		}
	}
	if upsertErr != nil {
		return nil, upsertErr
	}

	return &SubmitResult{
		View:     view,
		Assets:   assets,
		RecordID: result.RecordID,
		Created:  result.Created,
		Skipped:  result.Skipped,
	}, nil
}

// MarkPaid forwards a payment confirmation for an existing order. The store's
// merge-on-key upsert folds the financial fields into the draft record that
// the original submission created.
func (s *Service) MarkPaid(ctx context.Context, idempotencyKey, docnum string, raw json.RawMessage) error {
	ctx = s.logg.WithOrderKey(ctx, idempotencyKey)

	financial := map[string]any{"paid": true}
	if docnum != "" {
		financial["invrec"] = map[string]any{"docnum": docnum}
	}
	fields := map[string]any{
		"status":    enums.OrderStatusPaid.String(),
		"financial": financial,
	}

	start := time.Now()
	result, upsertErr := s.store.Upsert(ctx, idempotencyKey, fields)
	s.recordAttempt("mark_paid", start, upsertErr)

	entry := s.buildEntry(idempotencyKey, "", raw, OrderView{}, result, upsertErr)
	if appendErr := s.log.Append(ctx, entry); appendErr != nil {
		s.logg.Error(ctx, "forward log append failed", appendErr)
	}
	if upsertErr != nil {
		return upsertErr
	}
	s.logg.Info(ctx, "payment confirmation forwarded")
	return nil
}

func (s *Service) recordAttempt(operation string, start time.Time, err error) {
	s.metrics.ObserveDuration(operation, time.Since(start))
	if err != nil {
		s.metrics.IncFailure(operation)
		return
	}
	s.metrics.IncSuccess(operation)
}

func (s *Service) orderTotals(items []cart.LineItem, claimed bool) pricing.Snapshot {
	dctx := pricing.Context{DiscountClaimed: claimed, DefaultRate: s.defaultRate}

	total := pricing.Snapshot{
		SubtotalBefore: decimal.Zero,
		SubtotalAfter:  decimal.Zero,
		DiscountAmount: decimal.Zero,
		DiscountRate:   decimal.Zero,
	}
	for _, item := range items {
		snap := pricing.Derive(item.Pricing, dctx)
		total.SubtotalBefore = total.SubtotalBefore.Add(snap.SubtotalBefore)
		total.SubtotalAfter = total.SubtotalAfter.Add(snap.SubtotalAfter)
		total.DiscountAmount = total.DiscountAmount.Add(snap.DiscountAmount)
		if snap.DiscountApplied {
			total.DiscountApplied = true
			total.DiscountRate = snap.DiscountRate
		}
	}
	return total
}

// buildEntry assembles the immutable log record for one forward attempt.
func (s *Service) buildEntry(key, orderNumber string, raw json.RawMessage, view OrderView, result *recordstore.UpsertResult, upsertErr error) *models.ForwardLogEntry {
	entry := &models.ForwardLogEntry{
		IdempotencyKey: key,
		OrderNumber:    orderNumber,
		RawPayload:     raw,
	}

	switch {
	case upsertErr != nil:
		entry.Status = enums.ForwardStatusFailed
		entry.ErrorMessage = upsertErr.Error()
		if typed := pkgerrors.As(upsertErr); typed != nil {
			if details, ok := typed.Details().(map[string]any); ok {
				if status, ok := details["status"].(int); ok {
					entry.HTTPStatus = &status
				}
			}
		}
	case result != nil && result.Skipped:
		entry.Status = enums.ForwardStatusSkipped
	default:
		entry.Status = enums.ForwardStatusSuccess
		if view.IdempotencyKey != "" {
			if encoded, err := json.Marshal(view); err == nil {
				entry.NormalizedView = encoded
			}
		}
	}
	return entry
}
