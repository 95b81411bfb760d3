package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"

	"github.com/inkbridge/inkbridge-backend/api/responses"
	"github.com/inkbridge/inkbridge-backend/api/validators"
	"github.com/inkbridge/inkbridge-backend/internal/forward"
	"github.com/inkbridge/inkbridge-backend/internal/pricing"
	pkgerrors "github.com/inkbridge/inkbridge-backend/pkg/errors"
	"github.com/inkbridge/inkbridge-backend/pkg/logger"
)

const maxOrderBodyBytes = 8 << 20

// OrderSubmitter is the slice of the forward service the controller needs.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, sub forward.Submission) (*forward.SubmitResult, error)
}

// SubmitOrderRequest is the cart submission body. Items stay untyped: the
// normalizer owns the defensive parsing of whatever the storefront sends.
type SubmitOrderRequest struct {
	IdempotencyKey  string `json:"idempotency_key" validate:"required,min=6"`
	OrderNumber     string `json:"order_number"`
	Language        string `json:"language"`
	DiscountClaimed bool   `json:"discount_claimed"`
	Items           []any  `json:"items" validate:"required,min=1"`
}

// SubmitOrderResponse reports the forward outcome plus the derived totals.
type SubmitOrderResponse struct {
	RecordID    string           `json:"record_id,omitempty"`
	Created     bool             `json:"created"`
	Skipped     bool             `json:"skipped"`
	ItemCount   int              `json:"item_count"`
	UploadCount int              `json:"upload_count"`
	Totals      pricing.Snapshot `json:"totals"`
	Mockups     []string         `json:"mockups,omitempty"`
}

// SubmitOrder handles the storefront's cart submission.
func SubmitOrder(svc OrderSubmitter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxOrderBodyBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))

		var req SubmitOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.SubmitOrder(ctx, forward.Submission{
			IdempotencyKey:  req.IdempotencyKey,
			OrderNumber:     req.OrderNumber,
			Language:        req.Language,
			DiscountClaimed: req.DiscountClaimed,
			Items:           req.Items,
			Raw:             json.RawMessage(raw),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := SubmitOrderResponse{
			RecordID:    result.RecordID,
			Created:     result.Created,
			Skipped:     result.Skipped,
			ItemCount:   len(result.View.Items),
			UploadCount: len(result.View.Uploads),
			Totals:      result.View.Totals,
		}
		if result.Assets != nil {
			for key := range result.Assets.Mockups {
				resp.Mockups = append(resp.Mockups, key)
			}
			sort.Strings(resp.Mockups)
		}

		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, resp)
	}
}
