package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/inkbridge/inkbridge-backend/pkg/logger"
)

const maxWebhookBodyBytes = 1 << 20

// PaymentForwarder forwards a payment confirmation to the order store.
type PaymentForwarder interface {
	MarkPaid(ctx context.Context, idempotencyKey, docnum string, raw json.RawMessage) error
}

// PaymentGuard deduplicates provider callbacks.
type PaymentGuard interface {
	CheckAndMark(ctx context.Context, idempotencyKey string) (bool, error)
	Delete(ctx context.Context, idempotencyKey string) error
}

// paymentAck is the provider-facing response contract. Always 200 once the
// body is read, so the provider never retries a callback that was received.
type paymentAck struct {
	OK        bool `json:"ok"`
	Forwarded bool `json:"forwarded"`
	HasDocnum bool `json:"has_docnum"`
}

// PaymentWebhook accepts payment provider callbacks in JSON or form-encoded
// bodies and triggers the forward without blocking the response on it.
func PaymentWebhook(svc PaymentForwarder, guard PaymentGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			body = nil
		}

		values := parseWebhookBody(r.Header.Get("Content-Type"), body)
		key := firstValue(values, "m__idem", "idempotency_key")
		docnum := firstValue(values, "docnum", "doc_num")

		ack := paymentAck{OK: true, HasDocnum: docnum != ""}

		if key != "" && svc != nil {
			ack.Forwarded = true
			forwardCtx := context.WithoutCancel(ctx)
			go forwardPayment(forwardCtx, svc, guard, logg, key, docnum, body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(ack); err != nil && logg != nil {
			logg.Error(ctx, "write webhook ack", err)
		}
	}
}

// forwardPayment runs detached from the request. Failures are logged, never
// surfaced: the provider already got its 200.
func forwardPayment(ctx context.Context, svc PaymentForwarder, guard PaymentGuard, logg *logger.Logger, key, docnum string, raw []byte) {
	if logg != nil {
		ctx = logg.WithOrderKey(ctx, key)
	}

	if guard != nil {
		seen, err := guard.CheckAndMark(ctx, key)
		if err != nil {
			if logg != nil {
				logg.Warn(ctx, "webhook dedupe check failed, forwarding anyway: "+err.Error())
			}
		} else if seen {
			if logg != nil {
				logg.Info(ctx, "duplicate payment callback suppressed")
			}
			return
		}
	}

	if err := svc.MarkPaid(ctx, key, docnum, raw); err != nil {
		if guard != nil {
			_ = guard.Delete(ctx, key)
		}
		if logg != nil {
			logg.Error(ctx, "payment forward failed", err)
		}
		return
	}
	if logg != nil {
		logg.Info(ctx, "payment callback forwarded")
	}
}

// parseWebhookBody extracts a flat key/value view from the callback body.
// JSON bodies parse as a shallow object; everything else, including unknown
// content types, parses as form-encoded.
func parseWebhookBody(contentType string, body []byte) map[string]string {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}

	if mediaType == "application/json" {
		var decoded map[string]any
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil
		}
		values := make(map[string]string, len(decoded))
		for k, v := range decoded {
			switch typed := v.(type) {
			case string:
				values[k] = typed
			case float64:
				values[k] = formatNumber(typed)
			case bool:
				values[k] = fmt.Sprintf("%t", typed)
			}
		}
		return values
	}

	parsed, err := url.ParseQuery(string(body))
	if err != nil {
		return nil
	}
	values := make(map[string]string, len(parsed))
	for k := range parsed {
		values[k] = parsed.Get(k)
	}
	return values
}

func firstValue(values map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := values[key]; v != "" {
			return v
		}
	}
	return ""
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
