package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inkbridge/inkbridge-backend/pkg/config"
	pkgerrors "github.com/inkbridge/inkbridge-backend/pkg/errors"
	"github.com/inkbridge/inkbridge-backend/pkg/logger"
)

const (
	minIdempotencyKeyLen       = 6
	responseBodyReadLimit int64 = 64 * 1024
)

// ErrInvalidIdempotencyKey rejects keys shorter than the minimum before any
// network call is made.
var ErrInvalidIdempotencyKey = pkgerrors.New(pkgerrors.CodeValidation, "idempotency key must be at least 6 characters")

// Client performs merge-on-key upserts against the CRM-style table store. The
// idempotency key field is the uniqueness constraint, so repeated calls with
// the same key converge to one record.
type Client struct {
	httpClient *http.Client
	cfg        config.RecordStoreConfig
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the record store client. A client with missing store
// configuration is still valid: Upsert degrades to a recorded no-op so the
// rest of the pipeline keeps working in environments without a store.
func NewClient(cfg config.RecordStoreConfig, logg *logger.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &Client{
		cfg:        cfg,
		logg:       logg,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// UpsertResult reports how the store resolved the merge.
type UpsertResult struct {
	Skipped  bool
	RecordID string
	Created  bool
}

type upsertRequest struct {
	PerformUpsert performUpsert  `json:"performUpsert"`
	Records       []recordFields `json:"records"`
	Typecast      bool           `json:"typecast"`
}

type performUpsert struct {
	FieldsToMergeOn []string `json:"fieldsToMergeOn"`
}

type recordFields struct {
	Fields map[string]any `json:"fields"`
}

type upsertResponse struct {
	Records []struct {
		ID      string `json:"id"`
		Created bool   `json:"created"`
	} `json:"records"`
}

// Upsert merges the submitted fields into the record keyed by idempotencyKey.
// The key is validated locally first; a misconfigured store yields
// Skipped=true rather than an error.
func (c *Client) Upsert(ctx context.Context, idempotencyKey string, fields map[string]any) (*UpsertResult, error) {
	key := strings.TrimSpace(idempotencyKey)
	if len(key) < minIdempotencyKeyLen {
		return nil, ErrInvalidIdempotencyKey
	}

	if !c.cfg.Configured() {
		if c.logg != nil {
			c.logg.Warn(ctx, "record store not configured, skipping upsert")
		}
		return &UpsertResult{Skipped: true}, nil
	}

	merged := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged[c.cfg.KeyField] = key

	body, err := json.Marshal(upsertRequest{
		PerformUpsert: performUpsert{FieldsToMergeOn: []string{c.cfg.KeyField}},
		Records:       []recordFields{{Fields: merged}},
		Typecast:      true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode upsert request")
	}

	endpoint, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upsert request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record store unreachable")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read record store response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkgerrors.New(pkgerrors.CodeUpstreamRejected, "record store rejected upsert").
			WithDetails(map[string]any{
				"status": resp.StatusCode,
				"body":   string(respBody),
			})
	}

	var decoded upsertResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode record store response")
	}
	if len(decoded.Records) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "record store returned no records")
	}

	return &UpsertResult{
		RecordID: decoded.Records[0].ID,
		Created:  decoded.Records[0].Created,
	}, nil
}

func (c *Client) endpoint() (string, error) {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	joined := fmt.Sprintf("%s/%s/%s", base, url.PathEscape(c.cfg.BaseID), url.PathEscape(c.cfg.Table))
	if _, err := url.Parse(joined); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid record store endpoint")
	}
	return joined, nil
}
