package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/inkbridge/inkbridge-backend/pkg/db/models"
	pkgerrors "github.com/inkbridge/inkbridge-backend/pkg/errors"
	"github.com/inkbridge/inkbridge-backend/pkg/forwardlog"
	"github.com/inkbridge/inkbridge-backend/pkg/logger"
)

// ErrNoMatch reports that no log entry matched the lookup needle.
var ErrNoMatch = pkgerrors.New(pkgerrors.CodeNotFound, "no forward log entry matches")

// logScanner is the slice of the forward log repository the service needs.
type logScanner interface {
	Scan(ctx context.Context, fn func(entry models.ForwardLogEntry) error) error
}

// keyLookup is the optional indexed lookup a log backend may offer. When the
// needle is an idempotency key it saves walking the whole log.
type keyLookup interface {
	LastByKey(ctx context.Context, idempotencyKey string) (*models.ForwardLogEntry, error)
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	Log        logScanner
	Logger     *logger.Logger
	HTTPClient *http.Client
}

// Service locates a previously logged forward attempt and re-submits its raw
// payload. The downstream upsert is idempotency-keyed, so replaying the same
// entry any number of times converges on the same record.
type Service struct {
	log        logScanner
	logg       *logger.Logger
	httpClient *http.Client
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "replay: forward log is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "replay: logger is required")
	}
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Service{log: params.Log, logg: params.Logger, httpClient: httpClient}, nil
}

// Result reports which entry was replayed and how the target answered.
type Result struct {
	Entry      models.ForwardLogEntry
	StatusCode int
}

// Find locates the newest entry whose idempotency key, order number, or
// submitted raw values match the needle. The indexed key lookup is tried
// first; anything it cannot resolve falls back to a newest-first scan.
func (s *Service) Find(ctx context.Context, needle string) (*models.ForwardLogEntry, error) {
	if lookup, ok := s.log.(keyLookup); ok && needle != "" {
		if entry, err := lookup.LastByKey(ctx, needle); err == nil && entry != nil {
			return entry, nil
		}
	}

	var found *models.ForwardLogEntry
	err := s.log.Scan(ctx, func(entry models.ForwardLogEntry) error {
		if matches(entry, needle) {
			found = &entry
			return forwardlog.ErrStopScan
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNoMatch
	}
	return found, nil
}

// Replay finds the matching entry and re-submits its raw payload to the
// target. The target's response status is reported, not interpreted.
func (s *Service) Replay(ctx context.Context, needle, targetURL string) (*Result, error) {
	entry, err := s.Find(ctx, needle)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderKey(ctx, entry.IdempotencyKey)
	s.logg.Info(ctx, fmt.Sprintf("replaying entry %s to %s", entry.ID, targetURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(entry.RawPayload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid replay target")
	}
	req.Header.Set("Content-Type", payloadContentType(entry.RawPayload))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replay target unreachable")
	}
	defer resp.Body.Close()

	return &Result{Entry: *entry, StatusCode: resp.StatusCode}, nil
}

// matches checks the indexed columns first and falls back to the submitted
// raw values, so a needle like an order number embedded in the payload still
// resolves even when the entry's columns were blank at append time.
func matches(entry models.ForwardLogEntry, needle string) bool {
	if needle == "" {
		return false
	}
	if entry.IdempotencyKey == needle || entry.OrderNumber == needle {
		return true
	}
	var payload map[string]any
	if err := json.Unmarshal(entry.RawPayload, &payload); err != nil {
		return false
	}
	return valueMatches(payload, needle)
}

func valueMatches(value any, needle string) bool {
	switch typed := value.(type) {
	case string:
		return typed == needle
	case map[string]any:
		for _, nested := range typed {
			if valueMatches(nested, needle) {
				return true
			}
		}
	case []any:
		for _, nested := range typed {
			if valueMatches(nested, needle) {
				return true
			}
		}
	}
	return false
}

func payloadContentType(payload []byte) string {
	if json.Valid(payload) {
		return "application/json"
	}
	return "application/x-www-form-urlencoded"
}
