package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkbridge/inkbridge-backend/pkg/logger"
)

type forwardCall struct {
	key    string
	docnum string
	raw    string
}

type stubForwarder struct {
	err   error
	calls chan forwardCall
}

func newStubForwarder() *stubForwarder {
	return &stubForwarder{calls: make(chan forwardCall, 1)}
}

func (s *stubForwarder) MarkPaid(_ context.Context, key, docnum string, raw json.RawMessage) error {
	s.calls <- forwardCall{key: key, docnum: docnum, raw: string(raw)}
	return s.err
}

func (s *stubForwarder) waitForCall(t *testing.T) forwardCall {
	t.Helper()
	select {
	case call := <-s.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("expected a forward call")
		return forwardCall{}
	}
}

type stubGuard struct {
	mu      sync.Mutex
	seen    bool
	err     error
	marked  []string
	deleted []string
}

func (s *stubGuard) CheckAndMark(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	s.marked = append(s.marked, key)
	return s.seen, nil
}

func (s *stubGuard) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	return nil
}

func webhookLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "webhook-test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func postWebhook(t *testing.T, handler http.HandlerFunc, contentType, body string) paymentAck {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	handler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var ack paymentAck
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ack))
	return ack
}

func TestPaymentWebhookFormBody(t *testing.T) {
	svc := newStubForwarder()
	handler := PaymentWebhook(svc, nil, webhookLogger())

	ack := postWebhook(t, handler, "application/x-www-form-urlencoded", "m__idem=IDX-9&docnum=DOC-7")

	assert.True(t, ack.OK)
	assert.True(t, ack.Forwarded)
	assert.True(t, ack.HasDocnum)

	call := svc.waitForCall(t)
	assert.Equal(t, "IDX-9", call.key)
	assert.Equal(t, "DOC-7", call.docnum)
	assert.Equal(t, "m__idem=IDX-9&docnum=DOC-7", call.raw)
}

func TestPaymentWebhookJSONBodyWithAliases(t *testing.T) {
	svc := newStubForwarder()
	handler := PaymentWebhook(svc, nil, webhookLogger())

	ack := postWebhook(t, handler, "application/json", `{"idempotency_key":"IDX-10","doc_num":"DOC-8"}`)

	assert.True(t, ack.Forwarded)
	assert.True(t, ack.HasDocnum)

	call := svc.waitForCall(t)
	assert.Equal(t, "IDX-10", call.key)
	assert.Equal(t, "DOC-8", call.docnum)
}

func TestPaymentWebhookUnknownContentTypeFallsBackToForm(t *testing.T) {
	svc := newStubForwarder()
	handler := PaymentWebhook(svc, nil, webhookLogger())

	ack := postWebhook(t, handler, "text/weird", "m__idem=IDX-11")

	assert.True(t, ack.Forwarded)
	assert.False(t, ack.HasDocnum)
	assert.Equal(t, "IDX-11", svc.waitForCall(t).key)
}

func TestPaymentWebhookNoKeyStillOK(t *testing.T) {
	svc := newStubForwarder()
	handler := PaymentWebhook(svc, nil, webhookLogger())

	ack := postWebhook(t, handler, "application/x-www-form-urlencoded", "docnum=DOC-9")

	assert.True(t, ack.OK)
	assert.False(t, ack.Forwarded)
	assert.True(t, ack.HasDocnum)

	select {
	case <-svc.calls:
		t.Fatal("must not forward without an idempotency key")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPaymentWebhookNumericDocnum(t *testing.T) {
	svc := newStubForwarder()
	handler := PaymentWebhook(svc, nil, webhookLogger())

	ack := postWebhook(t, handler, "application/json", `{"m__idem":"IDX-12","docnum":20260042}`)

	assert.True(t, ack.HasDocnum)
	assert.Equal(t, "20260042", svc.waitForCall(t).docnum)
}

func TestPaymentWebhookDuplicateSuppressed(t *testing.T) {
	svc := newStubForwarder()
	guard := &stubGuard{seen: true}
	handler := PaymentWebhook(svc, guard, webhookLogger())

	ack := postWebhook(t, handler, "application/x-www-form-urlencoded", "m__idem=IDX-13")

	// The response still reports the forward was triggered; dedupe is internal.
	assert.True(t, ack.Forwarded)
	select {
	case <-svc.calls:
		t.Fatal("duplicate must not reach the forwarder")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPaymentWebhookFailedForwardReleasesGuard(t *testing.T) {
	svc := newStubForwarder()
	svc.err = errors.New("store down")
	guard := &stubGuard{}
	handler := PaymentWebhook(svc, guard, webhookLogger())

	ack := postWebhook(t, handler, "application/x-www-form-urlencoded", "m__idem=IDX-14")
	assert.True(t, ack.OK)

	svc.waitForCall(t)
	require.Eventually(t, func() bool {
		guard.mu.Lock()
		defer guard.mu.Unlock()
		return len(guard.deleted) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"IDX-14"}, guard.deleted)
}

func TestPaymentWebhookGuardErrorForwardsAnyway(t *testing.T) {
	svc := newStubForwarder()
	guard := &stubGuard{err: errors.New("redis down")}
	handler := PaymentWebhook(svc, guard, webhookLogger())

	postWebhook(t, handler, "application/x-www-form-urlencoded", "m__idem=IDX-15")
	assert.Equal(t, "IDX-15", svc.waitForCall(t).key)
}
