package recordstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inkbridge/inkbridge-backend/pkg/config"
	pkgerrors "github.com/inkbridge/inkbridge-backend/pkg/errors"
)

func storeConfig(baseURL string) config.RecordStoreConfig {
	return config.RecordStoreConfig{
		BaseURL:  baseURL,
		Token:    "test-token",
		BaseID:   "appTEST",
		Table:    "orders",
		KeyField: "m__idem",
	}
}

func TestUpsertRejectsShortKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(storeConfig(server.URL), nil)
	_, err := client.Upsert(context.Background(), "ab", map[string]any{"total": 1})
	require.ErrorIs(t, err, ErrInvalidIdempotencyKey)
	require.False(t, called, "short key must never reach the network")
}

func TestUpsertSkipsWhenUnconfigured(t *testing.T) {
	client := NewClient(config.RecordStoreConfig{KeyField: "m__idem"}, nil)
	result, err := client.Upsert(context.Background(), "IDX-001", map[string]any{"total": 1})
	require.NoError(t, err)
	require.True(t, result.Skipped)
}

func TestUpsertSendsMergeOnKeyBody(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{{"id": "rec123", "created": true}},
		})
	}))
	defer server.Close()

	client := NewClient(storeConfig(server.URL), nil)
	result, err := client.Upsert(context.Background(), "IDX-001", map[string]any{"total": 850})
	require.NoError(t, err)
	require.False(t, result.Skipped)
	require.Equal(t, "rec123", result.RecordID)
	require.True(t, result.Created)

	perform := captured["performUpsert"].(map[string]any)
	require.Equal(t, []any{"m__idem"}, perform["fieldsToMergeOn"].([]any))
	require.Equal(t, true, captured["typecast"])

	records := captured["records"].([]any)
	require.Len(t, records, 1)
	fields := records[0].(map[string]any)["fields"].(map[string]any)
	require.Equal(t, "IDX-001", fields["m__idem"])
	require.Equal(t, float64(850), fields["total"])
}

func TestUpsertSurfacesRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"INVALID_VALUE_FOR_COLUMN"}`))
	}))
	defer server.Close()

	client := NewClient(storeConfig(server.URL), nil)
	_, err := client.Upsert(context.Background(), "IDX-001", map[string]any{"total": 1})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUpstreamRejected, typed.Code())
	details := typed.Details().(map[string]any)
	require.Equal(t, http.StatusUnprocessableEntity, details["status"])
	require.Contains(t, details["body"], "INVALID_VALUE_FOR_COLUMN")
}

func TestUpsertTransportFailureIsDependencyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(storeConfig(server.URL), nil)
	_, err := client.Upsert(context.Background(), "IDX-001", map[string]any{"total": 1})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

// fakeMergeStore enforces merge-on-key semantics the way the real store does:
// one logical record per key, later field subsets overwriting earlier ones.
type fakeMergeStore struct {
	mu      sync.Mutex
	records map[string]map[string]any
}

func (f *fakeMergeStore) handler(keyField string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Records []struct {
				Fields map[string]any `json:"fields"`
			} `json:"records"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.records == nil {
			f.records = map[string]map[string]any{}
		}

		fields := req.Records[0].Fields
		key := fields[keyField].(string)
		existing, ok := f.records[key]
		if !ok {
			existing = map[string]any{}
			f.records[key] = existing
		}
		for k, v := range fields {
			existing[k] = v
		}

		json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{{"id": "rec-" + key, "created": !ok}},
		})
	}
}

func TestUpsertMergeOnKeyConverges(t *testing.T) {
	store := &fakeMergeStore{}
	server := httptest.NewServer(store.handler("m__idem"))
	defer server.Close()

	client := NewClient(storeConfig(server.URL), nil)

	first, err := client.Upsert(context.Background(), "IDX-777", map[string]any{"total": 850, "status": "draft"})
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := client.Upsert(context.Background(), "IDX-777", map[string]any{"paid": true})
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.RecordID, second.RecordID)

	record := store.records["IDX-777"]
	require.Equal(t, float64(850), record["total"])
	require.Equal(t, "draft", record["status"])
	require.Equal(t, true, record["paid"])
}
