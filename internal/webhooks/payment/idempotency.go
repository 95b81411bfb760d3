package paymentwebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inkbridge/inkbridge-backend/pkg/redis"
)

// IdempotencyGuard suppresses duplicate provider callbacks for the same
// idempotency key. Best effort: the record store upsert is merge-on-key, so a
// duplicate that slips through is still harmless.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope}, nil
}

// CheckAndMark returns true when the key was already seen inside the TTL
// window, atomically marking it otherwise.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, idempotencyKey string) (bool, error) {
	if idempotencyKey == "" {
		return false, errors.New("idempotency key is required")
	}
	key := g.store.IdempotencyKey(g.scope, idempotencyKey)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete releases a mark so a failed forward can be retried by the provider.
func (g *IdempotencyGuard) Delete(ctx context.Context, idempotencyKey string) error {
	if idempotencyKey == "" {
		return errors.New("idempotency key is required")
	}
	key := g.store.IdempotencyKey(g.scope, idempotencyKey)
	return g.store.Del(ctx, key)
}
