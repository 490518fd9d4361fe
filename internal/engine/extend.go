package engine

import (
	"context"

	"github.com/sqewdb/sqew/internal/apperr"
)

// ExtendLease pushes a held lease's expiry further into the future,
// fenced by the same token the lease was claimed with.
func (e *Engine) ExtendLease(ctx context.Context, queueName string, messageID int64, token string, extendMs int64) (int64, error) {
	if extendMs <= 0 {
		return 0, apperr.InvalidArg("extend_ms must be > 0")
	}
	q, err := e.registry.Get(ctx, queueName)
	if err != nil {
		return 0, err
	}

	newExpiresAt, ok, err := e.store.ExtendLease(ctx, q.ID, messageID, token, extendMs, e.clock.NowMs())
	if err != nil {
		return 0, apperr.Storage("extend lease", err)
	}
	if !ok {
		return 0, apperr.LeaseLost(token)
	}
	return newExpiresAt, nil
}
