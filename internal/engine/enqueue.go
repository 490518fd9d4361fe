package engine

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/sqewdb/sqew/internal/apperr"
	"github.com/sqewdb/sqew/internal/config"
)

type EnqueueInput struct {
	QueueName      string
	Payload        []byte // raw JSON bytes
	DelayMs        int64
	Priority       int64
	IdempotencyKey string // empty means none
	TTLMs          int64  // 0 means none
	HasTTL         bool
}

type EnqueueResult struct {
	ID           int64
	Deduplicated bool
}

// Enqueue validates and inserts one message, deduplicating on
// idempotency key when one is supplied.
func (e *Engine) Enqueue(ctx context.Context, in EnqueueInput) (*EnqueueResult, error) {
	q, err := e.registry.Get(ctx, in.QueueName)
	if err != nil {
		return nil, err
	}

	if len(in.Payload) > config.MaxPayloadBytes {
		return nil, apperr.PayloadTooLarge(in.QueueName)
	}
	if !json.Valid(in.Payload) {
		return nil, apperr.InvalidArg("payload is not valid JSON")
	}
	if in.DelayMs < 0 {
		return nil, apperr.InvalidArg("delay_ms must be >= 0")
	}
	if in.HasTTL && in.TTLMs < 0 {
		return nil, apperr.InvalidArg("ttl_ms must be >= 0")
	}

	now := e.clock.NowMs()
	availableAt := now + in.DelayMs // created_at <= available_at since delay_ms >= 0

	var expiresAt *int64
	if in.HasTTL {
		v := now + in.TTLMs
		expiresAt = &v
	}
	var idemKey *string
	if in.IdempotencyKey != "" {
		idemKey = &in.IdempotencyKey
	}

	id, dedup, err := e.store.InsertMessage(ctx, q.ID, string(in.Payload), in.Priority, idemKey, availableAt, now, expiresAt)
	if err != nil {
		log.Error().Err(err).Str("queue", in.QueueName).Msg("enqueue failed")
		return nil, apperr.Storage("enqueue", err)
	}

	e.metrics.IncMessagesEnqueuedTotalBy(1, in.QueueName, dedup)
	return &EnqueueResult{ID: id, Deduplicated: dedup}, nil
}
