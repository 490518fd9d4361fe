package engine

import (
	"context"
	"math/rand"

	"github.com/sqewdb/sqew/internal/apperr"
	"github.com/sqewdb/sqew/internal/config"
	"github.com/sqewdb/sqew/internal/metrics"
	"github.com/sqewdb/sqew/internal/store"
)

type NackItem struct {
	ID    int64
	Token string
}

type NackResult struct {
	ID             int64
	Outcome        string // "rescheduled" | "dropped" | "moved_to_dlq" | "fenced"
	AvailableAt    int64  // only meaningful when Outcome == "rescheduled"
}

// Nack releases a batch of (id, token) pairs back to the queue. For each
// pair, inside a transaction, it verifies fencing, then reschedules with
// backoff, routes to the queue's DLQ, or drops the message once the
// attempts cap is reached.
func (e *Engine) Nack(ctx context.Context, queueName string, items []NackItem, delayMs int64) ([]NackResult, error) {
	if delayMs < 0 {
		return nil, apperr.InvalidArg("delay_ms must be >= 0")
	}
	q, err := e.registry.Get(ctx, queueName)
	if err != nil {
		return nil, err
	}

	results := make([]NackResult, 0, len(items))
	var rescheduled, dropped, movedToDLQ int64
	for _, item := range items {
		now := e.clock.NowMs()
		outcome, availableAt, err := e.store.NackMessage(ctx, q.ID, item.ID, item.Token, now, func(attempts int64) int64 {
			return now + effectiveDelay(delayMs, attempts)
		})
		if err != nil {
			return nil, apperr.Storage("nack", err)
		}

		switch outcome {
		case store.NackOutcomeRescheduled:
			rescheduled++
		case store.NackOutcomeDropped:
			dropped++
		case store.NackOutcomeMovedToDLQ:
			movedToDLQ++
		}
		results = append(results, NackResult{ID: item.ID, Outcome: string(outcome), AvailableAt: availableAt})
	}

	if len(items) > 0 {
		e.metrics.IncMessagesNackedTotalBy(int64(len(items)), queueName)
	}
	if rescheduled > 0 {
		e.metrics.IncMessagesRescheduledTotalBy(rescheduled, queueName)
	}
	if dropped > 0 {
		e.metrics.IncMessagesDroppedTotalBy(dropped, queueName, metrics.DroppedAttemptsCapReason)
	}
	if movedToDLQ > 0 {
		e.metrics.IncMessagesMovedToDlqTotalBy(movedToDLQ, queueName)
	}
	return results, nil
}

// effectiveDelay computes exponential backoff: base * 2^attempts +
// uniform jitter in [0, base), then max'd against a caller-supplied delay.
func effectiveDelay(callerDelayMs, attempts int64) int64 {
	shift := attempts
	if shift > 32 {
		shift = 32 // guard against overflow for pathologically high attempts caps
	}
	backoff := config.BackoffBaseMs<<uint(shift) + rand.Int63n(config.BackoffBaseMs)
	if callerDelayMs > backoff {
		return callerDelayMs
	}
	return backoff
}
