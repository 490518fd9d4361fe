package engine

import (
	"context"

	"github.com/sqewdb/sqew/internal/apperr"
	"github.com/sqewdb/sqew/internal/store"
)

type AckItem struct {
	ID    int64
	Token string
}

type AckResult struct {
	ID      int64
	Outcome string // "acked" | "not_leased" | "fenced"
}

// Ack confirms a batch of (id, token) pairs. Each pair is independent;
// no item's failure rolls back another's success.
func (e *Engine) Ack(ctx context.Context, queueName string, items []AckItem) ([]AckResult, error) {
	q, err := e.registry.Get(ctx, queueName)
	if err != nil {
		return nil, err
	}

	now := e.clock.NowMs()
	results := make([]AckResult, 0, len(items))
	var acked int64
	for _, item := range items {
		outcome, err := e.store.AckMessage(ctx, q.ID, item.ID, item.Token, now)
		if err != nil {
			return nil, apperr.Storage("ack", err)
		}
		if outcome == store.AckOutcomeAcked {
			acked++
		}
		results = append(results, AckResult{ID: item.ID, Outcome: string(outcome)})
	}
	if acked > 0 {
		e.metrics.IncMessagesAckedTotalBy(acked, queueName)
	}
	return results, nil
}
