package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sqewdb/sqew/internal/apperr"
)

const (
	minBatch = 1
	maxBatch = 256

	longPollInterval = 100 * time.Millisecond
)

type LeaseInput struct {
	QueueName           string
	Batch               int
	VisibilityOverrideMs int64 // 0 means use the queue's default
	ConsumerTag         string
	WaitMs              int64 // 0 means no long-poll; otherwise bounded wait
}

type LeaseResult struct {
	Messages []LeasedMessage
}

// Lease performs an atomic batch claim, optionally long-polling until at
// least one message becomes available or WaitMs elapses.
func (e *Engine) Lease(ctx context.Context, in LeaseInput) (*LeaseResult, error) {
	q, err := e.registry.Get(ctx, in.QueueName)
	if err != nil {
		return nil, err
	}

	batch := in.Batch
	if batch < minBatch {
		batch = minBatch
	}
	if batch > maxBatch {
		batch = maxBatch
	}
	visMs := in.VisibilityOverrideMs
	if visMs <= 0 {
		visMs = q.VisibilityMs
	}

	start := time.Now()
	ticker := time.NewTicker(longPollInterval)
	defer ticker.Stop()

	for {
		msgs, err := e.leaseOnce(ctx, q.ID, q.Name, batch, visMs, in.ConsumerTag)
		if err != nil {
			return nil, err
		}
		if len(msgs) > 0 || in.WaitMs <= 0 {
			return &LeaseResult{Messages: msgs}, nil
		}
		if time.Since(start).Milliseconds() >= in.WaitMs {
			return &LeaseResult{Messages: msgs}, nil
		}

		select {
		case <-ticker.C:
			// continue polling
		case <-ctx.Done():
			log.Error().Err(ctx.Err()).Str("queue", in.QueueName).Msg("context cancelled while long-polling lease")
			return nil, apperr.Storage("lease", ctx.Err())
		}
	}
}

func (e *Engine) leaseOnce(ctx context.Context, queueID int64, queueName string, batch int, visMs int64, consumerTag string) ([]LeasedMessage, error) {
	token, err := newToken()
	if err != nil {
		return nil, apperr.Storage("generate lease token", err)
	}

	rows, err := e.store.LeaseMessages(ctx, queueID, batch, visMs, consumerTag, token, e.clock.NowMs())
	if err != nil {
		return nil, apperr.Storage("lease", err)
	}

	out := make([]LeasedMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, LeasedMessage{
			ID:             row.ID,
			PayloadJSON:    []byte(row.PayloadJSON),
			Attempts:       row.Attempts,
			Token:          row.LeaseToken,
			LeaseExpiresAt: row.LeaseExpiresAt,
		})
	}
	if len(out) > 0 {
		e.metrics.IncMessagesLeasedTotalBy(int64(len(out)), queueName)
	}
	return out, nil
}
