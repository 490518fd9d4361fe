package engine

import (
	"context"

	"github.com/sqewdb/sqew/internal/apperr"
	"github.com/sqewdb/sqew/internal/store"
)

// maxBusyRetries bounds the retry loop for read-only operations that hit
// SQLite's busy-timeout; writes (lease, ack, nack, enqueue) are left to
// fail fast since retrying a write risks masking real contention behind
// added latency.
const maxBusyRetries = 3

// retryOnBusy retries fn while it keeps failing with store.IsBusy, up to
// maxBusyRetries attempts, then returns the last error.
func retryOnBusy(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxBusyRetries; attempt++ {
		if err = fn(); err == nil || !store.IsBusy(err) {
			return err
		}
	}
	return err
}

// wrapStorageErr classifies a storage error as BusyTimeout or the generic
// Storage kind and records the busy-timeout metric, so exhausting the
// retry budget surfaces distinctly to callers.
func (e *Engine) wrapStorageErr(op, detail string, err error) error {
	if store.IsBusy(err) {
		e.metrics.ObserveBusyTimeout(op)
		return apperr.BusyTimeout(detail, err)
	}
	return apperr.Storage(detail, err)
}

// Peek returns up to limit ready rows, ordered the same way Lease claims
// them, without altering any lease state.
func (e *Engine) Peek(ctx context.Context, queueName string, limit int) ([]Message, error) {
	q, err := e.registry.Get(ctx, queueName)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = maxBatch
	}
	if limit > maxBatch {
		limit = maxBatch
	}

	var rows []store.MessageRow
	err = retryOnBusy(func() error {
		var err error
		rows, err = e.store.PeekMessages(ctx, q.ID, limit, e.clock.NowMs())
		return err
	})
	if err != nil {
		return nil, e.wrapStorageErr("peek", "peek", err)
	}
	out := make([]Message, 0, len(rows))
	for i := range rows {
		out = append(out, *fromRow(&rows[i]))
	}
	return out, nil
}

// Get returns one message regardless of state.
func (e *Engine) Get(ctx context.Context, queueName string, messageID int64) (*Message, error) {
	q, err := e.registry.Get(ctx, queueName)
	if err != nil {
		return nil, err
	}
	var row *store.MessageRow
	err = retryOnBusy(func() error {
		var err error
		row, err = e.store.GetMessage(ctx, q.ID, messageID)
		return err
	})
	if err != nil {
		return nil, e.wrapStorageErr("get", "get message", err)
	}
	if row == nil {
		return nil, apperr.NotFound("message")
	}
	return fromRow(row), nil
}

// Remove is an unconditional admin delete; no fencing.
func (e *Engine) Remove(ctx context.Context, queueName string, messageID int64) error {
	q, err := e.registry.Get(ctx, queueName)
	if err != nil {
		return err
	}
	ok, err := e.store.RemoveMessage(ctx, q.ID, messageID)
	if err != nil {
		return apperr.Storage("remove message", err)
	}
	if !ok {
		return apperr.NotFound("message")
	}
	return nil
}
