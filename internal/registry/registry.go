// Package registry implements queue lifecycle management: create, list,
// get, delete, purge, compact, stats. Validation of names and bounds
// happens here, never in storage.
package registry

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/sqewdb/sqew/internal/apperr"
	"github.com/sqewdb/sqew/internal/clock"
	"github.com/sqewdb/sqew/internal/config"
	"github.com/sqewdb/sqew/internal/store"
)

const maxNameLen = 128

type Queue struct {
	ID           int64
	Name         string
	MaxAttempts  int64
	VisibilityMs int64
	DLQName      string
}

type Stats struct {
	Ready                int64
	Leased               int64
	Total                int64
	OldestAvailableAgeMs *int64
}

type Registry struct {
	store *store.Store
	clock clock.Clock
}

func New(s *store.Store, c clock.Clock) *Registry {
	return &Registry{store: s, clock: c}
}

// Create validates and inserts a new queue. dlqName, if non-empty, must
// already exist; it is resolved and bound at creation time only.
func (r *Registry) Create(ctx context.Context, name string, maxAttempts, visibilityMs int64, dlqName string) (*Queue, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if maxAttempts == 0 {
		maxAttempts = config.DefaultMaxAttempts
	}
	if visibilityMs == 0 {
		visibilityMs = config.DefaultVisibilityMs
	}
	if maxAttempts < 1 {
		return nil, apperr.InvalidArg("max_attempts must be >= 1")
	}
	if visibilityMs < 1 {
		return nil, apperr.InvalidArg("visibility_ms must be >= 1")
	}

	row, err := r.store.CreateQueue(ctx, name, maxAttempts, visibilityMs, dlqName)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, apperr.AlreadyExists(name)
		}
		if errors.Is(err, store.ErrDLQNotFound) {
			return nil, apperr.InvalidArg("dlq queue does not exist: " + dlqName)
		}
		return nil, apperr.Storage("create queue", err)
	}
	return toQueue(row, dlqName), nil
}

func (r *Registry) List(ctx context.Context) ([]Queue, error) {
	var rows []store.QueueRow
	err := retryOnBusy(func() error {
		var err error
		rows, err = r.store.ListQueues(ctx)
		return err
	})
	if err != nil {
		return nil, wrapStorageErr("list queues", err)
	}
	out := make([]Queue, 0, len(rows))
	for i := range rows {
		dlqName, err := r.resolveDLQName(ctx, &rows[i])
		if err != nil {
			return nil, wrapStorageErr("resolve dlq name", err)
		}
		out = append(out, *toQueue(&rows[i], dlqName))
	}
	return out, nil
}

func (r *Registry) Get(ctx context.Context, name string) (*Queue, error) {
	var row *store.QueueRow
	err := retryOnBusy(func() error {
		var err error
		row, err = r.store.GetQueueByName(ctx, name)
		return err
	})
	if err != nil {
		return nil, wrapStorageErr("get queue", err)
	}
	if row == nil {
		return nil, apperr.NotFound(name)
	}
	dlqName, err := r.resolveDLQName(ctx, row)
	if err != nil {
		return nil, wrapStorageErr("resolve dlq name", err)
	}
	return toQueue(row, dlqName), nil
}

// resolveDLQName looks up the display name of a queue's configured DLQ,
// if any. Returns "" when the queue has none.
func (r *Registry) resolveDLQName(ctx context.Context, row *store.QueueRow) (string, error) {
	if !row.DLQID.Valid {
		return "", nil
	}
	var dlq *store.QueueRow
	err := retryOnBusy(func() error {
		var err error
		dlq, err = r.store.GetQueueByID(ctx, row.DLQID.Int64)
		return err
	})
	if err != nil {
		return "", err
	}
	if dlq == nil {
		return "", nil
	}
	return dlq.Name, nil
}

func (r *Registry) Delete(ctx context.Context, name string) error {
	ok, err := r.store.DeleteQueue(ctx, name)
	if err != nil {
		return apperr.Storage("delete queue", err)
	}
	if !ok {
		return apperr.NotFound(name)
	}
	return nil
}

// Purge deletes all messages in the queue, preserving the queue row, and
// returns the count deleted.
func (r *Registry) Purge(ctx context.Context, name string) (int64, error) {
	row, err := r.store.GetQueueByName(ctx, name)
	if err != nil {
		return 0, apperr.Storage("get queue", err)
	}
	if row == nil {
		return 0, apperr.NotFound(name)
	}
	n, err := r.store.PurgeQueueMessages(ctx, row.ID)
	if err != nil {
		return 0, apperr.Storage("purge queue", err)
	}
	return n, nil
}

// Compact triggers advisory storage compaction (VACUUM). This holds the
// single writer slot for its duration; callers should expect higher
// latency on concurrent writes while it runs.
func (r *Registry) Compact(ctx context.Context, name string) error {
	row, err := r.store.GetQueueByName(ctx, name)
	if err != nil {
		return apperr.Storage("get queue", err)
	}
	if row == nil {
		return apperr.NotFound(name)
	}
	if err := r.store.Vacuum(ctx); err != nil {
		return apperr.Storage("compact queue", err)
	}
	return nil
}

func (r *Registry) Stats(ctx context.Context, name string) (*Stats, error) {
	var row *store.QueueRow
	err := retryOnBusy(func() error {
		var err error
		row, err = r.store.GetQueueByName(ctx, name)
		return err
	})
	if err != nil {
		return nil, wrapStorageErr("get queue", err)
	}
	if row == nil {
		return nil, apperr.NotFound(name)
	}
	var st *store.QueueStats
	err = retryOnBusy(func() error {
		var err error
		st, err = r.store.QueueStats(ctx, row.ID, r.clock.NowMs())
		return err
	})
	if err != nil {
		return nil, wrapStorageErr("queue stats", err)
	}
	out := &Stats{Ready: st.Ready, Leased: st.Leased, Total: st.Total}
	if st.OldestAvailableAgeMs.Valid {
		age := st.OldestAvailableAgeMs.Int64
		out.OldestAvailableAgeMs = &age
	}
	return out, nil
}

// maxBusyRetries bounds the retry loop for read-only operations that hit
// SQLite's busy-timeout; writes are left to fail fast since retrying a
// write risks masking a real contention problem behind added latency.
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
// Storage kind, so busy-timeout exhaustion surfaces distinctly to callers.
func wrapStorageErr(detail string, err error) error {
	if store.IsBusy(err) {
		return apperr.BusyTimeout(detail, err)
	}
	return apperr.Storage(detail, err)
}

func toQueue(row *store.QueueRow, dlqName string) *Queue {
	return &Queue{
		ID:           row.ID,
		Name:         row.Name,
		MaxAttempts:  row.MaxAttempts,
		VisibilityMs: row.VisibilityMs,
		DLQName:      dlqName,
	}
}

// validateName enforces: non-empty, printable, <= 128 chars.
func validateName(name string) error {
	if name == "" {
		return apperr.InvalidArg("queue name must not be empty")
	}
	if len(name) > maxNameLen {
		return apperr.InvalidArg("queue name exceeds 128 chars")
	}
	if strings.TrimSpace(name) != name {
		return apperr.InvalidArg("queue name must not have leading/trailing whitespace")
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return apperr.InvalidArg("queue name must be printable")
		}
	}
	return nil
}
