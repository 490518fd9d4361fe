package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
)

// CreateQueue inserts a new queue row. dlqName, if non-empty, must already
// exist and is resolved to its id at creation time. A queue's
// configuration is immutable after creation, so the DLQ link is
// structural, set once, here.
func (s *Store) CreateQueue(ctx context.Context, name string, maxAttempts, visibilityMs int64, dlqName string) (*QueueRow, error) {
	var dlqID sql.NullInt64
	if dlqName != "" {
		dlq, err := s.GetQueueByName(ctx, dlqName)
		if err != nil {
			return nil, err
		}
		if dlq == nil {
			return nil, ErrDLQNotFound
		}
		dlqID = sql.NullInt64{Int64: dlq.ID, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO queue (name, max_attempts, visibility_ms, dlq_id) VALUES (?, ?, ?, ?)`,
		name, maxAttempts, visibilityMs, dlqID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		log.Error().Err(err).Str("queue", name).Msg("failed to create queue")
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &QueueRow{ID: id, Name: name, MaxAttempts: maxAttempts, VisibilityMs: visibilityMs, DLQID: dlqID}, nil
}

func (s *Store) GetQueueByName(ctx context.Context, name string) (*QueueRow, error) {
	var q QueueRow
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, max_attempts, visibility_ms, dlq_id FROM queue WHERE name = ?`, name,
	).Scan(&q.ID, &q.Name, &q.MaxAttempts, &q.VisibilityMs, &q.DLQID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error().Err(err).Str("queue", name).Msg("failed to get queue")
		return nil, err
	}
	return &q, nil
}

func (s *Store) GetQueueByID(ctx context.Context, id int64) (*QueueRow, error) {
	var q QueueRow
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, max_attempts, visibility_ms, dlq_id FROM queue WHERE id = ?`, id,
	).Scan(&q.ID, &q.Name, &q.MaxAttempts, &q.VisibilityMs, &q.DLQID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *Store) ListQueues(ctx context.Context) ([]QueueRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, max_attempts, visibility_ms, dlq_id FROM queue ORDER BY id`)
	if err != nil {
		log.Error().Err(err).Msg("failed to list queues")
		return nil, err
	}
	defer rows.Close()

	var out []QueueRow
	for rows.Next() {
		var q QueueRow
		if err := rows.Scan(&q.ID, &q.Name, &q.MaxAttempts, &q.VisibilityMs, &q.DLQID); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// DeleteQueue removes the queue row; ON DELETE CASCADE drops its messages.
// Returns false if no queue by that name existed.
func (s *Store) DeleteQueue(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue WHERE name = ?`, name)
	if err != nil {
		log.Error().Err(err).Str("queue", name).Msg("failed to delete queue")
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PurgeQueueMessages deletes every message in the queue, preserving the
// queue row itself, and returns the count deleted.
func (s *Store) PurgeQueueMessages(ctx context.Context, queueID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM message WHERE queue_id = ?`, queueID)
	if err != nil {
		log.Error().Err(err).Int64("queue_id", queueID).Msg("failed to purge queue")
		return 0, err
	}
	return res.RowsAffected()
}

// QueueStats computes ready/leased/total counts and the oldest ready
// message's age.
func (s *Store) QueueStats(ctx context.Context, queueID int64, nowMs int64) (*QueueStats, error) {
	var st QueueStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE (lease_expires_at IS NULL OR lease_expires_at <= ?)
				AND available_at <= ? AND (expires_at IS NULL OR expires_at > ?)) AS ready,
			COUNT(*) FILTER (WHERE lease_expires_at > ?) AS leased,
			COUNT(*) AS total,
			MIN(available_at) FILTER (WHERE (lease_expires_at IS NULL OR lease_expires_at <= ?)
				AND available_at <= ? AND (expires_at IS NULL OR expires_at > ?)) AS oldest_available_at
		FROM message WHERE queue_id = ?`,
		nowMs, nowMs, nowMs, nowMs, nowMs, nowMs, nowMs, queueID,
	).Scan(&st.Ready, &st.Leased, &st.Total, &st.OldestAvailableAgeMs)
	if err != nil {
		log.Error().Err(err).Int64("queue_id", queueID).Msg("failed to compute queue stats")
		return nil, err
	}
	if st.OldestAvailableAgeMs.Valid {
		st.OldestAvailableAgeMs.Int64 = nowMs - st.OldestAvailableAgeMs.Int64
	}
	return &st, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var (
	ErrAlreadyExists = errors.New("queue name already exists")
	ErrDLQNotFound   = errors.New("dlq queue not found")
)
