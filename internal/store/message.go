package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"
)

// InsertMessage enqueues a new message. If idempotencyKey is set and
// already present for this queue, the insert is skipped and the existing
// row's id is returned with deduplicated=true.
func (s *Store) InsertMessage(ctx context.Context, queueID int64, payloadJSON string, priority int64, idempotencyKey *string, availableAt, createdAt int64, expiresAt *int64) (id int64, deduplicated bool, err error) {
	var idemKey sql.NullString
	if idempotencyKey != nil {
		idemKey = sql.NullString{String: *idempotencyKey, Valid: true}
	}
	var expires sql.NullInt64
	if expiresAt != nil {
		expires = sql.NullInt64{Int64: *expiresAt, Valid: true}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO message (queue_id, payload_json, priority, idempotency_key, attempts, available_at, created_at, expires_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?)
		ON CONFLICT(queue_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
		RETURNING id`,
		queueID, payloadJSON, priority, idemKey, availableAt, createdAt, expires,
	)
	if err := row.Scan(&id); err == nil {
		return id, false, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		log.Error().Err(err).Int64("queue_id", queueID).Msg("failed to insert message")
		return 0, false, err
	}

	// Conflict: idempotencyKey must be set (the only way DO NOTHING fires).
	// Look up the existing row's id.
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM message WHERE queue_id = ? AND idempotency_key = ?`,
		queueID, *idempotencyKey,
	).Scan(&id)
	if err != nil {
		log.Error().Err(err).Int64("queue_id", queueID).Msg("failed to resolve deduplicated message")
		return 0, false, err
	}
	return id, true, nil
}

// LeaseMessages atomically claims up to batch ready messages from queueID,
// ordered by (priority DESC, available_at ASC, id ASC), and stamps them
// with a single token shared by the whole batch.
func (s *Store) LeaseMessages(ctx context.Context, queueID int64, batch int, visibilityMs int64, consumerTag, token string, nowMs int64) ([]LeasedMessage, error) {
	newLeaseExpiresAt := nowMs + visibilityMs

	rows, err := s.db.QueryContext(ctx, `
		UPDATE message
		SET lease_token = ?, lease_expires_at = ?, leased_by = ?
		WHERE id IN (
			SELECT id FROM message
			WHERE queue_id = ?
			  AND (lease_expires_at IS NULL OR lease_expires_at <= ?)
			  AND available_at <= ?
			  AND (expires_at IS NULL OR expires_at > ?)
			ORDER BY priority DESC, available_at ASC, id ASC
			LIMIT ?
		)
		RETURNING id, payload_json, attempts, lease_token, lease_expires_at`,
		token, newLeaseExpiresAt, consumerTag,
		queueID, nowMs, nowMs, nowMs, batch,
	)
	if err != nil {
		log.Error().Err(err).Int64("queue_id", queueID).Msg("failed to lease messages")
		return nil, err
	}
	defer rows.Close()

	var out []LeasedMessage
	for rows.Next() {
		var m LeasedMessage
		if err := rows.Scan(&m.ID, &m.PayloadJSON, &m.Attempts, &m.LeaseToken, &m.LeaseExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ExtendLease extends an unexpired, correctly-fenced lease. Returns the
// new lease_expires_at, or ok=false if the token doesn't match or the
// lease already expired.
func (s *Store) ExtendLease(ctx context.Context, queueID, messageID int64, token string, extendMs, nowMs int64) (newExpiresAt int64, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		UPDATE message
		SET lease_expires_at = MAX(lease_expires_at, ?) + ?
		WHERE id = ? AND queue_id = ? AND lease_token = ? AND lease_expires_at > ?
		RETURNING lease_expires_at`,
		nowMs, extendMs, messageID, queueID, token, nowMs,
	).Scan(&newExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		log.Error().Err(err).Int64("message_id", messageID).Msg("failed to extend lease")
		return 0, false, err
	}
	return newExpiresAt, true, nil
}

// AckMessage deletes a message iff the caller's token fences successfully,
// returning the outcome.
func (s *Store) AckMessage(ctx context.Context, queueID, messageID int64, token string, nowMs int64) (AckOutcome, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM message
		WHERE id = ? AND queue_id = ? AND lease_token = ? AND lease_expires_at > ?`,
		messageID, queueID, token, nowMs,
	)
	if err != nil {
		log.Error().Err(err).Int64("message_id", messageID).Msg("failed to ack message")
		return "", err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return AckOutcomeAcked, nil
	}

	var storedToken sql.NullString
	var storedExpiry sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		`SELECT lease_token, lease_expires_at FROM message WHERE id = ? AND queue_id = ?`,
		messageID, queueID,
	).Scan(&storedToken, &storedExpiry)
	if errors.Is(err, sql.ErrNoRows) {
		return AckOutcomeNotLeased, nil
	}
	if err != nil {
		return "", err
	}
	if !storedToken.Valid {
		return AckOutcomeNotLeased, nil
	}
	return AckOutcomeFenced, nil
}

// nackCandidate is the row state read at the start of a nack, inside the
// same transaction that will update or delete it.
type nackCandidate struct {
	attempts     int64
	leaseToken   sql.NullString
	leaseExpires sql.NullInt64
	maxAttempts  int64
	dlqID        sql.NullInt64
}

// NackMessage releases a leased message back to the queue, or drops or
// routes it to a DLQ once the attempts cap is reached. The delay is
// supplied by the engine (which owns jitter and the base/delay policy);
// the store only applies the already-computed delay and enforces the
// attempts cap and fencing atomically.
func (s *Store) NackMessage(ctx context.Context, queueID, messageID int64, token string, nowMs int64, computeDelay func(attempts int64) int64) (outcome NackOutcome, newAvailableAt int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	var c nackCandidate
	err = tx.QueryRowContext(ctx, `
		SELECT m.attempts, m.lease_token, m.lease_expires_at, q.max_attempts, q.dlq_id
		FROM message m JOIN queue q ON q.id = m.queue_id
		WHERE m.id = ? AND m.queue_id = ?`,
		messageID, queueID,
	).Scan(&c.attempts, &c.leaseToken, &c.leaseExpires, &c.maxAttempts, &c.dlqID)
	if errors.Is(err, sql.ErrNoRows) {
		return NackOutcomeFenced, 0, nil
	}
	if err != nil {
		log.Error().Err(err).Int64("message_id", messageID).Msg("failed to read message for nack")
		return "", 0, err
	}

	if !c.leaseToken.Valid || c.leaseToken.String != token || !c.leaseExpires.Valid || c.leaseExpires.Int64 <= nowMs {
		return NackOutcomeFenced, 0, nil
	}

	newAttempts := c.attempts + 1
	if newAttempts >= c.maxAttempts {
		if c.dlqID.Valid {
			if err := routeToDLQ(ctx, tx, messageID, c.dlqID.Int64, nowMs); err != nil {
				return "", 0, err
			}
			if err := tx.Commit(); err != nil {
				return "", 0, err
			}
			return NackOutcomeMovedToDLQ, 0, nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM message WHERE id = ?`, messageID); err != nil {
			log.Error().Err(err).Int64("message_id", messageID).Msg("failed to drop over-attempt message")
			return "", 0, err
		}
		if err := tx.Commit(); err != nil {
			return "", 0, err
		}
		return NackOutcomeDropped, 0, nil
	}

	newAvailableAt = computeDelay(newAttempts)
	_, err = tx.ExecContext(ctx, `
		UPDATE message
		SET attempts = ?, available_at = ?, lease_token = NULL, lease_expires_at = NULL, leased_by = NULL
		WHERE id = ?`,
		newAttempts, newAvailableAt, messageID,
	)
	if err != nil {
		log.Error().Err(err).Int64("message_id", messageID).Msg("failed to reschedule message")
		return "", 0, err
	}
	if err := tx.Commit(); err != nil {
		return "", 0, err
	}
	return NackOutcomeRescheduled, newAvailableAt, nil
}

// routeToDLQ moves an over-attempt message into its queue's designated
// dead-letter queue instead of discarding it. Attempts reset to 0 in the
// new queue.
func routeToDLQ(ctx context.Context, tx *sql.Tx, messageID, dlqID, nowMs int64) error {
	var payload string
	var priority int64
	var idemKey sql.NullString
	err := tx.QueryRowContext(ctx,
		`SELECT payload_json, priority, idempotency_key FROM message WHERE id = ?`, messageID,
	).Scan(&payload, &priority, &idemKey)
	if err != nil {
		return err
	}
	// The idempotency key is scoped to (queue_id, key); carrying it into
	// the DLQ could collide with a key already used there, so it is
	// dropped: DLQ entries are diagnostic, not re-deduplicated.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO message (queue_id, payload_json, priority, attempts, available_at, created_at)
		VALUES (?, ?, ?, 0, ?, ?)`,
		dlqID, payload, priority, nowMs, nowMs,
	)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM message WHERE id = ?`, messageID)
	return err
}

// PeekMessages returns up to limit ready rows without altering lease
// state.
func (s *Store) PeekMessages(ctx context.Context, queueID int64, limit int, nowMs int64) ([]MessageRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, queue_id, payload_json, priority, idempotency_key, attempts, available_at, lease_token, lease_expires_at, leased_by, created_at, expires_at
		FROM message
		WHERE queue_id = ?
		  AND (lease_expires_at IS NULL OR lease_expires_at <= ?)
		  AND available_at <= ?
		  AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY priority DESC, available_at ASC, id ASC
		LIMIT ?`,
		queueID, nowMs, nowMs, nowMs, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessageRows(rows)
}

// GetMessage returns a message regardless of state.
func (s *Store) GetMessage(ctx context.Context, queueID, messageID int64) (*MessageRow, error) {
	var m MessageRow
	err := s.db.QueryRowContext(ctx, `
		SELECT id, queue_id, payload_json, priority, idempotency_key, attempts, available_at, lease_token, lease_expires_at, leased_by, created_at, expires_at
		FROM message WHERE id = ? AND queue_id = ?`,
		messageID, queueID,
	).Scan(&m.ID, &m.QueueID, &m.PayloadJSON, &m.Priority, &m.IdempotencyKey, &m.Attempts, &m.AvailableAt, &m.LeaseToken, &m.LeaseExpiresAt, &m.LeasedBy, &m.CreatedAt, &m.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RemoveMessage is an unconditional admin delete; no fencing.
func (s *Store) RemoveMessage(ctx context.Context, queueID, messageID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM message WHERE id = ? AND queue_id = ?`, messageID, queueID)
	if err != nil {
		log.Error().Err(err).Int64("message_id", messageID).Msg("failed to remove message")
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ExpireMessages deletes every message whose TTL has elapsed across all
// queues; used by the reaper.
func (s *Store) ExpireMessages(ctx context.Context, nowMs int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM message WHERE expires_at IS NOT NULL AND expires_at <= ?`, nowMs)
	if err != nil {
		log.Error().Err(err).Msg("failed to expire messages")
		return 0, err
	}
	return res.RowsAffected()
}

// CountDueLeaseExpiry reports how many rows have an elapsed lease that is
// also already available. It only counts; nothing acts on the result.
func (s *Store) CountDueLeaseExpiry(ctx context.Context, nowMs int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM message WHERE lease_expires_at <= ? AND available_at <= ?`,
		nowMs, nowMs,
	).Scan(&n)
	return n, err
}

func scanMessageRows(rows *sql.Rows) ([]MessageRow, error) {
	var out []MessageRow
	for rows.Next() {
		var m MessageRow
		if err := rows.Scan(&m.ID, &m.QueueID, &m.PayloadJSON, &m.Priority, &m.IdempotencyKey, &m.Attempts, &m.AvailableAt, &m.LeaseToken, &m.LeaseExpiresAt, &m.LeasedBy, &m.CreatedAt, &m.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
