package store

import "database/sql"

// QueueRow is the persisted shape of a queue row.
type QueueRow struct {
	ID           int64
	Name         string
	MaxAttempts  int64
	VisibilityMs int64
	DLQID        sql.NullInt64
}

// MessageRow is the full persisted shape of a message row, used by
// peek/get where every field is exposed regardless of lease state.
type MessageRow struct {
	ID              int64
	QueueID         int64
	PayloadJSON     string
	Priority        int64
	IdempotencyKey  sql.NullString
	Attempts        int64
	AvailableAt     int64
	LeaseToken      sql.NullString
	LeaseExpiresAt  sql.NullInt64
	LeasedBy        sql.NullString
	CreatedAt       int64
	ExpiresAt       sql.NullInt64
}

// LeasedMessage is the narrow projection returned by a successful lease
// claim.
type LeasedMessage struct {
	ID             int64
	PayloadJSON    string
	Attempts       int64
	LeaseToken     string
	LeaseExpiresAt int64
}

// QueueStats is the aggregate shape returned by stats().
type QueueStats struct {
	Ready                int64
	Leased               int64
	Total                int64
	OldestAvailableAgeMs sql.NullInt64
}

// AckOutcome and NackOutcome are the per-item outcome labels returned by
// Ack and Nack.
type AckOutcome string

const (
	AckOutcomeAcked     AckOutcome = "acked"
	AckOutcomeNotLeased AckOutcome = "not_leased"
	AckOutcomeFenced    AckOutcome = "fenced"
)

type NackOutcome string

const (
	NackOutcomeRescheduled NackOutcome = "rescheduled"
	NackOutcomeDropped     NackOutcome = "dropped"
	NackOutcomeMovedToDLQ  NackOutcome = "moved_to_dlq"
	NackOutcomeFenced      NackOutcome = "fenced"
)
