// Package engine implements the message lifecycle: enqueue, lease,
// extend-lease, ack, nack, peek, and removal. This is the hardest part of
// Sqew: the atomic lease protocol, lease-fencing ack/nack, idempotent
// enqueue, and backoff policy all live here.
package engine

import (
	"github.com/sqewdb/sqew/internal/clock"
	"github.com/sqewdb/sqew/internal/metrics"
	"github.com/sqewdb/sqew/internal/registry"
	"github.com/sqewdb/sqew/internal/store"
)

// Message is the full external representation of a message row, used by
// peek and get responses.
type Message struct {
	ID              int64
	QueueID         int64
	PayloadJSON     []byte
	Priority        int64
	IdempotencyKey  string
	Attempts        int64
	AvailableAt     int64
	LeaseToken      string
	LeaseExpiresAt  int64
	LeasedBy        string
	CreatedAt       int64
	ExpiresAt       int64
	Leased          bool
	HasExpiresAt    bool
}

// LeasedMessage is the narrow shape returned by a successful lease claim.
type LeasedMessage struct {
	ID             int64
	PayloadJSON    []byte
	Attempts       int64
	Token          string
	LeaseExpiresAt int64
}

type Engine struct {
	store    *store.Store
	registry *registry.Registry
	clock    clock.Clock
	metrics  metrics.Service
}

func New(s *store.Store, reg *registry.Registry, c clock.Clock, m metrics.Service) *Engine {
	return &Engine{store: s, registry: reg, clock: c, metrics: m}
}

func fromRow(row *store.MessageRow) *Message {
	m := &Message{
		ID:          row.ID,
		QueueID:     row.QueueID,
		PayloadJSON: []byte(row.PayloadJSON),
		Priority:    row.Priority,
		Attempts:    row.Attempts,
		AvailableAt: row.AvailableAt,
		CreatedAt:   row.CreatedAt,
	}
	if row.IdempotencyKey.Valid {
		m.IdempotencyKey = row.IdempotencyKey.String
	}
	if row.LeaseToken.Valid {
		m.Leased = true
		m.LeaseToken = row.LeaseToken.String
		m.LeaseExpiresAt = row.LeaseExpiresAt.Int64
		if row.LeasedBy.Valid {
			m.LeasedBy = row.LeasedBy.String
		}
	}
	if row.ExpiresAt.Valid {
		m.HasExpiresAt = true
		m.ExpiresAt = row.ExpiresAt.Int64
	}
	return m
}
