package api

import (
	"encoding/json"

	"github.com/sqewdb/sqew/internal/engine"
	"github.com/sqewdb/sqew/internal/registry"
)

type queueDTO struct {
	Name         string `json:"name"`
	MaxAttempts  int64  `json:"max_attempts"`
	VisibilityMs int64  `json:"visibility_ms"`
	DLQ          string `json:"dlq,omitempty"`
}

func toQueueDTO(q *registry.Queue) queueDTO {
	return queueDTO{Name: q.Name, MaxAttempts: q.MaxAttempts, VisibilityMs: q.VisibilityMs, DLQ: q.DLQName}
}

type createQueueRequest struct {
	Name         string `json:"name"`
	MaxAttempts  int64  `json:"max_attempts"`
	VisibilityMs int64  `json:"visibility_ms"`
	DLQ          string `json:"dlq"`
}

type statsDTO struct {
	Ready                int64  `json:"ready"`
	Leased               int64  `json:"leased"`
	Total                int64  `json:"total"`
	OldestAvailableAgeMs *int64 `json:"oldest_available_age_ms,omitempty"`
}

func toStatsDTO(s *registry.Stats) statsDTO {
	return statsDTO{Ready: s.Ready, Leased: s.Leased, Total: s.Total, OldestAvailableAgeMs: s.OldestAvailableAgeMs}
}

type messageDTO struct {
	ID             int64           `json:"id"`
	Payload        json.RawMessage `json:"payload"`
	Priority       int64           `json:"priority"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Attempts       int64           `json:"attempts"`
	AvailableAt    int64           `json:"available_at"`
	Leased         bool            `json:"leased"`
	LeaseExpiresAt int64           `json:"lease_expires_at,omitempty"`
	CreatedAt      int64           `json:"created_at"`
	ExpiresAt      int64           `json:"expires_at,omitempty"`
}

func toMessageDTO(m *engine.Message) messageDTO {
	return messageDTO{
		ID:             m.ID,
		Payload:        json.RawMessage(m.PayloadJSON),
		Priority:       m.Priority,
		IdempotencyKey: m.IdempotencyKey,
		Attempts:       m.Attempts,
		AvailableAt:    m.AvailableAt,
		Leased:         m.Leased,
		LeaseExpiresAt: m.LeaseExpiresAt,
		CreatedAt:      m.CreatedAt,
		ExpiresAt:      m.ExpiresAt,
	}
}

type enqueueRequest struct {
	Payload        json.RawMessage `json:"payload"`
	Priority       int64           `json:"priority"`
	DelayMs        int64           `json:"delay_ms"`
	TTLMs          *int64          `json:"ttl_ms"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type enqueueResponse struct {
	ID           int64 `json:"id"`
	Deduplicated bool  `json:"deduplicated"`
}

type pollRequest struct {
	VisibilityMs int64 `json:"visibility_ms"`
	WaitMs       int64 `json:"wait_ms"`
}

type leasedMessageDTO struct {
	ID             int64           `json:"id"`
	Payload        json.RawMessage `json:"payload"`
	Attempts       int64           `json:"attempts"`
	Token          string          `json:"token"`
	LeaseExpiresAt int64           `json:"lease_expires_at"`
}

type pollResponse struct {
	Messages []leasedMessageDTO `json:"messages"`
}

func toLeasedMessageDTO(m engine.LeasedMessage) leasedMessageDTO {
	return leasedMessageDTO{
		ID:             m.ID,
		Payload:        json.RawMessage(m.PayloadJSON),
		Attempts:       m.Attempts,
		Token:          m.Token,
		LeaseExpiresAt: m.LeaseExpiresAt,
	}
}

type ackNackItemRequest struct {
	ID    int64  `json:"id"`
	Token string `json:"token"`
}

type ackRequest struct {
	Items []ackNackItemRequest `json:"items"`
}

type nackRequest struct {
	Items   []ackNackItemRequest `json:"items"`
	DelayMs int64                `json:"delay_ms"`
}

type ackResultDTO struct {
	ID      int64  `json:"id"`
	Outcome string `json:"outcome"`
}

type nackResultDTO struct {
	ID          int64  `json:"id"`
	Outcome     string `json:"outcome"`
	AvailableAt int64  `json:"available_at,omitempty"`
}

type resultsResponse[T any] struct {
	Results []T `json:"results"`
}

type extendRequest struct {
	ID        int64  `json:"id"`
	Token     string `json:"token"`
	ExtendMs  int64  `json:"extend_ms"`
}

type extendResponse struct {
	LeaseExpiresAt int64 `json:"lease_expires_at"`
}

type deletedResponse struct {
	Deleted int64 `json:"deleted"`
}
