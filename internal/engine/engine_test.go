package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sqewdb/sqew/internal/apperr"
	"github.com/sqewdb/sqew/internal/clock"
	"github.com/sqewdb/sqew/internal/metrics"
	"github.com/sqewdb/sqew/internal/registry"
	"github.com/sqewdb/sqew/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *registry.Registry, *clock.Fake) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqew.db")
	st, err := store.Open(path, 5000)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	c := clock.NewFake(1_000_000)
	reg := registry.New(st, c)
	return New(st, reg, c, metrics.New(false)), reg, c
}

func mustCreateQueue(t *testing.T, reg *registry.Registry, name string) {
	t.Helper()
	if _, err := reg.Create(context.Background(), name, 3, 30_000, ""); err != nil {
		t.Fatalf("Create(%q): %v", name, err)
	}
}

func TestEnqueueRejectsOversizedPayload(t *testing.T) {
	e, reg, _ := newTestEngine(t)
	mustCreateQueue(t, reg, "q1")

	huge := make([]byte, 600*1024)
	for i := range huge {
		huge[i] = 'a'
	}
	_, err := e.Enqueue(context.Background(), EnqueueInput{QueueName: "q1", Payload: huge})
	if !apperr.Is(err, apperr.KindPayloadTooLarge) {
		t.Fatalf("err = %v, want PayloadTooLarge", err)
	}
}

func TestEnqueueRejectsInvalidJSON(t *testing.T) {
	e, reg, _ := newTestEngine(t)
	mustCreateQueue(t, reg, "q1")

	_, err := e.Enqueue(context.Background(), EnqueueInput{QueueName: "q1", Payload: []byte("not json")})
	if !apperr.Is(err, apperr.KindInvalidArg) {
		t.Fatalf("err = %v, want InvalidArg", err)
	}
}

func TestEnqueueThenLeaseRoundTrip(t *testing.T) {
	e, reg, _ := newTestEngine(t)
	mustCreateQueue(t, reg, "q1")
	ctx := context.Background()

	res, err := e.Enqueue(ctx, EnqueueInput{QueueName: "q1", Payload: []byte(`{"n":1}`)})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if res.Deduplicated {
		t.Fatalf("first enqueue must not be deduplicated")
	}

	leaseRes, err := e.Lease(ctx, LeaseInput{QueueName: "q1", Batch: 5})
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}
	if len(leaseRes.Messages) != 1 || leaseRes.Messages[0].ID != res.ID {
		t.Fatalf("leaseRes = %+v, want one message with id %d", leaseRes.Messages, res.ID)
	}

	// A second lease before ack must not redeliver the in-flight message.
	leaseAgain, err := e.Lease(ctx, LeaseInput{QueueName: "q1", Batch: 5})
	if err != nil {
		t.Fatalf("Lease (second): %v", err)
	}
	if len(leaseAgain.Messages) != 0 {
		t.Fatalf("message redelivered while still leased: %+v", leaseAgain.Messages)
	}
}

func TestEnqueueDeduplicatesByIdempotencyKey(t *testing.T) {
	e, reg, _ := newTestEngine(t)
	mustCreateQueue(t, reg, "q1")
	ctx := context.Background()

	in := EnqueueInput{QueueName: "q1", Payload: []byte(`{}`), IdempotencyKey: "order-1"}
	first, err := e.Enqueue(ctx, in)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	second, err := e.Enqueue(ctx, in)
	if err != nil {
		t.Fatalf("Enqueue (second): %v", err)
	}
	if !second.Deduplicated || second.ID != first.ID {
		t.Fatalf("second = %+v, want deduplicated with id %d", second, first.ID)
	}
}

func TestAckRemovesMessagePermanently(t *testing.T) {
	e, reg, _ := newTestEngine(t)
	mustCreateQueue(t, reg, "q1")
	ctx := context.Background()

	enq, err := e.Enqueue(ctx, EnqueueInput{QueueName: "q1", Payload: []byte(`{}`)})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	leaseRes, err := e.Lease(ctx, LeaseInput{QueueName: "q1", Batch: 1})
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}
	token := leaseRes.Messages[0].Token

	ackResults, err := e.Ack(ctx, "q1", []AckItem{{ID: enq.ID, Token: token}})
	if err != nil {
		t.Fatalf("Ack: %v", err)
	}
	if ackResults[0].Outcome != "acked" {
		t.Fatalf("outcome = %q, want acked", ackResults[0].Outcome)
	}

	_, err = e.Get(ctx, "q1", enq.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want NotFound after ack", err)
	}
}

func TestNackReschedulesUntilAttemptsCapDrops(t *testing.T) {
	e, reg, c := newTestEngine(t)
	mustCreateQueue(t, reg, "q1") // max_attempts = 3
	ctx := context.Background()

	enq, err := e.Enqueue(ctx, EnqueueInput{QueueName: "q1", Payload: []byte(`{}`)})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	var lastOutcome string
	for i := 0; i < 3; i++ {
		leaseRes, err := e.Lease(ctx, LeaseInput{QueueName: "q1", Batch: 1})
		if err != nil {
			t.Fatalf("Lease #%d: %v", i, err)
		}
		if len(leaseRes.Messages) != 1 {
			t.Fatalf("Lease #%d: got %d messages, want 1 (last outcome %q)", i, len(leaseRes.Messages), lastOutcome)
		}
		token := leaseRes.Messages[0].Token

		nackResults, err := e.Nack(ctx, "q1", []NackItem{{ID: enq.ID, Token: token}}, 0)
		if err != nil {
			t.Fatalf("Nack #%d: %v", i, err)
		}
		lastOutcome = nackResults[0].Outcome
		if lastOutcome == "rescheduled" {
			// Backoff puts available_at in the future; move the fake clock there.
			c.Set(nackResults[0].AvailableAt)
		}
	}
	if lastOutcome != "dropped" {
		t.Fatalf("lastOutcome = %q, want dropped after 3 attempts with max_attempts=3", lastOutcome)
	}

	_, err = e.Get(ctx, "q1", enq.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want NotFound after drop", err)
	}
}

func TestNackRoutesToDLQAtAttemptsCap(t *testing.T) {
	e, reg, _ := newTestEngine(t)
	ctx := context.Background()
	if _, err := reg.Create(ctx, "dlq", 5, 30_000, ""); err != nil {
		t.Fatalf("Create dlq: %v", err)
	}
	if _, err := reg.Create(ctx, "main", 1, 30_000, "dlq"); err != nil {
		t.Fatalf("Create main: %v", err)
	}

	enq, err := e.Enqueue(ctx, EnqueueInput{QueueName: "main", Payload: []byte(`{"x":1}`)})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	leaseRes, err := e.Lease(ctx, LeaseInput{QueueName: "main", Batch: 1})
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}

	nackResults, err := e.Nack(ctx, "main", []NackItem{{ID: enq.ID, Token: leaseRes.Messages[0].Token}}, 0)
	if err != nil {
		t.Fatalf("Nack: %v", err)
	}
	if nackResults[0].Outcome != "moved_to_dlq" {
		t.Fatalf("outcome = %q, want moved_to_dlq", nackResults[0].Outcome)
	}

	dlqMsgs, err := e.Peek(ctx, "dlq", 10)
	if err != nil {
		t.Fatalf("Peek(dlq): %v", err)
	}
	if len(dlqMsgs) != 1 {
		t.Fatalf("len(dlqMsgs) = %d, want 1", len(dlqMsgs))
	}
}

func TestExtendLeaseRejectsWrongToken(t *testing.T) {
	e, reg, _ := newTestEngine(t)
	mustCreateQueue(t, reg, "q1")
	ctx := context.Background()

	enq, err := e.Enqueue(ctx, EnqueueInput{QueueName: "q1", Payload: []byte(`{}`)})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := e.Lease(ctx, LeaseInput{QueueName: "q1", Batch: 1}); err != nil {
		t.Fatalf("Lease: %v", err)
	}

	_, err = e.ExtendLease(ctx, "q1", enq.ID, "wrong-token", 10_000)
	if !apperr.Is(err, apperr.KindLeaseLost) {
		t.Fatalf("err = %v, want LeaseLost", err)
	}
}
