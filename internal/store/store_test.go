package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestIsBusyMatchesSQLiteBusyConditions(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("SQLITE_BUSY: database is locked"), true},
		{errors.New("database is locked"), true},
		{errors.New("no such table: message"), false},
	}
	for _, c := range cases {
		if got := IsBusy(c.err); got != c.want {
			t.Errorf("IsBusy(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqew.db")
	s, err := Open(path, 5000)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenAppliesMigrations(t *testing.T) {
	s := newTestStore(t)

	row, err := s.CreateQueue(context.Background(), "orders", 5, 30000, "")
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}
	if row.Name != "orders" {
		t.Fatalf("Name = %q, want orders", row.Name)
	}
}

func TestInsertMessageDeduplicatesByIdempotencyKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	q, err := s.CreateQueue(ctx, "q1", 5, 30000, "")
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}

	key := "abc"
	id1, dedup1, err := s.InsertMessage(ctx, q.ID, `{"a":1}`, 0, &key, 0, 0, nil)
	if err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}
	if dedup1 {
		t.Fatalf("first insert must not be deduplicated")
	}

	id2, dedup2, err := s.InsertMessage(ctx, q.ID, `{"a":2}`, 0, &key, 0, 0, nil)
	if err != nil {
		t.Fatalf("InsertMessage (second): %v", err)
	}
	if !dedup2 {
		t.Fatalf("second insert with same idempotency key must be deduplicated")
	}
	if id1 != id2 {
		t.Fatalf("deduplicated insert returned a different id: %d != %d", id1, id2)
	}
}

func TestLeaseMessagesExcludesActiveLeases(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	q, err := s.CreateQueue(ctx, "q1", 5, 30000, "")
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}
	if _, _, err := s.InsertMessage(ctx, q.ID, `{}`, 0, nil, 0, 0, nil); err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}

	leased, err := s.LeaseMessages(ctx, q.ID, 10, 30000, "c1", "tok1", 1000)
	if err != nil {
		t.Fatalf("LeaseMessages: %v", err)
	}
	if len(leased) != 1 {
		t.Fatalf("len(leased) = %d, want 1", len(leased))
	}

	leasedAgain, err := s.LeaseMessages(ctx, q.ID, 10, 30000, "c2", "tok2", 1500)
	if err != nil {
		t.Fatalf("LeaseMessages (second): %v", err)
	}
	if len(leasedAgain) != 0 {
		t.Fatalf("message leased twice while first lease still active")
	}

	// After the lease expires, it becomes claimable again.
	leasedAfterExpiry, err := s.LeaseMessages(ctx, q.ID, 10, 30000, "c3", "tok3", 31001)
	if err != nil {
		t.Fatalf("LeaseMessages (after expiry): %v", err)
	}
	if len(leasedAfterExpiry) != 1 {
		t.Fatalf("len(leasedAfterExpiry) = %d, want 1", len(leasedAfterExpiry))
	}
}

func TestAckMessageFencing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	q, err := s.CreateQueue(ctx, "q1", 5, 30000, "")
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}
	id, _, err := s.InsertMessage(ctx, q.ID, `{}`, 0, nil, 0, 0, nil)
	if err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}
	if _, err := s.LeaseMessages(ctx, q.ID, 10, 30000, "c1", "tok1", 0); err != nil {
		t.Fatalf("LeaseMessages: %v", err)
	}

	outcome, err := s.AckMessage(ctx, q.ID, id, "wrong-token", 0)
	if err != nil {
		t.Fatalf("AckMessage: %v", err)
	}
	if outcome != AckOutcomeFenced {
		t.Fatalf("outcome = %q, want fenced", outcome)
	}

	outcome, err = s.AckMessage(ctx, q.ID, id, "tok1", 0)
	if err != nil {
		t.Fatalf("AckMessage: %v", err)
	}
	if outcome != AckOutcomeAcked {
		t.Fatalf("outcome = %q, want acked", outcome)
	}
}
