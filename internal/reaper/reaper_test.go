package reaper

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sqewdb/sqew/internal/clock"
	"github.com/sqewdb/sqew/internal/metrics"
	"github.com/sqewdb/sqew/internal/store"
)

func TestExpiryJobSweepsExpiredMessages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqew.db")
	st, err := store.Open(path, 5000)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	q, err := st.CreateQueue(ctx, "q1", 5, 30_000, "")
	if err != nil {
		t.Fatalf("CreateQueue: %v", err)
	}
	past := int64(-1)
	if _, _, err := st.InsertMessage(ctx, q.ID, `{}`, 0, nil, 0, 0, &past); err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}

	c := clock.NewFake(1000)
	job := NewExpiryJob(st, c, metrics.New(false), 20)
	defer job.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		row, err := st.GetMessage(ctx, q.ID, 1)
		if err != nil {
			t.Fatalf("GetMessage: %v", err)
		}
		if row == nil {
			return // expired and swept, as expected
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expired message was not swept within the deadline")
}
