package engine

import (
	"errors"
	"testing"
)

func TestRetryOnBusySucceedsAfterTransientBusy(t *testing.T) {
	attempts := 0
	err := retryOnBusy(func() error {
		attempts++
		if attempts < maxBusyRetries {
			return errors.New("SQLITE_BUSY: database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retryOnBusy: %v", err)
	}
	if attempts != maxBusyRetries {
		t.Fatalf("attempts = %d, want %d", attempts, maxBusyRetries)
	}
}

func TestRetryOnBusyStopsImmediatelyOnNonBusyError(t *testing.T) {
	attempts := 0
	want := errors.New("no such table: message")
	err := retryOnBusy(func() error {
		attempts++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestRetryOnBusyGivesUpAfterExhaustingRetries(t *testing.T) {
	attempts := 0
	err := retryOnBusy(func() error {
		attempts++
		return errors.New("database is locked")
	})
	if err == nil {
		t.Fatal("retryOnBusy: want error, got nil")
	}
	if attempts != maxBusyRetries {
		t.Fatalf("attempts = %d, want %d", attempts, maxBusyRetries)
	}
}
