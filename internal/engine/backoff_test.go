package engine

import (
	"testing"

	"github.com/sqewdb/sqew/internal/config"
)

func TestEffectiveDelayGrowsWithAttempts(t *testing.T) {
	d0 := effectiveDelay(0, 0)
	d3 := effectiveDelay(0, 3)

	if d0 < config.BackoffBaseMs || d0 >= 2*config.BackoffBaseMs {
		t.Fatalf("effectiveDelay(0,0) = %d, want in [%d, %d)", d0, config.BackoffBaseMs, 2*config.BackoffBaseMs)
	}
	minD3 := int64(config.BackoffBaseMs) << 3
	if d3 < minD3 || d3 >= minD3+config.BackoffBaseMs {
		t.Fatalf("effectiveDelay(0,3) = %d, want in [%d, %d)", d3, minD3, minD3+config.BackoffBaseMs)
	}
}

func TestEffectiveDelayNeverUndercutsCallerDelay(t *testing.T) {
	want := int64(10_000_000)
	got := effectiveDelay(want, 0)
	if got < want {
		t.Fatalf("effectiveDelay(%d, 0) = %d, want >= %d", want, got, want)
	}
}

func TestEffectiveDelayCapsShiftForHighAttempts(t *testing.T) {
	// Must not overflow or panic for pathologically high attempts.
	got := effectiveDelay(0, 1000)
	if got <= 0 {
		t.Fatalf("effectiveDelay(0, 1000) = %d, want positive", got)
	}
}
