package clock

import "testing"

func TestFakeAdvance(t *testing.T) {
	f := NewFake(1000)
	if f.NowMs() != 1000 {
		t.Fatalf("NowMs() = %d, want 1000", f.NowMs())
	}
	f.Advance(500)
	if f.NowMs() != 1500 {
		t.Fatalf("NowMs() = %d, want 1500", f.NowMs())
	}
	f.Set(42)
	if f.NowMs() != 42 {
		t.Fatalf("NowMs() = %d, want 42", f.NowMs())
	}
}

func TestRealAdvancesOverTime(t *testing.T) {
	r := New()
	first := r.NowMs()
	if first <= 0 {
		t.Fatalf("NowMs() = %d, want positive", first)
	}
}
