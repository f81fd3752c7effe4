package backoff

import (
	"testing"
	"time"
)

func TestNextStaysWithinCeiling(t *testing.T) {
	b := New(10*time.Millisecond, 100*time.Millisecond, 10)
	for i := 0; i < 10; i++ {
		d := b.Next()
		if d < 0 || d > 100*time.Millisecond {
			t.Fatalf("attempt %d: delay %v out of [0, cap]", i, d)
		}
	}
}

func TestNextClampsAtCap(t *testing.T) {
	b := New(10*time.Millisecond, 20*time.Millisecond, 10)
	for i := 0; i < 8; i++ {
		b.Next()
	}
	d := b.Next()
	if d > 20*time.Millisecond {
		t.Fatalf("delay %v exceeded cap after many attempts", d)
	}
}

func TestExhaustedAfterMaxAttempts(t *testing.T) {
	b := New(time.Millisecond, time.Second, 3)
	for i := 0; i < 3; i++ {
		if b.Exhausted() {
			t.Fatalf("exhausted too early at attempt %d", i)
		}
		b.Next()
	}
	if !b.Exhausted() {
		t.Fatal("expected Exhausted after max attempts spent")
	}
}

func TestResetClearsAttempts(t *testing.T) {
	b := New(time.Millisecond, time.Second, 3)
	b.Next()
	b.Next()
	b.Reset()
	if b.Attempts() != 0 {
		t.Fatalf("expected 0 attempts after Reset, got %d", b.Attempts())
	}
	if b.Exhausted() {
		t.Fatal("freshly reset backoff must not be exhausted")
	}
}
