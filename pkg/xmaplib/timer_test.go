package xmaplib

import (
	"testing"
	"time"
)

func TestTimerElapsesAfterDuration(t *testing.T) {
	tm := NewTimer(20 * time.Millisecond)
	if tm.IsElapsed() {
		t.Fatalf("expected timer not yet elapsed immediately after Reset")
	}
	time.Sleep(30 * time.Millisecond)
	if !tm.IsElapsed() {
		t.Fatalf("expected timer elapsed after sleeping past its duration")
	}
}

func TestTimerResetLastReusesDuration(t *testing.T) {
	tm := NewTimer(20 * time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if !tm.IsElapsed() {
		t.Fatalf("expected elapsed before ResetLast")
	}
	tm.ResetLast()
	if tm.IsElapsed() {
		t.Fatalf("expected not elapsed immediately after ResetLast")
	}
	time.Sleep(30 * time.Millisecond)
	if !tm.IsElapsed() {
		t.Fatalf("expected elapsed again after the same duration passes")
	}
}

func TestUninitializedTimerIsElapsed(t *testing.T) {
	tm := &Timer{}
	if !tm.IsElapsed() {
		t.Fatalf("expected a never-reset timer to report elapsed")
	}
}
