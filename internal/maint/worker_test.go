package maint

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerCallsSweepFnPeriodically(t *testing.T) {
	var calls int32
	w := Start(5*time.Millisecond, func(time.Time) {
		atomic.AddInt32(&calls, 1)
	})
	defer w.Stop()

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&calls) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("sweepFn was called fewer than 2 times within the deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWorkerStopBlocksUntilParked(t *testing.T) {
	done := make(chan struct{})
	w := Start(5*time.Millisecond, func(time.Time) {
		select {
		case <-done:
		default:
			close(done)
		}
	})

	<-done
	w.Stop()
	// Stop already blocked until the goroutine parked; a second Stop-like
	// wait confirms the goroutine is not still ticking.
	select {
	case <-w.done:
	default:
		t.Fatalf("worker goroutine did not exit after Stop")
	}
}

func TestStartDefaultsNonPositiveInterval(t *testing.T) {
	w := Start(0, func(time.Time) {})
	defer w.Stop()
	if w == nil {
		t.Fatalf("Start(0, ...) returned nil")
	}
}
