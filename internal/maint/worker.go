// Package maint runs the per-datapath maintenance worker (spec §4.10):
// one goroutine per datapath, sleeping a tunable interval before asking
// the pipeline to sweep expired flows. Grounded on the teacher's
// runDeviceExplorer ticker-plus-context-cancellation idiom
// (network/session.go), adapted from a one-shot subscription explorer
// to a recurring sweep.
package maint

import (
	"context"
	"time"
)

// DefaultInterval matches the spec's documented default (spec §4.10).
const DefaultInterval = 1000 * time.Millisecond

// Worker runs sweepFn every interval until Stop is called. It implements
// dp.MaintenanceWorker.
type Worker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start launches the worker goroutine. sweepFn is called with the
// current time on every tick; it is expected to be internal/pipeline's
// Sweep method bound to one pipeline instance.
func Start(interval time.Duration, sweepFn func(time.Time)) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				sweepFn(now)
			}
		}
	}()

	return w
}

// Stop signals the worker to exit its sleep loop and blocks until it has
// parked, matching the spec's "a shutdown signal wakes the worker ...
// parks waiting for the destroyer to observe it."
func (w *Worker) Stop() {
	w.cancel()
	<-w.done
}
