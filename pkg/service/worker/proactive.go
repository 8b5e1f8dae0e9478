package worker

import (
	"context"
	"time"

	"github.com/hearth-archive/hearth/pkg/utils/logging"
)

// DefaultProactiveInterval is the period between two proactive cycles
const DefaultProactiveInterval = 15 * time.Minute

// CycleFunc runs one proactive cycle
type CycleFunc func(ctx context.Context) error

// ProactiveWorker runs the proactive cycle on a fixed interval, independent of
// request traffic.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - The cycle itself is serialized by the use case, so an overlapping manual run is safe
type ProactiveWorker struct {
	cycle    CycleFunc
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewProactiveWorker creates a new worker. A non-positive interval falls back to
// DefaultProactiveInterval.
func NewProactiveWorker(cycle CycleFunc, interval time.Duration) *ProactiveWorker {
	if interval <= 0 {
		interval = DefaultProactiveInterval
	}
	return &ProactiveWorker{
		cycle:    cycle,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background loop. The first cycle runs immediately in the
// background and does not block server startup.
func (w *ProactiveWorker) Start(ctx context.Context) error {
	logging.Default().Info("Proactive worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *ProactiveWorker) Stop() {
	logging.Default().Info("Proactive worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Proactive worker stopped")
}

func (w *ProactiveWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)

		case <-w.stopCh:
			logging.Default().Info("Proactive worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Proactive worker context cancelled")
			return
		}
	}
}

// tick runs one cycle. Errors and panics are logged and retried next interval.
func (w *ProactiveWorker) tick(ctx context.Context) {
	startTime := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.Default().Error("Proactive cycle panicked (will retry next interval)", "panic", r)
		}
	}()

	if err := w.cycle(ctx); err != nil {
		logging.Default().Error("Proactive cycle failed (will retry next interval)",
			"error", err.Error())
		return
	}

	logging.Default().Debug("Proactive cycle completed",
		"duration", time.Since(startTime).String())
}
