package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hearth-archive/hearth/pkg/service/worker"
	"github.com/m-mizutani/gt"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestProactiveWorker_ImmediateFirstCycle(t *testing.T) {
	var calls atomic.Int32
	w := worker.NewProactiveWorker(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, time.Hour)

	gt.NoError(t, w.Start(context.Background())).Required()
	waitFor(t, func() bool { return calls.Load() == 1 })
	w.Stop()

	gt.Value(t, calls.Load()).Equal(int32(1))
}

func TestProactiveWorker_PeriodicCycle(t *testing.T) {
	var calls atomic.Int32
	w := worker.NewProactiveWorker(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, 20*time.Millisecond)

	gt.NoError(t, w.Start(context.Background())).Required()
	waitFor(t, func() bool { return calls.Load() >= 3 })
	w.Stop()
}

func TestProactiveWorker_ContinuesAfterErrorAndPanic(t *testing.T) {
	var calls atomic.Int32
	w := worker.NewProactiveWorker(func(ctx context.Context) error {
		switch calls.Add(1) {
		case 1:
			return errors.New("store unavailable")
		case 2:
			panic("boom")
		}
		return nil
	}, 20*time.Millisecond)

	gt.NoError(t, w.Start(context.Background())).Required()
	waitFor(t, func() bool { return calls.Load() >= 3 })
	w.Stop()
}

func TestProactiveWorker_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	w := worker.NewProactiveWorker(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, time.Hour)

	gt.NoError(t, w.Start(ctx)).Required()
	waitFor(t, func() bool { return calls.Load() == 1 })
	cancel()

	// Stop must still return after the loop exited on its own
	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestNewProactiveWorker_DefaultInterval(t *testing.T) {
	gt.Value(t, worker.DefaultProactiveInterval).Equal(15 * time.Minute)
	w := worker.NewProactiveWorker(func(context.Context) error { return nil }, 0)
	gt.Value(t, w).NotNil()
}
