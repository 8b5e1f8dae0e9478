package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/domain/types"
	"github.com/hearth-archive/hearth/pkg/repository/memory"
	"github.com/hearth-archive/hearth/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestProactiveUseCase_RunCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("detects and queues the anniversary, then reports it pending", func(t *testing.T) {
		repo := memory.New()
		createMemory(t, repo, "Wedding day", happened("2019-06-15"), anniversary(types.AnniversaryWedding))
		clock := newFixedClock(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
		uc := usecase.New(repo,
			usecase.WithClock(clock.Now),
			usecase.WithCompanion(&mockCompanion{chat: okPresentation("Wedding")}),
		)

		res, err := uc.Proactive.RunCycle(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Date).Equal(model.MustParseDate("2024-06-15"))
		gt.Value(t, res.Trigger.Title).Equal("Your Wedding Anniversary")
		gt.Value(t, res.Trigger.Presentation).NotNil()
		gt.Value(t, res.Dispatch.Outcome).Equal(usecase.DispatchQueued)

		res, err = uc.Proactive.RunCycle(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Dispatch.Outcome).Equal(usecase.DispatchPending)
		gt.Value(t, uc.Hub().QueueLength(types.RolePatient)).Equal(1)
	})

	t.Run("viewed trigger is suppressed on the next cycle", func(t *testing.T) {
		repo := memory.New()
		createMemory(t, repo, "Wedding day", happened("2019-06-15"), anniversary(types.AnniversaryWedding))
		clock := newFixedClock(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
		uc := usecase.New(repo, usecase.WithClock(clock.Now))

		conn := newFakeConn()
		_, err := uc.Delivery.Connect(ctx, conn, types.RolePatient)
		gt.NoError(t, err).Required()

		res, err := uc.Proactive.RunCycle(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Dispatch.Outcome).Equal(usecase.DispatchDelivered)
		gt.Value(t, res.Trigger.Presentation).Nil()

		_, err = uc.Delivery.MarkViewed(ctx, res.Dispatch.Record.ID)
		gt.NoError(t, err).Required()

		res, err = uc.Proactive.RunCycle(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Dispatch.Outcome).Equal(usecase.DispatchSuppressed)
	})

	t.Run("presentation is composed once per trigger key", func(t *testing.T) {
		repo := memory.New()
		createMemory(t, repo, "Wedding day", happened("2019-06-15"), anniversary(types.AnniversaryWedding))
		clock := newFixedClock(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
		ai := &mockCompanion{chat: okPresentation("Wedding")}
		uc := usecase.New(repo, usecase.WithClock(clock.Now), usecase.WithCompanion(ai))

		_, err := uc.Delivery.Connect(ctx, newFakeConn(), types.RolePatient)
		gt.NoError(t, err).Required()

		res, err := uc.Proactive.RunCycle(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Dispatch.Outcome).Equal(usecase.DispatchDelivered)
		gt.Value(t, ai.chatCalls).Equal(1)

		// delivered but unacknowledged
		res, err = uc.Proactive.RunCycle(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Dispatch.Outcome).Equal(usecase.DispatchPending)
		gt.Value(t, res.Trigger.Presentation).Nil()

		_, err = uc.Delivery.MarkViewed(ctx, res.Dispatch.Record.ID)
		gt.NoError(t, err).Required()

		for i := 0; i < 4; i++ {
			res, err = uc.Proactive.RunCycle(ctx)
			gt.NoError(t, err).Required()
			gt.Value(t, res.Dispatch.Outcome).Equal(usecase.DispatchSuppressed)
		}
		gt.Value(t, ai.chatCalls).Equal(1)
	})

	t.Run("no trigger means no dispatch", func(t *testing.T) {
		uc := usecase.New(memory.New())
		res, err := uc.Proactive.RunCycle(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Trigger).Nil()
		gt.Value(t, res.Dispatch).Nil()
		gt.Value(t, res.Sweep).NotNil()
	})

	t.Run("concurrent cycles claim the trigger once", func(t *testing.T) {
		repo := memory.New()
		createMemory(t, repo, "Wedding day", happened("2019-06-15"), anniversary(types.AnniversaryWedding))
		clock := newFixedClock(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
		uc := usecase.New(repo, usecase.WithClock(clock.Now))

		var wg sync.WaitGroup
		outcomes := make(chan usecase.DispatchOutcome, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := uc.Proactive.RunCycle(ctx)
				if err == nil && res.Dispatch != nil {
					outcomes <- res.Dispatch.Outcome
				}
			}()
		}
		wg.Wait()
		close(outcomes)

		queued := 0
		for o := range outcomes {
			if o == usecase.DispatchQueued {
				queued++
			}
		}
		gt.Value(t, queued).Equal(1)
		gt.Value(t, uc.Hub().QueueLength(types.RolePatient)).Equal(1)
	})
}
