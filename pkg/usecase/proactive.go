package usecase

import (
	"context"
	"sync"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/utils/errutil"
	"github.com/m-mizutani/goerr/v2"
)

// CycleResult summarizes one proactive cycle
type CycleResult struct {
	Date     model.Date      `json:"date"`
	Sweep    *SweepResult    `json:"sweep,omitempty"`
	Trigger  *model.Trigger  `json:"trigger,omitempty"`
	Dispatch *DispatchResult `json:"dispatch,omitempty"`
}

// ProactiveUseCase runs sweep, detection and dispatch as one serialized cycle
type ProactiveUseCase struct {
	mu       sync.Mutex
	trigger  *TriggerUseCase
	delivery *DeliveryUseCase
}

func NewProactiveUseCase(trigger *TriggerUseCase, delivery *DeliveryUseCase) *ProactiveUseCase {
	return &ProactiveUseCase{
		trigger:  trigger,
		delivery: delivery,
	}
}

// RunCycle sweeps expired state, detects today's trigger and dispatches it.
// The presentation is composed only for a key the ledger has not seen.
// Concurrent calls run one after another.
func (uc *ProactiveUseCase) RunCycle(ctx context.Context) (*CycleResult, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	result := &CycleResult{Date: uc.trigger.Today()}

	sweep, err := uc.delivery.Sweep(ctx)
	if err != nil {
		// detection does not depend on the sweep
		_ = errutil.Handle(ctx, err, "retention sweep failed")
	}
	result.Sweep = sweep

	trigger, err := uc.trigger.Detect(ctx, result.Date)
	if err != nil {
		return result, goerr.Wrap(err, "failed to detect trigger", goerr.V("date", result.Date))
	}
	if trigger == nil {
		return result, nil
	}
	result.Trigger = trigger

	// a key already in the ledger is reported without composing
	prior, err := uc.delivery.PriorOutcome(ctx, trigger.Key())
	if err != nil {
		return result, goerr.Wrap(err, "failed to check delivery ledger",
			goerr.V(TriggerKey, trigger.Key().String()))
	}
	if prior != nil {
		result.Dispatch = prior
		return result, nil
	}

	uc.trigger.Compose(ctx, trigger)
	dispatch, err := uc.delivery.Dispatch(ctx, trigger)
	if err != nil {
		return result, goerr.Wrap(err, "failed to dispatch trigger",
			goerr.V(TriggerKey, trigger.Key().String()))
	}
	result.Dispatch = dispatch

	return result, nil
}
