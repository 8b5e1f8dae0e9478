package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/interfaces"
	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/domain/model/config"
	"github.com/hearth-archive/hearth/pkg/domain/types"
	"github.com/hearth-archive/hearth/pkg/service/realtime"
	"github.com/hearth-archive/hearth/pkg/utils/async"
	"github.com/hearth-archive/hearth/pkg/utils/errutil"
	"github.com/hearth-archive/hearth/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// DispatchOutcome is what Dispatch did with a trigger
type DispatchOutcome string

const (
	// DispatchDelivered means at least one patient client accepted the event
	DispatchDelivered DispatchOutcome = "delivered"
	// DispatchQueued means the event waits in the patient offline queue
	DispatchQueued DispatchOutcome = "queued"
	// DispatchSuppressed means the trigger was already viewed or dismissed for the date
	DispatchSuppressed DispatchOutcome = "suppressed"
	// DispatchPending means an unacknowledged record exists and nothing was sent
	DispatchPending DispatchOutcome = "pending"
)

// DispatchResult reports the outcome and the ledger record behind it
type DispatchResult struct {
	Outcome  DispatchOutcome       `json:"outcome"`
	Record   *model.DeliveryRecord `json:"record"`
	Accepted int                   `json:"accepted"`
}

// AckAction is a client acknowledgement
type AckAction string

const (
	AckViewed    AckAction = "viewed"
	AckDismissed AckAction = "dismissed"
)

// ParseAckAction parses an acknowledgement action
func ParseAckAction(s string) (AckAction, error) {
	switch a := AckAction(s); a {
	case AckViewed, AckDismissed:
		return a, nil
	default:
		return "", goerr.Wrap(ErrInvalidAction, "unknown acknowledge action", goerr.V("action", s))
	}
}

// SweepResult counts what a retention sweep removed
type SweepResult struct {
	Deliveries   int `json:"deliveries"`
	QueueEntries int `json:"queue_entries"`
}

// DeliveryUseCase owns the delivery ledger and real-time fan-out
type DeliveryUseCase struct {
	repo     interfaces.Repository
	hub      *realtime.Hub
	notifier Notifier
	cfg      *config.ProactiveConfig
	clock    Clock
}

func NewDeliveryUseCase(repo interfaces.Repository, hub *realtime.Hub, notifier Notifier, cfg *config.ProactiveConfig, clock Clock) *DeliveryUseCase {
	return &DeliveryUseCase{
		repo:     repo,
		hub:      hub,
		notifier: notifier,
		cfg:      cfg,
		clock:    clock,
	}
}

func (uc *DeliveryUseCase) now() time.Time {
	return uc.clock().UTC()
}

// WasAlreadyViewedToday reports whether the (kind, date) trigger reached viewed
func (uc *DeliveryUseCase) WasAlreadyViewedToday(ctx context.Context, kind types.TriggerKind, date model.Date) (bool, error) {
	rec, err := uc.repo.Delivery().FindByKey(ctx, model.TriggerKey{Kind: kind, Date: date})
	if err != nil {
		return false, goerr.Wrap(err, "failed to find delivery",
			goerr.V("kind", kind), goerr.V("date", date))
	}
	return rec != nil && rec.Status() == types.DeliveryStatusViewed, nil
}

// GetPendingTriggerToday returns the queued or delivered-but-unacknowledged
// record for (kind, date), or nil.
func (uc *DeliveryUseCase) GetPendingTriggerToday(ctx context.Context, kind types.TriggerKind, date model.Date) (*model.DeliveryRecord, error) {
	rec, err := uc.repo.Delivery().FindByKey(ctx, model.TriggerKey{Kind: kind, Date: date})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find delivery",
			goerr.V("kind", kind), goerr.V("date", date))
	}
	if rec == nil || !rec.IsPending() {
		return nil, nil
	}
	return rec, nil
}

// SaveDelivery claims the ledger entry of trigger in the delivered or queued
// state. created is false when a record for the key already existed; the
// existing record is returned unchanged.
func (uc *DeliveryUseCase) SaveDelivery(ctx context.Context, trigger *model.Trigger, delivered bool) (*model.DeliveryRecord, bool, error) {
	rec, created, err := uc.repo.Delivery().Claim(ctx, model.NewDeliveryRecord(trigger, delivered, uc.now()))
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to save delivery",
			goerr.V(TriggerKey, trigger.Key().String()))
	}
	return rec, created, nil
}

// Get returns a ledger record
func (uc *DeliveryUseCase) Get(ctx context.Context, id model.DeliveryID) (*model.DeliveryRecord, error) {
	rec, err := uc.repo.Delivery().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get delivery", goerr.V(DeliveryIDKey, id))
	}
	return rec, nil
}

// List returns ledger records newest first
func (uc *DeliveryUseCase) List(ctx context.Context, limit int) ([]*model.DeliveryRecord, error) {
	records, err := uc.repo.Delivery().List(ctx, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list deliveries")
	}
	return records, nil
}

// MarkViewed records a viewed acknowledgement. Repeating it is a no-op.
func (uc *DeliveryUseCase) MarkViewed(ctx context.Context, id model.DeliveryID) (*model.DeliveryRecord, error) {
	return uc.Acknowledge(ctx, id, AckViewed)
}

// MarkDismissed records a dismissed acknowledgement. Repeating it is a no-op.
func (uc *DeliveryUseCase) MarkDismissed(ctx context.Context, id model.DeliveryID) (*model.DeliveryRecord, error) {
	return uc.Acknowledge(ctx, id, AckDismissed)
}

// AcknowledgeFrom applies an acknowledgement sent by a real-time client.
// Only patient clients acknowledge; caregivers observe.
func (uc *DeliveryUseCase) AcknowledgeFrom(ctx context.Context, role types.Role, id model.DeliveryID, action AckAction) (*model.DeliveryRecord, error) {
	if role != types.RolePatient {
		return nil, goerr.Wrap(ErrAckForbidden, "cannot acknowledge",
			goerr.V("role", role), goerr.V(DeliveryIDKey, id))
	}
	return uc.Acknowledge(ctx, id, action)
}

// Acknowledge applies a client acknowledgement and informs caregivers
func (uc *DeliveryUseCase) Acknowledge(ctx context.Context, id model.DeliveryID, action AckAction) (*model.DeliveryRecord, error) {
	now := uc.now()
	var apply func(*model.DeliveryRecord) error
	switch action {
	case AckViewed:
		apply = func(r *model.DeliveryRecord) error { return r.MarkViewed(now) }
	case AckDismissed:
		apply = func(r *model.DeliveryRecord) error { return r.MarkDismissed(now) }
	default:
		return nil, goerr.Wrap(ErrInvalidAction, "unknown acknowledge action",
			goerr.V("action", action), goerr.V(DeliveryIDKey, id))
	}

	rec, err := uc.repo.Delivery().Update(ctx, id, apply)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to acknowledge delivery",
			goerr.V(DeliveryIDKey, id), goerr.V("action", action))
	}

	logging.From(ctx).Info("delivery acknowledged",
		"delivery_id", id,
		"action", action)
	uc.notifyStatus(ctx, rec, nil)
	return rec, nil
}

// PriorOutcome reports what Dispatch would return for key without sending
// anything: suppressed or pending when the ledger already has a record, nil
// when the key is still unclaimed.
func (uc *DeliveryUseCase) PriorOutcome(ctx context.Context, key model.TriggerKey) (*DispatchResult, error) {
	existing, err := uc.repo.Delivery().FindByKey(ctx, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to look up delivery", goerr.V(TriggerKey, key.String()))
	}
	if existing == nil {
		return nil, nil
	}
	return existingOutcome(existing), nil
}

// Dispatch records and pushes trigger to patient clients. The ledger decides:
// a viewed or dismissed trigger is suppressed, an unacknowledged one is
// reported as pending, otherwise it is delivered to connected patients or
// queued for the next one.
func (uc *DeliveryUseCase) Dispatch(ctx context.Context, trigger *model.Trigger) (*DispatchResult, error) {
	if trigger == nil || len(trigger.Memories) == 0 {
		return nil, goerr.Wrap(ErrInvalidTrigger, "trigger has no memories")
	}
	logger := logging.From(ctx).With("trigger", trigger.Key().String())

	prior, err := uc.PriorOutcome(ctx, trigger.Key())
	if err != nil {
		return nil, errutil.Handle(ctx, err, "delivery ledger read failed")
	}
	if prior != nil {
		return prior, nil
	}

	online := uc.hub.HasRole(types.RolePatient)
	rec, created, err := uc.SaveDelivery(ctx, trigger, online)
	if err != nil {
		return nil, errutil.Handle(ctx, err, "delivery ledger write failed")
	}
	if !created {
		// a concurrent dispatch claimed the key first
		return existingOutcome(rec), nil
	}

	// the hub decides push or queue atomically with client registration;
	// the ledger follows that decision
	accepted := uc.hub.DeliverOrEnqueue(ctx, types.RolePatient, uc.event(rec, trigger))
	switch {
	case accepted > 0 && !online:
		now := uc.now()
		rec, err = uc.reconcile(ctx, rec.ID, func(r *model.DeliveryRecord) error {
			return r.MarkDelivered(now)
		})
	case accepted == 0 && online:
		rec, err = uc.reconcile(ctx, rec.ID, func(r *model.DeliveryRecord) error {
			return r.Requeue()
		})
	}
	if err != nil {
		return nil, err
	}

	if accepted > 0 {
		logger.Info("trigger delivered", "delivery_id", rec.ID, "accepted", accepted)
		uc.notifyStatus(ctx, rec, trigger)
		return &DispatchResult{Outcome: DispatchDelivered, Record: rec, Accepted: accepted}, nil
	}

	logger.Info("trigger queued", "delivery_id", rec.ID)
	uc.notifyQueued(ctx, trigger, rec)
	uc.notifyStatus(ctx, rec, trigger)
	return &DispatchResult{Outcome: DispatchQueued, Record: rec}, nil
}

func (uc *DeliveryUseCase) reconcile(ctx context.Context, id model.DeliveryID, fn func(*model.DeliveryRecord) error) (*model.DeliveryRecord, error) {
	rec, err := uc.repo.Delivery().Update(ctx, id, fn)
	if err != nil {
		return nil, errutil.Handle(ctx, goerr.Wrap(err, "failed to reconcile delivery",
			goerr.V(DeliveryIDKey, id)), "delivery ledger write failed")
	}
	return rec, nil
}

func existingOutcome(rec *model.DeliveryRecord) *DispatchResult {
	if rec.Status().IsTerminal() {
		return &DispatchResult{Outcome: DispatchSuppressed, Record: rec}
	}
	return &DispatchResult{Outcome: DispatchPending, Record: rec}
}

// event is the proactive frame as the patient sees it on arrival
func (uc *DeliveryUseCase) event(rec *model.DeliveryRecord, trigger *model.Trigger) *model.Event {
	return &model.Event{
		Type:       model.EventProactiveMemory,
		DeliveryID: rec.ID,
		Trigger:    trigger,
		Status:     types.DeliveryStatusDelivered,
		SentAt:     uc.now(),
	}
}

// notifyStatus tells connected caregivers about a ledger transition. It is best effort.
func (uc *DeliveryUseCase) notifyStatus(ctx context.Context, rec *model.DeliveryRecord, trigger *model.Trigger) {
	uc.hub.Broadcast(ctx, types.RoleCaregiver, &model.Event{
		Type:       model.EventDeliveryStatus,
		DeliveryID: rec.ID,
		Trigger:    trigger,
		Status:     rec.Status(),
		SentAt:     uc.now(),
	})
}

func (uc *DeliveryUseCase) notifyQueued(ctx context.Context, trigger *model.Trigger, rec *model.DeliveryRecord) {
	if uc.notifier == nil {
		return
	}
	async.Dispatch(ctx, func(ctx context.Context) error {
		return uc.notifier.NotifyQueued(ctx, trigger, rec)
	})
}

// Connect registers a real-time client and replays the role's offline queue
// to it. Every replayed proactive event is marked delivered in the ledger.
func (uc *DeliveryUseCase) Connect(ctx context.Context, conn realtime.Conn, role types.Role) (*model.ConnectedClient, error) {
	if !role.IsValid() {
		return nil, goerr.Wrap(ErrInvalidRole, "cannot connect", goerr.V("role", role))
	}

	client, drained := uc.hub.Register(ctx, conn, role)

	var failed []realtime.QueueEntry
	for i, entry := range drained {
		event := uc.replayEvent(ctx, entry.Event)
		if event == nil {
			continue
		}
		if err := uc.hub.Send(client.ID, event); err != nil {
			logging.From(ctx).Warn("replay failed, re-queueing",
				"client_id", client.ID,
				"delivery_id", entry.Event.DeliveryID,
				"error", err)
			failed = append(failed, drained[i:]...)
			break
		}
		if event.Type == model.EventProactiveMemory {
			uc.markReplayed(ctx, event.DeliveryID)
		}
	}
	if len(failed) > 0 {
		uc.hub.Restore(role, failed)
	}

	return client, nil
}

// replayEvent returns the event to send for a queue entry, or nil when the
// ledger says it no longer needs delivery.
func (uc *DeliveryUseCase) replayEvent(ctx context.Context, event *model.Event) *model.Event {
	if event.Type != model.EventProactiveMemory || event.DeliveryID == "" {
		return event
	}

	rec, err := uc.repo.Delivery().Get(ctx, event.DeliveryID)
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		logging.From(ctx).Info("drop queued event without ledger record", "delivery_id", event.DeliveryID)
		return nil
	case err != nil:
		// the event is still worth showing; the ledger stays queued
		_ = errutil.Handle(ctx, err, "failed to read delivery for replay")
		return event
	case rec.Status().IsTerminal():
		return nil
	}

	replay := *event
	replay.Status = types.DeliveryStatusDelivered
	replay.SentAt = uc.now()
	return &replay
}

func (uc *DeliveryUseCase) markReplayed(ctx context.Context, id model.DeliveryID) {
	now := uc.now()
	rec, err := uc.repo.Delivery().Update(ctx, id, func(r *model.DeliveryRecord) error {
		return r.MarkDelivered(now)
	})
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to mark replayed delivery",
			goerr.V(DeliveryIDKey, id)), "delivery ledger write failed")
		return
	}
	uc.notifyStatus(ctx, rec, nil)
}

// Disconnect unregisters a client
func (uc *DeliveryUseCase) Disconnect(ctx context.Context, id model.ClientID) {
	uc.hub.Unregister(ctx, id)
}

// Touch updates the last-seen time of a client
func (uc *DeliveryUseCase) Touch(id model.ClientID) error {
	if !uc.hub.Touch(id) {
		return goerr.Wrap(ErrClientNotConnected, "cannot touch", goerr.V(ClientIDKey, id))
	}
	return nil
}

// Clients returns the connected clients
func (uc *DeliveryUseCase) Clients() []model.ConnectedClient {
	return uc.hub.Snapshot()
}

// Sweep deletes ledger rows and offline queue entries past their retention
func (uc *DeliveryUseCase) Sweep(ctx context.Context) (*SweepResult, error) {
	now := uc.now()
	result := &SweepResult{
		QueueEntries: uc.hub.SweepQueue(now.Add(-uc.cfg.QueueRetention)),
	}

	deleted, err := uc.repo.Delivery().DeleteCreatedBefore(ctx, now.Add(-uc.cfg.LedgerRetention))
	if err != nil {
		return result, goerr.Wrap(err, "failed to sweep deliveries",
			goerr.V("retention", uc.cfg.LedgerRetention))
	}
	result.Deliveries = deleted

	if result.Deliveries > 0 || result.QueueEntries > 0 {
		logging.From(ctx).Info("retention sweep",
			"deliveries", result.Deliveries,
			"queue_entries", result.QueueEntries)
	}
	return result, nil
}
