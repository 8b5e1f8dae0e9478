package model

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hearth-archive/hearth/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// ErrInvalidTransition is returned when a delivery state change is not allowed
var ErrInvalidTransition = errors.New("invalid delivery transition")

// DeliveryID is a UUID-based identifier for DeliveryRecord
type DeliveryID string

// NewDeliveryID generates a new UUID v4 DeliveryID
func NewDeliveryID() DeliveryID {
	return DeliveryID(uuid.New().String())
}

func (id DeliveryID) String() string {
	return string(id)
}

// DeliveryRecord is the ledger entry of a trigger delivery attempt.
// There is at most one record per (kind, date).
//
//	absent -> queued | delivered -> viewed | dismissed
type DeliveryRecord struct {
	ID          DeliveryID        `json:"id"`
	Kind        types.TriggerKind `json:"trigger_kind"`
	Date        Date              `json:"trigger_date"`
	MemoryIDs   []MemoryID        `json:"memory_ids"`
	DeliveredAt *time.Time        `json:"delivered_at,omitempty"`
	ViewedAt    *time.Time        `json:"viewed_at,omitempty"`
	DismissedAt *time.Time        `json:"dismissed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewDeliveryRecord builds a ledger entry for trigger. When delivered is
// true the record starts in the delivered state, otherwise it is queued.
func NewDeliveryRecord(trigger *Trigger, delivered bool, now time.Time) *DeliveryRecord {
	rec := &DeliveryRecord{
		ID:        NewDeliveryID(),
		Kind:      trigger.Kind,
		Date:      trigger.Date,
		MemoryIDs: trigger.MemoryIDs(),
		CreatedAt: now,
	}
	if delivered {
		rec.DeliveredAt = &now
	}
	return rec
}

func (r *DeliveryRecord) Key() TriggerKey {
	return TriggerKey{Kind: r.Kind, Date: r.Date}
}

// Status derives the state from the timestamps
func (r *DeliveryRecord) Status() types.DeliveryStatus {
	switch {
	case r.ViewedAt != nil:
		return types.DeliveryStatusViewed
	case r.DismissedAt != nil:
		return types.DeliveryStatusDismissed
	case r.DeliveredAt != nil:
		return types.DeliveryStatusDelivered
	default:
		return types.DeliveryStatusQueued
	}
}

// IsPending reports whether the record is waiting for a client (queued) or
// for an acknowledgement (delivered)
func (r *DeliveryRecord) IsPending() bool {
	return !r.Status().IsTerminal()
}

// MarshalJSON adds the derived status to the encoded record
func (r *DeliveryRecord) MarshalJSON() ([]byte, error) {
	type record DeliveryRecord
	return json.Marshal(struct {
		*record
		Status types.DeliveryStatus `json:"status"`
	}{
		record: (*record)(r),
		Status: r.Status(),
	})
}

// MarkDelivered moves a queued record to delivered. Already delivered is a no-op.
func (r *DeliveryRecord) MarkDelivered(at time.Time) error {
	switch r.Status() {
	case types.DeliveryStatusQueued:
		r.DeliveredAt = &at
		return nil
	case types.DeliveryStatusDelivered:
		return nil
	default:
		return r.transitionError(types.DeliveryStatusDelivered)
	}
}

// Requeue returns a delivered, unacknowledged record to queued. It is used
// when no connected client accepted the push.
func (r *DeliveryRecord) Requeue() error {
	switch r.Status() {
	case types.DeliveryStatusDelivered:
		r.DeliveredAt = nil
		return nil
	case types.DeliveryStatusQueued:
		return nil
	default:
		return r.transitionError(types.DeliveryStatusQueued)
	}
}

// MarkViewed records a "viewed" acknowledgement. Repeated calls are no-ops.
func (r *DeliveryRecord) MarkViewed(at time.Time) error {
	switch r.Status() {
	case types.DeliveryStatusDelivered:
		r.ViewedAt = &at
		return nil
	case types.DeliveryStatusViewed:
		return nil
	default:
		return r.transitionError(types.DeliveryStatusViewed)
	}
}

// MarkDismissed records a "dismissed" acknowledgement. Repeated calls are no-ops.
func (r *DeliveryRecord) MarkDismissed(at time.Time) error {
	switch r.Status() {
	case types.DeliveryStatusDelivered:
		r.DismissedAt = &at
		return nil
	case types.DeliveryStatusDismissed:
		return nil
	default:
		return r.transitionError(types.DeliveryStatusDismissed)
	}
}

func (r *DeliveryRecord) transitionError(to types.DeliveryStatus) error {
	return goerr.Wrap(ErrInvalidTransition, "delivery state change not allowed",
		goerr.V("delivery_id", r.ID),
		goerr.V("from", r.Status()),
		goerr.V("to", to))
}

// Copy returns a deep copy of the record
func (r *DeliveryRecord) Copy() *DeliveryRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.MemoryIDs = append([]MemoryID{}, r.MemoryIDs...)
	c.DeliveredAt = copyTime(r.DeliveredAt)
	c.ViewedAt = copyTime(r.ViewedAt)
	c.DismissedAt = copyTime(r.DismissedAt)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
