package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

func newTrigger() *model.Trigger {
	return &model.Trigger{
		Kind:     types.TriggerKindAnniversary,
		Date:     model.MustParseDate("2024-06-15"),
		Memories: []*model.Memory{{ID: "m1"}, {ID: "m2"}},
	}
}

func TestNewDeliveryRecord(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

	t.Run("delivered record has delivered_at", func(t *testing.T) {
		rec := model.NewDeliveryRecord(newTrigger(), true, now)
		gt.Value(t, rec.Status()).Equal(types.DeliveryStatusDelivered)
		gt.Value(t, *rec.DeliveredAt).Equal(now)
		gt.Value(t, rec.MemoryIDs).Equal([]model.MemoryID{"m1", "m2"})
		gt.Value(t, rec.Key().String()).Equal("anniversary_2024-06-15")
	})

	t.Run("queued record has no timestamps", func(t *testing.T) {
		rec := model.NewDeliveryRecord(newTrigger(), false, now)
		gt.Value(t, rec.Status()).Equal(types.DeliveryStatusQueued)
		gt.Bool(t, rec.IsPending()).True()
	})
}

func TestDeliveryRecord_Transitions(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

	t.Run("queued to delivered to viewed", func(t *testing.T) {
		rec := model.NewDeliveryRecord(newTrigger(), false, now)
		gt.NoError(t, rec.MarkDelivered(now.Add(time.Minute))).Required()
		gt.Value(t, rec.Status()).Equal(types.DeliveryStatusDelivered)

		gt.NoError(t, rec.MarkViewed(now.Add(2*time.Minute))).Required()
		gt.Value(t, rec.Status()).Equal(types.DeliveryStatusViewed)
		gt.Bool(t, rec.IsPending()).False()
	})

	t.Run("viewed is idempotent and keeps first timestamp", func(t *testing.T) {
		rec := model.NewDeliveryRecord(newTrigger(), true, now)
		first := now.Add(time.Minute)
		gt.NoError(t, rec.MarkViewed(first)).Required()
		gt.NoError(t, rec.MarkViewed(now.Add(time.Hour))).Required()
		gt.Value(t, *rec.ViewedAt).Equal(first)
	})

	t.Run("dismissed is idempotent", func(t *testing.T) {
		rec := model.NewDeliveryRecord(newTrigger(), true, now)
		gt.NoError(t, rec.MarkDismissed(now)).Required()
		gt.NoError(t, rec.MarkDismissed(now)).Required()
		gt.Value(t, rec.Status()).Equal(types.DeliveryStatusDismissed)
	})

	t.Run("acknowledging queued record is rejected", func(t *testing.T) {
		rec := model.NewDeliveryRecord(newTrigger(), false, now)
		gt.Error(t, rec.MarkViewed(now)).Is(model.ErrInvalidTransition)
		gt.Error(t, rec.MarkDismissed(now)).Is(model.ErrInvalidTransition)
	})

	t.Run("viewed and dismissed are exclusive", func(t *testing.T) {
		rec := model.NewDeliveryRecord(newTrigger(), true, now)
		gt.NoError(t, rec.MarkViewed(now)).Required()
		gt.Error(t, rec.MarkDismissed(now)).Is(model.ErrInvalidTransition)

		rec2 := model.NewDeliveryRecord(newTrigger(), true, now)
		gt.NoError(t, rec2.MarkDismissed(now)).Required()
		gt.Error(t, rec2.MarkViewed(now)).Is(model.ErrInvalidTransition)
	})

	t.Run("terminal record cannot be redelivered or requeued", func(t *testing.T) {
		rec := model.NewDeliveryRecord(newTrigger(), true, now)
		gt.NoError(t, rec.MarkViewed(now)).Required()
		gt.Error(t, rec.MarkDelivered(now)).Is(model.ErrInvalidTransition)
		gt.Error(t, rec.Requeue()).Is(model.ErrInvalidTransition)
	})

	t.Run("requeue clears delivered_at", func(t *testing.T) {
		rec := model.NewDeliveryRecord(newTrigger(), true, now)
		gt.NoError(t, rec.Requeue()).Required()
		gt.Value(t, rec.Status()).Equal(types.DeliveryStatusQueued)
		gt.Value(t, rec.DeliveredAt).Nil()
	})
}

func TestDeliveryRecord_Copy(t *testing.T) {
	now := time.Now()
	rec := model.NewDeliveryRecord(newTrigger(), true, now)
	c := rec.Copy()
	c.MemoryIDs[0] = "changed"
	*c.DeliveredAt = now.Add(time.Hour)

	gt.Value(t, rec.MemoryIDs[0]).Equal(model.MemoryID("m1"))
	gt.Value(t, *rec.DeliveredAt).Equal(now)
}

func TestDeliveryRecord_MarshalJSON(t *testing.T) {
	rec := model.NewDeliveryRecord(newTrigger(), false, time.Now())
	raw, err := json.Marshal(rec)
	gt.NoError(t, err).Required()

	var decoded map[string]any
	gt.NoError(t, json.Unmarshal(raw, &decoded)).Required()
	gt.Value(t, decoded["status"]).Equal("queued")
	gt.Value(t, decoded["id"]).Equal(rec.ID.String())
	gt.Value(t, decoded["trigger_kind"]).Equal("anniversary")
}
