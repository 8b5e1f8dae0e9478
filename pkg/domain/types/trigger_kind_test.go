package types_test

import (
	"testing"

	"github.com/hearth-archive/hearth/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

func TestTriggerKind_IsValid(t *testing.T) {
	tests := []struct {
		name string
		kind types.TriggerKind
		want bool
	}{
		{name: "anniversary", kind: types.TriggerKindAnniversary, want: true},
		{name: "on this day", kind: types.TriggerKindOnThisDay, want: true},
		{name: "seasonal", kind: types.TriggerKindSeasonal, want: true},
		{name: "unknown", kind: types.TriggerKind("birthday"), want: false},
		{name: "empty", kind: types.TriggerKind(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.kind.IsValid()).Equal(tt.want)
		})
	}
}

func TestAllTriggerKinds_PriorityOrder(t *testing.T) {
	kinds := types.AllTriggerKinds()
	gt.Array(t, kinds).Length(3)
	gt.Value(t, kinds[0]).Equal(types.TriggerKindAnniversary)
	gt.Value(t, kinds[1]).Equal(types.TriggerKindOnThisDay)
	gt.Value(t, kinds[2]).Equal(types.TriggerKindSeasonal)
}

func TestParseTriggerKind(t *testing.T) {
	kind, err := types.ParseTriggerKind("on_this_day")
	gt.NoError(t, err).Required()
	gt.Value(t, kind).Equal(types.TriggerKindOnThisDay)

	_, err = types.ParseTriggerKind("ON_THIS_DAY")
	gt.Value(t, err).NotNil()
}
