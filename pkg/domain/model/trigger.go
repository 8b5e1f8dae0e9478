package model

import (
	"github.com/hearth-archive/hearth/pkg/domain/types"
)

// TriggerKey is the dedup identity of a trigger
type TriggerKey struct {
	Kind types.TriggerKind
	Date Date
}

func (k TriggerKey) String() string {
	return k.Kind.String() + "_" + k.Date.String()
}

// Trigger is a computed candidate for surfacing memories on a calendar day.
// It is not persisted until delivery is attempted.
type Trigger struct {
	Kind         types.TriggerKind `json:"kind"`
	Date         Date              `json:"date"`
	Memories     []*Memory         `json:"memories"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Presentation *Presentation     `json:"presentation,omitempty"`
}

func (t *Trigger) Key() TriggerKey {
	return TriggerKey{Kind: t.Kind, Date: t.Date}
}

func (t *Trigger) MemoryIDs() []MemoryID {
	return MemoryIDsOf(t.Memories)
}
