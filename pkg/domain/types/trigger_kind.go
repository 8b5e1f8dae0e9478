package types

import "fmt"

// TriggerKind identifies which scanner produced a trigger
type TriggerKind string

const (
	TriggerKindAnniversary TriggerKind = "anniversary"
	TriggerKindOnThisDay   TriggerKind = "on_this_day"
	TriggerKindSeasonal    TriggerKind = "seasonal"
)

// AllTriggerKinds returns every trigger kind in detection priority order
func AllTriggerKinds() []TriggerKind {
	return []TriggerKind{
		TriggerKindAnniversary,
		TriggerKindOnThisDay,
		TriggerKindSeasonal,
	}
}

// IsValid checks if the trigger kind is valid
func (k TriggerKind) IsValid() bool {
	switch k {
	case TriggerKindAnniversary,
		TriggerKindOnThisDay,
		TriggerKindSeasonal:
		return true
	default:
		return false
	}
}

// String returns the string representation of the trigger kind
func (k TriggerKind) String() string {
	return string(k)
}

// ParseTriggerKind parses a string into a TriggerKind
func ParseTriggerKind(s string) (TriggerKind, error) {
	kind := TriggerKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid trigger kind: %s", s)
	}
	return kind, nil
}
