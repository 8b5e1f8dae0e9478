package model

import (
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/types"
)

// EventType names the payloads pushed to real-time clients
type EventType string

const (
	// EventProactiveMemory carries a trigger to the target role
	EventProactiveMemory EventType = "proactive_memory"
	// EventDeliveryStatus informs caregivers of a ledger transition
	EventDeliveryStatus EventType = "delivery_status"
)

// Event is the payload emitted to a connected client
type Event struct {
	Type       EventType            `json:"type"`
	DeliveryID DeliveryID           `json:"delivery_id,omitempty"`
	Trigger    *Trigger             `json:"trigger,omitempty"`
	Status     types.DeliveryStatus `json:"status,omitempty"`
	SentAt     time.Time            `json:"sent_at"`
}
