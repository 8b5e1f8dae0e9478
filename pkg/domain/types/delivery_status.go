package types

// DeliveryStatus is the derived state of a ledger entry
type DeliveryStatus string

const (
	DeliveryStatusQueued    DeliveryStatus = "queued"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusViewed    DeliveryStatus = "viewed"
	DeliveryStatusDismissed DeliveryStatus = "dismissed"
)

// IsTerminal returns true for states that accept no further transitions
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusViewed || s == DeliveryStatusDismissed
}

func (s DeliveryStatus) String() string {
	return string(s)
}
