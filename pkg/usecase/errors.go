package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Request errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidTrigger = errors.New("invalid trigger")
	ErrInvalidAction  = errors.New("invalid acknowledge action")
	ErrInvalidRole    = errors.New("invalid client role")
	ErrAckForbidden   = errors.New("role may not acknowledge deliveries")

	// Realtime errors
	ErrClientNotConnected = errors.New("client is not connected")
)

// Context keys for error values
const (
	DeliveryIDKey = "delivery_id"
	TriggerKey    = "trigger"
	ClientIDKey   = "client_id"
)
