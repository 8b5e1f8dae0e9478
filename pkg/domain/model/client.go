package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/hearth-archive/hearth/pkg/domain/types"
)

// ClientID identifies one real-time connection
type ClientID string

func NewClientID() ClientID {
	return ClientID(uuid.New().String())
}

func (id ClientID) String() string {
	return string(id)
}

// ConnectedClient is a live real-time connection. It exists only in memory.
type ConnectedClient struct {
	ID          ClientID   `json:"id"`
	Role        types.Role `json:"role"`
	ConnectedAt time.Time  `json:"connected_at"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
}
