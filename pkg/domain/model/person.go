package model

import (
	"time"

	"github.com/google/uuid"
)

// PersonID is a UUID-based identifier for Person
type PersonID string

// NewPersonID generates a new UUID v4 PersonID
func NewPersonID() PersonID {
	return PersonID(uuid.New().String())
}

func (id PersonID) String() string {
	return string(id)
}

// Person is a family member or friend that memories can be tagged with
type Person struct {
	ID           PersonID  `json:"id"`
	Name         string    `json:"name"`
	Relationship string    `json:"relationship,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
