package types

import "fmt"

// Role is the declared category of a connected real-time client
type Role string

const (
	RolePatient   Role = "patient"
	RoleCaregiver Role = "caregiver"
)

// AllRoles returns all valid roles
func AllRoles() []Role {
	return []Role{RolePatient, RoleCaregiver}
}

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleCaregiver:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// ParseRole parses a string into a Role
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid role: %s", s)
	}
	return role, nil
}
