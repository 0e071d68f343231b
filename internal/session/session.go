// Package session keeps the client's authentication state: whether a user is
// logged in and with which role. The state is persisted as one record so it
// survives a restart, and must be loaded before any route guard runs.
//
// Invariant: a role is only ever recorded while authenticated. Login sets
// both fields, Logout clears both, and a persisted record that violates the
// invariant is discarded on Load.
package session

import (
	"errors"
	"fmt"
)

// Role is the role claim issued by the API
type Role string

const (
	RoleNone  Role = ""
	RoleAdmin Role = "ROLE_ADMIN"
	RoleUser  Role = "ROLE_USER"
)

// ParseRole accepts the API form (ROLE_ADMIN) or the short form (admin)
func ParseRole(s string) (Role, error) {
	switch s {
	case string(RoleAdmin), "admin", "ADMIN":
		return RoleAdmin, nil
	case string(RoleUser), "user", "USER":
		return RoleUser, nil
	default:
		return RoleNone, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// ErrInvalidRole is returned when logging in with a role other than admin or user
var ErrInvalidRole = errors.New("invalid role")

// Session is a point-in-time view of the authentication state
type Session struct {
	IsAuthenticated bool `json:"isAuthenticated"`
	Role            Role `json:"userRole" validate:"omitempty,oneof=ROLE_ADMIN ROLE_USER"`
}

// IsAdmin reports whether the recorded role is admin
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// IsUser reports whether the recorded role is user
func (s Session) IsUser() bool {
	return s.Role == RoleUser
}

func (s Session) String() string {
	if !s.IsAuthenticated {
		return "anonymous"
	}
	return fmt.Sprintf("authenticated (%s)", s.Role)
}
