//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"
	"time"
)

// Role is a user role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleEA    Role = "ea"
	RoleHR    Role = "hr"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleEA, RoleHR}

// ParseRole normalizes a role name. It reports false for unknown roles.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return r, false
}

// Actor is the identity behind an action. Authentication happens upstream;
// the core trusts what it is given.
type Actor struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// String returns the email, or "anonymous".
func (a Actor) String() string {
	if a.Email == "" {
		return "anonymous"
	}
	return a.Email
}

// AuditEntry records one applied mutation.
type AuditEntry struct {
	ID       string    `json:"id"`
	Action   string    `json:"action"`
	Kind     string    `json:"kind"`
	RecordID string    `json:"recordId"`
	Actor    string    `json:"actor"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}
