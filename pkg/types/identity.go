package types

import "strings"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleHR    Role = "hr"
	RoleUser  Role = "user"
)

// ParseRole folds an upstream role claim into one of the three known roles.
// Anything unrecognised is a regular user.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleHR:
		return RoleHR
	default:
		return RoleUser
	}
}

// Identity is the verified caller handed to the core by the auth middleware.
type Identity struct {
	SubjectID string
	Email     string
	Role      Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func (i Identity) IsHROrAdmin() bool {
	return i.Role == RoleAdmin || i.Role == RoleHR
}

// Viewer is the caller as the item read paths see it: admins see every
// item, everyone else sees only what their employee record holds.
// EmployeeID is empty when the caller has no employee record.
type Viewer struct {
	Admin      bool
	EmployeeID string
}
