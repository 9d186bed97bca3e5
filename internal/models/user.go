package models

// Role represents a user's permission level.
//
// Roles are assigned server-side; the client treats them as read-only.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

// User represents an account on the QubicBall server.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// CanWrite returns true if the role may create, edit, or delete records.
// Members are read-only. This mirrors the server-side check; it exists so
// the UI can suppress controls the server would reject anyway.
func (r Role) CanWrite() bool {
	return r == RoleAdmin || r == RoleManager
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

// ParseRole converts a string to Role, defaulting to member.
func ParseRole(s string) Role {
	switch s {
	case "admin":
		return RoleAdmin
	case "manager":
		return RoleManager
	default:
		return RoleMember
	}
}
