package domain

import "strings"

type Role int

const (
	RoleNone Role = iota
	RoleUser
	RoleAdmin
)

// AdminMarker is the role string the Auth service issues to administrators.
const AdminMarker = "ROLE_ADMIN"

// ParseRole maps the Auth service's free-text role to a Role.
// Matching on the admin marker ignores case and surrounding space.
func ParseRole(s string) Role {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return RoleNone
	case strings.EqualFold(s, AdminMarker):
		return RoleAdmin
	default:
		return RoleUser
	}
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleUser:
		return "user"
	default:
		return "none"
	}
}
