package models

import "strings"

// Role is the closed set of caller capabilities. It is resolved once at the
// auth boundary; handlers and services never compare raw strings.
type Role string

const (
	RoleNormalUser   Role = "NORMAL_USER"
	RoleBusConductor Role = "BUS_CONDUCTOR"
	RoleAdmin        Role = "ADMIN"
)

// ParseRole normalizes a stored role value. Unknown values map to the
// least-privileged role.
func ParseRole(s string) Role {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(RoleBusConductor):
		return RoleBusConductor
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleNormalUser
	}
}

func (r Role) IsStaff() bool {
	return r == RoleBusConductor || r == RoleAdmin
}

type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      Role   `json:"role"`
	BusID     int64  `json:"bus_id,omitempty"` // conductors only
}
