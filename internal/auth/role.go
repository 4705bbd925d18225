package auth

type Role int

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleUser
)

// ParseRole maps the token's role text to a Role. Matching is exact; anything
// else is RoleUnknown.
func ParseRole(s string) Role {
	switch s {
	case "admin":
		return RoleAdmin
	case "user":
		return RoleUser
	default:
		return RoleUnknown
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleUser:
		return "user"
	default:
		return "unknown"
	}
}
