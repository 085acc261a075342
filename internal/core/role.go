package core

// Role is the participant's role inside a cohort, resolved by the auth
// collaborator before the connection is registered.
type Role string

const (
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// CanModerate reports whether the role may start/stop streams, manage polls,
// and ban users.
func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin
}

// ParseRole normalizes a role string, defaulting to member.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleModerator:
		return RoleModerator
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleMember
	}
}
