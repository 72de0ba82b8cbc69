package domain

import dErrors "agora/pkg/domain-errors"

// Role is an agent's network-wide privilege level, derived from the role
// grant log. RoleNone is the zero value and the state of every agent that
// never received a grant, or whose last grant was revoked.
//
// Authorship-based powers (an author editing their own entity) are contextual
// and not represented here.
type Role string

const (
	RoleNone          Role = "none"
	RoleModerator     Role = "moderator"
	RoleAdministrator Role = "administrator"
)

// grantableRoles excludes RoleNone: removing privileges is a revoke, not a
// grant of "none".
var grantableRoles = map[Role]bool{
	RoleModerator:     true,
	RoleAdministrator: true,
}

// ParseGrantableRole constructs a Role from external input for grant
// operations.
//
// Errors: returns CodeInvalidInput when the value is empty, unknown, or
// "none".
func ParseGrantableRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !grantableRoles[r] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "role %q cannot be granted", s)
	}
	return r, nil
}

// AtLeast reports whether the role carries the privileges of other.
// Administrator subsumes moderator; every role subsumes none.
func (r Role) AtLeast(other Role) bool {
	return r.rank() >= other.rank()
}

func (r Role) rank() int {
	switch r {
	case RoleAdministrator:
		return 2
	case RoleModerator:
		return 1
	default:
		return 0
	}
}

// String returns the string representation of the role.
func (r Role) String() string {
	if r == "" {
		return string(RoleNone)
	}
	return string(r)
}
