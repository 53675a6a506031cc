package enums

import "fmt"

// Role identifies what kind of user owns an account.
type Role string

const (
	RoleProfessional Role = "professional"
	RoleClient       Role = "client"
	RoleCEO          Role = "ceo"
)

var validRoles = []Role{
	RoleProfessional,
	RoleClient,
	RoleCEO,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
