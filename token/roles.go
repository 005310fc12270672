package token

import "fmt"

// Role is a named capability gating privileged operations.
type Role string

const (
	// RoleAdmin may grant and revoke any role, including Admin itself.
	RoleAdmin Role = "admin"
	// RoleMinter may increase total supply via Mint.
	RoleMinter Role = "minter"
	// RolePauser may toggle the global pause flag.
	RolePauser Role = "pauser"
)

// Roles lists every role the ledger knows, in a fixed order.
var Roles = []Role{RoleAdmin, RoleMinter, RolePauser}

// ParseRole converts a role identifier string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleMinter, RolePauser:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string {
	return string(r)
}
