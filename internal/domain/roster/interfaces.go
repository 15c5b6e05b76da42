package roster

import "context"

// RoleManager reconciles platform group roles with membership state. Role
// names are built from the configured prefixes; revocation matches every role
// the member holds whose name starts with one of the given prefixes.
type RoleManager interface {
	GrantRole(ctx context.Context, memberID, roleName string) error
	RevokeRolesByPrefix(ctx context.Context, memberID string, prefixes ...string) error
}
