// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # Account Roles

// UserRole represents the permission level granted to a marketplace account.
type UserRole string

const (
	// Unrestricted platform access
	RoleAdmin UserRole = "admin"

	// Can publish products and manage their own media
	RoleSeller UserRole = "seller"

	// Default role for registered accounts
	RoleMember UserRole = "member"
)

// # Role Validation

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	return r.level() > 0
}

// level maps a role to its rank. Unknown roles rank zero.
func (r UserRole) level() int {
	switch r {
	case RoleAdmin:
		return 30
	case RoleSeller:
		return 20
	case RoleMember:
		return 10
	default:
		return 0
	}
}
