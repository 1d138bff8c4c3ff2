package models

// Roles a user can hold. The set is fixed.
const (
	RoleMember    = "member"
	RoleLibrarian = "librarian"
	RoleAdmin     = "admin"
)

// Roles lists every valid role, lowest privilege first.
var Roles = []string{RoleMember, RoleLibrarian, RoleAdmin}

// StaffRoles are the roles allowed to manage the catalog and circulation.
var StaffRoles = []string{RoleLibrarian, RoleAdmin}

// IsValidRole reports whether role is one of Roles.
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}
