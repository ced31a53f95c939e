package auth

import "time"

// Role is a named authorization bucket attached to a user, carrying the
// permission names granted through it. The slice is populated eagerly by
// the repository so role/permission checks never touch the database.
type Role struct {
	ID          int64
	Name        string
	Description string
	Permissions []string
}

// User represents an authenticated user account with its resolved roles.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleNames returns the names of the user's roles in assignment order.
func (u *User) RoleNames() []string {
	names := make([]string, len(u.Roles))
	for i, role := range u.Roles {
		names[i] = role.Name
	}
	return names
}

// PrimaryRole returns the first assigned role name, falling back to the
// default role for users without any role.
func (u *User) PrimaryRole() string {
	if len(u.Roles) > 0 {
		return u.Roles[0].Name
	}
	return DefaultRoleName
}

// HasRole reports whether the user holds the named role. Pure set
// membership over the loaded roles; no I/O.
func (u *User) HasRole(name string) bool {
	for _, role := range u.Roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

// HasPermission reports whether any of the user's roles grants the named
// permission. Pure set membership over the loaded permission sets; no I/O.
func (u *User) HasPermission(name string) bool {
	for _, role := range u.Roles {
		for _, perm := range role.Permissions {
			if perm == name {
				return true
			}
		}
	}
	return false
}
