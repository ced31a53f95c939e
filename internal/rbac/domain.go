package rbac

import "time"

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability, named "<resource>.<action>".
type Permission struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// RoleWithPermissions is a role together with its granted permission names.
type RoleWithPermissions struct {
	Role
	Permissions []string
}

// Seed data created at initialization. Seeding is idempotent: rows are
// inserted only when absent by name, and the admin role's grants are
// topped up to the full seeded permission set.
var (
	SeedRoles = []Role{
		{Name: "admin", Description: "Administrator with full access"},
		{Name: "user", Description: "Regular user with basic access"},
	}

	SeedPermissions = []Permission{
		{Name: "users.read", Description: "Read users"},
		{Name: "users.write", Description: "Create/Update users"},
		{Name: "users.delete", Description: "Delete users"},
		{Name: "roles.read", Description: "Read roles"},
		{Name: "roles.write", Description: "Create/Update roles"},
		{Name: "roles.delete", Description: "Delete roles"},
	}
)

// AdminRoleName is the role holding the full seeded permission set.
const AdminRoleName = "admin"
