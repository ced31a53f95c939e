package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xerppy/xerppy/internal/shared"
)

// Repository defines persistence over the role/permission graph.
type Repository interface {
	RoleIDByName(ctx context.Context, name string) (int64, error)
	PermissionIDByName(ctx context.Context, name string) (int64, error)
	CreateRole(ctx context.Context, name, description string) (Role, error)
	CreatePermission(ctx context.Context, name, description string) (Permission, error)
	ListRolesWithPermissions(ctx context.Context) ([]RoleWithPermissions, error)
	RolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error)
	GrantPermission(ctx context.Context, roleID, permissionID int64) error
	RevokePermission(ctx context.Context, roleID, permissionID int64) error
	AssignRole(ctx context.Context, userID, roleID int64) error
	RevokeRole(ctx context.Context, userID, roleID int64) error
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// RoleIDByName resolves a role id, returning shared.ErrNotFound when absent.
func (r *PGRepository) RoleIDByName(ctx context.Context, name string) (int64, error) {
	return r.idByName(ctx, `SELECT id FROM roles WHERE name = $1`, name)
}

// PermissionIDByName resolves a permission id, returning shared.ErrNotFound when absent.
func (r *PGRepository) PermissionIDByName(ctx context.Context, name string) (int64, error) {
	return r.idByName(ctx, `SELECT id FROM permissions WHERE name = $1`, name)
}

func (r *PGRepository) idByName(ctx context.Context, query, name string) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, query, name).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, fmt.Errorf("rbac: lookup by name: %w", err)
	}
	return id, nil
}

// CreateRole inserts a new role.
func (r *PGRepository) CreateRole(ctx context.Context, name, description string) (Role, error) {
	role := Role{Name: name, Description: description}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`,
		name, description,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return Role{}, fmt.Errorf("rbac: create role: %w", err)
	}
	return role, nil
}

// CreatePermission inserts a new permission.
func (r *PGRepository) CreatePermission(ctx context.Context, name, description string) (Permission, error) {
	perm := Permission{Name: name, Description: description}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		name, description,
	).Scan(&perm.ID, &perm.CreatedAt)
	if err != nil {
		return Permission{}, fmt.Errorf("rbac: create permission: %w", err)
	}
	return perm, nil
}

// ListRolesWithPermissions returns all roles with their granted permission
// names resolved in the same call.
func (r *PGRepository) ListRolesWithPermissions(ctx context.Context) ([]RoleWithPermissions, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("rbac: list roles: %w", err)
	}
	defer rows.Close()

	var roles []RoleWithPermissions
	index := make(map[int64]int)
	for rows.Next() {
		var role RoleWithPermissions
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("rbac: scan role: %w", err)
		}
		index[role.ID] = len(roles)
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: iterate roles: %w", err)
	}

	permRows, err := r.pool.Query(ctx, `
		SELECT rp.role_id, p.name
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		ORDER BY p.name`)
	if err != nil {
		return nil, fmt.Errorf("rbac: list role permissions: %w", err)
	}
	defer permRows.Close()

	for permRows.Next() {
		var roleID int64
		var name string
		if err := permRows.Scan(&roleID, &name); err != nil {
			return nil, fmt.Errorf("rbac: scan role permission: %w", err)
		}
		if i, ok := index[roleID]; ok {
			roles[i].Permissions = append(roles[i].Permissions, name)
		}
	}
	if err := permRows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: iterate role permissions: %w", err)
	}
	return roles, nil
}

// RolePermissionIDs returns the permission ids currently granted to a role.
func (r *PGRepository) RolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT permission_id FROM role_permissions WHERE role_id = $1`, roleID)
	if err != nil {
		return nil, fmt.Errorf("rbac: role permission ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("rbac: scan permission id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GrantPermission links a permission to a role. Re-granting is a no-op.
func (r *PGRepository) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ($1, $2)
		ON CONFLICT (role_id, permission_id) DO NOTHING`, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("rbac: grant permission: %w", err)
	}
	return nil
}

// RevokePermission unlinks a permission from a role.
func (r *PGRepository) RevokePermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("rbac: revoke permission: %w", err)
	}
	return nil
}

// AssignRole links a role to a user. Re-assigning is a no-op.
func (r *PGRepository) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
	if err != nil {
		return fmt.Errorf("rbac: assign role: %w", err)
	}
	return nil
}

// RevokeRole unlinks a role from a user.
func (r *PGRepository) RevokeRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return fmt.Errorf("rbac: revoke role: %w", err)
	}
	return nil
}

// EffectivePermissions returns the deduplicated union of permission names
// across all of the user's roles.
func (r *PGRepository) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1
		ORDER BY p.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: effective permissions: %w", err)
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("rbac: scan permission name: %w", err)
		}
		perms = append(perms, name)
	}
	return perms, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
