package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xerppy/xerppy/internal/shared"
)

// Repository defines credential-store persistence operations. Lookups
// return the user with roles and role permissions resolved in the same
// call, so callers never trigger deferred loads.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, is_active, created_at, updated_at`

// FindByUsername fetches a user by username with roles eagerly loaded.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// FindByEmail fetches a user by email with roles eagerly loaded.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByID fetches a user by id with roles eagerly loaded.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PGRepository) findOne(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	if err := r.loadRoles(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// loadRoles resolves the user's roles in assignment order and the
// permission names granted through each role.
func (r *PGRepository) loadRoles(ctx context.Context, user *User) error {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, r.description
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY ur.created_at, r.id`, user.ID)
	if err != nil {
		return fmt.Errorf("auth: load roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	var roleIDs []int64
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return fmt.Errorf("auth: scan role: %w", err)
		}
		roles = append(roles, role)
		roleIDs = append(roleIDs, role.ID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("auth: iterate roles: %w", err)
	}
	if len(roles) == 0 {
		user.Roles = nil
		return nil
	}

	permRows, err := r.pool.Query(ctx, `
		SELECT rp.role_id, p.name
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = ANY($1)
		ORDER BY p.name`, roleIDs)
	if err != nil {
		return fmt.Errorf("auth: load role permissions: %w", err)
	}
	defer permRows.Close()

	byRole := make(map[int64][]string, len(roles))
	for permRows.Next() {
		var roleID int64
		var name string
		if err := permRows.Scan(&roleID, &name); err != nil {
			return fmt.Errorf("auth: scan permission: %w", err)
		}
		byRole[roleID] = append(byRole[roleID], name)
	}
	if err := permRows.Err(); err != nil {
		return fmt.Errorf("auth: iterate permissions: %w", err)
	}

	for i := range roles {
		roles[i].Permissions = byRole[roles[i].ID]
	}
	user.Roles = roles
	return nil
}

// Create inserts a new user. Unique-constraint races surface as the
// duplicate sentinel naming the conflicting field.
func (r *PGRepository) Create(ctx context.Context, user *User) (*User, error) {
	created := *user
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		user.Username, user.Email, user.PasswordHash, user.IsActive,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("auth: create user: %w", err)
	}
	return &created, nil
}

// Update persists mutable user fields.
func (r *PGRepository) Update(ctx context.Context, user *User) (*User, error) {
	updated := *user
	err := r.pool.QueryRow(ctx, `
		UPDATE users
		SET email = $2, password_hash = $3, is_active = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		user.ID, user.Email, user.PasswordHash, user.IsActive,
	).Scan(&updated.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		if dup := duplicateError(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("auth: update user: %w", err)
	}
	return &updated, nil
}

// duplicateError translates a PostgreSQL unique violation into the
// field-specific duplicate sentinel, or nil when err is something else.
func duplicateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "email"):
		return shared.ErrDuplicateEmail
	default:
		return shared.ErrDuplicateUsername
	}
}

var _ Repository = (*PGRepository)(nil)
