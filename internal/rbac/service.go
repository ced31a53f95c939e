package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xerppy/xerppy/internal/shared"
)

// Service orchestrates seeding and queries over the role/permission graph.
type Service struct {
	logger *slog.Logger
	repo   Repository
	cache  *PermissionCache
}

// NewService constructs a Service. cache may be nil when Redis is not
// configured; authorization then always reads the database.
func NewService(logger *slog.Logger, repo Repository, cache *PermissionCache) *Service {
	return &Service{logger: logger, repo: repo, cache: cache}
}

// Seed creates the default roles and permissions and grants the admin
// role the full seeded permission set. Idempotent: every step checks
// existence before insert, so re-running never duplicates rows or grants.
func (s *Service) Seed(ctx context.Context) error {
	for _, role := range SeedRoles {
		if _, err := s.repo.RoleIDByName(ctx, role.Name); err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if _, err := s.repo.CreateRole(ctx, role.Name, role.Description); err != nil {
				return err
			}
		}
	}

	permIDs := make([]int64, 0, len(SeedPermissions))
	for _, perm := range SeedPermissions {
		id, err := s.repo.PermissionIDByName(ctx, perm.Name)
		if errors.Is(err, shared.ErrNotFound) {
			created, createErr := s.repo.CreatePermission(ctx, perm.Name, perm.Description)
			if createErr != nil {
				return createErr
			}
			id, err = created.ID, nil
		}
		if err != nil {
			return err
		}
		permIDs = append(permIDs, id)
	}

	adminID, err := s.repo.RoleIDByName(ctx, AdminRoleName)
	if err != nil {
		return fmt.Errorf("rbac: admin role after seed: %w", err)
	}
	existing, err := s.repo.RolePermissionIDs(ctx, adminID)
	if err != nil {
		return err
	}
	granted := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		granted[id] = struct{}{}
	}
	for _, id := range permIDs {
		if _, ok := granted[id]; ok {
			continue
		}
		if err := s.repo.GrantPermission(ctx, adminID, id); err != nil {
			return err
		}
	}

	s.cache.Reset(ctx)
	return nil
}

// RoleIDByName resolves a role id by name.
func (s *Service) RoleIDByName(ctx context.Context, name string) (int64, error) {
	return s.repo.RoleIDByName(ctx, name)
}

// ListRolesWithPermissions returns all roles with their permission names.
func (s *Service) ListRolesWithPermissions(ctx context.Context) ([]RoleWithPermissions, error) {
	return s.repo.ListRolesWithPermissions(ctx)
}

// EffectivePermissions returns the deduplicated permission names for a
// user, served from the cache when possible.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	if perms, ok := s.cache.Get(ctx, userID); ok {
		return perms, nil
	}
	perms, err := s.repo.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, userID, perms)
	return perms, nil
}

// AssignRole links a role to a user and drops the user's cached permissions.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, userID)
	return nil
}

// RevokeRole unlinks a role from a user and drops the user's cached permissions.
func (s *Service) RevokeRole(ctx context.Context, userID, roleID int64) error {
	if err := s.repo.RevokeRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, userID)
	return nil
}

// GrantPermission links a permission to a role. Any user holding the role
// is affected, so the whole cache is staled.
func (s *Service) GrantPermission(ctx context.Context, roleName, permissionName string) error {
	roleID, err := s.repo.RoleIDByName(ctx, roleName)
	if err != nil {
		return err
	}
	permID, err := s.repo.PermissionIDByName(ctx, permissionName)
	if err != nil {
		return err
	}
	if err := s.repo.GrantPermission(ctx, roleID, permID); err != nil {
		return err
	}
	s.cache.Reset(ctx)
	return nil
}

// RevokePermission unlinks a permission from a role and stales the cache.
func (s *Service) RevokePermission(ctx context.Context, roleName, permissionName string) error {
	roleID, err := s.repo.RoleIDByName(ctx, roleName)
	if err != nil {
		return err
	}
	permID, err := s.repo.PermissionIDByName(ctx, permissionName)
	if err != nil {
		return err
	}
	if err := s.repo.RevokePermission(ctx, roleID, permID); err != nil {
		return err
	}
	s.cache.Reset(ctx)
	return nil
}
