package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/xerppy/xerppy/internal/shared"
)

const (
	// DefaultRoleName is assigned to new registrations and used as the
	// primary-role fallback for users without any role.
	DefaultRoleName = "user"
	// AdminRoleName gates administrative endpoints.
	AdminRoleName = "admin"

	// maxPasswordBytes is bcrypt's input limit. Longer passwords are
	// deterministically truncated before hashing and verification, so
	// bytes past the limit never affect the outcome.
	maxPasswordBytes = 72
)

// RoleGraph is the slice of the role/permission graph the authorization
// service needs: resolving a role name and linking it to a user.
type RoleGraph interface {
	RoleIDByName(ctx context.Context, name string) (int64, error)
	AssignRole(ctx context.Context, userID, roleID int64) error
}

// Service wraps registration, authentication and token issuance.
type Service struct {
	logger     *slog.Logger
	repo       Repository
	roles      RoleGraph
	tokens     *TokenIssuer
	bcryptCost int
}

// NewService constructs a new Service.
func NewService(logger *slog.Logger, repo Repository, roles RoleGraph, tokens *TokenIssuer, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{logger: logger, repo: repo, roles: roles, tokens: tokens, bcryptCost: bcryptCost}
}

// Register creates a user account with a hashed password and the default
// role. Duplicates are checked before insert; a concurrent registration
// losing the race at the unique constraint surfaces the same duplicate
// sentinel. A missing default role is tolerated: the account is created
// without a role.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	switch _, err := s.repo.FindByUsername(ctx, username); {
	case err == nil:
		return nil, shared.ErrDuplicateUsername
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}
	switch _, err := s.repo.FindByEmail(ctx, email); {
	case err == nil:
		return nil, shared.ErrDuplicateEmail
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}

	roleID, err := s.roles.RoleIDByName(ctx, DefaultRoleName)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			if s.logger != nil {
				s.logger.Warn("default role missing, user created without role",
					slog.String("role", DefaultRoleName), slog.Int64("user_id", user.ID))
			}
			return user, nil
		}
		return nil, err
	}
	if err := s.roles.AssignRole(ctx, user.ID, roleID); err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, user.ID)
}

// Authenticate resolves the identifier as a username first, then as an
// email, and verifies the password. Every failure mode except
// infrastructure errors collapses into ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, identifier)
	if errors.Is(err, shared.ErrNotFound) {
		user, err = s.repo.FindByEmail(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken mints a bearer token for the user carrying its primary role.
func (s *Service) IssueToken(user *User) (string, error) {
	return s.tokens.Create(user.Username, user.PrimaryRole())
}

// HasRole reports whether the user holds the named role.
func (s *Service) HasRole(user *User, name string) bool {
	return user.HasRole(name)
}

// HasPermission reports whether the user's roles grant the permission.
func (s *Service) HasPermission(user *User, name string) bool {
	return user.HasPermission(name)
}

// truncateSecret applies bcrypt's 72-byte input limit deterministically.
func truncateSecret(password string) []byte {
	secret := []byte(password)
	if len(secret) > maxPasswordBytes {
		secret = secret[:maxPasswordBytes]
	}
	return secret
}

// HashPassword hashes the password with bcrypt at the given cost.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncateSecret(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether the password matches the stored hash,
// applying the same truncation used at hashing time.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncateSecret(password)) == nil
}
