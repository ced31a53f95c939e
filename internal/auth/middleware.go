package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xerppy/xerppy/internal/platform/httpx"
	"github.com/xerppy/xerppy/internal/shared"
)

type ctxKey int

const userCtxKey ctxKey = iota

// ContextWithUser stores the resolved user for downstream handlers.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// UserFromContext returns the user resolved by the gate, or nil.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userCtxKey).(*User)
	return user
}

// Gate is the per-request access-control pipeline: extract the bearer
// token, decode it, resolve the subject against the credential store and
// enforce role/permission requirements. Each step short-circuits the rest.
type Gate struct {
	Logger *slog.Logger
	Tokens *TokenIssuer
	Users  Repository
}

// Authenticate resolves the caller from the Authorization header and
// injects the user-with-roles into the request context. Missing header,
// failed decode and unknown subject all reject with 401.
func (g Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r.Header.Get("Authorization"))
		if err != nil {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		claims, ok := g.Tokens.Decode(token)
		if !ok {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		user, err := g.Users.FindByUsername(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				// Token subject no longer exists (deleted user).
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			if g.Logger != nil {
				g.Logger.Error("gate resolve user", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// RequireActive rejects inactive accounts. Expects Authenticate earlier
// in the chain.
func (g Gate) RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		if !user.IsActive {
			httpx.RespondError(w, shared.ErrInactiveAccount)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole enforces that the active caller holds at least one of the
// named roles.
func (g Gate) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return g.RequireActive(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			for _, role := range roles {
				if user.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.RespondError(w, shared.ErrForbidden)
		}))
	}
}

// RequirePermission enforces that the active caller's role set grants at
// least one of the named permissions.
func (g Gate) RequirePermission(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return g.RequireActive(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			for _, perm := range perms {
				if user.HasPermission(perm) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.RespondError(w, shared.ErrForbidden)
		}))
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func bearerToken(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", shared.ErrUnauthenticated
	}
	return parts[1], nil
}
