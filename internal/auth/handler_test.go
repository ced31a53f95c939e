package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xerppy/xerppy/internal/auth"
	"github.com/xerppy/xerppy/internal/rbac"
	_ "github.com/xerppy/xerppy/testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCatalog struct {
	roles []rbac.RoleWithPermissions
}

func (f *fakeCatalog) ListRolesWithPermissions(ctx context.Context) ([]rbac.RoleWithPermissions, error) {
	return f.roles, nil
}

type testEnv struct {
	repo   *fakeRepo
	graph  *fakeGraph
	tokens *auth.TokenIssuer
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newFakeRepo()
	graph := newFakeGraph(repo, "admin", "user")
	graph.grant("admin", "users.read", "users.write", "users.delete", "roles.read", "roles.write", "roles.delete")

	tokens := auth.NewTokenIssuer("test-secret", "xerppy", 30*time.Minute)
	service := auth.NewService(nil, repo, graph, tokens, 4)
	gate := auth.Gate{Tokens: tokens, Users: repo}
	catalog := &fakeCatalog{roles: []rbac.RoleWithPermissions{
		{Role: rbac.Role{ID: 1, Name: "admin", Description: "Administrator with full access"},
			Permissions: []string{"roles.read", "users.read"}},
		{Role: rbac.Role{ID: 2, Name: "user", Description: "Regular user with basic access"}},
	}}
	handler := auth.NewHandler(discardLogger(), service, catalog, gate)

	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return &testEnv{repo: repo, graph: graph, tokens: tokens, router: r}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	e.router.ServeHTTP(res, req)
	return res
}

func decodeBody[T any](t *testing.T, res *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	return out
}

func TestRegisterLoginMeScenario(t *testing.T) {
	env := newTestEnv(t)

	// Register.
	res := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@x.com",
		"password": "pw123456",
	})
	require.Equal(t, http.StatusCreated, res.Code)
	created := decodeBody[map[string]any](t, res)
	assert.Equal(t, "alice", created["username"])
	assert.Equal(t, "alice@x.com", created["email"])
	assert.Equal(t, true, created["is_active"])
	assert.NotContains(t, res.Body.String(), "pw123456")

	// Login with username.
	res = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username_or_email": "alice",
		"password":          "pw123456",
	})
	require.Equal(t, http.StatusOK, res.Code)
	tokenBody := decodeBody[map[string]string](t, res)
	assert.Equal(t, "bearer", tokenBody["token_type"])
	require.NotEmpty(t, tokenBody["access_token"])

	// Current user.
	res = env.do(t, http.MethodGet, "/auth/me", tokenBody["access_token"], nil)
	require.Equal(t, http.StatusOK, res.Code)
	me := decodeBody[struct {
		Username string   `json:"username"`
		Roles    []string `json:"roles"`
	}](t, res)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, []string{"user"}, me.Roles)

	// Role listing requires admin.
	res = env.do(t, http.MethodGet, "/auth/roles", tokenBody["access_token"], nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestLoginByEmail(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@x.com", "password": "pw123456",
	})

	res := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username_or_email": "alice@x.com",
		"password":          "pw123456",
	})
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestLoginFailureIsGeneric(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@x.com", "password": "pw123456",
	})

	wrongPassword := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username_or_email": "alice", "password": "wrong-password",
	})
	unknownUser := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username_or_email": "nobody", "password": "pw123456",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	// Identical body: the response must not reveal which part was wrong.
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
	assert.Contains(t, wrongPassword.Body.String(), "incorrect username or password")
	assert.Equal(t, "Bearer", wrongPassword.Header().Get("WWW-Authenticate"))
}

func TestLoginInactiveAccount(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env.repo, env.graph, "alice", "pw123456", false)

	res := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username_or_email": "alice", "password": "pw123456",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "inactive")
}

func TestRegisterDuplicateNamesField(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@x.com", "password": "pw123456",
	})

	sameUsername := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "other@x.com", "password": "pw123456",
	})
	assert.Equal(t, http.StatusBadRequest, sameUsername.Code)
	assert.Contains(t, sameUsername.Body.String(), "username already registered")

	sameEmail := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "bob", "email": "alice@x.com", "password": "pw123456",
	})
	assert.Equal(t, http.StatusBadRequest, sameEmail.Code)
	assert.Contains(t, sameEmail.Body.String(), "email already registered")
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "not-an-email", "password": "pw123456",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@x.com", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestRolesEndpointAsAdmin(t *testing.T) {
	env := newTestEnv(t)
	admin := seedUser(t, env.repo, nil, "root", "pw123456", true)
	adminRoleID, err := env.graph.RoleIDByName(context.Background(), "admin")
	require.NoError(t, err)
	require.NoError(t, env.graph.AssignRole(context.Background(), admin.ID, adminRoleID))

	login := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username_or_email": "root", "password": "pw123456",
	})
	require.Equal(t, http.StatusOK, login.Code)
	token := decodeBody[map[string]string](t, login)["access_token"]

	res := env.do(t, http.MethodGet, "/auth/roles", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	roles := decodeBody[[]struct {
		Name        string   `json:"name"`
		Permissions []string `json:"permissions"`
	}](t, res)
	require.Len(t, roles, 2)
	assert.Equal(t, "admin", roles[0].Name)
	assert.Contains(t, roles[0].Permissions, "roles.read")
	assert.Equal(t, []string{}, roles[1].Permissions)
}

func TestMeWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	res := env.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Bearer", res.Header().Get("WWW-Authenticate"))
}
