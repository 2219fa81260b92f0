package users

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessdesk/accessdesk/internal/platform/httpx"
	"github.com/accessdesk/accessdesk/internal/rbac"
	"github.com/accessdesk/accessdesk/internal/shared"
)

type tokenTable map[string]shared.Identity

func (t tokenTable) Verify(token string) (shared.Identity, error) {
	id, ok := t[token]
	if !ok {
		return shared.Identity{}, errors.New("unknown token")
	}
	return id, nil
}

type principalTable map[int64]rbac.Principal

func (p principalTable) LoadPrincipal(_ context.Context, userID int64) (rbac.Principal, error) {
	principal, ok := p[userID]
	if !ok {
		return rbac.Principal{}, shared.NotFoundf("user %d not found", userID)
	}
	return principal, nil
}

// grantTable maps role id to its granted pairs; the universe is their union.
type grantTable map[int64][]rbac.Pair

func (g grantTable) PermissionUniverse(context.Context) ([]rbac.Pair, error) {
	var all []rbac.Pair
	for _, scope := range shared.CoreScopes() {
		all = append(all, rbac.Pair{Resource: scope.Resource, Action: scope.Action})
	}
	return all, nil
}

func (g grantTable) RolePermissionPairs(_ context.Context, roleID int64) ([]rbac.Pair, error) {
	return g[roleID], nil
}

func newUsersRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := newService()
	gate := rbac.Middleware{
		Tokens: tokenTable{"root": {UserID: 1}, "reader": {UserID: 2}, "nobody": {UserID: 3}, "editor": {UserID: 4}},
		Principals: principalTable{
			1: {UserID: 1, IsActive: true, RoleID: int64Ptr(1), RoleName: superAdmin},
			2: {UserID: 2, IsActive: true, RoleID: int64Ptr(2), RoleName: "USER"},
			3: {UserID: 3, IsActive: true},
			4: {UserID: 4, IsActive: true, RoleID: int64Ptr(3), RoleName: "MANAGER"},
		},
		Resolver: rbac.NewResolver(grantTable{
			2: {{Resource: shared.ResourceUser, Action: shared.ActionRead}},
			3: {{Resource: shared.ResourceUser, Action: shared.ActionRead}, {Resource: shared.ResourceUser, Action: shared.ActionUpdate}},
		}),
		Responder:      httpx.NewResponder(nil, false),
		SuperAdminRole: superAdmin,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc, gate.Responder, gate, superAdmin)

	r := chi.NewRouter()
	r.Route("/users", func(r chi.Router) {
		r.Use(gate.Authenticate)
		handler.MountRoutes(r)
	})
	return r
}

func send(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func envelopeCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Code
}

func TestCreateUserRequiresPrivilegedRole(t *testing.T) {
	h := newUsersRouter(t)
	body := `{"name":"Eve","email":"eve@example.com","password":"password123"}`

	rec := send(h, http.MethodPost, "/users", "reader", body)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, shared.CodeElevatedRoleRequired, envelopeCode(t, rec))

	rec = send(h, http.MethodPost, "/users", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = send(h, http.MethodPost, "/users", "root", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Contains(t, rec.Body.String(), `"email":"eve@example.com"`)
}

func TestCreateUserValidation(t *testing.T) {
	h := newUsersRouter(t)
	rec := send(h, http.MethodPost, "/users", "root", `{"name":"E","email":"not-an-email","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var env struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Contains(t, env.Errors, "email")
	assert.Contains(t, env.Errors, "password")
	assert.Contains(t, env.Errors, "name")
}

func TestListUsersFollowsMatrix(t *testing.T) {
	h := newUsersRouter(t)

	rec := send(h, http.MethodGet, "/users?page=1&limit=5", "reader", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = send(h, http.MethodGet, "/users", "nobody", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, shared.CodeForbidden, envelopeCode(t, rec))

	rec = send(h, http.MethodDelete, "/users/5", "reader", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteSelfRejected(t *testing.T) {
	h := newUsersRouter(t)
	rec := send(h, http.MethodPost, "/users", "root", `{"name":"Eve","email":"eve@example.com","password":"password123"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = send(h, http.MethodDelete, "/users/1", "root", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(h, http.MethodGet, "/users/"+strconv.Itoa(404), "root", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssigningPrivilegedRoleIsPlainForbidden(t *testing.T) {
	h := newUsersRouter(t)
	rec := send(h, http.MethodPost, "/users", "root", `{"name":"Eve","email":"eve@example.com","password":"password123","roleId":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var env struct {
		Data User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	rec = send(h, http.MethodPut, "/users/"+strconv.FormatInt(env.Data.ID, 10), "editor", `{"roleId":1}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, shared.CodeForbidden, envelopeCode(t, rec))

	rec = send(h, http.MethodPut, "/users/"+strconv.FormatInt(env.Data.ID, 10), "editor", `{"name":"Eve Adams"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
