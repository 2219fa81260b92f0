package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessdesk/accessdesk/internal/shared"
)

func TestCreatePermissionDerivesName(t *testing.T) {
	svc := NewService(newMockRepository())

	perm, err := svc.CreatePermission(context.Background(), CreatePermissionRequest{
		Resource:    " Report ",
		Action:      "Export",
		Description: strPtr("  "),
	})
	require.NoError(t, err)
	assert.Equal(t, "report.export", perm.Name)
	assert.Equal(t, "report", perm.Resource)
	assert.Equal(t, "export", perm.Action)
	assert.Nil(t, perm.Description)
}

func TestCreatePermissionRejectsDuplicateName(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	_, err := svc.CreatePermission(ctx, CreatePermissionRequest{Resource: "user", Action: "read"})
	require.NoError(t, err)
	_, err = svc.CreatePermission(ctx, CreatePermissionRequest{Resource: "user", Action: "read"})
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestCreatePermissionValidatesPair(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.CreatePermission(context.Background(), CreatePermissionRequest{Resource: "user.admin", Action: " "})
	require.ErrorIs(t, err, shared.ErrValidation)
	fields := shared.FieldsOf(err)
	assert.Contains(t, fields, "resource")
	assert.Contains(t, fields, "action")
}

func TestUpdatePermissionRederivesConventionalName(t *testing.T) {
	repo := newMockRepository()
	perm := repo.addPermission("user", "read")
	svc := NewService(repo)

	updated, err := svc.UpdatePermission(context.Background(), perm.ID, UpdatePermissionRequest{Action: strPtr("list")})
	require.NoError(t, err)
	assert.Equal(t, "user.list", updated.Name)
}

func TestUpdatePermissionKeepsCustomName(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()
	perm, err := svc.CreatePermission(ctx, CreatePermissionRequest{Name: "Read users", Resource: "user", Action: "read"})
	require.NoError(t, err)

	updated, err := svc.UpdatePermission(ctx, perm.ID, UpdatePermissionRequest{Action: strPtr("list")})
	require.NoError(t, err)
	assert.Equal(t, "Read users", updated.Name)
	assert.Equal(t, "list", updated.Action)

	_, err = svc.UpdatePermission(ctx, perm.ID, UpdatePermissionRequest{Name: strPtr("   ")})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateAndDeleteMissingPermission(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	_, err := svc.UpdatePermission(ctx, 404, UpdatePermissionRequest{Action: strPtr("read")})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, svc.DeletePermission(ctx, 404), shared.ErrNotFound)
}

func TestDeletePermissionDropsGrants(t *testing.T) {
	repo := newMockRepository()
	perm := repo.addPermission("user", "read")
	repo.grant(1, perm.ID)
	svc := NewService(repo)

	require.NoError(t, svc.DeletePermission(context.Background(), perm.ID))
	m, err := NewResolver(repo).ResolveForRole(context.Background(), int64Ptr(1))
	require.NoError(t, err)
	assert.False(t, m.Allows("user", "read"))
	assert.Equal(t, 0, m.Size())
}

func TestListPermissionsPaginates(t *testing.T) {
	repo := newMockRepository()
	for _, scope := range shared.CoreScopes() {
		repo.addPermission(scope.Resource, scope.Action)
	}
	svc := NewService(repo)

	page, err := svc.ListPermissions(context.Background(), shared.NewPageRequest(2, 5, ""))
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 12, page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.TotalPages)

	page, err = svc.ListPermissions(context.Background(), shared.NewPageRequest(1, 10, "nothing-matches"))
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}
