package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUniverse(repo *mockRepository) map[string]Permission {
	perms := map[string]Permission{}
	for _, p := range []Pair{
		{"user", "read"}, {"user", "create"}, {"user", "update"},
		{"role", "read"}, {"role", "delete"},
		{"permission", "read"},
	} {
		perm := repo.addPermission(p.Resource, p.Action)
		perms[perm.Name] = perm
	}
	return perms
}

func TestResolveForRoleOverlaysGrants(t *testing.T) {
	repo := newMockRepository()
	perms := seedUniverse(repo)
	repo.grant(7, perms["user.read"].ID, perms["role.read"].ID)

	m, err := NewResolver(repo).ResolveForRole(context.Background(), int64Ptr(7))
	require.NoError(t, err)

	assert.Equal(t, 6, m.Size())
	assert.True(t, m.Allows("user", "read"))
	assert.True(t, m.Allows("role", "read"))
	assert.False(t, m.Allows("user", "create"))
	assert.False(t, m.Allows("permission", "read"))
	_, present := m["role"]["delete"]
	assert.True(t, present)
}

func TestResolveForRoleNilRoleAllFalse(t *testing.T) {
	repo := newMockRepository()
	perms := seedUniverse(repo)
	repo.grant(1, perms["user.read"].ID)
	repo.grantsErr = errors.New("must not be queried")

	m, err := NewResolver(repo).ResolveForRole(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 6, m.Size())
	assert.Empty(t, m.Granted())
}

func TestResolveForRoleWithoutGrants(t *testing.T) {
	repo := newMockRepository()
	seedUniverse(repo)

	m, err := NewResolver(repo).ResolveForRole(context.Background(), int64Ptr(99))
	require.NoError(t, err)
	assert.Equal(t, 6, m.Size())
	assert.Empty(t, m.Granted())
}

func TestResolveForRoleOrderIndependent(t *testing.T) {
	repo := newMockRepository()
	perms := seedUniverse(repo)
	repo.grant(3, perms["user.update"].ID, perms["permission.read"].ID)

	resolver := NewResolver(repo)
	forward, err := resolver.ResolveForRole(context.Background(), int64Ptr(3))
	require.NoError(t, err)

	repo.reverse = true
	backward, err := resolver.ResolveForRole(context.Background(), int64Ptr(3))
	require.NoError(t, err)

	assert.Equal(t, forward, backward)
}

func TestResolveForRoleEmptyUniverse(t *testing.T) {
	m, err := NewResolver(newMockRepository()).ResolveForRole(context.Background(), int64Ptr(1))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Size())
	assert.False(t, m.Allows("user", "read"))
}

func TestResolveForRolePropagatesErrors(t *testing.T) {
	repo := newMockRepository()
	seedUniverse(repo)
	repo.universeErr = errors.New("connection reset")

	_, err := NewResolver(repo).ResolveForRole(context.Background(), int64Ptr(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission universe")

	repo.universeErr = nil
	repo.grantsErr = errors.New("timeout")
	_, err = NewResolver(repo).ResolveForRole(context.Background(), int64Ptr(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "role 1 permissions")
}

func BenchmarkResolveForRole(b *testing.B) {
	repo := newMockRepository()
	roleID := int64(1)
	for r := 0; r < 20; r++ {
		for _, action := range []string{"create", "read", "update", "delete"} {
			p := repo.addPermission("resource"+itoa(int64(r)), action)
			if r%2 == 0 {
				repo.grant(roleID, p.ID)
			}
		}
	}
	resolver := NewResolver(repo)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := resolver.ResolveForRole(ctx, &roleID); err != nil {
			b.Fatal(err)
		}
	}
}
