package roles

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/accessdesk/accessdesk/internal/rbac"
	"github.com/accessdesk/accessdesk/internal/shared"
)

// mockRepository keeps roles, permissions and grants in maps. It also serves
// as the resolver store so matrices reflect the same state.
type mockRepository struct {
	mu sync.Mutex

	roles       map[int64]Role
	nextRoleID  int64
	permissions map[int64]rbac.Permission
	nextPermID  int64
	grants      map[int64]map[int64]struct{}
	assigned    map[int64]bool

	txCount   int
	failGrant error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles:       make(map[int64]Role),
		nextRoleID:  1,
		permissions: make(map[int64]rbac.Permission),
		nextPermID:  1,
		grants:      make(map[int64]map[int64]struct{}),
		assigned:    make(map[int64]bool),
	}
}

func (m *mockRepository) addPermission(resource, action string) rbac.Permission {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := rbac.Permission{
		ID:       m.nextPermID,
		Name:     shared.PermissionName(resource, action),
		Resource: resource,
		Action:   action,
	}
	m.permissions[p.ID] = p
	m.nextPermID++
	return p
}

func (m *mockRepository) grantSet(roleID int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id := range m.grants[roleID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// WithTx stages writes on a copy of the grants and applies them only when fn succeeds.
func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	m.txCount++
	staged := make(map[int64]map[int64]struct{}, len(m.grants))
	for roleID, set := range m.grants {
		cp := make(map[int64]struct{}, len(set))
		for id := range set {
			cp[id] = struct{}{}
		}
		staged[roleID] = cp
	}
	m.mu.Unlock()

	tx := &mockTx{repo: m, grants: staged}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.mu.Lock()
	m.grants = staged
	m.mu.Unlock()
	return nil
}

func (m *mockRepository) ListRoles(ctx context.Context, req shared.PageRequest) ([]Role, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Role
	for _, r := range m.roles {
		if req.Search == "" || strings.Contains(strings.ToLower(r.Name), strings.ToLower(req.Search)) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	total := len(matched)
	start := min(req.Offset(), total)
	end := min(start+req.Limit, total)
	return matched[start:end], total, nil
}

func (m *mockRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return Role{}, shared.NotFoundf("role %d not found", id)
	}
	return r, nil
}

func (m *mockRepository) CreateRole(ctx context.Context, name string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == name {
			return Role{}, shared.Conflictf("role %q already exists", name)
		}
	}
	now := time.Now()
	r := Role{ID: m.nextRoleID, Name: name, CreatedAt: now, UpdatedAt: now}
	m.roles[r.ID] = r
	m.nextRoleID++
	return r, nil
}

func (m *mockRepository) UpdateRole(ctx context.Context, id int64, name string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return Role{}, shared.NotFoundf("role %d not found", id)
	}
	for _, other := range m.roles {
		if other.ID != id && other.Name == name {
			return Role{}, shared.Conflictf("role %q already exists", name)
		}
	}
	r.Name = name
	r.UpdatedAt = time.Now()
	m.roles[id] = r
	return r, nil
}

func (m *mockRepository) DeleteRole(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return shared.NotFoundf("role %d not found", id)
	}
	if m.assigned[id] {
		return shared.Conflictf("role %d is still assigned to users", id)
	}
	delete(m.roles, id)
	delete(m.grants, id)
	return nil
}

func (m *mockRepository) ListRolePermissions(ctx context.Context, roleID int64) ([]rbac.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var perms []rbac.Permission
	for id := range m.grants[roleID] {
		perms = append(perms, m.permissions[id])
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	return perms, nil
}

func (m *mockRepository) PermissionUniverse(ctx context.Context) ([]rbac.Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pairs := make([]rbac.Pair, 0, len(m.permissions))
	for _, p := range m.permissions {
		pairs = append(pairs, p.Pair())
	}
	return pairs, nil
}

func (m *mockRepository) RolePermissionPairs(ctx context.Context, roleID int64) ([]rbac.Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pairs []rbac.Pair
	for id := range m.grants[roleID] {
		pairs = append(pairs, m.permissions[id].Pair())
	}
	return pairs, nil
}

type mockTx struct {
	repo   *mockRepository
	grants map[int64]map[int64]struct{}
}

func (t *mockTx) LockRole(ctx context.Context, id int64) (Role, error) {
	return t.repo.GetRole(ctx, id)
}

func (t *mockTx) ExistingPermissionIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	found := map[int64]struct{}{}
	for _, id := range ids {
		if _, ok := t.repo.permissions[id]; ok {
			found[id] = struct{}{}
		}
	}
	return found, nil
}

func (t *mockTx) InsertGrants(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if t.repo.failGrant != nil {
		return t.repo.failGrant
	}
	set, ok := t.grants[roleID]
	if !ok {
		set = map[int64]struct{}{}
		t.grants[roleID] = set
	}
	for _, id := range permissionIDs {
		set[id] = struct{}{}
	}
	return nil
}

func (t *mockTx) DeleteGrants(ctx context.Context, roleID int64, permissionIDs []int64) error {
	for _, id := range permissionIDs {
		delete(t.grants[roleID], id)
	}
	return nil
}

var (
	_ Repository         = (*mockRepository)(nil)
	_ rbac.ResolverStore = (*mockRepository)(nil)
)
