package rbac

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/accessdesk/accessdesk/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	mu sync.Mutex

	permissions map[int64]Permission
	nextPermID  int64
	grants      map[int64]map[int64]struct{}
	principals  map[int64]Principal

	// Error injection
	universeErr  error
	grantsErr    error
	principalErr error
	// reverse flips the order rows are returned in
	reverse bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		permissions: make(map[int64]Permission),
		nextPermID:  1,
		grants:      make(map[int64]map[int64]struct{}),
		principals:  make(map[int64]Principal),
	}
}

func (m *mockRepository) addPermission(resource, action string) Permission {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := Permission{
		ID:        m.nextPermID,
		Name:      shared.PermissionName(resource, action),
		Resource:  resource,
		Action:    action,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.permissions[p.ID] = p
	m.nextPermID++
	return p
}

func (m *mockRepository) grant(roleID int64, permIDs ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.grants[roleID]
	if !ok {
		set = make(map[int64]struct{})
		m.grants[roleID] = set
	}
	for _, id := range permIDs {
		set[id] = struct{}{}
	}
}

func (m *mockRepository) sortedPermissions() []Permission {
	perms := make([]Permission, 0, len(m.permissions))
	for _, p := range m.permissions {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool {
		if m.reverse {
			return perms[i].ID > perms[j].ID
		}
		return perms[i].ID < perms[j].ID
	})
	return perms
}

func (m *mockRepository) PermissionUniverse(ctx context.Context) ([]Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.universeErr != nil {
		return nil, m.universeErr
	}
	seen := map[Pair]struct{}{}
	var pairs []Pair
	for _, p := range m.sortedPermissions() {
		if _, ok := seen[p.Pair()]; ok {
			continue
		}
		seen[p.Pair()] = struct{}{}
		pairs = append(pairs, p.Pair())
	}
	return pairs, nil
}

func (m *mockRepository) RolePermissionPairs(ctx context.Context, roleID int64) ([]Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grantsErr != nil {
		return nil, m.grantsErr
	}
	var pairs []Pair
	for _, p := range m.sortedPermissions() {
		if _, ok := m.grants[roleID][p.ID]; ok {
			pairs = append(pairs, p.Pair())
		}
	}
	return pairs, nil
}

func (m *mockRepository) LoadPrincipal(ctx context.Context, userID int64) (Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.principalErr != nil {
		return Principal{}, m.principalErr
	}
	p, ok := m.principals[userID]
	if !ok {
		return Principal{}, shared.NotFoundf("user %d not found", userID)
	}
	return p, nil
}

func (m *mockRepository) ListPermissions(ctx context.Context, req shared.PageRequest) ([]Permission, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Permission
	for _, p := range m.sortedPermissions() {
		if req.Search == "" || strings.Contains(p.Name, req.Search) {
			matched = append(matched, p)
		}
	}
	total := len(matched)
	start := req.Offset()
	if start > total {
		start = total
	}
	end := start + req.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *mockRepository) GetPermission(ctx context.Context, id int64) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.permissions[id]
	if !ok {
		return Permission{}, shared.NotFoundf("permission %d not found", id)
	}
	return p, nil
}

func (m *mockRepository) CreatePermission(ctx context.Context, p Permission) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.permissions {
		if existing.Name == p.Name {
			return Permission{}, shared.Conflictf("permission %q already exists", p.Name)
		}
	}
	p.ID = m.nextPermID
	m.nextPermID++
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.permissions[p.ID] = p
	return p, nil
}

func (m *mockRepository) UpdatePermission(ctx context.Context, p Permission) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.permissions[p.ID]; !ok {
		return Permission{}, shared.NotFoundf("permission %d not found", p.ID)
	}
	for _, existing := range m.permissions {
		if existing.ID != p.ID && existing.Name == p.Name {
			return Permission{}, shared.Conflictf("permission %q already exists", p.Name)
		}
	}
	p.UpdatedAt = time.Now()
	m.permissions[p.ID] = p
	return p, nil
}

func (m *mockRepository) DeletePermission(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.permissions[id]; !ok {
		return shared.NotFoundf("permission %d not found", id)
	}
	delete(m.permissions, id)
	for _, set := range m.grants {
		delete(set, id)
	}
	return nil
}

var _ Repository = (*mockRepository)(nil)

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
