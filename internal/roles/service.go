package roles

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/accessdesk/accessdesk/internal/rbac"
	"github.com/accessdesk/accessdesk/internal/shared"
)

// MatrixResolver resolves the dense permission matrix of a role.
type MatrixResolver interface {
	ResolveForRole(ctx context.Context, roleID *int64) (rbac.Matrix, error)
}

// Service handles role business logic.
type Service struct {
	repo           Repository
	resolver       MatrixResolver
	superAdminRole string
}

// NewService builds Service instance. The role named superAdminRole cannot be
// renamed or deleted through the service.
func NewService(repo Repository, resolver MatrixResolver, superAdminRole string) *Service {
	return &Service{repo: repo, resolver: resolver, superAdminRole: superAdminRole}
}

// ListRoles returns a page of roles.
func (s *Service) ListRoles(ctx context.Context, req shared.PageRequest) (shared.Page[Role], error) {
	roles, total, err := s.repo.ListRoles(ctx, req)
	if err != nil {
		return shared.Page[Role]{}, err
	}
	return shared.NewPage(roles, req, total), nil
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a role with no permissions.
func (s *Service) CreateRole(ctx context.Context, req CreateRoleRequest) (Role, error) {
	name, err := roleName(req.Name)
	if err != nil {
		return Role{}, err
	}
	return s.repo.CreateRole(ctx, name)
}

// UpdateRole renames a role.
func (s *Service) UpdateRole(ctx context.Context, id int64, req UpdateRoleRequest) (Role, error) {
	name, err := roleName(req.Name)
	if err != nil {
		return Role{}, err
	}
	existing, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if s.isPrivileged(existing) && name != existing.Name {
		return Role{}, shared.Validation("the privileged role cannot be renamed", map[string]string{"name": "is fixed"})
	}
	return s.repo.UpdateRole(ctx, id, name)
}

// DeleteRole removes a role and, by cascade, its grants.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	existing, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if s.isPrivileged(existing) {
		return shared.Validation("the privileged role cannot be deleted", nil)
	}
	return s.repo.DeleteRole(ctx, id)
}

// RolePermissions returns the role's grants together with its dense matrix.
func (s *Service) RolePermissions(ctx context.Context, roleID int64) (RolePermissions, error) {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return RolePermissions{}, err
	}
	perms, err := s.repo.ListRolePermissions(ctx, roleID)
	if err != nil {
		return RolePermissions{}, err
	}
	if perms == nil {
		perms = []rbac.Permission{}
	}
	matrix, err := s.resolver.ResolveForRole(ctx, &role.ID)
	if err != nil {
		return RolePermissions{}, err
	}
	return RolePermissions{Role: role, Permissions: perms, Matrix: matrix}, nil
}

// GrantPermissions links permissions to a role in one transaction. Already
// granted permissions are left as they are; unknown permission ids fail the
// whole request.
func (s *Service) GrantPermissions(ctx context.Context, roleID int64, req PermissionIDsRequest) (RolePermissions, error) {
	ids := uniqueIDs(req.PermissionIDs)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockRole(ctx, roleID); err != nil {
			return err
		}
		found, err := tx.ExistingPermissionIDs(ctx, ids)
		if err != nil {
			return err
		}
		var missing []string
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				missing = append(missing, strconv.FormatInt(id, 10))
			}
		}
		if len(missing) > 0 {
			return shared.NotFoundf("permissions not found: %s", strings.Join(missing, ", "))
		}
		return tx.InsertGrants(ctx, roleID, ids)
	})
	if err != nil {
		return RolePermissions{}, err
	}
	return s.RolePermissions(ctx, roleID)
}

// RevokePermissions unlinks permissions from a role in one transaction.
// Revoking a permission that is not granted, or does not exist, is a no-op.
func (s *Service) RevokePermissions(ctx context.Context, roleID int64, req PermissionIDsRequest) (RolePermissions, error) {
	ids := uniqueIDs(req.PermissionIDs)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockRole(ctx, roleID); err != nil {
			return err
		}
		return tx.DeleteGrants(ctx, roleID, ids)
	})
	if err != nil {
		return RolePermissions{}, err
	}
	return s.RolePermissions(ctx, roleID)
}

func (s *Service) isPrivileged(role Role) bool {
	return s.superAdminRole != "" && role.Name == s.superAdminRole
}

func roleName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", shared.Validation("invalid input", map[string]string{"name": "is required"})
	}
	return name, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
