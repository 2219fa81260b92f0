package rbac

import (
	"context"
	"strings"

	"github.com/accessdesk/accessdesk/internal/shared"
)

// Service orchestrates permission management.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListPermissions returns a page of permissions.
func (s *Service) ListPermissions(ctx context.Context, req shared.PageRequest) (shared.Page[Permission], error) {
	perms, total, err := s.repo.ListPermissions(ctx, req)
	if err != nil {
		return shared.Page[Permission]{}, err
	}
	return shared.NewPage(perms, req, total), nil
}

// GetPermission fetches a permission by ID.
func (s *Service) GetPermission(ctx context.Context, id int64) (Permission, error) {
	return s.repo.GetPermission(ctx, id)
}

// CreatePermission inserts a new permission. Duplicate names surface as a
// conflict from the storage constraint.
func (s *Service) CreatePermission(ctx context.Context, req CreatePermissionRequest) (Permission, error) {
	p := Permission{
		Name:        strings.TrimSpace(req.Name),
		Resource:    shared.NormalizeKey(req.Resource),
		Action:      shared.NormalizeKey(req.Action),
		Description: trimOptional(req.Description),
	}
	if err := validatePair(p.Resource, p.Action); err != nil {
		return Permission{}, err
	}
	if p.Name == "" {
		p.Name = shared.PermissionName(p.Resource, p.Action)
	}
	return s.repo.CreatePermission(ctx, p)
}

// UpdatePermission applies changes to an existing permission. When the name
// followed the resource.action convention and is not set explicitly, it is
// re-derived from the new pair.
func (s *Service) UpdatePermission(ctx context.Context, id int64, req UpdatePermissionRequest) (Permission, error) {
	existing, err := s.repo.GetPermission(ctx, id)
	if err != nil {
		return Permission{}, err
	}
	conventional := existing.Name == shared.PermissionName(existing.Resource, existing.Action)

	updated := existing
	if req.Resource != nil {
		updated.Resource = shared.NormalizeKey(*req.Resource)
	}
	if req.Action != nil {
		updated.Action = shared.NormalizeKey(*req.Action)
	}
	if err := validatePair(updated.Resource, updated.Action); err != nil {
		return Permission{}, err
	}
	switch {
	case req.Name != nil:
		updated.Name = strings.TrimSpace(*req.Name)
		if updated.Name == "" {
			return Permission{}, shared.Validation("invalid input", map[string]string{"name": "is required"})
		}
	case conventional:
		updated.Name = shared.PermissionName(updated.Resource, updated.Action)
	}
	if req.Description != nil {
		updated.Description = trimOptional(req.Description)
	}
	return s.repo.UpdatePermission(ctx, updated)
}

// DeletePermission removes a permission and, by cascade, every grant of it.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	return s.repo.DeletePermission(ctx, id)
}

func validatePair(resource, action string) error {
	fields := map[string]string{}
	if resource == "" {
		fields["resource"] = "is required"
	} else if strings.ContainsAny(resource, ". ") {
		fields["resource"] = "must not contain dots or spaces"
	}
	if action == "" {
		fields["action"] = "is required"
	} else if strings.ContainsAny(action, ". ") {
		fields["action"] = "must not contain dots or spaces"
	}
	if len(fields) > 0 {
		return shared.Validation("invalid input", fields)
	}
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
