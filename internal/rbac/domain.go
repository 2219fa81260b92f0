package rbac

import "time"

// Permission is the atomic (resource, action) grant unit.
type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Pair returns the (resource, action) pair of the permission.
func (p Permission) Pair() Pair {
	return Pair{Resource: p.Resource, Action: p.Action}
}

// Pair identifies a cell of the permission matrix.
type Pair struct {
	Resource string
	Action   string
}

// Principal describes the authenticated actor as currently stored, including
// the role it holds right now.
type Principal struct {
	UserID   int64
	Email    string
	IsActive bool
	RoleID   *int64
	RoleName string
}

// HasRole reports whether the principal currently holds one of the given roles.
func (p Principal) HasRole(names ...string) bool {
	if p.RoleID == nil || p.RoleName == "" {
		return false
	}
	for _, name := range names {
		if name != "" && p.RoleName == name {
			return true
		}
	}
	return false
}

// CreatePermissionRequest is the payload for creating a permission. Name
// defaults to resource.action.
type CreatePermissionRequest struct {
	Name        string  `json:"name" validate:"omitempty,max=150"`
	Resource    string  `json:"resource" validate:"required,max=100"`
	Action      string  `json:"action" validate:"required,max=50"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// UpdatePermissionRequest is the payload for updating a permission.
type UpdatePermissionRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=150"`
	Resource    *string `json:"resource,omitempty" validate:"omitempty,min=1,max=100"`
	Action      *string `json:"action,omitempty" validate:"omitempty,min=1,max=50"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}
