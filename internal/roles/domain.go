package roles

import (
	"time"

	"github.com/accessdesk/accessdesk/internal/rbac"
)

// Role is a named bundle of permissions assignable to users.
type Role struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RolePermissions is a role with its granted permissions and resolved matrix.
type RolePermissions struct {
	Role        Role              `json:"role"`
	Permissions []rbac.Permission `json:"permissions"`
	Matrix      rbac.Matrix       `json:"matrix"`
}

// CreateRoleRequest is the payload for creating a role.
type CreateRoleRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// UpdateRoleRequest is the payload for renaming a role.
type UpdateRoleRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// PermissionIDsRequest carries a bulk grant or revoke.
type PermissionIDsRequest struct {
	PermissionIDs []int64 `json:"permissionIds" validate:"required,min=1,dive,gt=0"`
}
