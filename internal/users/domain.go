package users

import "time"

// RoleSummary is the role a user currently holds.
type RoleSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is an account as exposed by the API. The password hash never leaves
// the repository.
type User struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	IsActive  bool         `json:"isActive"`
	Role      *RoleSummary `json:"role"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// RoleID returns the id of the held role, or nil.
func (u User) RoleID() *int64 {
	if u.Role == nil {
		return nil
	}
	id := u.Role.ID
	return &id
}

// NewUser is a fully prepared row for insertion.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	RoleID       *int64
	IsActive     bool
}

// UserChanges lists the columns to update; nil fields are left unchanged.
type UserChanges struct {
	Name         *string
	Email        *string
	PasswordHash *string
	RoleID       *int64
	ClearRole    bool
	IsActive     *bool
}

// CreateUserRequest is the payload for administrative user creation.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	RoleID   *int64 `json:"roleId,omitempty" validate:"omitempty,gt=0"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// UpdateUserRequest is the payload for updating a user. A roleId of 0 removes
// the user's role.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
	RoleID   *int64  `json:"roleId,omitempty" validate:"omitempty,gte=0"`
	IsActive *bool   `json:"isActive,omitempty"`
}
