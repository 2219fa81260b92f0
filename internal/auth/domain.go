package auth

import (
	"time"

	"github.com/accessdesk/accessdesk/internal/rbac"
)

// Account is a stored user including its credential.
type Account struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	IsActive     bool
	RoleID       *int64
	RoleName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserView is an account without its credential.
type UserView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// View strips the credential from the account.
func (a Account) View() UserView {
	return UserView{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// RoleView is the caller's role with its dense permission matrix. ID is null
// and the matrix all false for users without a role.
type RoleView struct {
	ID          *int64      `json:"id"`
	Name        string      `json:"name"`
	Permissions rbac.Matrix `json:"permissions"`
}

// Profile is the caller with role and permissions.
type Profile struct {
	User UserView `json:"user"`
	Role RoleView `json:"role"`
}

// LoginResult is returned by login and refresh.
type LoginResult struct {
	User         UserView  `json:"user"`
	Role         RoleView  `json:"role"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest is the signup payload. It never carries a role.
type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// ChangePasswordRequest is the change password payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

// RefreshRequest carries a refresh token for rotation or logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
