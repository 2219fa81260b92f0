package users

import (
	"context"
	"strings"

	"github.com/accessdesk/accessdesk/internal/rbac"
	"github.com/accessdesk/accessdesk/internal/shared"
)

// PasswordHasher hashes credentials before they are stored.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Service handles user business logic.
type Service struct {
	repo           Repository
	hasher         PasswordHasher
	superAdminRole string
}

// NewService builds Service instance.
func NewService(repo Repository, hasher PasswordHasher, superAdminRole string) *Service {
	return &Service{repo: repo, hasher: hasher, superAdminRole: superAdminRole}
}

// ListUsers returns a page of users.
func (s *Service) ListUsers(ctx context.Context, req shared.PageRequest) (shared.Page[User], error) {
	users, total, err := s.repo.ListUsers(ctx, req)
	if err != nil {
		return shared.Page[User]{}, err
	}
	return shared.NewPage(users, req, total), nil
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// Create is the administrative creation path. Unlike signup it may set the
// role and active flag; assigning the privileged role requires the acting
// principal to hold it.
func (s *Service) Create(ctx context.Context, req CreateUserRequest) (User, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return User{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return User{}, shared.Validation("invalid input", map[string]string{"name": "is required"})
	}
	if req.RoleID != nil {
		if *req.RoleID <= 0 {
			return User{}, shared.Validation("invalid input", map[string]string{"roleId": "must be a positive integer"})
		}
		if err := s.authorizeRoleAssignment(ctx, actor, *req.RoleID); err != nil {
			return User{}, err
		}
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return User{}, err
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return s.repo.CreateUser(ctx, NewUser{
		Name:         name,
		Email:        shared.NormalizeEmail(req.Email),
		PasswordHash: hash,
		RoleID:       req.RoleID,
		IsActive:     active,
	})
}

// Update modifies a user. Accounts holding the privileged role, and the
// privileged role itself, can only be handled by a privileged principal.
func (s *Service) Update(ctx context.Context, id int64, req UpdateUserRequest) (User, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return User{}, err
	}
	target, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := s.authorizeTarget(actor, target); err != nil {
		return User{}, err
	}

	var changes UserChanges
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return User{}, shared.Validation("invalid input", map[string]string{"name": "is required"})
		}
		changes.Name = &name
	}
	if req.Email != nil {
		email := shared.NormalizeEmail(*req.Email)
		changes.Email = &email
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return User{}, err
		}
		changes.PasswordHash = &hash
	}
	if req.RoleID != nil {
		switch roleID := *req.RoleID; {
		case roleID < 0:
			return User{}, shared.Validation("invalid input", map[string]string{"roleId": "must not be negative"})
		case roleID == 0:
			if actor.UserID == id && target.Role != nil {
				return User{}, shared.Validation("you cannot remove your own role", map[string]string{"roleId": "cannot remove own role"})
			}
			changes.ClearRole = true
		default:
			if err := s.authorizeRoleAssignment(ctx, actor, roleID); err != nil {
				return User{}, err
			}
			changes.RoleID = &roleID
		}
	}
	if req.IsActive != nil {
		if actor.UserID == id && !*req.IsActive {
			return User{}, shared.Validation("you cannot deactivate your own account", map[string]string{"isActive": "cannot deactivate self"})
		}
		changes.IsActive = req.IsActive
	}
	return s.repo.UpdateUser(ctx, id, changes)
}

// Delete hard-deletes a user. Deleting oneself is rejected.
func (s *Service) Delete(ctx context.Context, id int64) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	if actor.UserID == id {
		return shared.Validation("you cannot delete your own account", nil)
	}
	target, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeTarget(actor, target); err != nil {
		return err
	}
	return s.repo.DeleteUser(ctx, id)
}

func (s *Service) authorizeRoleAssignment(ctx context.Context, actor rbac.Principal, roleID int64) error {
	name, err := s.repo.RoleName(ctx, roleID)
	if err != nil {
		return err
	}
	if name == s.superAdminRole && !actor.HasRole(s.superAdminRole) {
		return shared.Forbiddenf("only privileged users can assign the privileged role")
	}
	return nil
}

func (s *Service) authorizeTarget(actor rbac.Principal, target User) error {
	if target.Role != nil && target.Role.Name == s.superAdminRole && !actor.HasRole(s.superAdminRole) {
		return shared.Forbiddenf("only privileged users can modify privileged accounts")
	}
	return nil
}

func actorFrom(ctx context.Context) (rbac.Principal, error) {
	actor, ok := rbac.PrincipalFromContext(ctx)
	if !ok {
		return rbac.Principal{}, shared.Unauthenticatedf("authentication required")
	}
	return actor, nil
}
