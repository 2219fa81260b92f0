package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/accessdesk/accessdesk/internal/rbac"
	"github.com/accessdesk/accessdesk/internal/shared"
)

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
	CompareDummy(password string)
}

// MatrixResolver resolves the dense permission matrix of a role.
type MatrixResolver interface {
	ResolveForRole(ctx context.Context, roleID *int64) (rbac.Matrix, error)
}

// ServiceConfig groups Service collaborators.
type ServiceConfig struct {
	Repo     Repository
	Tokens   *TokenService
	Refresh  RefreshStore
	Hasher   PasswordHasher
	Resolver MatrixResolver
	Logger   *slog.Logger
	// DefaultRole is assigned on signup. Empty means signups get no role.
	DefaultRole string
}

// Service wraps authentication business rules.
type Service struct {
	repo        Repository
	tokens      *TokenService
	refresh     RefreshStore
	hasher      PasswordHasher
	resolver    MatrixResolver
	logger      *slog.Logger
	defaultRole string
}

// NewService constructs a new Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        cfg.Repo,
		tokens:      cfg.Tokens,
		refresh:     cfg.Refresh,
		hasher:      cfg.Hasher,
		resolver:    cfg.Resolver,
		logger:      logger,
		defaultRole: strings.TrimSpace(cfg.DefaultRole),
	}
}

// Login validates credentials and returns tokens together with the caller's
// resolved permission matrix.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	account, err := s.repo.FindByEmail(ctx, shared.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.hasher.CompareDummy(req.Password)
			return LoginResult{}, shared.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := s.hasher.Compare(account.PasswordHash, req.Password); err != nil {
		return LoginResult{}, err
	}
	if !account.IsActive {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	return s.issue(ctx, account)
}

// Refresh rotates a refresh token into a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	userID, err := s.refresh.Consume(ctx, refreshToken)
	if err != nil {
		return LoginResult{}, err
	}
	account, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return LoginResult{}, shared.ErrTokenInvalid
		}
		return LoginResult{}, err
	}
	if !account.IsActive {
		return LoginResult{}, shared.Unauthenticatedf("account is disabled")
	}
	return s.issue(ctx, account)
}

// Logout revokes one of the caller's refresh tokens. Access tokens expire on
// their own.
func (s *Service) Logout(ctx context.Context, userID int64, refreshToken string) error {
	if _, err := s.activeAccount(ctx, userID); err != nil {
		return err
	}
	return s.refresh.Revoke(ctx, userID, refreshToken)
}

// Signup creates an account with the configured default role. The role is
// looked up by name on every signup so renames and re-seeds are picked up.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (UserView, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return UserView{}, shared.Validation("invalid input", map[string]string{"name": "is required"})
	}
	var roleID *int64
	if s.defaultRole != "" {
		id, err := s.repo.RoleIDByName(ctx, s.defaultRole)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return UserView{}, shared.Validation(fmt.Sprintf("default role %q is not configured", s.defaultRole), nil)
			}
			return UserView{}, err
		}
		roleID = &id
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return UserView{}, err
	}
	account, err := s.repo.CreateUser(ctx, name, shared.NormalizeEmail(req.Email), hash, roleID)
	if err != nil {
		return UserView{}, err
	}
	return account.View(), nil
}

// ChangePassword replaces the caller's password after verifying the current
// one and revokes the caller's refresh tokens.
func (s *Service) ChangePassword(ctx context.Context, userID int64, req ChangePasswordRequest) error {
	account, err := s.activeAccount(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(account.PasswordHash, req.CurrentPassword); err != nil {
		return shared.Validation("current password is incorrect", map[string]string{"currentPassword": "does not match"})
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.refresh.RevokeUser(ctx, userID); err != nil {
		s.logger.Warn("revoke refresh tokens after password change", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	return nil
}

func (s *Service) activeAccount(ctx context.Context, userID int64) (Account, error) {
	account, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Account{}, shared.Unauthenticatedf("account no longer exists")
		}
		return Account{}, err
	}
	if !account.IsActive {
		return Account{}, shared.Unauthenticatedf("account is disabled")
	}
	return account, nil
}

// Profile returns the caller with role and freshly resolved permissions.
func (s *Service) Profile(ctx context.Context, userID int64) (Profile, error) {
	account, err := s.activeAccount(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	role, err := s.roleView(ctx, account)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: account.View(), Role: role}, nil
}

func (s *Service) issue(ctx context.Context, account Account) (LoginResult, error) {
	role, err := s.roleView(ctx, account)
	if err != nil {
		return LoginResult{}, err
	}
	token, expiresAt, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return LoginResult{}, err
	}
	refreshToken, _, err := s.refresh.Issue(ctx, account.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		User:         account.View(),
		Role:         role,
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) roleView(ctx context.Context, account Account) (RoleView, error) {
	matrix, err := s.resolver.ResolveForRole(ctx, account.RoleID)
	if err != nil {
		return RoleView{}, err
	}
	return RoleView{ID: account.RoleID, Name: account.RoleName, Permissions: matrix}, nil
}
