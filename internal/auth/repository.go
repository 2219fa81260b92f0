package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accessdesk/accessdesk/internal/platform/db"
	"github.com/accessdesk/accessdesk/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id int64) (Account, error)
	CreateUser(ctx context.Context, name, email, passwordHash string, roleID *int64) (Account, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	RoleIDByName(ctx context.Context, name string) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

const accountSelect = `
	SELECT u.id, u.name, u.email, u.password_hash, u.is_active, u.role_id, r.name, u.created_at, u.updated_at
	FROM users u
	LEFT JOIN roles r ON r.id = u.role_id`

// FindByEmail fetches an account by normalised email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	return r.findOne(ctx, accountSelect+` WHERE u.email = $1`, email)
}

// FindByID fetches an account by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (Account, error) {
	return r.findOne(ctx, accountSelect+` WHERE u.id = $1`, id)
}

func (r *PGRepository) findOne(ctx context.Context, query string, arg any) (Account, error) {
	var (
		a        Account
		roleName *string
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.IsActive, &a.RoleID, &roleName, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.NotFoundf("account not found")
		}
		return Account{}, err
	}
	if roleName != nil {
		a.RoleName = *roleName
	}
	return a, nil
}

// CreateUser inserts an active account. Concurrent inserts with the same
// email resolve through the unique constraint: one wins, the rest conflict.
func (r *PGRepository) CreateUser(ctx context.Context, name, email, passwordHash string, roleID *int64) (Account, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role_id, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id`, name, email, passwordHash, roleID).Scan(&id)
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok && constraint == "users_email_key" {
			return Account{}, shared.Conflictf("email %q is already registered", email).WithCause(err)
		}
		if _, ok := db.ForeignKeyViolation(err); ok {
			return Account{}, shared.Validation("default role no longer exists", nil).WithCause(err)
		}
		return Account{}, err
	}
	return r.FindByID(ctx, id)
}

// UpdatePassword replaces the stored hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("account not found")
	}
	return nil
}

// RoleIDByName resolves a role name to its id.
func (r *PGRepository) RoleIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	if err := r.db.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, name).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.NotFoundf("role %q not found", name)
		}
		return 0, err
	}
	return id, nil
}

var _ Repository = (*PGRepository)(nil)
