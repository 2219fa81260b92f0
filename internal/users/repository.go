package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accessdesk/accessdesk/internal/platform/db"
	"github.com/accessdesk/accessdesk/internal/shared"
)

// Repository defines persistence for user accounts.
type Repository interface {
	ListUsers(ctx context.Context, req shared.PageRequest) ([]User, int, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, u NewUser) (User, error)
	UpdateUser(ctx context.Context, id int64, changes UserChanges) (User, error)
	DeleteUser(ctx context.Context, id int64) error
	RoleName(ctx context.Context, roleID int64) (string, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

const userSelect = `
	SELECT u.id, u.name, u.email, u.is_active, u.created_at, u.updated_at, r.id, r.name
	FROM users u
	LEFT JOIN roles r ON r.id = u.role_id`

// ListUsers returns a page of users ordered by id.
func (r *PGRepository) ListUsers(ctx context.Context, req shared.PageRequest) ([]User, int, error) {
	where := ""
	args := []any{}
	if req.Search != "" {
		where = `WHERE u.name ILIKE $1 ESCAPE '\' OR u.email ILIKE $1 ESCAPE '\'`
		args = append(args, req.SearchPattern())
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users u `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`%s %s ORDER BY u.id LIMIT $%d OFFSET $%d`, userSelect, where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, req.Limit, req.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// GetUser fetches a user with its role.
func (r *PGRepository) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, userSelect+` WHERE u.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.NotFoundf("user %d not found", id)
		}
		return User{}, err
	}
	return u, nil
}

// CreateUser inserts a user relying on the unique email constraint.
func (r *PGRepository) CreateUser(ctx context.Context, nu NewUser) (User, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role_id, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`, nu.Name, nu.Email, nu.PasswordHash, nu.RoleID, nu.IsActive).Scan(&id)
	if err != nil {
		return User{}, translateUserError(err, nu.Email)
	}
	return r.GetUser(ctx, id)
}

// UpdateUser applies the non-nil changes.
func (r *PGRepository) UpdateUser(ctx context.Context, id int64, c UserChanges) (User, error) {
	sets := []string{}
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if c.Name != nil {
		add("name", *c.Name)
	}
	if c.Email != nil {
		add("email", *c.Email)
	}
	if c.PasswordHash != nil {
		add("password_hash", *c.PasswordHash)
	}
	switch {
	case c.ClearRole:
		sets = append(sets, "role_id = NULL")
	case c.RoleID != nil:
		add("role_id", *c.RoleID)
	}
	if c.IsActive != nil {
		add("is_active", *c.IsActive)
	}
	if len(sets) == 0 {
		return r.GetUser(ctx, id)
	}
	sets = append(sets, "updated_at = NOW()")

	tag, err := r.db.Exec(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		email := ""
		if c.Email != nil {
			email = *c.Email
		}
		return User{}, translateUserError(err, email)
	}
	if tag.RowsAffected() == 0 {
		return User{}, shared.NotFoundf("user %d not found", id)
	}
	return r.GetUser(ctx, id)
}

// DeleteUser removes a user.
func (r *PGRepository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("user %d not found", id)
	}
	return nil
}

// RoleName returns the name of a role.
func (r *PGRepository) RoleName(ctx context.Context, roleID int64) (string, error) {
	var name string
	if err := r.db.QueryRow(ctx, `SELECT name FROM roles WHERE id = $1`, roleID).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.NotFoundf("role %d not found", roleID)
		}
		return "", err
	}
	return name, nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u        User
		roleID   *int64
		roleName *string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &roleID, &roleName); err != nil {
		return User{}, err
	}
	if roleID != nil && roleName != nil {
		u.Role = &RoleSummary{ID: *roleID, Name: *roleName}
	}
	return u, nil
}

func translateUserError(err error, email string) error {
	if constraint, ok := db.UniqueViolation(err); ok && constraint == "users_email_key" {
		return shared.Conflictf("email %q is already registered", email).WithCause(err)
	}
	if constraint, ok := db.ForeignKeyViolation(err); ok && constraint == "users_role_id_fkey" {
		return shared.NotFoundf("role not found").WithCause(err)
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
