package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accessdesk/accessdesk/internal/platform/db"
	"github.com/accessdesk/accessdesk/internal/shared"
)

// Repository defines persistence for permissions, role grants and principals.
type Repository interface {
	ResolverStore
	PrincipalStore
	ListPermissions(ctx context.Context, req shared.PageRequest) ([]Permission, int, error)
	GetPermission(ctx context.Context, id int64) (Permission, error)
	CreatePermission(ctx context.Context, p Permission) (Permission, error)
	UpdatePermission(ctx context.Context, p Permission) (Permission, error)
	DeletePermission(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

const permissionColumns = `id, name, resource, action, description, created_at, updated_at`

// PermissionUniverse returns every distinct (resource, action) pair defined.
func (r *PGRepository) PermissionUniverse(ctx context.Context) ([]Pair, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT resource, action FROM permissions`)
	if err != nil {
		return nil, err
	}
	return scanPairs(rows)
}

// RolePermissionPairs returns the pairs granted to a role.
func (r *PGRepository) RolePermissionPairs(ctx context.Context, roleID int64) ([]Pair, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.resource, p.action
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1`, roleID)
	if err != nil {
		return nil, err
	}
	return scanPairs(rows)
}

func scanPairs(rows pgx.Rows) ([]Pair, error) {
	defer rows.Close()
	var pairs []Pair
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.Resource, &p.Action); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// LoadPrincipal loads the user's current active flag and role.
func (r *PGRepository) LoadPrincipal(ctx context.Context, userID int64) (Principal, error) {
	var (
		p        Principal
		roleName *string
	)
	err := r.db.QueryRow(ctx, `
		SELECT u.id, u.email, u.is_active, u.role_id, r.name
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1`, userID).Scan(&p.UserID, &p.Email, &p.IsActive, &p.RoleID, &roleName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, shared.NotFoundf("user %d not found", userID)
		}
		return Principal{}, err
	}
	if roleName != nil {
		p.RoleName = *roleName
	}
	return p, nil
}

// ListPermissions returns a page of permissions ordered by name.
func (r *PGRepository) ListPermissions(ctx context.Context, req shared.PageRequest) ([]Permission, int, error) {
	where := ""
	args := []any{}
	if req.Search != "" {
		where = `WHERE name ILIKE $1 ESCAPE '\' OR resource ILIKE $1 ESCAPE '\' OR action ILIKE $1 ESCAPE '\'`
		args = append(args, req.SearchPattern())
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM permissions `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM permissions %s ORDER BY name LIMIT $%d OFFSET $%d`,
		permissionColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, req.Limit, req.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, 0, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return perms, total, nil
}

// GetPermission fetches a permission by ID.
func (r *PGRepository) GetPermission(ctx context.Context, id int64) (Permission, error) {
	p, err := scanPermission(r.db.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.NotFoundf("permission %d not found", id)
		}
		return Permission{}, err
	}
	return p, nil
}

// CreatePermission inserts a permission relying on the unique name constraint.
func (r *PGRepository) CreatePermission(ctx context.Context, p Permission) (Permission, error) {
	created, err := scanPermission(r.db.QueryRow(ctx, `
		INSERT INTO permissions (name, resource, action, description)
		VALUES ($1, $2, $3, $4)
		RETURNING `+permissionColumns, p.Name, p.Resource, p.Action, p.Description))
	if err != nil {
		return Permission{}, translatePermissionError(err, p.Name)
	}
	return created, nil
}

// UpdatePermission updates a permission in place.
func (r *PGRepository) UpdatePermission(ctx context.Context, p Permission) (Permission, error) {
	updated, err := scanPermission(r.db.QueryRow(ctx, `
		UPDATE permissions
		SET name = $2, resource = $3, action = $4, description = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+permissionColumns, p.ID, p.Name, p.Resource, p.Action, p.Description))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.NotFoundf("permission %d not found", p.ID)
		}
		return Permission{}, translatePermissionError(err, p.Name)
	}
	return updated, nil
}

// DeletePermission removes a permission; role grants cascade.
func (r *PGRepository) DeletePermission(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("permission %d not found", id)
	}
	return nil
}

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	err := row.Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func translatePermissionError(err error, name string) error {
	if constraint, ok := db.UniqueViolation(err); ok && constraint == "permissions_name_key" {
		return shared.Conflictf("permission %q already exists", name).WithCause(err)
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
