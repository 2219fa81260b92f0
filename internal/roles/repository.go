package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accessdesk/accessdesk/internal/platform/db"
	"github.com/accessdesk/accessdesk/internal/rbac"
	"github.com/accessdesk/accessdesk/internal/shared"
)

// Repository defines persistence for roles and their grants.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListRoles(ctx context.Context, req shared.PageRequest) ([]Role, int, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name string) (Role, error)
	UpdateRole(ctx context.Context, id int64, name string) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
	ListRolePermissions(ctx context.Context, roleID int64) ([]rbac.Permission, error)
}

// TxRepository is the subset of operations bulk grant and revoke run inside
// one transaction.
type TxRepository interface {
	LockRole(ctx context.Context, id int64) (Role, error)
	ExistingPermissionIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error)
	InsertGrants(ctx context.Context, roleID int64, permissionIDs []int64) error
	DeleteGrants(ctx context.Context, roleID int64, permissionIDs []int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
	db   db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool, db: pool}
}

// WithTx runs fn inside a read committed transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("roles: repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{db: tx})
	})
}

// ListRoles returns a page of roles ordered by name.
func (r *PGRepository) ListRoles(ctx context.Context, req shared.PageRequest) ([]Role, int, error) {
	where := ""
	args := []any{}
	if req.Search != "" {
		where = `WHERE name ILIKE $1 ESCAPE '\'`
		args = append(args, req.SearchPattern())
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM roles `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT id, name, created_at, updated_at FROM roles %s ORDER BY name LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, req.Limit, req.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, 0, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

// GetRole fetches a role by ID.
func (r *PGRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	return getRole(ctx, r.db, id, false)
}

// CreateRole inserts a role relying on the unique name constraint.
func (r *PGRepository) CreateRole(ctx context.Context, name string) (Role, error) {
	role, err := scanRole(r.db.QueryRow(ctx, `
		INSERT INTO roles (name) VALUES ($1)
		RETURNING id, name, created_at, updated_at`, name))
	if err != nil {
		return Role{}, translateRoleError(err, name)
	}
	return role, nil
}

// UpdateRole renames a role.
func (r *PGRepository) UpdateRole(ctx context.Context, id int64, name string) (Role, error) {
	role, err := scanRole(r.db.QueryRow(ctx, `
		UPDATE roles SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, created_at, updated_at`, id, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.NotFoundf("role %d not found", id)
		}
		return Role{}, translateRoleError(err, name)
	}
	return role, nil
}

// DeleteRole removes a role. Roles still assigned to users are protected by
// the restricting foreign key on users.role_id.
func (r *PGRepository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		if constraint, ok := db.ForeignKeyViolation(err); ok && constraint == "users_role_id_fkey" {
			return shared.Conflictf("role %d is still assigned to users", id).WithCause(err)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("role %d not found", id)
	}
	return nil
}

// ListRolePermissions returns the permissions granted to a role ordered by name.
func (r *PGRepository) ListRolePermissions(ctx context.Context, roleID int64) ([]rbac.Permission, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.name, p.resource, p.action, p.description, p.created_at, p.updated_at
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.name`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []rbac.Permission
	for rows.Next() {
		var p rbac.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

type txRepo struct {
	db db.DBTX
}

// LockRole loads a role and holds a row lock until the transaction ends.
func (t *txRepo) LockRole(ctx context.Context, id int64) (Role, error) {
	return getRole(ctx, t.db, id, true)
}

func (t *txRepo) ExistingPermissionIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	rows, err := t.db.Query(ctx, `SELECT id FROM permissions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := make(map[int64]struct{}, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
	}
	return found, rows.Err()
}

// InsertGrants adds grants; pairs already present are left untouched.
func (t *txRepo) InsertGrants(ctx context.Context, roleID int64, permissionIDs []int64) error {
	_, err := t.db.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		SELECT $1, UNNEST($2::bigint[])
		ON CONFLICT (role_id, permission_id) DO NOTHING`, roleID, permissionIDs)
	if err != nil {
		if _, ok := db.ForeignKeyViolation(err); ok {
			return shared.NotFoundf("role or permission no longer exists").WithCause(err)
		}
		return err
	}
	return nil
}

func (t *txRepo) DeleteGrants(ctx context.Context, roleID int64, permissionIDs []int64) error {
	_, err := t.db.Exec(ctx, `
		DELETE FROM role_permissions
		WHERE role_id = $1 AND permission_id = ANY($2)`, roleID, permissionIDs)
	return err
}

func getRole(ctx context.Context, q db.DBTX, id int64, lock bool) (Role, error) {
	query := `SELECT id, name, created_at, updated_at FROM roles WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	role, err := scanRole(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.NotFoundf("role %d not found", id)
		}
		return Role{}, err
	}
	return role, nil
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

func translateRoleError(err error, name string) error {
	if constraint, ok := db.UniqueViolation(err); ok && constraint == "roles_name_key" {
		return shared.Conflictf("role %q already exists", name).WithCause(err)
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
