package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse/gatehouse/internal/platform/db"
	"github.com/gatehouse/gatehouse/internal/shared"
)

// Repository defines persistence operations for roles and permissions.
type Repository interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	EnsureRole(ctx context.Context, name string) (Role, error)
	CreateRole(ctx context.Context, name string, permissionIDs []int64) (Role, error)
	UpdateRole(ctx context.Context, id int64, name string, permissionIDs []int64) (Role, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	CountPermissions(ctx context.Context, ids []int64) (int, error)
	UpsertPermission(ctx context.Context, perm Permission) (Permission, error)
	UserExists(ctx context.Context, userID int64) (bool, error)
	AssignRoleToUser(ctx context.Context, userID, roleID int64) error
	IsRoleAssigned(ctx context.Context, userID, roleID int64) (bool, error)
	RolesForUser(ctx context.Context, userID int64) ([]Role, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListRoles returns all roles hydrated with their permissions.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachPermissions(ctx, roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRole fetches a role by id with its permissions.
func (r *PGRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	roles := []Role{role}
	if err := r.attachPermissions(ctx, roles); err != nil {
		return Role{}, err
	}
	return roles[0], nil
}

// EnsureRole creates the named role if absent and returns it either way.
// The upsert makes concurrent first-registrations safe across processes.
func (r *PGRepository) EnsureRole(ctx context.Context, name string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name, created_at, updated_at`, name).
		Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return Role{}, err
	}
	roles := []Role{role}
	if err := r.attachPermissions(ctx, roles); err != nil {
		return Role{}, err
	}
	return roles[0], nil
}

// CreateRole inserts a role and its permission links in one transaction.
func (r *PGRepository) CreateRole(ctx context.Context, name string, permissionIDs []int64) (Role, error) {
	var role Role
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO roles (name) VALUES ($1) RETURNING id, name, created_at, updated_at`, name).
			Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
			if isUniqueViolation(err) {
				return shared.ErrInvalidArgument
			}
			return err
		}
		for _, permID := range permissionIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				role.ID, permID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Role{}, err
	}
	return r.GetRole(ctx, role.ID)
}

// UpdateRole renames a role and replaces its permission links with the new
// set. The replace is a diff so unchanged links keep their rows.
func (r *PGRepository) UpdateRole(ctx context.Context, id int64, name string, permissionIDs []int64) (Role, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE roles SET name = $2, updated_at = now() WHERE id = $1`, id, name)
		if err != nil {
			if isUniqueViolation(err) {
				return shared.ErrInvalidArgument
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}

		rows, err := tx.Query(ctx, `SELECT permission_id FROM role_permissions WHERE role_id = $1`, id)
		if err != nil {
			return err
		}
		existing := make(map[int64]struct{})
		for rows.Next() {
			var permID int64
			if err := rows.Scan(&permID); err != nil {
				rows.Close()
				return err
			}
			existing[permID] = struct{}{}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		keep := make(map[int64]struct{}, len(permissionIDs))
		for _, permID := range permissionIDs {
			keep[permID] = struct{}{}
			if _, ok := existing[permID]; !ok {
				if _, err := tx.Exec(ctx,
					`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
					id, permID); err != nil {
					return err
				}
			}
		}
		for permID := range existing {
			if _, ok := keep[permID]; !ok {
				if _, err := tx.Exec(ctx,
					`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
					id, permID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return Role{}, err
	}
	return r.GetRole(ctx, id)
}

// ListPermissions returns the full permission catalog.
func (r *PGRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, route_name, name, category FROM permissions ORDER BY category, route_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// CountPermissions reports how many of the given ids exist.
func (r *PGRepository) CountPermissions(ctx context.Context, ids []int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM permissions WHERE id = ANY($1)`, ids).Scan(&count)
	return count, err
}

// UpsertPermission inserts the permission or refreshes its display metadata,
// keyed by route name. Used by the startup seeder only.
func (r *PGRepository) UpsertPermission(ctx context.Context, perm Permission) (Permission, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO permissions (route_name, name, category) VALUES ($1, $2, $3)
		 ON CONFLICT (route_name) DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category
		 RETURNING id, route_name, name, category`,
		perm.RouteName, perm.Name, perm.Category).
		Scan(&perm.ID, &perm.RouteName, &perm.Name, &perm.Category)
	return perm, err
}

// UserExists reports whether a user row exists.
func (r *PGRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

// AssignRoleToUser links a role to a user. The composite primary key turns a
// concurrent double-assign into a unique violation, reported as
// shared.ErrAlreadyAssigned so at most one link persists.
func (r *PGRepository) AssignRoleToUser(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, userID, roleID)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyAssigned
		}
		if isForeignKeyViolation(err) {
			return shared.ErrNotFound
		}
		return err
	}
	return nil
}

// IsRoleAssigned reports whether the role is already linked to the user.
func (r *PGRepository) IsRoleAssigned(ctx context.Context, userID, roleID int64) (bool, error) {
	var assigned bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role_id = $2)`,
		userID, roleID).Scan(&assigned)
	return assigned, err
}

// RolesForUser returns the user's roles hydrated with permissions, the input
// to effective-permission resolution at token issuance.
func (r *PGRepository) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name, r.created_at, r.updated_at
		 FROM roles r JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = $1 ORDER BY r.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachPermissions(ctx, roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *PGRepository) attachPermissions(ctx context.Context, roles []Role) error {
	if len(roles) == 0 {
		return nil
	}
	ids := make([]int64, len(roles))
	index := make(map[int64]int, len(roles))
	for i, role := range roles {
		ids[i] = role.ID
		index[role.ID] = i
	}
	rows, err := r.pool.Query(ctx,
		`SELECT rp.role_id, p.id, p.route_name, p.name, p.category
		 FROM role_permissions rp JOIN permissions p ON p.id = rp.permission_id
		 WHERE rp.role_id = ANY($1) ORDER BY p.route_name`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var roleID int64
		var perm Permission
		if err := rows.Scan(&roleID, &perm.ID, &perm.RouteName, &perm.Name, &perm.Category); err != nil {
			return err
		}
		if i, ok := index[roleID]; ok {
			roles[i].Permissions = append(roles[i].Permissions, perm)
		}
	}
	return rows.Err()
}

func scanPermissions(rows pgx.Rows) ([]Permission, error) {
	var perms []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.RouteName, &perm.Name, &perm.Category); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

var _ Repository = (*PGRepository)(nil)
