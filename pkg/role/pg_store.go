package role

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lodgekit/lodgekit/pkg/pg"
)

// pgStore is the PostgreSQL-backed role store.
type pgStore struct {
	db pg.TxStarter
}

// NewPgStore creates a Store backed by the roles and role_permissions tables.
func NewPgStore(db pg.TxStarter) Store {
	return &pgStore{db: db}
}

const roleColumns = `id, tenant_id, name, display_name, description, is_system, is_default, hierarchy_level, created_at, updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var r Role
	err := row.Scan(&r.ID, &r.TenantID, &r.Name, &r.DisplayName, &r.Description, &r.System, &r.Default, &r.HierarchyLevel, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return r, nil
}

func (s *pgStore) CreateRole(ctx context.Context, r Role) (Role, error) {
	now := time.Now().UTC()
	row := s.db.QueryRow(ctx, `
		INSERT INTO roles (tenant_id, name, display_name, description, is_system, is_default, hierarchy_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING `+roleColumns,
		r.TenantID, r.Name, r.DisplayName, r.Description, r.System, r.Default, r.HierarchyLevel, now)

	created, err := scanRole(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return Role{}, ErrDuplicateName
		}
		return Role{}, err
	}
	return created, nil
}

func (s *pgStore) GetRole(ctx context.Context, id int64) (Role, error) {
	row := s.db.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	return scanRole(row)
}

func (s *pgStore) ListRoles(ctx context.Context, f Filter) ([]Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles`
	var args []any
	switch {
	case f.TenantID != nil && f.IncludeGlobal:
		query += ` WHERE tenant_id = $1 OR tenant_id IS NULL`
		args = append(args, *f.TenantID)
	case f.TenantID != nil:
		query += ` WHERE tenant_id = $1`
		args = append(args, *f.TenantID)
	default:
		query += ` WHERE tenant_id IS NULL`
	}
	query += ` ORDER BY hierarchy_level DESC, name ASC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *pgStore) UpdateRole(ctx context.Context, r Role) (Role, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE roles
		SET name = $2, display_name = $3, description = $4, is_system = $5, is_default = $6, hierarchy_level = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+roleColumns,
		r.ID, r.Name, r.DisplayName, r.Description, r.System, r.Default, r.HierarchyLevel, time.Now().UTC())

	updated, err := scanRole(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return Role{}, ErrDuplicateName
		}
		return Role{}, err
	}
	return updated, nil
}

func (s *pgStore) DeleteRole(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ReplaceGrants performs the delete-then-insert swap inside one transaction.
// The role row is locked first so concurrent replacements for the same role
// serialize, and readers under read-committed isolation see either the old
// set or the new one.
func (s *pgStore) ReplaceGrants(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var locked int64
		if err := tx.QueryRow(ctx, `SELECT id FROM roles WHERE id = $1 FOR UPDATE`, roleID).Scan(&locked); err != nil {
			if pg.IsNotFoundError(err) {
				return ErrNotFound
			}
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}

		if len(permissionIDs) == 0 {
			return nil
		}

		now := time.Now().UTC()
		rows := make([][]any, 0, len(permissionIDs))
		for _, pid := range permissionIDs {
			rows = append(rows, []any{roleID, pid, true, string(GrantActive), now})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"role_permissions"},
			[]string{"role_id", "permission_id", "granted", "status", "updated_at"},
			pgx.CopyFromRows(rows))
		if err != nil {
			if pg.IsForeignKeyViolationError(err) {
				return ErrUnknownPermission
			}
			return err
		}
		return nil
	})
}

func (s *pgStore) Grants(ctx context.Context, roleID int64) ([]Grant, error) {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT role_id, permission_id, granted, status, updated_at
		FROM role_permissions
		WHERE role_id = $1
		ORDER BY permission_id ASC`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.RoleID, &g.PermissionID, &g.Granted, &g.Status, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *pgStore) GrantedPermissionIDs(ctx context.Context, roleIDs []int64) ([]int64, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT permission_id
		FROM role_permissions
		WHERE role_id = ANY($1) AND granted = true AND status = 'active'
		ORDER BY permission_id ASC`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *pgStore) PermissionReferenced(ctx context.Context, permissionID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM role_permissions WHERE permission_id = $1)`, permissionID).Scan(&exists)
	return exists, err
}

func (s *pgStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Join(errors.New("role.tx_commit"), err)
	}
	return nil
}
