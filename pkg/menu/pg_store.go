package menu

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lodgekit/lodgekit/pkg/pg"
)

// pgStore is the PostgreSQL-backed menu store. Entries and their required
// permission ids live together in the menu_permissions table, the ids as a
// bigint array since they are always read and replaced as one rule.
type pgStore struct {
	db pg.Querier
}

// NewPgStore creates a Store backed by the menu_permissions table.
func NewPgStore(db pg.Querier) Store {
	return &pgStore{db: db}
}

const menuColumns = `id, tenant_id, menu_key, parent_menu_key, display_name, icon, route, display_order, match_type, required_permission_ids, status, is_active, created_at, updated_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.TenantID, &e.Key, &e.ParentKey, &e.DisplayName, &e.Icon, &e.Route, &e.DisplayOrder, &e.Match, &e.PermissionIDs, &e.Status, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

func (s *pgStore) Create(ctx context.Context, e Entry) (Entry, error) {
	now := time.Now().UTC()
	row := s.db.QueryRow(ctx, `
		INSERT INTO menu_permissions (tenant_id, menu_key, parent_menu_key, display_name, icon, route, display_order, match_type, required_permission_ids, status, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		RETURNING `+menuColumns,
		e.TenantID, e.Key, e.ParentKey, e.DisplayName, e.Icon, e.Route, e.DisplayOrder, string(e.Match), e.PermissionIDs, string(e.Status), e.Active, now)

	created, err := scanEntry(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return Entry{}, ErrDuplicateKey
		}
		return Entry{}, err
	}
	return created, nil
}

func (s *pgStore) Get(ctx context.Context, id int64) (Entry, error) {
	row := s.db.QueryRow(ctx, `SELECT `+menuColumns+` FROM menu_permissions WHERE id = $1`, id)
	return scanEntry(row)
}

func (s *pgStore) GetByKey(ctx context.Context, tenantID *uuid.UUID, key string) (Entry, error) {
	row := s.db.QueryRow(ctx, `SELECT `+menuColumns+` FROM menu_permissions WHERE menu_key = $1 AND tenant_id IS NOT DISTINCT FROM $2`, key, tenantID)
	return scanEntry(row)
}

func (s *pgStore) List(ctx context.Context, f Filter) ([]Entry, error) {
	query := `SELECT ` + menuColumns + ` FROM menu_permissions`
	var (
		conds []string
		args  []any
	)
	if f.TenantID == nil {
		conds = append(conds, `tenant_id IS NULL`)
	} else {
		args = append(args, *f.TenantID)
		conds = append(conds, fmt.Sprintf(`(tenant_id IS NULL OR tenant_id = $%d)`, len(args)))
	}
	if !f.IncludeInactive {
		conds = append(conds, `status = 'active' AND is_active = true`)
	}
	if f.ParentKey != nil {
		args = append(args, *f.ParentKey)
		conds = append(conds, fmt.Sprintf(`parent_menu_key = $%d`, len(args)))
	}
	for i, cond := range conds {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	query += ` ORDER BY display_order ASC, menu_key ASC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *pgStore) Update(ctx context.Context, e Entry) (Entry, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE menu_permissions
		SET menu_key = $2, parent_menu_key = $3, display_name = $4, icon = $5, route = $6, display_order = $7, match_type = $8, required_permission_ids = $9, status = $10, is_active = $11, updated_at = $12
		WHERE id = $1
		RETURNING `+menuColumns,
		e.ID, e.Key, e.ParentKey, e.DisplayName, e.Icon, e.Route, e.DisplayOrder, string(e.Match), e.PermissionIDs, string(e.Status), e.Active, time.Now().UTC())

	updated, err := scanEntry(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return Entry{}, ErrDuplicateKey
		}
		return Entry{}, err
	}
	return updated, nil
}

func (s *pgStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM menu_permissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) PermissionReferenced(ctx context.Context, permissionID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM menu_permissions WHERE required_permission_ids @> ARRAY[$1]::bigint[])`, permissionID).Scan(&exists)
	return exists, err
}
