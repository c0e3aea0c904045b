package permission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lodgekit/lodgekit/pkg/pg"
)

// pgStore is the PostgreSQL-backed catalog store.
type pgStore struct {
	db pg.Querier
}

// NewPgStore creates a Store backed by the permissions table.
func NewPgStore(db pg.Querier) Store {
	return &pgStore{db: db}
}

const permissionColumns = `id, permission_key, resource, action, category, scope, is_system, description, created_at, updated_at`

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	err := row.Scan(&p.ID, &p.Key, &p.Resource, &p.Action, &p.Category, &p.Scope, &p.System, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Permission{}, ErrNotFound
		}
		return Permission{}, err
	}
	return p, nil
}

func (s *pgStore) List(ctx context.Context, f Filter) ([]Permission, error) {
	var (
		conds []string
		args  []any
	)
	if !f.IncludeSystem {
		conds = append(conds, "is_system = false")
	}
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Resource != "" {
		args = append(args, f.Resource)
		conds = append(conds, fmt.Sprintf("resource = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(permission_key ILIKE $%d OR category ILIKE $%d OR description ILIKE $%d)", n, n, n))
	}

	query := `SELECT ` + permissionColumns + ` FROM permissions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY permission_key ASC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *pgStore) Get(ctx context.Context, id int64) (Permission, error) {
	row := s.db.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id)
	return scanPermission(row)
}

func (s *pgStore) GetByKey(ctx context.Context, key string) (Permission, error) {
	row := s.db.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE permission_key = $1`, key)
	return scanPermission(row)
}

func (s *pgStore) Missing(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, `SELECT id FROM permissions WHERE id = ANY($1)`, ids)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []int64
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *pgStore) Create(ctx context.Context, p Permission) (Permission, error) {
	now := time.Now().UTC()
	row := s.db.QueryRow(ctx, `
		INSERT INTO permissions (permission_key, resource, action, category, scope, is_system, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING `+permissionColumns,
		p.Key, p.Resource, p.Action, p.Category, p.Scope, p.System, p.Description, now)

	created, err := scanPermission(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return Permission{}, ErrDuplicateKey
		}
		return Permission{}, err
	}
	return created, nil
}

func (s *pgStore) Update(ctx context.Context, p Permission) (Permission, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE permissions
		SET permission_key = $2, resource = $3, action = $4, category = $5, scope = $6, is_system = $7, description = $8, updated_at = $9
		WHERE id = $1
		RETURNING `+permissionColumns,
		p.ID, p.Key, p.Resource, p.Action, p.Category, p.Scope, p.System, p.Description, time.Now().UTC())

	updated, err := scanPermission(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return Permission{}, ErrDuplicateKey
		}
		return Permission{}, err
	}
	return updated, nil
}

func (s *pgStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
