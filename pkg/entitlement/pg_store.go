package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lodgekit/lodgekit/pkg/pg"
)

// pgStore is the PostgreSQL-backed entitlement store over the
// subscription_plans, subscription_features, and feature_permissions tables.
type pgStore struct {
	db pg.TxStarter
}

// NewPgStore creates a Store backed by the subscription tables.
func NewPgStore(db pg.TxStarter) Store {
	return &pgStore{db: db}
}

const planColumns = `id, plan_type, max_staff, max_rooms, max_branches, price_amount, price_currency, is_active, is_default, created_at, updated_at`

func scanPlan(row pgx.Row) (Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.Type, &p.MaxStaff, &p.MaxRooms, &p.MaxBranches, &p.Price.Amount, &p.Price.Currency, &p.Active, &p.Default, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Plan{}, ErrPlanNotFound
		}
		return Plan{}, err
	}
	return p, nil
}

const featureColumns = `id, subscription_id, name, price_amount, price_currency, is_deleted, created_at, updated_at`

func scanFeature(row pgx.Row) (Feature, error) {
	var f Feature
	err := row.Scan(&f.ID, &f.PlanID, &f.Name, &f.Price.Amount, &f.Price.Currency, &f.Deleted, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Feature{}, ErrFeatureNotFound
		}
		return Feature{}, err
	}
	return f, nil
}

func (s *pgStore) CreatePlan(ctx context.Context, p Plan) (Plan, error) {
	now := time.Now().UTC()
	row := s.db.QueryRow(ctx, `
		INSERT INTO subscription_plans (plan_type, max_staff, max_rooms, max_branches, price_amount, price_currency, is_active, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING `+planColumns,
		p.Type, p.MaxStaff, p.MaxRooms, p.MaxBranches, p.Price.Amount, p.Price.Currency, p.Active, p.Default, now)
	return scanPlan(row)
}

func (s *pgStore) GetPlan(ctx context.Context, id int64) (Plan, error) {
	row := s.db.QueryRow(ctx, `SELECT `+planColumns+` FROM subscription_plans WHERE id = $1`, id)
	return scanPlan(row)
}

func (s *pgStore) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := s.db.Query(ctx, `SELECT `+planColumns+` FROM subscription_plans ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *pgStore) CreateFeature(ctx context.Context, f Feature) (Feature, error) {
	now := time.Now().UTC()
	row := s.db.QueryRow(ctx, `
		INSERT INTO subscription_features (subscription_id, name, price_amount, price_currency, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, $5, $5)
		RETURNING `+featureColumns,
		f.PlanID, f.Name, f.Price.Amount, f.Price.Currency, now)

	created, err := scanFeature(row)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return Feature{}, ErrPlanNotFound
		}
		return Feature{}, err
	}
	return created, nil
}

func (s *pgStore) GetFeature(ctx context.Context, id int64) (Feature, error) {
	row := s.db.QueryRow(ctx, `SELECT `+featureColumns+` FROM subscription_features WHERE id = $1`, id)
	return scanFeature(row)
}

func (s *pgStore) ListFeatures(ctx context.Context, planID int64, includeDeleted bool) ([]Feature, error) {
	query := `SELECT ` + featureColumns + ` FROM subscription_features WHERE subscription_id = $1`
	if !includeDeleted {
		query += ` AND is_deleted = false`
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.Query(ctx, query, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Feature
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *pgStore) UpdateFeature(ctx context.Context, f Feature) (Feature, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE subscription_features
		SET name = $2, price_amount = $3, price_currency = $4, is_deleted = $5, updated_at = $6
		WHERE id = $1
		RETURNING `+featureColumns,
		f.ID, f.Name, f.Price.Amount, f.Price.Currency, f.Deleted, time.Now().UTC())
	return scanFeature(row)
}

func (s *pgStore) SoftDeleteFeature(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE subscription_features SET is_deleted = true, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFeatureNotFound
	}
	return nil
}

func (s *pgStore) ReplaceFeaturePermissions(ctx context.Context, featureID int64, permissionIDs []int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var planID int64
	if err := tx.QueryRow(ctx, `SELECT subscription_id FROM subscription_features WHERE id = $1 FOR UPDATE`, featureID).Scan(&planID); err != nil {
		if pg.IsNotFoundError(err) {
			return ErrFeatureNotFound
		}
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM feature_permissions WHERE feature_id = $1`, featureID); err != nil {
		return err
	}

	if len(permissionIDs) > 0 {
		rows := make([][]any, 0, len(permissionIDs))
		for _, pid := range permissionIDs {
			rows = append(rows, []any{planID, featureID, pid})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"feature_permissions"},
			[]string{"subscription_id", "feature_id", "permission_id"},
			pgx.CopyFromRows(rows))
		if err != nil {
			if pg.IsForeignKeyViolationError(err) {
				return ErrUnknownPermission
			}
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Join(errors.New("entitlement.tx_commit"), err)
	}
	return nil
}

func (s *pgStore) PlanPermissionIDs(ctx context.Context, planID int64) ([]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT fp.permission_id
		FROM feature_permissions fp
		JOIN subscription_features f ON f.id = fp.feature_id
		WHERE fp.subscription_id = $1 AND f.is_deleted = false
		ORDER BY fp.permission_id ASC`, planID)
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

func (s *pgStore) ActiveSubscription(ctx context.Context, tenantID uuid.UUID) (Subscription, error) {
	var sub Subscription
	err := s.db.QueryRow(ctx, `
		SELECT tenant_id, plan_id, status, created_at, updated_at
		FROM tenant_subscriptions
		WHERE tenant_id = $1 AND status = 'active'`, tenantID).
		Scan(&sub.TenantID, &sub.PlanID, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Subscription{}, ErrNoActiveSubscription
		}
		return Subscription{}, err
	}
	return sub, nil
}

func (s *pgStore) SaveSubscription(ctx context.Context, sub Subscription) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx, `
		INSERT INTO tenant_subscriptions (tenant_id, plan_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (tenant_id) DO UPDATE SET plan_id = $2, status = $3, updated_at = $4`,
		sub.TenantID, sub.PlanID, sub.Status, now)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return ErrPlanNotFound
		}
		return err
	}
	return nil
}

func (s *pgStore) TenantsOnPlan(ctx context.Context, planID int64) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT tenant_id FROM tenant_subscriptions WHERE plan_id = $1`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *pgStore) PermissionReferenced(ctx context.Context, permissionID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM feature_permissions fp
			JOIN subscription_features f ON f.id = fp.feature_id
			WHERE fp.permission_id = $1 AND f.is_deleted = false
		)`, permissionID).Scan(&exists)
	return exists, err
}
