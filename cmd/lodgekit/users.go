package main

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lodgekit/lodgekit/modules/access"
	"github.com/lodgekit/lodgekit/pkg/resolver"
)

// pgUserSource reads the user projection maintained by the authentication
// collaborator. This binary never writes to it.
type pgUserSource struct {
	db *pgxpool.Pool
}

func (s pgUserSource) User(ctx context.Context, id uuid.UUID) (resolver.User, error) {
	u := resolver.User{ID: id}

	err := s.db.QueryRow(ctx, `
		SELECT user_type, tenant_id, firm_id, branch_id
		FROM users
		WHERE id = $1`, id).Scan(&u.Type, &u.TenantID, &u.FirmID, &u.BranchID)
	if errors.Is(err, pgx.ErrNoRows) {
		return resolver.User{}, access.ErrUnknownUser
	}
	if err != nil {
		return resolver.User{}, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT role_id
		FROM user_roles
		WHERE user_id = $1
		ORDER BY role_id ASC`, id)
	if err != nil {
		return resolver.User{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var roleID int64
		if err := rows.Scan(&roleID); err != nil {
			return resolver.User{}, err
		}
		u.RoleIDs = append(u.RoleIDs, roleID)
	}
	return u, rows.Err()
}
