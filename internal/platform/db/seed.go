package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"leavehub/internal/domain/auth"
	"leavehub/internal/domain/policy"
	"leavehub/internal/platform/config"
)

// Seed is idempotent: it fills in permissions, roles, the admin user and the
// built-in UNPAID leave type, skipping whatever already exists.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if err := ensurePermissions(ctx, pool); err != nil {
		return err
	}

	roleIDs, err := ensureRoles(ctx, pool)
	if err != nil {
		return err
	}

	if err := ensureRolePermissions(ctx, pool, roleIDs); err != nil {
		return err
	}

	if err := ensureAdminUser(ctx, pool, roleIDs[auth.RoleHRAdmin], cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}

	return ensureUnpaidType(ctx, pool)
}

func ensurePermissions(ctx context.Context, pool *pgxpool.Pool) error {
	for _, perm := range auth.DefaultPermissions {
		_, err := pool.Exec(ctx, "INSERT INTO permissions (code) VALUES ($1) ON CONFLICT (code) DO NOTHING", perm)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureRoles(ctx context.Context, pool *pgxpool.Pool) (map[string]string, error) {
	roleIDs := map[string]string{}
	for roleName := range auth.RolePermissions {
		var id string
		err := pool.QueryRow(ctx, "SELECT id FROM roles WHERE name = $1", roleName).Scan(&id)
		if err == nil {
			roleIDs[roleName] = id
			continue
		}

		err = pool.QueryRow(ctx, "INSERT INTO roles (name) VALUES ($1) RETURNING id", roleName).Scan(&id)
		if err != nil {
			return nil, err
		}
		roleIDs[roleName] = id
	}
	return roleIDs, nil
}

func ensureRolePermissions(ctx context.Context, pool *pgxpool.Pool, roleIDs map[string]string) error {
	permMap := map[string]string{}
	rows, err := pool.Query(ctx, "SELECT id, code FROM permissions")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, code string
		if err := rows.Scan(&id, &code); err != nil {
			return err
		}
		permMap[code] = id
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for roleName, perms := range auth.RolePermissions {
		roleID := roleIDs[roleName]
		for _, permCode := range perms {
			permID, ok := permMap[permCode]
			if !ok {
				return errors.New("permission not found: " + permCode)
			}
			_, err := pool.Exec(ctx, "INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", roleID, permID)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, roleID, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&id)
	if err == nil {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return pool.QueryRow(ctx, `
    INSERT INTO users (email, password_hash, role_id, status)
    VALUES ($1, $2, $3, 'ACTIVE')
    RETURNING id
  `, email, hash, roleID).Scan(&id)
}

// ensureUnpaidType guarantees the conversion target for excess-to-unpaid
// splits exists.
func ensureUnpaidType(ctx context.Context, pool *pgxpool.Pool) error {
	var categoryID string
	err := pool.QueryRow(ctx, "SELECT id FROM leave_categories WHERE name = 'General'").Scan(&categoryID)
	if err != nil {
		if err := pool.QueryRow(ctx, "INSERT INTO leave_categories (name) VALUES ('General') RETURNING id").Scan(&categoryID); err != nil {
			return err
		}
	}

	var typeID string
	err = pool.QueryRow(ctx, "SELECT id FROM leave_types WHERE code = $1", policy.UnpaidTypeCode).Scan(&typeID)
	if err == nil {
		return nil
	}
	_, err = pool.Exec(ctx, `
    INSERT INTO leave_types (code, name, category_id, is_paid, is_deductible)
    VALUES ($1, 'Unpaid Leave', $2, false, true)
  `, policy.UnpaidTypeCode, categoryID)
	return err
}
