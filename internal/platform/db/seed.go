package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"appraise/internal/domain/auth"
	"appraise/internal/platform/config"
)

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	tenantID, err := ensureTenant(ctx, pool, cfg.SeedCompanyName)
	if err != nil {
		return err
	}

	if err := ensurePermissions(ctx, pool); err != nil {
		return err
	}

	roleIDs, err := ensureRoles(ctx, pool, tenantID)
	if err != nil {
		return err
	}

	if err := ensureRolePermissions(ctx, pool, roleIDs); err != nil {
		return err
	}

	if err := ensureAdminUser(ctx, pool, tenantID, roleIDs[auth.RoleHR], cfg.SeedHRAdminEmail, cfg.SeedHRAdminPass); err != nil {
		return err
	}

	if cfg.SeedSysAdminEmail != "" {
		_ = ensureAdminUser(ctx, pool, tenantID, roleIDs[auth.RoleSystemAdmin], cfg.SeedSysAdminEmail, cfg.SeedSysAdminPass)
	}

	return nil
}

func ensureTenant(ctx context.Context, pool *pgxpool.Pool, name string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM tenants WHERE name = $1", name).Scan(&id)
	if err == nil {
		return id, nil
	}

	err = pool.QueryRow(ctx, "INSERT INTO tenants (name) VALUES ($1) RETURNING id", name).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func ensurePermissions(ctx context.Context, pool *pgxpool.Pool) error {
	for _, perm := range auth.DefaultPermissions {
		if _, err := pool.Exec(ctx, "INSERT INTO permissions (key) VALUES ($1) ON CONFLICT (key) DO NOTHING", perm); err != nil {
			return err
		}
	}
	return nil
}

func ensureRoles(ctx context.Context, pool *pgxpool.Pool, tenantID string) (map[string]string, error) {
	roleIDs := make(map[string]string, len(auth.RolePermissions))
	for roleName := range auth.RolePermissions {
		var id string
		err := pool.QueryRow(ctx, "SELECT id FROM roles WHERE tenant_id = $1 AND name = $2", tenantID, roleName).Scan(&id)
		if err != nil {
			err = pool.QueryRow(ctx, "INSERT INTO roles (tenant_id, name) VALUES ($1, $2) RETURNING id", tenantID, roleName).Scan(&id)
			if err != nil {
				return nil, err
			}
		}
		roleIDs[roleName] = id
	}
	return roleIDs, nil
}

func ensureRolePermissions(ctx context.Context, pool *pgxpool.Pool, roleIDs map[string]string) error {
	for roleName, perms := range auth.RolePermissions {
		roleID, ok := roleIDs[roleName]
		if !ok {
			continue
		}
		for _, perm := range perms {
			if _, err := pool.Exec(ctx, `
        INSERT INTO role_permissions (role_id, permission_id)
        SELECT $1, id FROM permissions WHERE key = $2
        ON CONFLICT DO NOTHING
      `, roleID, perm); err != nil {
				return err
			}
		}
	}
	return nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, tenantID, roleID, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || roleID == "" {
		return nil
	}

	var existing string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE tenant_id = $1 AND email = $2", tenantID, email).Scan(&existing)
	if err == nil {
		return nil
	}

	if strings.TrimSpace(password) == "" {
		return errors.New("seed admin password is empty")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
    INSERT INTO users (tenant_id, role_id, email, password_hash, status)
    VALUES ($1, $2, $3, $4, 'active')
  `, tenantID, roleID, email, hash)
	return err
}
