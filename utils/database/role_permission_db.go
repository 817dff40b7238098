package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"guild-guardian/model"
)

// GetRolePermissionGrants returns every explicit grant for a command in a guild.
func (s *Store) GetRolePermissionGrants(ctx context.Context, guildID, command string) ([]model.RolePermissionGrant, error) {
	var grants []model.RolePermissionGrant
	query := "SELECT guild_id, role_id, command, allowed FROM role_permissions WHERE guild_id = ? AND command = ?"
	if err := s.db.SelectContext(ctx, &grants, query, guildID, command); err != nil {
		return nil, fmt.Errorf("failed to get role permissions for %s in guild %s: %w", command, guildID, err)
	}
	return grants, nil
}

// SetRolePermissionGrant creates or updates a grant.
func (s *Store) SetRolePermissionGrant(ctx context.Context, g model.RolePermissionGrant) error {
	now := time.Now().UnixMilli()
	query := `INSERT INTO role_permissions (guild_id, role_id, command, allowed, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)
			  ON CONFLICT (guild_id, role_id, command) DO UPDATE SET allowed = excluded.allowed, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, g.GuildID, g.RoleID, g.Command, g.Allowed, now, now); err != nil {
		return fmt.Errorf("failed to set role permission for role %s on %s: %w", g.RoleID, g.Command, err)
	}
	return nil
}

// DeleteRolePermissionGrant removes a grant so the command falls back to its default.
func (s *Store) DeleteRolePermissionGrant(ctx context.Context, guildID, roleID, command string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM role_permissions WHERE guild_id = ? AND role_id = ? AND command = ?", guildID, roleID, command)
	if err != nil {
		return fmt.Errorf("failed to delete role permission for role %s on %s: %w", roleID, command, err)
	}
	return nil
}

// IsCommandRestrictedForAdmins reports whether administrators lose their implicit access to a command.
func (s *Store) IsCommandRestrictedForAdmins(ctx context.Context, guildID, command string) (bool, error) {
	var restricted bool
	err := s.db.GetContext(ctx, &restricted,
		"SELECT restricted_for_admins FROM command_restrictions WHERE guild_id = ? AND command = ?", guildID, command)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get restriction for %s in guild %s: %w", command, guildID, err)
	}
	return restricted, nil
}

func (s *Store) SetCommandRestriction(ctx context.Context, guildID, command string, restricted bool) error {
	query := `INSERT INTO command_restrictions (guild_id, command, restricted_for_admins, updated_at)
			  VALUES (?, ?, ?, ?)
			  ON CONFLICT (guild_id, command) DO UPDATE SET restricted_for_admins = excluded.restricted_for_admins, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, guildID, command, restricted, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to set restriction for %s in guild %s: %w", command, guildID, err)
	}
	return nil
}
