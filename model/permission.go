package model

// RolePermissionGrant is an explicit allow/deny for one role on one command.
type RolePermissionGrant struct {
	GuildID string `db:"guild_id"`
	RoleID  string `db:"role_id"`
	Command string `db:"command"`
	Allowed bool   `db:"allowed"`
}
