package permissions

import (
	"context"
	"testing"

	"guild-guardian/model"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGrants struct {
	grants     map[string][]model.RolePermissionGrant
	restricted map[string]bool
	err        error
}

func (f *fakeGrants) GetRolePermissionGrants(_ context.Context, _, command string) ([]model.RolePermissionGrant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.grants[command], nil
}

func (f *fakeGrants) IsCommandRestrictedForAdmins(_ context.Context, _, command string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.restricted[command], nil
}

func newFakeGrants() *fakeGrants {
	return &fakeGrants{grants: map[string][]model.RolePermissionGrant{}, restricted: map[string]bool{}}
}

func actor(userID string, perms int64, roles ...string) Actor {
	return Actor{UserID: userID, GuildID: "g1", GuildOwner: "owner", RoleIDs: roles, Permissions: perms}
}

func TestCanUse(t *testing.T) {
	store := newFakeGrants()
	store.grants["ban"] = []model.RolePermissionGrant{
		{GuildID: "g1", RoleID: "mods", Command: "ban", Allowed: true},
		{GuildID: "g1", RoleID: "trial", Command: "ban", Allowed: false},
	}
	store.restricted["protection"] = true
	r := NewResolver(store, []string{"botowner"})

	tests := []struct {
		name    string
		actor   Actor
		command string
		want    bool
	}{
		{"bot owner", actor("botowner", 0), "protection", true},
		{"guild owner without grants", actor("owner", 0), "timeout", true},
		{"guild owner on restricted command", actor("owner", 0), "protection", true},
		{"admin", actor("u1", discordgo.PermissionAdministrator), "timeout", true},
		{"admin on restricted command", actor("u1", discordgo.PermissionAdministrator), "protection", false},
		{"allowed role", actor("u1", 0, "mods"), "ban", true},
		{"denied role", actor("u1", discordgo.PermissionModerateMembers, "trial"), "ban", false},
		{"grants exist but no role matches", actor("u1", discordgo.PermissionModerateMembers, "other"), "ban", false},
		{"moderation default with capability", actor("u1", discordgo.PermissionModerateMembers), "timeout", true},
		{"moderation default without capability", actor("u1", discordgo.PermissionManageGuild), "timeout", false},
		{"admin default with capability", actor("u1", discordgo.PermissionManageGuild), "permission", true},
		{"admin default without capability", actor("u1", discordgo.PermissionModerateMembers), "permission", false},
		{"utility default", actor("u1", 0), "sysinfo", true},
		{"unregistered command", actor("u1", 0), "unknown", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.CanUse(context.Background(), tt.actor, tt.command)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanUseDeniesOnStoreError(t *testing.T) {
	store := newFakeGrants()
	store.err = assert.AnError
	r := NewResolver(store, nil)

	ok, err := r.CanUse(context.Background(), actor("u1", discordgo.PermissionModerateMembers), "timeout")
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, ok)

	// owners never reach the store
	ok, err = r.CanUse(context.Background(), actor("owner", 0), "timeout")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckTarget(t *testing.T) {
	bot := Member{UserID: "bot", HighestRole: 10}
	mod := Member{UserID: "mod", HighestRole: 5}

	assert.ErrorIs(t, CheckTarget(mod, mod, bot, "owner"), ErrTargetSelf)
	assert.ErrorIs(t, CheckTarget(mod, Member{UserID: "owner"}, bot, "owner"), ErrTargetOwner)
	assert.ErrorIs(t, CheckTarget(mod, Member{UserID: "peer", HighestRole: 5}, bot, "owner"), ErrTargetOutranks)
	assert.ErrorIs(t, CheckTarget(mod, Member{UserID: "boss", HighestRole: 7}, bot, "owner"), ErrTargetOutranks)

	admin := Member{UserID: "admin", HighestRole: 20}
	assert.ErrorIs(t, CheckTarget(admin, Member{UserID: "high", HighestRole: 10}, bot, "owner"), ErrTargetAboveBot)

	assert.NoError(t, CheckTarget(mod, Member{UserID: "member", HighestRole: 1}, bot, "owner"))
	assert.True(t, CanTarget(mod, Member{UserID: "member"}, bot, "owner"))
	assert.False(t, CanTarget(mod, mod, bot, "owner"))
}

func TestGuildOwnerStillBoundByRoleOrder(t *testing.T) {
	bot := Member{UserID: "bot", HighestRole: 10}
	owner := Member{UserID: "owner", HighestRole: 2}
	assert.False(t, CanTarget(owner, Member{UserID: "mod", HighestRole: 5}, bot, "owner"))
}

func TestHighestRolePosition(t *testing.T) {
	guild := &discordgo.Guild{Roles: []*discordgo.Role{
		{ID: "a", Position: 3},
		{ID: "b", Position: 8},
		{ID: "c", Position: 5},
	}}
	assert.Equal(t, 8, HighestRolePosition(guild, []string{"a", "b"}))
	assert.Equal(t, 5, HighestRolePosition(guild, []string{"c", "missing"}))
	assert.Zero(t, HighestRolePosition(guild, nil))
}
