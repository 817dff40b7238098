package database

import (
	"context"
	"testing"
	"time"

	"guild-guardian/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", 16, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGuildPolicyAbsent(t *testing.T) {
	s := newTestStore(t)
	p, err := s.GetGuildPolicy(context.Background(), "g1")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestGuildPolicyUpsertInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.GetGuildPolicy(ctx, "g1")
	require.NoError(t, err)
	require.Nil(t, p)

	policy := model.DefaultGuildPolicy("g1")
	policy.AntiSpamEnabled = true
	policy.SpamMessageThreshold = 8
	policy.LinkWhitelist = "example.com, github.com"
	require.NoError(t, s.UpsertGuildPolicy(ctx, policy))

	got, err := s.GetGuildPolicy(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.AntiSpamEnabled)
	assert.Equal(t, 8, got.SpamMessageThreshold)
	assert.Equal(t, []string{"example.com", "github.com"}, got.Whitelist())
	createdAt := got.CreatedAt

	got.SpamMessageThreshold = 3
	require.NoError(t, s.UpsertGuildPolicy(ctx, got))
	again, err := s.GetGuildPolicy(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 3, again.SpamMessageThreshold)
	assert.Equal(t, createdAt, again.CreatedAt)
}

func TestGuildPolicyCachedCopyIsIsolated(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertGuildPolicy(ctx, model.DefaultGuildPolicy("g1")))

	first, err := s.GetGuildPolicy(ctx, "g1")
	require.NoError(t, err)
	first.CapsThreshold = 1

	second, err := s.GetGuildPolicy(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 70, second.CapsThreshold)
}

func TestUpsertNormalizesInvalidValues(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p := &model.GuildPolicy{GuildID: "g1", AntiRaidEnabled: true, RaidAction: "explode"}
	require.NoError(t, s.UpsertGuildPolicy(ctx, p))

	got, err := s.GetGuildPolicy(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.RaidJoinThreshold)
	assert.Equal(t, int64(10_000), got.RaidJoinWindowMs)
	assert.Equal(t, model.RaidActionAlert, got.RaidAction)
}

func TestEnsureGuildPolicy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.EnsureGuildPolicy(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, p.AntiRaidEnabled)

	got, err := s.GetGuildPolicy(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.ContentActionMute, got.SpamAction)
}

func TestRaidEpisodeLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.UnixMilli(1_700_000_000_000)

	id, err := s.InsertRaidEpisode(ctx, model.RaidEpisode{
		GuildID: "g1", StartTime: now.UnixMilli(), JoinCount: 10, CreatedAt: now.UnixMilli(),
	})
	require.NoError(t, err)

	open, err := s.GetOpenRaidEpisode(ctx, "g1", now.Add(-10*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, id, open.ID)

	open.JoinCount = 14
	open.UpdatedAt = now.Add(time.Minute).UnixMilli()
	require.NoError(t, s.UpdateRaidEpisode(ctx, *open))
	require.NoError(t, s.SetRaidEpisodeAction(ctx, id, "Kicked 14 members"))

	// too old to be extended
	stale, err := s.GetOpenRaidEpisode(ctx, "g1", now.Add(time.Second))
	require.NoError(t, err)
	assert.Nil(t, stale)

	require.NoError(t, s.ResolveRaidEpisode(ctx, id, now.Add(2*time.Minute)))
	closed, err := s.GetOpenRaidEpisode(ctx, "g1", now.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, closed)

	eps, err := s.GetRaidEpisodes(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, 14, eps[0].JoinCount)
	assert.Equal(t, "Kicked 14 members", eps[0].ActionTaken)
	assert.True(t, eps[0].Resolved)

	assert.Error(t, s.ResolveRaidEpisode(ctx, 999, now))
}

func TestRaidEpisodeJanitorQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.UnixMilli(1_700_000_000_000)
	old := now.Add(-48 * time.Hour).UnixMilli()

	_, err := s.InsertRaidEpisode(ctx, model.RaidEpisode{GuildID: "g1", StartTime: old, JoinCount: 5, Resolved: true, CreatedAt: old})
	require.NoError(t, err)
	_, err = s.InsertRaidEpisode(ctx, model.RaidEpisode{GuildID: "g1", StartTime: old, JoinCount: 6, CreatedAt: old})
	require.NoError(t, err)
	_, err = s.InsertRaidEpisode(ctx, model.RaidEpisode{GuildID: "g1", StartTime: now.UnixMilli(), JoinCount: 7, CreatedAt: now.UnixMilli()})
	require.NoError(t, err)

	purged, err := s.PurgeOldRaidEpisodes(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	resolved, err := s.ResolveStaleRaidEpisodes(ctx, now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resolved)

	eps, err := s.GetRaidEpisodes(ctx, "g1")
	require.NoError(t, err)
	for _, ep := range eps {
		if ep.JoinCount == 6 {
			assert.True(t, ep.Resolved)
			assert.Equal(t, now.UnixMilli(), ep.EndTime)
		}
	}

	open, err := s.GetOpenRaidEpisode(ctx, "g1", now.Add(-10*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, 7, open.JoinCount)
}

func TestModActions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.UnixMilli(1_700_000_000_000)

	_, err := s.InsertModAction(ctx, model.ModAction{
		GuildID: "g1", UserID: "u1", ModeratorID: "m1", ActionType: model.ModActionWarn,
		Reason: "rude", CreatedAt: now.UnixMilli(),
	})
	require.NoError(t, err)
	timeoutID, err := s.InsertModAction(ctx, model.NewTimeoutAction("g1", "u1", "m1", "spam", 10*time.Minute, now.Add(time.Second)))
	require.NoError(t, err)
	_, err = s.InsertModAction(ctx, model.NewTimeoutAction("g1", "u2", "m1", "spam", time.Hour, now))
	require.NoError(t, err)

	all, err := s.QueryModActions(ctx, "g1", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := s.QueryModActions(ctx, "g1", "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, timeoutID, mine[0].ActionID)
	assert.Equal(t, model.ModActionWarn, mine[1].ActionType)

	counts, err := s.CountModActionsByType(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.ModActionWarn])
	assert.Equal(t, 1, counts[model.ModActionTimeout])

	expired, err := s.QueryExpiredTimeouts(ctx, now.Add(15*time.Minute))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, timeoutID, expired[0].ActionID)

	require.NoError(t, s.ClearModActionExpiry(ctx, timeoutID))
	expired, err = s.QueryExpiredTimeouts(ctx, now.Add(15*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestRolePermissions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	grants, err := s.GetRolePermissionGrants(ctx, "g1", "timeout")
	require.NoError(t, err)
	assert.Empty(t, grants)

	require.NoError(t, s.SetRolePermissionGrant(ctx, model.RolePermissionGrant{GuildID: "g1", RoleID: "r1", Command: "timeout", Allowed: true}))
	require.NoError(t, s.SetRolePermissionGrant(ctx, model.RolePermissionGrant{GuildID: "g1", RoleID: "r2", Command: "timeout", Allowed: true}))
	require.NoError(t, s.SetRolePermissionGrant(ctx, model.RolePermissionGrant{GuildID: "g1", RoleID: "r2", Command: "timeout", Allowed: false}))

	grants, err = s.GetRolePermissionGrants(ctx, "g1", "timeout")
	require.NoError(t, err)
	require.Len(t, grants, 2)
	byRole := map[string]bool{}
	for _, g := range grants {
		byRole[g.RoleID] = g.Allowed
	}
	assert.Equal(t, map[string]bool{"r1": true, "r2": false}, byRole)

	require.NoError(t, s.DeleteRolePermissionGrant(ctx, "g1", "r1", "timeout"))
	grants, err = s.GetRolePermissionGrants(ctx, "g1", "timeout")
	require.NoError(t, err)
	assert.Len(t, grants, 1)

	restricted, err := s.IsCommandRestrictedForAdmins(ctx, "g1", "ban")
	require.NoError(t, err)
	assert.False(t, restricted)

	require.NoError(t, s.SetCommandRestriction(ctx, "g1", "ban", true))
	restricted, err = s.IsCommandRestrictedForAdmins(ctx, "g1", "ban")
	require.NoError(t, err)
	assert.True(t, restricted)
}
