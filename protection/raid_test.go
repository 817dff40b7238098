package protection

import (
	"context"
	"fmt"
	"testing"
	"time"

	"guild-guardian/model"
	"guild-guardian/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raidPolicy(threshold int, window time.Duration) *model.GuildPolicy {
	p := model.DefaultGuildPolicy("g1")
	p.AntiRaidEnabled = true
	p.RaidJoinThreshold = threshold
	p.RaidJoinWindowMs = window.Milliseconds()
	return p
}

func join(clock utils.Clock, userID string) model.JoinEvent {
	return model.JoinEvent{GuildID: "g1", UserID: userID, JoinedAt: clock.Now()}
}

func TestRaidThresholdIsInclusive(t *testing.T) {
	ctx := context.Background()
	clock := utils.NewFakeClock(epoch)
	store := &fakeRaidStore{}
	d := NewRaidDetector(clock, store)
	policy := raidPolicy(5, 10*time.Second)

	var verdicts []*model.Verdict
	for i := 0; i < 5; i++ {
		v, err := d.OnJoin(ctx, join(clock, fmt.Sprintf("u%d", i)), policy)
		require.NoError(t, err)
		if v != nil {
			verdicts = append(verdicts, v)
		}
		clock.Advance(time.Second)
	}

	require.Len(t, verdicts, 1)
	v := verdicts[0]
	assert.Equal(t, model.VerdictRaid, v.Kind)
	assert.Equal(t, 5, v.Count)
	assert.Equal(t, []string{"u0", "u1", "u2", "u3", "u4"}, v.Members)
	assert.Equal(t, int64(1), v.EpisodeID)
	require.Len(t, store.all(), 1)
	assert.Equal(t, 5, store.all()[0].JoinCount)
}

func TestRaidBelowThresholdNeverTriggers(t *testing.T) {
	ctx := context.Background()
	clock := utils.NewFakeClock(epoch)
	store := &fakeRaidStore{}
	d := NewRaidDetector(clock, store)
	policy := raidPolicy(3, 10*time.Second)

	// joins every 6s never put three inside one 10s window
	for i := 0; i < 20; i++ {
		v, err := d.OnJoin(ctx, join(clock, fmt.Sprintf("u%d", i)), policy)
		require.NoError(t, err)
		assert.Nil(t, v)
		clock.Advance(6 * time.Second)
	}
	assert.Empty(t, store.all())
}

func TestRaidWindowBoundaryIsExclusive(t *testing.T) {
	ctx := context.Background()
	clock := utils.NewFakeClock(epoch)
	d := NewRaidDetector(clock, &fakeRaidStore{})
	policy := raidPolicy(2, 10*time.Second)

	v, err := d.OnJoin(ctx, join(clock, "u1"), policy)
	require.NoError(t, err)
	assert.Nil(t, v)

	// a join exactly one window old no longer counts
	clock.Advance(10 * time.Second)
	v, err = d.OnJoin(ctx, join(clock, "u2"), policy)
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 1, d.WindowSize("g1"))
}

func TestRaidEpisodeExtendedWhileOpen(t *testing.T) {
	ctx := context.Background()
	clock := utils.NewFakeClock(epoch)
	store := &fakeRaidStore{}
	d := NewRaidDetector(clock, store)
	policy := raidPolicy(3, 10*time.Second)

	var last *model.Verdict
	for i := 0; i < 4; i++ {
		v, err := d.OnJoin(ctx, join(clock, fmt.Sprintf("u%d", i)), policy)
		require.NoError(t, err)
		if v != nil {
			last = v
		}
	}

	require.NotNil(t, last)
	assert.Equal(t, 4, last.Count)
	episodes := store.all()
	require.Len(t, episodes, 1)
	assert.Equal(t, 4, episodes[0].JoinCount)
	assert.Equal(t, last.EpisodeID, episodes[0].ID)

	// second burst a few minutes later lands in the same episode
	clock.Advance(3 * time.Minute)
	for i := 0; i < 3; i++ {
		_, err := d.OnJoin(ctx, join(clock, fmt.Sprintf("v%d", i)), policy)
		require.NoError(t, err)
	}
	episodes = store.all()
	require.Len(t, episodes, 1)
	assert.Equal(t, 3, episodes[0].JoinCount)
}

func TestRaidNewEpisodeAfterResolution(t *testing.T) {
	ctx := context.Background()
	clock := utils.NewFakeClock(epoch)
	store := &fakeRaidStore{}
	d := NewRaidDetector(clock, store)
	policy := raidPolicy(2, 10*time.Second)

	for i := 0; i < 2; i++ {
		_, err := d.OnJoin(ctx, join(clock, fmt.Sprintf("u%d", i)), policy)
		require.NoError(t, err)
	}
	require.Len(t, store.all(), 1)
	store.resolve(1)

	clock.Advance(time.Minute)
	var v *model.Verdict
	for i := 0; i < 2; i++ {
		var err error
		v, err = d.OnJoin(ctx, join(clock, fmt.Sprintf("v%d", i)), policy)
		require.NoError(t, err)
	}
	require.NotNil(t, v)
	assert.Equal(t, int64(2), v.EpisodeID)
	assert.Len(t, store.all(), 2)
}

func TestRaidNewEpisodeAfterReopenWindow(t *testing.T) {
	ctx := context.Background()
	clock := utils.NewFakeClock(epoch)
	store := &fakeRaidStore{}
	d := NewRaidDetector(clock, store)
	policy := raidPolicy(2, 10*time.Second)

	for i := 0; i < 2; i++ {
		_, err := d.OnJoin(ctx, join(clock, fmt.Sprintf("u%d", i)), policy)
		require.NoError(t, err)
	}
	clock.Advance(EpisodeReopenWindow + time.Second)
	for i := 0; i < 2; i++ {
		_, err := d.OnJoin(ctx, join(clock, fmt.Sprintf("v%d", i)), policy)
		require.NoError(t, err)
	}
	assert.Len(t, store.all(), 2)
}

func TestRaidDisabledKeepsNoState(t *testing.T) {
	ctx := context.Background()
	clock := utils.NewFakeClock(epoch)
	store := &fakeRaidStore{}
	d := NewRaidDetector(clock, store)
	policy := raidPolicy(2, 10*time.Second)

	_, err := d.OnJoin(ctx, join(clock, "u0"), policy)
	require.NoError(t, err)
	assert.Equal(t, 1, d.WindowSize("g1"))

	policy.AntiRaidEnabled = false
	for i := 1; i < 10; i++ {
		v, err := d.OnJoin(ctx, join(clock, fmt.Sprintf("u%d", i)), policy)
		require.NoError(t, err)
		assert.Nil(t, v)
	}
	assert.Zero(t, d.WindowSize("g1"))
	assert.Empty(t, store.all())

	v, err := d.OnJoin(ctx, join(clock, "u1"), nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRaidStoreErrorPropagates(t *testing.T) {
	clock := utils.NewFakeClock(epoch)
	store := &fakeRaidStore{err: assert.AnError}
	d := NewRaidDetector(clock, store)
	policy := raidPolicy(1, 10*time.Second)

	v, err := d.OnJoin(context.Background(), join(clock, "u0"), policy)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, v)
}

func TestRaidMembersAreHandedOutOnce(t *testing.T) {
	ctx := context.Background()
	clock := utils.NewFakeClock(epoch)
	store := &fakeRaidStore{}
	d := NewRaidDetector(clock, store)
	policy := raidPolicy(3, 10*time.Second)

	var batches [][]string
	var counts []int
	for i := 0; i < 5; i++ {
		v, err := d.OnJoin(ctx, join(clock, fmt.Sprintf("u%d", i)), policy)
		require.NoError(t, err)
		if v != nil {
			batches = append(batches, v.Members)
			counts = append(counts, v.Count)
		}
		clock.Advance(100 * time.Millisecond)
	}

	assert.Equal(t, [][]string{{"u0", "u1", "u2"}, {"u3"}, {"u4"}}, batches)
	assert.Equal(t, []int{3, 4, 5}, counts)
	require.Len(t, store.all(), 1)
	assert.Equal(t, 5, store.all()[0].JoinCount)

	// a removed member who rejoins during the raid is targeted again
	v, err := d.OnJoin(ctx, join(clock, "u0"), policy)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, []string{"u0"}, v.Members)
	assert.Equal(t, 6, v.Count)
}
