package protection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"guild-guardian/model"
	"guild-guardian/utils"
)

// EpisodeReopenWindow is how long an unresolved raid episode keeps absorbing new breaches.
const EpisodeReopenWindow = 10 * time.Minute

// RaidStore is the part of the Policy Store the raid detector writes episodes to.
type RaidStore interface {
	GetOpenRaidEpisode(ctx context.Context, guildID string, since time.Time) (*model.RaidEpisode, error)
	InsertRaidEpisode(ctx context.Context, ep model.RaidEpisode) (int64, error)
	UpdateRaidEpisode(ctx context.Context, ep model.RaidEpisode) error
}

type joinEntry struct {
	userID   string
	joinedAt time.Time
	// reported is set once the member has been handed out in a verdict
	reported bool
}

// RaidDetector keeps a rolling window of joins per guild.
type RaidDetector struct {
	clock utils.Clock
	store RaidStore

	mu      sync.Mutex
	windows map[string][]joinEntry
}

func NewRaidDetector(clock utils.Clock, store RaidStore) *RaidDetector {
	return &RaidDetector{
		clock:   clock,
		store:   store,
		windows: make(map[string][]joinEntry),
	}
}

// OnJoin records a join and returns a raid verdict when the guild's join
// count inside the window reaches the threshold. Count covers the whole
// window but Members only lists joins no earlier verdict carried, so a
// sustained raid never targets the same member twice.
func (d *RaidDetector) OnJoin(ctx context.Context, ev model.JoinEvent, policy *model.GuildPolicy) (*model.Verdict, error) {
	if policy == nil || !policy.AntiRaidEnabled {
		d.Forget(ev.GuildID)
		return nil, nil
	}

	now := d.clock.Now()
	joinedAt := ev.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = now
	}

	d.mu.Lock()
	cutoff := now.Add(-policy.RaidJoinWindow())
	window := pruneJoins(d.windows[ev.GuildID], cutoff)
	if joinedAt.After(cutoff) {
		window = append(window, joinEntry{userID: ev.UserID, joinedAt: joinedAt})
	}
	d.windows[ev.GuildID] = window
	count := len(window)
	if count < policy.RaidJoinThreshold {
		d.mu.Unlock()
		return nil, nil
	}
	var members []string
	for i := range window {
		if !window[i].reported {
			window[i].reported = true
			members = append(members, window[i].userID)
		}
	}
	d.mu.Unlock()

	episodeID, err := d.recordEpisode(ctx, ev.GuildID, count, now)
	if err != nil {
		return nil, err
	}

	return &model.Verdict{
		Kind:      model.VerdictRaid,
		GuildID:   ev.GuildID,
		UserID:    ev.UserID,
		Members:   members,
		Count:     count,
		EpisodeID: episodeID,
		Reason:    fmt.Sprintf("Anti-raid protection: %d joins in %s", count, utils.FormatDuration(policy.RaidJoinWindow())),
	}, nil
}

// recordEpisode extends the guild's open episode or opens a new one.
func (d *RaidDetector) recordEpisode(ctx context.Context, guildID string, count int, now time.Time) (int64, error) {
	open, err := d.store.GetOpenRaidEpisode(ctx, guildID, now.Add(-EpisodeReopenWindow))
	if err != nil {
		return 0, err
	}
	if open != nil {
		open.JoinCount = count
		open.UpdatedAt = now.UnixMilli()
		if err := d.store.UpdateRaidEpisode(ctx, *open); err != nil {
			return 0, err
		}
		return open.ID, nil
	}
	return d.store.InsertRaidEpisode(ctx, model.RaidEpisode{
		GuildID:   guildID,
		StartTime: now.UnixMilli(),
		JoinCount: count,
		CreatedAt: now.UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	})
}

// Forget drops the guild's join window.
func (d *RaidDetector) Forget(guildID string) {
	d.mu.Lock()
	delete(d.windows, guildID)
	d.mu.Unlock()
}

// WindowSize returns the number of joins currently held for the guild.
func (d *RaidDetector) WindowSize(guildID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.windows[guildID])
}

// pruneJoins drops entries at or before cutoff. Entries are in arrival order,
// which may differ slightly from joinedAt order, so every entry is checked.
func pruneJoins(window []joinEntry, cutoff time.Time) []joinEntry {
	kept := window[:0]
	for _, e := range window {
		if e.joinedAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept
}
