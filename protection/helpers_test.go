package protection

import (
	"context"
	"errors"
	"sync"
	"time"

	"guild-guardian/model"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeRaidStore struct {
	mu       sync.Mutex
	episodes []model.RaidEpisode
	err      error
}

func (s *fakeRaidStore) GetOpenRaidEpisode(_ context.Context, guildID string, since time.Time) (*model.RaidEpisode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for i := len(s.episodes) - 1; i >= 0; i-- {
		ep := s.episodes[i]
		if ep.GuildID == guildID && !ep.Resolved && ep.StartTime > since.UnixMilli() {
			return &ep, nil
		}
	}
	return nil, nil
}

func (s *fakeRaidStore) InsertRaidEpisode(_ context.Context, ep model.RaidEpisode) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ep.ID = int64(len(s.episodes) + 1)
	s.episodes = append(s.episodes, ep)
	return ep.ID, nil
}

func (s *fakeRaidStore) UpdateRaidEpisode(_ context.Context, ep model.RaidEpisode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.episodes {
		if s.episodes[i].ID == ep.ID {
			s.episodes[i] = ep
			return nil
		}
	}
	return errors.New("no such episode")
}

func (s *fakeRaidStore) resolve(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodes[id-1].Resolved = true
}

func (s *fakeRaidStore) all() []model.RaidEpisode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RaidEpisode(nil), s.episodes...)
}

type fakePolicies struct {
	policies map[string]*model.GuildPolicy
	err      error
}

func (f *fakePolicies) GetGuildPolicy(_ context.Context, guildID string) (*model.GuildPolicy, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.policies[guildID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

type dispatched struct {
	verdict model.Verdict
}

type fakeDispatcher struct {
	mu         sync.Mutex
	dispatches []dispatched
	alerts     []model.Alert
	channels   []string
	err        error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, v model.Verdict, _ *model.GuildPolicy) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatches = append(d.dispatches, dispatched{verdict: v})
	return string(v.Kind) + " handled", d.err
}

func (d *fakeDispatcher) Alert(_ context.Context, channelID string, alert model.Alert) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels = append(d.channels, channelID)
	d.alerts = append(d.alerts, alert)
}

func message(guildID, userID, id, content string) model.MessageEvent {
	return model.MessageEvent{
		GuildID:   guildID,
		ChannelID: "c1",
		MessageID: id,
		AuthorID:  userID,
		AuthorTag: userID + "#0001",
		Content:   content,
	}
}
