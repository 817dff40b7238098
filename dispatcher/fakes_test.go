package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"guild-guardian/model"
)

type call struct {
	op      string
	guildID string
	target  string
	until   *time.Time
	level   int
}

type fakePlatform struct {
	mu      sync.Mutex
	calls   []call
	alerts  []model.Alert
	level   map[string]int
	failOps map[string]error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{level: map[string]int{}, failOps: map[string]error{}}
}

func (p *fakePlatform) record(c call) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, c)
	return p.failOps[c.op]
}

func (p *fakePlatform) ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ops := make([]string, 0, len(p.calls))
	for _, c := range p.calls {
		ops = append(ops, c.op)
	}
	return ops
}

func (p *fakePlatform) DeleteMessage(_ context.Context, channelID, messageID string) error {
	return p.record(call{op: "delete", target: channelID + "/" + messageID})
}

func (p *fakePlatform) SendDirectMessage(_ context.Context, userID, _ string) error {
	return p.record(call{op: "dm", target: userID})
}

func (p *fakePlatform) TimeoutMember(_ context.Context, guildID, userID string, until *time.Time, _ string) error {
	return p.record(call{op: "timeout", guildID: guildID, target: userID, until: until})
}

func (p *fakePlatform) KickMember(_ context.Context, guildID, userID, _ string) error {
	return p.record(call{op: "kick", guildID: guildID, target: userID})
}

func (p *fakePlatform) BanMember(_ context.Context, guildID, userID, _ string) error {
	return p.record(call{op: "ban", guildID: guildID, target: userID})
}

func (p *fakePlatform) VerificationLevel(_ context.Context, guildID string) (int, error) {
	if err := p.record(call{op: "get_level", guildID: guildID}); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level[guildID], nil
}

func (p *fakePlatform) SetVerificationLevel(_ context.Context, guildID string, level int) error {
	if err := p.record(call{op: "set_level", guildID: guildID, level: level}); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level[guildID] = level
	return nil
}

func (p *fakePlatform) SendAlert(_ context.Context, channelID string, alert model.Alert) error {
	if err := p.record(call{op: "alert", target: channelID}); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
	return nil
}

func (p *fakePlatform) BotUserID() string { return "bot" }

type fakeStore struct {
	mu       sync.Mutex
	actions  []model.ModAction
	episodes map[int64]string
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{episodes: map[int64]string{}}
}

func (s *fakeStore) InsertModAction(_ context.Context, a model.ModAction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	a.ActionID = int64(len(s.actions) + 1)
	s.actions = append(s.actions, a)
	return a.ActionID, nil
}

func (s *fakeStore) SetRaidEpisodeAction(_ context.Context, id int64, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.episodes[id]; !ok {
		return fmt.Errorf("no raid episode found with ID %d", id)
	}
	s.episodes[id] = action
	return nil
}
