package guildlog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"guild-guardian/model"
	"guild-guardian/utils"
	"guild-guardian/utils/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type sentAlert struct {
	channelID string
	alert     model.Alert
}

type sentMessage struct {
	channelID string
	content   string
}

type fakePlatform struct {
	mu       sync.Mutex
	alerts   []sentAlert
	messages []sentMessage
	roles    []string
	// failing message contents return an error from SendMessage
	failing map[string]bool
	roleErr error
}

func (p *fakePlatform) SendAlert(_ context.Context, channelID string, alert model.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, sentAlert{channelID, alert})
	return nil
}

func (p *fakePlatform) SendMessage(_ context.Context, channelID, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing[content] {
		return errors.New("missing access")
	}
	p.messages = append(p.messages, sentMessage{channelID, content})
	return nil
}

func (p *fakePlatform) AddMemberRole(_ context.Context, _, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.roleErr != nil {
		return p.roleErr
	}
	p.roles = append(p.roles, userID+":"+roleID)
	return nil
}

func newTestService(t *testing.T, policy *model.GuildPolicy) (*Service, *fakePlatform, *database.Store) {
	t.Helper()
	store, err := database.Open(":memory:", 16, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	if policy != nil {
		require.NoError(t, store.UpsertGuildPolicy(context.Background(), policy))
	}
	platform := &fakePlatform{failing: map[string]bool{}}
	return New(platform, store, utils.NewFakeClock(epoch), zap.NewNop()), platform, store
}

func addRule(t *testing.T, store *database.Store, trigger, response string, regex bool) {
	t.Helper()
	_, err := store.InsertAutoResponse(context.Background(), model.AutoResponse{
		GuildID: "g1", Trigger: trigger, Response: response, IsRegex: regex,
	})
	require.NoError(t, err)
}

func message(content string) model.MessageEvent {
	return model.MessageEvent{
		GuildID:   "g1",
		ChannelID: "general",
		MessageID: "m1",
		AuthorID:  "u1",
		AuthorTag: "alice",
		Content:   content,
	}
}

func TestHandleJoinPostsMemberLog(t *testing.T) {
	policy := model.DefaultGuildPolicy("g1")
	policy.MemberLogChannel = "members"
	svc, platform, _ := newTestService(t, policy)

	created := epoch.Add(-48 * time.Hour)
	require.NoError(t, svc.HandleJoin(context.Background(), model.JoinEvent{
		GuildID: "g1", UserID: "u1", UserTag: "alice", AvatarURL: "https://cdn/a.png",
		AccountCreatedAt: created, MemberCount: 42,
	}))

	require.Len(t, platform.alerts, 1)
	got := platform.alerts[0]
	assert.Equal(t, "members", got.channelID)
	assert.Equal(t, "Member Joined", got.alert.Title)
	assert.Equal(t, "alice (u1)", got.alert.Description)
	assert.Equal(t, model.ColorGreen, got.alert.Color)
	assert.Equal(t, "https://cdn/a.png", got.alert.ThumbnailURL)
	assert.Equal(t, []model.AlertField{
		{Name: "Account Created", Value: "<t:1709121600:R>", Inline: true},
		{Name: "Member Count", Value: "42", Inline: true},
	}, got.alert.Fields)
	assert.Empty(t, platform.roles)
}

func TestHandleJoinAssignsJoinRoleOnlyWhenEnabled(t *testing.T) {
	policy := model.DefaultGuildPolicy("g1")
	policy.JoinRoleID = "r1"
	svc, platform, store := newTestService(t, policy)
	ctx := context.Background()

	require.NoError(t, svc.HandleJoin(ctx, model.JoinEvent{GuildID: "g1", UserID: "u1"}))
	assert.Empty(t, platform.roles)

	policy.AutoRoleEnabled = true
	require.NoError(t, store.UpsertGuildPolicy(ctx, policy))
	require.NoError(t, svc.HandleJoin(ctx, model.JoinEvent{GuildID: "g1", UserID: "u2"}))
	assert.Equal(t, []string{"u2:r1"}, platform.roles)
	assert.Empty(t, platform.alerts, "no member log channel configured")
}

func TestHandleJoinSwallowsRoleFailures(t *testing.T) {
	policy := model.DefaultGuildPolicy("g1")
	policy.JoinRoleID = "r1"
	policy.AutoRoleEnabled = true
	svc, platform, _ := newTestService(t, policy)
	platform.roleErr = errors.New("missing permissions")

	assert.NoError(t, svc.HandleJoin(context.Background(), model.JoinEvent{GuildID: "g1", UserID: "u1"}))
}

func TestHandleJoinWithoutPolicy(t *testing.T) {
	svc, platform, _ := newTestService(t, nil)
	require.NoError(t, svc.HandleJoin(context.Background(), model.JoinEvent{GuildID: "g1", UserID: "u1"}))
	assert.Empty(t, platform.alerts)
	assert.Empty(t, platform.roles)
}

func TestMessageLogFilters(t *testing.T) {
	policy := model.DefaultGuildPolicy("g1")
	policy.MessageLogChannel = "messages"
	svc, platform, _ := newTestService(t, policy)
	ctx := context.Background()

	skipped := []model.MessageEvent{
		message("hey"),
		message("!command with args"),
		message("/slash command text"),
		message(""),
		func() model.MessageEvent {
			m := message("posted in the log channel")
			m.ChannelID = "messages"
			return m
		}(),
		func() model.MessageEvent { m := message("a bot talking here"); m.Bot = true; return m }(),
		func() model.MessageEvent { m := message("a webhook talking"); m.WebhookID = "w1"; return m }(),
		func() model.MessageEvent { m := message("direct message text"); m.GuildID = ""; return m }(),
	}
	for _, m := range skipped {
		require.NoError(t, svc.HandleMessage(ctx, m))
	}
	assert.Empty(t, platform.alerts)

	require.NoError(t, svc.HandleMessage(ctx, message("héllo")))
	require.Len(t, platform.alerts, 1, "five runes is long enough")
}

func TestMessageLogEntry(t *testing.T) {
	policy := model.DefaultGuildPolicy("g1")
	policy.MessageLogChannel = "messages"
	svc, platform, _ := newTestService(t, policy)

	m := message("look at these files")
	m.AuthorAvatarURL = "https://cdn/alice.png"
	m.Attachments = []model.Attachment{
		{Name: "a.png", URL: "https://cdn/a.png"},
		{Name: "b.txt", URL: "https://cdn/b.txt"},
	}
	require.NoError(t, svc.HandleMessage(context.Background(), m))

	require.Len(t, platform.alerts, 1)
	got := platform.alerts[0]
	assert.Equal(t, "messages", got.channelID)
	assert.Equal(t, "alice", got.alert.AuthorName)
	assert.Equal(t, "https://cdn/alice.png", got.alert.AuthorIconURL)
	assert.Equal(t, "look at these files", got.alert.Description)
	assert.Equal(t, model.ColorBlue, got.alert.Color)
	assert.Equal(t, []model.AlertField{
		{Name: "Channel", Value: "<#general>", Inline: true},
		{Name: "User ID", Value: "u1", Inline: true},
		{Name: "Attachments", Value: "[a.png](https://cdn/a.png)\n[b.txt](https://cdn/b.txt)"},
	}, got.alert.Fields)
}

func TestAutoResponseFirstMatchWins(t *testing.T) {
	svc, platform, store := newTestService(t, nil)
	addRule(t, store, "hello", "hi there", false)
	addRule(t, store, "HELLO", "second", false)

	require.NoError(t, svc.HandleMessage(context.Background(), message("well HeLLo everyone")))
	assert.Equal(t, []sentMessage{{"general", "hi there"}}, platform.messages)
}

func TestAutoResponseRegexIsCaseInsensitive(t *testing.T) {
	svc, platform, store := newTestService(t, nil)
	addRule(t, store, `^rules?\b`, "read #rules", true)

	ctx := context.Background()
	require.NoError(t, svc.HandleMessage(ctx, message("RULES please")))
	require.NoError(t, svc.HandleMessage(ctx, message("where are the rules")))
	assert.Equal(t, []sentMessage{{"general", "read #rules"}}, platform.messages)
}

func TestAutoResponseSkipsBrokenPatterns(t *testing.T) {
	svc, platform, store := newTestService(t, nil)
	addRule(t, store, `([a-z`, "never", true)
	addRule(t, store, "faq", "see the faq", false)

	require.NoError(t, svc.HandleMessage(context.Background(), message("is there a faq")))
	assert.Equal(t, []sentMessage{{"general", "see the faq"}}, platform.messages)
}

func TestAutoResponseFallsThroughOnSendFailure(t *testing.T) {
	svc, platform, store := newTestService(t, nil)
	addRule(t, store, "help", "first", false)
	addRule(t, store, "help", "second", false)
	addRule(t, store, "help", "third", false)
	platform.failing["first"] = true

	require.NoError(t, svc.HandleMessage(context.Background(), message("help me")))
	assert.Equal(t, []sentMessage{{"general", "second"}}, platform.messages)
}

func TestAutoResponseIgnoresBots(t *testing.T) {
	svc, platform, store := newTestService(t, nil)
	addRule(t, store, "help", "on it", false)

	m := message("help")
	m.Bot = true
	require.NoError(t, svc.HandleMessage(context.Background(), m))
	assert.Empty(t, platform.messages)
}

func TestAutoResponseSeesNewRules(t *testing.T) {
	svc, platform, store := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.HandleMessage(ctx, message("ping")))
	addRule(t, store, "ping", "pong", false)
	require.NoError(t, svc.HandleMessage(ctx, message("ping")))
	assert.Equal(t, []sentMessage{{"general", "pong"}}, platform.messages)
}

func TestModLog(t *testing.T) {
	policy := model.DefaultGuildPolicy("g1")
	policy.AutomodLogChannel = "automod"
	svc, platform, store := newTestService(t, policy)
	ctx := context.Background()

	alert := model.Alert{Title: "Member Warned"}
	require.NoError(t, svc.ModLog(ctx, "g1", alert))
	assert.Empty(t, platform.alerts, "automod channel is not the mod log")

	policy.ModLogChannel = "modlog"
	require.NoError(t, store.UpsertGuildPolicy(ctx, policy))
	require.NoError(t, svc.ModLog(ctx, "g1", alert))
	assert.Equal(t, []sentAlert{{"modlog", alert}}, platform.alerts)
}

func TestCompileTrigger(t *testing.T) {
	re, err := CompileTrigger(`good\s+morning`)
	require.NoError(t, err)
	assert.True(t, re.MatchString("GOOD   Morning all"))

	_, err = CompileTrigger(`(unclosed`)
	assert.Error(t, err)

	_, err = CompileTrigger(strings.Repeat("a", maxPatternLength+1))
	assert.Error(t, err)
}
