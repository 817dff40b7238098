package protection

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"

	"guild-guardian/model"

	"github.com/PuerkitoBio/purell"
)

var (
	linkPattern   = regexp.MustCompile(`(?i)https?://[^\s]+`)
	invitePattern = regexp.MustCompile(`(discord\.gg/|discordapp\.com/invite/)[a-zA-Z0-9]+`)
)

// CheckMentions fires when distinct user and role mentions reach the threshold.
func CheckMentions(msg model.MessageEvent, p *model.GuildPolicy) *model.Verdict {
	if !p.AntiMentionEnabled {
		return nil
	}
	count := countDistinct(msg.MentionUserIDs) + countDistinct(msg.MentionRoleIDs)
	if count == 0 || count < p.MentionThreshold {
		return nil
	}
	return &model.Verdict{
		Kind:     model.VerdictMention,
		GuildID:  msg.GuildID,
		UserID:   msg.AuthorID,
		Messages: []model.MessageRef{msg.Ref()},
		Count:    count,
		Reason:   "AutoMod: Mass mentions detected",
	}
}

// CheckLinks fires when the message carries a link outside the guild's whitelist.
// With no whitelist every link is blocked.
func CheckLinks(msg model.MessageEvent, p *model.GuildPolicy) *model.Verdict {
	if !p.AntiLinkEnabled || !strings.Contains(strings.ToLower(msg.Content), "http") {
		return nil
	}
	links := linkPattern.FindAllString(msg.Content, -1)
	if len(links) == 0 {
		return nil
	}

	whitelist := p.Whitelist()
	blocked := 0
	for _, link := range links {
		if linkBlocked(link, whitelist) {
			blocked++
		}
	}
	if blocked == 0 {
		return nil
	}
	return &model.Verdict{
		Kind:     model.VerdictLink,
		GuildID:  msg.GuildID,
		UserID:   msg.AuthorID,
		Messages: []model.MessageRef{msg.Ref()},
		Count:    blocked,
		Reason:   "AutoMod: Unauthorized links detected",
	}
}

// linkBlocked fails closed: a link that cannot be parsed is blocked.
func linkBlocked(link string, whitelist []string) bool {
	if len(whitelist) == 0 {
		return true
	}
	normalized, err := purell.NormalizeURLString(link, purell.FlagsSafe)
	if err != nil {
		return true
	}
	u, err := url.Parse(normalized)
	if err != nil || u.Hostname() == "" {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range whitelist {
		if strings.Contains(host, strings.ToLower(domain)) {
			return false
		}
	}
	return true
}

// CheckInvites fires on any discord.gg or discordapp.com/invite link.
func CheckInvites(msg model.MessageEvent, p *model.GuildPolicy) *model.Verdict {
	if !p.AntiInviteEnabled {
		return nil
	}
	if !strings.Contains(msg.Content, "discord.gg/") && !strings.Contains(msg.Content, "discordapp.com/invite/") {
		return nil
	}
	matches := invitePattern.FindAllString(msg.Content, -1)
	if len(matches) == 0 {
		return nil
	}
	return &model.Verdict{
		Kind:     model.VerdictInvite,
		GuildID:  msg.GuildID,
		UserID:   msg.AuthorID,
		Messages: []model.MessageRef{msg.Ref()},
		Count:    len(matches),
		Reason:   "AutoMod: Discord invite detected",
	}
}

// CheckCaps fires when the share of uppercase ASCII letters reaches the threshold.
// Count carries the rounded percentage.
func CheckCaps(msg model.MessageEvent, p *model.GuildPolicy) *model.Verdict {
	if !p.AntiCapsEnabled || len(msg.Content) < p.CapsMinLength {
		return nil
	}
	pct, ok := capsPercentage(msg.Content, p.CapsMinLength)
	if !ok || pct < float64(p.CapsThreshold) {
		return nil
	}
	rounded := int(math.Round(pct))
	return &model.Verdict{
		Kind:     model.VerdictCaps,
		GuildID:  msg.GuildID,
		UserID:   msg.AuthorID,
		Messages: []model.MessageRef{msg.Ref()},
		Count:    rounded,
		Reason:   fmt.Sprintf("AutoMod: Excessive caps detected (%d%%)", rounded),
	}
}

func capsPercentage(content string, minLetters int) (float64, bool) {
	letters, upper := 0, 0
	for _, r := range content {
		switch {
		case r >= 'A' && r <= 'Z':
			letters++
			upper++
		case r >= 'a' && r <= 'z':
			letters++
		}
	}
	if letters == 0 || letters < minLetters {
		return 0, false
	}
	return float64(upper) / float64(letters) * 100, true
}

func countDistinct(ids []string) int {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

type classifier struct {
	kind  model.VerdictKind
	check func(model.MessageEvent, *model.GuildPolicy) *model.Verdict
}

var classifiers = []classifier{
	{model.VerdictMention, CheckMentions},
	{model.VerdictLink, CheckLinks},
	{model.VerdictInvite, CheckInvites},
	{model.VerdictCaps, CheckCaps},
}

// Classify runs every content classifier against the message. A classifier
// that panics is reported in errs and does not stop the others.
func Classify(msg model.MessageEvent, p *model.GuildPolicy) (verdicts []model.Verdict, errs []error) {
	if p == nil {
		return nil, nil
	}
	for _, c := range classifiers {
		v, err := runClassifier(c, msg, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if v != nil {
			verdicts = append(verdicts, *v)
		}
	}
	return verdicts, errs
}

func runClassifier(c classifier, msg model.MessageEvent, p *model.GuildPolicy) (v *model.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			classifierPanicCount.WithLabelValues(string(c.kind)).Inc()
			err = fmt.Errorf("%s classifier panic: %v", c.kind, r)
		}
	}()
	return c.check(msg, p), nil
}
