package protection

import (
	"fmt"
	"time"

	"guild-guardian/model"
)

// CheckAltAccount fires when a joining account is younger than the guild's minimum age.
func CheckAltAccount(ev model.JoinEvent, p *model.GuildPolicy, now time.Time) *model.Verdict {
	if p == nil || !p.AltDetectionEnabled || ev.Bot || ev.AccountCreatedAt.IsZero() {
		return nil
	}
	age := now.Sub(ev.AccountCreatedAt)
	if age >= p.AltMinAge() {
		return nil
	}
	return &model.Verdict{
		Kind:    model.VerdictAlt,
		GuildID: ev.GuildID,
		UserID:  ev.UserID,
		Count:   int(age / (24 * time.Hour)),
		Reason:  fmt.Sprintf("Alt account detection: Account too new (%.1f days)", age.Hours()/24),
	}
}
