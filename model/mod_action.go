package model

import "time"

// ModActionType is the kind of sanction recorded in the audit ledger.
type ModActionType string

const (
	ModActionWarn    ModActionType = "warn"
	ModActionTimeout ModActionType = "timeout"
	ModActionKick    ModActionType = "kick"
	ModActionBan     ModActionType = "ban"
)

// ModAction is one append-only audit row in 'mod_actions'.
// Duration and ExpiresAt are unix milliseconds; zero means unset.
// ExpiresAt is only set for timeouts and is zeroed once the timeout has been lifted.
type ModAction struct {
	ActionID    int64         `db:"action_id"`
	GuildID     string        `db:"guild_id"`
	UserID      string        `db:"user_id"`
	ModeratorID string        `db:"moderator_id"`
	ActionType  ModActionType `db:"action_type"`
	Reason      string        `db:"reason"`
	Duration    int64         `db:"duration"`
	ExpiresAt   int64         `db:"expires_at"`
	CreatedAt   int64         `db:"created_at"`
}

// NewTimeoutAction builds a timeout row expiring d after now.
func NewTimeoutAction(guildID, userID, moderatorID, reason string, d time.Duration, now time.Time) ModAction {
	return ModAction{
		GuildID:     guildID,
		UserID:      userID,
		ModeratorID: moderatorID,
		ActionType:  ModActionTimeout,
		Reason:      reason,
		Duration:    d.Milliseconds(),
		ExpiresAt:   now.Add(d).UnixMilli(),
		CreatedAt:   now.UnixMilli(),
	}
}

func (a ModAction) Expiry() time.Time {
	if a.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(a.ExpiresAt)
}
