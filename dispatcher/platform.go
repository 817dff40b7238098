package dispatcher

import (
	"context"
	"time"

	"guild-guardian/model"
)

// Platform is the chat platform surface the dispatcher and reconciler mutate.
type Platform interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendDirectMessage(ctx context.Context, userID, content string) error
	// TimeoutMember applies a timeout until the given time; nil lifts it.
	TimeoutMember(ctx context.Context, guildID, userID string, until *time.Time, reason string) error
	KickMember(ctx context.Context, guildID, userID, reason string) error
	BanMember(ctx context.Context, guildID, userID, reason string) error
	VerificationLevel(ctx context.Context, guildID string) (int, error)
	SetVerificationLevel(ctx context.Context, guildID string, level int) error
	SendAlert(ctx context.Context, channelID string, alert model.Alert) error
	BotUserID() string
}

// Store is the ledger the dispatcher writes to.
type Store interface {
	InsertModAction(ctx context.Context, a model.ModAction) (int64, error)
	SetRaidEpisodeAction(ctx context.Context, id int64, action string) error
}
