package model

// AutoResponse is a canned reply sent when a guild message matches Trigger.
// Plain triggers match as case-insensitive substrings, regex triggers as
// case-insensitive patterns.
type AutoResponse struct {
	ID        int64  `db:"id"`
	GuildID   string `db:"guild_id"`
	Trigger   string `db:"trigger_text"`
	Response  string `db:"response"`
	IsRegex   bool   `db:"is_regex"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}
