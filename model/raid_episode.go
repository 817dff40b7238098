package model

// RaidEpisode represents one detected join flood in 'raid_episodes'.
// At most one unresolved episode per guild is open at a time.
type RaidEpisode struct {
	ID          int64  `db:"id"`
	GuildID     string `db:"guild_id"`
	StartTime   int64  `db:"start_time"`
	EndTime     int64  `db:"end_time"`
	JoinCount   int    `db:"join_count"`
	ActionTaken string `db:"action_taken"`
	Resolved    bool   `db:"is_resolved"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}
