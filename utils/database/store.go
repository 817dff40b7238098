package database

import (
	"fmt"
	"time"

	"guild-guardian/model"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS guild_policies (
	guild_id TEXT PRIMARY KEY,
	anti_raid_enabled INTEGER NOT NULL DEFAULT 0,
	anti_raid_join_threshold INTEGER NOT NULL DEFAULT 10,
	anti_raid_join_time_window INTEGER NOT NULL DEFAULT 10000,
	anti_raid_action TEXT NOT NULL DEFAULT 'kick',
	anti_spam_enabled INTEGER NOT NULL DEFAULT 0,
	anti_spam_message_threshold INTEGER NOT NULL DEFAULT 5,
	anti_spam_time_window INTEGER NOT NULL DEFAULT 3000,
	anti_spam_action TEXT NOT NULL DEFAULT 'mute',
	anti_mention_enabled INTEGER NOT NULL DEFAULT 0,
	anti_mention_threshold INTEGER NOT NULL DEFAULT 5,
	anti_mention_action TEXT NOT NULL DEFAULT 'mute',
	anti_link_enabled INTEGER NOT NULL DEFAULT 0,
	anti_link_whitelist TEXT NOT NULL DEFAULT '',
	anti_link_action TEXT NOT NULL DEFAULT 'delete',
	anti_invite_enabled INTEGER NOT NULL DEFAULT 0,
	anti_invite_action TEXT NOT NULL DEFAULT 'delete',
	anti_caps_enabled INTEGER NOT NULL DEFAULT 0,
	anti_caps_threshold INTEGER NOT NULL DEFAULT 70,
	anti_caps_min_length INTEGER NOT NULL DEFAULT 10,
	anti_caps_action TEXT NOT NULL DEFAULT 'delete',
	alt_detection_enabled INTEGER NOT NULL DEFAULT 0,
	alt_min_age INTEGER NOT NULL DEFAULT 604800000,
	alt_action TEXT NOT NULL DEFAULT 'kick',
	automod_log_channel TEXT NOT NULL DEFAULT '',
	mod_log_channel TEXT NOT NULL DEFAULT '',
	member_log_channel TEXT NOT NULL DEFAULT '',
	message_log_channel TEXT NOT NULL DEFAULT '',
	join_role TEXT NOT NULL DEFAULT '',
	auto_role_enabled INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS mod_actions (
	action_id INTEGER PRIMARY KEY AUTOINCREMENT,
	guild_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	moderator_id TEXT NOT NULL,
	action_type TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	duration INTEGER NOT NULL DEFAULT 0,
	expires_at INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mod_actions_user ON mod_actions(user_id, guild_id);
CREATE INDEX IF NOT EXISTS idx_mod_actions_expiry ON mod_actions(action_type, expires_at);

CREATE TABLE IF NOT EXISTS role_permissions (
	guild_id TEXT NOT NULL,
	role_id TEXT NOT NULL,
	command TEXT NOT NULL,
	allowed INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (guild_id, role_id, command)
);

CREATE TABLE IF NOT EXISTS command_restrictions (
	guild_id TEXT NOT NULL,
	command TEXT NOT NULL,
	restricted_for_admins INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (guild_id, command)
);

CREATE TABLE IF NOT EXISTS raid_episodes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guild_id TEXT NOT NULL,
	start_time INTEGER NOT NULL,
	end_time INTEGER NOT NULL DEFAULT 0,
	join_count INTEGER NOT NULL,
	action_taken TEXT NOT NULL DEFAULT '',
	is_resolved INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_raid_episodes_open ON raid_episodes(guild_id, is_resolved, start_time);

CREATE TABLE IF NOT EXISTS auto_responses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guild_id TEXT NOT NULL,
	trigger_text TEXT NOT NULL,
	response TEXT NOT NULL,
	is_regex INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_auto_responses_guild ON auto_responses(guild_id);
`

// Store is the Policy Store: guild policies, the mod action ledger,
// role permission grants and raid episodes.
type Store struct {
	db        *sqlx.DB
	policies  *expirable.LRU[string, cachedPolicy]
	responses *expirable.LRU[string, []model.AutoResponse]
}

// cachedPolicy also records absence, so guilds without a policy row do not hit the database per message.
type cachedPolicy struct {
	policy *model.GuildPolicy
}

// Open connects to the sqlite database at dbPath and ensures all tables exist.
func Open(dbPath string, cacheSize int, cacheTTL time.Duration) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	s, err := New(db, cacheSize, cacheTTL)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and creates the schema.
func New(db *sqlx.DB, cacheSize int, cacheTTL time.Duration) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	return &Store{
		db:        db,
		policies:  expirable.NewLRU[string, cachedPolicy](cacheSize, nil, cacheTTL),
		responses: expirable.NewLRU[string, []model.AutoResponse](cacheSize, nil, cacheTTL),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
