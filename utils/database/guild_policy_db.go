package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"guild-guardian/model"
)

// GetGuildPolicy returns the guild's policy, or nil if none has been configured.
func (s *Store) GetGuildPolicy(ctx context.Context, guildID string) (*model.GuildPolicy, error) {
	if c, ok := s.policies.Get(guildID); ok {
		if c.policy == nil {
			return nil, nil
		}
		p := *c.policy
		return &p, nil
	}

	var p model.GuildPolicy
	err := s.db.GetContext(ctx, &p, "SELECT * FROM guild_policies WHERE guild_id = ?", guildID)
	if errors.Is(err, sql.ErrNoRows) {
		s.policies.Add(guildID, cachedPolicy{})
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy for guild %s: %w", guildID, err)
	}
	p.Normalize()
	cached := p
	s.policies.Add(guildID, cachedPolicy{policy: &cached})
	return &p, nil
}

// UpsertGuildPolicy creates or replaces the guild's policy row.
func (s *Store) UpsertGuildPolicy(ctx context.Context, p *model.GuildPolicy) error {
	if p.GuildID == "" {
		return errors.New("guild policy has no guild id")
	}
	p.Normalize()
	now := time.Now().UnixMilli()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `INSERT INTO guild_policies (
		guild_id, anti_raid_enabled, anti_raid_join_threshold, anti_raid_join_time_window, anti_raid_action,
		anti_spam_enabled, anti_spam_message_threshold, anti_spam_time_window, anti_spam_action,
		anti_mention_enabled, anti_mention_threshold, anti_mention_action,
		anti_link_enabled, anti_link_whitelist, anti_link_action,
		anti_invite_enabled, anti_invite_action,
		anti_caps_enabled, anti_caps_threshold, anti_caps_min_length, anti_caps_action,
		alt_detection_enabled, alt_min_age, alt_action,
		automod_log_channel, mod_log_channel, member_log_channel, message_log_channel,
		join_role, auto_role_enabled, created_at, updated_at
	) VALUES (
		:guild_id, :anti_raid_enabled, :anti_raid_join_threshold, :anti_raid_join_time_window, :anti_raid_action,
		:anti_spam_enabled, :anti_spam_message_threshold, :anti_spam_time_window, :anti_spam_action,
		:anti_mention_enabled, :anti_mention_threshold, :anti_mention_action,
		:anti_link_enabled, :anti_link_whitelist, :anti_link_action,
		:anti_invite_enabled, :anti_invite_action,
		:anti_caps_enabled, :anti_caps_threshold, :anti_caps_min_length, :anti_caps_action,
		:alt_detection_enabled, :alt_min_age, :alt_action,
		:automod_log_channel, :mod_log_channel, :member_log_channel, :message_log_channel,
		:join_role, :auto_role_enabled, :created_at, :updated_at
	) ON CONFLICT(guild_id) DO UPDATE SET
		anti_raid_enabled = excluded.anti_raid_enabled,
		anti_raid_join_threshold = excluded.anti_raid_join_threshold,
		anti_raid_join_time_window = excluded.anti_raid_join_time_window,
		anti_raid_action = excluded.anti_raid_action,
		anti_spam_enabled = excluded.anti_spam_enabled,
		anti_spam_message_threshold = excluded.anti_spam_message_threshold,
		anti_spam_time_window = excluded.anti_spam_time_window,
		anti_spam_action = excluded.anti_spam_action,
		anti_mention_enabled = excluded.anti_mention_enabled,
		anti_mention_threshold = excluded.anti_mention_threshold,
		anti_mention_action = excluded.anti_mention_action,
		anti_link_enabled = excluded.anti_link_enabled,
		anti_link_whitelist = excluded.anti_link_whitelist,
		anti_link_action = excluded.anti_link_action,
		anti_invite_enabled = excluded.anti_invite_enabled,
		anti_invite_action = excluded.anti_invite_action,
		anti_caps_enabled = excluded.anti_caps_enabled,
		anti_caps_threshold = excluded.anti_caps_threshold,
		anti_caps_min_length = excluded.anti_caps_min_length,
		anti_caps_action = excluded.anti_caps_action,
		alt_detection_enabled = excluded.alt_detection_enabled,
		alt_min_age = excluded.alt_min_age,
		alt_action = excluded.alt_action,
		automod_log_channel = excluded.automod_log_channel,
		mod_log_channel = excluded.mod_log_channel,
		member_log_channel = excluded.member_log_channel,
		message_log_channel = excluded.message_log_channel,
		join_role = excluded.join_role,
		auto_role_enabled = excluded.auto_role_enabled,
		updated_at = excluded.updated_at`

	if _, err := s.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("failed to upsert policy for guild %s: %w", p.GuildID, err)
	}
	s.policies.Remove(p.GuildID)
	return nil
}

// EnsureGuildPolicy returns the guild's policy, creating the default row if absent.
func (s *Store) EnsureGuildPolicy(ctx context.Context, guildID string) (*model.GuildPolicy, error) {
	p, err := s.GetGuildPolicy(ctx, guildID)
	if err != nil || p != nil {
		return p, err
	}
	p = model.DefaultGuildPolicy(guildID)
	if err := s.UpsertGuildPolicy(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
