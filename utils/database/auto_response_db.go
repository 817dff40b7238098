package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"guild-guardian/model"
)

// MaxAutoResponses caps how many auto responses one guild may configure.
const MaxAutoResponses = 50

var ErrAutoResponseLimit = errors.New("auto response limit reached")

// ListAutoResponses returns the guild's auto responses in creation order.
// Results are cached per guild until the guild's rules change.
func (s *Store) ListAutoResponses(ctx context.Context, guildID string) ([]model.AutoResponse, error) {
	if rules, ok := s.responses.Get(guildID); ok {
		return slices.Clone(rules), nil
	}
	var rules []model.AutoResponse
	err := s.db.SelectContext(ctx, &rules, "SELECT * FROM auto_responses WHERE guild_id = ? ORDER BY id", guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get auto responses for guild %s: %w", guildID, err)
	}
	s.responses.Add(guildID, slices.Clone(rules))
	return rules, nil
}

// InsertAutoResponse stores a new auto response and returns its ID.
func (s *Store) InsertAutoResponse(ctx context.Context, r model.AutoResponse) (int64, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM auto_responses WHERE guild_id = ?", r.GuildID); err != nil {
		return 0, fmt.Errorf("failed to count auto responses for guild %s: %w", r.GuildID, err)
	}
	if count >= MaxAutoResponses {
		return 0, fmt.Errorf("guild %s has %d auto responses: %w", r.GuildID, count, ErrAutoResponseLimit)
	}

	now := time.Now().UnixMilli()
	r.CreatedAt, r.UpdatedAt = now, now
	query := `INSERT INTO auto_responses (guild_id, trigger_text, response, is_regex, created_at, updated_at)
			  VALUES (:guild_id, :trigger_text, :response, :is_regex, :created_at, :updated_at)`
	result, err := s.db.NamedExecContext(ctx, query, r)
	if err != nil {
		return 0, fmt.Errorf("failed to insert auto response for guild %s: %w", r.GuildID, err)
	}
	s.responses.Remove(r.GuildID)
	return result.LastInsertId()
}

// DeleteAutoResponse removes one of the guild's auto responses.
func (s *Store) DeleteAutoResponse(ctx context.Context, guildID string, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM auto_responses WHERE guild_id = ? AND id = ?", guildID, id)
	if err != nil {
		return fmt.Errorf("failed to delete auto response %d: %w", id, err)
	}
	s.responses.Remove(guildID)
	return expectRow(result, "auto response", id)
}
