package database

import (
	"context"
	"fmt"
	"time"

	"guild-guardian/model"
)

// InsertModAction appends a row to the audit ledger and returns its ID.
func (s *Store) InsertModAction(ctx context.Context, a model.ModAction) (int64, error) {
	query := `INSERT INTO mod_actions (guild_id, user_id, moderator_id, action_type, reason, duration, expires_at, created_at)
			  VALUES (:guild_id, :user_id, :moderator_id, :action_type, :reason, :duration, :expires_at, :created_at)`
	result, err := s.db.NamedExecContext(ctx, query, a)
	if err != nil {
		return 0, fmt.Errorf("failed to insert mod action: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// QueryModActions returns a guild's mod actions, newest first. An empty userID returns every user's.
func (s *Store) QueryModActions(ctx context.Context, guildID, userID string) ([]model.ModAction, error) {
	var actions []model.ModAction
	query := "SELECT * FROM mod_actions WHERE guild_id = ?"
	args := []interface{}{guildID}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY created_at DESC, action_id DESC"

	if err := s.db.SelectContext(ctx, &actions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get mod actions for guild %s: %w", guildID, err)
	}
	return actions, nil
}

// CountModActionsByType counts a user's mod actions in a guild grouped by type.
func (s *Store) CountModActionsByType(ctx context.Context, guildID, userID string) (map[model.ModActionType]int, error) {
	query := `SELECT action_type, COUNT(*) AS count FROM mod_actions WHERE guild_id = ? AND user_id = ? GROUP BY action_type`
	rows, err := s.db.QueryxContext(ctx, query, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count mod actions for user %s in guild %s: %w", userID, guildID, err)
	}
	defer rows.Close()

	counts := make(map[model.ModActionType]int)
	for rows.Next() {
		var actionType string
		var count int
		if err := rows.Scan(&actionType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan mod action count row: %w", err)
		}
		counts[model.ModActionType(actionType)] = count
	}
	return counts, rows.Err()
}

// QueryExpiredTimeouts returns timeout rows with 0 < expires_at <= now.
func (s *Store) QueryExpiredTimeouts(ctx context.Context, now time.Time) ([]model.ModAction, error) {
	var actions []model.ModAction
	query := `SELECT * FROM mod_actions
			  WHERE action_type = ? AND expires_at > 0 AND expires_at <= ?
			  ORDER BY expires_at`
	if err := s.db.SelectContext(ctx, &actions, query, model.ModActionTimeout, now.UnixMilli()); err != nil {
		return nil, fmt.Errorf("failed to get expired timeouts: %w", err)
	}
	return actions, nil
}

// ClearModActionExpiry zeroes expires_at, marking the timeout as processed.
func (s *Store) ClearModActionExpiry(ctx context.Context, actionID int64) error {
	result, err := s.db.ExecContext(ctx, "UPDATE mod_actions SET expires_at = 0 WHERE action_id = ?", actionID)
	if err != nil {
		return fmt.Errorf("failed to clear expiry for mod action %d: %w", actionID, err)
	}
	return expectRow(result, "mod action", actionID)
}
