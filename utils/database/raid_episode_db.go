package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"guild-guardian/model"
)

// GetOpenRaidEpisode returns the newest unresolved episode that started after since, or nil.
func (s *Store) GetOpenRaidEpisode(ctx context.Context, guildID string, since time.Time) (*model.RaidEpisode, error) {
	var ep model.RaidEpisode
	query := `SELECT * FROM raid_episodes
			  WHERE guild_id = ? AND is_resolved = 0 AND start_time > ?
			  ORDER BY id DESC LIMIT 1`
	err := s.db.GetContext(ctx, &ep, query, guildID, since.UnixMilli())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open raid episode for guild %s: %w", guildID, err)
	}
	return &ep, nil
}

// InsertRaidEpisode adds a new episode and returns its ID.
func (s *Store) InsertRaidEpisode(ctx context.Context, ep model.RaidEpisode) (int64, error) {
	query := `INSERT INTO raid_episodes (guild_id, start_time, end_time, join_count, action_taken, is_resolved, created_at, updated_at)
			  VALUES (:guild_id, :start_time, :end_time, :join_count, :action_taken, :is_resolved, :created_at, :updated_at)`
	result, err := s.db.NamedExecContext(ctx, query, ep)
	if err != nil {
		return 0, fmt.Errorf("failed to insert raid episode: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// UpdateRaidEpisode writes back the mutable fields of an episode.
func (s *Store) UpdateRaidEpisode(ctx context.Context, ep model.RaidEpisode) error {
	query := `UPDATE raid_episodes
			  SET join_count = :join_count, action_taken = :action_taken, is_resolved = :is_resolved,
			      end_time = :end_time, updated_at = :updated_at
			  WHERE id = :id`
	result, err := s.db.NamedExecContext(ctx, query, ep)
	if err != nil {
		return fmt.Errorf("failed to update raid episode %d: %w", ep.ID, err)
	}
	return expectRow(result, "raid episode", ep.ID)
}

// SetRaidEpisodeAction records the description of what was done about an episode.
func (s *Store) SetRaidEpisodeAction(ctx context.Context, id int64, action string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE raid_episodes SET action_taken = ? WHERE id = ?", action, id)
	if err != nil {
		return fmt.Errorf("failed to set action for raid episode %d: %w", id, err)
	}
	return expectRow(result, "raid episode", id)
}

// ResolveRaidEpisode closes an episode explicitly.
func (s *Store) ResolveRaidEpisode(ctx context.Context, id int64, endTime time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE raid_episodes SET is_resolved = 1, end_time = ?, updated_at = ? WHERE id = ?",
		endTime.UnixMilli(), endTime.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to resolve raid episode %d: %w", id, err)
	}
	return expectRow(result, "raid episode", id)
}

// GetRaidEpisodes lists a guild's episodes, newest first.
func (s *Store) GetRaidEpisodes(ctx context.Context, guildID string) ([]model.RaidEpisode, error) {
	var eps []model.RaidEpisode
	err := s.db.SelectContext(ctx, &eps, "SELECT * FROM raid_episodes WHERE guild_id = ? ORDER BY id DESC", guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raid episodes for guild %s: %w", guildID, err)
	}
	return eps, nil
}

// PurgeOldRaidEpisodes deletes resolved episodes created before the cutoff.
func (s *Store) PurgeOldRaidEpisodes(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM raid_episodes WHERE is_resolved = 1 AND created_at < ?", before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge raid episodes: %w", err)
	}
	return result.RowsAffected()
}

// ResolveStaleRaidEpisodes marks unresolved episodes created before the cutoff
// as resolved, ending them at now.
func (s *Store) ResolveStaleRaidEpisodes(ctx context.Context, before, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE raid_episodes SET is_resolved = 1, end_time = ? WHERE is_resolved = 0 AND created_at < ?",
		now.UnixMilli(), before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to resolve stale raid episodes: %w", err)
	}
	return result.RowsAffected()
}

func expectRow(result sql.Result, what string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for %s %d: %w", what, id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no %s found with ID %d", what, id)
	}
	return nil
}
