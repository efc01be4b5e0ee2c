// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetPlayback returns the resume point for an episode.
func (s *Store) GetPlayback(ctx context.Context, episodeID string) (PlaybackState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT episode_id, current_chunk_index, position_secs, percent_listened, updated_at
		FROM playback_state WHERE episode_id = ?`, episodeID)
	var p PlaybackState
	var updated sql.NullString
	err := row.Scan(&p.EpisodeID, &p.CurrentChunkIndex, &p.PositionSecs, &p.PercentListened, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return PlaybackState{}, fmt.Errorf("playback for %s: %w", episodeID, ErrNotFound)
	}
	if err != nil {
		return PlaybackState{}, fmt.Errorf("get playback: %w", err)
	}
	p.UpdatedAt = parseNullTime(updated)
	return p, nil
}

// SavePlayback upserts the resume point and stamps the episode's
// last_played_at. The caller validates the chunk index against the plan.
func (s *Store) SavePlayback(ctx context.Context, p PlaybackState) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		_, err := tx.ExecContext(ctx, `
			INSERT INTO playback_state (episode_id, current_chunk_index, position_secs, percent_listened, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(episode_id) DO UPDATE SET
				current_chunk_index = excluded.current_chunk_index,
				position_secs = excluded.position_secs,
				percent_listened = excluded.percent_listened,
				updated_at = excluded.updated_at`,
			p.EpisodeID, p.CurrentChunkIndex, p.PositionSecs, p.PercentListened, now)
		if err != nil {
			return fmt.Errorf("save playback: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE episodes SET last_played_at = ? WHERE id = ?`, now, p.EpisodeID)
		if err != nil {
			return fmt.Errorf("stamp last played: %w", err)
		}
		return requireRow(res, "episode", p.EpisodeID)
	})
}
