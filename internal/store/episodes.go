// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const episodeColumns = `id, source_id, title, voice_id, output_format,
	chunk_strategy, chunk_max_length, breathing_intensity, status,
	total_duration_secs, COALESCE(folder_id, ''), created_at, updated_at,
	last_played_at`

func scanEpisode(row interface{ Scan(...any) error }) (Episode, error) {
	var e Episode
	var created, updated string
	var lastPlayed sql.NullString
	err := row.Scan(
		&e.ID, &e.SourceID, &e.Title, &e.VoiceID, &e.OutputFormat,
		&e.ChunkStrategy, &e.ChunkMaxLength, &e.BreathingIntensity, &e.Status,
		&e.TotalDurationSecs, &e.FolderID, &created, &updated, &lastPlayed,
	)
	if err != nil {
		return Episode{}, err
	}
	e.CreatedAt = parseTime(created)
	e.UpdatedAt = parseTime(updated)
	e.LastPlayedAt = parseNullTime(lastPlayed)
	return e, nil
}

// CreateEpisode inserts an episode, its chunk plan and an empty playback
// row in one transaction. The chunk plan is immutable for the lifetime of
// the episode.
func (s *Store) CreateEpisode(ctx context.Context, ep Episode, chunks []Chunk) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		_, err := tx.ExecContext(ctx, `
			INSERT INTO episodes (id, source_id, title, voice_id, output_format,
				chunk_strategy, chunk_max_length, breathing_intensity, status,
				total_duration_secs, folder_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
			ep.ID, ep.SourceID, ep.Title, ep.VoiceID, ep.OutputFormat,
			ep.ChunkStrategy, ep.ChunkMaxLength, ep.BreathingIntensity,
			EpisodePending, nullable(ep.FolderID), now, now,
		)
		if err != nil {
			return fmt.Errorf("insert episode: %w", err)
		}
		if err := insertChunks(ctx, tx, ep.ID, chunks, now); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO playback_state (episode_id) VALUES (?)`, ep.ID)
		if err != nil {
			return fmt.Errorf("insert playback state: %w", err)
		}
		return nil
	})
}

func insertChunks(ctx context.Context, tx *sql.Tx, episodeID string, chunks []Chunk, now string) error {
	for _, c := range chunks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (episode_id, chunk_index, text, label, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			episodeID, c.Index, c.Text, c.Label, ChunkPending, now,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
	}
	return nil
}

// GetEpisode retrieves an episode by id.
func (s *Store) GetEpisode(ctx context.Context, id string) (Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Episode{}, fmt.Errorf("episode %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Episode{}, fmt.Errorf("get episode: %w", err)
	}
	return ep, nil
}

// ListEpisodes returns episodes, optionally filtered by source or folder,
// newest first.
func (s *Store) ListEpisodes(ctx context.Context, sourceID, folderID string) ([]Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes`
	var args []any
	switch {
	case sourceID != "":
		query += ` WHERE source_id = ?`
		args = append(args, sourceID)
	case folderID != "":
		query += ` WHERE folder_id = ?`
		args = append(args, folderID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// ReadyEpisodesInFolder returns the ready episodes directly inside a folder
// (or at the root when folderID is empty), ordered by title.
func (s *Store) ReadyEpisodesInFolder(ctx context.Context, folderID string) ([]Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE status = ? AND `
	args := []any{EpisodeReady}
	if folderID == "" {
		query += `folder_id IS NULL`
	} else {
		query += `folder_id = ?`
		args = append(args, folderID)
	}
	query += ` ORDER BY title`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("folder episodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// SetEpisodeStatus updates the lifecycle status of an episode.
func (s *Store) SetEpisodeStatus(ctx context.Context, id string, status EpisodeStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE episodes SET status = ?, updated_at = ? WHERE id = ?`,
		status, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set episode status: %w", err)
	}
	return requireRow(res, "episode", id)
}

// FinalizeEpisode records a terminal status together with the summed
// chunk durations.
func (s *Store) FinalizeEpisode(ctx context.Context, id string, status EpisodeStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE episodes SET status = ?, updated_at = ?,
			total_duration_secs = (
				SELECT COALESCE(SUM(duration_secs), 0) FROM chunks
				WHERE episode_id = ? AND status = ?
			)
		WHERE id = ?`,
		status, formatTime(time.Now()), id, ChunkReady, id,
	)
	if err != nil {
		return fmt.Errorf("finalize episode: %w", err)
	}
	return nil
}

// SetEpisodeFolder moves an episode into a folder (empty id moves to root).
func (s *Store) SetEpisodeFolder(ctx context.Context, id, folderID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE episodes SET folder_id = ?, updated_at = ? WHERE id = ?`,
		nullable(folderID), formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set episode folder: %w", err)
	}
	return requireRow(res, "episode", id)
}

// UpdateEpisodeTitle renames an episode.
func (s *Store) UpdateEpisodeTitle(ctx context.Context, id, title string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE episodes SET title = ?, updated_at = ? WHERE id = ?`,
		title, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update episode title: %w", err)
	}
	return requireRow(res, "episode", id)
}

// DeleteEpisode removes an episode; chunks and playback state cascade.
func (s *Store) DeleteEpisode(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM episodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete episode: %w", err)
	}
	return requireRow(res, "episode", id)
}

// ReplaceChunkPlan atomically swaps the episode's settings and chunk plan.
// Used by regenerate-with-settings and by undo restore.
func (s *Store) ReplaceChunkPlan(ctx context.Context, ep Episode, chunks []Chunk) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		res, err := tx.ExecContext(ctx, `
			UPDATE episodes SET voice_id = ?, output_format = ?, chunk_strategy = ?,
				chunk_max_length = ?, breathing_intensity = ?, status = ?,
				total_duration_secs = ?, updated_at = ?
			WHERE id = ?`,
			ep.VoiceID, ep.OutputFormat, ep.ChunkStrategy,
			ep.ChunkMaxLength, ep.BreathingIntensity, ep.Status,
			ep.TotalDurationSecs, now, ep.ID,
		)
		if err != nil {
			return fmt.Errorf("update episode settings: %w", err)
		}
		if err := requireRow(res, "episode", ep.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE episode_id = ?`, ep.ID); err != nil {
			return fmt.Errorf("clear chunk plan: %w", err)
		}
		for _, c := range chunks {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO chunks (episode_id, chunk_index, text, label, status,
					audio_path, duration_secs, error_message, word_timings, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				ep.ID, c.Index, c.Text, c.Label, c.Status,
				c.AudioPath, c.DurationSecs, c.ErrorMessage, orEmptyJSON(c.WordTimings), now,
			)
			if err != nil {
				return fmt.Errorf("insert chunk %d: %w", c.Index, err)
			}
		}
		// Resume point may now be past the end of the new plan.
		_, err = tx.ExecContext(ctx, `
			UPDATE playback_state SET current_chunk_index = 0, position_secs = 0
			WHERE episode_id = ? AND current_chunk_index >= ?`,
			ep.ID, len(chunks),
		)
		return err
	})
}

func orEmptyJSON(s string) string {
	if s == "" {
		return "[]"
	}
	return s
}
